// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"time"

	"github.com/arabeuna/aramove/internal/app/system/auditlog"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

const devJWTSecret = "dev-only-change-me-please-0123456789ABCDEF"

// appConfigKeys defines the configuration keys for aramove.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, jwt_secret, etc.
//   - Environment variables: ARAMOVE_MONGO_URI, ARAMOVE_JWT_SECRET, etc.
//   - Command-line flags: --mongo_uri, --jwt_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "aramove", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Token auth
	{Name: "jwt_secret", Default: devJWTSecret, Desc: "JWT signing secret (must be strong in production)"},
	{Name: "jwt_expiry", Default: "24h", Desc: "Token lifetime (e.g., 24h, 30m)"},
	{Name: "jwt_issuer", Default: "aramove", Desc: "JWT issuer claim"},
	{Name: "cookie_hash_key", Default: devJWTSecret, Desc: "Token cookie signing key (at least 32 bytes)"},
	{Name: "cookie_block_key", Default: "", Desc: "Token cookie encryption key (16, 24 or 32 bytes; blank disables)"},
	{Name: "cookie_secure", Default: false, Desc: "Mark the token cookie Secure (forced on in prod)"},

	// Credential cache
	{Name: "credential_cache_ttl", Default: "1m", Desc: "How long an authenticated user stays cached"},
	{Name: "credential_cache_size", Default: 10000, Desc: "Max cached users"},

	// Matching
	{Name: "ride_search_radius_m", Default: 10000, Desc: "Radius in meters for rides offered to a driver"},
	{Name: "driver_search_radius_m", Default: 5000, Desc: "Radius in meters for drivers shown to a passenger"},
	{Name: "nearby_limit", Default: 5, Desc: "Default number of nearby results"},
	{Name: "require_driver_approval", Default: true, Desc: "Keep unapproved drivers from going online or accepting rides"},

	// Admin bootstrap
	{Name: "admin_email", Default: "", Desc: "Email of the admin user (promotes/creates on startup)"},
	{Name: "admin_password", Default: "", Desc: "Password used when the admin user has to be created"},
	{Name: "admin_name", Default: "Administrador", Desc: "Display name used when the admin user has to be created"},

	// Audit logging settings
	{Name: "audit_log", Default: "all", Desc: "Audit event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_auth", Default: "", Desc: "Override for auth events (blank uses audit_log)"},
	{Name: "audit_log_admin", Default: "", Desc: "Override for admin events (blank uses audit_log)"},
	{Name: "audit_log_ride", Default: "", Desc: "Override for ride events (blank uses audit_log)"},

	{Name: "login_rate_limit", Default: 10, Desc: "Login attempts per IP per minute"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig merges .env files, config files,
// ARAMOVE_* environment variables and flags with precedence
// flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "ARAMOVE", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		JWTSecret:      appValues.String("jwt_secret"),
		JWTExpiry:      appValues.Duration("jwt_expiry", 24*time.Hour),
		JWTIssuer:      appValues.String("jwt_issuer"),
		CookieHashKey:  appValues.String("cookie_hash_key"),
		CookieBlockKey: appValues.String("cookie_block_key"),
		CookieSecure:   appValues.Bool("cookie_secure") || coreCfg.Env == "prod",

		CredentialCacheTTL:  appValues.Duration("credential_cache_ttl", time.Minute),
		CredentialCacheSize: appValues.Int("credential_cache_size"),

		RideSearchRadius:      float64(appValues.Int("ride_search_radius_m")),
		DriverSearchRadius:    float64(appValues.Int("driver_search_radius_m")),
		NearbyLimit:           appValues.Int("nearby_limit"),
		RequireDriverApproval: appValues.Bool("require_driver_approval"),

		AdminEmail:    appValues.String("admin_email"),
		AdminPassword: appValues.String("admin_password"),
		AdminName:     appValues.String("admin_name"),

		AuditLog:      appValues.String("audit_log"),
		AuditLogAuth:  appValues.String("audit_log_auth"),
		AuditLogAdmin: appValues.String("audit_log_admin"),
		AuditLogRide:  appValues.String("audit_log_ride"),

		LoginRateLimit: appValues.Int("login_rate_limit"),
	}

	return coreCfg, appCfg, nil
}

// auditConfig resolves the per-category audit destinations.
func (c AppConfig) auditConfig() auditlog.Config {
	cfg := auditlog.Uniform(c.AuditLog)
	if c.AuditLogAuth != "" {
		cfg.Auth = c.AuditLogAuth
	}
	if c.AuditLogAdmin != "" {
		cfg.Admin = c.AuditLogAdmin
	}
	if c.AuditLogRide != "" {
		cfg.Ride = c.AuditLogRide
	}
	return cfg
}

// ValidateConfig performs app-specific config validation.
//
// The MongoDB URI is checked here to catch configuration errors before
// attempting to connect.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if appCfg.JWTSecret == "" {
		return errors.New("jwt_secret is required")
	}
	if coreCfg.Env == "prod" {
		if appCfg.JWTSecret == devJWTSecret || len(appCfg.JWTSecret) < 32 {
			return errors.New("jwt_secret must be set to a strong value (32+ bytes) in prod")
		}
		if appCfg.CookieHashKey == devJWTSecret {
			return errors.New("cookie_hash_key must be changed in prod")
		}
	}
	if len(appCfg.CookieHashKey) < 32 {
		return errors.New("cookie_hash_key must be at least 32 bytes")
	}

	if appCfg.RideSearchRadius <= 0 || appCfg.DriverSearchRadius <= 0 {
		return errors.New("search radii must be positive")
	}
	if appCfg.NearbyLimit <= 0 {
		return errors.New("nearby_limit must be positive")
	}
	if appCfg.CredentialCacheSize <= 0 {
		return errors.New("credential_cache_size must be positive")
	}

	audit := appCfg.auditConfig()
	for name, mode := range map[string]string{"auth": audit.Auth, "admin": audit.Admin, "ride": audit.Ride} {
		if !auditlog.ValidMode(mode) {
			return fmt.Errorf("audit log mode for %s must be all, db, log or off (got %q)", name, mode)
		}
	}

	if appCfg.AdminEmail != "" && appCfg.AdminPassword == "" {
		logger.Warn("admin_email set without admin_password; the admin will only be promoted, never created")
	}
	return nil
}
