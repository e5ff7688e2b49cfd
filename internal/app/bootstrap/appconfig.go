// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers the
// framework side: ports, TLS, logging, CORS and body limits.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Token auth
	JWTSecret      string        // HS256 signing secret (must be strong in production)
	JWTExpiry      time.Duration // token lifetime
	JWTIssuer      string
	CookieHashKey  string // signs the token cookie, at least 32 bytes
	CookieBlockKey string // optional cookie encryption key (16, 24 or 32 bytes)
	CookieSecure   bool

	// Credential cache in front of the users collection
	CredentialCacheTTL  time.Duration
	CredentialCacheSize int

	// Matching
	RideSearchRadius      float64 // meters, rides shown to a driver
	DriverSearchRadius    float64 // meters, drivers shown to a passenger
	NearbyLimit           int
	RequireDriverApproval bool

	// Admin bootstrap
	AdminEmail    string
	AdminPassword string
	AdminName     string

	// Audit logging: all, db, log or off. The per-category values override
	// AuditLog when set.
	AuditLog      string
	AuditLogAuth  string
	AuditLogAdmin string
	AuditLogRide  string

	LoginRateLimit int // login attempts per IP per minute
}
