// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	userstore "github.com/arabeuna/aramove/internal/app/store/users"
	"github.com/arabeuna/aramove/internal/app/system/auth"
	"github.com/arabeuna/aramove/internal/app/system/authutil"
	"github.com/arabeuna/aramove/internal/app/system/credcache"
	"github.com/arabeuna/aramove/internal/app/system/normalize"
	"github.com/arabeuna/aramove/internal/app/system/ratelimit"
	"github.com/arabeuna/aramove/internal/app/system/ridefeed"
	"github.com/arabeuna/aramove/internal/app/system/timeouts"
	"github.com/arabeuna/aramove/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeouts overridden from environment", zap.Int("count", n))
	}

	if appCfg.AdminEmail != "" {
		if err := ensureAdmin(ctx, deps, appCfg.AdminEmail, appCfg.AdminPassword, appCfg.AdminName, logger); err != nil {
			return fmt.Errorf("ensure admin: %w", err)
		}
	}

	if deps.Runtime == nil {
		return errors.New("startup: DBDeps.Runtime is nil")
	}
	startRuntime(deps.Runtime, appCfg, logger)
	return nil
}

// startRuntime builds the in-process services shared by the handlers.
func startRuntime(rt *Runtime, appCfg AppConfig, logger *zap.Logger) {
	rt.Credentials = credcache.New[auth.SessionUser](appCfg.CredentialCacheSize, appCfg.CredentialCacheTTL)
	rt.Feed = ridefeed.New(logger.Named("ridefeed"), nil)
	rt.LoginLimiter = ratelimit.NewLoginLimiter(appCfg.LoginRateLimit)
}

// ensureAdmin makes sure the configured email belongs to an admin. An
// existing account is promoted; otherwise a new admin is created when a
// password is configured.
func ensureAdmin(ctx context.Context, deps DBDeps, email, password, name string, logger *zap.Logger) error {
	users := userstore.New(deps.MongoDatabase)
	email = normalize.Email(email)

	u, err := users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if u.Role == models.RoleAdmin {
			logger.Debug("admin already present", zap.String("email", email))
			return nil
		}
		_, err := users.Collection().UpdateOne(ctx, bson.M{"_id": u.ID}, bson.M{
			"$set": bson.M{
				"role":         models.RoleAdmin,
				"is_approved":  true,
				"is_available": false,
				"updated_at":   time.Now().UTC(),
			},
			"$unset": bson.M{"vehicle": "", "documents": ""},
		})
		if err != nil {
			return err
		}
		logger.Info("promoted user to admin", zap.String("email", email), zap.String("previous_role", u.Role))
		return nil

	case errors.Is(err, userstore.ErrNotFound):
		if password == "" {
			logger.Warn("admin user not found and no admin_password set; skipping", zap.String("email", email))
			return nil
		}
		hash, err := authutil.HashPassword(password)
		if err != nil {
			return err
		}
		if name == "" {
			name = "Administrador"
		}
		created, err := users.Create(ctx, models.User{
			Name:         name,
			Email:        email,
			PasswordHash: hash,
			Role:         models.RoleAdmin,
		})
		if err != nil {
			return err
		}
		logger.Info("created admin user", zap.String("email", email), zap.String("id", created.ID.Hex()))
		return nil

	default:
		return err
	}
}
