// internal/app/bootstrap/routes.go
package bootstrap

import (
	"errors"
	"net/http"

	accountfeature "github.com/arabeuna/aramove/internal/app/features/account"
	adminfeature "github.com/arabeuna/aramove/internal/app/features/admin"
	driversfeature "github.com/arabeuna/aramove/internal/app/features/drivers"
	healthfeature "github.com/arabeuna/aramove/internal/app/features/health"
	messagesfeature "github.com/arabeuna/aramove/internal/app/features/messages"
	ratingsfeature "github.com/arabeuna/aramove/internal/app/features/ratings"
	ridesfeature "github.com/arabeuna/aramove/internal/app/features/rides"
	usersfeature "github.com/arabeuna/aramove/internal/app/features/users"
	"github.com/arabeuna/aramove/internal/app/store/audit"
	ridestore "github.com/arabeuna/aramove/internal/app/store/rides"
	userstore "github.com/arabeuna/aramove/internal/app/store/users"
	"github.com/arabeuna/aramove/internal/app/system/apierr"
	"github.com/arabeuna/aramove/internal/app/system/auditlog"
	"github.com/arabeuna/aramove/internal/app/system/auth"
	"github.com/arabeuna/aramove/internal/app/system/jsonio"
	"github.com/arabeuna/aramove/internal/app/system/lifecycle"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// Startup have completed, so deps.Runtime already holds the credential
// cache, the ride feed and the login limiter.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	rt := deps.Runtime
	if rt == nil || rt.Credentials == nil || rt.Feed == nil || rt.LoginLimiter == nil {
		return nil, errors.New("build handler: runtime not started")
	}
	db := deps.MongoDatabase

	// Error details carry the underlying cause only in dev.
	jsonio.ExposeErrorCauses(coreCfg.Env == "dev")

	tokens, err := auth.NewTokens(appCfg.JWTSecret, appCfg.JWTExpiry, appCfg.JWTIssuer)
	if err != nil {
		logger.Error("token service init failed", zap.Error(err))
		return nil, err
	}
	cookies, err := auth.NewCookies(appCfg.CookieHashKey, appCfg.CookieBlockKey, appCfg.CookieSecure)
	if err != nil {
		logger.Error("cookie codec init failed", zap.Error(err))
		return nil, err
	}
	// Authenticate re-reads the user through the fetcher on cache misses so
	// approval and availability changes take effect once the entry is evicted.
	am := auth.NewManager(tokens, cookies, userstore.NewFetcher(db), rt.Credentials, logger.Named("auth"))

	auditLog := auditlog.New(audit.New(db), logger.Named("audit"), appCfg.auditConfig())

	lm := &lifecycle.Manager{
		Rides:           ridestore.New(db),
		Users:           userstore.New(db),
		Client:          deps.MongoClient,
		Feed:            rt.Feed,
		Audit:           auditLog,
		Sessions:        am,
		RequireApproval: appCfg.RequireDriverApproval,
		Log:             logger.Named("lifecycle"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		jsonio.Error(w, r, logger, apierr.NotFound("route"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		jsonio.Error(w, r, logger, &apierr.Error{
			Code:    "method_not_allowed",
			Message: "method not allowed",
			Status:  http.StatusMethodNotAllowed,
		})
	})

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Authentication
	accountHandler := accountfeature.NewHandler(userstore.New(db), am, rt.LoginLimiter, auditLog, logger)
	r.Mount("/auth", accountfeature.Routes(accountHandler))

	// Rides, with ratings mounted under /rides/{id}/rate
	ratingsHandler := ratingsfeature.NewHandler(db, auditLog, logger)
	ridesHandler := ridesfeature.NewHandler(db, lm, rt.Feed, logger)
	ridesHandler.SearchRadius = appCfg.RideSearchRadius
	ridesHandler.NearbyLimit = appCfg.NearbyLimit
	r.Mount("/rides", ridesfeature.Routes(ridesHandler, am, http.HandlerFunc(ratingsHandler.HandleRate)))
	r.Mount("/ratings", ratingsfeature.Routes(ratingsHandler, am))

	// Accounts and drivers
	usersHandler := usersfeature.NewHandler(db, am, appCfg.RequireDriverApproval, logger)
	r.Mount("/users", usersfeature.Routes(usersHandler, am))

	driversHandler := driversfeature.NewHandler(db, appCfg.RequireDriverApproval, logger)
	driversHandler.SearchRadius = appCfg.DriverSearchRadius
	driversHandler.NearbyLimit = appCfg.NearbyLimit
	r.Mount("/drivers", driversfeature.Routes(driversHandler, am))

	// Ride chat and support chat
	messagesHandler := messagesfeature.NewHandler(db, logger)
	r.Mount("/messages", messagesfeature.Routes(messagesHandler, am))

	// Moderation
	adminHandler := adminfeature.NewHandler(db, am, auditLog, logger)
	r.Mount("/admin", adminfeature.Routes(adminHandler, am))

	return r, nil
}
