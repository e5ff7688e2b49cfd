// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/arabeuna/aramove/internal/app/system/auth"
	"github.com/arabeuna/aramove/internal/app/system/credcache"
	"github.com/arabeuna/aramove/internal/app/system/ratelimit"
	"github.com/arabeuna/aramove/internal/app/system/ridefeed"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Runtime is filled in by Startup and torn down by Shutdown.
	Runtime *Runtime
}

// Runtime holds the long-lived in-process services shared by the handlers.
type Runtime struct {
	Credentials  *credcache.Cache[auth.SessionUser]
	Feed         *ridefeed.Feed
	LoginLimiter *ratelimit.LoginLimiter
}
