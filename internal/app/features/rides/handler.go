// internal/app/features/rides/handler.go
package rides

import (
	"errors"
	"net/http"

	"github.com/arabeuna/aramove/internal/app/store/queries/nearby"
	ridestore "github.com/arabeuna/aramove/internal/app/store/rides"
	userstore "github.com/arabeuna/aramove/internal/app/store/users"
	"github.com/arabeuna/aramove/internal/app/system/apierr"
	"github.com/arabeuna/aramove/internal/app/system/authz"
	"github.com/arabeuna/aramove/internal/app/system/lifecycle"
	"github.com/arabeuna/aramove/internal/app/system/ridefeed"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the shared dependency container for the rides feature.
// Transitions go through the lifecycle Manager; reads use the stores
// directly.
type Handler struct {
	DB        *mongo.Database
	Rides     *ridestore.Store
	Users     *userstore.Store
	Lifecycle *lifecycle.Manager
	Feed      *ridefeed.Feed

	// Matching knobs for GET /rides/available.
	SearchRadius    float64
	NearbyLimit     int
	RequireApproval bool

	Log *zap.Logger
}

// NewHandler constructs a rides Handler with the default matching knobs.
func NewHandler(db *mongo.Database, lm *lifecycle.Manager, feed *ridefeed.Feed, logger *zap.Logger) *Handler {
	return &Handler{
		DB:              db,
		Rides:           ridestore.New(db),
		Users:           userstore.New(db),
		Lifecycle:       lm,
		Feed:            feed,
		SearchRadius:    nearby.DefaultRideRadiusMeters,
		NearbyLimit:     nearby.DefaultLimit,
		RequireApproval: lm != nil && lm.RequireApproval,
		Log:             logger,
	}
}

// actor returns the authenticated caller as a lifecycle actor.
func actor(r *http.Request) (lifecycle.Actor, bool) {
	role, _, uid, ok := authz.UserCtx(r)
	if !ok {
		return lifecycle.Actor{}, false
	}
	return lifecycle.Actor{ID: uid, Role: role}, true
}

// rideID parses the {id} URL parameter. A malformed id cannot name a ride.
func rideID(r *http.Request) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		return primitive.NilObjectID, apierr.NotFound("ride")
	}
	return oid, nil
}

// lifecycleErr maps Manager errors onto API errors.
func lifecycleErr(err error) error {
	switch {
	case errors.Is(err, lifecycle.ErrNotFound):
		return apierr.NotFound("ride")
	case errors.Is(err, lifecycle.ErrConflict):
		return apierr.Conflict(err.Error(), err)
	case errors.Is(err, lifecycle.ErrBusy):
		return apierr.Conflict(err.Error(), err)
	case errors.Is(err, lifecycle.ErrForbidden):
		return apierr.Forbidden(err.Error())
	case errors.Is(err, lifecycle.ErrNotApproved):
		return apierr.Forbidden(err.Error())
	case errors.Is(err, lifecycle.ErrInvalidRequest):
		return apierr.BadRequest(err.Error(), err)
	}
	return apierr.Internal(err)
}
