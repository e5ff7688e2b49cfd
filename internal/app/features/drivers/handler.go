// internal/app/features/drivers/handler.go
package drivers

import (
	"github.com/arabeuna/aramove/internal/app/store/queries/nearby"
	ridestore "github.com/arabeuna/aramove/internal/app/store/rides"
	userstore "github.com/arabeuna/aramove/internal/app/store/users"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves driver lookups for passengers and admins.
type Handler struct {
	DB    *mongo.Database
	Users *userstore.Store
	Rides *ridestore.Store

	SearchRadius    float64
	NearbyLimit     int
	RequireApproval bool

	Log *zap.Logger
}

func NewHandler(db *mongo.Database, requireApproval bool, logger *zap.Logger) *Handler {
	return &Handler{
		DB:              db,
		Users:           userstore.New(db),
		Rides:           ridestore.New(db),
		SearchRadius:    nearby.DefaultDriverRadiusMeters,
		NearbyLimit:     nearby.DefaultLimit,
		RequireApproval: requireApproval,
		Log:             logger,
	}
}
