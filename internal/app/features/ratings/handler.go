// internal/app/features/ratings/handler.go
package ratings

import (
	ratingstore "github.com/arabeuna/aramove/internal/app/store/ratings"
	ridestore "github.com/arabeuna/aramove/internal/app/store/rides"
	userstore "github.com/arabeuna/aramove/internal/app/store/users"
	"github.com/arabeuna/aramove/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves post-ride ratings.
type Handler struct {
	Ratings  *ratingstore.Store
	Rides    *ridestore.Store
	Users    *userstore.Store
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Ratings:  ratingstore.New(db),
		Rides:    ridestore.New(db),
		Users:    userstore.New(db),
		AuditLog: audit,
		Log:      logger,
	}
}
