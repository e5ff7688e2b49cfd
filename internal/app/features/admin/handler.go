// internal/app/features/admin/handler.go
package admin

import (
	"net/http"

	"github.com/arabeuna/aramove/internal/app/store/audit"
	ridestore "github.com/arabeuna/aramove/internal/app/store/rides"
	userstore "github.com/arabeuna/aramove/internal/app/store/users"
	"github.com/arabeuna/aramove/internal/app/system/apierr"
	"github.com/arabeuna/aramove/internal/app/system/auditlog"
	"github.com/arabeuna/aramove/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// PendingPageSize is the number of drivers per pending-drivers page.
const PendingPageSize = 20

// Invalidator drops cached credentials for a user whose flags changed.
type Invalidator interface {
	Invalidate(userID string)
}

// Handler serves the admin console API.
type Handler struct {
	DB       *mongo.Database
	Users    *userstore.Store
	Rides    *ridestore.Store
	Events   *audit.Store
	Sessions Invalidator
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, sessions Invalidator, al *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Users:    userstore.New(db),
		Rides:    ridestore.New(db),
		Events:   audit.New(db),
		Sessions: sessions,
		AuditLog: al,
		Log:      logger,
	}
}

// target returns the caller's id and the {id} URL param.
func target(r *http.Request, resource string) (actor, id primitive.ObjectID, err error) {
	_, _, actor, ok := authz.UserCtx(r)
	if !ok {
		return actor, id, apierr.Unauthorized("")
	}
	id, perr := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if perr != nil {
		return actor, id, apierr.NotFound(resource)
	}
	return actor, id, nil
}

func (h *Handler) invalidate(id primitive.ObjectID) {
	if h.Sessions != nil {
		h.Sessions.Invalidate(id.Hex())
	}
}
