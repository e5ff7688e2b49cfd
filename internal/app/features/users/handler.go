// internal/app/features/users/handler.go
package users

import (
	userstore "github.com/arabeuna/aramove/internal/app/store/users"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Invalidator drops cached credentials for a user whose flags changed.
type Invalidator interface {
	Invalidate(userID string)
}

// Handler serves the caller's own account state and the admin user list.
type Handler struct {
	Users    *userstore.Store
	Sessions Invalidator

	// RequireApproval keeps unapproved drivers from going available.
	RequireApproval bool

	Log *zap.Logger
}

func NewHandler(db *mongo.Database, sessions Invalidator, requireApproval bool, logger *zap.Logger) *Handler {
	return &Handler{
		Users:           userstore.New(db),
		Sessions:        sessions,
		RequireApproval: requireApproval,
		Log:             logger,
	}
}
