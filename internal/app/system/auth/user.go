package auth

import (
	"context"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionUser is the authenticated caller as seen by handlers. It is
// loaded fresh (or from the credential cache) on every request, so role
// and approval changes apply without re-login.
type SessionUser struct {
	ID          string
	Name        string
	Email       string
	Role        string
	IsApproved  bool
	IsAvailable bool
}

// ObjectID returns the user's id, or NilObjectID when malformed.
func (u *SessionUser) ObjectID() primitive.ObjectID {
	oid, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return primitive.NilObjectID
	}
	return oid
}

// UserFetcher loads a user for the middleware. It returns nil when the
// user does not exist or cannot be loaded.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) *SessionUser
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the authenticated user, if any.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok && u != nil
}

// WithUser returns r carrying u. Used by the middleware and by handler tests.
func WithUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}
