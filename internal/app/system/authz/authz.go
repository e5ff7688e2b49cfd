// internal/app/system/authz/authz.go
package authz

import (
	"net/http"

	"github.com/arabeuna/aramove/internal/app/system/auth"
	"github.com/arabeuna/aramove/internal/app/system/normalize"
	"github.com/arabeuna/aramove/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the user's role (normalized), name, Mongo ObjectID, and a found flag.
// If no user is present in context or the user ID is malformed, it returns
// "visitor", "", NilObjectID, false, so ok=true always carries a usable id.
func UserCtx(r *http.Request) (role string, name string, userID primitive.ObjectID, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return "visitor", "", primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		// Malformed id in the token; fail closed.
		return "visitor", "", primitive.NilObjectID, false
	}
	return normalize.Role(user.Role), user.Name, userID, true
}

// IsAdmin reports whether the current request's user is an admin.
func IsAdmin(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == models.RoleAdmin
}

// IsDriver reports whether the current request's user is a driver.
func IsDriver(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == models.RoleDriver
}

// IsPassenger reports whether the current request's user is a passenger.
// Accounts created with the legacy "user" role count as passengers.
func IsPassenger(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == models.RolePassenger
}

// IsApprovedDriver reports whether the user is a driver an admin has approved.
func IsApprovedDriver(r *http.Request) bool {
	user, ok := auth.CurrentUser(r)
	return ok && normalize.Role(user.Role) == models.RoleDriver && user.IsApproved
}
