// internal/app/system/authz/roles.go
package authz

import (
	"net/http"

	"github.com/arabeuna/aramove/internal/app/system/normalize"
)

// HasAnyRole reports whether the current request's user has any of the given roles.
// Returns false if no user is present (i.e., not signed in).
func HasAnyRole(r *http.Request, roles ...string) bool {
	role, _, _, ok := UserCtx(r)
	if !ok {
		return false
	}
	for _, want := range roles {
		if role == normalize.Role(want) {
			return true
		}
	}
	return false
}

// Role returns the current user's role and whether a user is present.
func Role(r *http.Request) (string, bool) {
	role, _, _, ok := UserCtx(r)
	return role, ok
}
