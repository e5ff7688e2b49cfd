// internal/app/system/normalize/normalize.go
package normalize

import (
	"strings"

	"github.com/arabeuna/aramove/internal/domain/models"
)

// Email trims and lowercases an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding whitespace and collapses internal runs of spaces.
// Case is preserved.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Phone trims whitespace; formatting is left as entered.
func Phone(s string) string {
	return strings.TrimSpace(s)
}

// Plate uppercases a vehicle plate and strips spaces and dashes so
// "abc-1d23" and "ABC1D23" collide on the unique index.
func Plate(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "-", "").Replace(s)
}

// CPF keeps only the digits of a taxpayer id.
func CPF(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Role lowercases a role and maps the legacy "user" role to passenger.
// Unknown roles are returned lowercased so callers can reject them.
func Role(s string) string {
	r := strings.ToLower(strings.TrimSpace(s))
	if r == "user" {
		return models.RolePassenger
	}
	return r
}

// IsRole reports whether s normalizes to one of the known roles.
func IsRole(s string) bool {
	switch Role(s) {
	case models.RolePassenger, models.RoleDriver, models.RoleAdmin:
		return true
	}
	return false
}

// QueryParam trims whitespace from a query parameter value.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}
