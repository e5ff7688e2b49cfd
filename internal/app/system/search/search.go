// internal/app/system/search/search.go
package search

import (
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
)

// IsEmail reports whether q looks like an email lookup rather than a name.
func IsEmail(q string) bool {
	return strings.Contains(q, "@")
}

// Field returns the indexed field a query searches: email for email-like
// input, otherwise the folded name.
func Field(q string) string {
	if IsEmail(q) {
		return "email"
	}
	return "name_ci"
}

// Prefix returns a range filter matching documents whose Field(q) starts
// with q. Email input is lowercased and name input is folded so both use
// their index. An empty query returns nil.
func Prefix(q string) bson.M {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil
	}
	var lo string
	if IsEmail(q) {
		lo = strings.ToLower(q)
	} else {
		lo = text.Fold(q)
	}
	if lo == "" {
		return nil
	}
	return bson.M{Field(q): bson.M{"$gte": lo, "$lt": lo + "\uffff"}}
}
