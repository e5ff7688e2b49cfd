// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultLimit and MaxLimit bound the "limit" query parameter.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ParseLimit reads ?limit=, falling back to def and clamping to MaxLimit.
func ParseLimit(r *http.Request, def int) int {
	n, err := strconv.Atoi(query.Get(r, "limit"))
	if err != nil || n < 1 {
		return def
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}

// Page is the envelope for keyset-paged list responses.
type Page[T any] struct {
	Items   []T    `json:"items"`
	HasPrev bool   `json:"hasPrev"`
	HasNext bool   `json:"hasNext"`
	Prev    string `json:"prev,omitempty"`
	Next    string `json:"next,omitempty"`
}

// Result holds the output of TrimPage.
type Result struct {
	HasPrev bool
	HasNext bool
}

// TrimPage trims rows fetched with a limit of size+1.
//
// Going backwards (before != ""): an extra row means an older page exists
// and is dropped from the front; HasNext is always true.
// Otherwise: an extra row means a next page exists; HasPrev is true only
// when after was given.
func TrimPage[T any](rows *[]T, before, after string, size int) Result {
	var res Result
	if before != "" {
		if len(*rows) > size {
			*rows = (*rows)[1:]
			res.HasPrev = true
		}
		res.HasNext = true
		return res
	}
	if len(*rows) > size {
		*rows = (*rows)[:size]
		res.HasNext = true
	}
	res.HasPrev = after != ""
	return res
}

// Direction of a keyset query.
type Direction int

const (
	Forward Direction = iota
	Backward
)

// KeysetConfig is the decoded state of a before/after cursor pair.
type KeysetConfig struct {
	Direction Direction
	SortOrder int
	Cursor    *wafflemongo.Cursor
}

// ConfigureKeyset decodes before/after. before wins when both are set.
func ConfigureKeyset(before, after string) KeysetConfig {
	cfg := KeysetConfig{Direction: Forward, SortOrder: 1}
	raw := after
	if before != "" {
		cfg.Direction = Backward
		cfg.SortOrder = -1
		raw = before
	}
	if raw != "" {
		if c, ok := wafflemongo.DecodeCursor(raw); ok {
			cfg.Cursor = &c
		}
	}
	return cfg
}

// ApplyToFind sorts on (sortField, _id) and fetches size+1 rows.
func (cfg KeysetConfig) ApplyToFind(find *options.FindOptions, sortField string, size int) {
	find.SetSort(bson.D{
		{Key: sortField, Value: cfg.SortOrder},
		{Key: "_id", Value: cfg.SortOrder},
	}).SetLimit(int64(size + 1))
}

// KeysetWindow returns the filter clause for the cursor, or nil.
func (cfg KeysetConfig) KeysetWindow(sortField string) bson.M {
	if cfg.Cursor == nil {
		return nil
	}
	dir := "gt"
	if cfg.Direction == Backward {
		dir = "lt"
	}
	return wafflemongo.KeysetWindow(sortField, dir, cfg.Cursor.CI, cfg.Cursor.ID)
}

// Reverse reverses rows in place.
func Reverse[T any](rows []T) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}

// BuildCursors encodes cursors for the first and last rows.
func BuildCursors[T any](rows []T, keyFn func(T) string, idFn func(T) primitive.ObjectID) (prev, next string) {
	if len(rows) == 0 {
		return "", ""
	}
	first, last := rows[0], rows[len(rows)-1]
	return wafflemongo.EncodeCursor(keyFn(first), idFn(first)),
		wafflemongo.EncodeCursor(keyFn(last), idFn(last))
}

// BeforeID parses ?before= as an ObjectID for newest-first lists keyed on
// _id alone. Missing or malformed values return NilObjectID.
func BeforeID(r *http.Request) primitive.ObjectID {
	oid, err := primitive.ObjectIDFromHex(query.Get(r, "before"))
	if err != nil {
		return primitive.NilObjectID
	}
	return oid
}
