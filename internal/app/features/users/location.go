// internal/app/features/users/location.go
package users

import (
	"context"
	"errors"
	"net/http"

	userstore "github.com/arabeuna/aramove/internal/app/store/users"
	"github.com/arabeuna/aramove/internal/app/system/apierr"
	"github.com/arabeuna/aramove/internal/app/system/authz"
	"github.com/arabeuna/aramove/internal/app/system/jsonio"
	"github.com/arabeuna/aramove/internal/app/system/timeouts"
	"github.com/arabeuna/aramove/internal/domain/geo"
)

// locationInput takes [lng, lat] coordinates. Older driver apps send
// separate latitude and longitude fields instead.
type locationInput struct {
	Coordinates []float64 `json:"coordinates"`
	Latitude    *float64  `json:"latitude"`
	Longitude   *float64  `json:"longitude"`
}

func (in locationInput) pair() []float64 {
	if len(in.Coordinates) == 0 && in.Latitude != nil && in.Longitude != nil {
		return []float64{*in.Longitude, *in.Latitude}
	}
	return in.Coordinates
}

// HandleLocation handles PATCH /users/location.
func (h *Handler) HandleLocation(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		jsonio.Error(w, r, h.Log, apierr.Unauthorized(""))
		return
	}

	var in locationInput
	if err := jsonio.Decode(w, r, &in); err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	p, err := geo.FromPair(in.pair())
	if err != nil {
		jsonio.Error(w, r, h.Log, apierr.Validation(map[string]string{"coordinates": err.Error()}))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	err = h.Users.UpdateLocation(ctx, uid, p)
	if errors.Is(err, userstore.ErrNotFound) {
		jsonio.Error(w, r, h.Log, apierr.NotFound("user"))
		return
	}
	if err != nil {
		jsonio.Error(w, r, h.Log, apierr.Internal(err))
		return
	}
	jsonio.OK(w, map[string]any{"message": "location updated", "location": p})
}
