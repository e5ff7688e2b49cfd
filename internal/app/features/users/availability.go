// internal/app/features/users/availability.go
package users

import (
	"context"
	"errors"
	"net/http"

	userstore "github.com/arabeuna/aramove/internal/app/store/users"
	"github.com/arabeuna/aramove/internal/app/system/apierr"
	"github.com/arabeuna/aramove/internal/app/system/auth"
	"github.com/arabeuna/aramove/internal/app/system/authz"
	"github.com/arabeuna/aramove/internal/app/system/inputval"
	"github.com/arabeuna/aramove/internal/app/system/jsonio"
	"github.com/arabeuna/aramove/internal/app/system/timeouts"
)

type availabilityInput struct {
	IsAvailable *bool `json:"isAvailable" validate:"required" label:"Availability"`
}

// HandleAvailability handles PATCH /users/availability (drivers only).
func (h *Handler) HandleAvailability(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		jsonio.Error(w, r, h.Log, apierr.Unauthorized(""))
		return
	}

	var in availabilityInput
	if err := jsonio.Decode(w, r, &in); err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	if err := inputval.Check(in); err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	// Going offline is always allowed; going online needs approval.
	if *in.IsAvailable && h.RequireApproval {
		u, err := h.Users.GetByID(ctx, uid)
		if err != nil {
			jsonio.Error(w, r, h.Log, apierr.Internal(err))
			return
		}
		if !u.IsApproved {
			jsonio.Error(w, r, h.Log, apierr.Forbidden("driver has not been approved yet"))
			return
		}
	}

	err := h.Users.SetAvailability(ctx, uid, *in.IsAvailable)
	if errors.Is(err, userstore.ErrNotFound) {
		jsonio.Error(w, r, h.Log, apierr.NotFound("driver"))
		return
	}
	if err != nil {
		jsonio.Error(w, r, h.Log, apierr.Internal(err))
		return
	}
	if u, ok := auth.CurrentUser(r); ok && h.Sessions != nil {
		h.Sessions.Invalidate(u.ID)
	}
	jsonio.OK(w, map[string]any{"message": "availability updated", "isAvailable": *in.IsAvailable})
}
