// internal/app/features/rides/show.go
package rides

import (
	"context"
	"errors"
	"net/http"

	ridestore "github.com/arabeuna/aramove/internal/app/store/rides"
	"github.com/arabeuna/aramove/internal/app/system/apierr"
	"github.com/arabeuna/aramove/internal/app/system/authz"
	"github.com/arabeuna/aramove/internal/app/system/jsonio"
	"github.com/arabeuna/aramove/internal/app/system/timeouts"
	"github.com/arabeuna/aramove/internal/domain/models"
)

// ServeRide handles GET /rides/{id} and the legacy /rides/status/{id}.
// Only the ride's parties and admins may read it.
func (h *Handler) ServeRide(w http.ResponseWriter, r *http.Request) {
	ride, ok := h.loadForParty(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	v, err := h.view(ctx, ride)
	if err != nil {
		jsonio.Error(w, r, h.Log, apierr.Internal(err))
		return
	}
	jsonio.OK(w, v)
}

// loadForParty loads {id} and checks that the caller is a party or an
// admin. It writes the error response itself and reports false on failure.
func (h *Handler) loadForParty(w http.ResponseWriter, r *http.Request) (models.Ride, bool) {
	role, _, uid, ok := authz.UserCtx(r)
	if !ok {
		jsonio.Error(w, r, h.Log, apierr.Unauthorized(""))
		return models.Ride{}, false
	}
	id, err := rideID(r)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return models.Ride{}, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	ride, err := h.Rides.GetByID(ctx, id)
	if errors.Is(err, ridestore.ErrNotFound) {
		jsonio.Error(w, r, h.Log, apierr.NotFound("ride"))
		return models.Ride{}, false
	}
	if err != nil {
		jsonio.Error(w, r, h.Log, apierr.Internal(err))
		return models.Ride{}, false
	}
	if role != models.RoleAdmin && !ride.IsParty(uid) {
		jsonio.Error(w, r, h.Log, apierr.Forbidden("not a party to this ride"))
		return models.Ride{}, false
	}
	return ride, true
}
