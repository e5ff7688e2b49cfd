// internal/app/features/drivers/location.go
package drivers

import (
	"context"
	"errors"
	"net/http"

	userstore "github.com/arabeuna/aramove/internal/app/store/users"
	"github.com/arabeuna/aramove/internal/app/system/apierr"
	"github.com/arabeuna/aramove/internal/app/system/authz"
	"github.com/arabeuna/aramove/internal/app/system/jsonio"
	"github.com/arabeuna/aramove/internal/app/system/timeouts"
	"github.com/arabeuna/aramove/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// locationView keeps the lat/lng shape passenger apps poll for.
type locationView struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ServeLocation handles GET /drivers/{id}/location. Only a passenger
// sharing an accepted or in-progress ride with the driver, or an admin,
// may see it.
func (h *Handler) ServeLocation(w http.ResponseWriter, r *http.Request) {
	role, _, uid, ok := authz.UserCtx(r)
	if !ok {
		jsonio.Error(w, r, h.Log, apierr.Unauthorized(""))
		return
	}
	driverID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		jsonio.Error(w, r, h.Log, apierr.NotFound("driver"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if role != models.RoleAdmin && uid != driverID {
		shared, err := h.Rides.HasActiveWith(ctx, uid, driverID)
		if err != nil {
			jsonio.Error(w, r, h.Log, apierr.Internal(err))
			return
		}
		if !shared {
			jsonio.Error(w, r, h.Log, apierr.Forbidden("no active ride with this driver"))
			return
		}
	}

	d, err := h.Users.GetByID(ctx, driverID)
	if errors.Is(err, userstore.ErrNotFound) || (err == nil && !d.IsDriver()) {
		jsonio.Error(w, r, h.Log, apierr.NotFound("driver"))
		return
	}
	if err != nil {
		jsonio.Error(w, r, h.Log, apierr.Internal(err))
		return
	}
	if !d.HasLocation() {
		jsonio.Error(w, r, h.Log, apierr.LocationUnavailable())
		return
	}
	jsonio.OK(w, map[string]any{
		"location": locationView{Lat: d.Location.Lat(), Lng: d.Location.Lng()},
	})
}
