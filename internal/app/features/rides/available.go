// internal/app/features/rides/available.go
package rides

import (
	"context"
	"errors"
	"net/http"

	"github.com/arabeuna/aramove/internal/app/store/queries/nearby"
	userstore "github.com/arabeuna/aramove/internal/app/store/users"
	"github.com/arabeuna/aramove/internal/app/system/apierr"
	"github.com/arabeuna/aramove/internal/app/system/authz"
	"github.com/arabeuna/aramove/internal/app/system/jsonio"
	"github.com/arabeuna/aramove/internal/app/system/paging"
	"github.com/arabeuna/aramove/internal/app/system/timeouts"
	"github.com/arabeuna/aramove/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ServeAvailable handles GET /rides/available: pending rides near the
// calling driver's stored location, nearest first.
//
// The driver is re-read from the database rather than the credential
// cache so a location update is visible immediately.
func (h *Handler) ServeAvailable(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		jsonio.Error(w, r, h.Log, apierr.Unauthorized(""))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	driver, err := h.Users.GetByID(ctx, uid)
	if errors.Is(err, userstore.ErrNotFound) {
		jsonio.Error(w, r, h.Log, apierr.Unauthorized("user no longer exists"))
		return
	}
	if err != nil {
		jsonio.Error(w, r, h.Log, apierr.Internal(err))
		return
	}

	if !driver.IsAvailable {
		jsonio.OK(w, []AvailableRide{})
		return
	}
	if h.RequireApproval && !driver.IsApproved {
		jsonio.Error(w, r, h.Log, apierr.Forbidden("driver has not been approved yet"))
		return
	}
	if !driver.HasLocation() {
		jsonio.Error(w, r, h.Log, apierr.LocationUnavailable())
		return
	}

	cands, err := nearby.Rides(ctx, h.DB, nearby.Query{
		Point:     *driver.Location,
		MaxMeters: h.SearchRadius,
		Limit:     paging.ParseLimit(r, h.NearbyLimit),
	})
	if err != nil {
		jsonio.Error(w, r, h.Log, apierr.Internal(err))
		return
	}

	ids := make([]primitive.ObjectID, 0, len(cands))
	for _, c := range cands {
		ids = append(ids, c.Passenger)
	}
	sums, err := h.Users.Summaries(ctx, ids)
	if err != nil {
		jsonio.Error(w, r, h.Log, apierr.Internal(err))
		return
	}

	out := make([]AvailableRide, 0, len(cands))
	for _, c := range cands {
		ar := AvailableRide{RideCandidate: c}
		if s, ok := sums[c.Passenger]; ok {
			ar.PassengerInfo = passengerContact(s)
		}
		out = append(out, ar)
	}
	jsonio.OK(w, out)
}

// passengerContact trims a summary to what a driver sees before accepting.
func passengerContact(s models.UserSummary) *models.UserSummary {
	return &models.UserSummary{ID: s.ID, Name: s.Name, Phone: s.Phone, Rating: s.Rating}
}
