// internal/app/features/admin/rides.go
package admin

import (
	"context"
	"errors"
	"net/http"

	ridestore "github.com/arabeuna/aramove/internal/app/store/rides"
	"github.com/arabeuna/aramove/internal/app/system/apierr"
	"github.com/arabeuna/aramove/internal/app/system/jsonio"
	"github.com/arabeuna/aramove/internal/app/system/paging"
	"github.com/arabeuna/aramove/internal/app/system/timeouts"
	"github.com/arabeuna/aramove/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RideRow is a ride with both parties' summaries attached.
type RideRow struct {
	models.Ride
	PassengerInfo *models.UserSummary `json:"passengerInfo,omitempty"`
	DriverInfo    *models.UserSummary `json:"driverInfo,omitempty"`
}

// ServeRides handles GET /admin/rides?status=&before=&limit=, newest first.
func (h *Handler) ServeRides(w http.ResponseWriter, r *http.Request) {
	f := ridestore.ListFilter{
		Before: paging.BeforeID(r),
		Limit:  paging.ParseLimit(r, paging.DefaultLimit),
	}
	if s := query.Get(r, "status"); s != "" {
		f.Status = models.RideStatus(s)
		if !f.Status.Valid() {
			jsonio.Error(w, r, h.Log, apierr.Validation(map[string]string{"status": "unknown ride status"}))
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Rides.ListAll(ctx, f)
	if err != nil {
		jsonio.Error(w, r, h.Log, apierr.Internal(err))
		return
	}

	ids := make([]primitive.ObjectID, 0, 2*len(list))
	for _, ride := range list {
		ids = append(ids, ride.Passenger)
		if ride.Driver != nil {
			ids = append(ids, *ride.Driver)
		}
	}
	sums, err := h.Users.Summaries(ctx, ids)
	if err != nil {
		jsonio.Error(w, r, h.Log, apierr.Internal(err))
		return
	}

	rows := make([]RideRow, 0, len(list))
	for _, ride := range list {
		row := RideRow{Ride: ride}
		if s, ok := sums[ride.Passenger]; ok {
			row.PassengerInfo = &s
		}
		if ride.Driver != nil {
			if s, ok := sums[*ride.Driver]; ok {
				row.DriverInfo = &s
			}
		}
		rows = append(rows, row)
	}
	jsonio.OK(w, rows)
}

// HandleDeleteRide handles DELETE /admin/rides/{id}.
func (h *Handler) HandleDeleteRide(w http.ResponseWriter, r *http.Request) {
	actor, id, err := target(r, "ride")
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	ride, err := h.Rides.GetByID(ctx, id)
	if err == nil {
		err = h.Rides.Delete(ctx, id)
	}
	if err != nil {
		if errors.Is(err, ridestore.ErrNotFound) {
			jsonio.Error(w, r, h.Log, apierr.NotFound("ride"))
			return
		}
		jsonio.Error(w, r, h.Log, apierr.Internal(err))
		return
	}
	h.AuditLog.RideDeleted(ctx, r, actor, ride)

	jsonio.OK(w, map[string]string{"message": "ride deleted"})
}
