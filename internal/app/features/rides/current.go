// internal/app/features/rides/current.go
package rides

import (
	"context"
	"net/http"

	ridestore "github.com/arabeuna/aramove/internal/app/store/rides"
	"github.com/arabeuna/aramove/internal/app/system/apierr"
	"github.com/arabeuna/aramove/internal/app/system/authz"
	"github.com/arabeuna/aramove/internal/app/system/jsonio"
	"github.com/arabeuna/aramove/internal/app/system/paging"
	"github.com/arabeuna/aramove/internal/app/system/timeouts"
	"github.com/arabeuna/aramove/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
)

// ServeCurrent handles GET /rides/current. It answers null when the caller
// has no active ride.
func (h *Handler) ServeCurrent(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		jsonio.Error(w, r, h.Log, apierr.Unauthorized(""))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	ride, found, err := h.Rides.Current(ctx, uid)
	if err != nil {
		jsonio.Error(w, r, h.Log, apierr.Internal(err))
		return
	}
	if !found {
		jsonio.OK(w, nil)
		return
	}
	v, err := h.view(ctx, ride)
	if err != nil {
		jsonio.Error(w, r, h.Log, apierr.Internal(err))
		return
	}
	jsonio.OK(w, v)
}

// ServeHistory handles GET /rides/history?status=&before=&limit=, newest
// first. The caller sees rides taken as passenger and driven as driver.
func (h *Handler) ServeHistory(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		jsonio.Error(w, r, h.Log, apierr.Unauthorized(""))
		return
	}

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

	list, err := h.Rides.History(ctx, uid, f)
	if err != nil {
		jsonio.Error(w, r, h.Log, apierr.Internal(err))
		return
	}
	views, err := h.views(ctx, list)
	if err != nil {
		jsonio.Error(w, r, h.Log, apierr.Internal(err))
		return
	}
	jsonio.OK(w, views)
}
