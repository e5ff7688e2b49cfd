// internal/app/features/drivers/nearby.go
package drivers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/arabeuna/aramove/internal/app/store/queries/nearby"
	userstore "github.com/arabeuna/aramove/internal/app/store/users"
	"github.com/arabeuna/aramove/internal/app/system/apierr"
	"github.com/arabeuna/aramove/internal/app/system/authz"
	"github.com/arabeuna/aramove/internal/app/system/jsonio"
	"github.com/arabeuna/aramove/internal/app/system/paging"
	"github.com/arabeuna/aramove/internal/app/system/timeouts"
	"github.com/arabeuna/aramove/internal/domain/geo"
	"github.com/arabeuna/aramove/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ServeNearby handles GET /drivers/nearby?lng=&lat=&limit=: available
// drivers closest to the point, nearest first. Without lng/lat the
// caller's stored location is used.
func (h *Handler) ServeNearby(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		jsonio.Error(w, r, h.Log, apierr.Unauthorized(""))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	point, err := h.queryPoint(ctx, r, uid)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}

	list, err := nearby.Drivers(ctx, h.DB, nearby.Query{
		Point:     point,
		MaxMeters: h.SearchRadius,
		Limit:     paging.ParseLimit(r, h.NearbyLimit),
	}, h.RequireApproval)
	if err != nil {
		jsonio.Error(w, r, h.Log, apierr.Internal(err))
		return
	}
	jsonio.OK(w, list)
}

func (h *Handler) queryPoint(ctx context.Context, r *http.Request, uid primitive.ObjectID) (models.GeoPoint, error) {
	lngS, latS := query.Get(r, "lng"), query.Get(r, "lat")
	if lngS == "" && latS == "" {
		u, err := h.Users.GetByID(ctx, uid)
		if err != nil && !errors.Is(err, userstore.ErrNotFound) {
			return models.GeoPoint{}, apierr.Internal(err)
		}
		if err != nil || !u.HasLocation() {
			return models.GeoPoint{}, apierr.Validation(map[string]string{"lng": "lng and lat are required"})
		}
		return *u.Location, nil
	}

	lng, err1 := strconv.ParseFloat(lngS, 64)
	lat, err2 := strconv.ParseFloat(latS, 64)
	if err1 != nil || err2 != nil || !geo.ValidLngLat(lng, lat) {
		return models.GeoPoint{}, apierr.Validation(map[string]string{"lng": geo.ErrInvalidPoint.Error()})
	}
	return geo.Point(lng, lat), nil
}
