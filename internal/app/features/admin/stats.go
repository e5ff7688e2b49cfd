// internal/app/features/admin/stats.go
package admin

import (
	"context"
	"net/http"

	metricsstore "github.com/arabeuna/aramove/internal/app/store/metrics"
	"github.com/arabeuna/aramove/internal/app/system/jsonio"
	"github.com/arabeuna/aramove/internal/app/system/timeouts"
)

type statsView struct {
	ActiveDrivers   int64            `json:"activeDrivers"`
	OnlineDrivers   int64            `json:"onlineDrivers"`
	PendingDrivers  int64            `json:"pendingDrivers"`
	TotalPassengers int64            `json:"totalPassengers"`
	Admins          int64            `json:"admins"`
	TotalRides      int64            `json:"totalRides"`
	RidesByStatus   map[string]int64 `json:"ridesByStatus"`
}

// ServeStats handles GET /admin/stats. Counters that fail to load read 0.
func (h *Handler) ServeStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	c := metricsstore.FetchAdminStats(ctx, h.DB)
	v := statsView{
		ActiveDrivers:   c.ActiveDrivers,
		OnlineDrivers:   c.OnlineDrivers,
		PendingDrivers:  c.PendingDrivers,
		TotalPassengers: c.Passengers,
		Admins:          c.Admins,
		TotalRides:      c.TotalRides,
		RidesByStatus:   make(map[string]int64, len(c.RidesByStatus)),
	}
	for st, n := range c.RidesByStatus {
		v.RidesByStatus[string(st)] = n
	}
	jsonio.OK(w, v)
}
