// internal/app/features/rides/events.go
package rides

import (
	"net/http"

	"github.com/arabeuna/aramove/internal/app/system/apierr"
	"github.com/arabeuna/aramove/internal/app/system/authz"
	"github.com/arabeuna/aramove/internal/app/system/jsonio"
	"go.uber.org/zap"
)

// ServeEvents handles GET /rides/{id}/events. After the party check the
// connection is upgraded to a websocket that receives one {type, ride}
// message per transition. Polling GET /rides/{id} stays authoritative.
func (h *Handler) ServeEvents(w http.ResponseWriter, r *http.Request) {
	ride, ok := h.loadForParty(w, r)
	if !ok {
		return
	}
	if h.Feed == nil {
		jsonio.Error(w, r, h.Log, apierr.NotFound("ride feed"))
		return
	}
	_, _, uid, _ := authz.UserCtx(r)

	// Serve writes its own response on a failed upgrade.
	if err := h.Feed.Serve(w, r, ride.ID, uid); err != nil {
		h.Log.Debug("ride feed upgrade failed",
			zap.String("ride_id", ride.ID.Hex()),
			zap.Error(err))
	}
}
