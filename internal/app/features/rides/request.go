// internal/app/features/rides/request.go
package rides

import (
	"context"
	"net/http"

	"github.com/arabeuna/aramove/internal/app/system/apierr"
	"github.com/arabeuna/aramove/internal/app/system/inputval"
	"github.com/arabeuna/aramove/internal/app/system/jsonio"
	"github.com/arabeuna/aramove/internal/app/system/lifecycle"
	"github.com/arabeuna/aramove/internal/app/system/timeouts"
)

// HandleRequest handles POST /rides and POST /rides/request.
func (h *Handler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(r)
	if !ok {
		jsonio.Error(w, r, h.Log, apierr.Unauthorized(""))
		return
	}

	var in requestInput
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

	ride, err := h.Lifecycle.Request(ctx, a, lifecycle.RideRequest{
		Origin:        in.Origin.place(),
		Destination:   in.Destination.place(),
		Price:         in.Price,
		Distance:      in.Distance,
		Duration:      in.Duration,
		PaymentMethod: in.PaymentMethod,
	})
	if err != nil {
		jsonio.Error(w, r, h.Log, lifecycleErr(err))
		return
	}
	jsonio.Created(w, ride)
}
