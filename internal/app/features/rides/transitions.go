// internal/app/features/rides/transitions.go
package rides

import (
	"context"
	"net/http"

	"github.com/arabeuna/aramove/internal/app/system/apierr"
	"github.com/arabeuna/aramove/internal/app/system/inputval"
	"github.com/arabeuna/aramove/internal/app/system/jsonio"
	"github.com/arabeuna/aramove/internal/app/system/lifecycle"
	"github.com/arabeuna/aramove/internal/app/system/timeouts"
	"github.com/arabeuna/aramove/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type transitionFunc func(context.Context, lifecycle.Actor, primitive.ObjectID) (models.Ride, error)

// transition runs one lifecycle step for the caller and writes the
// resulting ride with its party summaries.
func (h *Handler) transition(w http.ResponseWriter, r *http.Request, step transitionFunc) {
	a, ok := actor(r)
	if !ok {
		jsonio.Error(w, r, h.Log, apierr.Unauthorized(""))
		return
	}
	id, err := rideID(r)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	ride, err := step(ctx, a, id)
	if err != nil {
		jsonio.Error(w, r, h.Log, lifecycleErr(err))
		return
	}
	v, err := h.view(ctx, ride)
	if err != nil {
		// The transition already happened; answer with the bare ride.
		h.Log.Warn("ride summaries", zap.String("ride_id", ride.ID.Hex()), zap.Error(err))
		jsonio.OK(w, RideView{Ride: ride})
		return
	}
	jsonio.OK(w, v)
}

// HandleAccept handles PUT and POST /rides/{id}/accept. The driver is
// always the caller; a driverId in the body must name the caller.
func (h *Handler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	var in acceptInput
	present, err := jsonio.DecodeOptional(w, r, &in)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	if present {
		if err := inputval.Check(in); err != nil {
			jsonio.Error(w, r, h.Log, err)
			return
		}
		if a, ok := actor(r); ok && in.DriverID != "" && in.DriverID != a.ID.Hex() {
			jsonio.Error(w, r, h.Log, apierr.Forbidden("drivers can only accept rides for themselves"))
			return
		}
	}
	h.transition(w, r, h.Lifecycle.Accept)
}

// HandleStart handles POST /rides/{id}/start.
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Lifecycle.Start)
}

// HandleComplete handles POST /rides/{id}/complete.
func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Lifecycle.Complete)
}

// HandleCancel handles POST /rides/{id}/cancel.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Lifecycle.Cancel)
}
