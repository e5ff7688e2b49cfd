// internal/app/features/messages/ridechat.go
package messages

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
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type legacySendInput struct {
	RideID  string `json:"rideId"`
	Content string `json:"content"`
}

// loadRide fetches a ride and checks the caller's access. Admins may read
// any ride's chat but only parties may write to it.
func (h *Handler) loadRide(ctx context.Context, r *http.Request, rawID string, write bool) (models.Ride, primitive.ObjectID, error) {
	role, _, uid, ok := authz.UserCtx(r)
	if !ok {
		return models.Ride{}, uid, apierr.Unauthorized("")
	}
	id, err := primitive.ObjectIDFromHex(rawID)
	if err != nil {
		return models.Ride{}, uid, apierr.NotFound("ride")
	}
	ride, err := h.Rides.GetByID(ctx, id)
	if errors.Is(err, ridestore.ErrNotFound) {
		return models.Ride{}, uid, apierr.NotFound("ride")
	}
	if err != nil {
		return models.Ride{}, uid, apierr.Internal(err)
	}
	if !ride.IsParty(uid) && (write || role != models.RoleAdmin) {
		return models.Ride{}, uid, apierr.Forbidden("not a party to this ride")
	}
	return ride, uid, nil
}

// ServeRideThread handles GET /messages/ride/{rideID}, oldest first.
func (h *Handler) ServeRideThread(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	ride, _, err := h.loadRide(ctx, r, chi.URLParam(r, "rideID"), false)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	msgs, err := h.Messages.ForRide(ctx, ride.ID)
	if err != nil {
		jsonio.Error(w, r, h.Log, apierr.Internal(err))
		return
	}
	views, err := h.views(ctx, msgs)
	if err != nil {
		jsonio.Error(w, r, h.Log, apierr.Internal(err))
		return
	}
	jsonio.OK(w, views)
}

// HandleRideSend handles POST /messages/ride/{rideID}. The receiver is the
// other party of the ride.
func (h *Handler) HandleRideSend(w http.ResponseWriter, r *http.Request) {
	var in contentInput
	if err := jsonio.Decode(w, r, &in); err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	h.send(w, r, chi.URLParam(r, "rideID"), in.Content)
}

// HandleLegacySend handles POST /messages with {rideId, content}.
func (h *Handler) HandleLegacySend(w http.ResponseWriter, r *http.Request) {
	var in legacySendInput
	if err := jsonio.Decode(w, r, &in); err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	h.send(w, r, in.RideID, in.Content)
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request, rawRideID, rawContent string) {
	content, err := cleanContent(rawContent)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	ride, uid, err := h.loadRide(ctx, r, rawRideID, true)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	receiver, ok := ride.Counterpart(uid)
	if !ok {
		jsonio.Error(w, r, h.Log, apierr.Conflict("no driver has accepted this ride yet", nil))
		return
	}

	rideID := ride.ID
	msg, err := h.Messages.Create(ctx, models.Message{
		Ride:     &rideID,
		Sender:   uid,
		Receiver: receiver,
		Content:  content,
	})
	if err != nil {
		jsonio.Error(w, r, h.Log, apierr.Internal(err))
		return
	}
	h.created(ctx, w, r, msg)
}

// created writes a new message with names attached, falling back to the
// bare message when the lookup fails.
func (h *Handler) created(ctx context.Context, w http.ResponseWriter, r *http.Request, msg models.Message) {
	v, err := h.view(ctx, msg)
	if err != nil {
		v = MessageView{Message: msg}
	}
	jsonio.Created(w, v)
}

// HandleMarkRead handles PATCH /messages/read/{rideID}: marks the ride's
// messages addressed to the caller as read.
func (h *Handler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	ride, uid, err := h.loadRide(ctx, r, chi.URLParam(r, "rideID"), false)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	n, err := h.Messages.MarkRideRead(ctx, ride.ID, uid)
	if err != nil {
		jsonio.Error(w, r, h.Log, apierr.Internal(err))
		return
	}
	jsonio.OK(w, map[string]any{"message": "messages marked as read", "updated": n})
}

// ServeUnread handles GET /messages/unread, newest first.
func (h *Handler) ServeUnread(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		jsonio.Error(w, r, h.Log, apierr.Unauthorized(""))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	msgs, err := h.Messages.Unread(ctx, uid, 0)
	if err != nil {
		jsonio.Error(w, r, h.Log, apierr.Internal(err))
		return
	}
	views, err := h.views(ctx, msgs)
	if err != nil {
		jsonio.Error(w, r, h.Log, apierr.Internal(err))
		return
	}
	jsonio.OK(w, views)
}
