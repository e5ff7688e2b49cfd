// internal/app/features/ratings/rate.go
package ratings

import (
	"context"
	"errors"
	"net/http"

	ratingstore "github.com/arabeuna/aramove/internal/app/store/ratings"
	ridestore "github.com/arabeuna/aramove/internal/app/store/rides"
	"github.com/arabeuna/aramove/internal/app/system/apierr"
	"github.com/arabeuna/aramove/internal/app/system/authz"
	"github.com/arabeuna/aramove/internal/app/system/htmlsanitize"
	"github.com/arabeuna/aramove/internal/app/system/inputval"
	"github.com/arabeuna/aramove/internal/app/system/jsonio"
	"github.com/arabeuna/aramove/internal/app/system/timeouts"
	"github.com/arabeuna/aramove/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type rateInput struct {
	Stars   int      `json:"stars" validate:"required,min=1,max=5" label:"Stars"`
	Comment string   `json:"comment" validate:"max=500" label:"Comment"`
	Tags    []string `json:"tags" validate:"max=7,dive,ratingtag" label:"Tags"`
}

// HandleRate handles POST /rides/{id}/rate. Either party of a completed
// ride rates the other once.
func (h *Handler) HandleRate(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		jsonio.Error(w, r, h.Log, apierr.Unauthorized(""))
		return
	}
	rideID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		jsonio.Error(w, r, h.Log, apierr.NotFound("ride"))
		return
	}

	var in rateInput
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

	ride, err := h.Rides.GetByID(ctx, rideID)
	if errors.Is(err, ridestore.ErrNotFound) {
		jsonio.Error(w, r, h.Log, apierr.NotFound("ride"))
		return
	}
	if err != nil {
		jsonio.Error(w, r, h.Log, apierr.Internal(err))
		return
	}
	if !ride.IsParty(uid) {
		jsonio.Error(w, r, h.Log, apierr.Forbidden("not a party to this ride"))
		return
	}
	if ride.Status != models.RideStatusCompleted {
		jsonio.Error(w, r, h.Log, apierr.Conflict("only completed rides can be rated", nil))
		return
	}
	rated, ok := ride.Counterpart(uid)
	if !ok {
		jsonio.Error(w, r, h.Log, apierr.Conflict("ride has no counterpart to rate", nil))
		return
	}

	tags := make([]models.RatingTag, 0, len(in.Tags))
	for _, t := range in.Tags {
		tags = append(tags, models.RatingTag(t))
	}
	rating, err := h.Ratings.Create(ctx, models.Rating{
		Ride:    ride.ID,
		From:    uid,
		To:      rated,
		Stars:   in.Stars,
		Comment: htmlsanitize.PlainText(in.Comment),
		Tags:    tags,
	})
	if errors.Is(err, ratingstore.ErrDuplicateRating) {
		jsonio.Error(w, r, h.Log, apierr.Conflict(err.Error(), err))
		return
	}
	if err != nil {
		jsonio.Error(w, r, h.Log, apierr.Internal(err))
		return
	}

	// The rating is stored; a failed recompute is corrected by the next one.
	if avg, n, err := h.Ratings.AverageFor(ctx, rated); err != nil {
		h.Log.Warn("rating average", zap.String("user_id", rated.Hex()), zap.Error(err))
	} else if err := h.Users.SetRating(ctx, rated, avg, n); err != nil {
		h.Log.Warn("rating update", zap.String("user_id", rated.Hex()), zap.Error(err))
	}
	h.AuditLog.RideRated(ctx, uid, ride.ID, rated, in.Stars)

	jsonio.Created(w, rating)
}
