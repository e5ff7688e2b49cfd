// internal/app/features/ratings/received.go
package ratings

import (
	"context"
	"net/http"

	"github.com/arabeuna/aramove/internal/app/system/apierr"
	"github.com/arabeuna/aramove/internal/app/system/authz"
	"github.com/arabeuna/aramove/internal/app/system/jsonio"
	"github.com/arabeuna/aramove/internal/app/system/paging"
	"github.com/arabeuna/aramove/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ServeReceived handles GET /ratings/user/{userID}: the latest ratings a
// user received, newest first. "me" names the caller.
func (h *Handler) ServeReceived(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		jsonio.Error(w, r, h.Log, apierr.Unauthorized(""))
		return
	}
	target := uid
	if p := chi.URLParam(r, "userID"); p != "me" {
		oid, err := primitive.ObjectIDFromHex(p)
		if err != nil {
			jsonio.Error(w, r, h.Log, apierr.NotFound("user"))
			return
		}
		target = oid
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.Ratings.ForUser(ctx, target, paging.ParseLimit(r, paging.DefaultLimit))
	if err != nil {
		jsonio.Error(w, r, h.Log, apierr.Internal(err))
		return
	}
	jsonio.OK(w, list)
}
