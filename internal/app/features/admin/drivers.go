// internal/app/features/admin/drivers.go
package admin

import (
	"context"
	"errors"
	"net/http"

	userstore "github.com/arabeuna/aramove/internal/app/store/users"
	"github.com/arabeuna/aramove/internal/app/system/apierr"
	"github.com/arabeuna/aramove/internal/app/system/jsonio"
	"github.com/arabeuna/aramove/internal/app/system/paging"
	"github.com/arabeuna/aramove/internal/app/system/timeouts"
	"github.com/arabeuna/aramove/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ServePending handles GET /admin/pending-drivers?after=&before=, ordered
// by name.
func (h *Handler) ServePending(w http.ResponseWriter, r *http.Request) {
	before, after := query.Get(r, "before"), query.Get(r, "after")
	cfg := paging.ConfigureKeyset(before, after)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	drivers, err := h.Users.ListPendingDrivers(ctx, cfg, PendingPageSize)
	if err != nil {
		jsonio.Error(w, r, h.Log, apierr.Internal(err))
		return
	}

	// Reverse if paging backwards
	if cfg.Direction == paging.Backward {
		paging.Reverse(drivers)
	}
	res := paging.TrimPage(&drivers, before, after, PendingPageSize)

	page := paging.Page[models.User]{
		Items:   drivers,
		HasPrev: res.HasPrev,
		HasNext: res.HasNext,
	}
	page.Prev, page.Next = paging.BuildCursors(drivers,
		func(u models.User) string { return u.NameCI },
		func(u models.User) primitive.ObjectID { return u.ID },
	)
	if !page.HasPrev {
		page.Prev = ""
	}
	if !page.HasNext {
		page.Next = ""
	}
	jsonio.OK(w, page)
}

// HandleApprove handles POST /admin/approve-driver/{id} and returns the
// approved driver.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	actor, id, err := target(r, "driver")
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Users.Approve(ctx, id); err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			jsonio.Error(w, r, h.Log, apierr.NotFound("driver"))
			return
		}
		jsonio.Error(w, r, h.Log, apierr.Internal(err))
		return
	}
	h.invalidate(id)
	h.AuditLog.DriverApproved(ctx, r, actor, id)

	driver, err := h.Users.GetByID(ctx, id)
	if err != nil {
		jsonio.Error(w, r, h.Log, apierr.Internal(err))
		return
	}
	h.Log.Info("driver approved", zap.String("driver_id", id.Hex()), zap.String("actor_id", actor.Hex()))
	jsonio.OK(w, driver)
}

// HandleReject handles POST /admin/reject-driver/{id}. Only drivers still
// awaiting approval can be rejected; the account is deleted.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	actor, id, err := target(r, "driver")
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	driver, err := h.Users.GetByID(ctx, id)
	if err == nil {
		err = h.Users.DeletePendingDriver(ctx, id)
	}
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			jsonio.Error(w, r, h.Log, apierr.NotFound("pending driver"))
			return
		}
		jsonio.Error(w, r, h.Log, apierr.Internal(err))
		return
	}
	h.invalidate(id)
	h.AuditLog.DriverRejected(ctx, r, actor, id, driver.Email)

	jsonio.OK(w, map[string]string{"message": "driver rejected"})
}
