// internal/app/features/admin/audit.go
package admin

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/arabeuna/aramove/internal/app/store/audit"
	"github.com/arabeuna/aramove/internal/app/system/apierr"
	"github.com/arabeuna/aramove/internal/app/system/jsonio"
	"github.com/arabeuna/aramove/internal/app/system/paging"
	"github.com/arabeuna/aramove/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FailedLoginWindow is how far back /admin/failed-logins looks by default.
const FailedLoginWindow = 24 * time.Hour

type auditPage struct {
	Events []audit.Event `json:"events"`
	Total  int64         `json:"total"`
}

// ServeAudit handles GET /admin/audit?category=&event=&user=&ride=&since=&limit=&offset=.
func (h *Handler) ServeAudit(w http.ResponseWriter, r *http.Request) {
	f := audit.QueryFilter{
		Category:  query.Get(r, "category"),
		EventType: query.Get(r, "event"),
		Limit:     int64(paging.ParseLimit(r, paging.DefaultLimit)),
	}
	bad := map[string]string{}
	if s := query.Get(r, "user"); s != "" {
		if id, err := primitive.ObjectIDFromHex(s); err == nil {
			f.UserID = &id
		} else {
			bad["user"] = "invalid id"
		}
	}
	if s := query.Get(r, "ride"); s != "" {
		if id, err := primitive.ObjectIDFromHex(s); err == nil {
			f.RideID = &id
		} else {
			bad["ride"] = "invalid id"
		}
	}
	if s := query.Get(r, "since"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			f.StartTime = &t
		} else {
			bad["since"] = "must be an RFC 3339 timestamp"
		}
	}
	if s := query.Get(r, "offset"); s != "" {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil && n >= 0 {
			f.Offset = n
		} else {
			bad["offset"] = "must be a non-negative integer"
		}
	}
	if len(bad) > 0 {
		jsonio.Error(w, r, h.Log, apierr.Validation(bad))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	events, err := h.Events.Query(ctx, f)
	if err != nil {
		jsonio.Error(w, r, h.Log, apierr.Internal(err))
		return
	}
	total, err := h.Events.CountByFilter(ctx, f)
	if err != nil {
		jsonio.Error(w, r, h.Log, apierr.Internal(err))
		return
	}
	jsonio.OK(w, auditPage{Events: events, Total: total})
}

// ServeFailedLogins handles GET /admin/failed-logins?since=&limit=.
func (h *Handler) ServeFailedLogins(w http.ResponseWriter, r *http.Request) {
	since := time.Now().UTC().Add(-FailedLoginWindow)
	if s := query.Get(r, "since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			jsonio.Error(w, r, h.Log, apierr.Validation(map[string]string{"since": "must be an RFC 3339 timestamp"}))
			return
		}
		since = t
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	events, err := h.Events.GetFailedLogins(ctx, since, int64(paging.ParseLimit(r, paging.DefaultLimit)))
	if err != nil {
		jsonio.Error(w, r, h.Log, apierr.Internal(err))
		return
	}
	jsonio.OK(w, events)
}
