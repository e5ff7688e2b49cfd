// internal/app/features/users/list.go
package users

import (
	"context"
	"net/http"

	userstore "github.com/arabeuna/aramove/internal/app/store/users"
	"github.com/arabeuna/aramove/internal/app/system/apierr"
	"github.com/arabeuna/aramove/internal/app/system/jsonio"
	"github.com/arabeuna/aramove/internal/app/system/normalize"
	"github.com/arabeuna/aramove/internal/app/system/paging"
	"github.com/arabeuna/aramove/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
)

// ServeList handles GET /users?role=&q=&before=&limit= (admin only), newest first.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	role := query.Get(r, "role")
	if role != "" && !normalize.IsRole(role) {
		jsonio.Error(w, r, h.Log, apierr.Validation(map[string]string{"role": "unknown role"}))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Users.List(ctx, userstore.ListFilter{
		Role:   role,
		Query:  query.Get(r, "q"),
		Before: paging.BeforeID(r),
		Limit:  paging.ParseLimit(r, paging.DefaultLimit),
	})
	if err != nil {
		jsonio.Error(w, r, h.Log, apierr.Internal(err))
		return
	}
	jsonio.OK(w, list)
}
