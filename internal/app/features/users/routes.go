// internal/app/features/users/routes.go
package users

import (
	"github.com/arabeuna/aramove/internal/app/system/auth"
	"github.com/arabeuna/aramove/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes returns the /users subrouter.
func Routes(h *Handler, am *auth.Manager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(am.Authenticate)

		pr.Get("/me", h.ServeMe)
		pr.Patch("/location", h.HandleLocation)
		pr.With(auth.RequireRole(models.RoleDriver)).Patch("/availability", h.HandleAvailability)
		pr.With(auth.RequireRole(models.RoleAdmin)).Get("/", h.ServeList)
	})
	return r
}
