// internal/app/features/drivers/routes.go
package drivers

import (
	"github.com/arabeuna/aramove/internal/app/system/auth"
	"github.com/arabeuna/aramove/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes returns the /drivers subrouter.
func Routes(h *Handler, am *auth.Manager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(am.Authenticate)

		nearbyRoles := auth.RequireRole(models.RolePassenger, models.RoleAdmin)
		pr.With(nearbyRoles).Get("/nearby", h.ServeNearby)
		// Older passenger apps call this path.
		pr.With(nearbyRoles).Get("/available", h.ServeNearby)

		pr.Get("/{id}/location", h.ServeLocation)
	})
	return r
}
