// internal/app/features/admin/routes.go
package admin

import (
	"github.com/arabeuna/aramove/internal/app/system/auth"
	"github.com/arabeuna/aramove/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes returns the /admin subrouter. Every route requires the admin role.
func Routes(h *Handler, am *auth.Manager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(am.Authenticate)
		pr.Use(auth.RequireRole(models.RoleAdmin))

		pr.Get("/pending-drivers", h.ServePending)
		pr.Post("/approve-driver/{id}", h.HandleApprove)
		pr.Post("/reject-driver/{id}", h.HandleReject)
		pr.Get("/stats", h.ServeStats)
		pr.Get("/rides", h.ServeRides)
		pr.Delete("/rides/{id}", h.HandleDeleteRide)
		pr.Get("/audit", h.ServeAudit)
		pr.Get("/failed-logins", h.ServeFailedLogins)
	})
	return r
}
