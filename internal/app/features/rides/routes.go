// internal/app/features/rides/routes.go
package rides

import (
	"net/http"

	"github.com/arabeuna/aramove/internal/app/system/auth"
	"github.com/arabeuna/aramove/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes returns the /rides subrouter. rate serves POST /rides/{id}/rate
// and may be nil.
func Routes(h *Handler, am *auth.Manager, rate http.Handler) chi.Router {
	r := chi.NewRouter()

	// Everything under /rides requires authentication
	r.Group(func(pr chi.Router) {
		pr.Use(am.Authenticate)

		// REQUEST (passengers; the manager enforces the role)
		pr.Post("/", h.HandleRequest)
		pr.Post("/request", h.HandleRequest)

		// MATCHING
		pr.With(auth.RequireRole(models.RoleDriver)).Get("/available", h.ServeAvailable)

		// READS
		pr.Get("/current", h.ServeCurrent)
		pr.Get("/history", h.ServeHistory)
		pr.Get("/{id}", h.ServeRide)
		pr.Get("/{id}/events", h.ServeEvents)

		// TRANSITIONS
		pr.Put("/{id}/accept", h.HandleAccept)
		pr.Post("/{id}/accept", h.HandleAccept)
		pr.Post("/{id}/start", h.HandleStart)
		pr.Post("/{id}/complete", h.HandleComplete)
		pr.Post("/{id}/cancel", h.HandleCancel)

		// Older clients put the action before the id.
		pr.Get("/status/{id}", h.ServeRide)
		pr.Post("/accept/{id}", h.HandleAccept)
		pr.Post("/start/{id}", h.HandleStart)
		pr.Post("/complete/{id}", h.HandleComplete)
		pr.Post("/cancel/{id}", h.HandleCancel)

		if rate != nil {
			pr.Method(http.MethodPost, "/{id}/rate", rate)
		}
	})
	return r
}
