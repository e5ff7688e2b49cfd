// internal/app/features/ratings/routes.go
package ratings

import (
	"github.com/arabeuna/aramove/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the /ratings subrouter. Rating a ride lives under /rides;
// pass h.HandleRate to rides.Routes.
func Routes(h *Handler, am *auth.Manager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(am.Authenticate)
		pr.Get("/user/{userID}", h.ServeReceived)
	})
	return r
}
