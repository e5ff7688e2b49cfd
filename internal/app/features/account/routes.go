// internal/app/features/account/routes.go
package account

import "github.com/go-chi/chi/v5"

// Routes returns the /auth subrouter.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)

	r.Group(func(r chi.Router) {
		r.Use(h.Auth.Authenticate)
		r.Get("/profile", h.Profile)
		r.Post("/logout", h.Logout)
	})
	return r
}
