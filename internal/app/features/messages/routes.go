// internal/app/features/messages/routes.go
package messages

import (
	"github.com/arabeuna/aramove/internal/app/system/auth"
	"github.com/arabeuna/aramove/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes returns the /messages subrouter.
func Routes(h *Handler, am *auth.Manager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(am.Authenticate)

		// RIDE CHAT
		pr.Post("/", h.HandleLegacySend)
		pr.Get("/ride/{rideID}", h.ServeRideThread)
		pr.Post("/ride/{rideID}", h.HandleRideSend)
		pr.Patch("/read/{rideID}", h.HandleMarkRead)
		pr.Get("/unread", h.ServeUnread)

		// SUPPORT
		pr.Get("/support", h.ServeSupportThread)
		pr.Post("/support", h.HandleSupportSend)

		pr.Group(func(ar chi.Router) {
			ar.Use(auth.RequireRole(models.RoleAdmin))
			ar.Get("/support/conversations", h.ServeConversations)
			ar.Get("/support/user/{userID}", h.ServeUserThread)
			ar.Post("/support/reply", h.HandleSupportReply)
		})
	})
	return r
}
