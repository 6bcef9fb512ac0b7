// internal/app/features/equipment/routes.go
package equipment

import (
	"github.com/dalemusser/equiphub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the equipment registry routes under whatever base path the
// caller chooses (typically "/equipment" from bootstrap).
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/", h.ServeList)
		pr.Get("/{id}", h.ServeGet)

		// Registration is restricted to IT staff inside the handler.
		pr.Post("/", h.ServeRegister)
	})

	return r
}
