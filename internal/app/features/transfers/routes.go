// internal/app/features/transfers/routes.go
package transfers

import (
	"github.com/dalemusser/equiphub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the custody transfer routes under whatever base path the
// caller chooses (typically "/transfers" from bootstrap).
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Post("/", h.ServeCreate)
		pr.Get("/{id}", h.ServeGet)

		pr.Post("/{id}/approve", h.ServeApprove)
		pr.Post("/{id}/reject", h.ServeReject)
		pr.Post("/{id}/revert", h.ServeRevert)
		pr.Post("/{id}/restore", h.ServeRestore)
	})

	return r
}
