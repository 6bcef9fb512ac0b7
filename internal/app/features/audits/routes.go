// internal/app/features/audits/routes.go
package audits

import (
	"github.com/dalemusser/equiphub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the audit session routes under whatever base path the
// caller chooses (typically "/audits" from bootstrap).
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		// Audits are run by IT staff.
		pr.Use(sm.RequireSignedIn)
		pr.Use(sm.RequireRole("admin", "it"))

		pr.Post("/", h.ServeStart)
		pr.Get("/{id}", h.ServeGet)
		pr.Get("/{id}/reconciliation", h.ServeReconciliation)

		pr.Post("/{id}/scan", h.ServeScan)
		pr.Post("/{id}/pause", h.ServePause)
		pr.Post("/{id}/resume", h.ServeResume)
		pr.Post("/{id}/complete", h.ServeComplete)
		pr.Post("/{id}/cancel", h.ServeCancel)
	})

	return r
}
