// internal/app/features/audits/handler.go
package audits

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/equiphub/internal/app/store/audit"
	"github.com/dalemusser/equiphub/internal/app/system/apiutil"
	"github.com/dalemusser/equiphub/internal/app/system/auditlog"
	"github.com/dalemusser/equiphub/internal/app/system/authz"
	"github.com/dalemusser/equiphub/internal/app/system/timeouts"
	auditflow "github.com/dalemusser/equiphub/internal/app/workflow/audit"
	"github.com/dalemusser/equiphub/internal/app/workflow/reconcile"
	"github.com/dalemusser/equiphub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the audit session endpoints.
type Handler struct {
	Engine   *auditflow.Engine
	Reporter *reconcile.Reporter
	Events   *auditlog.Logger
	Log      *zap.Logger
}

// NewHandler creates an audits handler.
func NewHandler(engine *auditflow.Engine, reporter *reconcile.Reporter, events *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Engine:   engine,
		Reporter: reporter,
		Events:   events,
		Log:      logger,
	}
}

// startRequest is the JSON body for starting an audit session.
type startRequest struct {
	DepartmentID string `json:"department_id"`
}

// scanRequest is the JSON body for scanning an item during an audit.
//
// The first scan of an item from another department returns
// "relocation_candidate" without touching anything. The operator then
// repeats the scan with Relocation set to "confirm" (plus the site the item
// was found at) or "decline" (optionally with a free-text note; the item's
// registered location is recorded from the registry).
type scanRequest struct {
	AssetTag     string `json:"asset_tag"`
	Relocation   string `json:"relocation,omitempty"`
	SiteID       string `json:"site_id,omitempty"`
	LocationNote string `json:"location_note,omitempty"`
}

// sessionResponse is the JSON shape for an audit session.
type sessionResponse struct {
	Session models.AuditSession `json:"session"`
	Resumed bool                `json:"resumed,omitempty"`
}

// scanResponse reports the outcome of one scan.
type scanResponse struct {
	Outcome   string              `json:"outcome"`
	Session   models.AuditSession `json:"session"`
	Equipment *models.Equipment   `json:"equipment,omitempty"`
}

func toScanResponse(res auditflow.ScanResult) scanResponse {
	resp := scanResponse{
		Outcome: string(res.Outcome),
		Session: res.Session,
	}
	if !res.Equipment.ID.IsZero() {
		resp.Equipment = &res.Equipment
	}
	return resp
}

// ServeStart handles POST /audits. Starting an audit for a department that
// already has an active session resumes that session instead.
func (h *Handler) ServeStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := apiutil.Decode(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	deptID, err := primitive.ObjectIDFromHex(req.DepartmentID)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid department_id")
		return
	}

	_, _, callerID, _ := authz.UserCtx(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "start audit session")
	defer cancel()

	sess, resumed, err := h.Engine.Start(ctx, deptID, callerID)
	if err != nil {
		apiutil.WriteWorkflowError(w, err)
		return
	}

	eventType := audit.EventAuditStarted
	status := http.StatusCreated
	if resumed {
		eventType = audit.EventAuditResumed
		status = http.StatusOK
	}
	h.Events.SessionEvent(ctx, r, eventType, callerID, sess.ID, deptID)

	apiutil.WriteJSON(w, status, sessionResponse{Session: sess, Resumed: resumed})
}

// ServeGet handles GET /audits/{id}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sess, err := h.Engine.Get(ctx, id)
	if err != nil {
		apiutil.WriteWorkflowError(w, err)
		return
	}

	apiutil.WriteJSON(w, http.StatusOK, sessionResponse{Session: sess})
}

// ServeScan handles POST /audits/{id}/scan.
func (h *Handler) ServeScan(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	var req scanRequest
	if err := apiutil.Decode(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	req.AssetTag = strings.TrimSpace(req.AssetTag)
	if req.AssetTag == "" {
		apiutil.WriteError(w, http.StatusBadRequest, "bad_request", "asset_tag is required")
		return
	}

	_, _, callerID, _ := authz.UserCtx(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "audit scan")
	defer cancel()

	var (
		res auditflow.ScanResult
		err error
	)
	switch req.Relocation {
	case "":
		res, err = h.Engine.Scan(ctx, id, req.AssetTag)
	case "confirm":
		siteID, idErr := primitive.ObjectIDFromHex(req.SiteID)
		if idErr != nil {
			apiutil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid site_id")
			return
		}
		res, err = h.Engine.ConfirmRelocation(ctx, id, req.AssetTag, siteID)
	case "decline":
		res, err = h.Engine.DeclineRelocation(ctx, id, req.AssetTag, req.LocationNote)
	default:
		apiutil.WriteError(w, http.StatusBadRequest, "bad_request", "relocation must be confirm or decline")
		return
	}
	if err != nil {
		apiutil.WriteWorkflowError(w, err)
		return
	}

	switch res.Outcome {
	case auditflow.ScanRelocated:
		from := ""
		if res.PreviousDepartmentID != nil {
			from = res.PreviousDepartmentID.Hex()
		}
		h.Events.EquipmentRelocated(ctx, r, callerID, id, res.Equipment.ID, from)
	case auditflow.ScanUnexpected:
		original := ""
		if res.Equipment.DepartmentID != nil {
			original = res.Equipment.DepartmentID.Hex()
		}
		h.Events.UnexpectedItem(ctx, r, callerID, id, req.AssetTag, original)
	}

	apiutil.WriteJSON(w, http.StatusOK, toScanResponse(res))
}

// ServePause handles POST /audits/{id}/pause.
func (h *Handler) ServePause(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Engine.Pause, audit.EventAuditPaused)
}

// ServeResume handles POST /audits/{id}/resume.
func (h *Handler) ServeResume(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Engine.Resume, audit.EventAuditResumed)
}

// ServeComplete handles POST /audits/{id}/complete.
func (h *Handler) ServeComplete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Engine.Complete, audit.EventAuditCompleted)
}

// ServeCancel handles POST /audits/{id}/cancel. Cancelling deletes the
// session record outright.
func (h *Handler) ServeCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "cancel audit session")
	defer cancel()

	sess, err := h.Engine.Get(ctx, id)
	if err != nil {
		apiutil.WriteWorkflowError(w, err)
		return
	}

	if err := h.Engine.Cancel(ctx, id); err != nil {
		apiutil.WriteWorkflowError(w, err)
		return
	}

	_, _, callerID, _ := authz.UserCtx(r)
	h.Events.SessionEvent(ctx, r, audit.EventAuditCancelled, callerID, id, sess.DepartmentID)

	w.WriteHeader(http.StatusNoContent)
}

// ServeReconciliation handles GET /audits/{id}/reconciliation.
func (h *Handler) ServeReconciliation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	sess, err := h.Engine.Get(ctx, id)
	if err != nil {
		apiutil.WriteWorkflowError(w, err)
		return
	}

	report, err := h.Reporter.Report(ctx, sess)
	if err != nil {
		h.Log.Error("audits: reconciliation failed", zap.Error(err), zap.String("session_id", id.Hex()))
		apiutil.WriteWorkflowError(w, err)
		return
	}

	apiutil.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id primitive.ObjectID) (models.AuditSession, error), eventType string) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, eventType)
	defer cancel()

	sess, err := op(ctx, id)
	if err != nil {
		apiutil.WriteWorkflowError(w, err)
		return
	}

	_, _, callerID, _ := authz.UserCtx(r)
	h.Events.SessionEvent(ctx, r, eventType, callerID, sess.ID, sess.DepartmentID)

	apiutil.WriteJSON(w, http.StatusOK, sessionResponse{Session: sess})
}

func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid session id")
		return primitive.NilObjectID, false
	}
	return id, true
}
