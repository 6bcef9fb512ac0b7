// internal/app/features/transfers/handler.go
package transfers

// Terminology: Transfer vs Assignment
//   - Transfer: the operation a caller requests (assign or return an item)
//   - Assignment: the persisted record that tracks the transfer's approvals
//
// Every mutation goes through the workflow engine, which serializes commands
// per equipment item. Handlers only translate HTTP to engine calls.

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/equiphub/internal/app/system/apiutil"
	"github.com/dalemusser/equiphub/internal/app/system/auditlog"
	"github.com/dalemusser/equiphub/internal/app/system/authz"
	"github.com/dalemusser/equiphub/internal/app/system/timeouts"
	"github.com/dalemusser/equiphub/internal/app/workflow/transfer"
	"github.com/dalemusser/equiphub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the custody transfer endpoints.
type Handler struct {
	Engine *transfer.Engine
	Events *auditlog.Logger
	Log    *zap.Logger
}

// NewHandler creates a transfers handler.
func NewHandler(engine *transfer.Engine, events *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Engine: engine,
		Events: events,
		Log:    logger,
	}
}

// createRequest is the JSON body for opening a custody transfer.
type createRequest struct {
	Action           string `json:"action"`
	EquipmentID      string `json:"equipment_id"`
	UserID           string `json:"user_id"`
	ManagerID        string `json:"manager_id"`
	ValidationMethod string `json:"validation_method"`
}

// rejectRequest is the JSON body for rejecting a transfer.
type rejectRequest struct {
	Reason string `json:"reason"`
}

// transferResponse is the JSON shape for a transfer plus the equipment
// state it produced.
type transferResponse struct {
	Transfer  models.Assignment `json:"transfer"`
	Equipment *models.Equipment `json:"equipment,omitempty"`
}

func toResponse(res transfer.Result) transferResponse {
	return transferResponse{
		Transfer:  res.Assignment,
		Equipment: &res.Equipment,
	}
}

// ServeCreate handles POST /transfers. IT staff only.
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	if !authz.IsITStaff(r) {
		apiutil.WriteError(w, http.StatusForbidden, "forbidden", "IT staff access required")
		return
	}

	var req createRequest
	if err := apiutil.Decode(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	equipmentID, err := primitive.ObjectIDFromHex(req.EquipmentID)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid equipment_id")
		return
	}
	userID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid user_id")
		return
	}
	managerID, err := primitive.ObjectIDFromHex(req.ManagerID)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid manager_id")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "create transfer")
	defer cancel()

	res, err := h.Engine.Create(ctx, transfer.CreateParams{
		Action:           models.AssignmentAction(req.Action),
		EquipmentID:      equipmentID,
		UserID:           userID,
		ManagerID:        managerID,
		ValidationMethod: req.ValidationMethod,
	})
	if err != nil {
		apiutil.WriteWorkflowError(w, err)
		return
	}

	_, _, actorID, _ := authz.UserCtx(r)
	h.Events.TransferCreated(ctx, r, actorID, res.Assignment.ID, equipmentID, string(res.Assignment.Action))

	apiutil.WriteJSON(w, http.StatusCreated, toResponse(res))
}

// ServeGet handles GET /transfers/{id}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.transferID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	a, err := h.Engine.Get(ctx, id)
	if err != nil {
		apiutil.WriteWorkflowError(w, err)
		return
	}

	apiutil.WriteJSON(w, http.StatusOK, transferResponse{Transfer: a})
}

// ServeApprove handles POST /transfers/{id}/approve. The approving slot is
// resolved from the caller's role and relationship to the transfer.
func (h *Handler) ServeApprove(w http.ResponseWriter, r *http.Request) {
	id, ok := h.transferID(w, r)
	if !ok {
		return
	}

	role, _, callerID, ok := authz.UserCtx(r)
	if !ok {
		apiutil.WriteError(w, http.StatusUnauthorized, "unauthorized", "sign in required")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "approve transfer")
	defer cancel()

	a, err := h.Engine.Get(ctx, id)
	if err != nil {
		apiutil.WriteWorkflowError(w, err)
		return
	}

	actor, err := transfer.ResolveActor(a, callerID, role)
	if err != nil {
		apiutil.WriteWorkflowError(w, err)
		return
	}

	res, err := h.Engine.Approve(ctx, id, actor, callerID)
	if err != nil {
		apiutil.WriteWorkflowError(w, err)
		return
	}

	complete := res.Assignment.Status == models.AssignmentApproved
	h.Events.TransferApproved(ctx, r, callerID, id, res.Assignment.EquipmentID, string(actor), complete)

	apiutil.WriteJSON(w, http.StatusOK, toResponse(res))
}

// ServeReject handles POST /transfers/{id}/reject. Any of the three actors
// on the transfer can reject; a reason is required.
func (h *Handler) ServeReject(w http.ResponseWriter, r *http.Request) {
	id, ok := h.transferID(w, r)
	if !ok {
		return
	}

	role, _, callerID, ok := authz.UserCtx(r)
	if !ok {
		apiutil.WriteError(w, http.StatusUnauthorized, "unauthorized", "sign in required")
		return
	}

	var req rejectRequest
	if err := apiutil.Decode(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if req.Reason == "" {
		apiutil.WriteError(w, http.StatusBadRequest, "bad_request", "reason is required")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "reject transfer")
	defer cancel()

	a, err := h.Engine.Get(ctx, id)
	if err != nil {
		apiutil.WriteWorkflowError(w, err)
		return
	}

	// Rejecting is open to every participant, so resolution only gates
	// that the caller is one of them.
	if _, err := transfer.ResolveActor(a, callerID, role); err != nil {
		apiutil.WriteWorkflowError(w, err)
		return
	}

	res, err := h.Engine.Reject(ctx, id, req.Reason)
	if err != nil {
		apiutil.WriteWorkflowError(w, err)
		return
	}

	h.Events.TransferRejected(ctx, r, callerID, id, res.Assignment.EquipmentID, req.Reason)

	apiutil.WriteJSON(w, http.StatusOK, toResponse(res))
}

// ServeRevert handles POST /transfers/{id}/revert. The caller withdraws
// their own prior approval.
func (h *Handler) ServeRevert(w http.ResponseWriter, r *http.Request) {
	id, ok := h.transferID(w, r)
	if !ok {
		return
	}

	role, _, callerID, ok := authz.UserCtx(r)
	if !ok {
		apiutil.WriteError(w, http.StatusUnauthorized, "unauthorized", "sign in required")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "revert approval")
	defer cancel()

	a, err := h.Engine.Get(ctx, id)
	if err != nil {
		apiutil.WriteWorkflowError(w, err)
		return
	}

	actor, err := transfer.ResolveActor(a, callerID, role)
	if err != nil {
		apiutil.WriteWorkflowError(w, err)
		return
	}

	res, err := h.Engine.Revert(ctx, id, actor)
	if err != nil {
		apiutil.WriteWorkflowError(w, err)
		return
	}

	h.Events.TransferReverted(ctx, r, callerID, id, res.Assignment.EquipmentID, string(actor))

	apiutil.WriteJSON(w, http.StatusOK, toResponse(res))
}

// ServeRestore handles POST /transfers/{id}/restore. IT staff only; re-opens
// a rejected transfer with a cleared validation ledger.
func (h *Handler) ServeRestore(w http.ResponseWriter, r *http.Request) {
	if !authz.IsITStaff(r) {
		apiutil.WriteError(w, http.StatusForbidden, "forbidden", "IT staff access required")
		return
	}

	id, ok := h.transferID(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "restore transfer")
	defer cancel()

	res, err := h.Engine.RestoreRejected(ctx, id)
	if err != nil {
		apiutil.WriteWorkflowError(w, err)
		return
	}

	_, _, callerID, _ := authz.UserCtx(r)
	h.Events.TransferRestored(ctx, r, callerID, id, res.Assignment.EquipmentID)

	apiutil.WriteJSON(w, http.StatusOK, toResponse(res))
}

func (h *Handler) transferID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid transfer id")
		return primitive.NilObjectID, false
	}
	return id, true
}
