// internal/app/features/equipment/handler.go
package equipment

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/equiphub/internal/app/store/departments"
	"github.com/dalemusser/equiphub/internal/app/store/equipment"
	"github.com/dalemusser/equiphub/internal/app/store/sites"
	"github.com/dalemusser/equiphub/internal/app/system/apiutil"
	"github.com/dalemusser/equiphub/internal/app/system/auditlog"
	"github.com/dalemusser/equiphub/internal/app/system/authz"
	"github.com/dalemusser/equiphub/internal/app/system/timeouts"
	"github.com/dalemusser/equiphub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the equipment registry endpoints.
type Handler struct {
	Equipment   *equipmentstore.Store
	Sites       *sitestore.Store
	Departments *departmentstore.Store
	Events      *auditlog.Logger
	Log         *zap.Logger
}

// NewHandler creates an equipment handler.
func NewHandler(equipment *equipmentstore.Store, sites *sitestore.Store, departments *departmentstore.Store, events *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Equipment:   equipment,
		Sites:       sites,
		Departments: departments,
		Events:      events,
		Log:         logger,
	}
}

// registerRequest is the JSON body for registering equipment.
type registerRequest struct {
	AssetTag     string `json:"asset_tag"`
	Name         string `json:"name"`
	Model        string `json:"model"`
	SiteID       string `json:"site_id"`
	DepartmentID string `json:"department_id"`
}

// equipmentResponse is the JSON shape for a single equipment record.
type equipmentResponse struct {
	ID                  string  `json:"id"`
	AssetTag            string  `json:"asset_tag"`
	Name                string  `json:"name"`
	Model               string  `json:"model"`
	Status              string  `json:"status"`
	SiteID              *string `json:"site_id,omitempty"`
	DepartmentID        *string `json:"department_id,omitempty"`
	HolderUserID        *string `json:"holder_user_id,omitempty"`
	PendingAssignmentID *string `json:"pending_assignment_id,omitempty"`
}

func toResponse(e models.Equipment) equipmentResponse {
	resp := equipmentResponse{
		ID:       e.ID.Hex(),
		AssetTag: e.AssetTag,
		Name:     e.Name,
		Model:    e.Model,
		Status:   string(e.Status),
	}
	resp.SiteID = hexPtr(e.SiteID)
	resp.DepartmentID = hexPtr(e.DepartmentID)
	resp.HolderUserID = hexPtr(e.HolderUserID)
	resp.PendingAssignmentID = hexPtr(e.PendingAssignmentID)
	return resp
}

func hexPtr(id *primitive.ObjectID) *string {
	if id == nil {
		return nil
	}
	s := id.Hex()
	return &s
}

// ServeRegister handles POST /equipment. IT staff only.
func (h *Handler) ServeRegister(w http.ResponseWriter, r *http.Request) {
	if !authz.IsITStaff(r) {
		apiutil.WriteError(w, http.StatusForbidden, "forbidden", "IT staff access required")
		return
	}

	var req registerRequest
	if err := apiutil.Decode(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Model = strings.TrimSpace(req.Model)
	if req.Name == "" {
		apiutil.WriteError(w, http.StatusBadRequest, "bad_request", "name is required")
		return
	}

	tag := strings.TrimSpace(req.AssetTag)
	if tag == "" {
		tag = "EQ-" + uuid.NewString()
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	e := models.Equipment{
		AssetTag: tag,
		Name:     req.Name,
		Model:    req.Model,
	}
	if req.SiteID != "" {
		siteID, err := primitive.ObjectIDFromHex(req.SiteID)
		if err != nil {
			apiutil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid site_id")
			return
		}
		if _, err := h.Sites.GetByID(ctx, siteID); err != nil {
			apiutil.WriteWorkflowError(w, err)
			return
		}
		e.SiteID = &siteID
	}
	if req.DepartmentID != "" {
		deptID, err := primitive.ObjectIDFromHex(req.DepartmentID)
		if err != nil {
			apiutil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid department_id")
			return
		}
		if _, err := h.Departments.GetByID(ctx, deptID); err != nil {
			apiutil.WriteWorkflowError(w, err)
			return
		}
		e.DepartmentID = &deptID
	}

	created, err := h.Equipment.Create(ctx, e)
	if err != nil {
		h.Log.Error("equipment: create failed", zap.Error(err))
		apiutil.WriteWorkflowError(w, err)
		return
	}

	_, _, actorID, _ := authz.UserCtx(r)
	h.Events.EquipmentRegistered(ctx, r, actorID, created.ID, created.AssetTag)

	apiutil.WriteJSON(w, http.StatusCreated, toResponse(created))
}

// ServeList handles GET /equipment with optional status, q, and limit
// query parameters.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	f := equipmentstore.ListFilter{
		Status: models.EquipmentStatus(r.URL.Query().Get("status")),
		Search: r.URL.Query().Get("q"),
	}
	if lim := r.URL.Query().Get("limit"); lim != "" {
		n, err := strconv.Atoi(lim)
		if err != nil || n < 0 {
			apiutil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid limit")
			return
		}
		f.Limit = int64(n)
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	items, err := h.Equipment.List(ctx, f)
	if err != nil {
		h.Log.Error("equipment: list failed", zap.Error(err))
		apiutil.WriteWorkflowError(w, err)
		return
	}

	resp := make([]equipmentResponse, 0, len(items))
	for _, e := range items {
		resp = append(resp, toResponse(e))
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]any{"equipment": resp})
}

// ServeGet handles GET /equipment/{id}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid equipment id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	e, err := h.Equipment.GetByID(ctx, id)
	if err != nil {
		apiutil.WriteWorkflowError(w, err)
		return
	}

	apiutil.WriteJSON(w, http.StatusOK, toResponse(e))
}
