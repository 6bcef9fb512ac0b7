// internal/app/system/apiutil/apiutil.go

// Package apiutil holds the JSON request/response helpers shared by the API
// feature handlers, including the mapping from workflow error kinds to HTTP
// status codes.
package apiutil

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dalemusser/equiphub/internal/app/workflow"
)

// Decode parses a JSON request body into v.
func Decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse is the JSON error body:
//
//	{ "error": "precondition_failed", "message": "it has already approved ..." }
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a JSON error body.
func WriteError(w http.ResponseWriter, status int, kind, message string) {
	WriteJSON(w, status, errorResponse{Error: kind, Message: message})
}

// WriteWorkflowError maps a workflow error to the matching HTTP status:
// not_found 404, precondition_failed 409, invalid_state 422. Anything else
// is a 500 with a generic body; the caller is responsible for logging it.
func WriteWorkflowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, workflow.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, workflow.ErrPreconditionFailed):
		WriteError(w, http.StatusConflict, "precondition_failed", err.Error())
	case errors.Is(err, workflow.ErrInvalidState):
		WriteError(w, http.StatusUnprocessableEntity, "invalid_state", err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "internal", "an internal error occurred")
	}
}
