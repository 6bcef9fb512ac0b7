// internal/app/workflow/reconcile/reporter.go

// Package reconcile derives the confirmed/missing/unexpected view of an
// audit session. It is a read-only projection: nothing here mutates the
// registry or the session.
package reconcile

import (
	"context"

	"github.com/dalemusser/equiphub/internal/app/workflow"
	"github.com/dalemusser/equiphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Report is the reconciliation view of one audit session.
//
// For a completed session the math is frozen: confirmed equals the expected
// snapshot taken at completion (full coverage is the definition of
// completion) and missing is empty. For a non-terminal session, confirmed is
// the intersection of expected and scanned, and missing is the rest.
type Report struct {
	SessionID    primitive.ObjectID `json:"session_id"`
	DepartmentID primitive.ObjectID `json:"department_id"`

	Status models.AuditSessionStatus `json:"status"`

	ExpectedCount  int `json:"expected_count"`
	ConfirmedCount int `json:"confirmed_count"`
	MissingCount   int `json:"missing_count"`

	ConfirmedIDs []primitive.ObjectID `json:"confirmed_ids"`
	MissingIDs   []primitive.ObjectID `json:"missing_ids"`

	Unexpected []models.UnexpectedItem `json:"unexpected"`
}

// Build computes the report from a session and a registry snapshot of the
// department's equipment. Pure function; callers pass whatever snapshot
// matches the view they want.
func Build(s models.AuditSession, expected []models.Equipment) Report {
	r := Report{
		SessionID:    s.ID,
		DepartmentID: s.DepartmentID,
		Status:       s.Status,
		ConfirmedIDs: []primitive.ObjectID{},
		MissingIDs:   []primitive.ObjectID{},
		Unexpected:   append([]models.UnexpectedItem{}, s.UnexpectedItems...),
	}

	if s.Status == models.AuditCompleted {
		r.ConfirmedIDs = append(r.ConfirmedIDs, s.ExpectedItemIDs...)
		r.ExpectedCount = len(s.ExpectedItemIDs)
		r.ConfirmedCount = len(s.ExpectedItemIDs)
		return r
	}

	scanned := make(map[primitive.ObjectID]struct{}, len(s.ScannedItemIDs))
	for _, id := range s.ScannedItemIDs {
		scanned[id] = struct{}{}
	}

	for _, eq := range expected {
		if _, ok := scanned[eq.ID]; ok {
			r.ConfirmedIDs = append(r.ConfirmedIDs, eq.ID)
		} else {
			r.MissingIDs = append(r.MissingIDs, eq.ID)
		}
	}

	r.ExpectedCount = len(expected)
	r.ConfirmedCount = len(r.ConfirmedIDs)
	r.MissingCount = len(r.MissingIDs)
	return r
}

// Reporter fetches the registry snapshot for a session and builds its report.
type Reporter struct {
	equipment workflow.EquipmentStore
}

// New constructs a Reporter over the equipment registry.
func New(equipment workflow.EquipmentStore) *Reporter {
	return &Reporter{equipment: equipment}
}

// Report builds the reconciliation view for the given session.
func (r *Reporter) Report(ctx context.Context, s models.AuditSession) (Report, error) {
	if s.Status == models.AuditCompleted {
		return Build(s, nil), nil
	}
	expected, err := r.equipment.ListByDepartment(ctx, s.DepartmentID)
	if err != nil {
		return Report{}, err
	}
	return Build(s, expected), nil
}
