// internal/domain/models/auditsession.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuditSessionStatus is the lifecycle state of a physical audit session.
// There is deliberately no "cancelled" status: cancelling a session deletes
// it outright rather than marking it terminal.
type AuditSessionStatus string

const (
	AuditInProgress AuditSessionStatus = "in_progress"
	AuditPaused     AuditSessionStatus = "paused"
	AuditCompleted  AuditSessionStatus = "completed"
)

// UnexpectedItem is equipment found during an audit that does not belong to
// the audited department and whose relocation was declined. The registered
// location is captured from the registry at decline time; LocationNote is an
// optional free-text remark from the operator.
type UnexpectedItem struct {
	EquipmentID          primitive.ObjectID  `bson:"equipment_id" json:"equipment_id"`
	AssetTag             string              `bson:"asset_tag" json:"asset_tag"`
	ModelName            string              `bson:"model_name,omitempty" json:"model_name,omitempty"`
	OriginalSiteID       *primitive.ObjectID `bson:"original_site_id,omitempty" json:"original_site_id,omitempty"`
	OriginalDepartmentID *primitive.ObjectID `bson:"original_department_id,omitempty" json:"original_department_id,omitempty"`
	LocationNote         string              `bson:"location_note,omitempty" json:"location_note,omitempty"`
}

// AuditSession is one reconciliation pass comparing a department's expected
// inventory against physically scanned items.
//
// At most one session per department is non-terminal (in_progress or paused)
// at a time; starting a new audit resumes the existing one instead of
// creating a duplicate.
type AuditSession struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DepartmentID    primitive.ObjectID `bson:"department_id" json:"department_id"`
	StartedByUserID primitive.ObjectID `bson:"started_by_user_id" json:"started_by_user_id"`

	Status AuditSessionStatus `bson:"status" json:"status"`

	// Equipment ids confirmed present, in scan order. Order only matters for
	// the "last scanned" history shown to operators.
	ScannedItemIDs []primitive.ObjectID `bson:"scanned_item_ids" json:"scanned_item_ids"`

	UnexpectedItems []UnexpectedItem `bson:"unexpected_items" json:"unexpected_items"`

	// Snapshot of the department's expected inventory, taken at completion.
	// Completed sessions report against this frozen set so later membership
	// changes cannot retroactively alter the session's counts.
	ExpectedItemIDs []primitive.ObjectID `bson:"expected_item_ids,omitempty" json:"expected_item_ids,omitempty"`

	StartedAt   time.Time  `bson:"started_at" json:"started_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
	CompletedAt *time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
}

// Terminal reports whether the session is completed. Cancelled sessions do
// not exist, so completed is the only terminal state a stored session can be in.
func (s *AuditSession) Terminal() bool {
	return s.Status == AuditCompleted
}

// Scanned reports whether the given equipment id has already been confirmed.
func (s *AuditSession) Scanned(equipmentID primitive.ObjectID) bool {
	for _, id := range s.ScannedItemIDs {
		if id == equipmentID {
			return true
		}
	}
	return false
}
