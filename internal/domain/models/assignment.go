// internal/domain/models/assignment.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AssignmentAction is the direction of a custody transfer.
type AssignmentAction string

const (
	ActionAssign AssignmentAction = "assign" // hand-out: available -> held by user
	ActionReturn AssignmentAction = "return" // hand-back: held by user -> available
)

// AssignmentStatus is the lifecycle state of a custody transfer record.
type AssignmentStatus string

const (
	AssignmentPending  AssignmentStatus = "pending"
	AssignmentApproved AssignmentStatus = "approved"
	AssignmentRejected AssignmentStatus = "rejected"
)

// Validation is the per-actor approval ledger of a custody transfer.
// All three must be true before the transfer is approved.
type Validation struct {
	IT      bool `bson:"it" json:"it"`
	Manager bool `bson:"manager" json:"manager"`
	User    bool `bson:"user" json:"user"`
}

// Complete reports whether every required actor has approved.
func (v Validation) Complete() bool {
	return v.IT && v.Manager && v.User
}

// ValidationAttribution records who approved for one actor slot and when.
// Both fields are set together when the actor's boolean flips true and
// cleared together on revert.
type ValidationAttribution struct {
	IT        *primitive.ObjectID `bson:"it,omitempty" json:"it,omitempty"`
	Manager   *primitive.ObjectID `bson:"manager,omitempty" json:"manager,omitempty"`
	User      *primitive.ObjectID `bson:"user,omitempty" json:"user,omitempty"`
	ITAt      *time.Time          `bson:"it_at,omitempty" json:"it_at,omitempty"`
	ManagerAt *time.Time          `bson:"manager_at,omitempty" json:"manager_at,omitempty"`
	UserAt    *time.Time          `bson:"user_at,omitempty" json:"user_at,omitempty"`
}

// Assignment is a custody transfer record: one Assign or Return of a single
// equipment item, gated by the three-actor validation ledger.
//
// While pending, the record is exclusively owned by the equipment item it
// references (Equipment.PendingAssignmentID points back here). Once approved
// or rejected it becomes a historical record; RestoreRejected is the only
// operation that re-opens one.
type Assignment struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`

	Action      AssignmentAction   `bson:"action" json:"action"`
	EquipmentID primitive.ObjectID `bson:"equipment_id" json:"equipment_id"`
	UserID      primitive.ObjectID `bson:"user_id" json:"user_id"`
	ManagerID   primitive.ObjectID `bson:"manager_id" json:"manager_id"`

	Validation  Validation            `bson:"validation" json:"validation"`
	ValidatedBy ValidationAttribution `bson:"validated_by" json:"validated_by"`

	Status          AssignmentStatus `bson:"status" json:"status"`
	RejectionReason string           `bson:"rejection_reason,omitempty" json:"rejection_reason,omitempty"`

	// How approvals are captured, e.g. "signature" or "checkbox".
	ValidationMethod string `bson:"validation_method,omitempty" json:"validation_method,omitempty"`

	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt *time.Time `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// Terminal reports whether the transfer has reached approved or rejected.
func (a *Assignment) Terminal() bool {
	return a.Status == AssignmentApproved || a.Status == AssignmentRejected
}
