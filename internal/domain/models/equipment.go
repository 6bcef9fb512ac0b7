// internal/domain/models/equipment.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EquipmentStatus is the lifecycle state of an equipment item.
type EquipmentStatus string

const (
	StatusAvailable         EquipmentStatus = "available"
	StatusPendingValidation EquipmentStatus = "pending_validation"
	StatusAssigned          EquipmentStatus = "assigned"
	StatusInRepair          EquipmentStatus = "in_repair"
	StatusInStorage         EquipmentStatus = "in_storage"
	StatusDecommissioned    EquipmentStatus = "decommissioned"
)

// Equipment is an IT equipment item under custody tracking.
//
// PendingAssignmentID is set if and only if Status is pending_validation,
// and then references an Assignment whose validation is still incomplete.
// The custody transfer engine is the only writer of that pair; the two
// fields are always updated together.
type Equipment struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AssetTag string             `bson:"asset_tag" json:"asset_tag"` // unique, human-scannable

	Name    string `bson:"name" json:"name"`
	NameCI  string `bson:"name_ci" json:"name_ci"` // lowercase, diacritics-stripped
	Model   string `bson:"model,omitempty" json:"model,omitempty"`
	ModelCI string `bson:"model_ci,omitempty" json:"model_ci,omitempty"`

	Status              EquipmentStatus     `bson:"status" json:"status"`
	PendingAssignmentID *primitive.ObjectID `bson:"pending_assignment_id,omitempty" json:"pending_assignment_id,omitempty"`

	// Registered location; nil means not placed anywhere yet.
	SiteID       *primitive.ObjectID `bson:"site_id,omitempty" json:"site_id,omitempty"`
	DepartmentID *primitive.ObjectID `bson:"department_id,omitempty" json:"department_id,omitempty"`

	// Current holder while Status is assigned.
	HolderUserID *primitive.ObjectID `bson:"holder_user_id,omitempty" json:"holder_user_id,omitempty"`

	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt *time.Time `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// InDepartment reports whether the item is registered to the given department.
func (e *Equipment) InDepartment(deptID primitive.ObjectID) bool {
	return e.DepartmentID != nil && *e.DepartmentID == deptID
}

// Transferable reports whether a new custody transfer may be opened for the
// item. Items already gated by a pending transfer, or permanently retired,
// cannot enter a new transfer.
func (e *Equipment) Transferable() bool {
	return e.Status != StatusPendingValidation && e.Status != StatusDecommissioned
}
