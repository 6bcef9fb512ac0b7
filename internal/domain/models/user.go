// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents admins, IT staff, managers, and regular employees.
//
// ManagerID links an employee to the manager who co-signs their custody
// transfers; it is resolved at transfer creation time and copied onto the
// Assignment, so later reporting-line changes do not disturb open transfers.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName   string             `bson:"full_name" json:"full_name"`
	FullNameCI string             `bson:"full_name_ci" json:"full_name_ci"` // lowercase, diacritics-stripped
	Email      string             `bson:"email" json:"email"`
	Role       string             `bson:"role" json:"role"` // admin | it | manager | user
	Status     string             `bson:"status,omitempty" json:"status,omitempty"`

	ManagerID    *primitive.ObjectID `bson:"manager_id,omitempty" json:"manager_id,omitempty"`
	DepartmentID *primitive.ObjectID `bson:"department_id,omitempty" json:"department_id,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
