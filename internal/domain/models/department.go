// internal/domain/models/department.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Department is an organizational unit within a site. Equipment is audited
// department by department.
type Department struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SiteID primitive.ObjectID `bson:"site_id" json:"site_id"`
	Name   string             `bson:"name" json:"name"`
	NameCI string             `bson:"name_ci" json:"name_ci"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
