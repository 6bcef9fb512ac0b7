// internal/app/workflow/stores.go
package workflow

import (
	"context"

	"github.com/dalemusser/equiphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// The engines mutate state only through these narrow interfaces. The mongo
// stores under internal/app/store satisfy them in production; the in-memory
// stores in internal/testutil satisfy them in unit tests. Implementations
// return errors wrapping ErrNotFound for missing records.

// EquipmentStore is the registry view the engines need.
type EquipmentStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Equipment, error)
	GetByAssetTag(ctx context.Context, tag string) (models.Equipment, error)
	Update(ctx context.Context, e models.Equipment) (models.Equipment, error)
	ListByDepartment(ctx context.Context, deptID primitive.ObjectID) ([]models.Equipment, error)
}

// TransferStore holds custody transfer (Assignment) records.
type TransferStore interface {
	Create(ctx context.Context, a models.Assignment) (models.Assignment, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Assignment, error)
	Update(ctx context.Context, a models.Assignment) (models.Assignment, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// SessionStore holds audit session records.
type SessionStore interface {
	Create(ctx context.Context, s models.AuditSession) (models.AuditSession, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.AuditSession, error)
	// GetActiveByDepartment returns the department's single non-terminal
	// (in_progress or paused) session, or an ErrNotFound-wrapping error.
	GetActiveByDepartment(ctx context.Context, deptID primitive.ObjectID) (models.AuditSession, error)
	Update(ctx context.Context, s models.AuditSession) (models.AuditSession, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}
