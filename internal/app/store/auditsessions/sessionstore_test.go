package auditsessionstore_test

import (
	"errors"
	"testing"

	auditsessionstore "github.com/dalemusser/equiphub/internal/app/store/auditsessions"
	"github.com/dalemusser/equiphub/internal/app/workflow"
	"github.com/dalemusser/equiphub/internal/domain/models"
	"github.com/dalemusser/equiphub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newSession(deptID primitive.ObjectID, status models.AuditSessionStatus) models.AuditSession {
	return models.AuditSession{
		DepartmentID:    deptID,
		StartedByUserID: primitive.NewObjectID(),
		Status:          status,
		ScannedItemIDs:  []primitive.ObjectID{},
		UnexpectedItems: []models.UnexpectedItem{},
	}
}

func TestGetActiveByDepartment(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := auditsessionstore.New(db)
	ctx := testutil.TestContext()

	deptID := primitive.NewObjectID()

	// A completed session does not count as active.
	if _, err := store.Create(ctx, newSession(deptID, models.AuditCompleted)); err != nil {
		t.Fatalf("create completed failed: %v", err)
	}
	if _, err := store.GetActiveByDepartment(ctx, deptID); !errors.Is(err, workflow.ErrNotFound) {
		t.Fatalf("expected ErrNotFound with only a completed session, got %v", err)
	}

	// A paused session does.
	paused, err := store.Create(ctx, newSession(deptID, models.AuditPaused))
	if err != nil {
		t.Fatalf("create paused failed: %v", err)
	}
	active, err := store.GetActiveByDepartment(ctx, deptID)
	if err != nil {
		t.Fatalf("GetActiveByDepartment failed: %v", err)
	}
	if active.ID != paused.ID {
		t.Error("active lookup returned the wrong session")
	}
}

func TestUpdateAndDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := auditsessionstore.New(db)
	ctx := testutil.TestContext()

	s, err := store.Create(ctx, newSession(primitive.NewObjectID(), models.AuditInProgress))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	s.ScannedItemIDs = append(s.ScannedItemIDs, primitive.NewObjectID())
	updated, err := store.Update(ctx, s)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if len(updated.ScannedItemIDs) != 1 {
		t.Error("scan progress should persist")
	}

	if err := store.Delete(ctx, s.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.GetByID(ctx, s.ID); !errors.Is(err, workflow.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}
