package equipmentstore_test

import (
	"errors"
	"testing"

	equipmentstore "github.com/dalemusser/equiphub/internal/app/store/equipment"
	"github.com/dalemusser/equiphub/internal/app/workflow"
	"github.com/dalemusser/equiphub/internal/domain/models"
	"github.com/dalemusser/equiphub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := equipmentstore.New(db)
	ctx := testutil.TestContext()

	created, err := store.Create(ctx, models.Equipment{
		AssetTag: "LT-0001",
		Name:     "Développer Laptop",
		Model:    "ThinkPad X1",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID.IsZero() {
		t.Fatal("Create should assign an id")
	}
	if created.Status != models.StatusAvailable {
		t.Errorf("default status: got %s, want available", created.Status)
	}
	if created.NameCI != "developper laptop" {
		t.Errorf("name_ci: got %q", created.NameCI)
	}

	got, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.AssetTag != "LT-0001" {
		t.Errorf("asset tag: got %q", got.AssetTag)
	}

	byTag, err := store.GetByAssetTag(ctx, "LT-0001")
	if err != nil {
		t.Fatalf("GetByAssetTag failed: %v", err)
	}
	if byTag.ID != created.ID {
		t.Error("GetByAssetTag returned a different record")
	}
}

func TestGet_MissingIsNotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := equipmentstore.New(db)
	ctx := testutil.TestContext()

	if _, err := store.GetByID(ctx, primitive.NewObjectID()); !errors.Is(err, workflow.ErrNotFound) {
		t.Errorf("GetByID: expected ErrNotFound, got %v", err)
	}
	if _, err := store.GetByAssetTag(ctx, "NO-SUCH"); !errors.Is(err, workflow.ErrNotFound) {
		t.Errorf("GetByAssetTag: expected ErrNotFound, got %v", err)
	}
}

func TestEnsureIndexes_RejectsDuplicateAssetTag(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := equipmentstore.New(db)
	ctx := testutil.TestContext()

	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes failed: %v", err)
	}
	if _, err := store.Create(ctx, models.Equipment{AssetTag: "LT-0001", Name: "A"}); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	if _, err := store.Create(ctx, models.Equipment{AssetTag: "LT-0001", Name: "B"}); err == nil {
		t.Error("duplicate asset tag should fail under the unique index")
	}
}

func TestUpdate_SetsUpdatedAt(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := equipmentstore.New(db)
	ctx := testutil.TestContext()

	e, err := store.Create(ctx, models.Equipment{AssetTag: "LT-0001", Name: "Laptop"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	e.Status = models.StatusInRepair
	updated, err := store.Update(ctx, e)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Status != models.StatusInRepair {
		t.Errorf("status: got %s, want in_repair", updated.Status)
	}
	if updated.UpdatedAt == nil {
		t.Error("Update should stamp UpdatedAt")
	}
}

func TestUpdate_MissingIsNotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := equipmentstore.New(db)
	ctx := testutil.TestContext()

	_, err := store.Update(ctx, models.Equipment{ID: primitive.NewObjectID(), AssetTag: "X", Name: "X"})
	if !errors.Is(err, workflow.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListByDepartment(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := equipmentstore.New(db)
	ctx := testutil.TestContext()

	deptA := primitive.NewObjectID()
	deptB := primitive.NewObjectID()
	for i, dept := range []primitive.ObjectID{deptA, deptA, deptB} {
		d := dept
		_, err := store.Create(ctx, models.Equipment{
			AssetTag:     primitive.NewObjectID().Hex(),
			Name:         "Item",
			DepartmentID: &d,
		})
		if err != nil {
			t.Fatalf("create %d failed: %v", i, err)
		}
	}

	items, err := store.ListByDepartment(ctx, deptA)
	if err != nil {
		t.Fatalf("ListByDepartment failed: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("item count: got %d, want 2", len(items))
	}
}

func TestList_FiltersAndSearch(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := equipmentstore.New(db)
	ctx := testutil.TestContext()

	seed := []models.Equipment{
		{AssetTag: "LT-0001", Name: "Laptop Alpha"},
		{AssetTag: "LT-0002", Name: "Laptop Béta", Status: models.StatusInRepair},
		{AssetTag: "MN-0001", Name: "Monitor"},
	}
	for _, e := range seed {
		if _, err := store.Create(ctx, e); err != nil {
			t.Fatalf("seed create failed: %v", err)
		}
	}

	byStatus, err := store.List(ctx, equipmentstore.ListFilter{Status: models.StatusInRepair})
	if err != nil {
		t.Fatalf("List by status failed: %v", err)
	}
	if len(byStatus) != 1 || byStatus[0].AssetTag != "LT-0002" {
		t.Errorf("status filter: got %d items", len(byStatus))
	}

	// Prefix search is case and diacritic insensitive.
	bySearch, err := store.List(ctx, equipmentstore.ListFilter{Search: "LAPTOP B"})
	if err != nil {
		t.Fatalf("List by search failed: %v", err)
	}
	if len(bySearch) != 1 || bySearch[0].AssetTag != "LT-0002" {
		t.Errorf("search filter: got %d items", len(bySearch))
	}
}
