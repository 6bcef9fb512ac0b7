package userstore_test

import (
	"errors"
	"testing"

	userstore "github.com/dalemusser/equiphub/internal/app/store/users"
	"github.com/dalemusser/equiphub/internal/app/workflow"
	"github.com/dalemusser/equiphub/internal/domain/models"
	"github.com/dalemusser/equiphub/internal/testutil"
)

func TestCreate_NormalizesFields(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx := testutil.TestContext()

	u, err := store.Create(ctx, models.User{
		FullName: "  José García  ",
		Email:    " Jose.Garcia@Example.COM ",
		Role:     "manager",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if u.FullName != "José García" {
		t.Errorf("full name: got %q", u.FullName)
	}
	if u.FullNameCI != "jose garcia" {
		t.Errorf("full_name_ci: got %q", u.FullNameCI)
	}
	if u.Email != "jose.garcia@example.com" {
		t.Errorf("email: got %q", u.Email)
	}
	if u.Status != "active" {
		t.Errorf("default status: got %q", u.Status)
	}
}

func TestCreate_RejectsUnknownRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx := testutil.TestContext()

	_, err := store.Create(ctx, models.User{FullName: "X", Email: "x@test.com", Role: "superuser"})
	if err == nil {
		t.Error("unknown role should be rejected")
	}
}

func TestCreate_DuplicateEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx := testutil.TestContext()

	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes failed: %v", err)
	}
	if _, err := store.Create(ctx, models.User{FullName: "A", Email: "dup@test.com", Role: "user"}); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	_, err := store.Create(ctx, models.User{FullName: "B", Email: "DUP@test.com", Role: "user"})
	if !errors.Is(err, userstore.ErrDuplicateEmail) {
		t.Errorf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestGetByEmail_CaseInsensitive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx := testutil.TestContext()

	created, err := store.Create(ctx, models.User{FullName: "A", Email: "case@test.com", Role: "it"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := store.GetByEmail(ctx, "CASE@Test.COM")
	if err != nil {
		t.Fatalf("GetByEmail failed: %v", err)
	}
	if got.ID != created.ID {
		t.Error("lookup returned a different user")
	}
}

func TestEnsureAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx := testutil.TestContext()

	// Creates the account when missing.
	u, err := store.EnsureAdmin(ctx, "root@test.com", "Root Admin")
	if err != nil {
		t.Fatalf("EnsureAdmin (create) failed: %v", err)
	}
	if u.Role != "admin" {
		t.Errorf("role: got %q, want admin", u.Role)
	}

	// Idempotent for an existing admin.
	again, err := store.EnsureAdmin(ctx, "root@test.com", "Root Admin")
	if err != nil {
		t.Fatalf("EnsureAdmin (repeat) failed: %v", err)
	}
	if again.ID != u.ID {
		t.Error("repeat EnsureAdmin should not create a second account")
	}

	// Promotes an existing non-admin.
	staff, err := store.Create(ctx, models.User{FullName: "Staff", Email: "staff@test.com", Role: "it"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	promoted, err := store.EnsureAdmin(ctx, "staff@test.com", "")
	if err != nil {
		t.Fatalf("EnsureAdmin (promote) failed: %v", err)
	}
	if promoted.ID != staff.ID || promoted.Role != "admin" {
		t.Errorf("promotion: got id=%s role=%q", promoted.ID.Hex(), promoted.Role)
	}
}

func TestGetByID_MissingIsNotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx := testutil.TestContext()

	_, err := store.GetByEmail(ctx, "ghost@test.com")
	if !errors.Is(err, workflow.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
