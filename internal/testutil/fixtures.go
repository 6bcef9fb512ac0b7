package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	departmentstore "github.com/dalemusser/equiphub/internal/app/store/departments"
	sitestore "github.com/dalemusser/equiphub/internal/app/store/sites"
	"github.com/dalemusser/equiphub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateSite creates a test site with the given name.
func (f *Fixtures) CreateSite(ctx context.Context, name string) models.Site {
	f.t.Helper()

	site, err := sitestore.New(f.db).Create(ctx, models.Site{
		Name:  name,
		City:  "Test City",
		State: "TS",
	})
	if err != nil {
		f.t.Fatalf("failed to create test site: %v", err)
	}
	return site
}

// CreateDepartment creates a test department within the given site.
func (f *Fixtures) CreateDepartment(ctx context.Context, siteID primitive.ObjectID, name string) models.Department {
	f.t.Helper()

	dept, err := departmentstore.New(f.db).Create(ctx, models.Department{
		SiteID: siteID,
		Name:   name,
	})
	if err != nil {
		f.t.Fatalf("failed to create test department: %v", err)
	}
	return dept
}

// CreateUser creates a test user with the given role.
func (f *Fixtures) CreateUser(ctx context.Context, fullName, email, role string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:         primitive.NewObjectID(),
		FullName:   fullName,
		FullNameCI: text.Fold(fullName),
		Email:      email,
		Role:       role,
		Status:     "active",
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateEmployee creates a test user with the user role reporting to the
// given manager within a department.
func (f *Fixtures) CreateEmployee(ctx context.Context, fullName, email string, managerID, deptID primitive.ObjectID) models.User {
	f.t.Helper()

	u := f.CreateUser(ctx, fullName, email, "user")
	u.ManagerID = &managerID
	u.DepartmentID = &deptID
	if _, err := f.db.Collection("users").ReplaceOne(ctx, primitive.M{"_id": u.ID}, u); err != nil {
		f.t.Fatalf("failed to link employee to manager: %v", err)
	}
	return u
}

// CreateEquipment creates an available equipment item registered to the
// given site and department.
func (f *Fixtures) CreateEquipment(ctx context.Context, assetTag, name string, siteID, deptID primitive.ObjectID) models.Equipment {
	f.t.Helper()

	now := time.Now().UTC()
	e := models.Equipment{
		ID:           primitive.NewObjectID(),
		AssetTag:     assetTag,
		Name:         name,
		NameCI:       text.Fold(name),
		Model:        "TestModel 100",
		ModelCI:      text.Fold("TestModel 100"),
		Status:       models.StatusAvailable,
		SiteID:       &siteID,
		DepartmentID: &deptID,
		CreatedAt:    now,
	}

	if _, err := f.db.Collection("equipment").InsertOne(ctx, e); err != nil {
		f.t.Fatalf("failed to create test equipment: %v", err)
	}
	return e
}
