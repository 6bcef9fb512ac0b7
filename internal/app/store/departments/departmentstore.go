// internal/app/store/departments/departmentstore.go
package departmentstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/equiphub/internal/app/workflow"
	"github.com/dalemusser/equiphub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("departments")}
}

// EnsureIndexes creates the indexes the departments collection relies on.
// Department names are unique within a site, not globally.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "site_id", Value: 1}, {Key: "name_ci", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// Create inserts a new department.
func (s *Store) Create(ctx context.Context, d models.Department) (models.Department, error) {
	d.ID = primitive.NewObjectID()
	d.NameCI = text.Fold(d.Name)
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now

	_, err := s.c.InsertOne(ctx, d)
	return d, err
}

// GetByID returns a single department by its _id.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Department, error) {
	var d models.Department
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return d, workflow.NotFound("department %s", id.Hex())
	}
	return d, err
}

// ListBySite returns a site's departments ordered by folded name.
func (s *Store) ListBySite(ctx context.Context, siteID primitive.ObjectID) ([]models.Department, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"site_id": siteID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Department
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
