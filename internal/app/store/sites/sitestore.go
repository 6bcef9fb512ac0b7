// internal/app/store/sites/sitestore.go
package sitestore

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
	return &Store{c: db.Collection("sites")}
}

// EnsureIndexes creates the indexes the sites collection relies on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name_ci", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// Create inserts a new site.
func (s *Store) Create(ctx context.Context, site models.Site) (models.Site, error) {
	site.ID = primitive.NewObjectID()
	site.NameCI = text.Fold(site.Name)
	now := time.Now().UTC()
	site.CreatedAt = now
	site.UpdatedAt = now

	_, err := s.c.InsertOne(ctx, site)
	return site, err
}

// GetByID returns a single site by its _id.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Site, error) {
	var site models.Site
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&site)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return site, workflow.NotFound("site %s", id.Hex())
	}
	return site, err
}

// List returns all sites ordered by folded name.
func (s *Store) List(ctx context.Context) ([]models.Site, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Site
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
