// internal/app/store/transfers/transferstore.go
package transferstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/equiphub/internal/app/workflow"
	"github.com/dalemusser/equiphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store manages custody transfer (Assignment) records. It satisfies
// workflow.TransferStore.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("assignments")}
}

// EnsureIndexes creates lookup indexes for the transfer history views.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "equipment_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Create inserts a new transfer record. If CreatedAt is zero it is set to
// now (UTC).
func (s *Store) Create(ctx context.Context, a models.Assignment) (models.Assignment, error) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	res, err := s.c.InsertOne(ctx, a)
	if err != nil {
		return a, err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		a.ID = oid
	}
	return a, nil
}

// GetByID returns a single transfer by its _id.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Assignment, error) {
	var a models.Assignment
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return a, workflow.NotFound("transfer %s", id.Hex())
	}
	return a, err
}

// Update replaces an existing transfer identified by its _id. UpdatedAt is
// set to now (UTC).
func (s *Store) Update(ctx context.Context, a models.Assignment) (models.Assignment, error) {
	if a.ID.IsZero() {
		return a, mongo.ErrNilDocument
	}

	now := time.Now().UTC()
	a.UpdatedAt = &now

	res, err := s.c.ReplaceOne(ctx, bson.M{"_id": a.ID}, a)
	if err != nil {
		return a, err
	}
	if res.MatchedCount == 0 {
		return a, workflow.NotFound("transfer %s", a.ID.Hex())
	}
	return a, nil
}

// Delete removes the transfer with the given _id. Used only to compensate a
// failed create; approved and rejected transfers are kept as history.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// ListByEquipment returns the transfer history of one item, newest first.
func (s *Store) ListByEquipment(ctx context.Context, equipmentID primitive.ObjectID) ([]models.Assignment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.c.Find(ctx, bson.M{"equipment_id": equipmentID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Assignment
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByUser returns all transfers where the user is the subject, newest first.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Assignment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Assignment
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
