// internal/app/store/equipment/equipmentstore.go
package equipmentstore

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/dalemusser/equiphub/internal/app/workflow"
	"github.com/dalemusser/equiphub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store manages equipment records. It satisfies workflow.EquipmentStore.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("equipment")}
}

// EnsureIndexes creates the unique asset-tag index and the lookup indexes
// the audit and listing paths depend on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "asset_tag", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "department_id", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "name_ci", Value: 1}},
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Create inserts a new equipment record. If CreatedAt is zero it is set to
// now (UTC); if Status is empty the item starts available.
func (s *Store) Create(ctx context.Context, e models.Equipment) (models.Equipment, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.Status == "" {
		e.Status = models.StatusAvailable
	}
	e.NameCI = text.Fold(e.Name)
	e.ModelCI = text.Fold(e.Model)

	res, err := s.c.InsertOne(ctx, e)
	if err != nil {
		return e, err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		e.ID = oid
	}
	return e, nil
}

// GetByID returns a single equipment record by its _id.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Equipment, error) {
	var e models.Equipment
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return e, workflow.NotFound("equipment %s", id.Hex())
	}
	return e, err
}

// GetByAssetTag returns the equipment carrying the scanned tag.
func (s *Store) GetByAssetTag(ctx context.Context, tag string) (models.Equipment, error) {
	var e models.Equipment
	err := s.c.FindOne(ctx, bson.M{"asset_tag": tag}).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return e, workflow.NotFound("asset tag %q", tag)
	}
	return e, err
}

// Update replaces an existing record identified by its _id. UpdatedAt is set
// to now (UTC).
func (s *Store) Update(ctx context.Context, e models.Equipment) (models.Equipment, error) {
	if e.ID.IsZero() {
		return e, mongo.ErrNilDocument
	}

	now := time.Now().UTC()
	e.UpdatedAt = &now
	e.NameCI = text.Fold(e.Name)
	e.ModelCI = text.Fold(e.Model)

	res, err := s.c.ReplaceOne(ctx, bson.M{"_id": e.ID}, e)
	if err != nil {
		return e, err
	}
	if res.MatchedCount == 0 {
		return e, workflow.NotFound("equipment %s", e.ID.Hex())
	}
	return e, nil
}

// ListByDepartment returns all equipment registered to the department.
func (s *Store) ListByDepartment(ctx context.Context, deptID primitive.ObjectID) ([]models.Equipment, error) {
	cur, err := s.c.Find(ctx, bson.M{"department_id": deptID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Equipment
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListFilter narrows List results.
type ListFilter struct {
	Status models.EquipmentStatus // empty means all statuses
	Search string                 // folded prefix match on name_ci
	Limit  int64
}

// List returns equipment ordered by folded name then id, for the admin
// listing pages. Search is a case-folded prefix match.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.Equipment, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Search != "" {
		filter["name_ci"] = bson.M{"$regex": "^" + regexp.QuoteMeta(text.Fold(f.Search))}
	}

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(limit)

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Equipment
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
