// internal/app/store/auditsessions/sessionstore.go
package auditsessionstore

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

// Store manages audit session records. It satisfies workflow.SessionStore.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_sessions")}
}

// EnsureIndexes creates the department lookup index used to find a
// department's single non-terminal session.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "department_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "started_at", Value: -1}}},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Create inserts a new session. If StartedAt is zero it is set to now (UTC).
func (s *Store) Create(ctx context.Context, sess models.AuditSession) (models.AuditSession, error) {
	now := time.Now().UTC()
	if sess.StartedAt.IsZero() {
		sess.StartedAt = now
	}
	if sess.UpdatedAt.IsZero() {
		sess.UpdatedAt = now
	}

	res, err := s.c.InsertOne(ctx, sess)
	if err != nil {
		return sess, err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		sess.ID = oid
	}
	return sess, nil
}

// GetByID returns a single session by its _id.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.AuditSession, error) {
	var sess models.AuditSession
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&sess)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return sess, workflow.NotFound("audit session %s", id.Hex())
	}
	return sess, err
}

// GetActiveByDepartment returns the department's non-terminal (in_progress
// or paused) session, or an ErrNotFound-wrapping error if the department has
// none open.
func (s *Store) GetActiveByDepartment(ctx context.Context, deptID primitive.ObjectID) (models.AuditSession, error) {
	filter := bson.M{
		"department_id": deptID,
		"status":        bson.M{"$in": []models.AuditSessionStatus{models.AuditInProgress, models.AuditPaused}},
	}
	var sess models.AuditSession
	err := s.c.FindOne(ctx, filter).Decode(&sess)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return sess, workflow.NotFound("no open audit session for department %s", deptID.Hex())
	}
	return sess, err
}

// Update replaces an existing session identified by its _id.
func (s *Store) Update(ctx context.Context, sess models.AuditSession) (models.AuditSession, error) {
	if sess.ID.IsZero() {
		return sess, mongo.ErrNilDocument
	}

	res, err := s.c.ReplaceOne(ctx, bson.M{"_id": sess.ID}, sess)
	if err != nil {
		return sess, err
	}
	if res.MatchedCount == 0 {
		return sess, workflow.NotFound("audit session %s", sess.ID.Hex())
	}
	return sess, nil
}

// Delete removes the session with the given _id. Cancellation discards the
// session entirely; there is no cancelled status.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// ListByDepartment returns all of a department's sessions, newest first.
// Mostly completed history, plus at most one open session.
func (s *Store) ListByDepartment(ctx context.Context, deptID primitive.ObjectID) ([]models.AuditSession, error) {
	opts := options.Find().SetSort(bson.D{{Key: "started_at", Value: -1}})
	cur, err := s.c.Find(ctx, bson.M{"department_id": deptID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.AuditSession
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
