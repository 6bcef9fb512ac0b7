// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Event categories
const (
	CategoryCustody = "custody"
	CategoryAudit   = "audit"
	CategoryAdmin   = "admin"
)

// Custody transfer event types
const (
	EventTransferCreated       = "transfer_created"
	EventTransferApproved      = "transfer_approved"
	EventTransferFullyApproved = "transfer_fully_approved"
	EventTransferRejected      = "transfer_rejected"
	EventTransferReverted      = "transfer_reverted"
	EventTransferRestored      = "transfer_restored"
)

// Audit session event types
const (
	EventAuditStarted        = "audit_session_started"
	EventAuditResumed        = "audit_session_resumed"
	EventAuditPaused         = "audit_session_paused"
	EventAuditCompleted      = "audit_session_completed"
	EventAuditCancelled      = "audit_session_cancelled"
	EventEquipmentRelocated  = "equipment_relocated"
	EventUnexpectedItemFound = "unexpected_item_found"
)

// Admin event types
const (
	EventEquipmentRegistered = "equipment_registered"
	EventUserCreated         = "user_created"
)

// Event is one entry in the custody event log.
type Event struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Timestamp time.Time          `bson:"timestamp"`

	// Event classification
	Category  string `bson:"category"`
	EventType string `bson:"event_type"`

	// What the event concerns
	EquipmentID  *primitive.ObjectID `bson:"equipment_id,omitempty"`
	AssignmentID *primitive.ObjectID `bson:"assignment_id,omitempty"`
	SessionID    *primitive.ObjectID `bson:"session_id,omitempty"`
	DepartmentID *primitive.ObjectID `bson:"department_id,omitempty"`

	// Who performed the action
	ActorID *primitive.ObjectID `bson:"actor_id,omitempty"`

	// Context
	IP string `bson:"ip,omitempty"`

	// Outcome
	Success       bool   `bson:"success"`
	FailureReason string `bson:"failure_reason,omitempty"`

	// Additional details (varies by event type)
	Details map[string]string `bson:"details,omitempty"`
}

// QueryFilter defines filters for querying the event log.
type QueryFilter struct {
	EquipmentID  *primitive.ObjectID
	AssignmentID *primitive.ObjectID
	SessionID    *primitive.ObjectID
	DepartmentID *primitive.ObjectID
	ActorID      *primitive.ObjectID
	Category     string
	EventType    string
	StartTime    *time.Time
	EndTime      *time.Time
	Limit        int64
	Offset       int64
}

// Store manages custody event log records.
type Store struct {
	c *mongo.Collection
}

// New creates a new event log Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("custody_events")}
}

// EnsureIndexes creates necessary indexes for efficient querying.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "timestamp", Value: -1}},
		},
		{
			Keys: bson.D{
				{Key: "equipment_id", Value: 1},
				{Key: "timestamp", Value: -1},
			},
		},
		{
			Keys: bson.D{
				{Key: "department_id", Value: 1},
				{Key: "timestamp", Value: -1},
			},
		},
		{
			Keys: bson.D{
				{Key: "category", Value: 1},
				{Key: "event_type", Value: 1},
				{Key: "timestamp", Value: -1},
			},
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Log records an event.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_, err := s.c.InsertOne(ctx, event)
	return err
}

func (f QueryFilter) query() bson.M {
	query := bson.M{}
	if f.EquipmentID != nil {
		query["equipment_id"] = f.EquipmentID
	}
	if f.AssignmentID != nil {
		query["assignment_id"] = f.AssignmentID
	}
	if f.SessionID != nil {
		query["session_id"] = f.SessionID
	}
	if f.DepartmentID != nil {
		query["department_id"] = f.DepartmentID
	}
	if f.ActorID != nil {
		query["actor_id"] = f.ActorID
	}
	if f.Category != "" {
		query["category"] = f.Category
	}
	if f.EventType != "" {
		query["event_type"] = f.EventType
	}
	if f.StartTime != nil || f.EndTime != nil {
		timeQuery := bson.M{}
		if f.StartTime != nil {
			timeQuery["$gte"] = *f.StartTime
		}
		if f.EndTime != nil {
			timeQuery["$lte"] = *f.EndTime
		}
		query["timestamp"] = timeQuery
	}
	return query
}

// Query retrieves events matching the given filter, newest first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit).
		SetSkip(filter.Offset)

	cursor, err := s.c.Find(ctx, filter.query(), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// CountByFilter returns the count of events matching the filter.
func (s *Store) CountByFilter(ctx context.Context, filter QueryFilter) (int64, error) {
	return s.c.CountDocuments(ctx, filter.query())
}
