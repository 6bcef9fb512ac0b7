package testutil

import (
	"context"
	"sync"

	"github.com/dalemusser/equiphub/internal/app/workflow"
	"github.com/dalemusser/equiphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory implementations of the workflow store interfaces. They let the
// engine tests run without a MongoDB instance while keeping the same
// not-found semantics as the mongo stores.

// MemEquipmentStore is an in-memory workflow.EquipmentStore.
type MemEquipmentStore struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]models.Equipment

	// FailUpdate makes the next Update call return this error, then clears
	// itself. Used to exercise compensation paths.
	FailUpdate error
}

// NewMemEquipmentStore creates an empty in-memory equipment store.
func NewMemEquipmentStore() *MemEquipmentStore {
	return &MemEquipmentStore{items: make(map[primitive.ObjectID]models.Equipment)}
}

// Put inserts or replaces an item, assigning an id if needed.
func (s *MemEquipmentStore) Put(e models.Equipment) models.Equipment {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	s.items[e.ID] = e
	return e
}

func (s *MemEquipmentStore) GetByID(ctx context.Context, id primitive.ObjectID) (models.Equipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	if !ok {
		return models.Equipment{}, workflow.NotFound("equipment %s", id.Hex())
	}
	return e, nil
}

func (s *MemEquipmentStore) GetByAssetTag(ctx context.Context, tag string) (models.Equipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.items {
		if e.AssetTag == tag {
			return e, nil
		}
	}
	return models.Equipment{}, workflow.NotFound("equipment with asset tag %q", tag)
}

func (s *MemEquipmentStore) Update(ctx context.Context, e models.Equipment) (models.Equipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.FailUpdate; err != nil {
		s.FailUpdate = nil
		return models.Equipment{}, err
	}
	if _, ok := s.items[e.ID]; !ok {
		return models.Equipment{}, workflow.NotFound("equipment %s", e.ID.Hex())
	}
	s.items[e.ID] = e
	return e, nil
}

func (s *MemEquipmentStore) ListByDepartment(ctx context.Context, deptID primitive.ObjectID) ([]models.Equipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Equipment
	for _, e := range s.items {
		if e.DepartmentID != nil && *e.DepartmentID == deptID {
			out = append(out, e)
		}
	}
	return out, nil
}

// MemTransferStore is an in-memory workflow.TransferStore.
type MemTransferStore struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]models.Assignment
}

// NewMemTransferStore creates an empty in-memory transfer store.
func NewMemTransferStore() *MemTransferStore {
	return &MemTransferStore{items: make(map[primitive.ObjectID]models.Assignment)}
}

func (s *MemTransferStore) Create(ctx context.Context, a models.Assignment) (models.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	s.items[a.ID] = a
	return a, nil
}

func (s *MemTransferStore) GetByID(ctx context.Context, id primitive.ObjectID) (models.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.items[id]
	if !ok {
		return models.Assignment{}, workflow.NotFound("transfer %s", id.Hex())
	}
	return a, nil
}

func (s *MemTransferStore) Update(ctx context.Context, a models.Assignment) (models.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[a.ID]; !ok {
		return models.Assignment{}, workflow.NotFound("transfer %s", a.ID.Hex())
	}
	s.items[a.ID] = a
	return a, nil
}

func (s *MemTransferStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return workflow.NotFound("transfer %s", id.Hex())
	}
	delete(s.items, id)
	return nil
}

// Len reports how many transfer records the store holds.
func (s *MemTransferStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// MemSessionStore is an in-memory workflow.SessionStore.
type MemSessionStore struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]models.AuditSession
}

// NewMemSessionStore creates an empty in-memory audit session store.
func NewMemSessionStore() *MemSessionStore {
	return &MemSessionStore{items: make(map[primitive.ObjectID]models.AuditSession)}
}

func (s *MemSessionStore) Create(ctx context.Context, sess models.AuditSession) (models.AuditSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.ID.IsZero() {
		sess.ID = primitive.NewObjectID()
	}
	s.items[sess.ID] = sess
	return sess, nil
}

func (s *MemSessionStore) GetByID(ctx context.Context, id primitive.ObjectID) (models.AuditSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.items[id]
	if !ok {
		return models.AuditSession{}, workflow.NotFound("audit session %s", id.Hex())
	}
	return sess, nil
}

func (s *MemSessionStore) GetActiveByDepartment(ctx context.Context, deptID primitive.ObjectID) (models.AuditSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.items {
		if sess.DepartmentID == deptID && sess.Status != models.AuditCompleted {
			return sess, nil
		}
	}
	return models.AuditSession{}, workflow.NotFound("active audit session for department %s", deptID.Hex())
}

func (s *MemSessionStore) Update(ctx context.Context, sess models.AuditSession) (models.AuditSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[sess.ID]; !ok {
		return models.AuditSession{}, workflow.NotFound("audit session %s", sess.ID.Hex())
	}
	s.items[sess.ID] = sess
	return sess, nil
}

func (s *MemSessionStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return workflow.NotFound("audit session %s", id.Hex())
	}
	delete(s.items, id)
	return nil
}

// Len reports how many session records the store holds.
func (s *MemSessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
