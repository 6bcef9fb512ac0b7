// internal/app/workflow/locks.go
package workflow

import "sync"

// KeyedLocks serializes engine commands per entity. Transfers lock on the
// equipment id, audit sessions on the department id, so the two workflows
// never interleave mutations of the same equipment status field.
//
// Locks are created on first use and never discarded; the key space (one
// entry per equipment item or department ever touched) is small enough that
// reclamation is not worth the complexity.
type KeyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewKeyedLocks returns an empty lock table.
func NewKeyedLocks() *KeyedLocks {
	return &KeyedLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key, creating it if needed, and returns the
// unlock function.
//
//	unlock := locks.Lock(eq.ID.Hex())
//	defer unlock()
func (k *KeyedLocks) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
