// internal/app/workflow/audit/engine.go

// Package audit implements the physical audit session workflow: scanning a
// department's equipment and reconciling what was found against what the
// registry expects.
//
// Sessions move in_progress -> paused -> in_progress freely, terminate at
// completed, or disappear entirely on cancel. Cancellation deleting the
// session (rather than marking it) is deliberate: a cancelled audit leaves
// no half-finished counts behind to confuse the next one.
package audit

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/equiphub/internal/app/workflow"
	"github.com/dalemusser/equiphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Engine is the audit session state machine.
type Engine struct {
	equipment workflow.EquipmentStore
	sessions  workflow.SessionStore
	locks     *workflow.KeyedLocks
	now       func() time.Time
}

// New constructs an Engine. The lock table should be the same one the
// transfer engine uses so equipment relocation during an audit serializes
// with custody transfers on the same item.
func New(equipment workflow.EquipmentStore, sessions workflow.SessionStore, locks *workflow.KeyedLocks) *Engine {
	return &Engine{
		equipment: equipment,
		sessions:  sessions,
		locks:     locks,
		now:       time.Now,
	}
}

// ScanOutcome classifies what a scan (or relocation decision) did.
type ScanOutcome string

const (
	// ScanConfirmed: the item belongs to the audited department and was
	// added to the confirmed set.
	ScanConfirmed ScanOutcome = "confirmed"
	// ScanAlreadyConfirmed: benign repeat scan; the confirmed set is unchanged.
	ScanAlreadyConfirmed ScanOutcome = "already_confirmed"
	// ScanRelocationCandidate: the item is registered to a different
	// department. Nothing was recorded; the operator must confirm or
	// decline the relocation.
	ScanRelocationCandidate ScanOutcome = "relocation_candidate"
	// ScanRelocated: relocation confirmed; the item now belongs to the
	// audited department and is in the confirmed set.
	ScanRelocated ScanOutcome = "relocated"
	// ScanUnexpected: relocation declined; the item was recorded as an
	// unexpected find with its original location and stays registered
	// where it was.
	ScanUnexpected ScanOutcome = "unexpected"
)

// ScanResult is the outcome of a scan against a session.
type ScanResult struct {
	Outcome   ScanOutcome
	Session   models.AuditSession
	Equipment models.Equipment

	// PreviousDepartmentID is set on ScanRelocated: the department the
	// item was registered to before the relocation.
	PreviousDepartmentID *primitive.ObjectID
}

// Start opens an audit for the department, or resumes the department's
// existing non-terminal session instead of creating a duplicate. The
// returned bool is true when an existing session was resumed.
func (e *Engine) Start(ctx context.Context, departmentID, startedBy primitive.ObjectID) (models.AuditSession, bool, error) {
	unlock := e.locks.Lock(departmentID.Hex())
	defer unlock()

	now := e.now().UTC()

	s, err := e.sessions.GetActiveByDepartment(ctx, departmentID)
	switch {
	case err == nil:
		s.Status = models.AuditInProgress
		s.UpdatedAt = now
		s, err = e.sessions.Update(ctx, s)
		if err != nil {
			return models.AuditSession{}, false, err
		}
		return s, true, nil
	case errors.Is(err, workflow.ErrNotFound):
		// fall through to create
	default:
		return models.AuditSession{}, false, err
	}

	s = models.AuditSession{
		DepartmentID:    departmentID,
		StartedByUserID: startedBy,
		Status:          models.AuditInProgress,
		ScannedItemIDs:  []primitive.ObjectID{},
		UnexpectedItems: []models.UnexpectedItem{},
		StartedAt:       now,
		UpdatedAt:       now,
	}
	s, err = e.sessions.Create(ctx, s)
	if err != nil {
		return models.AuditSession{}, false, err
	}
	return s, false, nil
}

// Scan resolves an asset tag against the session's department.
//
// Items of the audited department join the confirmed set (idempotently).
// Items of another department are reported as relocation candidates without
// recording anything; the operator then calls ConfirmRelocation or
// DeclineRelocation. An unknown tag fails with ErrNotFound so the caller can
// offer out-of-band registration.
func (e *Engine) Scan(ctx context.Context, sessionID primitive.ObjectID, assetTag string) (ScanResult, error) {
	s, err := e.scannableSession(ctx, sessionID)
	if err != nil {
		return ScanResult{}, err
	}

	unlock := e.locks.Lock(s.DepartmentID.Hex())
	defer unlock()

	s, err = e.scannableSession(ctx, sessionID)
	if err != nil {
		return ScanResult{}, err
	}

	eq, err := e.equipment.GetByAssetTag(ctx, assetTag)
	if err != nil {
		return ScanResult{}, err
	}

	if !eq.InDepartment(s.DepartmentID) {
		return ScanResult{Outcome: ScanRelocationCandidate, Session: s, Equipment: eq}, nil
	}

	if s.Scanned(eq.ID) {
		return ScanResult{Outcome: ScanAlreadyConfirmed, Session: s, Equipment: eq}, nil
	}

	s.ScannedItemIDs = append(s.ScannedItemIDs, eq.ID)
	s.UpdatedAt = e.now().UTC()
	s, err = e.sessions.Update(ctx, s)
	if err != nil {
		return ScanResult{}, err
	}
	return ScanResult{Outcome: ScanConfirmed, Session: s, Equipment: eq}, nil
}

// ConfirmRelocation moves a relocation candidate into the audited department
// (site and department both follow the audited location) and adds it to the
// confirmed set.
func (e *Engine) ConfirmRelocation(ctx context.Context, sessionID primitive.ObjectID, assetTag string, siteID primitive.ObjectID) (ScanResult, error) {
	s, err := e.scannableSession(ctx, sessionID)
	if err != nil {
		return ScanResult{}, err
	}

	unlock := e.locks.Lock(s.DepartmentID.Hex())
	defer unlock()

	s, err = e.scannableSession(ctx, sessionID)
	if err != nil {
		return ScanResult{}, err
	}

	eq, err := e.equipment.GetByAssetTag(ctx, assetTag)
	if err != nil {
		return ScanResult{}, err
	}
	if eq.InDepartment(s.DepartmentID) {
		return ScanResult{}, workflow.PreconditionFailed("equipment %s is already in the audited department", eq.AssetTag)
	}

	previousDept := eq.DepartmentID

	unlockEq := e.locks.Lock(eq.ID.Hex())
	deptID := s.DepartmentID
	sid := siteID
	eq.DepartmentID = &deptID
	eq.SiteID = &sid
	eq, err = e.equipment.Update(ctx, eq)
	unlockEq()
	if err != nil {
		return ScanResult{}, err
	}

	if !s.Scanned(eq.ID) {
		s.ScannedItemIDs = append(s.ScannedItemIDs, eq.ID)
	}
	s.UpdatedAt = e.now().UTC()
	s, err = e.sessions.Update(ctx, s)
	if err != nil {
		return ScanResult{}, err
	}
	return ScanResult{Outcome: ScanRelocated, Session: s, Equipment: eq, PreviousDepartmentID: previousDept}, nil
}

// DeclineRelocation records a relocation candidate as an unexpected find.
// The item keeps its registered location and is not added to the confirmed
// set; the session captures where the item actually belongs from the
// registry, plus an optional operator note.
func (e *Engine) DeclineRelocation(ctx context.Context, sessionID primitive.ObjectID, assetTag, locationNote string) (ScanResult, error) {
	s, err := e.scannableSession(ctx, sessionID)
	if err != nil {
		return ScanResult{}, err
	}

	unlock := e.locks.Lock(s.DepartmentID.Hex())
	defer unlock()

	s, err = e.scannableSession(ctx, sessionID)
	if err != nil {
		return ScanResult{}, err
	}

	eq, err := e.equipment.GetByAssetTag(ctx, assetTag)
	if err != nil {
		return ScanResult{}, err
	}
	if eq.InDepartment(s.DepartmentID) {
		return ScanResult{}, workflow.PreconditionFailed("equipment %s belongs to the audited department", eq.AssetTag)
	}

	for _, u := range s.UnexpectedItems {
		if u.AssetTag == eq.AssetTag {
			return ScanResult{Outcome: ScanUnexpected, Session: s, Equipment: eq}, nil
		}
	}

	s.UnexpectedItems = append(s.UnexpectedItems, models.UnexpectedItem{
		EquipmentID:          eq.ID,
		AssetTag:             eq.AssetTag,
		ModelName:            eq.Model,
		OriginalSiteID:       eq.SiteID,
		OriginalDepartmentID: eq.DepartmentID,
		LocationNote:         locationNote,
	})
	s.UpdatedAt = e.now().UTC()
	s, err = e.sessions.Update(ctx, s)
	if err != nil {
		return ScanResult{}, err
	}
	return ScanResult{Outcome: ScanUnexpected, Session: s, Equipment: eq}, nil
}

// Pause suspends an in-progress session.
func (e *Engine) Pause(ctx context.Context, sessionID primitive.ObjectID) (models.AuditSession, error) {
	return e.transition(ctx, sessionID, models.AuditInProgress, models.AuditPaused)
}

// Resume puts a paused session back in progress.
func (e *Engine) Resume(ctx context.Context, sessionID primitive.ObjectID) (models.AuditSession, error) {
	return e.transition(ctx, sessionID, models.AuditPaused, models.AuditInProgress)
}

// Complete finishes a session and freezes its expected/confirmed math: the
// department's inventory at completion time is snapshotted onto the session,
// so later membership changes cannot retroactively alter its counts.
func (e *Engine) Complete(ctx context.Context, sessionID primitive.ObjectID) (models.AuditSession, error) {
	s, err := e.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return models.AuditSession{}, err
	}

	unlock := e.locks.Lock(s.DepartmentID.Hex())
	defer unlock()

	s, err = e.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return models.AuditSession{}, err
	}
	if s.Terminal() {
		return models.AuditSession{}, workflow.InvalidState("session %s is already completed", s.ID.Hex())
	}

	expected, err := e.equipment.ListByDepartment(ctx, s.DepartmentID)
	if err != nil {
		return models.AuditSession{}, err
	}
	ids := make([]primitive.ObjectID, 0, len(expected))
	for _, eq := range expected {
		ids = append(ids, eq.ID)
	}

	now := e.now().UTC()
	s.Status = models.AuditCompleted
	s.ExpectedItemIDs = ids
	s.UpdatedAt = now
	s.CompletedAt = &now
	return e.sessions.Update(ctx, s)
}

// Cancel discards a non-terminal session outright. Progress is lost by
// design; this is not a terminal status but a deletion.
func (e *Engine) Cancel(ctx context.Context, sessionID primitive.ObjectID) error {
	s, err := e.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}

	unlock := e.locks.Lock(s.DepartmentID.Hex())
	defer unlock()

	s, err = e.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if s.Terminal() {
		return workflow.InvalidState("session %s is completed and cannot be cancelled", s.ID.Hex())
	}

	return e.sessions.Delete(ctx, s.ID)
}

// Get returns a session by id.
func (e *Engine) Get(ctx context.Context, sessionID primitive.ObjectID) (models.AuditSession, error) {
	return e.sessions.GetByID(ctx, sessionID)
}

// scannableSession loads a session and verifies it accepts scans.
func (e *Engine) scannableSession(ctx context.Context, sessionID primitive.ObjectID) (models.AuditSession, error) {
	s, err := e.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return models.AuditSession{}, err
	}
	switch s.Status {
	case models.AuditInProgress:
		return s, nil
	case models.AuditPaused:
		return models.AuditSession{}, workflow.InvalidState("session %s is paused", s.ID.Hex())
	default:
		return models.AuditSession{}, workflow.InvalidState("session %s is %s and no longer accepts scans", s.ID.Hex(), s.Status)
	}
}

func (e *Engine) transition(ctx context.Context, sessionID primitive.ObjectID, from, to models.AuditSessionStatus) (models.AuditSession, error) {
	s, err := e.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return models.AuditSession{}, err
	}

	unlock := e.locks.Lock(s.DepartmentID.Hex())
	defer unlock()

	s, err = e.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return models.AuditSession{}, err
	}
	if s.Status != from {
		return models.AuditSession{}, workflow.InvalidState("session %s is %s, not %s", s.ID.Hex(), s.Status, from)
	}

	s.Status = to
	s.UpdatedAt = e.now().UTC()
	return e.sessions.Update(ctx, s)
}
