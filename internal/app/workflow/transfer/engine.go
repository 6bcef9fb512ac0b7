// internal/app/workflow/transfer/engine.go

// Package transfer implements the custody transfer approval workflow: the
// three-party, order-dependent protocol that gates every hand-out (assign)
// and hand-back (return) of an equipment item.
//
// Every command checks all of its preconditions before mutating anything,
// runs under the per-equipment lock, and either fully succeeds or returns a
// typed workflow error with both records untouched. The assignment record
// is written before the equipment record, so full approval flips
// Assignment.Status and Equipment.Status as one observable unit.
package transfer

import (
	"context"
	"time"

	"github.com/dalemusser/equiphub/internal/app/workflow"
	"github.com/dalemusser/equiphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Engine is the custody transfer state machine.
type Engine struct {
	equipment workflow.EquipmentStore
	transfers workflow.TransferStore
	locks     *workflow.KeyedLocks
	now       func() time.Time
}

// New constructs an Engine over the given stores. The lock table may be
// shared with other engines so all writers of an equipment item serialize
// on the same mutex.
func New(equipment workflow.EquipmentStore, transfers workflow.TransferStore, locks *workflow.KeyedLocks) *Engine {
	return &Engine{
		equipment: equipment,
		transfers: transfers,
		locks:     locks,
		now:       time.Now,
	}
}

// Result bundles the two records a command touched.
type Result struct {
	Assignment models.Assignment
	Equipment  models.Equipment
}

// CreateParams describes a new custody transfer.
type CreateParams struct {
	Action           models.AssignmentAction
	EquipmentID      primitive.ObjectID
	UserID           primitive.ObjectID
	ManagerID        primitive.ObjectID
	ValidationMethod string
}

// Create opens a transfer for an equipment item and moves the item into
// pending_validation. The item must exist and must not already be gated by
// a pending transfer or decommissioned.
func (e *Engine) Create(ctx context.Context, p CreateParams) (Result, error) {
	if p.Action != models.ActionAssign && p.Action != models.ActionReturn {
		return Result{}, workflow.PreconditionFailed("unknown transfer action %q", p.Action)
	}

	unlock := e.locks.Lock(p.EquipmentID.Hex())
	defer unlock()

	eq, err := e.equipment.GetByID(ctx, p.EquipmentID)
	if err != nil {
		return Result{}, err
	}
	if eq.Status == models.StatusPendingValidation {
		return Result{}, workflow.PreconditionFailed("equipment %s already has a pending transfer", eq.AssetTag)
	}
	if eq.Status == models.StatusDecommissioned {
		return Result{}, workflow.PreconditionFailed("equipment %s is decommissioned", eq.AssetTag)
	}

	a := models.Assignment{
		Action:           p.Action,
		EquipmentID:      p.EquipmentID,
		UserID:           p.UserID,
		ManagerID:        p.ManagerID,
		Status:           models.AssignmentPending,
		ValidationMethod: p.ValidationMethod,
		CreatedAt:        e.now().UTC(),
	}
	a, err = e.transfers.Create(ctx, a)
	if err != nil {
		return Result{}, err
	}

	eq.Status = models.StatusPendingValidation
	eq.PendingAssignmentID = &a.ID
	eq, err = e.equipment.Update(ctx, eq)
	if err != nil {
		// Compensate so the item is not left referencing a half-created
		// transfer. Under the equipment lock nobody has seen the record yet.
		_ = e.transfers.Delete(ctx, a.ID)
		return Result{}, err
	}

	return Result{Assignment: a, Equipment: eq}, nil
}

// Approve records one actor's approval. The actor's prerequisite under the
// ordering rule must hold and the actor's boolean must currently be false;
// anything else fails with ErrPreconditionFailed and mutates nothing.
//
// The approval that completes the ledger also flips the transfer to approved
// and the equipment to assigned (for assign) or available (for return).
func (e *Engine) Approve(ctx context.Context, assignmentID primitive.ObjectID, actor Actor, approverID primitive.ObjectID) (Result, error) {
	if !actor.Valid() {
		return Result{}, workflow.PreconditionFailed("unknown validation actor %q", actor)
	}

	a, err := e.transfers.GetByID(ctx, assignmentID)
	if err != nil {
		return Result{}, err
	}

	unlock := e.locks.Lock(a.EquipmentID.Hex())
	defer unlock()

	// Re-read under the lock; the record may have changed while we waited.
	a, err = e.transfers.GetByID(ctx, assignmentID)
	if err != nil {
		return Result{}, err
	}
	if a.Status != models.AssignmentPending {
		return Result{}, workflow.PreconditionFailed("transfer %s is %s, not pending", a.ID.Hex(), a.Status)
	}
	if actorApproved(a.Validation, actor) {
		return Result{}, workflow.PreconditionFailed("%s has already approved transfer %s", actor, a.ID.Hex())
	}
	if !canApprove(a.Action, actor, a.Validation) {
		return Result{}, workflow.PreconditionFailed("%s may not approve %s transfer %s yet", actor, a.Action, a.ID.Hex())
	}

	eq, err := e.equipment.GetByID(ctx, a.EquipmentID)
	if err != nil {
		return Result{}, err
	}

	setApproval(&a, actor, approverID, e.now().UTC())

	if a.Validation.Complete() {
		a.Status = models.AssignmentApproved
		a, err = e.transfers.Update(ctx, a)
		if err != nil {
			return Result{}, err
		}

		eq.PendingAssignmentID = nil
		if a.Action == models.ActionAssign {
			eq.Status = models.StatusAssigned
			uid := a.UserID
			eq.HolderUserID = &uid
		} else {
			eq.Status = models.StatusAvailable
			eq.HolderUserID = nil
		}
		eq, err = e.equipment.Update(ctx, eq)
		if err != nil {
			return Result{}, err
		}
		return Result{Assignment: a, Equipment: eq}, nil
	}

	a, err = e.transfers.Update(ctx, a)
	if err != nil {
		return Result{}, err
	}
	return Result{Assignment: a, Equipment: eq}, nil
}

// Reject closes a non-terminal transfer and hard-resets custody: the
// equipment returns to available, the collected approvals are discarded,
// and the pending back-reference is cleared. Only the rejection reason
// stays on the record.
func (e *Engine) Reject(ctx context.Context, assignmentID primitive.ObjectID, reason string) (Result, error) {
	a, err := e.transfers.GetByID(ctx, assignmentID)
	if err != nil {
		return Result{}, err
	}

	unlock := e.locks.Lock(a.EquipmentID.Hex())
	defer unlock()

	a, err = e.transfers.GetByID(ctx, assignmentID)
	if err != nil {
		return Result{}, err
	}
	if a.Terminal() {
		return Result{}, workflow.PreconditionFailed("transfer %s is already %s", a.ID.Hex(), a.Status)
	}

	eq, err := e.equipment.GetByID(ctx, a.EquipmentID)
	if err != nil {
		return Result{}, err
	}

	a.Status = models.AssignmentRejected
	a.RejectionReason = reason
	a.Validation = models.Validation{}
	a.ValidatedBy = models.ValidationAttribution{}
	a, err = e.transfers.Update(ctx, a)
	if err != nil {
		return Result{}, err
	}

	eq.Status = models.StatusAvailable
	eq.PendingAssignmentID = nil
	eq, err = e.equipment.Update(ctx, eq)
	if err != nil {
		return Result{}, err
	}

	return Result{Assignment: a, Equipment: eq}, nil
}

// Revert unwinds one actor's approval: the boolean and its attribution are
// cleared. A fully approved transfer whose ledger is no longer complete
// drops back to pending, and the equipment re-enters pending_validation with
// its back-reference restored. This is the one path out of a terminal-looking
// state, and it is explicit and attributed in the event log by the caller.
func (e *Engine) Revert(ctx context.Context, assignmentID primitive.ObjectID, actor Actor) (Result, error) {
	if !actor.Valid() {
		return Result{}, workflow.PreconditionFailed("unknown validation actor %q", actor)
	}

	a, err := e.transfers.GetByID(ctx, assignmentID)
	if err != nil {
		return Result{}, err
	}

	unlock := e.locks.Lock(a.EquipmentID.Hex())
	defer unlock()

	a, err = e.transfers.GetByID(ctx, assignmentID)
	if err != nil {
		return Result{}, err
	}
	if a.Status == models.AssignmentRejected {
		return Result{}, workflow.PreconditionFailed("transfer %s is rejected; use restore instead", a.ID.Hex())
	}
	if !actorApproved(a.Validation, actor) {
		return Result{}, workflow.PreconditionFailed("%s has not approved transfer %s", actor, a.ID.Hex())
	}

	eq, err := e.equipment.GetByID(ctx, a.EquipmentID)
	if err != nil {
		return Result{}, err
	}

	wasApproved := a.Status == models.AssignmentApproved
	if wasApproved {
		// Reopening an approved transfer puts the equipment back into
		// pending_validation, which requires the item to be free. A newer
		// pending transfer or a decommission must not lose its gate.
		if eq.Status == models.StatusPendingValidation {
			return Result{}, workflow.PreconditionFailed("equipment %s is gated by another pending transfer", eq.AssetTag)
		}
		if eq.Status == models.StatusDecommissioned {
			return Result{}, workflow.PreconditionFailed("equipment %s is decommissioned", eq.AssetTag)
		}
	}

	clearApproval(&a, actor)

	if wasApproved {
		a.Status = models.AssignmentPending
	}
	a, err = e.transfers.Update(ctx, a)
	if err != nil {
		return Result{}, err
	}

	if wasApproved {
		eq.Status = models.StatusPendingValidation
		aid := a.ID
		eq.PendingAssignmentID = &aid
		eq.HolderUserID = nil
		eq, err = e.equipment.Update(ctx, eq)
		if err != nil {
			return Result{}, err
		}
	}

	return Result{Assignment: a, Equipment: eq}, nil
}

// RestoreRejected re-opens a mistakenly rejected transfer instead of
// creating a duplicate record. Validation is cleared back to the initial
// ledger and the equipment re-enters pending_validation, which requires the
// item to be free: a newer pending transfer or a decommission blocks restore.
func (e *Engine) RestoreRejected(ctx context.Context, assignmentID primitive.ObjectID) (Result, error) {
	a, err := e.transfers.GetByID(ctx, assignmentID)
	if err != nil {
		return Result{}, err
	}

	unlock := e.locks.Lock(a.EquipmentID.Hex())
	defer unlock()

	a, err = e.transfers.GetByID(ctx, assignmentID)
	if err != nil {
		return Result{}, err
	}
	if a.Status != models.AssignmentRejected {
		return Result{}, workflow.PreconditionFailed("transfer %s is %s, not rejected", a.ID.Hex(), a.Status)
	}

	eq, err := e.equipment.GetByID(ctx, a.EquipmentID)
	if err != nil {
		return Result{}, err
	}
	if eq.Status == models.StatusPendingValidation {
		return Result{}, workflow.PreconditionFailed("equipment %s is gated by another pending transfer", eq.AssetTag)
	}
	if eq.Status == models.StatusDecommissioned {
		return Result{}, workflow.PreconditionFailed("equipment %s is decommissioned", eq.AssetTag)
	}

	a.Status = models.AssignmentPending
	a.RejectionReason = ""
	a.Validation = models.Validation{}
	a.ValidatedBy = models.ValidationAttribution{}
	a, err = e.transfers.Update(ctx, a)
	if err != nil {
		return Result{}, err
	}

	eq.Status = models.StatusPendingValidation
	aid := a.ID
	eq.PendingAssignmentID = &aid
	eq, err = e.equipment.Update(ctx, eq)
	if err != nil {
		return Result{}, err
	}

	return Result{Assignment: a, Equipment: eq}, nil
}

// Get returns a transfer record by id.
func (e *Engine) Get(ctx context.Context, assignmentID primitive.ObjectID) (models.Assignment, error) {
	return e.transfers.GetByID(ctx, assignmentID)
}

func actorApproved(v models.Validation, actor Actor) bool {
	switch actor {
	case ActorIT:
		return v.IT
	case ActorManager:
		return v.Manager
	case ActorUser:
		return v.User
	}
	return false
}

func setApproval(a *models.Assignment, actor Actor, approverID primitive.ObjectID, at time.Time) {
	id := approverID
	switch actor {
	case ActorIT:
		a.Validation.IT = true
		a.ValidatedBy.IT = &id
		a.ValidatedBy.ITAt = &at
	case ActorManager:
		a.Validation.Manager = true
		a.ValidatedBy.Manager = &id
		a.ValidatedBy.ManagerAt = &at
	case ActorUser:
		a.Validation.User = true
		a.ValidatedBy.User = &id
		a.ValidatedBy.UserAt = &at
	}
}

func clearApproval(a *models.Assignment, actor Actor) {
	switch actor {
	case ActorIT:
		a.Validation.IT = false
		a.ValidatedBy.IT = nil
		a.ValidatedBy.ITAt = nil
	case ActorManager:
		a.Validation.Manager = false
		a.ValidatedBy.Manager = nil
		a.ValidatedBy.ManagerAt = nil
	case ActorUser:
		a.Validation.User = false
		a.ValidatedBy.User = nil
		a.ValidatedBy.UserAt = nil
	}
}
