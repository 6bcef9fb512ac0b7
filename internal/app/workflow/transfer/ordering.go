// internal/app/workflow/transfer/ordering.go
package transfer

import "github.com/dalemusser/equiphub/internal/domain/models"

// The approval order depends on the transfer direction:
//
//	assign: IT -> Manager -> User
//	return: IT -> User -> Manager
//
// IT has no prerequisite in either direction. The rule is kept as data (a
// prerequisite predicate per actor, indexed by action) rather than control
// flow, so each actor/action pair is testable on its own.

type prerequisite func(v models.Validation) bool

func noPrereq(models.Validation) bool   { return true }
func afterIT(v models.Validation) bool  { return v.IT }
func afterITManager(v models.Validation) bool { return v.IT && v.Manager }
func afterITUser(v models.Validation) bool    { return v.IT && v.User }

var approvalOrder = map[models.AssignmentAction]map[Actor]prerequisite{
	models.ActionAssign: {
		ActorIT:      noPrereq,
		ActorManager: afterIT,
		ActorUser:    afterITManager,
	},
	models.ActionReturn: {
		ActorIT:      noPrereq,
		ActorUser:    afterIT,
		ActorManager: afterITUser,
	},
}

// canApprove reports whether the actor's prerequisite is met for the given
// action under the current validation ledger.
func canApprove(action models.AssignmentAction, actor Actor, v models.Validation) bool {
	byActor, ok := approvalOrder[action]
	if !ok {
		return false
	}
	prereq, ok := byActor[actor]
	if !ok {
		return false
	}
	return prereq(v)
}
