// internal/app/workflow/transfer/actor.go
package transfer

import (
	"github.com/dalemusser/equiphub/internal/app/workflow"
	"github.com/dalemusser/equiphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Actor is one of the three required approvers of a custody transfer.
type Actor string

const (
	ActorIT      Actor = "it"
	ActorManager Actor = "manager"
	ActorUser    Actor = "user"
)

// Valid reports whether a is a known actor slot.
func (a Actor) Valid() bool {
	return a == ActorIT || a == ActorManager || a == ActorUser
}

// ResolveActor maps a caller's identity to the actor slot they may fill on
// the given transfer. This is the capability-resolution step: it runs before
// the engine so the engine itself stays free of identity concerns.
//
// Admin and IT roles always fill the IT slot. Otherwise the caller must be
// the transfer's manager or its subject user; the manager slot wins if the
// caller happens to be both.
func ResolveActor(a models.Assignment, callerID primitive.ObjectID, role string) (Actor, error) {
	switch role {
	case "admin", "it":
		return ActorIT, nil
	}
	if callerID == a.ManagerID {
		return ActorManager, nil
	}
	if callerID == a.UserID {
		return ActorUser, nil
	}
	return "", workflow.PreconditionFailed("user %s has no approval role on transfer %s", callerID.Hex(), a.ID.Hex())
}
