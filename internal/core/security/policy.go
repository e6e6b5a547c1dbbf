package security

import (
	"context"
)

// Approver names the staff member authorizing an elevated operation.
// An empty UserID means the current actor approves for themselves.
// A different staff member proves presence with their override PIN.
type Approver struct {
	UserID string `json:"user_id"`
	PIN    string `json:"pin,omitempty"`
}

// Authorizer confirms that an approver holds a privilege.
//
// Implementations return FORBIDDEN when the approver lacks the privilege or the
// PIN does not match, and UNAUTHORIZED when there is no authenticated actor.
// The returned string is the user id recorded as authorizer.
type Authorizer interface {
	Authorize(ctx context.Context, p Privilege, approver Approver) (string, error)
}

// ActorAuthorizer only accepts self-approval by the authenticated actor.
// Used where no staff credential store is configured.
type ActorAuthorizer struct{}

func (ActorAuthorizer) Authorize(ctx context.Context, p Privilege, approver Approver) (string, error) {
	actor, err := CurrentActor(ctx)
	if err != nil {
		return "", err
	}
	if approver.UserID != "" && approver.UserID != actor.UserID {
		return "", Forbidden(p)
	}
	if !ActorHolds(actor, p) {
		return "", Forbidden(p)
	}
	return actor.UserID, nil
}
