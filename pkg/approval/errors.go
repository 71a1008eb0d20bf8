package approval

import (
	"fmt"

	"github.com/unisdr/delta/pkg/contracts"
)

// InvalidTransitionError rejects a workflow action: wrong source status,
// insufficient role, or a missing required payload field.
type InvalidTransitionError struct {
	From   contracts.ApprovalStatus
	Action contracts.Action
	Role   Role
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition %q from %q (role %q): %s", e.Action, e.From, e.Role, e.Reason)
}

func (e *InvalidTransitionError) Is(target error) bool { return target == contracts.ErrValidation }

func reject(from contracts.ApprovalStatus, action contracts.Action, role Role, reason string) error {
	return &InvalidTransitionError{From: from, Action: action, Role: role, Reason: reason}
}
