// Package approval is the approval-workflow state machine.
//
// Transition is a pure function over a fixed declarative table. It decides
// the next status and lists the side effects the caller must carry out; it
// never touches storage. The role is supplied by the caller, which is
// trusted to have authenticated the actor.
package approval

import (
	"strings"

	"github.com/unisdr/delta/pkg/contracts"
)

// Requirement is a precondition of a rule beyond its source status.
type Requirement int

const (
	RequireValidators Requirement = iota + 1
	RequireValidatorRole
	RequireAdminRole
	RequireComment
)

// Effect is a side effect the caller performs when a transition is accepted.
type Effect int

const (
	EffectSetSubmitted Effect = iota + 1
	EffectClearSubmitted
	EffectSetValidated
	EffectClearValidated
	EffectSetPublished
	EffectClearPublished
	EffectCreateAssignments
	EffectDeleteAssignments
	EffectNotifyValidators
	EffectNotifySubmitter
)

var effectNames = map[Effect]string{
	EffectSetSubmitted:      "set-submitted",
	EffectClearSubmitted:    "clear-submitted",
	EffectSetValidated:      "set-validated",
	EffectClearValidated:    "clear-validated",
	EffectSetPublished:      "set-published",
	EffectClearPublished:    "clear-published",
	EffectCreateAssignments: "create-assignments",
	EffectDeleteAssignments: "delete-assignments",
	EffectNotifyValidators:  "notify-validators",
	EffectNotifySubmitter:   "notify-submitter",
}

func (e Effect) String() string {
	if n, ok := effectNames[e]; ok {
		return n
	}
	return "unknown"
}

// Rule is one row of the transition table.
type Rule struct {
	Action   contracts.Action
	From     []contracts.ApprovalStatus
	Requires []Requirement
	Next     contracts.ApprovalStatus
	Effects  []Effect
}

func (r Rule) allows(s contracts.ApprovalStatus) bool {
	for _, f := range r.From {
		if f == s {
			return true
		}
	}
	return false
}

var table = map[contracts.Action]Rule{
	contracts.ActionSubmitValidation: {
		Action:   contracts.ActionSubmitValidation,
		From:     []contracts.ApprovalStatus{contracts.StatusDraft, contracts.StatusNeedsRevision},
		Requires: []Requirement{RequireValidators},
		Next:     contracts.StatusWaitingForValidation,
		Effects: []Effect{
			EffectSetSubmitted, EffectClearValidated, EffectClearPublished,
			EffectCreateAssignments, EffectNotifyValidators,
		},
	},
	contracts.ActionSubmitDraft: {
		Action: contracts.ActionSubmitDraft,
		From:   contracts.AllStatuses,
		Next:   contracts.StatusDraft,
		Effects: []Effect{
			EffectClearSubmitted, EffectClearValidated, EffectClearPublished,
			EffectDeleteAssignments,
		},
	},
	contracts.ActionSubmitValidate: {
		Action:   contracts.ActionSubmitValidate,
		From:     []contracts.ApprovalStatus{contracts.StatusDraft, contracts.StatusNeedsRevision},
		Requires: []Requirement{RequireValidatorRole},
		Next:     contracts.StatusValidated,
		Effects:  []Effect{EffectSetValidated, EffectClearPublished, EffectDeleteAssignments},
	},
	contracts.ActionSubmitPublish: {
		Action:   contracts.ActionSubmitPublish,
		From:     []contracts.ApprovalStatus{contracts.StatusDraft, contracts.StatusNeedsRevision},
		Requires: []Requirement{RequireAdminRole},
		Next:     contracts.StatusPublished,
		Effects:  []Effect{EffectSetValidated, EffectSetPublished, EffectDeleteAssignments},
	},
	contracts.ActionSubmitReject: {
		Action:   contracts.ActionSubmitReject,
		From:     []contracts.ApprovalStatus{contracts.StatusWaitingForValidation},
		Requires: []Requirement{RequireComment},
		Next:     contracts.StatusNeedsRevision,
		Effects:  []Effect{EffectClearValidated, EffectClearPublished, EffectNotifySubmitter},
	},
	contracts.ActionApprove: {
		Action:   contracts.ActionApprove,
		From:     []contracts.ApprovalStatus{contracts.StatusWaitingForValidation},
		Requires: []Requirement{RequireValidatorRole},
		Next:     contracts.StatusValidated,
		Effects: []Effect{
			EffectSetValidated, EffectClearPublished, EffectDeleteAssignments, EffectNotifySubmitter,
		},
	},
	contracts.ActionPublish: {
		Action:   contracts.ActionPublish,
		From:     []contracts.ApprovalStatus{contracts.StatusValidated},
		Requires: []Requirement{RequireAdminRole},
		Next:     contracts.StatusPublished,
		Effects:  []Effect{EffectSetPublished, EffectDeleteAssignments, EffectNotifySubmitter},
	},
}

// Rules returns a copy of the transition table.
func Rules() map[contracts.Action]Rule {
	out := make(map[contracts.Action]Rule, len(table))
	for k, v := range table {
		out[k] = v
	}
	return out
}

// Input carries the request payload fields that rules may require.
type Input struct {
	ValidatorIDs []string
	Comment      string
}

// Decision is an accepted transition.
type Decision struct {
	From    contracts.ApprovalStatus
	Action  contracts.Action
	Next    contracts.ApprovalStatus
	Effects []Effect
}

// Has reports whether the decision carries effect e.
func (d Decision) Has(e Effect) bool {
	for _, x := range d.Effects {
		if x == e {
			return true
		}
	}
	return false
}

// Transition decides the next status for action requested by an actor with
// role on a record currently in status current. Any pair not in the table is
// rejected with an *InvalidTransitionError.
func Transition(current contracts.ApprovalStatus, action contracts.Action, role Role, in Input) (Decision, error) {
	rule, ok := table[action]
	if !ok {
		return Decision{}, reject(current, action, role, "unknown action")
	}
	if !current.Valid() {
		return Decision{}, reject(current, action, role, "unknown current status")
	}
	if !role.CanEdit() {
		return Decision{}, reject(current, action, role, "role may not change approval status")
	}
	if !rule.allows(current) {
		return Decision{}, reject(current, action, role, "action not allowed from "+string(current))
	}

	for _, req := range rule.Requires {
		switch req {
		case RequireValidators:
			if len(NormalizeIDs(in.ValidatorIDs)) == 0 {
				return Decision{}, reject(current, action, role, "at least one validator is required")
			}
		case RequireValidatorRole:
			if !role.CanValidate() {
				return Decision{}, reject(current, action, role, "validator or admin role required")
			}
		case RequireAdminRole:
			if !role.IsAdmin() {
				return Decision{}, reject(current, action, role, "admin role required")
			}
		case RequireComment:
			if strings.TrimSpace(in.Comment) == "" {
				return Decision{}, reject(current, action, role, "a rejection comment is required")
			}
		}
	}

	return Decision{
		From:    current,
		Action:  action,
		Next:    rule.Next,
		Effects: append([]Effect(nil), rule.Effects...),
	}, nil
}

// NormalizeIDs trims, drops empties and deduplicates ids, keeping first-seen
// order.
func NormalizeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
