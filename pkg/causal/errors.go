package causal

import (
	"fmt"
	"strings"

	"github.com/unisdr/delta/pkg/contracts"
)

// SelfReferenceError rejects an event as its own cause.
type SelfReferenceError struct {
	EventID string
	Label   string
}

func (e *SelfReferenceError) Error() string {
	return fmt.Sprintf("%q cannot be caused by itself", e.Label)
}

func (e *SelfReferenceError) Is(target error) bool { return target == contracts.ErrValidation }

// CycleError rejects an edge that would close a caused_by cycle.
type CycleError struct {
	ChildID     string
	ParentID    string
	ChildLabel  string
	ParentLabel string
	Direct      bool
	// Chain holds the labels of the cycle in cause order, starting and
	// ending at the child.
	Chain []string
}

func (e *CycleError) Error() string {
	return e.Explanation()
}

// Explanation renders the cycle for people, distinguishing a direct loop from
// one that closes through intermediate events.
func (e *CycleError) Explanation() string {
	if e.Direct {
		return fmt.Sprintf(
			"cannot set %q as the cause of %q: %q is already caused by %q, which would create a direct circular relationship",
			e.ParentLabel, e.ChildLabel, e.ParentLabel, e.ChildLabel,
		)
	}
	return fmt.Sprintf(
		"cannot set %q as the cause of %q: %q is indirectly caused by %q, which would create a circular chain (%s)",
		e.ParentLabel, e.ChildLabel, e.ParentLabel, e.ChildLabel, strings.Join(e.Chain, " → "),
	)
}

func (e *CycleError) Is(target error) bool { return target == contracts.ErrValidation }

// TemporalOrderError rejects a parent that starts after its child.
type TemporalOrderError struct {
	ParentID    string
	ChildID     string
	ParentLabel string
	ChildLabel  string

	// Display dates keep the stored precision; normalized dates are the
	// YYYY-MM-DD values actually compared.
	ParentDate           string
	ChildDate            string
	ParentNormalizedDate string
	ChildNormalizedDate  string
}

func (e *TemporalOrderError) Error() string {
	return fmt.Sprintf(
		"%q (starts %s) cannot be the cause of %q (starts %s) because it starts later",
		e.ParentLabel, e.ParentDate, e.ChildLabel, e.ChildDate,
	)
}

func (e *TemporalOrderError) Is(target error) bool { return target == contracts.ErrValidation }
