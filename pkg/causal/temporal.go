package causal

import (
	"fmt"

	"github.com/unisdr/delta/pkg/contracts"
)

// Ordering is the outcome of a temporal check between a candidate parent and
// a child.
type Ordering struct {
	Valid  bool
	Reason string

	ParentStart PartialDate
	ChildStart  PartialDate
}

// IsCausallyOrdered decides whether parent may cause child: the parent's
// normalized start date must not be after the child's. A missing or
// unreadable start date on either side is vacuously valid.
func IsCausallyOrdered(parent, child contracts.Event) Ordering {
	ps, perr := ParseDate(parent.StartDate)
	cs, cerr := ParseDate(child.StartDate)
	out := Ordering{Valid: true, ParentStart: ps, ChildStart: cs}

	switch {
	case perr != nil || cerr != nil:
		out.Reason = "start date unreadable, ordering not checked"
		return out
	case ps.IsZero() || cs.IsZero():
		out.Reason = "start date missing, ordering not checked"
		return out
	}

	if ps.Normalized().After(cs.Normalized()) {
		out.Valid = false
		out.Reason = fmt.Sprintf(
			"%q (starts %s) cannot be the cause of %q (starts %s) because it starts later",
			Label(parent), ps.Display(), Label(child), cs.Display(),
		)
	}
	return out
}
