// Package causal maintains the "caused by" graph between hazardous events.
//
// The graph is a forest: every child has at most one caused_by parent and the
// edge set never contains a cycle. Editor is the only writer. Before an edge
// is written it must pass three checks, in order:
//
//  1. the parent is not the child itself,
//  2. the ancestor chain of the parent does not reach the child
//     (CycleChecker, bounded to a fixed depth),
//  3. the parent does not start after the child (IsCausallyOrdered).
//
// Dates are partial-precision strings ("2021", "2021-06", "2021-06-15").
// A missing date never blocks an edit.
package causal
