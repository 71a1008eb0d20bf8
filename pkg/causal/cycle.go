package causal

import (
	"context"
	"fmt"
)

// DefaultMaxDepth bounds the ancestor walk. Reaching it without meeting the
// child counts as "no cycle".
const DefaultMaxDepth = 10

// CycleResult describes a cycle the candidate edge would close.
type CycleResult struct {
	Cycle bool
	// Direct is set when the candidate parent is already caused by the child.
	Direct bool
	// Path is the ancestor chain from the candidate parent up to and
	// including the child.
	Path []string
}

// CycleChecker walks ancestor chains of the existing graph.
type CycleChecker struct {
	graph    GraphReader
	maxDepth int
}

// NewCycleChecker creates a checker over g. A non-positive maxDepth selects
// DefaultMaxDepth.
func NewCycleChecker(g GraphReader, maxDepth int) *CycleChecker {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &CycleChecker{graph: g, maxDepth: maxDepth}
}

// WouldCreateCycle reports whether making candidateParentID the parent of
// childID closes a cycle.
func (c *CycleChecker) WouldCreateCycle(ctx context.Context, childID, candidateParentID string) (CycleResult, error) {
	if childID == candidateParentID {
		return CycleResult{Cycle: true, Direct: true, Path: []string{childID}}, nil
	}

	// below maps each visited ancestor to the node it was reached from, so a
	// hit can be traced back to the candidate parent.
	below := map[string]string{candidateParentID: ""}
	level := []string{candidateParentID}

	for depth := 0; depth < c.maxDepth && len(level) > 0; depth++ {
		var next []string
		for _, node := range level {
			parents, err := ParentsOf(ctx, c.graph, node)
			if err != nil {
				return CycleResult{}, fmt.Errorf("walk ancestors of %s: %w", node, err)
			}
			for _, p := range parents {
				if p == childID {
					path := append(trace(below, node), childID)
					return CycleResult{Cycle: true, Direct: node == candidateParentID, Path: path}, nil
				}
				if _, seen := below[p]; seen {
					continue
				}
				below[p] = node
				next = append(next, p)
			}
		}
		level = next
	}
	return CycleResult{}, nil
}

// trace rebuilds the chain candidate → ... → node from the below map.
func trace(below map[string]string, node string) []string {
	var rev []string
	for n := node; n != ""; n = below[n] {
		rev = append(rev, n)
	}
	path := make([]string, len(rev))
	for i, n := range rev {
		path[len(rev)-1-i] = n
	}
	return path
}
