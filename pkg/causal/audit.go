package causal

import (
	"sort"

	"github.com/unisdr/delta/pkg/contracts"
)

// AuditReport lists integrity violations found in a full edge set.
type AuditReport struct {
	// Cycles holds each cycle found, as node ids in caused_by order.
	Cycles [][]string
	// MultiParent maps children with more than one caused_by parent to
	// those parents.
	MultiParent map[string][]string
	Edges       int
}

// OK reports whether the edge set is a valid forest.
func (r AuditReport) OK() bool {
	return len(r.Cycles) == 0 && len(r.MultiParent) == 0
}

// Audit checks the whole caused_by edge set without any depth bound.
func Audit(edges []contracts.CausalEdge) AuditReport {
	parents := make(map[string][]string)
	for _, e := range edges {
		if !e.IsCausedBy() {
			continue
		}
		parents[e.ChildID] = append(parents[e.ChildID], e.ParentID)
	}

	report := AuditReport{MultiParent: make(map[string][]string), Edges: len(edges)}
	nodes := make([]string, 0, len(parents))
	for child, ps := range parents {
		nodes = append(nodes, child)
		if len(ps) > 1 {
			sorted := append([]string(nil), ps...)
			sort.Strings(sorted)
			report.MultiParent[child] = sorted
		}
	}
	sort.Strings(nodes)

	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int)

	for _, root := range nodes {
		if color[root] != white {
			continue
		}
		stack := []frame{{node: root}}
		color[root] = grey
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			ps := parents[top.node]
			if top.next >= len(ps) {
				color[top.node] = black
				stack = stack[:len(stack)-1]
				continue
			}
			p := ps[top.next]
			top.next++
			switch color[p] {
			case white:
				color[p] = grey
				stack = append(stack, frame{node: p})
			case grey:
				report.Cycles = append(report.Cycles, cycleFromStack(stack, p))
			}
		}
	}
	return report
}

type frame struct {
	node string
	next int
}

// cycleFromStack returns the stack suffix from start to the top, which is the
// cycle just closed in caused_by order.
func cycleFromStack(stack []frame, start string) []string {
	var cycle []string
	for i := len(stack) - 1; i >= 0; i-- {
		cycle = append(cycle, stack[i].node)
		if stack[i].node == start {
			break
		}
	}
	return cycle
}

// HasCycle reports whether the caused_by edge set contains any cycle.
func HasCycle(edges []contracts.CausalEdge) bool {
	return len(Audit(edges).Cycles) > 0
}
