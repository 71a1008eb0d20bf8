package causal

import (
	"context"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestAcyclicityProperty applies random parent edits and checks that the
// accepted ones never leave a cycle, using the unbounded audit walk rather
// than the checker under test.
func TestAcyclicityProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	const nodes = 6
	properties.Property("accepted edits keep the graph acyclic", prop.ForAll(
		func(children, parents []int) bool {
			ctx := context.Background()
			g := newFakeGraph()
			for i := 0; i < nodes; i++ {
				id := fmt.Sprintf("n%d", i)
				g.events[id] = hazard(id, "", "")
			}
			ed := NewEditor()
			for i := 0; i < len(children) && i < len(parents); i++ {
				child := fmt.Sprintf("n%d", children[i])
				var parent *string
				if parents[i] < nodes {
					p := fmt.Sprintf("n%d", parents[i])
					parent = &p
				}
				_, _ = ed.SetParent(ctx, g, child, parent)
				if HasCycle(g.edges) || !Audit(g.edges).OK() {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, nodes-1)),
		gen.SliceOf(gen.IntRange(0, nodes)),
	))

	properties.Property("self reference always rejects", prop.ForAll(
		func(n int, children, parents []int) bool {
			ctx := context.Background()
			g := newFakeGraph()
			for i := 0; i < nodes; i++ {
				id := fmt.Sprintf("n%d", i)
				g.events[id] = hazard(id, "", "")
			}
			ed := NewEditor()
			for i := 0; i < len(children) && i < len(parents); i++ {
				p := fmt.Sprintf("n%d", parents[i])
				_, _ = ed.SetParent(ctx, g, fmt.Sprintf("n%d", children[i]), &p)
			}
			self := fmt.Sprintf("n%d", n)
			_, err := ed.SetParent(ctx, g, self, &self)
			_, ok := err.(*SelfReferenceError)
			return ok
		},
		gen.IntRange(0, nodes-1),
		gen.SliceOf(gen.IntRange(0, nodes-1)),
		gen.SliceOf(gen.IntRange(0, nodes-1)),
	))

	properties.TestingRun(t)
}

func TestTemporalOrderingProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("ordering agrees with normalized year-month comparison", prop.ForAll(
		func(py, pm, cy, cm int) bool {
			parent := hazard("p", fmt.Sprintf("%04d-%02d", py, pm), "")
			child := hazard("c", fmt.Sprintf("%04d-%02d", cy, cm), "")
			want := py < cy || (py == cy && pm <= cm)
			return IsCausallyOrdered(parent, child).Valid == want
		},
		gen.IntRange(1900, 2100), gen.IntRange(1, 12),
		gen.IntRange(1900, 2100), gen.IntRange(1, 12),
	))

	properties.Property("a missing date never blocks", prop.ForAll(
		func(y int) bool {
			dated := hazard("d", fmt.Sprintf("%04d", y), "")
			undated := hazard("u", "", "")
			return IsCausallyOrdered(dated, undated).Valid && IsCausallyOrdered(undated, dated).Valid
		},
		gen.IntRange(1900, 2100),
	))

	properties.TestingRun(t)
}
