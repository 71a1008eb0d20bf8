package causal

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/unisdr/delta/pkg/contracts"
)

func edge(parent, child string) contracts.CausalEdge {
	return contracts.CausalEdge{ParentID: parent, ChildID: child, Type: contracts.RelationCausedBy}
}

func TestAudit(t *testing.T) {
	t.Run("forest", func(t *testing.T) {
		r := Audit([]contracts.CausalEdge{edge("A", "B"), edge("B", "C"), edge("A", "D")})
		assert.True(t, r.OK())
		assert.Equal(t, 3, r.Edges)
	})

	t.Run("cycle", func(t *testing.T) {
		r := Audit([]contracts.CausalEdge{edge("A", "B"), edge("B", "C"), edge("C", "A")})
		assert.False(t, r.OK())
		assert.Len(t, r.Cycles, 1)
		assert.ElementsMatch(t, []string{"A", "B", "C"}, r.Cycles[0])
	})

	t.Run("multi parent", func(t *testing.T) {
		r := Audit([]contracts.CausalEdge{edge("B", "C"), edge("A", "C")})
		assert.Equal(t, map[string][]string{"C": {"A", "B"}}, r.MultiParent)
		assert.Empty(t, r.Cycles)
	})

	t.Run("other relation types are ignored", func(t *testing.T) {
		r := Audit([]contracts.CausalEdge{edge("A", "B"), {ParentID: "B", ChildID: "A", Type: "related_to"}})
		assert.True(t, r.OK())
	})

	t.Run("long chain has no depth bound", func(t *testing.T) {
		var edges []contracts.CausalEdge
		for i := 0; i < 50; i++ {
			edges = append(edges, edge(string(rune('A'+i)), string(rune('A'+i+1))))
		}
		edges = append(edges, edge(string(rune('A'+50)), "A"))
		assert.True(t, HasCycle(edges))
	})
}
