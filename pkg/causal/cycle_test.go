package causal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWouldCreateCycle(t *testing.T) {
	ctx := context.Background()
	// A ← B ← C : B caused by A, C caused by B.
	g := newFakeGraph(hazard("A", "", ""), hazard("B", "", ""), hazard("C", "", "")).
		link("A", "B").
		link("B", "C")
	checker := NewCycleChecker(g, 0)

	t.Run("direct", func(t *testing.T) {
		res, err := checker.WouldCreateCycle(ctx, "A", "B")
		require.NoError(t, err)
		assert.True(t, res.Cycle)
		assert.True(t, res.Direct)
		assert.Equal(t, []string{"B", "A"}, res.Path)
	})

	t.Run("indirect", func(t *testing.T) {
		res, err := checker.WouldCreateCycle(ctx, "A", "C")
		require.NoError(t, err)
		assert.True(t, res.Cycle)
		assert.False(t, res.Direct)
		assert.Equal(t, []string{"C", "B", "A"}, res.Path)
	})

	t.Run("no cycle", func(t *testing.T) {
		res, err := checker.WouldCreateCycle(ctx, "C", "A")
		require.NoError(t, err)
		assert.False(t, res.Cycle)
	})

	t.Run("self", func(t *testing.T) {
		res, err := checker.WouldCreateCycle(ctx, "A", "A")
		require.NoError(t, err)
		assert.True(t, res.Cycle)
	})
}

func TestWouldCreateCycle_DepthCutoff(t *testing.T) {
	ctx := context.Background()
	// n0 ← n1 ← ... ← n12
	g := newFakeGraph()
	ids := make([]string, 13)
	for i := range ids {
		ids[i] = string(rune('a' + i))
		g.events[ids[i]] = hazard(ids[i], "", "")
		if i > 0 {
			g.link(ids[i-1], ids[i])
		}
	}

	// Closing n0 ← n12 needs a 12-step walk, beyond the default bound.
	res, err := NewCycleChecker(g, DefaultMaxDepth).WouldCreateCycle(ctx, ids[0], ids[12])
	require.NoError(t, err)
	assert.False(t, res.Cycle, "the bounded walk stops before reaching the child")

	res, err = NewCycleChecker(g, 20).WouldCreateCycle(ctx, ids[0], ids[12])
	require.NoError(t, err)
	assert.True(t, res.Cycle)
	assert.Len(t, res.Path, 13)
}

func TestWouldCreateCycle_ExistingLoopTerminates(t *testing.T) {
	ctx := context.Background()
	// Corrupt data: X and Y cause each other. Walking from X must not spin.
	g := newFakeGraph().link("X", "Y").link("Y", "X")
	res, err := NewCycleChecker(g, 1000).WouldCreateCycle(ctx, "Z", "X")
	require.NoError(t, err)
	assert.False(t, res.Cycle)
	assert.Less(t, g.reads, 5)
}
