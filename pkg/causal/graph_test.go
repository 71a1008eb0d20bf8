package causal

import (
	"context"

	"github.com/unisdr/delta/pkg/contracts"
)

// fakeGraph is a minimal in-memory Graph for package tests.
type fakeGraph struct {
	events map[string]contracts.Event
	edges  []contracts.CausalEdge
	reads  int
}

func newFakeGraph(events ...contracts.Event) *fakeGraph {
	g := &fakeGraph{events: make(map[string]contracts.Event)}
	for _, e := range events {
		g.events[e.ID] = e
	}
	return g
}

func (g *fakeGraph) link(parent, child string) *fakeGraph {
	g.edges = append(g.edges, contracts.CausalEdge{
		ID: parent + ">" + child, ParentID: parent, ChildID: child, Type: contracts.RelationCausedBy,
	})
	return g
}

func (g *fakeGraph) Edges(_ context.Context, nodeID string) ([]contracts.CausalEdge, error) {
	g.reads++
	var out []contracts.CausalEdge
	for _, e := range g.edges {
		if e.ParentID == nodeID || e.ChildID == nodeID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (g *fakeGraph) Event(_ context.Context, id string) (contracts.Event, error) {
	e, ok := g.events[id]
	if !ok {
		return contracts.Event{}, contracts.NotFound("hazardous_event", id)
	}
	return e, nil
}

func (g *fakeGraph) InsertEdge(_ context.Context, edge contracts.CausalEdge) error {
	g.edges = append(g.edges, edge)
	return nil
}

func (g *fakeGraph) DeleteEdgesByChild(_ context.Context, childID string) error {
	kept := g.edges[:0]
	for _, e := range g.edges {
		if !(e.ChildID == childID && e.IsCausedBy()) {
			kept = append(kept, e)
		}
	}
	g.edges = kept
	return nil
}

func hazard(id, start, desc string) contracts.Event {
	return contracts.Event{ID: id, Kind: contracts.EventKindHazardous, StartDate: start, Description: desc}
}
