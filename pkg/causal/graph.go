package causal

import (
	"context"

	"github.com/unisdr/delta/pkg/contracts"
)

// GraphReader is read access to the causal edge set and the events it links.
type GraphReader interface {
	// Edges returns every edge in which nodeID is the parent or the child.
	Edges(ctx context.Context, nodeID string) ([]contracts.CausalEdge, error)

	// Event returns the hazardous event with the given id or a
	// *contracts.NotFoundError.
	Event(ctx context.Context, id string) (contracts.Event, error)
}

// EdgeWriter mutates the causal edge set.
type EdgeWriter interface {
	InsertEdge(ctx context.Context, edge contracts.CausalEdge) error
	DeleteEdgesByChild(ctx context.Context, childID string) error
}

// Graph is a GraphReader that can also write edges, typically a storage
// transaction.
type Graph interface {
	GraphReader
	EdgeWriter
}

// ParentsOf returns the caused_by parents of nodeID.
func ParentsOf(ctx context.Context, g GraphReader, nodeID string) ([]string, error) {
	edges, err := g.Edges(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	var parents []string
	for _, e := range edges {
		if e.IsCausedBy() && e.ChildID == nodeID {
			parents = append(parents, e.ParentID)
		}
	}
	return parents, nil
}

// ParentOf returns the current caused_by parent of nodeID, or "" when it has
// none.
func ParentOf(ctx context.Context, g GraphReader, nodeID string) (string, error) {
	parents, err := ParentsOf(ctx, g, nodeID)
	if err != nil || len(parents) == 0 {
		return "", err
	}
	return parents[0], nil
}
