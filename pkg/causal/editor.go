package causal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/unisdr/delta/pkg/contracts"
)

// Change is the outcome of a parent edit.
type Change struct {
	ChildID          string
	PreviousParentID string
	ParentID         string
}

// Changed reports whether the edit replaced or removed the parent.
func (c Change) Changed() bool {
	return c.PreviousParentID != c.ParentID
}

// Editor applies and removes caused_by edges.
type Editor struct {
	maxDepth int
	newID    func() string
	logger   *slog.Logger
}

// EditorOption configures an Editor.
type EditorOption func(*Editor)

// WithMaxDepth overrides the ancestor walk cutoff.
func WithMaxDepth(depth int) EditorOption {
	return func(e *Editor) { e.maxDepth = depth }
}

// WithIDGenerator overrides edge id generation for deterministic testing.
func WithIDGenerator(fn func() string) EditorOption {
	return func(e *Editor) { e.newID = fn }
}

// WithLogger sets the editor's logger.
func WithLogger(l *slog.Logger) EditorOption {
	return func(e *Editor) { e.logger = l }
}

// NewEditor creates an editor.
func NewEditor(opts ...EditorOption) *Editor {
	e := &Editor{
		maxDepth: DefaultMaxDepth,
		newID:    func() string { return uuid.New().String() },
		logger:   slog.Default().With("component", "causal"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Check runs the preconditions for making parentID the parent of childID
// without writing anything. A nil parentID removes the parent and only
// requires the child to exist.
func (e *Editor) Check(ctx context.Context, g GraphReader, childID string, parentID *string) error {
	if parentID != nil && *parentID == childID {
		label := shortID(childID)
		if child, err := g.Event(ctx, childID); err == nil {
			label = Label(child)
		}
		return &SelfReferenceError{EventID: childID, Label: label}
	}

	child, err := g.Event(ctx, childID)
	if err != nil {
		return err
	}
	if parentID == nil {
		return nil
	}
	parent, err := g.Event(ctx, *parentID)
	if err != nil {
		return err
	}

	res, err := NewCycleChecker(g, e.maxDepth).WouldCreateCycle(ctx, childID, *parentID)
	if err != nil {
		return err
	}
	if res.Cycle {
		return e.cycleError(ctx, g, child, parent, res)
	}

	if ord := IsCausallyOrdered(parent, child); !ord.Valid {
		return &TemporalOrderError{
			ParentID:             parent.ID,
			ChildID:              child.ID,
			ParentLabel:          Label(parent),
			ChildLabel:           Label(child),
			ParentDate:           ord.ParentStart.Display(),
			ChildDate:            ord.ChildStart.Display(),
			ParentNormalizedDate: ord.ParentStart.ISO(),
			ChildNormalizedDate:  ord.ChildStart.ISO(),
		}
	}
	return nil
}

// Apply replaces the caused_by parent of childID. It performs no checks; call
// Check first within the same transaction.
func (e *Editor) Apply(ctx context.Context, g Graph, childID string, parentID *string) (Change, error) {
	prev, err := ParentOf(ctx, g, childID)
	if err != nil {
		return Change{}, err
	}
	change := Change{ChildID: childID, PreviousParentID: prev}

	if err := g.DeleteEdgesByChild(ctx, childID); err != nil {
		return Change{}, fmt.Errorf("remove parent of %s: %w", childID, err)
	}
	if parentID == nil {
		e.logger.DebugContext(ctx, "causal parent removed", "child_id", childID, "previous_parent_id", prev)
		return change, nil
	}

	edge := contracts.CausalEdge{
		ID:       e.newID(),
		ParentID: *parentID,
		ChildID:  childID,
		Type:     contracts.RelationCausedBy,
	}
	if err := g.InsertEdge(ctx, edge); err != nil {
		return Change{}, fmt.Errorf("insert edge %s -> %s: %w", edge.ParentID, edge.ChildID, err)
	}
	change.ParentID = *parentID
	e.logger.DebugContext(ctx, "causal parent set",
		"child_id", childID, "parent_id", *parentID, "previous_parent_id", prev)
	return change, nil
}

// SetParent checks and applies a parent edit on g.
func (e *Editor) SetParent(ctx context.Context, g Graph, childID string, parentID *string) (Change, error) {
	if err := e.Check(ctx, g, childID, parentID); err != nil {
		return Change{}, err
	}
	return e.Apply(ctx, g, childID, parentID)
}

func (e *Editor) cycleError(ctx context.Context, g GraphReader, child, parent contracts.Event, res CycleResult) error {
	// Path runs parent → ... → child along caused_by edges; the cause order
	// is its reverse, closed by the rejected edge back to the child.
	chain := make([]string, 0, len(res.Path)+1)
	for i := len(res.Path) - 1; i >= 0; i-- {
		chain = append(chain, e.labelOf(ctx, g, res.Path[i]))
	}
	chain = append(chain, Label(child))

	return &CycleError{
		ChildID:     child.ID,
		ParentID:    parent.ID,
		ChildLabel:  Label(child),
		ParentLabel: Label(parent),
		Direct:      res.Direct,
		Chain:       chain,
	}
}

func (e *Editor) labelOf(ctx context.Context, g GraphReader, id string) string {
	ev, err := g.Event(ctx, id)
	if err != nil {
		return shortID(id)
	}
	return Label(ev)
}
