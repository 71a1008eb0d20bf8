// Package memstore is an in-memory store.Store.
//
// Transactions run one at a time against a private copy of the data that
// replaces the committed state only when the callback succeeds.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/unisdr/delta/pkg/contracts"
	"github.com/unisdr/delta/pkg/store"
)

type recordKey struct {
	entityType contracts.EntityType
	id         string
}

type state struct {
	records     map[recordKey]contracts.ApprovableRecord
	edges       []contracts.CausalEdge
	assignments []contracts.ValidationAssignment
}

func (s *state) clone() *state {
	c := &state{
		records:     make(map[recordKey]contracts.ApprovableRecord, len(s.records)),
		edges:       append([]contracts.CausalEdge(nil), s.edges...),
		assignments: append([]contracts.ValidationAssignment(nil), s.assignments...),
	}
	for k, v := range s.records {
		c.records[k] = v
	}
	return c
}

// Store is an in-memory store.Store.
type Store struct {
	mu     sync.Mutex
	data   *state
	faults map[string]error
}

var _ store.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		data:   &state{records: make(map[recordKey]contracts.ApprovableRecord)},
		faults: make(map[string]error),
	}
}

// InjectFault makes the named Tx method fail with err until cleared with a
// nil err.
func (s *Store) InjectFault(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, method)
		return
	}
	s.faults[method] = err
}

// PutRecord inserts or replaces a record outside any transaction.
func (s *Store) PutRecord(rec contracts.ApprovableRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.Status == "" {
		rec.Status = contracts.StatusDraft
	}
	s.data.records[recordKey{rec.EntityType, rec.ID}] = rec
}

// PutEdge inserts an edge outside any transaction.
func (s *Store) PutEdge(edge contracts.CausalEdge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if edge.Type == "" {
		edge.Type = contracts.RelationCausedBy
	}
	s.data.edges = append(s.data.edges, edge)
}

// Record returns the committed record.
func (s *Store) Record(entityType contracts.EntityType, id string) (contracts.ApprovableRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.data.records[recordKey{entityType, id}]
	return rec, ok
}

// Edges returns the committed edge set.
func (s *Store) Edges() []contracts.CausalEdge {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]contracts.CausalEdge(nil), s.data.edges...)
}

// Assignments returns the committed assignments of one entity.
func (s *Store) Assignments(entityType contracts.EntityType, id string) []contracts.ValidationAssignment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return filterAssignments(s.data.assignments, id, entityType)
}

// WithTx runs fn against a private copy of the data and commits it when fn
// returns nil.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	t := &tx{data: s.data.clone(), faults: s.faults}
	if err := fn(ctx, t); err != nil {
		return err
	}
	s.data = t.data
	return nil
}

type tx struct {
	data   *state
	faults map[string]error
}

func (t *tx) fault(method string) error {
	return t.faults[method]
}

func (t *tx) Edges(_ context.Context, nodeID string) ([]contracts.CausalEdge, error) {
	if err := t.fault("Edges"); err != nil {
		return nil, err
	}
	var out []contracts.CausalEdge
	for _, e := range t.data.edges {
		if e.ParentID == nodeID || e.ChildID == nodeID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (t *tx) AllEdges(_ context.Context) ([]contracts.CausalEdge, error) {
	if err := t.fault("AllEdges"); err != nil {
		return nil, err
	}
	return append([]contracts.CausalEdge(nil), t.data.edges...), nil
}

func (t *tx) Event(_ context.Context, id string) (contracts.Event, error) {
	if err := t.fault("Event"); err != nil {
		return contracts.Event{}, err
	}
	rec, ok := t.data.records[recordKey{contracts.EntityHazardousEvent, id}]
	if !ok {
		return contracts.Event{}, contracts.NotFound(string(contracts.EntityHazardousEvent), id)
	}
	return rec.Event(), nil
}

func (t *tx) InsertEdge(_ context.Context, edge contracts.CausalEdge) error {
	if err := t.fault("InsertEdge"); err != nil {
		return err
	}
	for _, e := range t.data.edges {
		if e.ID == edge.ID {
			return fmt.Errorf("edge %s already exists", edge.ID)
		}
	}
	t.data.edges = append(t.data.edges, edge)
	return nil
}

func (t *tx) DeleteEdgesByChild(_ context.Context, childID string) error {
	if err := t.fault("DeleteEdgesByChild"); err != nil {
		return err
	}
	kept := make([]contracts.CausalEdge, 0, len(t.data.edges))
	for _, e := range t.data.edges {
		if e.ChildID == childID && e.IsCausedBy() {
			continue
		}
		kept = append(kept, e)
	}
	t.data.edges = kept
	return nil
}

func (t *tx) GetRecord(_ context.Context, entityType contracts.EntityType, id string) (contracts.ApprovableRecord, error) {
	if err := t.fault("GetRecord"); err != nil {
		return contracts.ApprovableRecord{}, err
	}
	rec, ok := t.data.records[recordKey{entityType, id}]
	if !ok {
		return contracts.ApprovableRecord{}, contracts.NotFound(string(entityType), id)
	}
	return rec, nil
}

func (t *tx) UpdateRecord(_ context.Context, entityType contracts.EntityType, id string, patch contracts.RecordPatch) error {
	if err := t.fault("UpdateRecord"); err != nil {
		return err
	}
	key := recordKey{entityType, id}
	rec, ok := t.data.records[key]
	if !ok {
		return contracts.NotFound(string(entityType), id)
	}
	t.data.records[key] = rec.Apply(patch)
	return nil
}

func (t *tx) InsertAssignments(_ context.Context, rows []contracts.ValidationAssignment) error {
	if err := t.fault("InsertAssignments"); err != nil {
		return err
	}
	for _, r := range rows {
		for _, a := range t.data.assignments {
			if a.EntityID == r.EntityID && a.EntityType == r.EntityType && a.AssignedToUserID == r.AssignedToUserID {
				return fmt.Errorf("duplicate assignment of %s to %s %s", r.AssignedToUserID, r.EntityType, r.EntityID)
			}
		}
		t.data.assignments = append(t.data.assignments, r)
	}
	return nil
}

func (t *tx) DeleteAssignments(_ context.Context, entityID string, entityType contracts.EntityType) error {
	if err := t.fault("DeleteAssignments"); err != nil {
		return err
	}
	kept := make([]contracts.ValidationAssignment, 0, len(t.data.assignments))
	for _, a := range t.data.assignments {
		if a.EntityID == entityID && a.EntityType == entityType {
			continue
		}
		kept = append(kept, a)
	}
	t.data.assignments = kept
	return nil
}

func (t *tx) ListAssignments(_ context.Context, entityID string, entityType contracts.EntityType) ([]contracts.ValidationAssignment, error) {
	if err := t.fault("ListAssignments"); err != nil {
		return nil, err
	}
	return filterAssignments(t.data.assignments, entityID, entityType), nil
}

func filterAssignments(all []contracts.ValidationAssignment, entityID string, entityType contracts.EntityType) []contracts.ValidationAssignment {
	var out []contracts.ValidationAssignment
	for _, a := range all {
		if a.EntityID == entityID && a.EntityType == entityType {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssignedToUserID < out[j].AssignedToUserID })
	return out
}
