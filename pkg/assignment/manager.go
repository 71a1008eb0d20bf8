// Package assignment manages the current validator assignments of approvable
// records. It is a current-state table, not a history: assigning replaces
// the set and clearing removes it.
package assignment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/unisdr/delta/pkg/approval"
	"github.com/unisdr/delta/pkg/contracts"
)

// Repository persists assignments, typically inside a storage transaction.
type Repository interface {
	InsertAssignments(ctx context.Context, rows []contracts.ValidationAssignment) error
	DeleteAssignments(ctx context.Context, entityID string, entityType contracts.EntityType) error
	ListAssignments(ctx context.Context, entityID string, entityType contracts.EntityType) ([]contracts.ValidationAssignment, error)
}

// Manager creates and removes validator assignments.
type Manager struct {
	clock func() time.Time
	newID func() string
}

// NewManager creates a new assignment manager.
func NewManager() *Manager {
	return &Manager{
		clock: time.Now,
		newID: func() string { return uuid.New().String() },
	}
}

// WithClock overrides the clock for deterministic testing.
func (m *Manager) WithClock(clock func() time.Time) *Manager {
	m.clock = clock
	return m
}

// WithIDGenerator overrides id generation for deterministic testing.
func (m *Manager) WithIDGenerator(fn func() string) *Manager {
	m.newID = fn
	return m
}

// Assign makes validatorIDs the current assignment set of the entity. Ids are
// trimmed, empty ones dropped and duplicates collapsed, so assigning the same
// set twice leaves the same rows.
func (m *Manager) Assign(
	ctx context.Context,
	repo Repository,
	entityID string,
	entityType contracts.EntityType,
	validatorIDs []string,
	assignedBy string,
) ([]contracts.ValidationAssignment, error) {
	ids := approval.NormalizeIDs(validatorIDs)
	if err := repo.DeleteAssignments(ctx, entityID, entityType); err != nil {
		return nil, fmt.Errorf("clear assignments for %s %s: %w", entityType, entityID, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	now := m.clock().UTC()
	rows := make([]contracts.ValidationAssignment, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, contracts.ValidationAssignment{
			ID:               m.newID(),
			EntityID:         entityID,
			EntityType:       entityType,
			AssignedToUserID: id,
			AssignedByUserID: assignedBy,
			AssignedAt:       now,
		})
	}
	if err := repo.InsertAssignments(ctx, rows); err != nil {
		return nil, fmt.Errorf("insert assignments for %s %s: %w", entityType, entityID, err)
	}
	return rows, nil
}

// Clear deletes every current assignment of the entity. Clearing an empty set
// is a no-op.
func (m *Manager) Clear(ctx context.Context, repo Repository, entityID string, entityType contracts.EntityType) error {
	if err := repo.DeleteAssignments(ctx, entityID, entityType); err != nil {
		return fmt.Errorf("clear assignments for %s %s: %w", entityType, entityID, err)
	}
	return nil
}

// List returns the current assignments of the entity.
func (m *Manager) List(ctx context.Context, repo Repository, entityID string, entityType contracts.EntityType) ([]contracts.ValidationAssignment, error) {
	return repo.ListAssignments(ctx, entityID, entityType)
}
