// Package store defines the storage collaborator of the approval engine.
//
// Implementations live in subpackages: memstore keeps everything in memory
// with copy-on-write transactions, sqlstore maps it onto PostgreSQL or
// SQLite. Every mutation the engine performs happens inside one Tx.
package store

import (
	"context"

	"github.com/unisdr/delta/pkg/assignment"
	"github.com/unisdr/delta/pkg/causal"
	"github.com/unisdr/delta/pkg/contracts"
)

// Tx is the unit of work handed to WithTx callbacks.
type Tx interface {
	causal.Graph
	assignment.Repository

	// GetRecord loads a record for update. Implementations lock the row for
	// the rest of the transaction where the backend supports it.
	GetRecord(ctx context.Context, entityType contracts.EntityType, id string) (contracts.ApprovableRecord, error)

	// UpdateRecord applies a workflow patch to one record.
	UpdateRecord(ctx context.Context, entityType contracts.EntityType, id string, patch contracts.RecordPatch) error

	// AllEdges returns the full edge set, for audits.
	AllEdges(ctx context.Context) ([]contracts.CausalEdge, error)
}

// Store opens transactions. A callback error rolls the transaction back and
// is returned unchanged.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
