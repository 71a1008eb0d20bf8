package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/unisdr/delta/pkg/contracts"
)

var recordTables = map[contracts.EntityType]string{
	contracts.EntityHazardousEvent: "hazardous_event",
	contracts.EntityDisasterEvent:  "disaster_event",
	contracts.EntityDisasterRecord: "disaster_records",
}

func tableFor(t contracts.EntityType) (string, error) {
	table, ok := recordTables[t]
	if !ok {
		return "", fmt.Errorf("%w: unknown entity type %q", contracts.ErrValidation, t)
	}
	return table, nil
}

const recordColumns = `id, approval_status, start_date, end_date, description,
	submitted_by, submitted_at, validated_by, validated_at, published_by, published_at`

func recordTableDDL(table, timestamp string) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	id TEXT PRIMARY KEY,
	approval_status TEXT NOT NULL DEFAULT 'draft',
	start_date TEXT,
	end_date TEXT,
	description TEXT,
	submitted_by TEXT,
	submitted_at %[2]s,
	validated_by TEXT,
	validated_at %[2]s,
	published_by TEXT,
	published_at %[2]s
);`, table, timestamp)
}

func schemaFor(d Dialect) []string {
	timestamp := "TEXT"
	if d == Postgres {
		timestamp = "TIMESTAMPTZ"
	}
	stmts := []string{
		recordTableDDL("hazardous_event", timestamp),
		recordTableDDL("disaster_event", timestamp),
		recordTableDDL("disaster_records", timestamp),
		`
CREATE TABLE IF NOT EXISTS event_relationship (
	id TEXT PRIMARY KEY,
	parent_id TEXT NOT NULL,
	child_id TEXT NOT NULL,
	relationship_type TEXT NOT NULL DEFAULT 'caused_by'
);`,
		`CREATE INDEX IF NOT EXISTS event_relationship_child_idx ON event_relationship (child_id);`,
		`CREATE INDEX IF NOT EXISTS event_relationship_parent_idx ON event_relationship (parent_id);`,
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS entity_validation_assignment (
	id TEXT PRIMARY KEY,
	entity_id TEXT NOT NULL,
	entity_type TEXT NOT NULL,
	assigned_to_user_id TEXT NOT NULL,
	assigned_by_user_id TEXT NOT NULL,
	assigned_at %s NOT NULL,
	UNIQUE (entity_id, entity_type, assigned_to_user_id)
);`, timestamp),
	}
	return stmts
}

// Migrate creates the tables if they do not exist.
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	for _, stmt := range schemaFor(d) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
