package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/unisdr/delta/pkg/contracts"
)

type tx struct {
	tx      *sql.Tx
	dialect Dialect
}

func (t *tx) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return t.tx.ExecContext(ctx, t.dialect.rebind(query), args...)
}

func (t *tx) query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, t.dialect.rebind(query), args...)
}

func (t *tx) queryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return t.tx.QueryRowContext(ctx, t.dialect.rebind(query), args...)
}

func (t *tx) Edges(ctx context.Context, nodeID string) ([]contracts.CausalEdge, error) {
	return t.edges(ctx, `SELECT id, parent_id, child_id, relationship_type FROM event_relationship
		WHERE parent_id = ? OR child_id = ? ORDER BY id`, nodeID, nodeID)
}

func (t *tx) AllEdges(ctx context.Context) ([]contracts.CausalEdge, error) {
	return t.edges(ctx, `SELECT id, parent_id, child_id, relationship_type FROM event_relationship ORDER BY id`)
}

func (t *tx) edges(ctx context.Context, query string, args ...interface{}) ([]contracts.CausalEdge, error) {
	rows, err := t.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []contracts.CausalEdge
	for rows.Next() {
		var e contracts.CausalEdge
		if err := rows.Scan(&e.ID, &e.ParentID, &e.ChildID, &e.Type); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (t *tx) Event(ctx context.Context, id string) (contracts.Event, error) {
	var start, end, desc sql.NullString
	err := t.queryRow(ctx, `SELECT start_date, end_date, description FROM hazardous_event WHERE id = ?`, id).
		Scan(&start, &end, &desc)
	if errors.Is(err, sql.ErrNoRows) {
		return contracts.Event{}, contracts.NotFound(string(contracts.EntityHazardousEvent), id)
	}
	if err != nil {
		return contracts.Event{}, fmt.Errorf("load event %s: %w", id, err)
	}
	return contracts.Event{
		ID:          id,
		Kind:        contracts.EventKindHazardous,
		StartDate:   start.String,
		EndDate:     end.String,
		Description: desc.String,
	}, nil
}

func (t *tx) InsertEdge(ctx context.Context, e contracts.CausalEdge) error {
	if e.Type == "" {
		e.Type = contracts.RelationCausedBy
	}
	_, err := t.exec(ctx, `INSERT INTO event_relationship (id, parent_id, child_id, relationship_type) VALUES (?, ?, ?, ?)`,
		e.ID, e.ParentID, e.ChildID, e.Type)
	if err != nil {
		return fmt.Errorf("insert edge: %w", err)
	}
	return nil
}

func (t *tx) DeleteEdgesByChild(ctx context.Context, childID string) error {
	_, err := t.exec(ctx, `DELETE FROM event_relationship WHERE child_id = ? AND relationship_type = ?`,
		childID, contracts.RelationCausedBy)
	if err != nil {
		return fmt.Errorf("delete edges: %w", err)
	}
	return nil
}

func (t *tx) GetRecord(ctx context.Context, entityType contracts.EntityType, id string) (contracts.ApprovableRecord, error) {
	table, err := tableFor(entityType)
	if err != nil {
		return contracts.ApprovableRecord{}, err
	}

	rec := contracts.ApprovableRecord{EntityType: entityType}
	var (
		start, end, desc    sql.NullString
		subBy, valBy, pubBy sql.NullString
		subAt, valAt, pubAt dbTime
	)
	query := `SELECT ` + recordColumns + ` FROM ` + table + ` WHERE id = ?` + t.dialect.forUpdate()
	err = t.queryRow(ctx, query, id).Scan(
		&rec.ID, &rec.Status, &start, &end, &desc,
		&subBy, &subAt, &valBy, &valAt, &pubBy, &pubAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return contracts.ApprovableRecord{}, contracts.NotFound(string(entityType), id)
	}
	if err != nil {
		return contracts.ApprovableRecord{}, fmt.Errorf("load %s %s: %w", entityType, id, err)
	}
	rec.StartDate, rec.EndDate, rec.Description = start.String, end.String, desc.String
	rec.Submitted = stamp(subBy, subAt)
	rec.Validated = stamp(valBy, valAt)
	rec.Published = stamp(pubBy, pubAt)
	return rec, nil
}

func stamp(by sql.NullString, at dbTime) *contracts.Stamp {
	if !by.Valid && !at.Valid {
		return nil
	}
	return &contracts.Stamp{UserID: by.String, At: at.Time}
}

func (t *tx) UpdateRecord(ctx context.Context, entityType contracts.EntityType, id string, patch contracts.RecordPatch) error {
	table, err := tableFor(entityType)
	if err != nil {
		return err
	}

	var (
		sets []string
		args []interface{}
	)
	if patch.Status != "" {
		sets = append(sets, "approval_status = ?")
		args = append(args, patch.Status)
	}
	for _, col := range []struct {
		prefix string
		upd    contracts.StampUpdate
	}{
		{"submitted", patch.Submitted},
		{"validated", patch.Validated},
		{"published", patch.Published},
	} {
		switch col.upd.Op {
		case contracts.StampSet:
			sets = append(sets, col.prefix+"_by = ?", col.prefix+"_at = ?")
			args = append(args, col.upd.Stamp.UserID, t.dialect.timeArg(col.upd.Stamp.At))
		case contracts.StampClear:
			sets = append(sets, col.prefix+"_by = NULL", col.prefix+"_at = NULL")
		}
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	res, err := t.exec(ctx, `UPDATE `+table+` SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update %s %s: %w", entityType, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s %s: %w", entityType, id, err)
	}
	if n == 0 {
		return contracts.NotFound(string(entityType), id)
	}
	return nil
}

func (t *tx) InsertAssignments(ctx context.Context, rows []contracts.ValidationAssignment) error {
	if len(rows) == 0 {
		return nil
	}
	if t.dialect == Postgres {
		return t.insertAssignmentsUnnest(ctx, rows)
	}
	for _, r := range rows {
		_, err := t.exec(ctx, `INSERT INTO entity_validation_assignment
			(id, entity_id, entity_type, assigned_to_user_id, assigned_by_user_id, assigned_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			r.ID, r.EntityID, r.EntityType, r.AssignedToUserID, r.AssignedByUserID, t.dialect.timeArg(r.AssignedAt))
		if err != nil {
			return fmt.Errorf("insert assignment: %w", err)
		}
	}
	return nil
}

// insertAssignmentsUnnest writes all rows in one statement.
func (t *tx) insertAssignmentsUnnest(ctx context.Context, rows []contracts.ValidationAssignment) error {
	n := len(rows)
	ids, entities, types := make([]string, n), make([]string, n), make([]string, n)
	to, by, at := make([]string, n), make([]string, n), make([]string, n)
	for i, r := range rows {
		ids[i], entities[i], types[i] = r.ID, r.EntityID, string(r.EntityType)
		to[i], by[i], at[i] = r.AssignedToUserID, r.AssignedByUserID, r.AssignedAt.UTC().Format(time.RFC3339Nano)
	}
	_, err := t.exec(ctx, `INSERT INTO entity_validation_assignment
		(id, entity_id, entity_type, assigned_to_user_id, assigned_by_user_id, assigned_at)
		SELECT * FROM unnest(?::text[], ?::text[], ?::text[], ?::text[], ?::text[], ?::timestamptz[])`,
		pq.Array(ids), pq.Array(entities), pq.Array(types), pq.Array(to), pq.Array(by), pq.Array(at))
	if err != nil {
		return fmt.Errorf("insert assignments: %w", err)
	}
	return nil
}

func (t *tx) DeleteAssignments(ctx context.Context, entityID string, entityType contracts.EntityType) error {
	_, err := t.exec(ctx, `DELETE FROM entity_validation_assignment WHERE entity_id = ? AND entity_type = ?`,
		entityID, entityType)
	if err != nil {
		return fmt.Errorf("delete assignments: %w", err)
	}
	return nil
}

func (t *tx) ListAssignments(ctx context.Context, entityID string, entityType contracts.EntityType) ([]contracts.ValidationAssignment, error) {
	rows, err := t.query(ctx, `SELECT id, entity_id, entity_type, assigned_to_user_id, assigned_by_user_id, assigned_at
		FROM entity_validation_assignment WHERE entity_id = ? AND entity_type = ?
		ORDER BY assigned_to_user_id`, entityID, entityType)
	if err != nil {
		return nil, fmt.Errorf("query assignments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []contracts.ValidationAssignment
	for rows.Next() {
		var (
			a  contracts.ValidationAssignment
			at dbTime
		)
		if err := rows.Scan(&a.ID, &a.EntityID, &a.EntityType, &a.AssignedToUserID, &a.AssignedByUserID, &at); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		a.AssignedAt = at.Time
		out = append(out, a)
	}
	return out, rows.Err()
}
