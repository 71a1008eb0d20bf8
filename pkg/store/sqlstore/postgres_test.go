package sqlstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unisdr/delta/pkg/contracts"
	"github.com/unisdr/delta/pkg/store"
)

var recordCols = []string{
	"id", "approval_status", "start_date", "end_date", "description",
	"submitted_by", "submitted_at", "validated_by", "validated_at", "published_by", "published_at",
}

func newMock(t *testing.T, opts ...Option) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db, Postgres, opts...), mock
}

func TestPostgres_GetRecordLocksRow(t *testing.T) {
	s, mock := newMock(t)
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, approval_status, .* FROM hazardous_event WHERE id = \$1 FOR UPDATE`).
		WithArgs("h1").
		WillReturnRows(sqlmock.NewRows(recordCols).
			AddRow("h1", "waiting-for-validation", "2021", nil, "storm", "u1", at, nil, nil, nil, nil))
	mock.ExpectCommit()

	var got contracts.ApprovableRecord
	err := s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		var err error
		got, err = tx.GetRecord(ctx, contracts.EntityHazardousEvent, "h1")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, contracts.StatusWaitingForValidation, got.Status)
	assert.Equal(t, "2021", got.StartDate)
	assert.Empty(t, got.EndDate)
	require.NotNil(t, got.Submitted)
	assert.Equal(t, "u1", got.Submitted.UserID)
	assert.Nil(t, got.Validated)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateRecord(t *testing.T) {
	s, mock := newMock(t)
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE disaster_event SET approval_status = \$1, submitted_by = \$2, submitted_at = \$3, validated_by = NULL, validated_at = NULL WHERE id = \$4`).
		WithArgs("waiting-for-validation", "u1", at, "d1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE disaster_event SET approval_status = \$1 WHERE id = \$2`).
		WithArgs("draft", "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		require.NoError(t, tx.UpdateRecord(ctx, contracts.EntityDisasterEvent, "d1", contracts.RecordPatch{
			Status:    contracts.StatusWaitingForValidation,
			Submitted: contracts.SetStamp("u1", at),
			Validated: contracts.ClearStamp(),
		}))
		return tx.UpdateRecord(ctx, contracts.EntityDisasterEvent, "missing", contracts.RecordPatch{Status: contracts.StatusDraft})
	})
	assert.True(t, contracts.IsNotFound(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_InsertAssignmentsSingleStatement(t *testing.T) {
	s, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO entity_validation_assignment .* SELECT \* FROM unnest\(\$1::text\[\], \$2::text\[\], \$3::text\[\], \$4::text\[\], \$5::text\[\], \$6::timestamptz\[\]\)`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.InsertAssignments(ctx, []contracts.ValidationAssignment{
			{ID: "a1", EntityID: "r1", EntityType: contracts.EntityDisasterRecord, AssignedToUserID: "v1", AssignedByUserID: "u1", AssignedAt: now},
			{ID: "a2", EntityID: "r1", EntityType: contracts.EntityDisasterRecord, AssignedToUserID: "v2", AssignedByUserID: "u1", AssignedAt: now},
		})
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_EdgeQueries(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, parent_id, child_id, relationship_type FROM event_relationship WHERE parent_id = \$1 OR child_id = \$2`).
		WithArgs("b", "b").
		WillReturnRows(sqlmock.NewRows([]string{"id", "parent_id", "child_id", "relationship_type"}).
			AddRow("e1", "a", "b", "caused_by"))
	mock.ExpectExec(`DELETE FROM event_relationship WHERE child_id = \$1 AND relationship_type = \$2`).
		WithArgs("b", "caused_by").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO event_relationship \(id, parent_id, child_id, relationship_type\) VALUES \(\$1, \$2, \$3, \$4\)`).
		WithArgs("e2", "c", "b", "caused_by").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		edges, err := tx.Edges(ctx, "b")
		require.NoError(t, err)
		require.Len(t, edges, 1)
		assert.True(t, edges[0].IsCausedBy())

		require.NoError(t, tx.DeleteEdgesByChild(ctx, "b"))
		return tx.InsertEdge(ctx, contracts.CausalEdge{ID: "e2", ParentID: "c", ChildID: "b"})
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RetriesSerializationFailure(t *testing.T) {
	s, mock := newMock(t, WithSerializable(true))

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM hazardous_event WHERE id = \$1`).
		WithArgs("h1").
		WillReturnError(&pq.Error{Code: "40001", Message: "could not serialize access"})
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM hazardous_event WHERE id = \$1`).
		WithArgs("h1").
		WillReturnRows(sqlmock.NewRows([]string{"start_date", "end_date", "description"}).AddRow("2020", "", "quake"))
	mock.ExpectCommit()

	attempts := 0
	err := s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		attempts++
		_, err := tx.Event(ctx, "h1")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_NoRetryForOtherErrors(t *testing.T) {
	s, mock := newMock(t)
	boom := errors.New("unique violation")

	mock.ExpectBegin()
	mock.ExpectRollback()

	attempts := 0
	err := s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		attempts++
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, attempts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RetriesExhausted(t *testing.T) {
	s, mock := newMock(t, WithRetries(1))
	serialization := &pq.Error{Code: "40001"}

	for i := 0; i < 2; i++ {
		mock.ExpectBegin()
		mock.ExpectRollback()
	}

	attempts := 0
	err := s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		attempts++
		return serialization
	})
	require.Error(t, err)
	assert.Equal(t, 2, attempts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Migrate(t *testing.T) {
	s, mock := newMock(t)
	for range schemaFor(Postgres) {
		mock.ExpectExec(`CREATE`).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
