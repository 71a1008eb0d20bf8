// Package sqlstore implements store.Store on PostgreSQL (lib/pq) and SQLite
// (modernc.org/sqlite).
//
// GetRecord takes a row lock on PostgreSQL so that the checks and writes of
// one workflow request see a stable record. Transactions run at serializable
// isolation when configured and are retried on serialization failures.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/unisdr/delta/pkg/store"

	_ "modernc.org/sqlite"
)

// DefaultRetries is how often a serialization failure is retried.
const DefaultRetries = 3

// Store is a SQL-backed store.Store.
type Store struct {
	db           *sql.DB
	dialect      Dialect
	serializable bool
	retries      int
	logger       *slog.Logger
}

var _ store.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithSerializable runs transactions at sql.LevelSerializable. SQLite is
// always serializable and ignores it.
func WithSerializable(on bool) Option {
	return func(s *Store) { s.serializable = on }
}

// WithRetries sets how many times a transaction aborted by a serialization
// failure or deadlock is re-run.
func WithRetries(n int) Option {
	return func(s *Store) { s.retries = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l.With("component", "sqlstore") }
}

// New wraps db.
func New(db *sql.DB, d Dialect, opts ...Option) *Store {
	s := &Store{
		db:      db,
		dialect: d,
		retries: DefaultRetries,
		logger:  slog.Default().With("component", "sqlstore"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open opens a database for the dialect. SQLite connections are limited to
// one so in-memory databases stay shared.
func Open(d Dialect, dsn string) (*sql.DB, error) {
	db, err := sql.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d, err)
	}
	if d == SQLite {
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// Migrate creates the schema.
func (s *Store) Migrate(ctx context.Context) error {
	return Migrate(ctx, s.db, s.dialect)
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WithTx runs fn in a transaction, committing when it returns nil.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	for attempt := 0; ; attempt++ {
		err := s.runTx(ctx, fn)
		if err == nil || attempt >= s.retries || !retryable(err) {
			return err
		}
		s.logger.WarnContext(ctx, "transaction aborted, retrying", "attempt", attempt+1, "error", err)
	}
}

func (s *Store) runTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	var opts *sql.TxOptions
	if s.serializable && s.dialect == Postgres {
		opts = &sql.TxOptions{Isolation: sql.LevelSerializable}
	}
	sqlTx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = sqlTx.Rollback() }()

	if err := fn(ctx, &tx{tx: sqlTx, dialect: s.dialect}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func retryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch pqErr.Code {
	case "40001", "40P01": // serialization_failure, deadlock_detected
		return true
	}
	return false
}
