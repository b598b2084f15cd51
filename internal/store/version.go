package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Querier is satisfied by *sql.DB, *sql.Tx and *sql.Conn.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ReadVersion returns the schema version recorded in the database header.
// A pristine database reports 0.
func ReadVersion(ctx context.Context, q Querier) (int, error) {
	var version sql.NullInt64
	if err := q.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("get user_version: %w", err)
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}

// WriteVersion records version in the database header. Inside a
// transaction the write commits or rolls back with it.
func WriteVersion(ctx context.Context, q Querier, version int) error {
	if version < 0 {
		return fmt.Errorf("set user_version: negative version %d", version)
	}
	// PRAGMA does not accept bound parameters.
	if _, err := q.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// Version returns the schema version of the open store.
func (s *Store) Version(ctx context.Context) (int, error) {
	return ReadVersion(ctx, s.db)
}

// SetVersion overwrites the schema version of the open store. Only World
// creation should call it, to skip migration history on a fresh store.
func (s *Store) SetVersion(ctx context.Context, version int) error {
	return WriteVersion(ctx, s.db, version)
}
