// Package migrate upgrades a World store file to the latest schema version
// using copy → migrate → swap: migrations run against a staging copy and
// the original file is replaced only after every one of them succeeded.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration is one schema upgrade step. Transform runs inside the same
// transaction that bumps the store version to Version.
type Migration struct {
	Version   int
	Name      string
	Transform func(ctx context.Context, tx *sql.Tx) error
}

// Registry is an ordered, contiguous list of migrations starting at 1.
type Registry struct {
	migrations []Migration
}

// NewRegistry validates that versions run 1, 2, ..., n in order.
// A gap or a missing Transform is a program error and panics.
func NewRegistry(migrations ...Migration) *Registry {
	for i, m := range migrations {
		if m.Version != i+1 {
			panic(fmt.Sprintf("migrate: migration at index %d has version %d, want %d", i, m.Version, i+1))
		}
		if m.Transform == nil {
			panic(fmt.Sprintf("migrate: migration %d has no transform", m.Version))
		}
	}
	return &Registry{migrations: append([]Migration(nil), migrations...)}
}

// Latest returns the highest registered version, 0 when empty.
func (r *Registry) Latest() int {
	return len(r.migrations)
}

// Pending returns the migrations with a version greater than current, in
// ascending order.
func (r *Registry) Pending(current int) []Migration {
	if current < 0 {
		current = 0
	}
	if current >= len(r.migrations) {
		return nil
	}
	return r.migrations[current:]
}
