package migrate

import (
	"context"
	"database/sql"
)

// Default is the list of migrations shipped with worldscribe. Append new
// entries at the end; never edit or reorder released ones.
var Default = NewRegistry(
	Migration{
		Version: 1,
		Name:    "add category icon",
		Transform: func(ctx context.Context, tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, "ALTER TABLE categories ADD COLUMN icon TEXT")
			return err
		},
	},
)
