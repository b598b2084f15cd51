package store

import (
	"context"
	"fmt"
)

// CountRows returns the number of rows in every table.
func (s *Store) CountRows(ctx context.Context) (RowCounts, error) {
	var c RowCounts
	targets := []struct {
		table string
		dest  *int
	}{
		{"categories", &c.Categories},
		{"fields", &c.Fields},
		{"articles", &c.Articles},
		{"field_values", &c.FieldValues},
		{"connections", &c.Connections},
		{"connection_descriptions", &c.ConnectionDescriptions},
		{"snippets", &c.Snippets},
	}
	for _, t := range targets {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.table).Scan(t.dest); err != nil {
			return RowCounts{}, fmt.Errorf("count %s: %w", t.table, err)
		}
	}
	return c, nil
}
