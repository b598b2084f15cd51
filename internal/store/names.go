package store

import (
	"context"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// normalizeName returns the NFC form of name. Names are stored and compared
// in this form so that canonically equivalent spellings collide.
func normalizeName(name string) string {
	return norm.NFC.String(name)
}

// nameTaken reports whether a row in table has the given name within the
// scope column, excluding the row excludeID (0 excludes nothing).
// scopeColumn may be empty for World-wide uniqueness.
func nameTaken(ctx context.Context, q Querier, table, scopeColumn string, scopeID int64, name string, excludeID int64) (bool, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE name = ? AND id != ?", table)
	args := []any{name, excludeID}
	if scopeColumn != "" {
		query += fmt.Sprintf(" AND %s = ?", scopeColumn)
		args = append(args, scopeID)
	}

	var count int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("check %s name: %w", table, err)
	}
	return count > 0, nil
}

// exists reports whether table has a row with the given id.
func exists(ctx context.Context, q Querier, table string, id int64) (bool, error) {
	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE id = ?", table)
	if err := q.QueryRowContext(ctx, query, id).Scan(&count); err != nil {
		return false, fmt.Errorf("check %s exists: %w", table, err)
	}
	return count > 0, nil
}

// page turns offset/limit into SQLite LIMIT/OFFSET arguments.
// A non-positive limit means no limit.
func page(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = -1
	}
	return limit, offset
}
