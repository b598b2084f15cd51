package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const fieldColumns = `id, category_id, name, created_at, updated_at`

// CreateField adds a Field to a Category and gives every existing Article of
// the Category an empty value for it, in one transaction.
func (s *Store) CreateField(ctx context.Context, categoryID int64, name string) (Field, error) {
	var f Field
	err := s.withTx(ctx, "create field", func(tx *sql.Tx) error {
		var err error
		f, err = s.createFieldTx(ctx, tx, categoryID, name)
		return err
	})
	return f, err
}

func (s *Store) createFieldTx(ctx context.Context, tx *sql.Tx, categoryID int64, name string) (Field, error) {
	ok, err := exists(ctx, tx, "categories", categoryID)
	if err != nil {
		return Field{}, err
	}
	if !ok {
		return Field{}, NotFound("category", categoryID)
	}

	name = normalizeName(name)
	taken, err := nameTaken(ctx, tx, "fields", "category_id", categoryID, name, 0)
	if err != nil {
		return Field{}, err
	}
	if taken {
		return Field{}, Conflict("field", fmt.Sprintf("category %d", categoryID), name)
	}

	now := s.stamp()
	result, err := tx.ExecContext(ctx, `
		INSERT INTO fields (category_id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`, categoryID, name, now, now)
	if err != nil {
		return Field{}, fmt.Errorf("insert field: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return Field{}, fmt.Errorf("last insert id: %w", err)
	}

	// Fan out: one value per existing Article of the Category.
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO field_values (article_id, field_id, value, created_at, updated_at)
		SELECT id, ?, '', ?, ? FROM articles WHERE category_id = ?
	`, id, now, now, categoryID); err != nil {
		return Field{}, fmt.Errorf("insert field values: %w", err)
	}

	return Field{
		ID:         id,
		CategoryID: categoryID,
		Name:       name,
		CreatedAt:  fromMillis(now),
		UpdatedAt:  fromMillis(now),
	}, nil
}

// GetFieldsInCategory returns a Category's Fields ordered by name.
func (s *Store) GetFieldsInCategory(ctx context.Context, categoryID int64, offset, limit int) ([]Field, error) {
	lim, off := page(offset, limit)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+fieldColumns+`
		FROM fields
		WHERE category_id = ?
		ORDER BY name ASC, id ASC
		LIMIT ? OFFSET ?
	`, categoryID, lim, off)
	if err != nil {
		return nil, fmt.Errorf("query fields: %w", err)
	}
	defer rows.Close()

	fields := []Field{}
	for rows.Next() {
		f, err := scanField(rows)
		if err != nil {
			return nil, fmt.Errorf("scan field: %w", err)
		}
		fields = append(fields, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fields: %w", err)
	}
	return fields, nil
}

// RenameField changes a Field's name, keeping names unique in its Category.
func (s *Store) RenameField(ctx context.Context, id int64, name string) (Field, error) {
	var f Field
	err := s.withTx(ctx, "rename field", func(tx *sql.Tx) error {
		current, err := getField(ctx, tx, id)
		if err != nil {
			return err
		}

		name = normalizeName(name)
		taken, err := nameTaken(ctx, tx, "fields", "category_id", current.CategoryID, name, id)
		if err != nil {
			return err
		}
		if taken {
			return Conflict("field", fmt.Sprintf("category %d", current.CategoryID), name)
		}

		now := s.stamp()
		if _, err := tx.ExecContext(ctx,
			"UPDATE fields SET name = ?, updated_at = ? WHERE id = ?", name, now, id); err != nil {
			return fmt.Errorf("update field: %w", err)
		}
		current.Name = name
		current.UpdatedAt = fromMillis(now)
		f = current
		return nil
	})
	return f, err
}

// DeleteField removes a Field and every value Articles held for it.
// Returns the Field as it was before deletion.
func (s *Store) DeleteField(ctx context.Context, id int64) (Field, error) {
	var deleted Field
	err := s.withTx(ctx, "delete field", func(tx *sql.Tx) error {
		var err error
		deleted, err = getField(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM field_values WHERE field_id = ?", id); err != nil {
			return InternalConsistency("field", id, fmt.Errorf("delete field values: %w", err))
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM fields WHERE id = ?", id); err != nil {
			return InternalConsistency("field", id, fmt.Errorf("delete field: %w", err))
		}
		return nil
	})
	if err != nil {
		return Field{}, err
	}
	return deleted, nil
}

func getField(ctx context.Context, q Querier, id int64) (Field, error) {
	f, err := scanField(q.QueryRowContext(ctx, `SELECT `+fieldColumns+` FROM fields WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Field{}, NotFound("field", id)
	}
	if err != nil {
		return Field{}, fmt.Errorf("get field: %w", err)
	}
	return f, nil
}

func scanField(row rowScanner) (Field, error) {
	var f Field
	var created, updated int64
	if err := row.Scan(&f.ID, &f.CategoryID, &f.Name, &created, &updated); err != nil {
		return Field{}, err
	}
	f.CreatedAt = fromMillis(created)
	f.UpdatedAt = fromMillis(updated)
	return f, nil
}
