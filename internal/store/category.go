package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const categoryColumns = `id, name, COALESCE(description, ''), COALESCE(image, ''), COALESCE(icon, ''), created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// CreateCategory creates a Category with an empty description.
// Fails with Conflict if the World already has a Category with that name.
func (s *Store) CreateCategory(ctx context.Context, name string) (Category, error) {
	var cat Category
	err := s.withTx(ctx, "create category", func(tx *sql.Tx) error {
		var err error
		cat, err = s.createCategoryTx(ctx, tx, name, "")
		return err
	})
	return cat, err
}

func (s *Store) createCategoryTx(ctx context.Context, tx *sql.Tx, name, description string) (Category, error) {
	name = normalizeName(name)

	taken, err := nameTaken(ctx, tx, "categories", "", 0, name, 0)
	if err != nil {
		return Category{}, err
	}
	if taken {
		return Category{}, Conflict("category", "the current World", name)
	}

	now := s.stamp()
	result, err := tx.ExecContext(ctx, `
		INSERT INTO categories (name, description, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`, name, description, now, now)
	if err != nil {
		return Category{}, fmt.Errorf("insert category: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return Category{}, fmt.Errorf("last insert id: %w", err)
	}

	return Category{
		ID:          id,
		Name:        name,
		Description: description,
		CreatedAt:   fromMillis(now),
		UpdatedAt:   fromMillis(now),
	}, nil
}

// GetCategory returns one Category.
func (s *Store) GetCategory(ctx context.Context, id int64) (Category, error) {
	return getCategory(ctx, s.db, id)
}

func getCategory(ctx context.Context, q Querier, id int64) (Category, error) {
	row := q.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id)
	cat, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Category{}, NotFound("category", id)
	}
	if err != nil {
		return Category{}, fmt.Errorf("get category: %w", err)
	}
	return cat, nil
}

// GetCategories returns Categories ordered by name.
func (s *Store) GetCategories(ctx context.Context, offset, limit int) ([]Category, error) {
	lim, off := page(offset, limit)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+categoryColumns+`
		FROM categories
		ORDER BY name ASC, id ASC
		LIMIT ? OFFSET ?
	`, lim, off)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	categories := []Category{}
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return categories, nil
}

// GetArticlesInCategory returns the Articles of a Category ordered by name.
// Fails with NotFound if the Category does not exist.
func (s *Store) GetArticlesInCategory(ctx context.Context, categoryID int64, offset, limit int) ([]Article, error) {
	ok, err := exists(ctx, s.db, "categories", categoryID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NotFound("category", categoryID)
	}

	lim, off := page(offset, limit)
	return s.queryArticles(ctx, `
		SELECT `+articleColumns+`
		FROM articles
		WHERE category_id = ?
		ORDER BY name ASC, id ASC
		LIMIT ? OFFSET ?
	`, categoryID, lim, off)
}

// RenameCategory changes a Category's name, keeping names unique.
func (s *Store) RenameCategory(ctx context.Context, id int64, name string) (Category, error) {
	var cat Category
	err := s.withTx(ctx, "rename category", func(tx *sql.Tx) error {
		name = normalizeName(name)
		taken, err := nameTaken(ctx, tx, "categories", "", 0, name, id)
		if err != nil {
			return err
		}
		if taken {
			return Conflict("category", "the current World", name)
		}
		if err := s.updateCategoryColumn(ctx, tx, id, "name", name); err != nil {
			return err
		}
		cat, err = getCategory(ctx, tx, id)
		return err
	})
	return cat, err
}

// UpdateCategoryDescription replaces a Category's description.
func (s *Store) UpdateCategoryDescription(ctx context.Context, id int64, description string) (Category, error) {
	var cat Category
	err := s.withTx(ctx, "update category description", func(tx *sql.Tx) error {
		if err := s.updateCategoryColumn(ctx, tx, id, "description", description); err != nil {
			return err
		}
		var err error
		cat, err = getCategory(ctx, tx, id)
		return err
	})
	return cat, err
}

// UpdateCategoryImage stores an opaque image reference for a Category.
func (s *Store) UpdateCategoryImage(ctx context.Context, id int64, image string) error {
	return s.withTx(ctx, "update category image", func(tx *sql.Tx) error {
		return s.updateCategoryColumn(ctx, tx, id, "image", image)
	})
}

// UpdateCategoryIcon stores an icon reference for a Category.
func (s *Store) UpdateCategoryIcon(ctx context.Context, id int64, icon string) error {
	return s.withTx(ctx, "update category icon", func(tx *sql.Tx) error {
		return s.updateCategoryColumn(ctx, tx, id, "icon", icon)
	})
}

// GetCategoryImage returns the image reference of a Category, "" if unset.
func (s *Store) GetCategoryImage(ctx context.Context, id int64) (string, error) {
	cat, err := s.GetCategory(ctx, id)
	if err != nil {
		return "", err
	}
	return cat.Image, nil
}

func (s *Store) updateCategoryColumn(ctx context.Context, tx *sql.Tx, id int64, column string, value any) error {
	query := fmt.Sprintf("UPDATE categories SET %s = ?, updated_at = ? WHERE id = ?", column)
	result, err := tx.ExecContext(ctx, query, value, s.stamp(), id)
	if err != nil {
		return fmt.Errorf("update category %s: %w", column, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return NotFound("category", id)
	}
	return nil
}

// DeleteCategory removes a Category and its whole subtree: every Article of
// the Category with their Snippets, field values, Connections (both
// directions) and shared descriptions, then the Category's Fields, then the
// Category itself. Returns the Category as it was before deletion.
func (s *Store) DeleteCategory(ctx context.Context, id int64) (Category, error) {
	var deleted Category
	err := s.withTx(ctx, "delete category", func(tx *sql.Tx) error {
		var err error
		deleted, err = getCategory(ctx, tx, id)
		if err != nil {
			return err
		}

		articleIDs, err := selectIDs(ctx, tx, "SELECT id FROM articles WHERE category_id = ?", id)
		if err != nil {
			return InternalConsistency("category", id, err)
		}
		if err := deleteArticlesTx(ctx, tx, articleIDs); err != nil {
			return InternalConsistency("category", id, err)
		}

		steps := []struct {
			query string
			what  string
		}{
			{"DELETE FROM field_values WHERE field_id IN (SELECT id FROM fields WHERE category_id = ?)", "field values"},
			{"DELETE FROM fields WHERE category_id = ?", "fields"},
			{"DELETE FROM categories WHERE id = ?", "category"},
		}
		for _, step := range steps {
			if _, err := tx.ExecContext(ctx, step.query, id); err != nil {
				return InternalConsistency("category", id, fmt.Errorf("delete %s: %w", step.what, err))
			}
		}
		return nil
	})
	if err != nil {
		return Category{}, err
	}
	return deleted, nil
}

func scanCategory(row rowScanner) (Category, error) {
	var cat Category
	var created, updated int64
	if err := row.Scan(&cat.ID, &cat.Name, &cat.Description, &cat.Image, &cat.Icon, &created, &updated); err != nil {
		return Category{}, err
	}
	cat.CreatedAt = fromMillis(created)
	cat.UpdatedAt = fromMillis(updated)
	return cat, nil
}
