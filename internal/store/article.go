package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const articleColumns = `id, category_id, name, COALESCE(image, ''), created_at, updated_at`

// CreateArticle creates an Article in a Category together with one empty
// field value for every Field the Category already has.
func (s *Store) CreateArticle(ctx context.Context, name string, categoryID int64) (Article, error) {
	var art Article
	err := s.withTx(ctx, "create article", func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, "categories", categoryID)
		if err != nil {
			return err
		}
		if !ok {
			return NotFound("category", categoryID)
		}

		name = normalizeName(name)
		now := s.stamp()
		result, err := tx.ExecContext(ctx, `
			INSERT INTO articles (category_id, name, created_at, updated_at)
			VALUES (?, ?, ?, ?)
		`, categoryID, name, now, now)
		if err != nil {
			return fmt.Errorf("insert article: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}

		// Fan out: one value per existing Field of the Category.
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO field_values (article_id, field_id, value, created_at, updated_at)
			SELECT ?, id, '', ?, ? FROM fields WHERE category_id = ?
		`, id, now, now, categoryID); err != nil {
			return fmt.Errorf("insert field values: %w", err)
		}

		art = Article{
			ID:         id,
			CategoryID: categoryID,
			Name:       name,
			CreatedAt:  fromMillis(now),
			UpdatedAt:  fromMillis(now),
		}
		return nil
	})
	return art, err
}

// GetArticle returns an Article along with the name of its Category.
func (s *Store) GetArticle(ctx context.Context, id int64) (ArticleMetadata, error) {
	var meta ArticleMetadata
	var created, updated int64
	err := s.db.QueryRowContext(ctx, `
		SELECT a.id, a.category_id, a.name, COALESCE(a.image, ''), a.created_at, a.updated_at, c.name
		FROM articles a
		JOIN categories c ON c.id = a.category_id
		WHERE a.id = ?
	`, id).Scan(&meta.ID, &meta.CategoryID, &meta.Name, &meta.Image, &created, &updated, &meta.CategoryName)
	if errors.Is(err, sql.ErrNoRows) {
		return ArticleMetadata{}, NotFound("article", id)
	}
	if err != nil {
		return ArticleMetadata{}, fmt.Errorf("get article: %w", err)
	}
	meta.CreatedAt = fromMillis(created)
	meta.UpdatedAt = fromMillis(updated)
	return meta, nil
}

// GetArticlesInWorld returns every Article ordered by name.
func (s *Store) GetArticlesInWorld(ctx context.Context, offset, limit int) ([]Article, error) {
	lim, off := page(offset, limit)
	return s.queryArticles(ctx, `
		SELECT `+articleColumns+`
		FROM articles
		ORDER BY name ASC, id ASC
		LIMIT ? OFFSET ?
	`, lim, off)
}

// RenameArticle changes an Article's name. Article names need not be unique.
func (s *Store) RenameArticle(ctx context.Context, id int64, name string) (Article, error) {
	var art Article
	err := s.withTx(ctx, "rename article", func(tx *sql.Tx) error {
		if err := s.updateArticleColumn(ctx, tx, id, "name", normalizeName(name)); err != nil {
			return err
		}
		var err error
		art, err = getArticle(ctx, tx, id)
		return err
	})
	return art, err
}

// UpdateArticleImage stores an opaque image reference for an Article.
func (s *Store) UpdateArticleImage(ctx context.Context, id int64, image string) error {
	return s.withTx(ctx, "update article image", func(tx *sql.Tx) error {
		return s.updateArticleColumn(ctx, tx, id, "image", image)
	})
}

// GetArticleImage returns the image reference of an Article, "" if unset.
func (s *Store) GetArticleImage(ctx context.Context, id int64) (string, error) {
	art, err := getArticle(ctx, s.db, id)
	if err != nil {
		return "", err
	}
	return art.Image, nil
}

// GetArticleFields returns the Article's value for each Field of its
// Category, ordered by field name.
func (s *Store) GetArticleFields(ctx context.Context, articleID int64, offset, limit int) ([]ArticleField, error) {
	lim, off := page(offset, limit)
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.id, v.article_id, f.name, v.value, v.created_at, v.updated_at
		FROM field_values v
		JOIN fields f ON f.id = v.field_id
		WHERE v.article_id = ?
		ORDER BY f.name ASC, f.id ASC
		LIMIT ? OFFSET ?
	`, articleID, lim, off)
	if err != nil {
		return nil, fmt.Errorf("query article fields: %w", err)
	}
	defer rows.Close()

	fields := []ArticleField{}
	for rows.Next() {
		af, err := scanArticleField(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article field: %w", err)
		}
		fields = append(fields, af)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate article fields: %w", err)
	}
	return fields, nil
}

// UpdateArticleField sets the Article's value for one Field.
// Fails with NotFound if the Article has no value for that Field.
func (s *Store) UpdateArticleField(ctx context.Context, articleID, fieldID int64, value string) (ArticleField, error) {
	var af ArticleField
	err := s.withTx(ctx, "update article field", func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE field_values SET value = ?, updated_at = ?
			WHERE article_id = ? AND field_id = ?
		`, value, s.stamp(), articleID, fieldID)
		if err != nil {
			return fmt.Errorf("update field value: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return &Error{
				Code:    ErrCodeNotFound,
				Entity:  "field value",
				ID:      fieldID,
				Message: fmt.Sprintf("article %d has no value for field %d", articleID, fieldID),
			}
		}

		af, err = scanArticleField(tx.QueryRowContext(ctx, `
			SELECT f.id, v.article_id, f.name, v.value, v.created_at, v.updated_at
			FROM field_values v
			JOIN fields f ON f.id = v.field_id
			WHERE v.article_id = ? AND v.field_id = ?
		`, articleID, fieldID))
		if err != nil {
			return fmt.Errorf("reload field value: %w", err)
		}
		return nil
	})
	return af, err
}

// DeleteArticle removes an Article with its Snippets, field values,
// Connections in both directions and their shared descriptions.
// Returns the Article as it was before deletion, so callers can clean up
// its image.
func (s *Store) DeleteArticle(ctx context.Context, id int64) (Article, error) {
	var deleted Article
	err := s.withTx(ctx, "delete article", func(tx *sql.Tx) error {
		var err error
		deleted, err = getArticle(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := deleteArticlesTx(ctx, tx, []int64{id}); err != nil {
			return InternalConsistency("article", id, err)
		}
		return nil
	})
	if err != nil {
		return Article{}, err
	}
	return deleted, nil
}

func (s *Store) updateArticleColumn(ctx context.Context, tx *sql.Tx, id int64, column string, value any) error {
	query := fmt.Sprintf("UPDATE articles SET %s = ?, updated_at = ? WHERE id = ?", column)
	result, err := tx.ExecContext(ctx, query, value, s.stamp(), id)
	if err != nil {
		return fmt.Errorf("update article %s: %w", column, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return NotFound("article", id)
	}
	return nil
}

func getArticle(ctx context.Context, q Querier, id int64) (Article, error) {
	row := q.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM articles WHERE id = ?`, id)
	art, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Article{}, NotFound("article", id)
	}
	if err != nil {
		return Article{}, fmt.Errorf("get article: %w", err)
	}
	return art, nil
}

func (s *Store) queryArticles(ctx context.Context, query string, args ...any) ([]Article, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	articles := []Article{}
	for rows.Next() {
		art, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		articles = append(articles, art)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}
	return articles, nil
}

func scanArticle(row rowScanner) (Article, error) {
	var art Article
	var created, updated int64
	if err := row.Scan(&art.ID, &art.CategoryID, &art.Name, &art.Image, &created, &updated); err != nil {
		return Article{}, err
	}
	art.CreatedAt = fromMillis(created)
	art.UpdatedAt = fromMillis(updated)
	return art, nil
}

func scanArticleField(row rowScanner) (ArticleField, error) {
	var af ArticleField
	var created, updated int64
	if err := row.Scan(&af.ID, &af.ArticleID, &af.Name, &af.Value, &created, &updated); err != nil {
		return ArticleField{}, err
	}
	af.CreatedAt = fromMillis(created)
	af.UpdatedAt = fromMillis(updated)
	return af, nil
}
