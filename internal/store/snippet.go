package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const snippetColumns = `id, article_id, name, content, created_at, updated_at`

// CreateSnippet attaches an empty Snippet to an Article.
// Snippet names are unique per Article.
func (s *Store) CreateSnippet(ctx context.Context, articleID int64, name string) (Snippet, error) {
	var sn Snippet
	err := s.withTx(ctx, "create snippet", func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, "articles", articleID)
		if err != nil {
			return err
		}
		if !ok {
			return NotFound("article", articleID)
		}

		name = normalizeName(name)
		taken, err := nameTaken(ctx, tx, "snippets", "article_id", articleID, name, 0)
		if err != nil {
			return err
		}
		if taken {
			return Conflict("snippet", fmt.Sprintf("article %d", articleID), name)
		}

		now := s.stamp()
		result, err := tx.ExecContext(ctx, `
			INSERT INTO snippets (article_id, name, content, created_at, updated_at)
			VALUES (?, ?, '', ?, ?)
		`, articleID, name, now, now)
		if err != nil {
			return fmt.Errorf("insert snippet: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}

		sn = Snippet{
			ID:        id,
			ArticleID: articleID,
			Name:      name,
			CreatedAt: fromMillis(now),
			UpdatedAt: fromMillis(now),
		}
		return nil
	})
	return sn, err
}

// GetSnippets lists an Article's Snippets ordered by name.
// Content is left empty; use GetSnippet to read it.
func (s *Store) GetSnippets(ctx context.Context, articleID int64, offset, limit int) ([]Snippet, error) {
	lim, off := page(offset, limit)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, article_id, name, '', created_at, updated_at
		FROM snippets
		WHERE article_id = ?
		ORDER BY name ASC, id ASC
		LIMIT ? OFFSET ?
	`, articleID, lim, off)
	if err != nil {
		return nil, fmt.Errorf("query snippets: %w", err)
	}
	defer rows.Close()

	snippets := []Snippet{}
	for rows.Next() {
		sn, err := scanSnippet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snippet: %w", err)
		}
		snippets = append(snippets, sn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snippets: %w", err)
	}
	return snippets, nil
}

// GetSnippet returns one Snippet with its content.
func (s *Store) GetSnippet(ctx context.Context, id int64) (Snippet, error) {
	return getSnippet(ctx, s.db, id)
}

// UpdateSnippet replaces a Snippet's content.
func (s *Store) UpdateSnippet(ctx context.Context, id int64, content string) (Snippet, error) {
	var sn Snippet
	err := s.withTx(ctx, "update snippet", func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			"UPDATE snippets SET content = ?, updated_at = ? WHERE id = ?", content, s.stamp(), id)
		if err != nil {
			return fmt.Errorf("update snippet: %w", err)
		}
		if n, err := result.RowsAffected(); err != nil {
			return fmt.Errorf("rows affected: %w", err)
		} else if n == 0 {
			return NotFound("snippet", id)
		}
		sn, err = getSnippet(ctx, tx, id)
		return err
	})
	return sn, err
}

// RenameSnippet changes a Snippet's name, keeping names unique per Article.
func (s *Store) RenameSnippet(ctx context.Context, id int64, name string) (Snippet, error) {
	var sn Snippet
	err := s.withTx(ctx, "rename snippet", func(tx *sql.Tx) error {
		current, err := getSnippet(ctx, tx, id)
		if err != nil {
			return err
		}

		name = normalizeName(name)
		taken, err := nameTaken(ctx, tx, "snippets", "article_id", current.ArticleID, name, id)
		if err != nil {
			return err
		}
		if taken {
			return Conflict("snippet", fmt.Sprintf("article %d", current.ArticleID), name)
		}

		if _, err := tx.ExecContext(ctx,
			"UPDATE snippets SET name = ?, updated_at = ? WHERE id = ?", name, s.stamp(), id); err != nil {
			return fmt.Errorf("update snippet: %w", err)
		}
		sn, err = getSnippet(ctx, tx, id)
		return err
	})
	return sn, err
}

// DeleteSnippet removes a Snippet owned by articleID.
// Returns the Snippet as it was before deletion.
func (s *Store) DeleteSnippet(ctx context.Context, articleID, snippetID int64) (Snippet, error) {
	var deleted Snippet
	err := s.withTx(ctx, "delete snippet", func(tx *sql.Tx) error {
		var err error
		deleted, err = scanSnippet(tx.QueryRowContext(ctx,
			`SELECT `+snippetColumns+` FROM snippets WHERE id = ? AND article_id = ?`, snippetID, articleID))
		if errors.Is(err, sql.ErrNoRows) {
			return &Error{
				Code:    ErrCodeNotFound,
				Entity:  "snippet",
				ID:      snippetID,
				Message: fmt.Sprintf("snippet %d does not exist for article %d in the current World", snippetID, articleID),
			}
		}
		if err != nil {
			return fmt.Errorf("get snippet: %w", err)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM snippets WHERE id = ?", snippetID); err != nil {
			return fmt.Errorf("delete snippet: %w", err)
		}
		return nil
	})
	if err != nil {
		return Snippet{}, err
	}
	return deleted, nil
}

func getSnippet(ctx context.Context, q Querier, id int64) (Snippet, error) {
	sn, err := scanSnippet(q.QueryRowContext(ctx, `SELECT `+snippetColumns+` FROM snippets WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Snippet{}, NotFound("snippet", id)
	}
	if err != nil {
		return Snippet{}, fmt.Errorf("get snippet: %w", err)
	}
	return sn, nil
}

func scanSnippet(row rowScanner) (Snippet, error) {
	var sn Snippet
	var created, updated int64
	if err := row.Scan(&sn.ID, &sn.ArticleID, &sn.Name, &sn.Content, &created, &updated); err != nil {
		return Snippet{}, err
	}
	sn.CreatedAt = fromMillis(created)
	sn.UpdatedAt = fromMillis(updated)
	return sn, nil
}
