package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// cascadeBatch bounds the number of ids bound into one IN (...) list,
// well below SQLite's host parameter limit.
const cascadeBatch = 500

// deleteArticlesTx removes the given Articles and everything that exists only
// because of them, children first:
//
//  1. snippets of the articles
//  2. field values of the articles
//  3. descriptions of the articles' outgoing connections
//  4. connections in both directions
//  5. the articles
//
// Every connection pair has one row whose main article is in the set, so
// step 3 reaches every description shared with a row removed in step 4.
func deleteArticlesTx(ctx context.Context, tx *sql.Tx, articleIDs []int64) error {
	for start := 0; start < len(articleIDs); start += cascadeBatch {
		end := min(start+cascadeBatch, len(articleIDs))
		if err := deleteArticleBatch(ctx, tx, articleIDs[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func deleteArticleBatch(ctx context.Context, tx *sql.Tx, ids []int64) error {
	in, args := inList(ids)

	if _, err := tx.ExecContext(ctx, "DELETE FROM snippets WHERE article_id IN "+in, args...); err != nil {
		return fmt.Errorf("delete snippets: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM field_values WHERE article_id IN "+in, args...); err != nil {
		return fmt.Errorf("delete field values: %w", err)
	}

	descriptionIDs, err := selectIDs(ctx, tx,
		"SELECT connection_description_id FROM connections WHERE main_article_id IN "+in, args...)
	if err != nil {
		return fmt.Errorf("collect connection descriptions: %w", err)
	}
	for start := 0; start < len(descriptionIDs); start += cascadeBatch {
		end := min(start+cascadeBatch, len(descriptionIDs))
		descIn, descArgs := inList(descriptionIDs[start:end])
		if _, err := tx.ExecContext(ctx, "DELETE FROM connection_descriptions WHERE id IN "+descIn, descArgs...); err != nil {
			return fmt.Errorf("delete connection descriptions: %w", err)
		}
	}

	bothArgs := append(append([]any{}, args...), args...)
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM connections WHERE main_article_id IN "+in+" OR other_article_id IN "+in, bothArgs...); err != nil {
		return fmt.Errorf("delete connections: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM articles WHERE id IN "+in, args...); err != nil {
		return fmt.Errorf("delete articles: %w", err)
	}
	return nil
}

// selectIDs runs a single-column integer query.
func selectIDs(ctx context.Context, tx *sql.Tx, query string, args ...any) ([]int64, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// inList renders "(?, ?, ?)" for ids along with the matching arguments.
func inList(ids []int64) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return "(" + strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ") + ")", args
}
