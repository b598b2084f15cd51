package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const connectionColumns = `id, main_article_id, other_article_id, other_article_role, connection_description_id, created_at, updated_at`

// CreateConnection connects two Articles. It creates one shared, empty
// description and the two mirrored rows (main→other, other→main), both with
// empty roles, in one transaction.
//
// Fails with NotFound if either Article is missing and with Conflict if the
// Articles are the same or already connected.
func (s *Store) CreateConnection(ctx context.Context, mainArticleID, otherArticleID int64) (Connection, error) {
	var conn Connection
	err := s.withTx(ctx, "create connection", func(tx *sql.Tx) error {
		for _, id := range []int64{mainArticleID, otherArticleID} {
			ok, err := exists(ctx, tx, "articles", id)
			if err != nil {
				return err
			}
			if !ok {
				return NotFound("article", id)
			}
		}
		if mainArticleID == otherArticleID {
			return &Error{
				Code:    ErrCodeConflict,
				Entity:  "connection",
				ID:      mainArticleID,
				Message: fmt.Sprintf("article %d cannot be connected to itself", mainArticleID),
			}
		}

		var count int
		if err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM connections WHERE main_article_id = ? AND other_article_id = ?
		`, mainArticleID, otherArticleID).Scan(&count); err != nil {
			return fmt.Errorf("check existing connection: %w", err)
		}
		if count > 0 {
			return &Error{
				Code:    ErrCodeConflict,
				Entity:  "connection",
				ID:      mainArticleID,
				Message: fmt.Sprintf("article %d is already connected to article %d", mainArticleID, otherArticleID),
			}
		}

		now := s.stamp()
		result, err := tx.ExecContext(ctx, `
			INSERT INTO connection_descriptions (content, created_at, updated_at) VALUES ('', ?, ?)
		`, now, now)
		if err != nil {
			return fmt.Errorf("insert description: %w", err)
		}
		descriptionID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}

		mainID, err := insertConnectionRow(ctx, tx, mainArticleID, otherArticleID, descriptionID, now)
		if err != nil {
			return err
		}
		if _, err := insertConnectionRow(ctx, tx, otherArticleID, mainArticleID, descriptionID, now); err != nil {
			return err
		}

		conn = Connection{
			ID:             mainID,
			MainArticleID:  mainArticleID,
			OtherArticleID: otherArticleID,
			CreatedAt:      fromMillis(now),
			UpdatedAt:      fromMillis(now),
		}
		return nil
	})
	return conn, err
}

func insertConnectionRow(ctx context.Context, tx *sql.Tx, mainArticleID, otherArticleID, descriptionID, now int64) (int64, error) {
	result, err := tx.ExecContext(ctx, `
		INSERT INTO connections
		(main_article_id, other_article_id, other_article_role, connection_description_id, created_at, updated_at)
		VALUES (?, ?, '', ?, ?, ?)
	`, mainArticleID, otherArticleID, descriptionID, now, now)
	if err != nil {
		return 0, fmt.Errorf("insert connection: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// UpdateConnection rewrites both roles and the shared description of a
// pair. otherArticleRole is stored on the row identified by connectionID;
// mainArticleRole is stored on its mirror.
func (s *Store) UpdateConnection(ctx context.Context, connectionID int64, mainArticleRole, otherArticleRole, description string) (Connection, error) {
	var conn Connection
	err := s.withTx(ctx, "update connection", func(tx *sql.Tx) error {
		main, mirror, err := loadPair(ctx, tx, "id = ?", connectionID)
		if err != nil {
			return err
		}
		if err := requireDescription(ctx, tx, main); err != nil {
			return err
		}

		now := s.stamp()
		if _, err := tx.ExecContext(ctx,
			"UPDATE connections SET other_article_role = ?, updated_at = ? WHERE id = ?",
			otherArticleRole, now, main.ID); err != nil {
			return fmt.Errorf("update connection: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE connections SET other_article_role = ?, updated_at = ? WHERE id = ?",
			mainArticleRole, now, mirror.ID); err != nil {
			return fmt.Errorf("update mirror connection: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE connection_descriptions SET content = ?, updated_at = ? WHERE id = ?",
			description, now, main.ConnectionDescriptionID); err != nil {
			return fmt.Errorf("update description: %w", err)
		}

		conn = Connection{
			ID:               main.ID,
			MainArticleID:    main.MainArticleID,
			MainArticleRole:  mainArticleRole,
			OtherArticleID:   main.OtherArticleID,
			OtherArticleRole: otherArticleRole,
			Description:      description,
			CreatedAt:        main.CreatedAt,
			UpdatedAt:        fromMillis(now),
		}
		return nil
	})
	return conn, err
}

// DeleteConnection removes a connection pair and its description. The row
// connectionID must belong to articleID. Returns the row as it was before
// deletion.
func (s *Store) DeleteConnection(ctx context.Context, articleID, connectionID int64) (ConnectionRow, error) {
	var deleted ConnectionRow
	err := s.withTx(ctx, "delete connection", func(tx *sql.Tx) error {
		main, mirror, err := loadPair(ctx, tx, "id = ? AND main_article_id = ?", connectionID, articleID)
		if err != nil {
			var se *Error
			if errors.As(err, &se) && se.Entity == "connection" && se.ID == connectionID {
				se.Message = fmt.Sprintf("connection %d does not exist for article %d in the current World", connectionID, articleID)
			}
			return err
		}
		if err := requireDescription(ctx, tx, main); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM connection_descriptions WHERE id = ?", main.ConnectionDescriptionID); err != nil {
			return InternalConsistency("connection", connectionID, fmt.Errorf("delete description: %w", err))
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM connections WHERE id = ?", mirror.ID); err != nil {
			return InternalConsistency("connection", connectionID, fmt.Errorf("delete mirror: %w", err))
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM connections WHERE id = ?", main.ID); err != nil {
			return InternalConsistency("connection", connectionID, fmt.Errorf("delete connection: %w", err))
		}
		deleted = main
		return nil
	})
	if err != nil {
		return ConnectionRow{}, err
	}
	return deleted, nil
}

// GetConnections lists an Article's outgoing connections ordered by the
// other Article's name.
func (s *Store) GetConnections(ctx context.Context, articleID int64, offset, limit int) ([]ConnectionListing, error) {
	lim, off := page(offset, limit)
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.main_article_id, c.other_article_id, o.name, c.other_article_role,
		       COALESCE(d.content, ''), c.created_at, c.updated_at
		FROM connections c
		JOIN articles o ON o.id = c.other_article_id
		LEFT JOIN connection_descriptions d ON d.id = c.connection_description_id
		WHERE c.main_article_id = ?
		ORDER BY o.name ASC, c.id ASC
		LIMIT ? OFFSET ?
	`, articleID, lim, off)
	if err != nil {
		return nil, fmt.Errorf("query connections: %w", err)
	}
	defer rows.Close()

	listings := []ConnectionListing{}
	for rows.Next() {
		var l ConnectionListing
		var created, updated int64
		if err := rows.Scan(&l.ID, &l.MainArticleID, &l.OtherArticleID, &l.OtherArticleName,
			&l.OtherArticleRole, &l.Description, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan connection: %w", err)
		}
		l.CreatedAt = fromMillis(created)
		l.UpdatedAt = fromMillis(updated)
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate connections: %w", err)
	}
	return listings, nil
}

// GetConnection returns one connection enriched with both Article names and
// the shared description. MainArticleRole is read from the mirror row.
func (s *Store) GetConnection(ctx context.Context, connectionID int64) (ConnectionDetail, error) {
	var d ConnectionDetail
	var descriptionID, created, updated int64
	err := s.db.QueryRowContext(ctx, `
		SELECT c.id, c.main_article_id, m.name, c.other_article_id, o.name, c.other_article_role,
		       c.connection_description_id, COALESCE(d.content, ''), c.created_at, c.updated_at
		FROM connections c
		JOIN articles m ON m.id = c.main_article_id
		JOIN articles o ON o.id = c.other_article_id
		LEFT JOIN connection_descriptions d ON d.id = c.connection_description_id
		WHERE c.id = ?
	`, connectionID).Scan(&d.ID, &d.MainArticleID, &d.MainArticleName, &d.OtherArticleID, &d.OtherArticleName,
		&d.OtherArticleRole, &descriptionID, &d.Description, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return ConnectionDetail{}, NotFound("connection", connectionID)
	}
	if err != nil {
		return ConnectionDetail{}, fmt.Errorf("get connection: %w", err)
	}
	d.CreatedAt = fromMillis(created)
	d.UpdatedAt = fromMillis(updated)

	mirror, err := loadMirror(ctx, s.db, ConnectionRow{ID: d.ID, MainArticleID: d.MainArticleID, OtherArticleID: d.OtherArticleID})
	if err != nil {
		return ConnectionDetail{}, wrapOp("get connection", err)
	}
	d.MainArticleRole = mirror.OtherArticleRole
	return d, nil
}

// GetAvailableArticlesForConnection returns, grouped by Category, every
// Article that articleID is not yet connected to, excluding articleID itself.
// The candidate set is recomputed on every call.
func (s *Store) GetAvailableArticlesForConnection(ctx context.Context, articleID int64) ([]CategoryArticles, error) {
	ok, err := exists(ctx, s.db, "articles", articleID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NotFound("article", articleID)
	}

	categories, err := s.GetCategories(ctx, 0, 0)
	if err != nil {
		return nil, err
	}

	groups := make([]CategoryArticles, 0, len(categories))
	for _, cat := range categories {
		articles, err := s.queryArticles(ctx, `
			SELECT `+articleColumns+`
			FROM articles
			WHERE category_id = ?
			  AND id != ?
			  AND id NOT IN (SELECT other_article_id FROM connections WHERE main_article_id = ?)
			ORDER BY name ASC, id ASC
		`, cat.ID, articleID, articleID)
		if err != nil {
			return nil, err
		}
		groups = append(groups, CategoryArticles{CategoryID: cat.ID, Name: cat.Name, Articles: articles})
	}
	return groups, nil
}

// loadPair loads the row matching where and its mirror. A missing mirror is
// reported as NotFound: it means the pair invariant is already broken.
func loadPair(ctx context.Context, q Querier, where string, args ...any) (ConnectionRow, ConnectionRow, error) {
	main, err := scanConnectionRow(q.QueryRowContext(ctx, `SELECT `+connectionColumns+` FROM connections WHERE `+where, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return ConnectionRow{}, ConnectionRow{}, NotFound("connection", args[0].(int64))
	}
	if err != nil {
		return ConnectionRow{}, ConnectionRow{}, fmt.Errorf("get connection: %w", err)
	}

	mirror, err := loadMirror(ctx, q, main)
	if err != nil {
		return ConnectionRow{}, ConnectionRow{}, err
	}
	return main, mirror, nil
}

func loadMirror(ctx context.Context, q Querier, main ConnectionRow) (ConnectionRow, error) {
	mirror, err := scanConnectionRow(q.QueryRowContext(ctx, `
		SELECT `+connectionColumns+` FROM connections
		WHERE main_article_id = ? AND other_article_id = ?
	`, main.OtherArticleID, main.MainArticleID))
	if errors.Is(err, sql.ErrNoRows) {
		return ConnectionRow{}, &Error{
			Code:    ErrCodeNotFound,
			Entity:  "mirror connection",
			ID:      main.ID,
			Message: fmt.Sprintf("mirror connection for connection %d does not exist", main.ID),
		}
	}
	if err != nil {
		return ConnectionRow{}, fmt.Errorf("get mirror connection: %w", err)
	}
	return mirror, nil
}

func requireDescription(ctx context.Context, q Querier, main ConnectionRow) error {
	ok, err := exists(ctx, q, "connection_descriptions", main.ConnectionDescriptionID)
	if err != nil {
		return err
	}
	if !ok {
		return &Error{
			Code:    ErrCodeNotFound,
			Entity:  "connection description",
			ID:      main.ConnectionDescriptionID,
			Message: fmt.Sprintf("description for connection %d does not exist", main.ID),
		}
	}
	return nil
}

func scanConnectionRow(row rowScanner) (ConnectionRow, error) {
	var c ConnectionRow
	var created, updated int64
	if err := row.Scan(&c.ID, &c.MainArticleID, &c.OtherArticleID, &c.OtherArticleRole,
		&c.ConnectionDescriptionID, &created, &updated); err != nil {
		return ConnectionRow{}, err
	}
	c.CreatedAt = fromMillis(created)
	c.UpdatedAt = fromMillis(updated)
	return c, nil
}
