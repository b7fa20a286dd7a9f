package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/sakif/snippets-api/internal/apperror"
	"github.com/sakif/snippets-api/internal/highlight"
	"github.com/sakif/snippets-api/internal/model"
	"github.com/sakif/snippets-api/internal/repository"
)

// Compile-time check that *DB implements repository.SnippetRepository.
var _ repository.SnippetRepository = (*DB)(nil)

// selectSnippet reads a snippet together with its owner's username.
// Every scan in this file expects exactly these columns in this order.
const selectSnippet = `
	SELECT s.id, s.created, s.title, s.code, s.linenos, s.language, s.style,
	       s.owner_id, u.username, s.highlighted
	FROM snippets s
	JOIN users u ON u.id = s.owner_id`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnippet(row rowScanner, s *model.Snippet) error {
	return row.Scan(
		&s.ID, &s.Created, &s.Title, &s.Code, &s.Linenos, &s.Language, &s.Style,
		&s.OwnerID, &s.Owner, &s.Highlighted,
	)
}

// render recomputes the derived highlighted field. Both write paths call it
// before touching the database, so a stored row is never out of date.
func render(s *model.Snippet) error {
	out, err := highlight.Render(s.Code, s.Language, s.Style, s.Linenos)
	if err != nil {
		return fmt.Errorf("sqlite: rendering snippet: %w", err)
	}
	s.Highlighted = out
	return nil
}

// Create inserts a new snippet.
//
// On success the caller's struct has its ID, Created timestamp, Highlighted
// field and Owner display name filled in. OwnerID must already be set; the
// foreign key rejects an owner that does not exist.
func (db *DB) Create(ctx context.Context, snippet *model.Snippet) error {
	if snippet.OwnerID == "" {
		return fmt.Errorf("sqlite: creating snippet: owner is required")
	}
	if err := render(snippet); err != nil {
		return err
	}

	// Stored in UTC so the textual DATETIME values sort chronologically.
	snippet.Created = time.Now().UTC()

	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO snippets (created, title, code, linenos, language, style, owner_id, highlighted)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		snippet.Created,
		snippet.Title,
		snippet.Code,
		snippet.Linenos,
		snippet.Language,
		snippet.Style,
		snippet.OwnerID,
		snippet.Highlighted,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating snippet: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new snippet id: %w", err)
	}
	snippet.ID = id

	err = db.conn.QueryRowContext(ctx,
		`SELECT username FROM users WHERE id = ?`, snippet.OwnerID,
	).Scan(&snippet.Owner)
	if err != nil {
		return fmt.Errorf("sqlite: reading owner of snippet %d: %w", id, err)
	}

	return nil
}

// GetByID retrieves a single snippet by its ID.
// sql.ErrNoRows is translated to apperror.NotFound so the handler can return 404.
func (db *DB) GetByID(ctx context.Context, id int64) (*model.Snippet, error) {
	var snippet model.Snippet

	err := scanSnippet(db.conn.QueryRowContext(ctx, selectSnippet+` WHERE s.id = ?`, id), &snippet)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("snippet", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: getting snippet %d: %w", id, err)
	}

	return &snippet, nil
}

// List retrieves one window of snippets, newest first.
//
// Two snippets created within the same clock tick are ordered by id, so the
// order is total and pages never overlap.
func (db *DB) List(ctx context.Context, opts repository.ListOptions) ([]model.Snippet, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := db.conn.QueryContext(ctx,
		selectSnippet+`
		 ORDER BY s.created DESC, s.id DESC
		 LIMIT ? OFFSET ?`,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing snippets: %w", err)
	}
	defer rows.Close()

	snippets := make([]model.Snippet, 0, limit)
	for rows.Next() {
		var s model.Snippet
		if err := scanSnippet(rows, &s); err != nil {
			return nil, fmt.Errorf("sqlite: scanning snippet row: %w", err)
		}
		snippets = append(snippets, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating snippets: %w", err)
	}

	return snippets, nil
}

// Count returns the total number of snippets.
func (db *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM snippets`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting snippets: %w", err)
	}
	return n, nil
}

// ListIDsByOwner returns the IDs of every snippet owned by ownerID, newest first.
func (db *DB) ListIDsByOwner(ctx context.Context, ownerID string) ([]int64, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id FROM snippets WHERE owner_id = ? ORDER BY created DESC, id DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing snippets of %s: %w", ownerID, err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scanning snippet id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating snippet ids: %w", err)
	}
	return ids, nil
}

// Update rewrites the client-editable fields and the derived highlighted field.
//
// id, created and owner_id are not in the SET clause: they are immutable.
// RowsAffected == 0 means the snippet does not exist.
func (db *DB) Update(ctx context.Context, snippet *model.Snippet) error {
	if err := render(snippet); err != nil {
		return err
	}

	result, err := db.conn.ExecContext(ctx,
		`UPDATE snippets
		 SET title = ?, code = ?, linenos = ?, language = ?, style = ?, highlighted = ?
		 WHERE id = ?`,
		snippet.Title,
		snippet.Code,
		snippet.Linenos,
		snippet.Language,
		snippet.Style,
		snippet.Highlighted,
		snippet.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating snippet %d: %w", snippet.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("snippet", strconv.FormatInt(snippet.ID, 10))
	}

	return nil
}

// Delete removes a snippet by its ID.
func (db *DB) Delete(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM snippets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting snippet %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("snippet", strconv.FormatInt(id, 10))
	}

	return nil
}
