package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sakif/codesnap/internal/apperror"
	"github.com/sakif/codesnap/internal/model"
	"github.com/sakif/codesnap/internal/repository"
)

// Compile-time check that *DB implements repository.SnippetRepository.
var _ repository.SnippetRepository = (*DB)(nil)

const snippetColumns = `id, title, content, language, description, is_private,
	user_id, author, is_verified, views_count, likes_count, created_at`

// Create inserts a new snippet. The caller (the service layer) has already
// assigned the ID and applied defaults; the repository only sets CreatedAt
// and counters start at zero.
func (db *DB) Create(ctx context.Context, snippet *model.Snippet) error {
	snippet.CreatedAt = time.Now().UTC()
	snippet.ViewsCount = 0
	snippet.LikesCount = 0

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO snippets (id, title, content, language, description,
			is_private, user_id, author, is_verified, views_count, likes_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0, ?)`,
		snippet.ID,
		snippet.Title,
		snippet.Content,
		snippet.Language,
		snippet.Description,
		snippet.IsPrivate,
		snippet.UserID,
		snippet.Author,
		snippet.IsVerified,
		snippet.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			// An externally generated ID can collide with an existing row.
			return apperror.Conflict("snippet", snippet.ID)
		}
		return fmt.Errorf("sqlite: creating snippet: %w", err)
	}

	return nil
}

// GetByID retrieves a single snippet, private or not — direct links to
// private snippets must keep working; only listings hide them.
//
// sql.ErrNoRows is expected control flow and becomes apperror.NotFound;
// anything else is a real database fault and propagates wrapped.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Snippet, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+snippetColumns+` FROM snippets WHERE id = ?`, id)

	snippet, err := scanSnippet(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("snippet", id)
		}
		return nil, fmt.Errorf("sqlite: getting snippet %s: %w", id, err)
	}
	return snippet, nil
}

// List runs the composed discovery query: optional language/search filters,
// allow-listed sort, LIMIT/OFFSET window, plus a COUNT(*) over the same
// filters so the handler can report total pages.
//
// Private snippets never appear here — the public feed is public.
func (db *DB) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult, error) {
	// WHERE clause is assembled from fixed fragments; caller input only ever
	// lands in the args slice, never in the SQL text.
	where := []string{"is_private = 0"}
	args := []any{}

	if opts.Language != "" {
		where = append(where, "language = ?")
		args = append(args, opts.Language)
	}
	if opts.Search != "" {
		// Case-insensitive substring match on title OR content. LOWER on both
		// sides keeps the behaviour deterministic regardless of the driver's
		// LIKE case-folding rules.
		where = append(where, "(LOWER(title) LIKE ? OR LOWER(content) LIKE ?)")
		needle := "%" + strings.ToLower(opts.Search) + "%"
		args = append(args, needle, needle)
	}
	whereSQL := strings.Join(where, " AND ")

	var total int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM snippets WHERE `+whereSQL, args...,
	).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("sqlite: counting snippets: %w", err)
	}

	orderSQL := orderClause(opts.Sort, opts.Ascending)

	queryArgs := append(args, opts.Limit, opts.Offset)
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+snippetColumns+` FROM snippets
		 WHERE `+whereSQL+`
		 ORDER BY `+orderSQL+`
		 LIMIT ? OFFSET ?`,
		queryArgs...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing snippets: %w", err)
	}
	defer rows.Close()

	items := make([]model.Snippet, 0, opts.Limit)
	for rows.Next() {
		s, err := scanSnippet(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning snippet row: %w", err)
		}
		items = append(items, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating snippets: %w", err)
	}

	return &repository.ListResult{Items: items, Total: total}, nil
}

// Delete removes a snippet; its like/view ledger rows go with it via
// ON DELETE CASCADE.
func (db *DB) Delete(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM snippets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting snippet %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("snippet", id)
	}
	return nil
}

// orderClause maps the allow-listed sort field to SQL. The repository
// re-checks the allow-list even though the service already sanitized it —
// this string is spliced into the query text, so it gets belt and braces.
func orderClause(sort string, ascending bool) string {
	col := repository.SortCreatedAt
	switch sort {
	case repository.SortViewsCount, repository.SortLikesCount, repository.SortCreatedAt:
		col = sort
	}
	dir := "DESC"
	if ascending {
		dir = "ASC"
	}
	return col + " " + dir
}

// scanner covers both *sql.Row and *sql.Rows so scanSnippet works for single
// and multi-row queries.
type scanner interface {
	Scan(dest ...any) error
}

func scanSnippet(s scanner) (*model.Snippet, error) {
	var snippet model.Snippet
	err := s.Scan(
		&snippet.ID,
		&snippet.Title,
		&snippet.Content,
		&snippet.Language,
		&snippet.Description,
		&snippet.IsPrivate,
		&snippet.UserID,
		&snippet.Author,
		&snippet.IsVerified,
		&snippet.ViewsCount,
		&snippet.LikesCount,
		&snippet.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &snippet, nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint failure.
// modernc.org/sqlite surfaces these with the constraint name in the message;
// matching on the text is crude but the driver exposes no typed error for it.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
