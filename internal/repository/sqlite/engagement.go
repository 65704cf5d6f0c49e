package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/codesnap/internal/apperror"
	"github.com/sakif/codesnap/internal/repository"
)

var _ repository.EngagementRepository = (*DB)(nil)

// The engagement ledger's counter invariant — views_count/likes_count always
// equal the number of accounted ledger rows — only holds if the row insert
// and the counter bump commit together. Every method here therefore runs in
// one transaction: either both land or neither does. The UNIQUE constraint on
// snippet_likes(snippet_id, user_id) and the NOT EXISTS guard on view keys
// are the backstop for duplicate requests racing each other; the transaction
// is the backstop for crashes between the two steps.

// AddLike records a like for (snippetID, userID), at most once per pair.
//
// INSERT OR IGNORE leans on the UNIQUE constraint: a second like from the
// same user affects zero rows, and we report "already liked" without touching
// the counter. Only a fresh insert increments likes_count, via a single
// UPDATE ... RETURNING — the read-modify-write happens inside the database,
// never in this process.
func (db *DB) AddLike(ctx context.Context, snippetID, userID string) (int64, bool, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("sqlite: beginning like transaction: %w", err)
	}
	defer tx.Rollback()

	// Existence check first. OR IGNORE only suppresses UNIQUE/NOT NULL/CHECK
	// conflicts — a missing snippet would abort the insert on the foreign key
	// instead of reporting not-found.
	likes, err := likeCount(ctx, tx, snippetID)
	if err != nil {
		return 0, false, err
	}

	result, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO snippet_likes (id, snippet_id, user_id, created_at)
		 VALUES (?, ?, ?, ?)`,
		xid.New().String(), snippetID, userID, time.Now().UTC(),
	)
	if err != nil {
		return 0, false, fmt.Errorf("sqlite: inserting like: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("sqlite: checking like insert: %w", err)
	}

	if inserted == 0 {
		// Already liked — a no-op, not an error. Report the current count.
		return likes, false, tx.Commit()
	}

	err = tx.QueryRowContext(ctx,
		`UPDATE snippets SET likes_count = likes_count + 1
		 WHERE id = ? RETURNING likes_count`,
		snippetID,
	).Scan(&likes)
	if err != nil {
		return 0, false, fmt.Errorf("sqlite: incrementing like count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("sqlite: committing like: %w", err)
	}
	return likes, true, nil
}

// RemoveLike is the symmetric operation: delete the ledger row, then
// decrement the counter. MAX(..., 0) floors the counter at zero even if the
// denormalized count has somehow drifted below the ledger.
func (db *DB) RemoveLike(ctx context.Context, snippetID, userID string) (int64, bool, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("sqlite: beginning unlike transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`DELETE FROM snippet_likes WHERE snippet_id = ? AND user_id = ?`,
		snippetID, userID,
	)
	if err != nil {
		return 0, false, fmt.Errorf("sqlite: deleting like: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("sqlite: checking like delete: %w", err)
	}

	if deleted == 0 {
		// Never liked (or already unliked) — no-op.
		likes, err := likeCount(ctx, tx, snippetID)
		if err != nil {
			return 0, false, err
		}
		return likes, false, tx.Commit()
	}

	var likes int64
	err = tx.QueryRowContext(ctx,
		`UPDATE snippets SET likes_count = MAX(likes_count - 1, 0)
		 WHERE id = ? RETURNING likes_count`,
		snippetID,
	).Scan(&likes)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, false, apperror.NotFound("snippet", snippetID)
		}
		return 0, false, fmt.Errorf("sqlite: decrementing like count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("sqlite: committing unlike: %w", err)
	}
	return likes, true, nil
}

// RecordView counts a view for viewKey at most once per dedup window.
// `since` is the window cutoff (now minus the window), computed by the
// service so the policy lives in one place.
//
// The conditional INSERT ... WHERE NOT EXISTS collapses "check for a recent
// view, then insert" into one statement: concurrent duplicates serialize on
// the write lock and only the first one lands a row.
func (db *DB) RecordView(ctx context.Context, snippetID, viewKey, clientKey string, since time.Time) (int64, bool, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("sqlite: beginning view transaction: %w", err)
	}
	defer tx.Rollback()

	// Same existence check as AddLike: the foreign key would otherwise abort
	// the insert for a missing snippet before not-found could be reported.
	views, err := viewCount(ctx, tx, snippetID)
	if err != nil {
		return 0, false, err
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO snippet_views (id, snippet_id, view_key, client_key, created_at)
		 SELECT ?, ?, ?, ?, ?
		 WHERE NOT EXISTS (
			 SELECT 1 FROM snippet_views WHERE view_key = ? AND created_at > ?
		 )`,
		xid.New().String(), snippetID, viewKey, clientKey, time.Now().UTC(),
		viewKey, since.UTC(),
	)
	if err != nil {
		return 0, false, fmt.Errorf("sqlite: inserting view: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("sqlite: checking view insert: %w", err)
	}

	if inserted == 0 {
		// A view from this client is already on the books for this window.
		return views, false, tx.Commit()
	}

	err = tx.QueryRowContext(ctx,
		`UPDATE snippets SET views_count = views_count + 1
		 WHERE id = ? RETURNING views_count`,
		snippetID,
	).Scan(&views)
	if err != nil {
		return 0, false, fmt.Errorf("sqlite: incrementing view count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("sqlite: committing view: %w", err)
	}
	return views, true, nil
}

// DeleteViewsBefore purges view rows older than the cutoff. Run periodically
// by the server's janitor — stale rows are dead weight once they fall out of
// the dedup window.
func (db *DB) DeleteViewsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM snippet_views WHERE created_at < ?`, cutoff.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: purging stale views: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking view purge: %w", err)
	}
	return deleted, nil
}

func likeCount(ctx context.Context, tx *sql.Tx, snippetID string) (int64, error) {
	var likes int64
	err := tx.QueryRowContext(ctx,
		`SELECT likes_count FROM snippets WHERE id = ?`, snippetID,
	).Scan(&likes)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, apperror.NotFound("snippet", snippetID)
		}
		return 0, fmt.Errorf("sqlite: reading like count: %w", err)
	}
	return likes, nil
}

func viewCount(ctx context.Context, tx *sql.Tx, snippetID string) (int64, error) {
	var views int64
	err := tx.QueryRowContext(ctx,
		`SELECT views_count FROM snippets WHERE id = ?`, snippetID,
	).Scan(&views)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, apperror.NotFound("snippet", snippetID)
		}
		return 0, fmt.Errorf("sqlite: reading view count: %w", err)
	}
	return views, nil
}
