package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/codesnap/internal/apperror"
)

const dedupWindow = 30 * time.Minute

// windowCutoff is what the service passes as `since`: now minus the window.
func windowCutoff() time.Time {
	return time.Now().Add(-dedupWindow)
}

// backdateViews shifts every view row for a key into the past, simulating
// the passage of time without sleeping in tests.
func backdateViews(t *testing.T, db *DB, viewKey string, age time.Duration) {
	t.Helper()
	_, err := db.conn.Exec(
		`UPDATE snippet_views SET created_at = ? WHERE view_key = ?`,
		time.Now().UTC().Add(-age), viewKey,
	)
	if err != nil {
		t.Fatalf("failed to backdate views for %s: %v", viewKey, err)
	}
}

// =========================================================================
// LIKE TESTS
// =========================================================================

func TestAddLike(t *testing.T) {
	db := newTestDB(t)
	createTestSnippet(t, db, "likeable01", "t", "c", "go")

	likes, added, err := db.AddLike(context.Background(), "likeable01", "local_user1")
	if err != nil {
		t.Fatalf("AddLike() error = %v", err)
	}
	if !added {
		t.Error("AddLike() added = false, want true for a first like")
	}
	if likes != 1 {
		t.Errorf("likes = %d, want 1", likes)
	}
}

// The core idempotency property: liking twice accounts once.
func TestAddLike_SecondCallIsNoOp(t *testing.T) {
	db := newTestDB(t)
	createTestSnippet(t, db, "likeable02", "t", "c", "go")
	ctx := context.Background()

	if _, _, err := db.AddLike(ctx, "likeable02", "local_user1"); err != nil {
		t.Fatalf("first AddLike() error = %v", err)
	}

	likes, added, err := db.AddLike(ctx, "likeable02", "local_user1")
	if err != nil {
		t.Fatalf("second AddLike() error = %v", err)
	}
	if added {
		t.Error("second AddLike() added = true, want false")
	}
	if likes != 1 {
		t.Errorf("likes after duplicate = %d, want 1 (counter unchanged)", likes)
	}

	// The counter must equal the ledger-row count.
	var ledgerRows int64
	if err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM snippet_likes WHERE snippet_id = ?`, "likeable02",
	).Scan(&ledgerRows); err != nil {
		t.Fatalf("counting ledger rows: %v", err)
	}
	if ledgerRows != 1 {
		t.Errorf("ledger rows = %d, want 1", ledgerRows)
	}
}

func TestAddLike_DistinctUsersEachCount(t *testing.T) {
	db := newTestDB(t)
	createTestSnippet(t, db, "likeable03", "t", "c", "go")
	ctx := context.Background()

	for i, user := range []string{"local_a", "local_b", "ip_203.0.113.7"} {
		likes, added, err := db.AddLike(ctx, "likeable03", user)
		if err != nil {
			t.Fatalf("AddLike(%s) error = %v", user, err)
		}
		if !added || likes != int64(i+1) {
			t.Errorf("AddLike(%s) = (%d, %v), want (%d, true)", user, likes, added, i+1)
		}
	}
}

func TestAddLike_SnippetNotFound(t *testing.T) {
	db := newTestDB(t)

	_, _, err := db.AddLike(context.Background(), "ghost12345", "local_user1")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("AddLike() error = %v, want ErrNotFound", err)
	}

	// The rollback must also discard the orphan ledger row.
	var rows int64
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM snippet_likes`).Scan(&rows); err != nil {
		t.Fatalf("counting ledger rows: %v", err)
	}
	if rows != 0 {
		t.Errorf("orphan like rows left behind: %d", rows)
	}
}

// addLike then removeLike returns the counter to its starting value.
func TestRemoveLike_Symmetry(t *testing.T) {
	db := newTestDB(t)
	createTestSnippet(t, db, "likeable04", "t", "c", "go")
	ctx := context.Background()

	if _, _, err := db.AddLike(ctx, "likeable04", "local_user1"); err != nil {
		t.Fatalf("AddLike() error = %v", err)
	}

	likes, removed, err := db.RemoveLike(ctx, "likeable04", "local_user1")
	if err != nil {
		t.Fatalf("RemoveLike() error = %v", err)
	}
	if !removed {
		t.Error("RemoveLike() removed = false, want true")
	}
	if likes != 0 {
		t.Errorf("likes = %d, want 0", likes)
	}
}

func TestRemoveLike_NeverLikedIsNoOp(t *testing.T) {
	db := newTestDB(t)
	createTestSnippet(t, db, "likeable05", "t", "c", "go")

	likes, removed, err := db.RemoveLike(context.Background(), "likeable05", "local_stranger")
	if err != nil {
		t.Fatalf("RemoveLike() error = %v", err)
	}
	if removed {
		t.Error("RemoveLike() removed = true for a never-liked pair")
	}
	if likes != 0 {
		t.Errorf("likes = %d, want 0", likes)
	}
}

// Repeated removals can never drive the counter negative.
func TestRemoveLike_CounterFloor(t *testing.T) {
	db := newTestDB(t)
	createTestSnippet(t, db, "likeable06", "t", "c", "go")
	ctx := context.Background()

	if _, _, err := db.AddLike(ctx, "likeable06", "local_user1"); err != nil {
		t.Fatalf("AddLike() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		likes, _, err := db.RemoveLike(ctx, "likeable06", "local_user1")
		if err != nil {
			t.Fatalf("RemoveLike() #%d error = %v", i+1, err)
		}
		if likes < 0 {
			t.Fatalf("likes = %d — counter went negative", likes)
		}
	}
}

// =========================================================================
// VIEW TESTS
// =========================================================================

func TestRecordView(t *testing.T) {
	db := newTestDB(t)
	createTestSnippet(t, db, "viewable01", "t", "c", "go")

	views, counted, err := db.RecordView(context.Background(),
		"viewable01", "viewable01_ip_203.0.113.7", "ip_203.0.113.7", windowCutoff())
	if err != nil {
		t.Fatalf("RecordView() error = %v", err)
	}
	if !counted || views != 1 {
		t.Errorf("RecordView() = (%d, %v), want (1, true)", views, counted)
	}
}

func TestRecordView_DedupWithinWindow(t *testing.T) {
	db := newTestDB(t)
	createTestSnippet(t, db, "viewable02", "t", "c", "go")
	ctx := context.Background()
	key := "viewable02_local_abc"

	if _, _, err := db.RecordView(ctx, "viewable02", key, "local_abc", windowCutoff()); err != nil {
		t.Fatalf("first RecordView() error = %v", err)
	}

	views, counted, err := db.RecordView(ctx, "viewable02", key, "local_abc", windowCutoff())
	if err != nil {
		t.Fatalf("second RecordView() error = %v", err)
	}
	if counted {
		t.Error("second view within the window was counted")
	}
	if views != 1 {
		t.Errorf("views = %d, want 1", views)
	}
}

func TestRecordView_CountsAgainAfterWindow(t *testing.T) {
	db := newTestDB(t)
	createTestSnippet(t, db, "viewable03", "t", "c", "go")
	ctx := context.Background()
	key := "viewable03_local_abc"

	if _, _, err := db.RecordView(ctx, "viewable03", key, "local_abc", windowCutoff()); err != nil {
		t.Fatalf("first RecordView() error = %v", err)
	}

	// More than 30 minutes pass.
	backdateViews(t, db, key, dedupWindow+time.Minute)

	views, counted, err := db.RecordView(ctx, "viewable03", key, "local_abc", windowCutoff())
	if err != nil {
		t.Fatalf("RecordView() after window error = %v", err)
	}
	if !counted {
		t.Error("view after the window expired was not counted")
	}
	if views != 2 {
		t.Errorf("views = %d, want 2", views)
	}
}

func TestRecordView_DistinctClientsEachCount(t *testing.T) {
	db := newTestDB(t)
	createTestSnippet(t, db, "viewable04", "t", "c", "go")
	ctx := context.Background()

	for i, client := range []string{"local_a", "ip_198.51.100.9"} {
		key := "viewable04_" + client
		views, counted, err := db.RecordView(ctx, "viewable04", key, client, windowCutoff())
		if err != nil {
			t.Fatalf("RecordView(%s) error = %v", client, err)
		}
		if !counted || views != int64(i+1) {
			t.Errorf("RecordView(%s) = (%d, %v), want (%d, true)", client, views, counted, i+1)
		}
	}
}

func TestRecordView_SnippetNotFound(t *testing.T) {
	db := newTestDB(t)
	_, _, err := db.RecordView(context.Background(),
		"ghost12345", "ghost12345_local_a", "local_a", windowCutoff())
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("RecordView() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// RETENTION TESTS
// =========================================================================

func TestDeleteViewsBefore(t *testing.T) {
	db := newTestDB(t)
	createTestSnippet(t, db, "viewable05", "t", "c", "go")
	ctx := context.Background()

	fresh := "viewable05_local_fresh"
	stale := "viewable05_local_stale"
	if _, _, err := db.RecordView(ctx, "viewable05", fresh, "local_fresh", windowCutoff()); err != nil {
		t.Fatalf("RecordView() error = %v", err)
	}
	if _, _, err := db.RecordView(ctx, "viewable05", stale, "local_stale", windowCutoff()); err != nil {
		t.Fatalf("RecordView() error = %v", err)
	}
	backdateViews(t, db, stale, 25*time.Hour)

	deleted, err := db.DeleteViewsBefore(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteViewsBefore() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	// The purge must not touch the counter — it only trims dedup bookkeeping.
	snippet, err := db.GetByID(ctx, "viewable05")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if snippet.ViewsCount != 2 {
		t.Errorf("ViewsCount = %d after purge, want 2", snippet.ViewsCount)
	}
}
