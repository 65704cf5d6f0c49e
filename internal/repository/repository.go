// Package repository defines the persistence gateway interfaces.
//
// The gateway exclusively owns table access: services never touch SQL or the
// driver directly. Programming against these interfaces (rather than the
// concrete sqlite.DB) keeps the service layer storage-agnostic and lets tests
// substitute in-memory mocks.
package repository

import (
	"context"
	"time"

	"github.com/sakif/codesnap/internal/model"
)

// Sort fields accepted by ListOptions. Anything else falls back to
// SortCreatedAt — the allow-list is enforced before SQL is composed, so a
// caller-supplied sort string can never reach the query text.
const (
	SortCreatedAt  = "created_at"
	SortViewsCount = "views_count"
	SortLikesCount = "likes_count"
)

// ListOptions carries the filter/sort/paginate parameters for snippet
// discovery. The service layer clamps and defaults these before they get
// here; the repository trusts them.
type ListOptions struct {
	Limit     int
	Offset    int
	Sort      string // one of the Sort* constants
	Ascending bool
	Language  string // exact language-tag match; "" = no filter
	Search    string // case-insensitive substring on title OR content; "" = no filter
}

// ListResult is a page of snippets plus the total match count, which the
// handler needs to compute total pages.
type ListResult struct {
	Items []model.Snippet
	Total int64
}

type SnippetRepository interface {
	Create(ctx context.Context, snippet *model.Snippet) error
	GetByID(ctx context.Context, id string) (*model.Snippet, error)
	List(ctx context.Context, opts ListOptions) (*ListResult, error)
	Delete(ctx context.Context, id string) error
}

// EngagementRepository is the write path for the like/view ledger.
//
// Each method is a single atomic unit: the ledger-row mutation and the
// denormalized counter update commit or roll back together, and the table's
// uniqueness constraint backstops concurrent duplicates that race past the
// existence check. This atomicity is a correctness requirement, not an
// optimization — see the engagement service.
type EngagementRepository interface {
	// AddLike records a like for (snippetID, userID) and bumps the counter.
	// Returns the counter value and whether a new like was actually recorded
	// (false = the pair already existed, nothing changed).
	AddLike(ctx context.Context, snippetID, userID string) (likes int64, added bool, err error)

	// RemoveLike deletes the like row for (snippetID, userID) and decrements
	// the counter, clamped at zero. removed=false means there was no like to
	// remove and the counter is untouched.
	RemoveLike(ctx context.Context, snippetID, userID string) (likes int64, removed bool, err error)

	// RecordView inserts a view event for viewKey unless one newer than
	// `since` already exists, bumping the counter only on a fresh insert.
	RecordView(ctx context.Context, snippetID, viewKey, clientKey string, since time.Time) (views int64, counted bool, err error)

	// DeleteViewsBefore purges view rows older than the cutoff. They are
	// dedup-only data and carry no meaning outside the dedup window.
	DeleteViewsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type AdminRepository interface {
	CreateAdmin(ctx context.Context, admin *model.Admin) error
	GetAdminByUsername(ctx context.Context, username string) (*model.Admin, error)
	GetAdminByID(ctx context.Context, id string) (*model.Admin, error)
	DeleteAdmin(ctx context.Context, id string) error
}
