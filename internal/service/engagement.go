// Package service — the engagement ledger.
//
// The ledger guarantees at-most-one accounted like per (snippet, user) and
// at-most-one accounted view per (snippet, client) per 30-minute window,
// while keeping the snippet's denormalized counters in step with the ledger
// rows. Duplicate events are no-ops with an informational outcome, never
// errors — the frontend shows "already liked" as a state, not a failure.
//
// The atomicity story lives in the repository: each ledger mutation and its
// counter bump are one transaction, and the table constraints backstop
// concurrent duplicates. This layer owns the policy (the dedup window, the
// key shapes, validation) and the outcome semantics.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/codesnap/internal/apperror"
	"github.com/sakif/codesnap/internal/identity"
	"github.com/sakif/codesnap/internal/repository"
)

// ViewDedupWindow is how long a (snippet, client) pair stays "already
// counted" after a view lands.
const ViewDedupWindow = 30 * time.Minute

// ViewRetention is how long view rows are kept before the janitor purges
// them. Anything older than the dedup window is dead weight; 24h leaves a
// comfortable margin for debugging.
const ViewRetention = 24 * time.Hour

// EngagementService decides whether a like/view event is new, records it,
// and reports the resulting counter.
type EngagementService struct {
	repo   repository.EngagementRepository
	logger *slog.Logger
}

func NewEngagementService(repo repository.EngagementRepository, logger *slog.Logger) *EngagementService {
	return &EngagementService{
		repo:   repo,
		logger: logger,
	}
}

// LikeResult reports the like counter after an operation and whether the
// operation actually changed state (false = idempotent no-op).
type LikeResult struct {
	Likes   int64
	Changed bool
}

// ViewResult is the view-side equivalent.
type ViewResult struct {
	Views   int64
	Counted bool
}

// AddLike records a like for the (snippet, user) pair.
// Liking an already-liked snippet is a no-op: Changed=false, counter as-is.
func (s *EngagementService) AddLike(ctx context.Context, snippetID, userID string) (*LikeResult, error) {
	snippetID = strings.TrimSpace(snippetID)
	if snippetID == "" {
		return nil, apperror.ValidationFailed("id", "snippet ID is required")
	}
	if userID == "" {
		return nil, apperror.ValidationFailed("user_id", "user identifier is required")
	}

	likes, added, err := s.repo.AddLike(ctx, snippetID, userID)
	if err != nil {
		return nil, fmt.Errorf("adding like: %w", err)
	}

	if added {
		s.logger.Info("like recorded",
			slog.String("snippet", snippetID),
			slog.Int64("likes", likes),
		)
	}
	return &LikeResult{Likes: likes, Changed: added}, nil
}

// RemoveLike removes the like for the (snippet, user) pair.
// Unliking a never-liked snippet is a no-op: Changed=false.
func (s *EngagementService) RemoveLike(ctx context.Context, snippetID, userID string) (*LikeResult, error) {
	snippetID = strings.TrimSpace(snippetID)
	if snippetID == "" {
		return nil, apperror.ValidationFailed("id", "snippet ID is required")
	}
	if userID == "" {
		return nil, apperror.ValidationFailed("user_id", "user identifier is required")
	}

	likes, removed, err := s.repo.RemoveLike(ctx, snippetID, userID)
	if err != nil {
		return nil, fmt.Errorf("removing like: %w", err)
	}

	if removed {
		s.logger.Info("like removed",
			slog.String("snippet", snippetID),
			slog.Int64("likes", likes),
		)
	}
	return &LikeResult{Likes: likes, Changed: removed}, nil
}

// RecordView counts a view from clientKey, at most once per dedup window.
// The composite view key is snippetID + clientKey, so the same person viewing
// two snippets counts on both, and two people viewing one snippet count twice.
func (s *EngagementService) RecordView(ctx context.Context, snippetID, clientKey string) (*ViewResult, error) {
	snippetID = strings.TrimSpace(snippetID)
	if snippetID == "" {
		return nil, apperror.ValidationFailed("id", "snippet ID is required")
	}
	if clientKey == "" {
		return nil, apperror.ValidationFailed("client", "client key is required")
	}

	viewKey := identity.ViewKey(snippetID, clientKey)
	since := time.Now().Add(-ViewDedupWindow)

	views, counted, err := s.repo.RecordView(ctx, snippetID, viewKey, clientKey, since)
	if err != nil {
		return nil, fmt.Errorf("recording view: %w", err)
	}

	if counted {
		s.logger.Debug("view recorded",
			slog.String("snippet", snippetID),
			slog.Int64("views", views),
		)
	}
	return &ViewResult{Views: views, Counted: counted}, nil
}

// PurgeStaleViews deletes view rows older than the retention horizon.
// Called periodically by the server's janitor.
func (s *EngagementService) PurgeStaleViews(ctx context.Context) (int64, error) {
	deleted, err := s.repo.DeleteViewsBefore(ctx, time.Now().Add(-ViewRetention))
	if err != nil {
		return 0, fmt.Errorf("purging stale views: %w", err)
	}
	if deleted > 0 {
		s.logger.Info("purged stale view rows", slog.Int64("deleted", deleted))
	}
	return deleted, nil
}
