// Package service contains the business logic layer.
//
// The layering is the usual three-step chain:
//
//	Handler (HTTP)  → parses requests, writes responses
//	Service (rules) → validates, clamps, orchestrates, logs business events
//	Repository (DB) → the only code that issues SQL
//
// Services accept primitives and plain structs — never *http.Request — and
// return domain errors from apperror, never status codes. The handler owns
// the translation in both directions.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/codesnap/internal/apperror"
	"github.com/sakif/codesnap/internal/identity"
	"github.com/sakif/codesnap/internal/model"
	"github.com/sakif/codesnap/internal/repository"
)

// Validation and pagination constants.
const (
	MaxTitleLength   = 200
	MaxContentLength = 200000 // ~200KB of code
	DefaultPageSize  = 10
	MaxPageSize      = 50
)

// SnippetService handles snippet creation, retrieval, and the listing query
// composition for the explore feed.
type SnippetService struct {
	repo   repository.SnippetRepository
	logger *slog.Logger
}

func NewSnippetService(repo repository.SnippetRepository, logger *slog.Logger) *SnippetService {
	return &SnippetService{
		repo:   repo,
		logger: logger,
	}
}

// CreateSnippetInput carries everything the caller may supply for a new
// snippet. ID is optional — the frontend historically generated its own, and
// we honour a supplied one; otherwise the service generates it.
type CreateSnippetInput struct {
	ID          string
	Title       string
	Content     string
	Language    string
	Description string
	IsPrivate   bool
	UserID      string
	Author      string
	IsVerified  bool // set by the handler ONLY from a verified admin session
}

// Create validates and saves a new snippet.
func (s *SnippetService) Create(ctx context.Context, in CreateSnippetInput) (*model.Snippet, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "title is required")
	}
	if len(title) > MaxTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	if in.Content == "" {
		return nil, apperror.ValidationFailed("content", "content is required")
	}
	if len(in.Content) > MaxContentLength {
		return nil, apperror.ValidationFailed("content",
			fmt.Sprintf("content must be %d characters or less", MaxContentLength))
	}

	language := strings.TrimSpace(in.Language)
	if language == "" {
		language = "plaintext"
	}

	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = identity.NewSnippetID()
	}

	snippet := &model.Snippet{
		ID:          id,
		Title:       title,
		Content:     in.Content,
		Language:    language,
		Description: strings.TrimSpace(in.Description),
		IsPrivate:   in.IsPrivate,
		UserID:      in.UserID,
		Author:      strings.TrimSpace(in.Author),
		IsVerified:  in.IsVerified,
	}

	if err := s.repo.Create(ctx, snippet); err != nil {
		s.logger.Error("failed to create snippet",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating snippet: %w", err)
	}

	s.logger.Info("snippet created",
		slog.String("id", snippet.ID),
		slog.String("language", snippet.Language),
		slog.Bool("verified", snippet.IsVerified),
	)
	return snippet, nil
}

// GetByID retrieves a snippet, private or public, by its ID.
func (s *SnippetService) GetByID(ctx context.Context, id string) (*model.Snippet, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "snippet ID is required")
	}
	return s.repo.GetByID(ctx, id)
}

// Delete removes a snippet. Exposed only on the admin surface.
func (s *SnippetService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "snippet ID is required")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("snippet deleted", slog.String("id", id))
	return nil
}

// ListParams are the raw, caller-supplied discovery parameters. Nothing here
// is trusted: List clamps and allow-lists every field before composing the
// query.
type ListParams struct {
	Page     int
	Limit    int
	Sort     string // created_at | views_count | likes_count
	Order    string // asc | desc
	Language string
	Search   string
}

// ListPage is one page of results plus the bookkeeping the feed UI needs.
type ListPage struct {
	Items   []model.Snippet
	Total   int64
	Page    int
	Limit   int
	Pages   int64
	HasMore bool
}

// List composes and runs the discovery query.
//
// CLAMPING RULES:
//   - page < 1        → 1
//   - limit <= 0      → DefaultPageSize (10)
//   - limit > 50      → MaxPageSize (50)
//   - unknown sort    → created_at
//   - order != "asc"  → descending
//
// Offset is (page-1)*limit. HasMore is derived from the returned page being
// full-sized AND the window not covering the total.
func (s *SnippetService) List(ctx context.Context, params ListParams) (*ListPage, error) {
	page := params.Page
	if page < 1 {
		page = 1
	}
	limit := params.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	sort := params.Sort
	switch sort {
	case repository.SortCreatedAt, repository.SortViewsCount, repository.SortLikesCount:
	default:
		sort = repository.SortCreatedAt
	}

	result, err := s.repo.List(ctx, repository.ListOptions{
		Limit:     limit,
		Offset:    (page - 1) * limit,
		Sort:      sort,
		Ascending: params.Order == "asc",
		Language:  strings.TrimSpace(params.Language),
		Search:    strings.TrimSpace(params.Search),
	})
	if err != nil {
		s.logger.Error("failed to list snippets", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing snippets: %w", err)
	}

	pages := result.Total / int64(limit)
	if result.Total%int64(limit) != 0 {
		pages++
	}

	return &ListPage{
		Items:   result.Items,
		Total:   result.Total,
		Page:    page,
		Limit:   limit,
		Pages:   pages,
		HasMore: len(result.Items) == limit && int64(page*limit) < result.Total,
	}, nil
}
