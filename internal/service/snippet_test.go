package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sakif/codesnap/internal/apperror"
	"github.com/sakif/codesnap/internal/model"
	"github.com/sakif/codesnap/internal/repository"
)

// mockSnippetRepo stores snippets in memory and captures the ListOptions the
// service composed, so clamping and allow-listing can be asserted directly.
type mockSnippetRepo struct {
	snippets map[string]*model.Snippet
	lastOpts repository.ListOptions
	listOut  *repository.ListResult
}

func newMockSnippetRepo() *mockSnippetRepo {
	return &mockSnippetRepo{
		snippets: make(map[string]*model.Snippet),
		listOut:  &repository.ListResult{},
	}
}

func (m *mockSnippetRepo) Create(_ context.Context, snippet *model.Snippet) error {
	if _, exists := m.snippets[snippet.ID]; exists {
		return apperror.Conflict("snippet", snippet.ID)
	}
	stored := *snippet
	m.snippets[snippet.ID] = &stored
	return nil
}

func (m *mockSnippetRepo) GetByID(_ context.Context, id string) (*model.Snippet, error) {
	snippet, ok := m.snippets[id]
	if !ok {
		return nil, apperror.NotFound("snippet", id)
	}
	return snippet, nil
}

func (m *mockSnippetRepo) List(_ context.Context, opts repository.ListOptions) (*repository.ListResult, error) {
	m.lastOpts = opts
	return m.listOut, nil
}

func (m *mockSnippetRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.snippets[id]; !ok {
		return apperror.NotFound("snippet", id)
	}
	delete(m.snippets, id)
	return nil
}

// =========================================================================
// CREATE
// =========================================================================

func TestSnippetCreate_Defaults(t *testing.T) {
	repo := newMockSnippetRepo()
	svc := NewSnippetService(repo, discardLogger())

	snippet, err := svc.Create(context.Background(), CreateSnippetInput{
		Title:   "  hello  ",
		Content: "print('hi')",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if snippet.Title != "hello" {
		t.Errorf("Title = %q, want trimmed %q", snippet.Title, "hello")
	}
	if snippet.Language != "plaintext" {
		t.Errorf("Language = %q, want default %q", snippet.Language, "plaintext")
	}
	if len(snippet.ID) != 10 {
		t.Errorf("generated ID %q is not 10 characters", snippet.ID)
	}
	if snippet.IsVerified {
		t.Error("IsVerified = true without an admin session")
	}
}

func TestSnippetCreate_HonoursSuppliedID(t *testing.T) {
	svc := NewSnippetService(newMockSnippetRepo(), discardLogger())

	snippet, err := svc.Create(context.Background(), CreateSnippetInput{
		ID:      "clientid01",
		Title:   "t",
		Content: "c",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if snippet.ID != "clientid01" {
		t.Errorf("ID = %q, want the caller-supplied %q", snippet.ID, "clientid01")
	}
}

func TestSnippetCreate_Validation(t *testing.T) {
	svc := NewSnippetService(newMockSnippetRepo(), discardLogger())
	ctx := context.Background()

	tests := []struct {
		name string
		in   CreateSnippetInput
	}{
		{"missing title", CreateSnippetInput{Content: "c"}},
		{"whitespace title", CreateSnippetInput{Title: "   ", Content: "c"}},
		{"missing content", CreateSnippetInput{Title: "t"}},
		{"overlong title", CreateSnippetInput{Title: strings.Repeat("x", MaxTitleLength+1), Content: "c"}},
		{"overlong content", CreateSnippetInput{Title: "t", Content: strings.Repeat("x", MaxContentLength+1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, tt.in); !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("Create() error = %v, want ErrValidation", err)
			}
		})
	}
}

// =========================================================================
// LIST COMPOSITION
// =========================================================================

func TestSnippetList_ClampsPagination(t *testing.T) {
	tests := []struct {
		name       string
		params     ListParams
		wantLimit  int
		wantOffset int
	}{
		{"defaults", ListParams{}, DefaultPageSize, 0},
		{"negative page", ListParams{Page: -3}, DefaultPageSize, 0},
		{"zero limit", ListParams{Page: 2, Limit: 0}, DefaultPageSize, DefaultPageSize},
		{"negative limit", ListParams{Limit: -5}, DefaultPageSize, 0},
		{"oversized limit", ListParams{Limit: 9999}, MaxPageSize, 0},
		{"page three", ListParams{Page: 3, Limit: 10}, 10, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockSnippetRepo()
			svc := NewSnippetService(repo, discardLogger())

			if _, err := svc.List(context.Background(), tt.params); err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if repo.lastOpts.Limit != tt.wantLimit {
				t.Errorf("Limit = %d, want %d", repo.lastOpts.Limit, tt.wantLimit)
			}
			if repo.lastOpts.Offset != tt.wantOffset {
				t.Errorf("Offset = %d, want %d", repo.lastOpts.Offset, tt.wantOffset)
			}
		})
	}
}

func TestSnippetList_SortAllowList(t *testing.T) {
	tests := []struct {
		sort string
		want string
	}{
		{"created_at", repository.SortCreatedAt},
		{"views_count", repository.SortViewsCount},
		{"likes_count", repository.SortLikesCount},
		{"", repository.SortCreatedAt},
		{"password_hash", repository.SortCreatedAt}, // not on the allow-list
	}

	for _, tt := range tests {
		repo := newMockSnippetRepo()
		svc := NewSnippetService(repo, discardLogger())

		if _, err := svc.List(context.Background(), ListParams{Sort: tt.sort}); err != nil {
			t.Fatalf("List(sort=%q) error = %v", tt.sort, err)
		}
		if repo.lastOpts.Sort != tt.want {
			t.Errorf("List(sort=%q) composed sort %q, want %q", tt.sort, repo.lastOpts.Sort, tt.want)
		}
	}
}

func TestSnippetList_OrderDefaultsToDescending(t *testing.T) {
	repo := newMockSnippetRepo()
	svc := NewSnippetService(repo, discardLogger())
	ctx := context.Background()

	if _, err := svc.List(ctx, ListParams{Order: "asc"}); err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if !repo.lastOpts.Ascending {
		t.Error("order=asc did not compose an ascending query")
	}

	for _, order := range []string{"", "desc", "sideways"} {
		if _, err := svc.List(ctx, ListParams{Order: order}); err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if repo.lastOpts.Ascending {
			t.Errorf("order=%q composed ascending, want descending default", order)
		}
	}
}

func TestSnippetList_PageArithmetic(t *testing.T) {
	repo := newMockSnippetRepo()
	repo.listOut = &repository.ListResult{
		Items: make([]model.Snippet, 10),
		Total: 25,
	}
	svc := NewSnippetService(repo, discardLogger())

	page, err := svc.List(context.Background(), ListParams{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	if page.Pages != 3 {
		t.Errorf("Pages = %d, want 3 (25 items / 10 per page)", page.Pages)
	}
	if !page.HasMore {
		t.Error("HasMore = false on page 1 of 3")
	}
}
