package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/codesnap/internal/identity"
	"github.com/sakif/codesnap/internal/middleware"
	"github.com/sakif/codesnap/internal/model"
	"github.com/sakif/codesnap/internal/service"
)

// SnippetHandler owns the snippet endpoints: the explore listing, creation,
// single fetch, raw download, and the admin-only delete.
type SnippetHandler struct {
	snippets *service.SnippetService
	admins   *service.AdminService
	logger   *slog.Logger
}

func NewSnippetHandler(snippets *service.SnippetService, admins *service.AdminService, logger *slog.Logger) *SnippetHandler {
	return &SnippetHandler{
		snippets: snippets,
		admins:   admins,
		logger:   logger,
	}
}

// contentTypes maps a snippet's language tag to the Content-Type served by
// the raw endpoint. A fixed table: unknown languages fall back to text/plain.
var contentTypes = map[string]string{
	"javascript": "application/javascript",
	"typescript": "application/typescript",
	"python":     "text/x-python",
	"java":       "text/x-java",
	"html":       "text/html",
	"css":        "text/css",
	"json":       "application/json",
	"xml":        "application/xml",
}

// listResponse is the explore feed body.
type listResponse struct {
	Items      []model.Snippet `json:"items"`
	Pagination pagination      `json:"pagination"`
}

type pagination struct {
	Page    int   `json:"page"`
	Limit   int   `json:"limit"`
	Total   int64 `json:"total"`
	Pages   int64 `json:"pages"`
	HasMore bool  `json:"has_more"`
}

// HandleList serves GET /snippets?page&limit&sort&order&language&search.
// Unknown or out-of-range parameters are clamped by the service, never
// rejected — the feed should always render something.
func (h *SnippetHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	result, err := h.snippets.List(r.Context(), service.ListParams{
		Page:     page,
		Limit:    limit,
		Sort:     q.Get("sort"),
		Order:    q.Get("order"),
		Language: q.Get("language"),
		Search:   q.Get("search"),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse{
		Items: result.Items,
		Pagination: pagination{
			Page:    result.Page,
			Limit:   result.Limit,
			Total:   result.Total,
			Pages:   result.Pages,
			HasMore: result.HasMore,
		},
	})
}

// createSnippetRequest mirrors the frontend's POST body. All fields beyond
// title/content are optional.
type createSnippetRequest struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	Language    string `json:"language"`
	Description string `json:"description"`
	IsPrivate   bool   `json:"is_private"`
	UserID      string `json:"user_id"`
	Author      string `json:"author"`
}

// HandleCreate serves POST /snippets.
//
// The verified flag is decided HERE, from a verified admin bearer token —
// never from the request body. A client claiming is_verified gets ignored;
// an admin session stamps the snippet verified and signs it with the admin's
// display name.
func (h *SnippetHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createSnippetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid snippet JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	in := service.CreateSnippetInput{
		ID:          req.ID,
		Title:       req.Title,
		Content:     req.Content,
		Language:    req.Language,
		Description: req.Description,
		IsPrivate:   req.IsPrivate,
		UserID:      req.UserID,
		Author:      req.Author,
	}

	if in.UserID == "" {
		in.UserID = identity.BestUserIdentifier(
			middleware.VisitorIDFromContext(r.Context()), r.RemoteAddr)
	}

	if admin := h.adminFromRequest(r); admin != nil {
		in.IsVerified = true
		in.Author = admin.DisplayName
	}

	snippet, err := h.snippets.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, snippet)
}

// HandleGet serves GET /snippets/{id}.
func (h *SnippetHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	snippet, err := h.snippets.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snippet)
}

// HandleRaw serves GET /snippets/raw/{id} — the snippet body as plain bytes,
// with a Content-Type derived from the language tag so browsers render JSON
// as JSON, HTML as HTML, and everything unknown as plain text.
func (h *SnippetHandler) HandleRaw(w http.ResponseWriter, r *http.Request) {
	snippet, err := h.snippets.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	contentType, ok := contentTypes[snippet.Language]
	if !ok {
		contentType = "text/plain"
	}

	filename := snippet.Title
	if filename == "" {
		filename = "snippet"
	}
	ext := snippet.Language
	if ext == "" {
		ext = "txt"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("inline; filename=%q", filename+"."+ext))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(snippet.Content)); err != nil {
		h.logger.Error("failed to write raw snippet", slog.String("error", err.Error()))
	}
}

// HandleDelete serves DELETE /snippets/{id}, admin only.
func (h *SnippetHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if admin := h.adminFromRequest(r); admin == nil {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "admin session required",
		})
		return
	}

	if err := h.snippets.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// adminFromRequest verifies an optional "Authorization: Bearer <token>"
// header. nil means the request carries no valid admin session — which is
// the normal case, not an error.
func (h *SnippetHandler) adminFromRequest(r *http.Request) *model.Admin {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return nil
	}
	admin, err := h.admins.Verify(r.Context(), token)
	if err != nil {
		return nil
	}
	return admin
}
