package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/codesnap/internal/identity"
	"github.com/sakif/codesnap/internal/middleware"
	"github.com/sakif/codesnap/internal/service"
)

// Informational outcomes for duplicate engagement events. These are 200s
// with a message, NOT errors — the client treats them as state, and an
// impatient double-click must not surface a failure toast.
const (
	msgAlreadyLiked = "Already liked"
	msgNotLikedYet  = "Not liked yet"
	msgViewCounted  = "View already counted"
)

// EngagementHandler owns the like and view endpoints.
type EngagementHandler struct {
	engagement *service.EngagementService
	logger     *slog.Logger
}

func NewEngagementHandler(engagement *service.EngagementService, logger *slog.Logger) *EngagementHandler {
	return &EngagementHandler{
		engagement: engagement,
		logger:     logger,
	}
}

// likeRequest is the optional body for like/unlike calls. The frontend sends
// its persisted identifier; when absent we derive one server-side.
type likeRequest struct {
	UserID string `json:"user_id"`
}

type likeResponse struct {
	Success bool  `json:"success"`
	Likes   int64 `json:"likes"`
}

type viewResponse struct {
	Success bool  `json:"success"`
	Views   int64 `json:"views"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// HandleAddLike serves POST /likes/{id}.
func (h *EngagementHandler) HandleAddLike(w http.ResponseWriter, r *http.Request) {
	snippetID := chi.URLParam(r, "id")
	userID := h.userIdentifier(r)

	result, err := h.engagement.AddLike(r.Context(), snippetID, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	if !result.Changed {
		writeJSON(w, http.StatusOK, messageResponse{Message: msgAlreadyLiked})
		return
	}
	writeJSON(w, http.StatusOK, likeResponse{Success: true, Likes: result.Likes})
}

// HandleRemoveLike serves DELETE /likes/{id}.
func (h *EngagementHandler) HandleRemoveLike(w http.ResponseWriter, r *http.Request) {
	snippetID := chi.URLParam(r, "id")
	userID := h.userIdentifier(r)

	result, err := h.engagement.RemoveLike(r.Context(), snippetID, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	if !result.Changed {
		writeJSON(w, http.StatusOK, messageResponse{Message: msgNotLikedYet})
		return
	}
	writeJSON(w, http.StatusOK, likeResponse{Success: true, Likes: result.Likes})
}

// HandleRecordView serves POST /views/{id}. No body — the client key is
// always derived server-side (visitor cookie, then network address).
func (h *EngagementHandler) HandleRecordView(w http.ResponseWriter, r *http.Request) {
	snippetID := chi.URLParam(r, "id")
	clientKey := identity.BestUserIdentifier(
		middleware.VisitorIDFromContext(r.Context()), r.RemoteAddr)

	result, err := h.engagement.RecordView(r.Context(), snippetID, clientKey)
	if err != nil {
		writeError(w, err)
		return
	}

	if !result.Counted {
		writeJSON(w, http.StatusOK, messageResponse{Message: msgViewCounted})
		return
	}
	writeJSON(w, http.StatusOK, viewResponse{Success: true, Views: result.Views})
}

// userIdentifier resolves who is liking: the body's user_id when the client
// sent one, otherwise the best server-side identifier. An absent or
// malformed body is fine — likes must work without one.
func (h *EngagementHandler) userIdentifier(r *http.Request) string {
	var req likeRequest
	if r.Body != nil {
		// Decode errors (empty body, bad JSON) fall through to derivation.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.UserID != "" {
		return req.UserID
	}
	return identity.BestUserIdentifier(
		middleware.VisitorIDFromContext(r.Context()), r.RemoteAddr)
}
