package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/codesnap/internal/apperror"
	"github.com/sakif/codesnap/internal/model"
	"github.com/sakif/codesnap/internal/service"
)

// AdminHandler owns the admin session endpoints.
type AdminHandler struct {
	admins *service.AdminService
	logger *slog.Logger
}

func NewAdminHandler(admins *service.AdminService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		admins: admins,
		logger: logger,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	User  *model.Admin `json:"user"`
	Token string       `json:"token"`
}

type verifyRequest struct {
	Token string `json:"token"`
}

// verifyResponse is the contract for /admin/verify: always a "valid" flag,
// with the user on success or an error string on failure.
type verifyResponse struct {
	Valid bool         `json:"valid"`
	User  *model.Admin `json:"user,omitempty"`
	Error string       `json:"error,omitempty"`
}

// HandleLogin serves POST /admin/login.
// Admin.PasswordHash is json:"-" tagged, so serializing the user is safe.
func (h *AdminHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	session, err := h.admins.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		User:  session.User,
		Token: session.Token,
	})
}

// HandleVerify serves POST /admin/verify.
//
// The frontend polls this endpoint to decide whether a stored session is
// still good, so it always gets a {valid: ...} body rather than the standard
// error shape. Auth failures are 401 with valid=false; only unexpected
// faults use the generic 500 path.
func (h *AdminHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	admin, err := h.admins.Verify(r.Context(), req.Token)
	if err != nil {
		var appErr *apperror.AppError
		switch {
		case errors.Is(err, apperror.ErrUnauthorized) && errors.As(err, &appErr):
			writeJSON(w, http.StatusUnauthorized, verifyResponse{
				Valid: false,
				Error: appErr.Message,
			})
		case errors.Is(err, apperror.ErrValidation):
			writeError(w, err)
		default:
			h.logger.Error("admin verify failed", slog.String("error", err.Error()))
			writeError(w, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, verifyResponse{Valid: true, User: admin})
}
