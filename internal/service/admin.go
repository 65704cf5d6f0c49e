// Package service — admin session verification.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/codesnap/internal/apperror"
	"github.com/sakif/codesnap/internal/auth"
	"github.com/sakif/codesnap/internal/model"
	"github.com/sakif/codesnap/internal/repository"
)

// Uniform outcome messages. Login failures never reveal whether the username
// exists; verify failures never reveal whether the signature, the expiry, or
// the existence re-check tripped.
const (
	msgInvalidCredentials = "invalid credentials"
	msgInvalidToken       = "invalid or expired token"
)

// AdminService owns the admin session lifecycle: credential check, token
// issuance, and stateless verification with a revocation re-check.
type AdminService struct {
	repo      repository.AdminRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAdminService(
	repo repository.AdminRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AdminService {
	return &AdminService{
		repo:      repo,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// Session bundles the admin's public record with the issued token, so the
// handler can respond in one step.
type Session struct {
	User  *model.Admin
	Token string
}

// Login checks the credentials and issues a 7-day session token.
//
// A missing account and a wrong password produce the IDENTICAL error — user
// enumeration through the login form must not be possible. Datastore faults
// other than not-found propagate as hard failures.
func (s *AdminService) Login(ctx context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperror.ValidationFailed("credentials", "username and password are required")
	}

	admin, err := s.repo.GetAdminByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized(msgInvalidCredentials)
		}
		return nil, fmt.Errorf("looking up admin: %w", err)
	}

	if err := s.passwords.Verify(admin.PasswordHash, password); err != nil {
		s.logger.Warn("admin login rejected", slog.String("username", username))
		return nil, apperror.Unauthorized(msgInvalidCredentials)
	}

	token, err := s.tokens.Generate(admin.ID, admin.Username, admin.DisplayName)
	if err != nil {
		return nil, fmt.Errorf("issuing admin token: %w", err)
	}

	s.logger.Info("admin logged in", slog.String("username", admin.Username))
	return &Session{User: admin, Token: token}, nil
}

// Verify validates a session token and re-checks that the admin still
// exists. The re-check gives deletion revocation semantics: removing the
// admin row invalidates every outstanding token immediately, signed or not.
//
// Every failure mode — bad signature, expiry, deleted account — collapses
// into the same uniform Unauthorized outcome.
func (s *AdminService) Verify(ctx context.Context, token string) (*model.Admin, error) {
	if strings.TrimSpace(token) == "" {
		return nil, apperror.ValidationFailed("token", "token is required")
	}

	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, apperror.Unauthorized(msgInvalidToken)
	}

	admin, err := s.repo.GetAdminByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized(msgInvalidToken)
		}
		return nil, fmt.Errorf("re-checking admin %s: %w", claims.Subject, err)
	}

	return admin, nil
}

// Bootstrap creates the configured admin account if it doesn't exist yet.
// Called once at startup; a no-op when the account is already provisioned or
// when no credentials are configured.
func (s *AdminService) Bootstrap(ctx context.Context, username, password, displayName string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil
	}

	_, err := s.repo.GetAdminByUsername(ctx, username)
	if err == nil {
		return nil // already provisioned
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return fmt.Errorf("checking for existing admin: %w", err)
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return fmt.Errorf("hashing bootstrap password: %w", err)
	}

	admin := &model.Admin{
		Username:     username,
		PasswordHash: hash,
		DisplayName:  displayName,
	}
	if err := s.repo.CreateAdmin(ctx, admin); err != nil {
		return fmt.Errorf("creating bootstrap admin: %w", err)
	}

	s.logger.Info("bootstrap admin created", slog.String("username", username))
	return nil
}
