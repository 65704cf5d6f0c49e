// Package auth provides JWT tokens and password hashing for admin sessions.
//
// ADMIN SESSION MODEL:
// The only credentialed principal is the dashboard admin. Login verifies the
// password and issues a signed token; the token is then presented on every
// admin call and validated statelessly — signature + expiry from the token
// itself, with a datastore existence re-check layered on top by the service
// (so deleting an admin row revokes all of their outstanding tokens).
//
// A JWT is three base64 segments, HEADER.PAYLOAD.SIGNATURE, signed with
// HMAC-SHA256 over a process-wide secret. Nobody can alter the payload
// without the secret, and verification needs no session storage.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenTTL is the admin session lifetime. Seven days trades convenience
// against exposure; revocation-by-deletion covers the emergency case.
const tokenTTL = 7 * 24 * time.Hour

const issuer = "codesnap"

// TokenService signs and verifies admin session tokens.
// The same HMAC secret does both — keep it long, random, and out of the repo.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// Generate one with: openssl rand -hex 32
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// AdminClaims is the token payload: the standard registered claims plus the
// admin's public identity, so the frontend can render the session without an
// extra lookup. Subject carries the admin ID.
type AdminClaims struct {
	jwt.RegisteredClaims
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

// Generate issues a signed 7-day token for the given admin identity.
func (s *TokenService) Generate(adminID, username, displayName string) (string, error) {
	return s.GenerateWithDuration(adminID, username, displayName, tokenTTL)
}

// GenerateWithDuration issues a token with a custom lifetime. Exported for
// tests that need an already-expired token without sleeping.
func (s *TokenService) GenerateWithDuration(adminID, username, displayName string, d time.Duration) (string, error) {
	now := time.Now()

	claims := AdminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   adminID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
		Username:    username,
		DisplayName: displayName,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a token string, returning its claims.
//
// The checks: signature, expiry (required), issuer, and signing algorithm.
// Pinning the algorithm with WithValidMethods blocks algorithm-confusion
// tricks where an attacker re-signs the token under a method the server
// didn't intend to accept.
//
// Callers get a single generic error for every failure mode — the HTTP layer
// must not reveal WHY a token was rejected.
func (s *TokenService) Validate(tokenStr string) (*AdminClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&AdminClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	claims, ok := token.Claims.(*AdminClaims)
	if !ok || !token.Valid {
		return nil, errors.New("auth: invalid token claims")
	}
	if claims.Subject == "" {
		return nil, errors.New("auth: token has no subject")
	}
	return claims, nil
}
