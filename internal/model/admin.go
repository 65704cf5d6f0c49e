package model

import "time"

// Admin represents a dashboard administrator account.
//
// Admins are the only credentialed principals in the system — regular snippet
// authors are pseudonymous. Accounts are provisioned at startup (see the
// server bootstrap), never through the public API.
//
// PasswordHash carries `json:"-"` so it can NEVER leak into an API response,
// no matter which handler serializes an Admin. The hash is a bcrypt string
// (salt and cost embedded), not a bare digest.
type Admin struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"` // unique
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"display_name"`
	CreatedAt    time.Time `json:"created_at"`
}
