// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// Snippet represents a shared code snippet with its denormalized engagement
// counters.
//
// ViewsCount and LikesCount are caches of the corresponding ledger-row counts
// (snippet_views / snippet_likes rows). They are maintained incrementally by
// the engagement repository's atomic counter updates, never recomputed on read.
//
// The `json:"..."` tags follow the wire format the frontend expects
// (snake_case, matching the public API).
type Snippet struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Language    string    `json:"language"`    // defaults to "plaintext"
	Description string    `json:"description"` // optional, may be empty
	IsPrivate   bool      `json:"is_private"`  // private snippets are hidden from listings
	UserID      string    `json:"user_id"`     // pseudonymous owner identifier
	Author      string    `json:"author"`      // display name shown on the snippet
	IsVerified  bool      `json:"is_verified"` // true only when created under an admin session
	ViewsCount  int64     `json:"views_count"`
	LikesCount  int64     `json:"likes_count"`
	CreatedAt   time.Time `json:"created_at"`
}
