// Package identity generates the two kinds of identifiers the application
// hands out: short public snippet IDs and pseudonymous client keys.
//
// SNIPPET IDs vs CLIENT KEYS:
// A snippet ID is a discovery handle — it appears in URLs and is meant to be
// shared. A client key approximates "which browser/person is this" without an
// account system; it is used only to deduplicate likes and views, never for
// authentication.
package identity

import (
	"fmt"
	"math/rand/v2"
	"net"
	"strings"

	"github.com/google/uuid"
)

// snippetIDLength is the length of a public snippet ID. Ten characters over a
// 62-symbol alphabet gives ~59 bits — collisions are negligible at the volumes
// this app sees, so we accept them rather than round-trip to the database for
// a uniqueness check.
const snippetIDLength = 10

const snippetIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Client key prefixes. The prefix records HOW the key was derived, so a
// cookie-based key can never collide with an address-based one.
const (
	prefixLocal = "local_" // persisted visitor cookie (stable per browser)
	prefixIP    = "ip_"    // network address fallback
	prefixTemp  = "temp_"  // throwaway, nothing better was available
)

// NewSnippetID returns a random 10-character alphanumeric snippet ID.
//
// The ID is a public discovery handle, not a secret, so math/rand/v2 is
// enough. Each character is drawn uniformly from the 62-character alphabet.
func NewSnippetID() string {
	var b strings.Builder
	b.Grow(snippetIDLength)
	for range snippetIDLength {
		b.WriteByte(snippetIDAlphabet[rand.IntN(len(snippetIDAlphabet))])
	}
	return b.String()
}

// NewVisitorID returns a fresh identifier to persist in the visitor cookie.
// UUIDv4, matching what the frontend historically stored client-side.
func NewVisitorID() string {
	return uuid.NewString()
}

// BestUserIdentifier returns the most stable pseudonymous identifier available
// for the current client.
//
// Preference order:
//  1. localID — the persisted visitor-cookie value. Same browser, same key,
//     across requests, until the cookie is cleared.
//  2. remoteAddr — the client's network address (the RealIP middleware has
//     already resolved proxy headers by the time handlers see it).
//  3. a throwaway random identifier, so the caller always gets SOMETHING.
//
// The returned key is what the engagement ledger deduplicates on.
func BestUserIdentifier(localID, remoteAddr string) string {
	if localID != "" {
		return prefixLocal + localID
	}
	if ip := canonicalIP(remoteAddr); ip != "" {
		return prefixIP + ip
	}
	return prefixTemp + uuid.NewString()
}

// ViewKey builds the composite dedup key for a view event.
func ViewKey(snippetID, clientKey string) string {
	return fmt.Sprintf("%s_%s", snippetID, clientKey)
}

// canonicalIP strips an optional port from a remote address and returns the
// bare IP, or "" if the address is unusable. r.RemoteAddr is usually
// "host:port", but after chi's RealIP middleware it may already be a bare IP.
func canonicalIP(remoteAddr string) string {
	if remoteAddr == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		remoteAddr = host
	}
	if net.ParseIP(remoteAddr) == nil {
		return ""
	}
	return remoteAddr
}
