package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/sakif/codesnap/internal/identity"
)

// VisitorCookieName is the cookie that carries a browser's persistent
// pseudonymous identifier. It is NOT authentication — just a stable handle
// for deduplicating likes and views from the same browser.
const VisitorCookieName = "codesnap_uid"

const visitorCookieTTL = 365 * 24 * time.Hour

// contextKey is unexported so only this package can read or write visitor
// IDs in a request context.
type contextKey string

const visitorIDKey contextKey = "visitorID"

// VisitorID is middleware that guarantees every request has a visitor
// identifier: it reads the cookie if present, otherwise mints a new ID and
// sets the cookie on the response. Either way the ID ends up in the request
// context for handlers to read.
//
// The cookie is HttpOnly (scripts have no business reading it) and survives
// for a year — clearing cookies resets the identifier, which is an accepted
// property of the dedup scheme, not a bug.
func VisitorID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var visitorID string

		if cookie, err := r.Cookie(VisitorCookieName); err == nil && cookie.Value != "" {
			visitorID = cookie.Value
		} else {
			visitorID = identity.NewVisitorID()
			http.SetCookie(w, &http.Cookie{
				Name:     VisitorCookieName,
				Value:    visitorID,
				Path:     "/",
				Expires:  time.Now().Add(visitorCookieTTL),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), visitorIDKey, visitorID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// VisitorIDFromContext returns the request's visitor identifier, or "" when
// the middleware isn't installed (some tests call handlers directly).
func VisitorIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(visitorIDKey).(string)
	return id
}
