package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sakif/codesnap/internal/middleware"
)

// captureVisitorID wraps the middleware around a handler that records what
// the context carried.
func captureVisitorID(contextID *string) http.Handler {
	return middleware.VisitorID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*contextID = middleware.VisitorIDFromContext(r.Context())
	}))
}

func visitorCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == middleware.VisitorCookieName {
			return c
		}
	}
	return nil
}

func TestVisitorID_MintsCookieForNewClient(t *testing.T) {
	var contextID string
	h := captureVisitorID(&contextID)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if contextID == "" {
		t.Fatal("expected a visitor ID in the request context")
	}

	cookie := visitorCookie(t, rr)
	if cookie == nil {
		t.Fatalf("expected a %s cookie on the response", middleware.VisitorCookieName)
	}
	if cookie.Value != contextID {
		t.Errorf("cookie value = %q, context ID = %q, want them equal", cookie.Value, contextID)
	}
	if !cookie.HttpOnly {
		t.Error("visitor cookie should be HttpOnly")
	}
	if cookie.Path != "/" {
		t.Errorf("cookie path = %q, want \"/\"", cookie.Path)
	}
}

func TestVisitorID_ReusesExistingCookie(t *testing.T) {
	var contextID string
	h := captureVisitorID(&contextID)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: middleware.VisitorCookieName, Value: "visitor-abc"})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if contextID != "visitor-abc" {
		t.Errorf("context ID = %q, want the cookie's value", contextID)
	}
	if cookie := visitorCookie(t, rr); cookie != nil {
		t.Errorf("got Set-Cookie %q for a returning client, want none", cookie.Value)
	}
}

func TestVisitorID_StableAcrossRequests(t *testing.T) {
	var firstID, secondID string
	h := captureVisitorID(&firstID)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	// Replay the minted cookie: the second request must resolve to the same
	// identifier, which is what the engagement dedup relies on.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rr.Result().Cookies() {
		req.AddCookie(c)
	}
	captureVisitorID(&secondID).ServeHTTP(httptest.NewRecorder(), req)

	if firstID == "" || firstID != secondID {
		t.Errorf("visitor IDs across requests = %q, %q, want one stable ID", firstID, secondID)
	}
}

func TestVisitorIDFromContext_Absent(t *testing.T) {
	if got := middleware.VisitorIDFromContext(context.Background()); got != "" {
		t.Errorf("VisitorIDFromContext() = %q on a bare context, want empty", got)
	}
}
