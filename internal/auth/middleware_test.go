package auth

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sessionEcho(tokens *TokenService, captured *string) http.Handler {
	return EnsureSession(tokens, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := SessionIDFromContext(r.Context())
		*captured = id
	}))
}

func TestEnsureSession_MintsCookieOnFirstVisit(t *testing.T) {
	tokens, err := NewTokenService(testSecret)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	var sessionID string
	h := sessionEcho(tokens, &sessionID)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if sessionID == "" {
		t.Fatal("no session ID placed in context")
	}

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("session cookie not set")
	}
	if cookie.MaxAge != 0 || !cookie.Expires.IsZero() {
		t.Error("session cookie must not outlive the browsing session")
	}
	if !cookie.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}

	// The cookie round-trips to the same session ID.
	got, err := tokens.Validate(cookie.Value)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got != sessionID {
		t.Errorf("cookie session ID = %q, want %q", got, sessionID)
	}
}

func TestEnsureSession_ReusesValidCookie(t *testing.T) {
	tokens, _ := NewTokenService(testSecret)

	var sessionID string
	h := sessionEcho(tokens, &sessionID)

	signed, err := tokens.Generate("existing-session")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: signed})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if sessionID != "existing-session" {
		t.Errorf("session ID = %q, want %q", sessionID, "existing-session")
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie {
			t.Error("cookie re-set despite a valid session")
		}
	}
}

func TestEnsureSession_ReplacesInvalidCookie(t *testing.T) {
	tokens, _ := NewTokenService(testSecret)

	var sessionID string
	h := sessionEcho(tokens, &sessionID)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "garbage"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	// A fresh anonymous session, not an error.
	if sessionID == "" {
		t.Fatal("no session ID for invalid cookie")
	}
	replaced := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie && c.Value != "garbage" {
			replaced = true
		}
	}
	if !replaced {
		t.Error("invalid cookie not replaced")
	}
}

func TestEnsureVisitor(t *testing.T) {
	var visitorID string
	h := EnsureVisitor(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		visitorID, _ = VisitorIDFromContext(r.Context())
	}))

	// First visit mints a persistent cookie.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if visitorID == "" {
		t.Fatal("no visitor ID placed in context")
	}
	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == VisitorCookie {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("visitor cookie not set")
	}
	if cookie.MaxAge <= 0 {
		t.Error("visitor cookie must persist")
	}

	// Later visits reuse the ID.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: VisitorCookie, Value: cookie.Value})
	h.ServeHTTP(httptest.NewRecorder(), req)

	if visitorID != cookie.Value {
		t.Errorf("visitor ID = %q, want %q", visitorID, cookie.Value)
	}
}
