package auth

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/xid"
)

// contextKey is an unexported type for context keys in this package, so no
// other package can read or shadow our values.
type contextKey string

const (
	sessionIDKey contextKey = "sessionID"
	visitorIDKey contextKey = "visitorID"
)

const (
	// SessionCookie carries the signed session ID. No Max-Age: the browser
	// drops it when the browsing session ends, taking the server-side token
	// association with it.
	SessionCookie = "session"

	// VisitorCookie identifies a browser across sessions. It only keys the
	// theme preference, so it is a plain random ID, not signed.
	VisitorCookie = "visitor_id"

	visitorCookieMaxAge = int(365 * 24 * time.Hour / time.Second)
)

// EnsureSession is a middleware that guarantees every request downstream has
// a session ID in its context.
//
// If the request carries a valid session cookie, its ID is reused. Otherwise
// a fresh ID is minted and a new signed cookie is set. An invalid or tampered
// cookie is treated the same as no cookie — the visitor silently gets a fresh
// anonymous session rather than an error page.
func EnsureSession(tokens *TokenService, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := ""
			if cookie, err := r.Cookie(SessionCookie); err == nil {
				if id, err := tokens.Validate(cookie.Value); err == nil {
					sessionID = id
				}
			}

			if sessionID == "" {
				sessionID = xid.New().String()
				signed, err := tokens.Generate(sessionID)
				if err != nil {
					logger.Error("failed to sign session cookie", slog.String("error", err.Error()))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
					return
				}
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookie,
					Value:    signed,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
					// No MaxAge/Expires: session cookie, cleared when the
					// browsing session ends.
				})
			}

			ctx := context.WithValue(r.Context(), sessionIDKey, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// EnsureVisitor guarantees a long-lived visitor ID in the request context,
// minting the cookie on first sight.
func EnsureVisitor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		visitorID := ""
		if cookie, err := r.Cookie(VisitorCookie); err == nil && cookie.Value != "" {
			visitorID = cookie.Value
		}

		if visitorID == "" {
			visitorID = xid.New().String()
			http.SetCookie(w, &http.Cookie{
				Name:     VisitorCookie,
				Value:    visitorID,
				Path:     "/",
				MaxAge:   visitorCookieMaxAge,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), visitorIDKey, visitorID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionIDFromContext returns the session ID placed by EnsureSession.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey).(string)
	return id, ok && id != ""
}

// VisitorIDFromContext returns the visitor ID placed by EnsureVisitor.
func VisitorIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(visitorIDKey).(string)
	return id, ok && id != ""
}
