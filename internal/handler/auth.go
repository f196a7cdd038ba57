package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/gitscope/internal/auth"
	"github.com/sakif/gitscope/internal/github"
	"github.com/sakif/gitscope/internal/store"
)

// CodeExchanger is the slice of the GitHub OAuth helper the handlers need.
// Satisfied by *github.OAuth; tests substitute fakes.
type CodeExchanger interface {
	AuthURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*github.TokenResponse, error)
}

// AuthHandler manages the GitHub OAuth flow and session lifecycle.
//
//   - HandleGitHubLogin  → redirect the browser to GitHub's authorization page
//   - HandleCallback     → browser-facing callback: exchange, sign in, redirect
//   - HandleExchange     → JSON code-for-token endpoint (GET /api/callback)
//   - HandleLogout       → clear the session
//   - HandleMe           → JSON profile of the signed-in user
type AuthHandler struct {
	oauth    CodeExchanger
	sessions *store.SessionStore
	themes   *store.ThemeStore
	renderer *Renderer
	logger   *slog.Logger
}

// NewAuthHandler creates an AuthHandler with all dependencies injected.
func NewAuthHandler(
	oauth CodeExchanger,
	sessions *store.SessionStore,
	themes *store.ThemeStore,
	renderer *Renderer,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		oauth:    oauth,
		sessions: sessions,
		themes:   themes,
		renderer: renderer,
		logger:   logger,
	}
}

// HandleGitHubLogin redirects the user to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// A random state value goes into a short-lived HttpOnly cookie; the callback
// verifies GitHub echoed it back, which blocks CSRF-initiated flows.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.oauth.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleCallback completes the OAuth flow for the browser.
//
// HTTP: GET /callback?code=xxx&state=yyy
//
// On success the session is signed in and the browser lands on /dashboard.
// On any failure a transient error page is shown that returns the visitor to
// the home page after a few seconds.
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" ||
		r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state missing or mismatched")
		h.renderCallbackError(w, r, "Authorization failed. Please try again.")
		return
	}

	// The state cookie is single-use.
	http.SetCookie(w, &http.Cookie{
		Name:   "oauth_state",
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: authorization denied", slog.String("error", errParam))
		h.renderCallbackError(w, r, "Authorization failed. Please try again.")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.renderCallbackError(w, r, "No authorization code received.")
		return
	}

	token, err := h.oauth.ExchangeCode(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: code exchange failed", slog.String("error", err.Error()))
		h.renderCallbackError(w, r, "Authentication failed. Please try again.")
		return
	}

	sessionID, ok := auth.SessionIDFromContext(r.Context())
	if !ok {
		h.logger.Error("auth callback: no session in context")
		h.renderCallbackError(w, r, "Authentication failed. Please try again.")
		return
	}

	if err := h.sessions.Login(r.Context(), sessionID, token.AccessToken); err != nil {
		// The in-memory session is signed in; only persistence failed. The
		// visitor stays logged in for this browsing session but won't
		// survive a reload of the server-side state.
		h.logger.Warn("auth callback: session persistence failed",
			slog.String("error", err.Error()),
		)
	}

	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// HandleExchange is the JSON code-for-token endpoint.
//
// HTTP: GET /api/callback?code=xxx
//
// Responses:
//   - missing code      → 400 {"error":"Authorization code is required"}
//   - success           → 200 {"access_token":..., "token_type":...} with a
//     CORS allow-all header; only these two fields, never the raw upstream body
//   - upstream failure  → 500 {"error":"Failed to authenticate with GitHub",
//     "details": ...}
//
// The client secret stays server-side; no code path escapes unconverted.
func (h *AuthHandler) HandleExchange(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, exchangeError{
			Error: "Authorization code is required",
		})
		return
	}

	token, err := h.oauth.ExchangeCode(r.Context(), code)
	if err != nil {
		h.logger.Error("token exchange failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, exchangeError{
			Error:   "Failed to authenticate with GitHub",
			Details: err.Error(),
		})
		return
	}

	w.Header().Set("Access-Control-Allow-Origin", "*")
	writeJSON(w, http.StatusOK, token)
}

// exchangeError is the error body of the exchange endpoint.
type exchangeError struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// HandleLogout clears the session and sends the visitor home.
//
// HTTP: POST /auth/logout
//
// POST, not GET: logout changes state, and GET would be vulnerable to CSRF
// and browser pre-fetching. Logging out twice is harmless.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if sessionID, ok := auth.SessionIDFromContext(r.Context()); ok {
		h.sessions.Logout(r.Context(), sessionID)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleMe returns the signed-in user's profile.
//
// HTTP: GET /api/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := auth.SessionIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	sess := h.sessions.Snapshot(r.Context(), sessionID)
	if sess.User == nil {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	writeJSON(w, http.StatusOK, sess.User)
}

// renderCallbackError shows the transient callback failure page, which
// redirects home after a fixed delay.
func (h *AuthHandler) renderCallbackError(w http.ResponseWriter, r *http.Request, message string) {
	theme := "light"
	if visitorID, ok := auth.VisitorIDFromContext(r.Context()); ok {
		theme = string(h.themes.Get(r.Context(), visitorID))
	}

	h.renderer.Render(w, "callback", map[string]any{
		"Title":   "Signing in - GitScope",
		"Theme":   theme,
		"Error":   message,
		"Refresh": "3;url=/", // back to the home page after the fixed delay
	})
}
