package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/gitscope/internal/apperror"
	"github.com/sakif/gitscope/internal/auth"
	"github.com/sakif/gitscope/internal/model"
	"github.com/sakif/gitscope/internal/service"
	"github.com/sakif/gitscope/internal/store"
)

// RepositoryLister lists a user's public repositories. Satisfied by
// *github.Client; tests substitute fakes.
type RepositoryLister interface {
	Repositories(ctx context.Context, token, username string) ([]model.Repository, error)
}

// PageHandler renders the server-side pages: home (search) and dashboard.
type PageHandler struct {
	renderer *Renderer
	sessions *store.SessionStore
	themes   *store.ThemeStore
	search   *service.SearchService
	repos    RepositoryLister
	logger   *slog.Logger
}

// NewPageHandler creates a PageHandler with all dependencies injected.
func NewPageHandler(
	renderer *Renderer,
	sessions *store.SessionStore,
	themes *store.ThemeStore,
	search *service.SearchService,
	repos RepositoryLister,
	logger *slog.Logger,
) *PageHandler {
	return &PageHandler{
		renderer: renderer,
		sessions: sessions,
		themes:   themes,
		search:   search,
		repos:    repos,
		logger:   logger,
	}
}

// HandleHome renders the search page.
//
// HTTP: GET /            → last searched profile (if any) or empty state
// HTTP: GET /?q=octocat  → runs a search and renders its outcome
//
// A search error renders inline next to the search box. A validation error
// (blank input) leaves the previous result visible; fetch errors clear it.
func (h *PageHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, _ := auth.SessionIDFromContext(ctx)
	sess := h.sessions.Snapshot(ctx, sessionID)

	var (
		searched  *model.GitHubUser
		searchErr string
	)

	query := r.URL.Query().Get("q")
	if r.URL.Query().Has("q") {
		user, err := h.search.Search(ctx, sessionID, query)
		switch {
		case err == nil:
			searched = user
		default:
			searchErr = apperror.Message(err)
			if errors.Is(err, apperror.ErrValidation) {
				// Blank input: keep showing whatever was there before.
				searched = h.search.LastResult(ctx, sessionID)
			}
		}
	} else {
		searched = h.search.LastResult(ctx, sessionID)
	}

	h.renderer.Render(w, "home", map[string]any{
		"Title":        "GitScope - GitHub profile search",
		"Theme":        h.theme(ctx),
		"AuthUser":     sess.User,
		"AuthLoading":  sess.Loading,
		"SearchedUser": searched,
		"SearchError":  searchErr,
		"Query":        query,
	})
}

// HandleDashboard renders the signed-in user's profile and top repositories.
//
// HTTP: GET /dashboard
//
// Anonymous visitors are redirected home, not shown an error page. While the
// session's profile fetch is still in flight the page renders a loading state
// that retries shortly.
func (h *PageHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, _ := auth.SessionIDFromContext(ctx)
	sess := h.sessions.Snapshot(ctx, sessionID)

	if sess.User == nil && !sess.Loading {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	data := map[string]any{
		"Title":       "Dashboard - GitScope",
		"Theme":       h.theme(ctx),
		"AuthUser":    sess.User,
		"AuthLoading": sess.Loading,
	}
	if sess.Loading {
		// The profile fetch is still in flight; have the page retry shortly.
		data["Refresh"] = "1"
	}

	if sess.User != nil {
		repos, err := h.repos.Repositories(ctx, sess.Token, sess.User.Login)
		if err != nil {
			data["RepoError"] = apperror.Message(err)
		} else {
			data["Repos"] = repos
		}
	}

	h.renderer.Render(w, "dashboard", data)
}

// HandleUserAPI looks up a profile and returns it as JSON. It shares the
// search flow with the home page, so the session's searched-user snapshot is
// updated the same way.
//
// HTTP: GET /api/users/{username}
func (h *PageHandler) HandleUserAPI(w http.ResponseWriter, r *http.Request) {
	sessionID, _ := auth.SessionIDFromContext(r.Context())

	user, err := h.search.Search(r.Context(), sessionID, chi.URLParam(r, "username"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleThemeToggle flips the visitor's theme and sends them back where they
// came from.
//
// HTTP: POST /theme/toggle
func (h *PageHandler) HandleThemeToggle(w http.ResponseWriter, r *http.Request) {
	if visitorID, ok := auth.VisitorIDFromContext(r.Context()); ok {
		h.themes.Toggle(r.Context(), visitorID)
	}

	target := r.Header.Get("Referer")
	if target == "" {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// theme resolves the current visitor's theme, defaulting to light when the
// request has no visitor context.
func (h *PageHandler) theme(ctx context.Context) string {
	if visitorID, ok := auth.VisitorIDFromContext(ctx); ok {
		return string(h.themes.Get(ctx, visitorID))
	}
	return string(model.ThemeLight)
}
