package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/gitscope/internal/apperror"
	"github.com/sakif/gitscope/internal/auth"
	"github.com/sakif/gitscope/internal/github"
	"github.com/sakif/gitscope/internal/model"
	"github.com/sakif/gitscope/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer("../../web/templates", testLogger())
	require.NoError(t, err)
	return r
}

// fakeExchanger is a canned CodeExchanger.
type fakeExchanger struct {
	token *github.TokenResponse
	err   error
	codes []string
}

func (f *fakeExchanger) AuthURL(state string) string {
	return "https://github.com/login/oauth/authorize?state=" + state
}

func (f *fakeExchanger) ExchangeCode(_ context.Context, code string) (*github.TokenResponse, error) {
	f.codes = append(f.codes, code)
	if f.err != nil {
		return nil, f.err
	}
	return f.token, nil
}

// fakeSessionRepo / fakeFetcher / fakePrefRepo are the minimal in-memory
// implementations the stores need.
type fakeSessionRepo struct {
	tokens map[string]string
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{tokens: make(map[string]string)}
}

func (r *fakeSessionRepo) SaveToken(_ context.Context, sessionID, token string) error {
	r.tokens[sessionID] = token
	return nil
}

func (r *fakeSessionRepo) Token(_ context.Context, sessionID string) (string, error) {
	return r.tokens[sessionID], nil
}

func (r *fakeSessionRepo) Delete(_ context.Context, sessionID string) error {
	delete(r.tokens, sessionID)
	return nil
}

type fakeFetcher struct {
	users map[string]*model.GitHubUser
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{users: make(map[string]*model.GitHubUser)}
}

func (f *fakeFetcher) AuthenticatedUser(_ context.Context, token string) (*model.GitHubUser, error) {
	if user := f.users[token]; user != nil {
		return user, nil
	}
	return nil, apperror.Upstream("GitHub /user returned status 401")
}

type fakePrefRepo struct {
	themes map[string]model.Theme
}

func newFakePrefRepo() *fakePrefRepo {
	return &fakePrefRepo{themes: make(map[string]model.Theme)}
}

func (r *fakePrefRepo) SaveTheme(_ context.Context, visitorID string, theme model.Theme) error {
	r.themes[visitorID] = theme
	return nil
}

func (r *fakePrefRepo) Theme(_ context.Context, visitorID string) (model.Theme, error) {
	return r.themes[visitorID], nil
}

type authFixture struct {
	handler   *AuthHandler
	exchanger *fakeExchanger
	sessions  *store.SessionStore
	repo      *fakeSessionRepo
	fetcher   *fakeFetcher
	tokens    *auth.TokenService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	logger := testLogger()

	repo := newFakeSessionRepo()
	fetcher := newFakeFetcher()
	sessions := store.NewSessionStore(repo, fetcher, logger)
	themes := store.NewThemeStore(newFakePrefRepo(), logger)
	exchanger := &fakeExchanger{}

	tokens, err := auth.NewTokenService("test-secret-key-for-tests-only")
	require.NoError(t, err)

	return &authFixture{
		handler:   NewAuthHandler(exchanger, sessions, themes, testRenderer(t), logger),
		exchanger: exchanger,
		sessions:  sessions,
		repo:      repo,
		fetcher:   fetcher,
		tokens:    tokens,
	}
}

// withSession wraps a handler in the session middleware, the way routes are
// mounted in production.
func (f *authFixture) withSession(h http.HandlerFunc) http.Handler {
	return auth.EnsureSession(f.tokens, testLogger())(h)
}

func TestHandleExchange_MissingCode(t *testing.T) {
	f := newAuthFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/callback", nil)
	rec := httptest.NewRecorder()
	f.handler.HandleExchange(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Authorization code is required", body["error"])
	assert.NotContains(t, body, "details")
}

func TestHandleExchange_Success(t *testing.T) {
	f := newAuthFixture(t)
	f.exchanger.token = &github.TokenResponse{AccessToken: "gho_exchanged", TokenType: "bearer"}

	req := httptest.NewRequest(http.MethodGet, "/api/callback?code=the-code", nil)
	rec := httptest.NewRecorder()
	f.handler.HandleExchange(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, []string{"the-code"}, f.exchanger.codes)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "gho_exchanged", body["access_token"])
	assert.Equal(t, "bearer", body["token_type"])
	assert.Len(t, body, 2, "only the token fields may leave the server")
}

func TestHandleExchange_UpstreamFailure(t *testing.T) {
	f := newAuthFixture(t)
	f.exchanger.err = apperror.Upstream("The code passed is incorrect or expired.")

	req := httptest.NewRequest(http.MethodGet, "/api/callback?code=bad-code", nil)
	rec := httptest.NewRecorder()
	f.handler.HandleExchange(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Failed to authenticate with GitHub", body["error"])
	assert.Equal(t, "The code passed is incorrect or expired.", body["details"])
}

func TestHandleGitHubLogin(t *testing.T) {
	f := newAuthFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/github/login", nil)
	rec := httptest.NewRecorder()
	f.handler.HandleGitHubLogin(rec, req)

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)

	var state string
	for _, c := range rec.Result().Cookies() {
		if c.Name == "oauth_state" {
			state = c.Value
			assert.True(t, c.HttpOnly)
		}
	}
	require.NotEmpty(t, state, "state cookie not set")
	assert.Equal(t, "https://github.com/login/oauth/authorize?state="+state,
		rec.Header().Get("Location"))
}

func TestHandleCallback_Success(t *testing.T) {
	f := newAuthFixture(t)
	f.exchanger.token = &github.TokenResponse{AccessToken: "gho_exchanged", TokenType: "bearer"}
	f.fetcher.users["gho_exchanged"] = &model.GitHubUser{Login: "octocat", ID: 1}

	req := httptest.NewRequest(http.MethodGet, "/callback?code=the-code&state=xyz", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "xyz"})
	rec := httptest.NewRecorder()
	f.withSession(f.handler.HandleCallback).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
	assert.Equal(t, []string{"the-code"}, f.exchanger.codes)

	f.sessions.Wait()
	require.Len(t, f.repo.tokens, 1)
	for _, token := range f.repo.tokens {
		assert.Equal(t, "gho_exchanged", token)
	}
}

func TestHandleCallback_StateMismatch(t *testing.T) {
	f := newAuthFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/callback?code=the-code&state=evil", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "xyz"})
	rec := httptest.NewRecorder()
	f.withSession(f.handler.HandleCallback).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Authorization failed. Please try again.")
	assert.Empty(t, f.exchanger.codes, "exchange must not run on a bad state")
}

func TestHandleCallback_MissingCode(t *testing.T) {
	f := newAuthFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/callback?state=xyz", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "xyz"})
	rec := httptest.NewRecorder()
	f.withSession(f.handler.HandleCallback).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No authorization code received.")
}

func TestHandleCallback_ProviderError(t *testing.T) {
	f := newAuthFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/callback?error=access_denied&state=xyz", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "xyz"})
	rec := httptest.NewRecorder()
	f.withSession(f.handler.HandleCallback).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Authorization failed. Please try again.")
	assert.Empty(t, f.exchanger.codes)
}

func TestHandleLogout(t *testing.T) {
	f := newAuthFixture(t)
	f.fetcher.users["gho_token"] = &model.GitHubUser{Login: "octocat", ID: 1}

	// Sign a session in directly, then log it out through the handler using
	// the cookie the middleware would have minted.
	require.NoError(t, f.sessions.Login(context.Background(), "s1", "gho_token"))
	f.sessions.Wait()

	signed, err := f.tokens.Generate("s1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: signed})
	rec := httptest.NewRecorder()
	f.withSession(f.handler.HandleLogout).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Empty(t, f.repo.tokens)

	snap := f.sessions.Snapshot(context.Background(), "s1")
	assert.False(t, snap.Authenticated())
}

func TestHandleMe(t *testing.T) {
	f := newAuthFixture(t)
	f.fetcher.users["gho_token"] = &model.GitHubUser{Login: "octocat", ID: 1}

	// Without a session context: unauthorized.
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	rec := httptest.NewRecorder()
	f.handler.HandleMe(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Signed in: the profile comes back.
	require.NoError(t, f.sessions.Login(context.Background(), "s1", "gho_token"))
	f.sessions.Wait()

	signed, err := f.tokens.Generate("s1")
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: signed})
	rec = httptest.NewRecorder()
	f.withSession(f.handler.HandleMe).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `"login":"octocat"`))
}
