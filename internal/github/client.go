// Package github is the client side of everything this app asks of GitHub:
// profile lookups, repository listings, and the OAuth code-for-token exchange.
//
// All methods classify GitHub's responses into apperror values so callers can
// branch on errors.Is without ever seeing raw HTTP details. Network and
// decoding failures never escape as panics — every path returns an error.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sakif/gitscope/internal/apperror"
	"github.com/sakif/gitscope/internal/model"
)

const (
	defaultAPIBaseURL = "https://api.github.com"

	// acceptHeader pins the REST API version GitHub serves us.
	acceptHeader = "application/vnd.github.v3+json"

	// repoListLimit caps repository listings at the top N most recently
	// updated. The cap is applied server-side via per_page, not by slicing
	// the decoded response.
	repoListLimit = 10

	defaultTimeout = 30 * time.Second
)

// ClientConfig holds optional knobs for Client. The zero value is ready for
// production use; tests point BaseURL at an httptest server.
type ClientConfig struct {
	BaseURL    string        // defaults to https://api.github.com
	HTTPClient *http.Client  // defaults to a client with Timeout
	Timeout    time.Duration // defaults to 30s; ignored when HTTPClient is set
}

// Client calls the GitHub REST API. It issues unauthenticated requests for
// ad-hoc profile searches and bearer-authenticated requests for everything
// tied to a signed-in session.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Client. All requests carry a timeout so a hung upstream
// call cannot pin a request (or a session refresh) forever.
func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultAPIBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// User fetches the public profile for a username. No authentication is used —
// this backs the ad-hoc search on the home page.
//
// Status mapping:
//   - 404 → apperror.ErrNotFound, message "No results"
//   - 429 → apperror.ErrRateLimited, message "Too many requests, try again later"
//   - other non-2xx → apperror.ErrUpstream with the status code
func (c *Client) User(ctx context.Context, username string) (*model.GitHubUser, error) {
	endpoint := fmt.Sprintf("%s/users/%s", c.baseURL, url.PathEscape(username))

	resp, err := c.get(ctx, endpoint, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, apperror.NotFound("No results")
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, apperror.RateLimited("Too many requests, try again later")
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, apperror.Upstream("HTTP error: %d", resp.StatusCode)
	}

	var user model.GitHubUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, apperror.Upstream("decoding GitHub user response: %v", err)
	}

	return &user, nil
}

// AuthenticatedUser fetches the profile of the account the bearer token
// belongs to. A non-2xx here is how we learn a stored token has been revoked
// or expired, so the caller treats any error as token invalidation.
func (c *Client) AuthenticatedUser(ctx context.Context, token string) (*model.GitHubUser, error) {
	resp, err := c.get(ctx, c.baseURL+"/user", token)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperror.Upstream("GitHub /user returned status %d", resp.StatusCode)
	}

	var user model.GitHubUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, apperror.Upstream("decoding GitHub /user response: %v", err)
	}

	if user.ID == 0 {
		return nil, apperror.Upstream("GitHub returned an invalid user (ID = 0)")
	}

	return &user, nil
}

// Repositories lists a user's public repositories, sorted by most recently
// updated, capped at the top 10.
//
// A missing token or username is not an error: the repository list is simply
// empty and no request is made. The dashboard renders that as an empty state.
//
// Status mapping:
//   - 404 → apperror.ErrNotFound, message "User not found"
//   - 403 → apperror.ErrRateLimited, message "Rate limit exceeded"
//   - other non-2xx → apperror.ErrUpstream with the status code
func (c *Client) Repositories(ctx context.Context, token, username string) ([]model.Repository, error) {
	if token == "" || username == "" {
		return []model.Repository{}, nil
	}

	endpoint := fmt.Sprintf("%s/users/%s/repos?sort=updated&per_page=%d&type=public",
		c.baseURL, url.PathEscape(username), repoListLimit)

	resp, err := c.get(ctx, endpoint, token)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, apperror.NotFound("User not found")
	case resp.StatusCode == http.StatusForbidden:
		return nil, apperror.RateLimited("Rate limit exceeded")
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, apperror.Upstream("failed to fetch repositories: %d", resp.StatusCode)
	}

	var repos []model.Repository
	if err := json.NewDecoder(resp.Body).Decode(&repos); err != nil {
		return nil, apperror.Upstream("decoding repository list: %v", err)
	}

	return repos, nil
}

// get issues a GET with the standard Accept header and, when token is
// non-empty, a bearer Authorization header.
func (c *Client) get(ctx context.Context, endpoint, token string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("github: building request: %w", err)
	}
	req.Header.Set("Accept", acceptHeader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperror.Upstream("calling GitHub API: %v", err)
	}
	return resp, nil
}
