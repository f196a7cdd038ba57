package github

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	oauthgithub "golang.org/x/oauth2/github"

	"github.com/sakif/gitscope/internal/apperror"
)

// OAuth performs the GitHub Authorization Code flow for this app.
//
// FLOW:
//  1. The browser is sent to GitHub's authorization page (AuthURL).
//  2. The user approves, and GitHub redirects back with a short-lived code.
//  3. The server exchanges the code for an access token (ExchangeCode) — a
//     server-to-server POST carrying the client secret. The secret never
//     reaches the browser.
//
// GitHub's token endpoint accepts a JSON body {client_id, client_secret, code}
// and returns JSON when asked via the Accept header. We post that directly
// rather than going through oauth2.Config.Exchange (which form-encodes), so
// the response's error/error_description fields can be surfaced verbatim.
type OAuth struct {
	config     *oauth2.Config
	tokenURL   string
	httpClient *http.Client
	logger     *slog.Logger
}

// OAuthConfig holds the registered OAuth App's credentials.
// ClientID may be exposed to the client; ClientSecret must not be.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string        // must match the OAuth App's configured callback exactly
	TokenURL     string        // defaults to GitHub's token endpoint; tests override it
	HTTPClient   *http.Client  // defaults to a client with Timeout
	Timeout      time.Duration // defaults to 30s; ignored when HTTPClient is set
}

// NewOAuth creates an OAuth helper for the given OAuth App credentials.
func NewOAuth(cfg OAuthConfig, logger *slog.Logger) *OAuth {
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = oauthgithub.Endpoint.TokenURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &OAuth{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     oauthgithub.Endpoint,
		},
		tokenURL:   tokenURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// AuthURL returns the GitHub authorization page URL to redirect the browser
// to. The state value is verified on callback to block CSRF.
func (o *OAuth) AuthURL(state string) string {
	return o.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// TokenResponse is the only slice of GitHub's token response that ever leaves
// this package. The raw upstream body is not passed through.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// tokenExchangeBody is GitHub's full token-endpoint response shape. A failed
// exchange comes back as HTTP 200 with an error field set, so status-code
// checks alone are not enough.
type tokenExchangeBody struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// ExchangeCode trades an authorization code for an access token.
//
// An error field in the upstream response (e.g. "bad_verification_code")
// becomes an apperror.ErrUpstream carrying the error description, or the
// error code when no description is present.
func (o *OAuth) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	payload, err := json.Marshal(map[string]string{
		"client_id":     o.config.ClientID,
		"client_secret": o.config.ClientSecret,
		"code":          code,
	})
	if err != nil {
		return nil, apperror.Upstream("encoding token request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.tokenURL, bytes.NewReader(payload))
	if err != nil {
		return nil, apperror.Upstream("building token request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, apperror.Upstream("calling GitHub token endpoint: %v", err)
	}
	defer resp.Body.Close()

	var body tokenExchangeBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, apperror.Upstream("decoding token response: %v", err)
	}

	if body.Error != "" {
		msg := body.ErrorDescription
		if msg == "" {
			msg = body.Error
		}
		return nil, apperror.Upstream("%s", msg)
	}

	if body.AccessToken == "" {
		return nil, apperror.Upstream("GitHub returned an empty access token")
	}

	return &TokenResponse{
		AccessToken: body.AccessToken,
		TokenType:   body.TokenType,
	}, nil
}
