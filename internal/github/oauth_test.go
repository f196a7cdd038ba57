package github

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/gitscope/internal/apperror"
)

func newTestOAuth(t *testing.T, handler http.HandlerFunc) *OAuth {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOAuth(OAuthConfig{
		ClientID:     "test-client-id",
		ClientSecret: "test-client-secret",
		CallbackURL:  "http://localhost:8080/callback",
		TokenURL:     srv.URL,
	}, testLogger())
}

func TestAuthURL(t *testing.T) {
	o := NewOAuth(OAuthConfig{
		ClientID:    "test-client-id",
		CallbackURL: "http://localhost:8080/callback",
	}, testLogger())

	raw := o.AuthURL("random-state")
	u, err := url.Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "github.com", u.Host)
	assert.Equal(t, "test-client-id", u.Query().Get("client_id"))
	assert.Equal(t, "random-state", u.Query().Get("state"))
	assert.Equal(t, "http://localhost:8080/callback", u.Query().Get("redirect_uri"))
	assert.NotContains(t, raw, "client_secret")
}

func TestExchangeCode_Success(t *testing.T) {
	o := newTestOAuth(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-client-id", body["client_id"])
		assert.Equal(t, "test-client-secret", body["client_secret"])
		assert.Equal(t, "the-code", body["code"])

		w.Write([]byte(`{"access_token": "gho_exchanged", "token_type": "bearer", "scope": "read:user"}`))
	})

	tok, err := o.ExchangeCode(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "gho_exchanged", tok.AccessToken)
	assert.Equal(t, "bearer", tok.TokenType)
}

func TestExchangeCode_UpstreamErrorField(t *testing.T) {
	// GitHub reports a bad code as HTTP 200 with an error field.
	o := newTestOAuth(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": "bad_verification_code", "error_description": "The code passed is incorrect or expired."}`))
	})

	_, err := o.ExchangeCode(context.Background(), "expired-code")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrUpstream))
	assert.Equal(t, "The code passed is incorrect or expired.", apperror.Message(err))
}

func TestExchangeCode_ErrorWithoutDescription(t *testing.T) {
	o := newTestOAuth(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": "incorrect_client_credentials"}`))
	})

	_, err := o.ExchangeCode(context.Background(), "the-code")
	require.Error(t, err)
	assert.Equal(t, "incorrect_client_credentials", apperror.Message(err))
}

func TestExchangeCode_EmptyToken(t *testing.T) {
	o := newTestOAuth(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	_, err := o.ExchangeCode(context.Background(), "the-code")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrUpstream))
}

func TestExchangeCode_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // dead endpoint

	o := NewOAuth(OAuthConfig{
		ClientID:     "test-client-id",
		ClientSecret: "test-client-secret",
		TokenURL:     srv.URL,
	}, testLogger())

	_, err := o.ExchangeCode(context.Background(), "the-code")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrUpstream))
}
