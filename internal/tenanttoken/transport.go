package tenanttoken

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// Provider hands out bearer tokens. *Manager implements it.
type Provider interface {
	Token(ctx context.Context) (string, error)
}

// Compile-time check to ensure Manager implements Provider
var _ Provider = (*Manager)(nil)

// AuthError wraps a failure to obtain a token for an outgoing request, so the
// failure stays attributable to authentication rather than to the request itself.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return "authenticating request: " + e.Err.Error()
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Transport is an http.RoundTripper that obtains one token per request and
// sends it as "Authorization: Bearer <token>".
type Transport struct {
	// Base is the underlying transport. If nil, http.DefaultTransport is used.
	Base http.RoundTripper

	// Tokens supplies the bearer token, usually a *Manager.
	Tokens Provider
}

// Compile-time check that Transport implements http.RoundTripper.
var _ http.RoundTripper = (*Transport)(nil)

// RoundTrip implements http.RoundTripper. The token fetch uses the request context.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Tokens == nil {
		closeBody(req)
		return nil, fmt.Errorf("tenanttoken: transport has no token provider")
	}

	token, err := t.Tokens.Token(req.Context())
	if err != nil {
		closeBody(req)
		return nil, &AuthError{Err: err}
	}

	reqClone := req.Clone(req.Context())
	reqClone.Header.Set("Authorization", "Bearer "+token)

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	return base.RoundTrip(reqClone)
}

// RoundTrippers must close the request body even on error.
func closeBody(req *http.Request) {
	if req.Body != nil {
		_ = req.Body.Close()
	}
}

// OAuth2TokenSource adapts the manager to oauth2.TokenSource so it can back an
// oauth2.Transport. oauth2.TokenSource has no context parameter, so ctx is
// captured here and used for every fetch.
func (m *Manager) OAuth2TokenSource(ctx context.Context) oauth2.TokenSource {
	return &oauth2Source{ctx: ctx, manager: m}
}

type oauth2Source struct {
	ctx     context.Context
	manager *Manager
}

// Compile-time check to ensure oauth2Source implements oauth2.TokenSource
var _ oauth2.TokenSource = (*oauth2Source)(nil)

func (s *oauth2Source) Token() (*oauth2.Token, error) {
	tok, err := s.manager.token(s.ctx, false)
	if err != nil {
		return nil, err
	}
	return tok.asOAuth2(), nil
}

// RefreshToken is Refresh returning the token together with its expiry.
func (m *Manager) RefreshToken(ctx context.Context) (*oauth2.Token, error) {
	tok, err := m.token(ctx, true)
	if err != nil {
		return nil, err
	}
	return tok.asOAuth2(), nil
}

func (t cachedToken) asOAuth2() *oauth2.Token {
	return &oauth2.Token{
		AccessToken: t.value,
		TokenType:   "Bearer",
		Expiry:      t.expiresAt,
	}
}
