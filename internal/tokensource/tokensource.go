package tokensource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/florianilch/larkbridge/internal/tenanttoken"
)

const (
	// FeishuBaseURL is the open platform host for Feishu (China).
	FeishuBaseURL = "https://open.feishu.cn"
	// LarkBaseURL is the open platform host for Lark (international).
	LarkBaseURL = "https://open.larksuite.com"

	// TenantTokenPath is the self-built app tenant access token endpoint.
	TenantTokenPath = "/open-apis/auth/v3/tenant_access_token/internal"

	defaultTimeout   = 30 * time.Second
	maxResponseBytes = 1 << 20

	// codeRateLimited is returned when the app exceeds the endpoint's request quota.
	codeRateLimited = 99991400
)

// Endpoint is the tenant access token endpoint on Feishu.
var Endpoint = EndpointFor(FeishuBaseURL)

// EndpointFor returns the tenant access token endpoint under baseURL.
func EndpointFor(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + TenantTokenPath
}

// Option configures a Source.
type Option func(*config)

// config holds configuration for New.
type config struct {
	baseTransport http.RoundTripper
	timeout       time.Duration
}

// WithTransport sets a custom base transport for token requests.
// If not provided, http.DefaultTransport is used.
func WithTransport(transport http.RoundTripper) Option {
	return func(c *config) {
		c.baseTransport = transport
	}
}

// WithTimeout bounds a single token request. Defaults to 30 seconds.
func WithTimeout(timeout time.Duration) Option {
	return func(c *config) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// Source performs one HTTP round trip per Fetch against the token endpoint.
type Source struct {
	endpoint string
	client   *http.Client
}

// Compile-time check to ensure Source implements tenanttoken.Source
var _ tenanttoken.Source = (*Source)(nil)

// New creates a Source posting to endpoint.
func New(endpoint string, opts ...Option) *Source {
	cfg := &config{
		baseTransport: http.DefaultTransport,
		timeout:       defaultTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Source{
		endpoint: endpoint,
		client: &http.Client{
			Timeout:   cfg.timeout,
			Transport: cfg.baseTransport,
		},
	}
}

type tokenRequest struct {
	AppID     string `json:"app_id"`
	AppSecret string `json:"app_secret"`
}

type tokenResponse struct {
	Code              int    `json:"code"`
	Msg               string `json:"msg"`
	TenantAccessToken string `json:"tenant_access_token"`
	Expire            int    `json:"expire"`
}

// Fetch exchanges creds for a tenant access token.
//
// Failures map onto the tenanttoken taxonomy. Network errors, 429 and 5xx
// responses, rate-limit codes and non-2xx responses without a parsable
// envelope are tenanttoken.ErrTransport. Any other non-zero code is a
// *tenanttoken.RejectionError. A 2xx body without a token or positive expiry
// is tenanttoken.ErrMalformedResponse.
func (s *Source) Fetch(ctx context.Context, creds tenanttoken.Credentials) (tenanttoken.Token, error) {
	body, err := json.Marshal(tokenRequest{AppID: creds.AppID, AppSecret: creds.AppSecret})
	if err != nil {
		return tenanttoken.Token{}, fmt.Errorf("marshaling token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return tenanttoken.Token{}, fmt.Errorf("%w: building request: %w", tenanttoken.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := s.client.Do(req)
	if err != nil {
		return tenanttoken.Token{}, fmt.Errorf("%w: %w", tenanttoken.ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return tenanttoken.Token{}, fmt.Errorf("%w: reading response: %w", tenanttoken.ErrTransport, err)
	}

	success := resp.StatusCode >= 200 && resp.StatusCode < 300

	var payload tokenResponse
	if err := json.Unmarshal(data, &payload); err != nil {
		if !success {
			return tenanttoken.Token{}, fmt.Errorf("%w: unexpected status %d", tenanttoken.ErrTransport, resp.StatusCode)
		}
		return tenanttoken.Token{}, fmt.Errorf("%w: %w", tenanttoken.ErrMalformedResponse, err)
	}

	switch {
	case payload.Code != 0 && transient(resp.StatusCode, payload.Code):
		return tenanttoken.Token{}, fmt.Errorf("%w: status %d: %s (code: %d)",
			tenanttoken.ErrTransport, resp.StatusCode, payload.Msg, payload.Code)
	case payload.Code != 0:
		return tenanttoken.Token{}, &tenanttoken.RejectionError{Code: payload.Code, Message: payload.Msg}
	case !success:
		return tenanttoken.Token{}, fmt.Errorf("%w: unexpected status %d", tenanttoken.ErrTransport, resp.StatusCode)
	case payload.TenantAccessToken == "":
		return tenanttoken.Token{}, fmt.Errorf("%w: missing tenant_access_token", tenanttoken.ErrMalformedResponse)
	case payload.Expire <= 0:
		return tenanttoken.Token{}, fmt.Errorf("%w: non-positive expire %d", tenanttoken.ErrMalformedResponse, payload.Expire)
	}

	return tenanttoken.Token{
		Value: payload.TenantAccessToken,
		TTL:   time.Duration(payload.Expire) * time.Second,
	}, nil
}

// transient reports whether a non-zero code describes a temporary condition
// of the endpoint rather than a verdict on the credentials.
func transient(status, code int) bool {
	return status == http.StatusTooManyRequests ||
		status >= http.StatusInternalServerError ||
		code == codeRateLimited
}
