package lark

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/florianilch/larkbridge/internal/tenanttoken"
)

const (
	// DefaultBaseURL is the Feishu open platform host.
	DefaultBaseURL = "https://open.feishu.cn"

	defaultTimeout   = 30 * time.Second
	maxResponseBytes = 16 << 20
)

// Observer is notified once per open API call.
type Observer interface {
	APIRequest(operation string, err error)
}

type nopObserver struct{}

func (nopObserver) APIRequest(string, error) {}

// Option configures a Client.
type Option func(*config)

type config struct {
	baseURL       string
	baseTransport http.RoundTripper
	timeout       time.Duration
	observer      Observer
	newUUID       func() string
}

// WithBaseURL points the client at another host, e.g. open.larksuite.com.
func WithBaseURL(baseURL string) Option {
	return func(c *config) {
		c.baseURL = baseURL
	}
}

// WithTransport sets the transport beneath the bearer token transport.
func WithTransport(transport http.RoundTripper) Option {
	return func(c *config) {
		c.baseTransport = transport
	}
}

// WithTimeout bounds a single API call including token acquisition.
func WithTimeout(timeout time.Duration) Option {
	return func(c *config) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithObserver reports every API call to o.
func WithObserver(o Observer) Option {
	return func(c *config) {
		if o != nil {
			c.observer = o
		}
	}
}

// Client calls the Bitable, IM and Wiki open APIs. Every outgoing request
// obtains exactly one tenant access token from the configured provider.
type Client struct {
	baseURL  string
	http     *http.Client
	observer Observer
	newUUID  func() string
}

// New creates a Client authenticating through tokens.
func New(tokens tenanttoken.Provider, opts ...Option) *Client {
	cfg := &config{
		baseURL:       DefaultBaseURL,
		baseTransport: http.DefaultTransport,
		timeout:       defaultTimeout,
		observer:      nopObserver{},
		newUUID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.baseURL, "/"),
		http: &http.Client{
			Timeout: cfg.timeout,
			Transport: &tenanttoken.Transport{
				Base:   cfg.baseTransport,
				Tokens: tokens,
			},
		},
		observer: cfg.observer,
		newUUID:  cfg.newUUID,
	}
}

// APIError is a non-zero code in the open API response envelope.
type APIError struct {
	Operation string
	Code      int
	Msg       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("lark: %s: %s (code: %d)", e.Operation, e.Msg, e.Code)
}

// envelope is the response shape shared by all open APIs.
type envelope[T any] struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data T      `json:"data"`
}

// call performs one API request and unwraps the envelope's data.
func call[T any](ctx context.Context, c *Client, operation, method, path string, query url.Values, body any) (T, error) {
	data, err := send[T](ctx, c, operation, method, path, query, body)
	c.observer.APIRequest(operation, err)
	return data, err
}

func send[T any](ctx context.Context, c *Client, operation, method, path string, query url.Values, body any) (T, error) {
	var zero T

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return zero, fmt.Errorf("lark: %s: encoding request: %w", operation, err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return zero, fmt.Errorf("lark: %s: building request: %w", operation, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		var authErr *tenanttoken.AuthError
		if errors.As(err, &authErr) {
			return zero, fmt.Errorf("lark: %s: %w", operation, authErr)
		}
		return zero, fmt.Errorf("lark: %s: sending request: %w", operation, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return zero, fmt.Errorf("lark: %s: reading response: %w", operation, err)
	}

	var env envelope[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		return zero, fmt.Errorf("lark: %s: decoding response (status %d): %w", operation, resp.StatusCode, err)
	}
	if env.Code != 0 {
		return zero, &APIError{Operation: operation, Code: env.Code, Msg: env.Msg}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return zero, fmt.Errorf("lark: %s: unexpected status %d", operation, resp.StatusCode)
	}

	return env.Data, nil
}

// pathParam escapes a path segment the way generated OpenAPI clients do.
func pathParam(name, value string) (string, error) {
	if value == "" {
		return "", fmt.Errorf("%s cannot be empty", name)
	}
	return runtime.StyleParamWithLocation("simple", false, name, runtime.ParamLocationPath, value)
}

// buildPath fills each %s in format with an escaped, non-empty parameter.
func buildPath(format string, params ...[2]string) (string, error) {
	args := make([]any, len(params))
	for i, p := range params {
		escaped, err := pathParam(p[0], p[1])
		if err != nil {
			return "", err
		}
		args[i] = escaped
	}
	return fmt.Sprintf(format, args...), nil
}
