// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

// NewLocalHTTPServer starts an HTTP server bound to IPv4 loopback only.
func NewLocalHTTPServer(tb testing.TB, handler http.Handler) *httptest.Server {
	tb.Helper()

	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		tb.Fatalf("failed to create IPv4 listener: %v", err)
	}

	server := httptest.NewUnstartedServer(handler)
	server.Listener = listener
	server.Start()
	tb.Cleanup(server.Close)

	return server
}

// RoundTripFunc allows inlining http.RoundTripper implementations.
type RoundTripFunc func(*http.Request) (*http.Response, error)

// RoundTrip calls the underlying function.
func (f RoundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// JSONResponse builds an in-memory response with a JSON body.
func JSONResponse(req *http.Request, status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    req,
	}
}

// StaticTokens is a token provider that always returns Value or Err and
// counts how often it was asked.
type StaticTokens struct {
	Value string
	Err   error
	Calls atomic.Int32
}

// Token implements tenanttoken.Provider.
func (s *StaticTokens) Token(context.Context) (string, error) {
	s.Calls.Add(1)
	if s.Err != nil {
		return "", s.Err
	}
	return s.Value, nil
}

// DecodeJSON reads a request or response body into a generic map.
func DecodeJSON(tb testing.TB, r io.Reader) map[string]any {
	tb.Helper()

	var v map[string]any
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		tb.Fatalf("invalid JSON body: %v", err)
	}
	return v
}
