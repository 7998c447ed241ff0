package tenanttoken_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/florianilch/larkbridge/internal/tenanttoken"
	"github.com/florianilch/larkbridge/internal/testutil"
)

func TestTransport_RoundTrip_SetsBearerHeader(t *testing.T) {
	tokens := &testutil.StaticTokens{Value: "t-abc"}
	var captured *http.Request
	transport := &tenanttoken.Transport{
		Tokens: tokens,
		Base: testutil.RoundTripFunc(func(req *http.Request) (*http.Response, error) {
			captured = req
			return testutil.JSONResponse(req, http.StatusOK, `{}`), nil
		}),
	}

	req, err := http.NewRequest(http.MethodGet, "https://open.feishu.cn/open-apis/im/v1/chats", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := transport.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip failed: %v", err)
	}
	_ = resp.Body.Close()

	if got := captured.Header.Get("Authorization"); got != "Bearer t-abc" {
		t.Errorf("expected bearer header, got %q", got)
	}
	if req.Header.Get("Authorization") != "" {
		t.Error("original request must not be modified")
	}
	if got := tokens.Calls.Load(); got != 1 {
		t.Errorf("expected one token lookup per request, got %d", got)
	}
}

func TestTransport_RoundTrip_AuthFailureIsAttributed(t *testing.T) {
	rejection := &tenanttoken.RejectionError{Code: 10014, Message: "app secret invalid"}
	transport := &tenanttoken.Transport{
		Tokens: &testutil.StaticTokens{Err: fmt.Errorf("fetching tenant access token: %w", rejection)},
		Base: testutil.RoundTripFunc(func(req *http.Request) (*http.Response, error) {
			t.Fatal("base transport must not be called without a token")
			return nil, nil
		}),
	}
	client := &http.Client{Transport: transport}

	_, err := client.Post("https://open.feishu.cn/open-apis/im/v1/messages", "application/json", strings.NewReader(`{}`))
	if err == nil {
		t.Fatal("expected error")
	}

	var authErr *tenanttoken.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError in chain, got %v", err)
	}
	var gotRejection *tenanttoken.RejectionError
	if !errors.As(err, &gotRejection) || gotRejection.Code != 10014 {
		t.Errorf("expected RejectionError to survive wrapping, got %v", err)
	}
}

func TestTransport_RoundTrip_NoProvider(t *testing.T) {
	transport := &tenanttoken.Transport{}
	req, _ := http.NewRequest(http.MethodGet, "https://example.com", nil)
	if _, err := transport.RoundTrip(req); err == nil {
		t.Fatal("expected error without provider")
	}
}

func TestManager_OAuth2TokenSource(t *testing.T) {
	clock := newFakeClock()
	source := &scriptedSource{results: []result{ok("T1", time.Hour)}}
	m := newManager(t, source, clock)

	var gotAuth string
	client := &http.Client{
		Transport: &oauth2.Transport{
			Source: m.OAuth2TokenSource(context.Background()),
			Base: testutil.RoundTripFunc(func(req *http.Request) (*http.Response, error) {
				gotAuth = req.Header.Get("Authorization")
				return testutil.JSONResponse(req, http.StatusOK, `{}`), nil
			}),
		},
	}

	for range 3 {
		resp, err := client.Get("https://open.feishu.cn/open-apis/bitable/v1/apps")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}

	if gotAuth != "Bearer T1" {
		t.Errorf("expected Bearer T1, got %q", gotAuth)
	}
	if got := source.calls.Load(); got != 1 {
		t.Errorf("expected 1 fetch, got %d", got)
	}

	tok, err := m.OAuth2TokenSource(context.Background()).Token()
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if want := clock.Now().Add(time.Hour); !tok.Expiry.Equal(want) {
		t.Errorf("expected expiry %v, got %v", want, tok.Expiry)
	}
}

func TestManager_RefreshToken(t *testing.T) {
	clock := newFakeClock()
	source := &scriptedSource{results: []result{ok("T1", time.Hour), ok("T2", 2*time.Hour)}}
	m := newManager(t, source, clock)

	if _, err := m.Token(context.Background()); err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	clock.Advance(time.Minute)

	tok, err := m.RefreshToken(context.Background())
	if err != nil {
		t.Fatalf("RefreshToken failed: %v", err)
	}
	if tok.AccessToken != "T2" {
		t.Errorf("expected forced fetch to return T2, got %q", tok.AccessToken)
	}
	if want := clock.Now().Add(2 * time.Hour); !tok.Expiry.Equal(want) {
		t.Errorf("expected expiry %v, got %v", want, tok.Expiry)
	}
	if got := source.calls.Load(); got != 2 {
		t.Errorf("expected 2 fetches, got %d", got)
	}
}
