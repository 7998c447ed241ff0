package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/florianilch/larkbridge/internal/credstore"
	"github.com/florianilch/larkbridge/internal/tenanttoken"
	"github.com/florianilch/larkbridge/internal/testutil"
	"github.com/florianilch/larkbridge/internal/tokensource"
	"github.com/florianilch/larkbridge/internal/tools"
)

func TestConfig_Defaults(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatalf("Default failed: %v", err)
	}

	if cfg.Auth.Storage != SecretStorageTypeEnv || cfg.Auth.EnvKey != credstore.DefaultEnvKey {
		t.Errorf("expected env storage with %s, got %s/%s", credstore.DefaultEnvKey, cfg.Auth.Storage, cfg.Auth.EnvKey)
	}
	if cfg.Auth.RefreshBuffer != tenanttoken.DefaultRefreshBuffer {
		t.Errorf("expected default refresh buffer, got %v", cfg.Auth.RefreshBuffer)
	}
	if cfg.Upstream.BaseURL != tokensource.FeishuBaseURL {
		t.Errorf("unexpected base URL %s", cfg.Upstream.BaseURL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestConfig_KeyringUserDefaultsToAppID(t *testing.T) {
	cfg := &Config{Auth: AuthConfig{AppID: "cli_a1", Storage: SecretStorageTypeKeyring}}
	if err := cfg.ApplyDefaults(); err != nil {
		t.Fatal(err)
	}
	if cfg.Auth.KeyringUser != "cli_a1" {
		t.Errorf("expected keyring user cli_a1, got %q", cfg.Auth.KeyringUser)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }},
		{"bad exporter", func(c *Config) { c.LogExporter = "zipkin" }},
		{"bad storage", func(c *Config) { c.Auth.Storage = "vault" }},
		{"bad base url", func(c *Config) { c.Upstream.BaseURL = "not a url" }},
		{"negative buffer", func(c *Config) { c.Auth.RefreshBuffer = -time.Second }},
		{"keyring without user", func(c *Config) {
			c.Auth.Storage = SecretStorageTypeKeyring
			c.Auth.KeyringUser = ""
		}},
		{"bad host", func(c *Config) { c.Server.Host = "not a host!" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Default()
			if err != nil {
				t.Fatal(err)
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

type memoryStore struct {
	secret atomic.Pointer[string]
	reads  atomic.Int32
}

func (m *memoryStore) Read(context.Context) (string, error) {
	m.reads.Add(1)
	if s := m.secret.Load(); s != nil {
		return *s, nil
	}
	return "", credstore.ErrNotFound
}

func (m *memoryStore) Write(_ context.Context, secret string) error {
	m.secret.Store(&secret)
	return nil
}

func TestDeferredTokens(t *testing.T) {
	ctx := context.Background()
	store := &memoryStore{}

	var built atomic.Int32
	factory := func(creds tenanttoken.Credentials) (*tenanttoken.Manager, error) {
		built.Add(1)
		return tenanttoken.New(creds, tenanttoken.SourceFunc(func(context.Context, tenanttoken.Credentials) (tenanttoken.Token, error) {
			return tenanttoken.Token{Value: "t-deferred", TTL: time.Hour}, nil
		}))
	}

	tokens, err := NewDeferredTokens("cli_a1", store, factory)
	if err != nil {
		t.Fatalf("NewDeferredTokens failed: %v", err)
	}
	if store.reads.Load() != 0 {
		t.Fatal("construction must not read the store")
	}

	if _, err := tokens.Token(ctx); !errors.Is(err, tenanttoken.ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}

	_ = store.Write(ctx, "secret")
	for range 3 {
		token, err := tokens.Token(ctx)
		if err != nil {
			t.Fatalf("Token failed: %v", err)
		}
		if token != "t-deferred" {
			t.Errorf("unexpected token %q", token)
		}
	}
	if built.Load() != 1 {
		t.Errorf("expected one manager, got %d", built.Load())
	}
}

func TestNewDeferredTokens_Validation(t *testing.T) {
	factory := func(tenanttoken.Credentials) (*tenanttoken.Manager, error) { return nil, nil }
	if _, err := NewDeferredTokens("a", nil, factory); err == nil {
		t.Error("expected error for nil store")
	}
	if _, err := NewDeferredTokens("a", &memoryStore{}, nil); err == nil {
		t.Error("expected error for nil factory")
	}
}

func TestApp_ToolCallSharesCachedToken(t *testing.T) {
	var tokenFetches atomic.Int32
	upstream := testutil.NewLocalHTTPServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case tokensource.TenantTokenPath:
			tokenFetches.Add(1)
			body := testutil.DecodeJSON(t, r.Body)
			if body["app_id"] != "cli_a1" || body["app_secret"] != "s3cret" {
				t.Errorf("unexpected credentials %v", body)
			}
			_, _ = io.WriteString(w, `{"code":0,"msg":"ok","tenant_access_token":"t-app","expire":7200}`)
		case "/open-apis/im/v1/chats":
			if got := r.Header.Get("Authorization"); got != "Bearer t-app" {
				t.Errorf("unexpected Authorization %q", got)
			}
			_, _ = io.WriteString(w, `{"code":0,"msg":"ok","data":{"items":[{"chat_id":"oc_1","name":"ops"}],"has_more":false}}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	t.Setenv("LARKBRIDGE_TEST_APP_SECRET", "s3cret")
	cfg := &Config{
		Upstream: UpstreamConfig{BaseURL: upstream.URL},
		Auth: AuthConfig{
			AppID:   "cli_a1",
			Storage: SecretStorageTypeEnv,
			EnvKey:  "LARKBRIDGE_TEST_APP_SECRET",
		},
	}
	if err := cfg.ApplyDefaults(); err != nil {
		t.Fatal(err)
	}

	application, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	for range 2 {
		result, err := application.Tools().Call(context.Background(), tools.ChatGroupList, nil)
		if err != nil {
			t.Fatalf("Call failed: %v", err)
		}
		encoded, _ := json.Marshal(result)
		if string(encoded) != `[{"chat_id":"oc_1","name":"ops"}]` {
			t.Errorf("unexpected result %s", encoded)
		}
	}

	if got := tokenFetches.Load(); got != 1 {
		t.Errorf("expected one token fetch across calls, got %d", got)
	}
}

func TestCheckCredentials(t *testing.T) {
	rejected := atomic.Bool{}
	upstream := testutil.NewLocalHTTPServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rejected.Load() {
			_, _ = io.WriteString(w, `{"code":10014,"msg":"app secret invalid"}`)
			return
		}
		_, _ = io.WriteString(w, `{"code":0,"msg":"ok","tenant_access_token":"t-check","expire":7200}`)
	}))

	t.Setenv("LARKBRIDGE_TEST_APP_SECRET", "s3cret")
	cfg := &Config{
		Upstream: UpstreamConfig{BaseURL: upstream.URL},
		Auth:     AuthConfig{AppID: "cli_a1", EnvKey: "LARKBRIDGE_TEST_APP_SECRET"},
	}
	if err := cfg.ApplyDefaults(); err != nil {
		t.Fatal(err)
	}

	before := time.Now()
	expiry, err := CheckCredentials(context.Background(), cfg)
	if err != nil {
		t.Fatalf("CheckCredentials failed: %v", err)
	}
	if expiry.Before(before.Add(7199 * time.Second)) {
		t.Errorf("unexpected expiry %v", expiry)
	}

	rejected.Store(true)
	_, err = CheckCredentials(context.Background(), cfg)
	var rejection *tenanttoken.RejectionError
	if !errors.As(err, &rejection) || rejection.Code != 10014 {
		t.Errorf("expected RejectionError 10014, got %v", err)
	}
}
