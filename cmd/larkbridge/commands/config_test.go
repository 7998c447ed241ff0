package commands

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/florianilch/larkbridge/internal/app"
)

func environ(vars ...string) func() []string {
	return func() []string { return vars }
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig("", nil, environ())
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Server.Port != app.DefaultConfigServerPort {
		t.Errorf("expected default port, got %d", cfg.Server.Port)
	}
	if cfg.Auth.Storage != app.DefaultConfigAuthStorage {
		t.Errorf("expected default storage, got %s", cfg.Auth.Storage)
	}
}

func TestLoadConfig_Precedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "larkbridge.toml")
	toml := `
log_level = "debug"

[server]
port = 5000

[auth]
app_id = "cli_file"
refresh_buffer = "2m"

[upstream]
base_url = "https://open.larksuite.com"
`
	if err := os.WriteFile(path, []byte(toml), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(path, nil, environ(
		"FEISHU_APP_ID=cli_conventional",
		"LARKBRIDGE_SERVER__PORT=6000",
		"LARKBRIDGE_AUTH__STORAGE=keyring",
	))
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("expected debug level from file, got %v", cfg.LogLevel)
	}
	if cfg.Server.Port != 6000 {
		t.Errorf("expected env to override file port, got %d", cfg.Server.Port)
	}
	if cfg.Auth.AppID != "cli_conventional" {
		t.Errorf("expected FEISHU_APP_ID to override file, got %q", cfg.Auth.AppID)
	}
	if cfg.Auth.RefreshBuffer != 2*time.Minute {
		t.Errorf("expected 2m refresh buffer, got %v", cfg.Auth.RefreshBuffer)
	}
	if cfg.Auth.KeyringUser != "cli_conventional" {
		t.Errorf("expected keyring user to default to app id, got %q", cfg.Auth.KeyringUser)
	}
	if cfg.Upstream.BaseURL != "https://open.larksuite.com" {
		t.Errorf("unexpected base URL %s", cfg.Upstream.BaseURL)
	}
}

func TestLoadConfig_PrefixedAppIDWins(t *testing.T) {
	cfg, err := loadConfig("", nil, environ(
		"FEISHU_APP_ID=cli_conventional",
		"LARKBRIDGE_AUTH__APP_ID=cli_prefixed",
	))
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Auth.AppID != "cli_prefixed" {
		t.Errorf("expected prefixed variable to win, got %q", cfg.Auth.AppID)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	if _, err := loadConfig("", nil, environ("LARKBRIDGE_LOG_FORMAT=xml")); err == nil {
		t.Error("expected validation error")
	}
	if _, err := loadConfig(filepath.Join(t.TempDir(), "missing.toml"), nil, environ()); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoadDotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "LARKBRIDGE_DOTENV_TEST_A=from-file\nLARKBRIDGE_DOTENV_TEST_B=from-file\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LARKBRIDGE_DOTENV_TEST_B", "from-env")
	t.Cleanup(func() { _ = os.Unsetenv("LARKBRIDGE_DOTENV_TEST_A") })

	if err := loadDotenv(path); err != nil {
		t.Fatalf("loadDotenv failed: %v", err)
	}
	if got := os.Getenv("LARKBRIDGE_DOTENV_TEST_A"); got != "from-file" {
		t.Errorf("expected value from file, got %q", got)
	}
	if got := os.Getenv("LARKBRIDGE_DOTENV_TEST_B"); got != "from-env" {
		t.Errorf("existing variables must win, got %q", got)
	}

	if err := loadDotenv(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("missing dotenv file must be ignored, got %v", err)
	}
}

func TestReadSecret_FromPipe(t *testing.T) {
	var prompt strings.Builder

	secret, err := readSecret(strings.NewReader("  s3cret  \nignored\n"), &prompt)
	if err != nil {
		t.Fatalf("readSecret failed: %v", err)
	}
	if secret != "s3cret" {
		t.Errorf("expected trimmed first line, got %q", secret)
	}
	if prompt.Len() != 0 {
		t.Error("no prompt expected for piped input")
	}

	if _, err := readSecret(strings.NewReader("\n"), &prompt); err == nil {
		t.Error("expected error for empty secret")
	}
}

func TestExecute_CallListsTools(t *testing.T) {
	t.Setenv("FEISHU_APP_SECRET", "unused")
	// Tool listing needs no network access or credentials.
	err := Execute(context.Background(), []string{"larkbridge", "--env-file", "", "call"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
}
