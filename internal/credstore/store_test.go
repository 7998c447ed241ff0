package credstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/zalando/go-keyring"

	"github.com/florianilch/larkbridge/internal/tenanttoken"
)

func TestEnvStore(t *testing.T) {
	ctx := context.Background()

	if _, err := NewEnvStore(""); err == nil {
		t.Fatal("expected error for empty key")
	}

	t.Setenv("LARKBRIDGE_TEST_SECRET", "env-secret")
	store, err := NewEnvStore("LARKBRIDGE_TEST_SECRET")
	if err != nil {
		t.Fatalf("NewEnvStore failed: %v", err)
	}

	secret, err := store.Read(ctx)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if secret != "env-secret" {
		t.Errorf("expected env-secret, got %q", secret)
	}

	if err := store.Write(ctx, "other"); !errors.Is(err, ErrReadOnly) {
		t.Errorf("expected ErrReadOnly, got %v", err)
	}

	t.Setenv("LARKBRIDGE_TEST_SECRET", "")
	if _, err := store.Read(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for empty variable, got %v", err)
	}

	missing := &EnvStore{envKey: "UNSET", lookup: func(string) (string, bool) { return "", false }}
	if _, err := missing.Read(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unset variable, got %v", err)
	}
}

func TestFileStore_WriteRead(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "secret")

	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	if _, err := store.Read(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound before first write, got %v", err)
	}

	if err := store.Write(ctx, "  file-secret \n"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("expected 0600, got %04o", perm)
	}

	secret, err := store.Read(ctx)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if secret != "file-secret" {
		t.Errorf("expected trimmed secret, got %q", secret)
	}

	if err := store.Write(ctx, "   "); err == nil {
		t.Error("expected error writing empty secret")
	}
}

func TestFileStore_RejectsInsecurePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret")
	if err := os.WriteFile(path, []byte("s"), 0644); err != nil {
		t.Fatal(err)
	}

	store, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Read(context.Background()); err == nil {
		t.Fatal("expected error for world-readable secret file")
	}
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()
	ctx := context.Background()

	if _, err := NewKeyringStore("", "user"); err == nil {
		t.Error("expected error for empty service")
	}
	if _, err := NewKeyringStore(KeyringService, ""); err == nil {
		t.Error("expected error for empty user")
	}

	store, err := NewKeyringStore(KeyringService, "cli_a1b2")
	if err != nil {
		t.Fatalf("NewKeyringStore failed: %v", err)
	}

	if _, err := store.Read(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := store.Write(ctx, "keyring-secret"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	secret, err := store.Read(ctx)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if secret != "keyring-secret" {
		t.Errorf("expected keyring-secret, got %q", secret)
	}
}

func TestLoadCredentials(t *testing.T) {
	ctx := context.Background()
	t.Setenv("LARKBRIDGE_TEST_SECRET", "s")
	store, _ := NewEnvStore("LARKBRIDGE_TEST_SECRET")

	creds, err := LoadCredentials(ctx, "cli_x", store)
	if err != nil {
		t.Fatalf("LoadCredentials failed: %v", err)
	}
	if creds.AppID != "cli_x" || creds.AppSecret != "s" {
		t.Errorf("unexpected credentials: %v", creds)
	}

	if _, err := LoadCredentials(ctx, "", store); !errors.Is(err, tenanttoken.ErrMissingCredentials) {
		t.Errorf("expected ErrMissingCredentials for empty app id, got %v", err)
	}

	t.Setenv("LARKBRIDGE_TEST_SECRET", "")
	if _, err := LoadCredentials(ctx, "cli_x", store); !errors.Is(err, tenanttoken.ErrMissingCredentials) {
		t.Errorf("expected ErrMissingCredentials for missing secret, got %v", err)
	}
}
