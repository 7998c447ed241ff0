package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/florianilch/larkbridge/internal/credstore"
	"github.com/florianilch/larkbridge/internal/lark"
	"github.com/florianilch/larkbridge/internal/observability"
	"github.com/florianilch/larkbridge/internal/tenanttoken"
)

// LogFormat represents the logging output format.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// SecretStorageType represents where the app secret is kept.
type SecretStorageType string

const (
	SecretStorageTypeFile    SecretStorageType = "file"
	SecretStorageTypeEnv     SecretStorageType = "env"
	SecretStorageTypeKeyring SecretStorageType = "keyring"
)

// Default configuration values
const (
	DefaultConfigLogFormat       = LogFormatText
	DefaultConfigLogExporter     = observability.ExporterNone
	DefaultConfigServerHost      = "127.0.0.1"
	DefaultConfigServerPort      = 4100
	DefaultConfigShutdownTimeout = 5 * time.Second
	DefaultConfigUpstreamBaseURL = lark.DefaultBaseURL
	DefaultConfigUpstreamTimeout = 30 * time.Second
	DefaultConfigAuthStorage     = SecretStorageTypeEnv
	DefaultConfigAuthEnvKey      = credstore.DefaultEnvKey
	DefaultConfigRefreshBuffer   = tenanttoken.DefaultRefreshBuffer
)

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Host string `json:"host" validate:"hostname_rfc1123|ip"`
	Port uint16 `json:"port"` // Port range 0-65535 handled by uint16 type
}

// ShutdownConfig holds shutdown behavior configuration.
type ShutdownConfig struct {
	// Timeout for graceful shutdown.
	Timeout time.Duration `json:"timeout"`
}

// UpstreamConfig holds open platform configuration.
type UpstreamConfig struct {
	// BaseURL is https://open.feishu.cn or https://open.larksuite.com.
	BaseURL string `json:"base_url" validate:"required,url"`
	// Timeout bounds a single open API call, token acquisition included.
	Timeout time.Duration `json:"timeout" validate:"gte=0s"`
}

// AuthConfig describes the app credentials and how tokens are cached.
type AuthConfig struct {
	AppID string `json:"app_id"`

	// Storage configuration - where the app secret comes from
	Storage SecretStorageType `json:"storage" validate:"required,oneof=file env keyring"`

	// Storage-specific settings (mutually exclusive based on Storage type)
	File        string `json:"file,omitempty"`         // For file storage: path to secret file
	EnvKey      string `json:"env_key,omitempty"`      // For env storage: environment variable name
	KeyringUser string `json:"keyring_user,omitempty"` // For keyring storage: user identifier

	// RefreshBuffer renews cached tokens this long before they expire.
	RefreshBuffer time.Duration `json:"refresh_buffer" validate:"gte=0s"`
}

// NewSecretStore creates a SecretStore from the authentication configuration.
func (a *AuthConfig) NewSecretStore() (credstore.SecretStore, error) {
	switch a.Storage {
	case SecretStorageTypeFile:
		return credstore.NewFileStore(a.File)
	case SecretStorageTypeEnv:
		return credstore.NewEnvStore(a.EnvKey)
	case SecretStorageTypeKeyring:
		return credstore.NewKeyringStore(credstore.KeyringService, a.KeyringUser)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", a.Storage)
	}
}

// Config holds the application's configuration.
type Config struct {
	// LogLevel for logging output (defaults to Info if unset).
	LogLevel    slog.Level     `json:"log_level"`
	LogFormat   LogFormat      `json:"log_format" validate:"oneof=text json"`
	LogExporter string         `json:"log_exporter" validate:"oneof=none stdout otlphttp otlpgrpc"`
	Server      ServerConfig   `json:"server"`
	Shutdown    ShutdownConfig `json:"shutdown"`
	Upstream    UpstreamConfig `json:"upstream"`
	Auth        AuthConfig     `json:"auth"`
}

// Default creates a new Config with default values applied.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills unset config fields with sensible defaults.
func (c *Config) ApplyDefaults() error {
	if c.LogFormat == "" {
		c.LogFormat = DefaultConfigLogFormat
	}
	if c.LogExporter == "" {
		c.LogExporter = DefaultConfigLogExporter
	}
	if c.Server.Host == "" {
		c.Server.Host = DefaultConfigServerHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultConfigServerPort
	}
	if c.Shutdown.Timeout == 0 {
		c.Shutdown.Timeout = DefaultConfigShutdownTimeout
	}
	if c.Upstream.BaseURL == "" {
		c.Upstream.BaseURL = DefaultConfigUpstreamBaseURL
	}
	if c.Upstream.Timeout == 0 {
		c.Upstream.Timeout = DefaultConfigUpstreamTimeout
	}
	if c.Auth.Storage == "" {
		c.Auth.Storage = DefaultConfigAuthStorage
	}
	if c.Auth.RefreshBuffer == 0 {
		c.Auth.RefreshBuffer = DefaultConfigRefreshBuffer
	}

	// Dynamic defaults based on storage type
	switch c.Auth.Storage {
	case SecretStorageTypeFile:
		if c.Auth.File == "" {
			configDir, err := os.UserConfigDir()
			if err != nil {
				return fmt.Errorf("auth.file required (auto-detect failed: %w)", err)
			}
			c.Auth.File = filepath.Join(configDir, "larkbridge", "app_secret")
		}
	case SecretStorageTypeKeyring:
		// One keyring entry per app, so the app id is the natural user.
		if c.Auth.KeyringUser == "" {
			c.Auth.KeyringUser = c.Auth.AppID
		}
	case SecretStorageTypeEnv:
		if c.Auth.EnvKey == "" {
			c.Auth.EnvKey = DefaultConfigAuthEnvKey
		}
	}

	return nil
}

// Validate validates the configuration using struct tags and enum values.
// A missing app id is not a config error; it surfaces as
// tenanttoken.ErrMissingCredentials when the first token is requested.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	switch c.Auth.Storage {
	case SecretStorageTypeFile:
		if c.Auth.File == "" {
			return errors.New("file path required for file storage")
		}
	case SecretStorageTypeEnv:
		if c.Auth.EnvKey == "" {
			return errors.New("env_key required for env storage")
		}
	case SecretStorageTypeKeyring:
		if c.Auth.KeyringUser == "" {
			return errors.New("keyring_user or app_id required for keyring storage")
		}
	}

	return nil
}
