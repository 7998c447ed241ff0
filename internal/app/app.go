package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/florianilch/larkbridge/internal/credstore"
	"github.com/florianilch/larkbridge/internal/lark"
	"github.com/florianilch/larkbridge/internal/metrics"
	"github.com/florianilch/larkbridge/internal/server"
	"github.com/florianilch/larkbridge/internal/tenanttoken"
	"github.com/florianilch/larkbridge/internal/tokensource"
	"github.com/florianilch/larkbridge/internal/tools"
)

// App orchestrates the lifecycle of the gateway server and related services.
type App struct {
	cfg    *Config
	tools  *tools.Registry
	server *server.Server
}

// New creates a new App instance. No credentials are read until the first
// token is needed.
func New(cfg *Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	m := metrics.New()

	tokens, err := newTokens(cfg, m)
	if err != nil {
		return nil, fmt.Errorf("failed to create token provider: %w", err)
	}

	client := lark.New(tokens,
		lark.WithBaseURL(cfg.Upstream.BaseURL),
		lark.WithTimeout(cfg.Upstream.Timeout),
		lark.WithObserver(m),
	)
	registry := tools.New(client)

	srv, err := server.New(registry, tokens, cfg.Upstream.BaseURL,
		server.WithMetricsHandler(m.Handler()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create server: %w", err)
	}

	return &App{
		cfg:    cfg,
		tools:  registry,
		server: srv,
	}, nil
}

// Tools returns the tool registry for in-process calls.
func (a *App) Tools() *tools.Registry {
	return a.tools
}

// Start starts all services and blocks until shutdown is triggered.
// Uses errgroup for runtime error monitoring and shutdown function collection for coordinated cleanup.
func (a *App) Start(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	address := a.cfg.Server.Host + ":" + strconv.FormatUint(uint64(a.cfg.Server.Port), 10)
	var shutdownFuncs []func(context.Context) error

	// Startup phase: Start services
	slog.InfoContext(gCtx, "starting gateway server", "address", address)
	serverErrCh, err := a.server.Start(gCtx, address)
	if err != nil {
		return fmt.Errorf("server startup failed: %w", err)
	}
	shutdownFuncs = append(shutdownFuncs, a.server.Shutdown)

	// Monitor runtime errors - errgroup cancels context on first error
	g.Go(func() error {
		select {
		case err := <-serverErrCh:
			if err != nil {
				slog.ErrorContext(gCtx, "server runtime error", "error", err)
				return fmt.Errorf("server: %w", err)
			}
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	slog.InfoContext(gCtx, "application ready", "address", address, "upstream", a.cfg.Upstream.BaseURL)

	runtimeErr := g.Wait()

	slog.InfoContext(gCtx, "shutting down services")

	// Shutdown phase: Stop all services
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Shutdown.Timeout)
	defer cancel()

	var errs []error
	if runtimeErr != nil {
		errs = append(errs, fmt.Errorf("runtime: %w", runtimeErr))
	}

	for i := len(shutdownFuncs) - 1; i >= 0; i-- {
		if err := shutdownFuncs[i](shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "service shutdown failed", "error", err)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	slog.Info("application stopped")
	return nil
}

// newTokens wires the secret store, token endpoint and manager options from configuration.
func newTokens(cfg *Config, recorder tenanttoken.Recorder) (*DeferredTokens, error) {
	store, err := cfg.Auth.NewSecretStore()
	if err != nil {
		return nil, fmt.Errorf("failed to create secret store: %w", err)
	}

	source := tokensource.New(tokensource.EndpointFor(cfg.Upstream.BaseURL),
		tokensource.WithTimeout(cfg.Upstream.Timeout),
	)

	factory := func(creds tenanttoken.Credentials) (*tenanttoken.Manager, error) {
		return tenanttoken.New(creds, source,
			tenanttoken.WithRefreshBuffer(cfg.Auth.RefreshBuffer),
			tenanttoken.WithRecorder(recorder),
			tenanttoken.WithLogger(slog.Default().With("component", "tenanttoken")),
		)
	}

	return NewDeferredTokens(cfg.Auth.AppID, store, factory)
}

// SecretStore returns the configured secret store, for writing credentials.
func SecretStore(cfg *Config) (credstore.SecretStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg.Auth.NewSecretStore()
}

// CheckCredentials performs one forced token exchange with the configured
// credentials and returns the new token's expiry.
func CheckCredentials(ctx context.Context, cfg *Config) (time.Time, error) {
	if err := cfg.Validate(); err != nil {
		return time.Time{}, fmt.Errorf("invalid configuration: %w", err)
	}

	tokens, err := newTokens(cfg, nil)
	if err != nil {
		return time.Time{}, err
	}
	manager, err := tokens.Manager(ctx)
	if err != nil {
		return time.Time{}, err
	}
	token, err := manager.RefreshToken(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return token.Expiry, nil
}
