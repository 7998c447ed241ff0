package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/florianilch/larkbridge/internal/tenanttoken"
	"github.com/florianilch/larkbridge/internal/tools"
)

// UpstreamPrefix is the path prefix forwarded to the open platform.
const UpstreamPrefix = "/open-apis/"

// Server is the tool gateway and authenticated passthrough to the open API.
type Server struct {
	mux    *http.ServeMux
	server *http.Server
}

// Compile-time check that Server implements http.Handler
var _ http.Handler = (*Server)(nil)

// Option configures a Server.
type Option func(*config)

type config struct {
	metrics http.Handler
	logger  *slog.Logger
}

// WithMetricsHandler serves h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(c *config) {
		c.metrics = h
	}
}

// WithLogger sets the request logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates the gateway. Tool calls run through registry; requests under
// /open-apis/ are forwarded to baseURL with a bearer token from tokens,
// fetched under the incoming request's context.
func New(registry *tools.Registry, tokens tenanttoken.Provider, baseURL string, opts ...Option) (*Server, error) {
	if registry == nil {
		return nil, errors.New("missing tool registry")
	}
	if tokens == nil {
		return nil, errors.New("missing token provider")
	}

	upstream, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream URL: %w", err)
	}
	if upstream.Scheme == "" || upstream.Host == "" {
		return nil, fmt.Errorf("invalid upstream URL %q: scheme and host required", baseURL)
	}

	cfg := &config{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	passthrough := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(upstream)
			pr.Out.Host = upstream.Host
			// Callers never authenticate themselves; the tenant token is set by the transport.
			pr.Out.Header.Del("Authorization")
		},
		Transport:    &tenanttoken.Transport{Tokens: tokens},
		ErrorHandler: passthroughError,
	}

	middlewares := []func(http.Handler) http.Handler{
		Logging(cfg.logger),
		TraceContext,
		Recovery,
	}

	toolHandler := &ToolHandler{Registry: registry}

	mux := http.NewServeMux()
	mux.Handle("GET /healthz", applyMiddlewares(http.HandlerFunc(healthz), Recovery))
	if cfg.metrics != nil {
		mux.Handle("GET /metrics", cfg.metrics)
	}
	mux.Handle("GET /tools", applyMiddlewares(http.HandlerFunc(toolHandler.list), middlewares...))
	mux.Handle("POST /tools/{name}", applyMiddlewares(toolHandler, middlewares...))
	mux.Handle(UpstreamPrefix, applyMiddlewares(passthrough, middlewares...))

	return &Server{mux: mux}, nil
}

// ServeHTTP implements http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Start starts the HTTP server in the background and returns immediately.
// Listen errors are returned directly; later serve errors arrive on the channel.
//
// The caller is responsible for calling Shutdown() to stop the server.
func (s *Server) Start(ctx context.Context, address string) (<-chan error, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	s.server = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       90 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)

	go func() {
		err := s.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	return errCh, nil
}

// Shutdown performs graceful shutdown of the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	if err := s.server.Shutdown(ctx); err != nil {
		_ = s.server.Close()
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	return nil
}

func healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, map[string]string{"status": "ok"}, http.StatusOK)
}

func passthroughError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	if errors.Is(err, context.Canceled) {
		return
	}
	if isAuthFailure(err) {
		slog.ErrorContext(ctx, "passthrough authentication failed", "error", err)
		writeJSONError(ctx, w, "authentication failed: "+err.Error(), http.StatusBadGateway)
		return
	}
	slog.ErrorContext(ctx, "passthrough request failed", "error", err)
	writeJSONError(ctx, w, "upstream request failed", http.StatusBadGateway)
}
