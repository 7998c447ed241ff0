package tenanttoken

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultRefreshBuffer is how long before hard expiry a cached token is renewed.
const DefaultRefreshBuffer = 60 * time.Second

// Fetch outcomes reported to a Recorder.
const (
	OutcomeSuccess   = "success"
	OutcomeTransport = "transport"
	OutcomeRejected  = "rejected"
	OutcomeMalformed = "malformed"
	OutcomeError     = "error"
)

// Recorder observes token cache activity.
type Recorder interface {
	CacheHit()
	Fetch(outcome string, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) CacheHit()                   {}
func (nopRecorder) Fetch(string, time.Duration) {}

// Option configures a Manager.
type Option func(*Manager)

// WithRefreshBuffer sets the safety margin subtracted from a token's expiry.
// Negative values are treated as zero.
func WithRefreshBuffer(buffer time.Duration) Option {
	return func(m *Manager) {
		m.buffer = max(buffer, 0)
	}
}

// WithClock replaces time.Now as the manager's notion of the current instant.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger sets the logger for refresh events. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithRecorder reports cache hits and fetches to r.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) {
		if r != nil {
			m.recorder = r
		}
	}
}

// cachedToken is only read or written by the holder of Manager.sem.
type cachedToken struct {
	value     string
	expiresAt time.Time
}

// Manager hands out a valid tenant access token to any number of concurrent
// callers and performs at most one remote fetch at a time.
//
// The check-fetch-store sequence runs as a single exclusive region, so callers
// arriving while a fetch is in flight wait for its result instead of
// starting their own.
type Manager struct {
	creds    Credentials
	source   Source
	buffer   time.Duration
	now      func() time.Time
	logger   *slog.Logger
	recorder Recorder

	sem    chan struct{}
	cached *cachedToken
}

// New creates a Manager for one tenant. No I/O is performed until the first Token call.
func New(creds Credentials, source Source, opts ...Option) (*Manager, error) {
	if creds.AppID == "" || creds.AppSecret == "" {
		return nil, ErrMissingCredentials
	}
	if source == nil {
		return nil, errors.New("tenanttoken: missing token source")
	}

	m := &Manager{
		creds:    creds,
		source:   source,
		buffer:   DefaultRefreshBuffer,
		now:      time.Now,
		logger:   slog.Default(),
		recorder: nopRecorder{},
		sem:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// Token returns a currently valid token, fetching a new one when the cache is
// empty or inside the refresh buffer.
//
// If a refresh fails while the cached token has not hard-expired, the cached
// token is returned instead of the error. A rejection of the credentials
// always clears the cache and is returned.
//
// ctx bounds both the wait for exclusive access and the remote fetch.
func (m *Manager) Token(ctx context.Context) (string, error) {
	tok, err := m.token(ctx, false)
	return tok.value, err
}

// Refresh fetches a new token regardless of the cached one's remaining lifetime.
// Failure handling matches Token.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	tok, err := m.token(ctx, true)
	return tok.value, err
}

func (m *Manager) token(ctx context.Context, force bool) (cachedToken, error) {
	if err := m.acquire(ctx); err != nil {
		return cachedToken{}, err
	}
	defer m.release()

	if !force && m.cached != nil && m.now().Before(m.cached.expiresAt.Add(-m.buffer)) {
		m.recorder.CacheHit()
		return *m.cached, nil
	}

	start := time.Now()
	fetched, err := m.source.Fetch(ctx, m.creds)
	if err == nil && (fetched.Value == "" || fetched.TTL <= 0) {
		err = fmt.Errorf("%w: empty token or non-positive ttl", ErrMalformedResponse)
	}
	m.recorder.Fetch(outcome(err), time.Since(start))
	if err != nil {
		return m.fetchFailed(ctx, err)
	}

	m.cached = &cachedToken{
		value:     fetched.Value,
		expiresAt: m.now().Add(fetched.TTL),
	}
	m.logger.DebugContext(ctx, "obtained tenant access token",
		"app_id", m.creds.AppID,
		"expires_at", m.cached.expiresAt.Format(time.RFC3339),
	)

	return *m.cached, nil
}

// fetchFailed decides between surfacing err and degrading to the cached token.
func (m *Manager) fetchFailed(ctx context.Context, err error) (cachedToken, error) {
	var rejection *RejectionError
	if errors.As(err, &rejection) {
		m.cached = nil
		m.logger.ErrorContext(ctx, "tenant access token request rejected",
			"app_id", m.creds.AppID,
			"code", rejection.Code,
			"message", rejection.Message,
		)
		return cachedToken{}, fmt.Errorf("fetching tenant access token: %w", err)
	}

	if m.cached != nil && m.now().Before(m.cached.expiresAt) {
		m.logger.WarnContext(ctx, "tenant access token refresh failed, using cached token",
			"error", err,
			"expires_at", m.cached.expiresAt.Format(time.RFC3339),
		)
		return *m.cached, nil
	}

	return cachedToken{}, fmt.Errorf("fetching tenant access token: %w", err)
}

func (m *Manager) acquire(ctx context.Context) error {
	select {
	case m.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) release() {
	<-m.sem
}

func outcome(err error) string {
	var rejection *RejectionError
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.As(err, &rejection):
		return OutcomeRejected
	case errors.Is(err, ErrMalformedResponse):
		return OutcomeMalformed
	case errors.Is(err, ErrTransport):
		return OutcomeTransport
	default:
		return OutcomeError
	}
}
