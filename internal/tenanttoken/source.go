package tenanttoken

import (
	"context"
	"log/slog"
	"time"
)

// Credentials are the static application credentials exchanged for a tenant access token.
type Credentials struct {
	AppID     string
	AppSecret string
}

// String masks the secret so credentials can be printed safely.
func (c Credentials) String() string {
	return "app_id=" + c.AppID + " app_secret=" + redact(c.AppSecret)
}

// LogValue implements slog.LogValuer.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("app_id", c.AppID),
		slog.String("app_secret", redact(c.AppSecret)),
	)
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	return "[REDACTED]"
}

// Token is the result of one remote exchange: the bearer value and the
// server-reported time it stays valid.
type Token struct {
	Value string
	TTL   time.Duration
}

// Source performs the remote exchange of application credentials for a token.
//
// Implementations report failures using the package error taxonomy:
// ErrTransport, ErrMalformedResponse or *RejectionError.
type Source interface {
	Fetch(ctx context.Context, creds Credentials) (Token, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, creds Credentials) (Token, error)

// Fetch calls f.
func (f SourceFunc) Fetch(ctx context.Context, creds Credentials) (Token, error) {
	return f(ctx, creds)
}
