package credstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/florianilch/larkbridge/internal/tenanttoken"
)

// ErrNotFound is returned when a store holds no secret.
var ErrNotFound = errors.New("credstore: secret not found")

// ErrReadOnly is returned by Write on stores that cannot be written.
var ErrReadOnly = errors.New("credstore: store is read-only")

// SecretStore reads and writes the application secret.
type SecretStore interface {
	// Read returns the stored secret. Returns ErrNotFound if it is missing or empty.
	Read(ctx context.Context) (string, error)

	// Write persists the secret. Returns ErrReadOnly for read-only backends.
	Write(ctx context.Context, secret string) error
}

// LoadCredentials combines appID with the secret held by store.
func LoadCredentials(ctx context.Context, appID string, store SecretStore) (tenanttoken.Credentials, error) {
	if appID == "" {
		return tenanttoken.Credentials{}, fmt.Errorf("%w: app id not configured", tenanttoken.ErrMissingCredentials)
	}

	secret, err := store.Read(ctx)
	if errors.Is(err, ErrNotFound) {
		return tenanttoken.Credentials{}, fmt.Errorf("%w: %w", tenanttoken.ErrMissingCredentials, err)
	}
	if err != nil {
		return tenanttoken.Credentials{}, fmt.Errorf("reading app secret: %w", err)
	}

	return tenanttoken.Credentials{AppID: appID, AppSecret: secret}, nil
}
