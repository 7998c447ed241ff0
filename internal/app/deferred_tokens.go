package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/florianilch/larkbridge/internal/credstore"
	"github.com/florianilch/larkbridge/internal/tenanttoken"
)

// ManagerFactory builds a token manager once credentials are known.
type ManagerFactory func(creds tenanttoken.Credentials) (*tenanttoken.Manager, error)

// DeferredTokens reads the app secret on first use and then delegates to a
// single tenanttoken.Manager. Startup performs no I/O, and a secret that is
// missing at first use is looked up again on the next call.
type DeferredTokens struct {
	appID   string
	store   credstore.SecretStore
	factory ManagerFactory

	mu      sync.Mutex
	manager *tenanttoken.Manager
}

// Compile-time check to ensure DeferredTokens implements tenanttoken.Provider
var _ tenanttoken.Provider = (*DeferredTokens)(nil)

// NewDeferredTokens creates a DeferredTokens. No I/O is performed until the first Token call.
func NewDeferredTokens(appID string, store credstore.SecretStore, factory ManagerFactory) (*DeferredTokens, error) {
	if store == nil {
		return nil, fmt.Errorf("missing secret store")
	}
	if factory == nil {
		return nil, fmt.Errorf("missing manager factory")
	}

	return &DeferredTokens{
		appID:   appID,
		store:   store,
		factory: factory,
	}, nil
}

// Manager returns the token manager, loading credentials if needed.
func (d *DeferredTokens) Manager(ctx context.Context) (*tenanttoken.Manager, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.manager != nil {
		return d.manager, nil
	}

	creds, err := credstore.LoadCredentials(ctx, d.appID, d.store)
	if err != nil {
		return nil, err
	}

	manager, err := d.factory(creds)
	if err != nil {
		return nil, fmt.Errorf("creating token manager: %w", err)
	}

	d.manager = manager
	return manager, nil
}

// Token implements tenanttoken.Provider.
func (d *DeferredTokens) Token(ctx context.Context) (string, error) {
	manager, err := d.Manager(ctx)
	if err != nil {
		return "", err
	}
	return manager.Token(ctx)
}
