package credstore

import (
	"context"
	"fmt"
	"os"
)

// DefaultEnvKey is the variable the secret is read from when no key is configured.
const DefaultEnvKey = "FEISHU_APP_SECRET"

// EnvStore provides read-only access to a secret held in an environment variable.
// Suitable for deployments where an external secret manager injects the environment.
type EnvStore struct {
	envKey string
	lookup func(string) (string, bool)
}

// Compile-time check to ensure EnvStore implements SecretStore
var _ SecretStore = (*EnvStore)(nil)

// NewEnvStore creates an EnvStore for the given environment variable.
// The variable is looked up on every Read, not at construction.
func NewEnvStore(envKey string) (*EnvStore, error) {
	if envKey == "" {
		return nil, fmt.Errorf("environment key cannot be empty")
	}

	return &EnvStore{
		envKey: envKey,
		lookup: os.LookupEnv,
	}, nil
}

// Read returns the secret from the environment variable.
func (e *EnvStore) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	secret, exists := e.lookup(e.envKey)
	if !exists || secret == "" {
		return "", fmt.Errorf("%w: environment variable %s is unset or empty", ErrNotFound, e.envKey)
	}
	return secret, nil
}

// Write is not supported for environment variables.
func (e *EnvStore) Write(ctx context.Context, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return fmt.Errorf("%w: environment variable %s", ErrReadOnly, e.envKey)
}
