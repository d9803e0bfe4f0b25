package secrets

import (
	"context"
	"errors"
)

// ErrSecretNotFound is returned when the named secret does not exist.
var ErrSecretNotFound = errors.New("secret not found")

// Provider fetches a secret as a flat key-value map.
type Provider interface {
	GetSecret(ctx context.Context, key string) (map[string]string, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, key string) (map[string]string, error)

func (f ProviderFunc) GetSecret(ctx context.Context, key string) (map[string]string, error) {
	return f(ctx, key)
}
