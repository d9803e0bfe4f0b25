package secrets

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xovato/agency-backend/internal/metrics"
	pkgsecrets "github.com/xovato/agency-backend/pkg/secrets"
)

// AWSResolver resolves service configuration from AWS Secrets Manager,
// caching results locally to reduce API calls. It is generic over the
// resolved config type T.
//
// Secret naming convention: {env}/{service}/{name}
type AWSResolver[T any] struct {
	logger   *zap.Logger
	env      string
	service  string
	provider pkgsecrets.Provider
	cache    *pkgsecrets.Cache[T]
}

// NewAWSResolver constructs a generic config resolver.
func NewAWSResolver[T any](
	logger *zap.Logger,
	env string,
	service string,
	provider pkgsecrets.Provider,
	cache *pkgsecrets.Cache[T],
) *AWSResolver[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AWSResolver[T]{
		logger:   logger,
		env:      env,
		service:  service,
		provider: provider,
		cache:    cache,
	}
}

// SecretName builds the AWS Secrets Manager key.
func (r *AWSResolver[T]) SecretName(name string) string {
	return strings.ToLower(fmt.Sprintf("%s/%s/%s", r.env, r.service, name))
}

// Resolve fetches or caches config T for the named secret.
// parse extracts T from the raw secret map; it should validate required fields.
func (r *AWSResolver[T]) Resolve(ctx context.Context, name string, parse func(map[string]string) (T, error)) (T, error) {
	secretName := r.SecretName(name)

	if cfg, ok := r.cache.Get(secretName); ok {
		metrics.IncCacheHit("hit")
		return cfg, nil
	}
	metrics.IncCacheHit("miss")

	secretMap, err := r.provider.GetSecret(ctx, secretName)
	if err != nil {
		r.logger.Warn("aws.secret_fetch_failed",
			zap.String("key", secretName),
			zap.Error(err))
		var zero T
		return zero, fmt.Errorf("resolve %q: %w", secretName, err)
	}

	cfg, err := parse(secretMap)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("parse secret %q: %w", secretName, err)
	}

	r.cache.Put(secretName, cfg)

	r.logger.Info("aws.config_resolved",
		zap.String("key", secretName),
	)
	return cfg, nil
}
