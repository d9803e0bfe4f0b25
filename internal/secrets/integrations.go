package secrets

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/xovato/agency-backend/pkg/config"
	pkgsecrets "github.com/xovato/agency-backend/pkg/secrets"
)

const integrationsSecret = "integrations"

// Integrations carries the credentials and endpoints of every outbound integration.
type Integrations struct {
	SerpAPIKey        string
	CalendarURL       string
	EmailJSServiceID  string
	EmailJSTemplateID string
	EmailJSPublicKey  string
	AIWorkerURL       string
}

// FromConfig returns the env-configured integrations.
func FromConfig(cfg *config.Config) Integrations {
	return Integrations{
		SerpAPIKey:        cfg.SerpAPIKey,
		CalendarURL:       cfg.CalendarAPIURL,
		EmailJSServiceID:  cfg.EmailJSServiceID,
		EmailJSTemplateID: cfg.EmailJSTemplateID,
		EmailJSPublicKey:  cfg.EmailJSPublicKey,
		AIWorkerURL:       cfg.AIWorkerURL,
	}
}

// overlay returns base with every non-empty secret key applied on top.
func overlay(base Integrations, m map[string]string) Integrations {
	set := func(dst *string, key string) {
		if v := m[key]; v != "" {
			*dst = v
		}
	}
	set(&base.SerpAPIKey, "serpapi_key")
	set(&base.CalendarURL, "calendar_url")
	set(&base.EmailJSServiceID, "emailjs_service_id")
	set(&base.EmailJSTemplateID, "emailjs_template_id")
	set(&base.EmailJSPublicKey, "emailjs_public_key")
	set(&base.AIWorkerURL, "ai_worker_url")
	return base
}

// IntegrationResolver resolves Integrations from {env}/{service}/integrations,
// falling back to the env values when the secret store is disabled or unreachable.
type IntegrationResolver struct {
	logger   *zap.Logger
	fallback Integrations
	aws      *AWSResolver[Integrations]
}

// NewIntegrationResolver builds a resolver. A nil provider means env-only.
func NewIntegrationResolver(
	logger *zap.Logger,
	cfg *config.Config,
	provider pkgsecrets.Provider,
	cache *pkgsecrets.Cache[Integrations],
) *IntegrationResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &IntegrationResolver{logger: logger, fallback: FromConfig(cfg)}
	if provider != nil && cache != nil {
		r.aws = NewAWSResolver(logger, cfg.Env, cfg.ServiceName, provider, cache)
	}
	return r
}

// Resolve never fails; secret store errors degrade to the env values.
func (r *IntegrationResolver) Resolve(ctx context.Context) Integrations {
	if r.aws == nil {
		return r.fallback
	}
	out, err := r.aws.Resolve(ctx, integrationsSecret, func(m map[string]string) (Integrations, error) {
		return overlay(r.fallback, m), nil
	})
	if err != nil {
		if errors.Is(err, pkgsecrets.ErrSecretNotFound) {
			r.logger.Debug("secrets.integrations_not_found", zap.Error(err))
		} else {
			r.logger.Warn("secrets.integrations_fallback_env", zap.Error(err))
		}
		return r.fallback
	}
	return out
}

// SerpAPIKey implements oracle.KeySource.
func (r *IntegrationResolver) SerpAPIKey(ctx context.Context) string {
	return r.Resolve(ctx).SerpAPIKey
}

// Static is a fixed integration set, used when the secret store is not wired.
type Static Integrations

func (s Static) Resolve(context.Context) Integrations { return Integrations(s) }
