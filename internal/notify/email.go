package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xovato/agency-backend/internal/httpclient"
)

const emailSendPath = "/api/v1.0/email/send"

type emailRequest struct {
	ServiceID      string         `json:"service_id"`
	TemplateID     string         `json:"template_id"`
	UserID         string         `json:"user_id"`
	TemplateParams map[string]any `json:"template_params"`
}

// EmailClient sends templated mail through the EmailJS REST API.
type EmailClient struct {
	logger  *zap.Logger
	exec    *httpclient.Executor
	baseURL string
	source  IntegrationSource
}

func NewEmailClient(logger *zap.Logger, baseURL string, source IntegrationSource, timeout time.Duration) *EmailClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	exec := httpclient.New(logger, nil, &http.Client{Timeout: timeout}, 1, "emailjs", nil)
	return &EmailClient{
		logger:  logger,
		exec:    exec,
		baseURL: strings.TrimRight(baseURL, "/"),
		source:  source,
	}
}

// Send renders the configured template with params.
func (c *EmailClient) Send(ctx context.Context, params map[string]any) error {
	in := c.source.Resolve(ctx)
	if in.EmailJSServiceID == "" || in.EmailJSTemplateID == "" || in.EmailJSPublicKey == "" {
		return fmt.Errorf("%w: emailjs", ErrNotConfigured)
	}

	body, err := json.Marshal(emailRequest{
		ServiceID:      in.EmailJSServiceID,
		TemplateID:     in.EmailJSTemplateID,
		UserID:         in.EmailJSPublicKey,
		TemplateParams: params,
	})
	if err != nil {
		return fmt.Errorf("marshal email request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+emailSendPath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	// EmailJS answers with plain text ("OK") on success.
	if _, err := c.exec.Do(ctx, req, ""); err != nil {
		return fmt.Errorf("emailjs send: %w", err)
	}
	return nil
}
