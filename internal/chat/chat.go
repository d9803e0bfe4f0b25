// Package chat relays the site assistant conversation to the AI worker.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xovato/agency-backend/internal/httpclient"
	"github.com/xovato/agency-backend/internal/metrics"
	"github.com/xovato/agency-backend/internal/secrets"
)

// FallbackText is returned to the visitor when the worker cannot answer.
const FallbackText = "Something went wrong. Please try again."

const maxMessages = 40

var ErrEmptyConversation = errors.New("conversation has no user message")

var (
	unwantedSymbols = regexp.MustCompile(`[!@#$%^&*()+=\[\]{}|<>~]`)
	pricingPattern  = regexp.MustCompile(`(?i)price|pricing|princes`)
	codePattern     = regexp.MustCompile("(?i)(```|function\\s|\\bconst\\b|\\blet\\b|\\bimport\\b|\\bexport\\b|\\{|\\}|;)")
)

type Message struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required,max=4000"`
}

// Reply is the assistant's answer plus the flags the widget renders with.
type Reply struct {
	Content     string `json:"content"`
	ShowPricing bool   `json:"showPricing"`
	IsCode      bool   `json:"isCode"`
	Fallback    bool   `json:"fallback,omitempty"`
}

// IntegrationSource yields the current AI worker endpoint.
type IntegrationSource interface {
	Resolve(ctx context.Context) secrets.Integrations
}

type workerResponse struct {
	Content string `json:"content"`
}

type Service struct {
	logger *zap.Logger
	exec   *httpclient.Executor
	source IntegrationSource
}

func NewService(logger *zap.Logger, source IntegrationSource, timeout time.Duration) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	exec := httpclient.New(logger, nil, &http.Client{Timeout: timeout}, 1, "ai_worker", nil)
	return &Service{logger: logger, exec: exec, source: source}
}

// Reply sends the conversation to the worker. Worker failures never surface as
// errors; the visitor gets FallbackText instead.
func (s *Service) Reply(ctx context.Context, messages []Message) (Reply, error) {
	last, ok := lastUserMessage(messages)
	if !ok {
		return Reply{}, ErrEmptyConversation
	}
	if len(messages) > maxMessages {
		messages = messages[len(messages)-maxMessages:]
	}

	flags := Reply{
		ShowPricing: pricingPattern.MatchString(last),
		IsCode:      codePattern.MatchString(last),
	}

	content, err := s.ask(ctx, messages)
	if err != nil {
		metrics.IncError("chat", "worker")
		s.logger.Warn("chat.worker_failed", zap.Error(err))
		return Reply{Content: FallbackText, Fallback: true}, nil
	}
	flags.Content = Sanitize(content)
	return flags, nil
}

func (s *Service) ask(ctx context.Context, messages []Message) (string, error) {
	url := s.source.Resolve(ctx).AIWorkerURL
	if url == "" {
		return "", errors.New("ai worker url not configured")
	}
	body, err := json.Marshal(map[string]any{"messages": messages})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var out workerResponse
	if err := s.exec.DoJSON(ctx, req, "", &out); err != nil {
		return "", fmt.Errorf("ai worker: %w", err)
	}
	return out.Content, nil
}

// Sanitize strips markup symbols from a worker reply.
func Sanitize(text string) string {
	return strings.TrimSpace(unwantedSymbols.ReplaceAllString(text, ""))
}

func lastUserMessage(messages []Message) (string, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" && strings.TrimSpace(messages[i].Content) != "" {
			return messages[i].Content, true
		}
	}
	return "", false
}
