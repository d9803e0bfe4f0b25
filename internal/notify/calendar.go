package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/xovato/agency-backend/internal/httpclient"
)

// CalendarClient posts JSON payloads to the scheduling worker.
type CalendarClient struct {
	logger *zap.Logger
	exec   *httpclient.Executor
	source IntegrationSource
}

func NewCalendarClient(logger *zap.Logger, source IntegrationSource, timeout time.Duration) *CalendarClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	// no retries: the worker books calls and is not idempotent
	exec := httpclient.New(logger, nil, &http.Client{Timeout: timeout}, 0, "calendar", nil)
	return &CalendarClient{logger: logger, exec: exec, source: source}
}

// Notify forwards payload and returns the worker's JSON response. Upstream failures
// carry an *httpclient.StatusError.
func (c *CalendarClient) Notify(ctx context.Context, payload any) (json.RawMessage, error) {
	url := c.source.Resolve(ctx).CalendarURL
	if url == "" {
		return nil, fmt.Errorf("%w: calendar url", ErrNotConfigured)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal calendar payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.exec.Do(ctx, req, "")
	if err != nil {
		var se *httpclient.StatusError
		if errors.As(err, &se) {
			c.logger.Warn("notify.calendar_upstream_error",
				zap.Int("status", se.Status),
				zap.String("body", se.Body))
		}
		return nil, err
	}

	if len(bytes.TrimSpace(resp)) == 0 {
		return json.RawMessage(`{}`), nil
	}
	if !json.Valid(resp) {
		return nil, errors.New("calendar returned a non-JSON response")
	}
	return json.RawMessage(resp), nil
}
