package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/xovato/agency-backend/internal/metrics"
	"github.com/xovato/agency-backend/internal/rate"
)

// Backoff returns the retry sleep duration for the given attempt number.
func Backoff(attempt int) time.Duration {
	switch attempt {
	case 0:
		return 100 * time.Millisecond
	case 1:
		return 250 * time.Millisecond
	default:
		return 500 * time.Millisecond
	}
}

// StatusError carries an unsuccessful upstream status. It is returned directly for 4xx
// responses when no error handler is set, and wrapped once 5xx retries are exhausted.
type StatusError struct {
	Integration string
	Status      int
	Body        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.Integration, e.Status, e.Body)
}

// Executor handles rate-limited, retrying HTTP execution against one integration
// (the oracle, the calendar endpoint, EmailJS, the AI worker).
type Executor struct {
	logger       *zap.Logger
	rateMgr      *rate.Manager
	http         *http.Client
	retryMax     int
	tag          string
	errorHandler func(status int, body []byte) error
}

// New creates an Executor. errorHandler is called on 4xx failure responses to produce an
// integration-specific error. If nil, a *StatusError is returned.
func New(
	logger *zap.Logger,
	rateMgr *rate.Manager,
	httpClient *http.Client,
	retryMax int,
	tag string,
	errorHandler func(status int, body []byte) error,
) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Executor{
		logger:       logger,
		rateMgr:      rateMgr,
		http:         httpClient,
		retryMax:     retryMax,
		tag:          tag,
		errorHandler: errorHandler,
	}
}

// DoJSON executes req and JSON-decodes a non-empty response body into out.
func (e *Executor) DoJSON(ctx context.Context, req *http.Request, rateLimitKey string, out any) error {
	body, err := e.Do(ctx, req, rateLimitKey)
	if err != nil {
		return err
	}
	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			e.logger.Warn(e.tag+".decode_failed",
				zap.Error(err),
				zap.String("url", redactedURL(req)),
				zap.String("body", truncate(string(body), 512)))
			return fmt.Errorf("decode failed: %w", err)
		}
	}
	return nil
}

// Do executes req with rate limiting and retries on transport errors and 5xx,
// returning the raw body of the first 2xx/3xx response.
func (e *Executor) Do(ctx context.Context, req *http.Request, rateLimitKey string) ([]byte, error) {
	if e.rateMgr != nil {
		if err := e.rateMgr.Wait(ctx, rateLimitKey); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= e.retryMax; attempt++ {
		if attempt > 0 {
			if err := rewind(req); err != nil {
				return nil, err
			}
		}

		start := time.Now()
		resp, err := e.http.Do(req)
		if err != nil {
			lastErr = err
			metrics.ObserveOutbound(e.tag, "transport_error", time.Since(start))
			e.logger.Warn(e.tag+".http_failed",
				zap.String("url", redactedURL(req)),
				zap.Error(err),
				zap.Int("attempt", attempt))
			if !sleep(ctx, Backoff(attempt)) {
				return nil, ctx.Err()
			}
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		elapsed := time.Since(start)
		metrics.ObserveOutbound(e.tag, strconv.Itoa(resp.StatusCode), elapsed)

		if resp.StatusCode >= 500 {
			e.logger.Warn(e.tag+".server_error",
				zap.Int("status", resp.StatusCode),
				zap.String("url", redactedURL(req)),
				zap.Duration("latency", elapsed))
			lastErr = &StatusError{Integration: e.tag, Status: resp.StatusCode, Body: truncate(string(body), 256)}
			if !sleep(ctx, Backoff(attempt)) {
				return nil, ctx.Err()
			}
			continue
		}

		if resp.StatusCode >= 400 {
			if e.errorHandler != nil {
				return nil, e.errorHandler(resp.StatusCode, body)
			}
			return nil, &StatusError{Integration: e.tag, Status: resp.StatusCode, Body: truncate(string(body), 256)}
		}

		e.logger.Debug(e.tag+".http_success",
			zap.String("url", redactedURL(req)),
			zap.Int("status", resp.StatusCode),
			zap.Duration("elapsed", elapsed))

		return body, nil
	}

	return nil, fmt.Errorf("%s request failed after %d attempts: %w", e.tag, e.retryMax+1, lastErr)
}

// rewind resets the request body before a retry so POST payloads are re-sent in full.
func rewind(req *http.Request) error {
	if req.Body == nil || req.GetBody == nil {
		return nil
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Errorf("rewind request body: %w", err)
	}
	req.Body = body
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// redactedURL drops the query string, which carries API keys for some integrations.
func redactedURL(req *http.Request) string {
	u := *req.URL
	u.RawQuery = ""
	return u.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
