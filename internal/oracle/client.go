package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xovato/agency-backend/internal/httpclient"
	"github.com/xovato/agency-backend/internal/rate"
)

const rateLimitKey = "serpapi"

// ErrNotConfigured is returned when no SerpAPI key is available.
var ErrNotConfigured = errors.New("oracle api key not configured")

// KeySource yields the current SerpAPI key; it may rotate between calls.
type KeySource interface {
	SerpAPIKey(ctx context.Context) string
}

// StaticKey is a KeySource with a fixed key.
type StaticKey string

func (k StaticKey) SerpAPIKey(context.Context) string { return string(k) }

type searchResponse struct {
	AnswerBox *struct {
		Snippet string `json:"snippet"`
	} `json:"answer_box"`
	OrganicResults []struct {
		Snippet string `json:"snippet"`
	} `json:"organic_results"`
	Error string `json:"error"`
}

// snippet prefers Google's direct answer, then the first organic result.
func (r *searchResponse) snippet() string {
	if r.AnswerBox != nil && r.AnswerBox.Snippet != "" {
		return r.AnswerBox.Snippet
	}
	if len(r.OrganicResults) > 0 {
		return r.OrganicResults[0].Snippet
	}
	return ""
}

// Client queries the SerpAPI search endpoint.
type Client struct {
	logger  *zap.Logger
	exec    *httpclient.Executor
	baseURL string
	keys    KeySource
}

// NewClient constructs a SerpAPI client. rateMgr may be nil.
func NewClient(logger *zap.Logger, rateMgr *rate.Manager, baseURL string, keys KeySource) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	httpClient := &http.Client{Timeout: 10 * time.Second}
	exec := httpclient.New(logger, rateMgr, httpClient, 0, "serpapi", func(status int, body []byte) error {
		var errResp searchResponse
		_ = json.Unmarshal(body, &errResp)

		msg := errResp.Error
		if msg == "" {
			msg = string(body)
		}
		logger.Warn("oracle.client_error",
			zap.Int("status", status),
			zap.String("error", msg))
		return fmt.Errorf("serpapi returned %d: %s", status, msg)
	})
	return &Client{
		logger:  logger,
		exec:    exec,
		baseURL: strings.TrimRight(baseURL, "/"),
		keys:    keys,
	}
}

// Search runs query localized to country and returns the most relevant snippet.
// GET /search.json?q=&gl=&hl=en&currency=USD&api_key=
func (c *Client) Search(ctx context.Context, query, country string) (string, error) {
	key := c.keys.SerpAPIKey(ctx)
	if key == "" {
		return "", ErrNotConfigured
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("gl", strings.ToLower(country))
	params.Set("hl", "en")
	params.Set("currency", "USD")
	params.Set("api_key", key)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search.json?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	var resp searchResponse
	if err := c.exec.DoJSON(ctx, req, rateLimitKey, &resp); err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", fmt.Errorf("serpapi: %s", resp.Error)
	}
	return resp.snippet(), nil
}
