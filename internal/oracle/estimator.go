package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xovato/agency-backend/internal/metrics"
	"github.com/xovato/agency-backend/internal/store"
)

// QuoteSource labels market quotes served to clients.
const QuoteSource = "Live Regional Data"

// Searcher is the oracle transport (Client in production).
type Searcher interface {
	Search(ctx context.Context, query, country string) (string, error)
}

// Quote is the market endpoint response. Price is nil when the oracle gave no figure.
type Quote struct {
	Price    *int64 `json:"price"`
	Location string `json:"location"`
	Source   string `json:"source"`
}

type cachedPrice struct {
	Price int64 `json:"price"`
	Found bool  `json:"found"`
}

// Estimator turns a service and its selected options into a USD estimate.
type Estimator struct {
	logger *zap.Logger
	search Searcher
	cache  store.KV
	ttl    time.Duration
}

// NewEstimator builds an Estimator. cache may be nil to disable result caching.
func NewEstimator(logger *zap.Logger, search Searcher, cache store.KV, ttl time.Duration) *Estimator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Estimator{logger: logger, search: search, cache: cache, ttl: ttl}
}

// Query composes the free-text query for a service and its options.
func Query(service string, options []string) string {
	return strings.TrimSpace(service + " " + strings.Join(options, " "))
}

// Estimate returns the oracle's USD figure for the selection, or 0 when the
// selection is empty, no figure was found, or the oracle failed.
func (e *Estimator) Estimate(ctx context.Context, service string, options []string, country string) float64 {
	if len(options) == 0 {
		metrics.IncEstimate("empty")
		return 0
	}

	price, found, err := e.lookup(ctx, Query(service, options), country)
	if err != nil {
		metrics.IncEstimate("error")
		metrics.IncError("oracle", "estimate_failed")
		e.logger.Warn("oracle.estimate_failed",
			zap.String("service", service),
			zap.Strings("options", options),
			zap.Error(err))
		return 0
	}
	if !found {
		metrics.IncEstimate("no_price")
		e.logger.Info("oracle.no_price_found",
			zap.String("service", service),
			zap.Strings("options", options))
		return 0
	}
	metrics.IncEstimate("ok")
	return float64(price)
}

// MarketQuote serves the public market endpoint for a raw query.
func (e *Estimator) MarketQuote(ctx context.Context, q, countryCode string) (Quote, error) {
	quote := Quote{Location: CountryName(countryCode), Source: QuoteSource}

	price, found, err := e.lookup(ctx, strings.TrimSpace(q), countryCode)
	if err != nil {
		return quote, err
	}
	if found {
		quote.Price = &price
	}
	return quote, nil
}

func (e *Estimator) lookup(ctx context.Context, q, countryCode string) (int64, bool, error) {
	start := time.Now()
	cc := NormalizeCountry(countryCode)
	key := cacheKey(cc, q)

	if e.cache != nil {
		var hit cachedPrice
		err := e.cache.GetJSON(ctx, key, &hit)
		switch {
		case err == nil:
			metrics.IncEstimateCache("hit")
			metrics.ObserveDuration(metrics.EstimateLatency, start, "cache")
			return hit.Price, hit.Found, nil
		case errors.Is(err, store.ErrNotFound):
			metrics.IncEstimateCache("miss")
		default:
			e.logger.Warn("oracle.cache_read_failed", zap.String("key", key), zap.Error(err))
		}
	}

	snippet, err := e.search.Search(ctx, LocalizedQuery(q, cc), cc)
	if err != nil {
		return 0, false, fmt.Errorf("search %q: %w", q, err)
	}
	price, found := ExtractPrice(snippet)
	metrics.ObserveDuration(metrics.EstimateLatency, start, "live")

	e.logger.Debug("oracle.market_scanned",
		zap.String("query", q),
		zap.String("region", cc),
		zap.Bool("found", found),
		zap.Int64("price", price))

	if e.cache != nil {
		if err := e.cache.SetJSON(ctx, key, cachedPrice{Price: price, Found: found}, e.ttl); err != nil {
			e.logger.Warn("oracle.cache_write_failed", zap.String("key", key), zap.Error(err))
		}
	}
	return price, found, nil
}

func cacheKey(country, q string) string {
	return fmt.Sprintf("estimate:%s:%s", country, strings.ToLower(q))
}
