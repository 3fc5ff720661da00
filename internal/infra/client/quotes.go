// Package client holds HTTP clients for external services.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/Matt-Gary/Accounting-app/internal/infra/observability"
	"github.com/Matt-Gary/Accounting-app/internal/infra/resilience"
	"github.com/Matt-Gary/Accounting-app/internal/port"

	"github.com/PaesslerAG/jsonpath"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("client")

const quoteService = "price-oracle"

// QuoteClient fetches last prices from a Yahoo-compatible quote endpoint
// (GET /v7/finance/quote?symbols=A,B). Prices are cached per symbol.
type QuoteClient struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	cache      port.Cache[float64]
	metrics    *observability.Metrics
}

// NewQuoteClient creates a QuoteClient. cache and metrics may be nil.
func NewQuoteClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, cache port.Cache[float64], metrics *observability.Metrics) *QuoteClient {
	return &QuoteClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		cb:         cb,
		cfg:        cfg,
		cache:      cache,
		metrics:    metrics,
	}
}

// Quotes returns the price of every symbol the oracle knows in one batched
// request. Unknown symbols are absent from the map.
func (c *QuoteClient) Quotes(ctx context.Context, symbols []string) (map[string]float64, error) {
	ctx, span := tracer.Start(ctx, "QuoteClient.Quotes")
	defer span.End()

	prices := make(map[string]float64, len(symbols))
	var missing []string
	seen := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		if c.cache != nil {
			if p, ok := c.cache.Get(s); ok {
				prices[s] = p
				c.recordCache(true)
				continue
			}
			c.recordCache(false)
		}
		missing = append(missing, s)
	}
	span.SetAttributes(
		attribute.Int("symbols.requested", len(seen)),
		attribute.Int("symbols.fetched", len(missing)),
	)
	if len(missing) == 0 {
		return prices, nil
	}
	sort.Strings(missing)

	fetched, err := resilience.Guard(ctx, c.cb, c.cfg, quoteService, true, func() (map[string]float64, error) {
		return c.fetch(ctx, missing)
	})
	if err != nil {
		if c.metrics != nil {
			c.metrics.IncrExternalError(quoteService)
		}
		return nil, err
	}

	for s, p := range fetched {
		prices[s] = p
		if c.cache != nil {
			c.cache.Set(s, p)
		}
	}
	return prices, nil
}

func (c *QuoteClient) recordCache(hit bool) {
	if c.metrics == nil {
		return
	}
	if hit {
		c.metrics.IncrCacheHit("quotes")
	} else {
		c.metrics.IncrCacheMiss("quotes")
	}
}

func (c *QuoteClient) fetch(ctx context.Context, symbols []string) (map[string]float64, error) {
	u := fmt.Sprintf("%s/v7/finance/quote?symbols=%s", c.baseURL, url.QueryEscape(strings.Join(symbols, ",")))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, resilience.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("quote API returned status %d", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, resilience.Permanent(err)
		}
		return nil, err
	}
	return parseQuotes(body)
}

// parseQuotes extracts symbol → regularMarketPrice from a quote response.
func parseQuotes(body []byte) (map[string]float64, error) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, resilience.Permanent(fmt.Errorf("decode quotes: %w", err))
	}

	if apiErr, err := jsonpath.Get("$.finance.error", doc); err == nil && apiErr != nil {
		return nil, resilience.Permanent(fmt.Errorf("quote API error: %v", apiErr))
	}
	raw, err := jsonpath.Get("$.quoteResponse.result", doc)
	if err != nil {
		return nil, resilience.Permanent(fmt.Errorf("quote response has no result list: %w", err))
	}
	results, ok := raw.([]any)
	if !ok || results == nil {
		return nil, resilience.Permanent(fmt.Errorf("unexpected quote result %T", raw))
	}

	out := make(map[string]float64, len(results))
	for _, r := range results {
		q, ok := r.(map[string]any)
		if !ok {
			continue
		}
		sym, _ := q["symbol"].(string)
		price, ok := q["regularMarketPrice"].(float64)
		if sym == "" || !ok {
			continue
		}
		out[sym] = price
	}
	return out, nil
}
