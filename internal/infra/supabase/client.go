// Package supabase implements the ledger store on top of Supabase PostgREST.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/Matt-Gary/Accounting-app/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("supabase")

const serviceName = "supabase"

// Client talks to the PostgREST endpoint of a Supabase project. It
// implements port.Store.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	serviceRoleKey string
	cb             *gobreaker.CircuitBreaker
	cfg            resilience.Config
	logger         *zap.Logger
}

func NewClient(httpClient *http.Client, baseURL, apiKey, serviceRoleKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         apiKey,
		serviceRoleKey: serviceRoleKey,
		cb:             cb,
		cfg:            cfg,
		logger:         logger,
	}
}

// Ping checks that PostgREST answers. Used by /readyz.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.get(ctx, "payment_methods", newQuery().selectCols("id").limit(1))
	return err
}

// get runs an idempotent read, retried with backoff.
func (c *Client) get(ctx context.Context, table string, q *query) ([]byte, error) {
	path := table + "?" + q.encode()
	return resilience.Guard(ctx, c.cb, c.cfg, serviceName, true, func() ([]byte, error) {
		return c.send(ctx, http.MethodGet, path, nil, "")
	})
}

// send performs one PostgREST call with the service role key. A non-nil
// payload is sent as JSON. 404 and 204 yield a nil body.
func (c *Client) send(ctx context.Context, method, path string, payload any, prefer string) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, resilience.Permanent(fmt.Errorf("encode %s body: %w", path, err))
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/rest/v1/"+path, reqBody)
	if err != nil {
		return nil, resilience.Permanent(err)
	}
	if prefer == "" {
		prefer = "return=representation"
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceRoleKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", prefer)

	log := c.logger.With(zap.String("method", method), zap.String("path", path))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("supabase: transport error", zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error("supabase: reading response", zap.Error(err))
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusNoContent:
		return nil, nil
	case resp.StatusCode >= 300:
		log.Warn("supabase: rejected", zap.Int("status", resp.StatusCode), zap.ByteString("body", body))
		err := fmt.Errorf("supabase %s %s returned %d: %s", method, path, resp.StatusCode, body)
		// A rejected filter or payload fails the same way on retry.
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, resilience.Permanent(err)
		}
		return nil, err
	}

	log.Debug("supabase: ok", zap.Int("status", resp.StatusCode), zap.Int("bytes", len(body)))
	return body, nil
}
