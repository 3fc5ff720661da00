package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Matt-Gary/Accounting-app/internal/infra/resilience"
)

// ============================================================
// PostgREST query builder
// ============================================================

type query struct {
	v url.Values
}

func newQuery() *query { return &query{v: url.Values{}} }

func (q *query) selectCols(cols string) *query { q.v.Set("select", cols); return q }
func (q *query) eq(col, val string) *query     { q.v.Add(col, "eq."+val); return q }
func (q *query) eqInt(col string, n int) *query {
	return q.eq(col, strconv.Itoa(n))
}
func (q *query) gte(col, val string) *query { q.v.Add(col, "gte."+val); return q }
func (q *query) lt(col, val string) *query  { q.v.Add(col, "lt."+val); return q }
func (q *query) isNull(col string) *query   { q.v.Add(col, "is.null"); return q }
func (q *query) notNull(col string) *query  { q.v.Add(col, "not.is.null"); return q }
func (q *query) order(expr string) *query   { q.v.Set("order", expr); return q }
func (q *query) limit(n int) *query         { q.v.Set("limit", strconv.Itoa(n)); return q }

// in adds a col=in.(a,b) filter. Values are double-quoted so ids containing
// reserved characters survive.
func (q *query) in(col string, vals []string) *query {
	quoted := make([]string, len(vals))
	for i, v := range vals {
		quoted[i] = `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
	}
	q.v.Add(col, "in.("+strings.Join(quoted, ",")+")")
	return q
}

func (q *query) encode() string { return q.v.Encode() }

// ============================================================
// Writes (never retried)
// ============================================================

func (c *Client) insert(ctx context.Context, table string, data any, prefer string) ([]byte, error) {
	return resilience.Guard(ctx, c.cb, c.cfg, serviceName, false, func() ([]byte, error) {
		return c.send(ctx, http.MethodPost, table, data, prefer)
	})
}

// update returns the patched rows so callers can count them.
func (c *Client) update(ctx context.Context, table string, q *query, data any) ([]byte, error) {
	path := table + "?" + q.encode()
	return resilience.Guard(ctx, c.cb, c.cfg, serviceName, false, func() ([]byte, error) {
		return c.send(ctx, http.MethodPatch, path, data, "")
	})
}

// remove returns the deleted rows so callers can count them.
func (c *Client) remove(ctx context.Context, table string, q *query) ([]byte, error) {
	path := table + "?" + q.encode()
	return resilience.Guard(ctx, c.cb, c.cfg, serviceName, false, func() ([]byte, error) {
		return c.send(ctx, http.MethodDelete, path, nil, "")
	})
}

// decodeRows unmarshals a PostgREST array response. A nil body is empty.
func decodeRows[T any](body []byte, what string) ([]T, error) {
	if len(body) == 0 {
		return []T{}, nil
	}
	var rows []T
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode %s: %w", what, err)
	}
	return rows, nil
}

// countRows returns the length of a PostgREST array response.
func countRows(body []byte) (int, error) {
	rows, err := decodeRows[json.RawMessage](body, "rows")
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}
