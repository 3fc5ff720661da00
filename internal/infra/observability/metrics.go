package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "accounting"

// Materialization outcomes.
const (
	OutcomeCreated   = "created"
	OutcomeDuplicate = "duplicate"
	OutcomeBackdated = "backdated"
)

// Metrics holds the Prometheus collectors of the ledger and the portfolio.
type Metrics struct {
	// Registry owns every collector below; /metrics serves it.
	Registry *prometheus.Registry

	operationDuration *prometheus.HistogramVec
	upstreamErrors    *prometheus.CounterVec
	cacheLookups      *prometheus.CounterVec
	materialized      *prometheus.CounterVec
	fxFallbacks       *prometheus.CounterVec
	degraded          *prometheus.CounterVec
}

// NewMetrics registers all collectors in a fresh registry, so several
// instances can coexist in one process.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, labels)
	}

	return &Metrics{
		Registry: reg,

		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of dashboard, report and materialization runs.",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"operation"},
		),
		upstreamErrors: counter("upstream_errors_total", "Failed calls to the store or the price oracle.", "service"),
		cacheLookups:   counter("cache_lookups_total", "Quote cache lookups by result.", "cache", "result"),
		materialized:   counter("recurring_materializations_total", "Recurring template outcomes per materialization pass.", "outcome"),
		fxFallbacks:    counter("fx_fallbacks_total", "Exchange rates replaced by fixed fallback constants.", "pair"),
		degraded:       counter("degraded_responses_total", "Responses built from fallback data after an oracle outage.", "operation"),
	}
}

func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.operationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *Metrics) IncrExternalError(service string) {
	m.upstreamErrors.WithLabelValues(service).Inc()
}

func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheLookups.WithLabelValues(cache, "hit").Inc()
}

func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheLookups.WithLabelValues(cache, "miss").Inc()
}

// IncrMaterialized counts one template outcome (see the Outcome constants).
func (m *Metrics) IncrMaterialized(outcome string) {
	m.materialized.WithLabelValues(outcome).Inc()
}

// IncrFXFallback counts a substituted exchange rate, labelled like "USD/BRL".
func (m *Metrics) IncrFXFallback(pair string) {
	m.fxFallbacks.WithLabelValues(pair).Inc()
}

func (m *Metrics) IncrDegraded(operation string) {
	m.degraded.WithLabelValues(operation).Inc()
}

// Materialized returns the cumulative count for an outcome.
func (m *Metrics) Materialized(outcome string) float64 {
	return counterValue(m.materialized, outcome)
}

// FXFallbacks returns the cumulative count for a currency pair.
func (m *Metrics) FXFallbacks(pair string) float64 {
	return counterValue(m.fxFallbacks, pair)
}

// CacheLookups returns the cumulative lookups of cache with the given
// result ("hit" or "miss").
func (m *Metrics) CacheLookups(cache, result string) float64 {
	return counterValue(m.cacheLookups, cache, result)
}

func counterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	var out dto.Metric
	if err := cv.WithLabelValues(labels...).Write(&out); err != nil {
		return 0
	}
	return out.GetCounter().GetValue()
}
