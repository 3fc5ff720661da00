package observability_test

import (
	"testing"

	"github.com/Matt-Gary/Accounting-app/internal/infra/observability"
)

func TestMetrics_Counters(t *testing.T) {
	m := observability.NewMetrics()

	m.IncrMaterialized("created")
	m.IncrMaterialized("created")
	m.IncrMaterialized("duplicate")
	m.IncrFXFallback("USDBRL")

	if got := m.Materialized("created"); got != 2 {
		t.Errorf("created = %v, want 2", got)
	}
	if got := m.Materialized("duplicate"); got != 1 {
		t.Errorf("duplicate = %v, want 1", got)
	}
	if got := m.FXFallbacks("USDBRL"); got != 1 {
		t.Errorf("fallbacks = %v, want 1", got)
	}
	if got := m.FXFallbacks("USDPLN"); got != 0 {
		t.Errorf("untouched pair = %v, want 0", got)
	}
}

func TestNewMetrics_IndependentRegistries(t *testing.T) {
	a := observability.NewMetrics()
	b := observability.NewMetrics()
	a.IncrMaterialized("created")
	if b.Materialized("created") != 0 {
		t.Error("metrics instances must not share counters")
	}
}

func TestMetrics_CacheLookups(t *testing.T) {
	m := observability.NewMetrics()
	m.IncrCacheHit("quotes")
	m.IncrCacheMiss("quotes")
	m.IncrCacheMiss("quotes")

	if got := m.CacheLookups("quotes", "hit"); got != 1 {
		t.Errorf("hits = %v, want 1", got)
	}
	if got := m.CacheLookups("quotes", "miss"); got != 2 {
		t.Errorf("misses = %v, want 2", got)
	}
}
