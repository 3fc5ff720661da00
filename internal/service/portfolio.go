package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/Matt-Gary/Accounting-app/internal/domain"
	"github.com/Matt-Gary/Accounting-app/internal/infra/observability"
	"github.com/Matt-Gary/Accounting-app/internal/port"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Oracle symbols of the three FX pairs.
const (
	SymbolUSDBRL = "BRL=X"    // BRL per USD
	SymbolEURUSD = "EURUSD=X" // USD per EUR
	SymbolUSDPLN = "PLN=X"    // PLN per USD
)

// Fixed rates used when the oracle has no plausible quote.
var (
	FallbackUSDBRL = decimal.NewFromFloat(5.0)
	FallbackEURUSD = decimal.NewFromFloat(1.0)
	FallbackUSDPLN = decimal.NewFromFloat(4.0)

	minPlausibleRate = decimal.NewFromFloat(0.1)
	valueScale       = int32(8)
	hundred          = decimal.NewFromInt(100)
)

// PortfolioService values holdings with live prices.
type PortfolioService struct {
	store   port.InvestmentStore
	oracle  port.PriceOracle
	timeout time.Duration
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewPortfolioService creates the service. timeout bounds the oracle call.
func NewPortfolioService(store port.InvestmentStore, oracle port.PriceOracle, timeout time.Duration, metrics *observability.Metrics, logger *zap.Logger) *PortfolioService {
	return &PortfolioService{
		store:   store,
		oracle:  oracle,
		timeout: timeout,
		metrics: metrics,
		logger:  logger,
	}
}

// Value prices every holding of userID. A failed oracle call does not fail
// the request: prices drop to zero, rates fall back and Degraded is set.
func (s *PortfolioService) Value(ctx context.Context, userID string) (*domain.Portfolio, error) {
	ctx, span := tracer.Start(ctx, "PortfolioService.Value")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	if userID == "" {
		return nil, &domain.ErrValidation{Field: "user_id", Message: "required"}
	}

	holdings, err := s.store.ListInvestments(ctx, userID)
	if err != nil {
		return nil, err
	}

	quotes, degraded := s.quotes(ctx, holdings)
	rates := s.rates(quotes)

	p := &domain.Portfolio{
		UserID:        userID,
		TotalValueUSD: decimal.Zero,
		TotalValueBRL: decimal.Zero,
		ExchangeRates: rates,
		Degraded:      degraded,
		Investments:   make([]domain.ValuedInvestment, 0, len(holdings)),
	}
	for _, inv := range holdings {
		v := valueHolding(inv, quotes, rates)
		p.TotalValueUSD = p.TotalValueUSD.Add(v.CurrentValueUSD)
		p.TotalValueBRL = p.TotalValueBRL.Add(v.CurrentValueBRL)
		p.Investments = append(p.Investments, v)
	}
	span.SetAttributes(attribute.Bool("degraded", degraded))
	return p, nil
}

// quotes runs the single batched oracle call under the configured timeout.
func (s *PortfolioService) quotes(ctx context.Context, holdings []domain.Investment) (map[string]decimal.Decimal, bool) {
	seen := map[string]bool{}
	symbols := []string{}
	for _, inv := range holdings {
		if !inv.Type.IsQuoted() || inv.Symbol == nil || *inv.Symbol == "" {
			continue
		}
		if !seen[*inv.Symbol] {
			seen[*inv.Symbol] = true
			symbols = append(symbols, *inv.Symbol)
		}
	}
	symbols = append(symbols, SymbolUSDBRL, SymbolEURUSD, SymbolUSDPLN)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	raw, err := s.oracle.Quotes(ctx, symbols)
	if err != nil {
		s.logger.Error("price oracle unavailable, valuing with fallbacks",
			zap.Int("symbols", len(symbols)),
			zap.Bool("timeout", errors.Is(err, context.DeadlineExceeded)),
			zap.Error(err),
		)
		if s.metrics != nil {
			s.metrics.IncrDegraded("portfolio")
		}
		return map[string]decimal.Decimal{}, true
	}

	out := make(map[string]decimal.Decimal, len(raw))
	for sym, price := range raw {
		out[sym] = decimal.NewFromFloat(price)
	}
	return out, false
}

func (s *PortfolioService) rates(quotes map[string]decimal.Decimal) domain.ExchangeRates {
	r := domain.ExchangeRates{Fallbacks: []string{}}
	pick := func(symbol, pair string, fallback decimal.Decimal) decimal.Decimal {
		if v, ok := quotes[symbol]; ok && v.GreaterThan(minPlausibleRate) {
			return v
		}
		r.Fallbacks = append(r.Fallbacks, pair)
		if s.metrics != nil {
			s.metrics.IncrFXFallback(pair)
		}
		return fallback
	}
	r.USDBRL = pick(SymbolUSDBRL, "USD/BRL", FallbackUSDBRL)
	r.EURUSD = pick(SymbolEURUSD, "EUR/USD", FallbackEURUSD)
	r.USDPLN = pick(SymbolUSDPLN, "USD/PLN", FallbackUSDPLN)
	return r
}

// valueHolding derives price, values and P&L for one holding.
func valueHolding(inv domain.Investment, quotes map[string]decimal.Decimal, rates domain.ExchangeRates) domain.ValuedInvestment {
	v := domain.ValuedInvestment{Investment: inv, CurrentPrice: decimal.Zero}

	switch {
	case inv.Type == domain.InvestmentCash:
		v.CurrentValueNative = inv.Quantity
	case inv.Type.IsQuoted():
		if inv.Symbol != nil {
			if price, ok := quotes[*inv.Symbol]; ok {
				v.CurrentPrice = price
			}
		}
		v.CurrentValueNative = inv.Quantity.Mul(v.CurrentPrice)
	default:
		v.CurrentValueNative = inv.Quantity
	}

	v.CurrentValueUSD = toUSD(v.CurrentValueNative, inv.Currency, rates).Round(valueScale)
	if inv.Currency == domain.CurrencyBRL {
		v.CurrentValueBRL = v.CurrentValueNative
	} else {
		v.CurrentValueBRL = v.CurrentValueUSD.Mul(rates.USDBRL).Round(valueScale)
	}

	v.PnL = v.CurrentValueNative.Sub(inv.CostBasis)
	v.PnLPct = decimal.Zero
	if inv.CostBasis.IsPositive() {
		v.PnLPct = v.PnL.Div(inv.CostBasis).Mul(hundred).Round(2)
	}
	return v
}

// toUSD converts a native amount. Unknown currencies pass through.
func toUSD(amount decimal.Decimal, c domain.Currency, rates domain.ExchangeRates) decimal.Decimal {
	switch c {
	case domain.CurrencyBRL:
		return amount.Div(rates.USDBRL)
	case domain.CurrencyEUR:
		return amount.Mul(rates.EURUSD)
	case domain.CurrencyPLN:
		return amount.Div(rates.USDPLN)
	default:
		return amount
	}
}

// Distribution groups the valued portfolio by type. With exactly one type
// requested it lists the holdings of that type instead.
func (s *PortfolioService) Distribution(ctx context.Context, userID string, types []domain.InvestmentType) (*domain.Distribution, error) {
	ctx, span := tracer.Start(ctx, "PortfolioService.Distribution")
	defer span.End()

	p, err := s.Value(ctx, userID)
	if err != nil {
		return nil, err
	}
	return distribute(p, types), nil
}

func distribute(p *domain.Portfolio, types []domain.InvestmentType) *domain.Distribution {
	wanted := map[domain.InvestmentType]bool{}
	for _, t := range types {
		wanted[t] = true
	}

	var holdings []domain.ValuedInvestment
	for _, v := range p.Investments {
		if len(wanted) == 0 || wanted[v.Type] {
			holdings = append(holdings, v)
		}
	}

	d := &domain.Distribution{
		Itemized:      len(wanted) == 1,
		TotalValueUSD: decimal.Zero,
		TotalValueBRL: decimal.Zero,
		Entries:       []domain.DistributionEntry{},
		Degraded:      p.Degraded,
	}

	if d.Itemized {
		for _, v := range holdings {
			label := v.Name
			if v.Symbol != nil && *v.Symbol != "" {
				label = *v.Symbol
			}
			d.Entries = append(d.Entries, domain.DistributionEntry{
				Label:    label,
				Type:     v.Type,
				ValueUSD: v.CurrentValueUSD,
				ValueBRL: v.CurrentValueBRL,
			})
		}
	} else {
		idx := map[domain.InvestmentType]int{}
		for _, v := range holdings {
			i, ok := idx[v.Type]
			if !ok {
				i = len(d.Entries)
				idx[v.Type] = i
				d.Entries = append(d.Entries, domain.DistributionEntry{
					Label: string(v.Type), Type: v.Type, ValueUSD: decimal.Zero, ValueBRL: decimal.Zero,
				})
			}
			d.Entries[i].ValueUSD = d.Entries[i].ValueUSD.Add(v.CurrentValueUSD)
			d.Entries[i].ValueBRL = d.Entries[i].ValueBRL.Add(v.CurrentValueBRL)
		}
	}

	for _, e := range d.Entries {
		d.TotalValueUSD = d.TotalValueUSD.Add(e.ValueUSD)
		d.TotalValueBRL = d.TotalValueBRL.Add(e.ValueBRL)
	}
	// Type buckets are shares of the whole portfolio; itemized holdings are
	// shares of their type.
	base := p.TotalValueUSD
	if d.Itemized {
		base = d.TotalValueUSD
	}
	for i := range d.Entries {
		d.Entries[i].Percentage = decimal.Zero
		if base.IsPositive() {
			d.Entries[i].Percentage = d.Entries[i].ValueUSD.Div(base).Mul(hundred).Round(2)
		}
	}
	sort.SliceStable(d.Entries, func(i, j int) bool {
		return d.Entries[i].ValueUSD.GreaterThan(d.Entries[j].ValueUSD)
	})
	return d
}

// ============================================================
// Holdings CRUD
// ============================================================

func (s *PortfolioService) Create(ctx context.Context, inv *domain.Investment) (*domain.Investment, error) {
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	return s.store.CreateInvestment(ctx, inv)
}

func (s *PortfolioService) Update(ctx context.Context, id, userID string, patch domain.InvestmentPatch) (*domain.Investment, error) {
	if userID == "" {
		return nil, &domain.ErrValidation{Field: "user_id", Message: "required"}
	}
	current, err := s.store.GetInvestment(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	next, err := patch.Apply(*current)
	if err != nil {
		return nil, err
	}
	return s.store.UpdateInvestment(ctx, &next)
}

func (s *PortfolioService) Delete(ctx context.Context, id, userID string) error {
	if userID == "" {
		return &domain.ErrValidation{Field: "user_id", Message: "required"}
	}
	return s.store.DeleteInvestment(ctx, id, userID)
}
