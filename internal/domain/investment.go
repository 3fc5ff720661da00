package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ============================================================
// Investments
// ============================================================

// InvestmentType classifies a holding.
type InvestmentType string

const (
	InvestmentStock  InvestmentType = "stock"
	InvestmentCrypto InvestmentType = "crypto"
	InvestmentCash   InvestmentType = "cash"
	InvestmentBond   InvestmentType = "bond"
	InvestmentOther  InvestmentType = "other"
)

// IsQuoted reports whether the holding is priced by the market oracle.
func (t InvestmentType) IsQuoted() bool {
	return t == InvestmentStock || t == InvestmentCrypto
}

func (t InvestmentType) valid() bool {
	switch t {
	case InvestmentStock, InvestmentCrypto, InvestmentCash, InvestmentBond, InvestmentOther:
		return true
	}
	return false
}

// Currency is one of the four modeled currencies.
type Currency string

const (
	CurrencyBRL Currency = "BRL"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyPLN Currency = "PLN"
)

func (c Currency) valid() bool {
	switch c {
	case CurrencyBRL, CurrencyUSD, CurrencyEUR, CurrencyPLN:
		return true
	}
	return false
}

// Investment is a persisted holding. Valuation is never stored.
type Investment struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Type      InvestmentType  `json:"type"`
	Symbol    *string         `json:"symbol"`
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	CostBasis decimal.Decimal `json:"cost_basis"`
	Currency  Currency        `json:"currency"`
}

// Validate checks a holding and applies defaults (BRL, zero cost basis).
func (i *Investment) Validate() error {
	if strings.TrimSpace(i.UserID) == "" {
		return &ErrValidation{Field: "user_id", Message: "required"}
	}
	i.Type = InvestmentType(strings.ToLower(string(i.Type)))
	if !i.Type.valid() {
		return &ErrValidation{Field: "type", Message: "must be one of stock, crypto, cash, bond, other"}
	}
	if i.Type.IsQuoted() && (i.Symbol == nil || strings.TrimSpace(*i.Symbol) == "") {
		return &ErrValidation{Field: "symbol", Message: "required for stock and crypto"}
	}
	if strings.TrimSpace(i.Name) == "" {
		return &ErrValidation{Field: "name", Message: "required"}
	}
	if i.Quantity.IsNegative() {
		return &ErrValidation{Field: "quantity", Message: "must not be negative"}
	}
	if i.CostBasis.IsNegative() {
		return &ErrValidation{Field: "cost_basis", Message: "must not be negative"}
	}
	if i.Currency == "" {
		i.Currency = CurrencyBRL
	}
	i.Currency = Currency(strings.ToUpper(string(i.Currency)))
	if !i.Currency.valid() {
		return &ErrValidation{Field: "currency", Message: "must be one of BRL, USD, EUR, PLN"}
	}
	return nil
}

// InvestmentPatch is a partial update of a holding.
type InvestmentPatch struct {
	Type      *InvestmentType  `json:"type,omitempty"`
	Symbol    *string          `json:"symbol,omitempty"`
	Name      *string          `json:"name,omitempty"`
	Quantity  *decimal.Decimal `json:"quantity,omitempty"`
	CostBasis *decimal.Decimal `json:"cost_basis,omitempty"`
	Currency  *Currency        `json:"currency,omitempty"`
}

// Apply returns a copy of inv with the patch applied, validated.
func (p *InvestmentPatch) Apply(inv Investment) (Investment, error) {
	if p.Type != nil {
		inv.Type = *p.Type
	}
	if p.Symbol != nil {
		inv.Symbol = p.Symbol
	}
	if p.Name != nil {
		inv.Name = *p.Name
	}
	if p.Quantity != nil {
		inv.Quantity = *p.Quantity
	}
	if p.CostBasis != nil {
		inv.CostBasis = *p.CostBasis
	}
	if p.Currency != nil {
		inv.Currency = *p.Currency
	}
	if err := inv.Validate(); err != nil {
		return Investment{}, err
	}
	return inv, nil
}

// ============================================================
// Valuation
// ============================================================

// ValuedInvestment is a holding enriched with derived valuation fields.
type ValuedInvestment struct {
	Investment
	CurrentPrice       decimal.Decimal `json:"current_price"`
	CurrentValueNative decimal.Decimal `json:"current_value_native"`
	CurrentValueUSD    decimal.Decimal `json:"current_value_usd"`
	CurrentValueBRL    decimal.Decimal `json:"current_value_brl"`
	PnL                decimal.Decimal `json:"pnl"`
	PnLPct             decimal.Decimal `json:"pnl_pct"`
}

// ExchangeRates used for one valuation. Fallbacks lists the pairs that were
// replaced by fixed constants.
type ExchangeRates struct {
	USDBRL    decimal.Decimal `json:"usd_brl"`
	EURUSD    decimal.Decimal `json:"eur_usd"`
	USDPLN    decimal.Decimal `json:"usd_pln"`
	Fallbacks []string        `json:"fallbacks,omitempty"`
}

// Portfolio is the valuation of every holding of a user.
type Portfolio struct {
	UserID        string             `json:"user_id"`
	TotalValueUSD decimal.Decimal    `json:"total_value_usd"`
	TotalValueBRL decimal.Decimal    `json:"total_value_brl"`
	ExchangeRates ExchangeRates      `json:"exchange_rates"`
	Degraded      bool               `json:"degraded"`
	Investments   []ValuedInvestment `json:"investments"`
}

// DistributionEntry is one bucket (or one holding in itemized mode).
type DistributionEntry struct {
	Label      string          `json:"label"`
	Type       InvestmentType  `json:"type"`
	ValueUSD   decimal.Decimal `json:"value_usd"`
	ValueBRL   decimal.Decimal `json:"value_brl"`
	Percentage decimal.Decimal `json:"percentage"`
}

// Distribution breaks a portfolio down by type or, for a single type, by holding.
type Distribution struct {
	Itemized      bool                `json:"itemized"`
	TotalValueUSD decimal.Decimal     `json:"total_value_usd"`
	TotalValueBRL decimal.Decimal     `json:"total_value_brl"`
	Entries       []DistributionEntry `json:"entries"`
	Degraded      bool                `json:"degraded"`
}
