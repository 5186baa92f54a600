// Package domain holds the shared data model for the analytics engine.
// All money amounts are decimal and denominated in EUR; rounding happens
// only at presentation time.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssetType classifies a position's instrument
type AssetType string

const (
	AssetStock  AssetType = "stock"
	AssetCrypto AssetType = "crypto"
)

// Valid reports whether the asset type is one of the known values
func (a AssetType) Valid() bool {
	return a == AssetStock || a == AssetCrypto
}

// Position represents a holding in a single instrument
type Position struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	Symbol       string          `json:"symbol"`
	Name         string          `json:"name"`
	AssetType    AssetType       `json:"type"`
	Quantity     decimal.Decimal `json:"quantity"`
	AvgCost      decimal.Decimal `json:"avg_price"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// MarketValue is quantity × current price
func (p Position) MarketValue() decimal.Decimal {
	return p.Quantity.Mul(p.CurrentPrice)
}

// InvestedAmount is quantity × average cost
func (p Position) InvestedAmount() decimal.Decimal {
	return p.Quantity.Mul(p.AvgCost)
}

// GainLoss is market value minus invested amount
func (p Position) GainLoss() decimal.Decimal {
	return p.MarketValue().Sub(p.InvestedAmount())
}

// GainLossPercent is the gain/loss relative to the invested amount, in
// percentage points. Zero invested amount yields 0, not a division fault.
func (p Position) GainLossPercent() float64 {
	invested := p.InvestedAmount()
	if invested.IsZero() {
		return 0
	}
	pct, _ := p.GainLoss().Div(invested).Mul(decimal.NewFromInt(100)).Float64()
	return pct
}

// PriceObservation is a single point in a symbol's price series.
// Series are append-only and ordered ascending by timestamp.
type PriceObservation struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
}

// VolatilityBreakdown holds return standard deviations over the three
// standard windows, in percentage points.
type VolatilityBreakdown struct {
	Daily      float64 `json:"daily"`
	Monthly    float64 `json:"monthly"`
	Historical float64 `json:"historical"`
}

// PortfolioSnapshot is the derived portfolio-level summary. It is
// recomputed on demand from positions and price history and never
// persisted as a source of truth.
type PortfolioSnapshot struct {
	TotalValue         decimal.Decimal     `json:"total_value"`
	TotalInvested      decimal.Decimal     `json:"total_invested"`
	TotalGainLoss      decimal.Decimal     `json:"total_gain_loss"`
	GainLossPercent    float64             `json:"gain_loss_percent"`
	DailyChange        decimal.Decimal     `json:"daily_change"`
	DailyChangePercent float64             `json:"daily_change_percent"`
	Beta               float64             `json:"beta"`
	SharpeRatio        float64             `json:"sharpe_ratio"`
	Volatility         VolatilityBreakdown `json:"volatility"`
	ComputedAt         time.Time           `json:"computed_at"`
}

// CorrelationBand classifies the strength of a correlation coefficient
type CorrelationBand string

const (
	CorrelationStrong   CorrelationBand = "strong"
	CorrelationModerate CorrelationBand = "moderate"
	CorrelationWeak     CorrelationBand = "weak"
)

// CorrelationPair is the Pearson correlation between the return series
// of two held symbols. Pairs are unordered: SymbolA < SymbolB.
type CorrelationPair struct {
	SymbolA     string  `json:"symbol1"`
	SymbolB     string  `json:"symbol2"`
	Correlation float64 `json:"correlation"`
}

// Band classifies the absolute coefficient into strength bands
func (c CorrelationPair) Band() CorrelationBand {
	abs := c.Correlation
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs > 0.7:
		return CorrelationStrong
	case abs >= 0.4:
		return CorrelationModerate
	default:
		return CorrelationWeak
	}
}

// AlertType identifies the condition an alert watches
type AlertType string

const (
	AlertPriceAbove     AlertType = "price_above"
	AlertPriceBelow     AlertType = "price_below"
	AlertVolatilityHigh AlertType = "volatility_high"
)

// Valid reports whether the alert type is one of the known values
func (a AlertType) Valid() bool {
	return a == AlertPriceAbove || a == AlertPriceBelow || a == AlertVolatilityHigh
}

// Alert is a user-defined trigger condition on a symbol. IsTriggered is
// a one-way latch: the evaluator sets it once the condition is met while
// the alert is active, and only an explicit reset clears it.
type Alert struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Symbol      string          `json:"symbol"`
	AlertType   AlertType       `json:"alert_type"`
	TargetValue decimal.Decimal `json:"target_value"`
	IsActive    bool            `json:"is_active"`
	IsTriggered bool            `json:"is_triggered"`
	Notes       string          `json:"notes,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Goal is a user-defined savings target against total portfolio value
type Goal struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	Title        string          `json:"title"`
	TargetAmount decimal.Decimal `json:"target_amount"`
	TargetDate   *time.Time      `json:"target_date,omitempty"`
	IsCompleted  bool            `json:"is_completed"`
	Description  string          `json:"description,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// RecommendationType is the visual category of an advisory message
type RecommendationType string

const (
	RecommendationWarning RecommendationType = "warning"
	RecommendationInfo    RecommendationType = "info"
	RecommendationSuccess RecommendationType = "success"
)

// Priority orders recommendations for presentation
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Rank returns a numeric weight for sorting, highest priority first
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Recommendation is an ephemeral advisory message, recomputed on every
// evaluation and never persisted.
type Recommendation struct {
	Type        RecommendationType `json:"type"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Priority    Priority           `json:"priority"`
}

// TxType identifies the direction of a recorded transaction
type TxType string

const (
	TxBuy  TxType = "buy"
	TxSell TxType = "sell"
)

// Transaction is an executed buy or sell recorded against a position
type Transaction struct {
	ID       string          `json:"id"`
	UserID   string          `json:"user_id"`
	Symbol   string          `json:"symbol"`
	TxType   TxType          `json:"type"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Total    decimal.Decimal `json:"total"`
	Date     time.Time       `json:"date"`
}
