package portfolio

import (
	"github.com/shopspring/decimal"

	"github.com/mveron/foliotrack/internal/domain"
)

// PositionWithMetrics combines a position with its derived per-position
// metrics, computed on demand for presentation.
type PositionWithMetrics struct {
	domain.Position

	MarketValue     decimal.Decimal `json:"total_value"`
	Invested        decimal.Decimal `json:"invested"`
	GainLoss        decimal.Decimal `json:"gain_loss"`
	GainLossPercent float64         `json:"gain_loss_percent"`
	Weight          float64         `json:"weight"`
	Beta            float64         `json:"beta"`
	Volatility      float64         `json:"volatility"`
}

// CreatePositionInput is the payload for opening a position
type CreatePositionInput struct {
	Symbol    string           `json:"symbol"`
	Name      string           `json:"name"`
	AssetType domain.AssetType `json:"type"`
	Quantity  decimal.Decimal  `json:"quantity"`
	AvgCost   decimal.Decimal  `json:"avg_price"`
}

// TradeInput is the payload for recording a buy or sell against an
// existing position
type TradeInput struct {
	Symbol   string          `json:"symbol"`
	TxType   domain.TxType   `json:"type"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}
