package portfolio

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/mveron/foliotrack/internal/domain"
)

// SymbolStatsProvider supplies per-symbol regression statistics.
// Defined here to avoid an import cycle with the analytics package.
type SymbolStatsProvider interface {
	// SymbolStats returns beta (vs the configured benchmark) and
	// historical volatility in percentage points for a symbol.
	// Symbols without history return domain.ErrDataUnavailable.
	SymbolStats(symbol string) (beta, volatility float64, err error)
}

// LatestPriceProvider supplies the most recent recorded observation
type LatestPriceProvider interface {
	LatestPrice(symbol string) (domain.PriceObservation, error)
}

// Service orchestrates position operations
type Service struct {
	positionRepo *PositionRepository
	txRepo       *TransactionRepository
	stats        SymbolStatsProvider
	prices       LatestPriceProvider
	log          zerolog.Logger
}

// NewService creates a new portfolio service
func NewService(
	positionRepo *PositionRepository,
	txRepo *TransactionRepository,
	stats SymbolStatsProvider,
	prices LatestPriceProvider,
	log zerolog.Logger,
) *Service {
	return &Service{
		positionRepo: positionRepo,
		txRepo:       txRepo,
		stats:        stats,
		prices:       prices,
		log:          log.With().Str("service", "portfolio").Logger(),
	}
}

// ListWithMetrics returns a user's positions enriched with derived
// values, weights and per-symbol statistics. Symbols without price
// history keep zero statistics but still contribute their raw value;
// weights always sum to 100 when total value is positive.
func (s *Service) ListWithMetrics(userID string) ([]PositionWithMetrics, error) {
	positions, err := s.positionRepo.GetAllByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get positions: %w", err)
	}

	totalValue := decimal.Zero
	for _, pos := range positions {
		totalValue = totalValue.Add(pos.MarketValue())
	}

	result := make([]PositionWithMetrics, 0, len(positions))
	for _, pos := range positions {
		m := PositionWithMetrics{
			Position:        pos,
			MarketValue:     pos.MarketValue(),
			Invested:        pos.InvestedAmount(),
			GainLoss:        pos.GainLoss(),
			GainLossPercent: pos.GainLossPercent(),
		}

		if totalValue.IsPositive() {
			weight, _ := pos.MarketValue().Div(totalValue).Mul(decimal.NewFromInt(100)).Float64()
			m.Weight = weight
		}

		beta, volatility, err := s.stats.SymbolStats(pos.Symbol)
		switch {
		case errors.Is(err, domain.ErrDataUnavailable):
			s.log.Debug().Str("symbol", pos.Symbol).Msg("No history for symbol, statistics fall back to 0")
		case err != nil:
			return nil, fmt.Errorf("failed to compute stats for %s: %w", pos.Symbol, err)
		default:
			m.Beta = beta
			m.Volatility = volatility
		}

		result = append(result, m)
	}

	return result, nil
}

// TotalValue sums the market value of a user's positions
func (s *Service) TotalValue(userID string) (decimal.Decimal, error) {
	positions, err := s.positionRepo.GetAllByUser(userID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get positions: %w", err)
	}

	total := decimal.Zero
	for _, pos := range positions {
		total = total.Add(pos.MarketValue())
	}

	return total, nil
}

// ApplyTrade records a buy or sell and adjusts the position.
// Buys average the cost basis; sells reduce quantity and close the
// position when it reaches zero. Overselling is rejected.
func (s *Service) ApplyTrade(userID string, input TradeInput) (domain.Transaction, error) {
	if !input.Quantity.IsPositive() {
		return domain.Transaction{}, fmt.Errorf("trade quantity %s: %w", input.Quantity, domain.ErrInvalidQuantity)
	}
	if input.Price.IsNegative() {
		return domain.Transaction{}, fmt.Errorf("trade price %s: %w", input.Price, domain.ErrInvalidQuantity)
	}

	pos, err := s.positionRepo.GetBySymbol(userID, input.Symbol)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.Transaction{}, err
	}
	held := !errors.Is(err, domain.ErrNotFound)

	switch input.TxType {
	case domain.TxBuy:
		if !held {
			if _, err := s.positionRepo.Create(userID, CreatePositionInput{
				Symbol:    input.Symbol,
				Name:      input.Symbol,
				AssetType: domain.AssetStock,
				Quantity:  input.Quantity,
				AvgCost:   input.Price,
			}); err != nil {
				return domain.Transaction{}, err
			}
			break
		}

		// Weighted-average the cost basis
		newQuantity := pos.Quantity.Add(input.Quantity)
		newCost := pos.InvestedAmount().
			Add(input.Quantity.Mul(input.Price)).
			Div(newQuantity)
		if err := s.positionRepo.UpdateHolding(userID, input.Symbol, newQuantity, newCost); err != nil {
			return domain.Transaction{}, err
		}

	case domain.TxSell:
		if !held {
			return domain.Transaction{}, fmt.Errorf("sell of unheld symbol %s: %w", input.Symbol, domain.ErrNotFound)
		}
		if input.Quantity.GreaterThan(pos.Quantity) {
			return domain.Transaction{}, fmt.Errorf("sell %s exceeds held %s: %w",
				input.Quantity, pos.Quantity, domain.ErrInvalidQuantity)
		}

		newQuantity := pos.Quantity.Sub(input.Quantity)
		if newQuantity.IsZero() {
			if err := s.positionRepo.Delete(userID, pos.ID); err != nil {
				return domain.Transaction{}, err
			}
		} else if err := s.positionRepo.UpdateHolding(userID, input.Symbol, newQuantity, pos.AvgCost); err != nil {
			return domain.Transaction{}, err
		}

	default:
		return domain.Transaction{}, fmt.Errorf("unknown transaction type %q", input.TxType)
	}

	return s.txRepo.Create(userID, input.Symbol, input.TxType, input.Quantity, input.Price)
}

// RefreshPrices updates each position's current price from the latest
// recorded observation. Symbols without history are skipped and logged.
func (s *Service) RefreshPrices(userID string) error {
	positions, err := s.positionRepo.GetAllByUser(userID)
	if err != nil {
		return fmt.Errorf("failed to get positions: %w", err)
	}

	for _, pos := range positions {
		latest, err := s.prices.LatestPrice(pos.Symbol)
		if errors.Is(err, domain.ErrDataUnavailable) {
			s.log.Warn().Str("symbol", pos.Symbol).Msg("No recorded price, keeping last known")
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to get latest price for %s: %w", pos.Symbol, err)
		}

		price := decimal.NewFromFloat(latest.Price)
		if err := s.positionRepo.UpdatePrice(userID, pos.Symbol, price); err != nil {
			return err
		}
	}

	return nil
}
