// Package analytics derives portfolio-level statistics from positions
// and price history: snapshots, pairwise correlations, and the facade
// that assembles the full dashboard evaluation.
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/mveron/foliotrack/internal/domain"
	"github.com/mveron/foliotrack/pkg/formulas"
)

const (
	monthlyWindow  = 21
	periodsPerYear = 252
)

// Aggregator computes portfolio snapshots. It is pure: identical inputs
// always produce identical output, so the snapshot can be recomputed on
// demand and never needs to be persisted.
type Aggregator struct {
	riskFreeRate float64
	log          zerolog.Logger
}

// NewAggregator creates a metrics aggregator
func NewAggregator(riskFreeRate float64, log zerolog.Logger) *Aggregator {
	return &Aggregator{
		riskFreeRate: riskFreeRate,
		log:          log.With().Str("component", "aggregator").Logger(),
	}
}

// ComputeSnapshot derives the portfolio-level summary. Money totals are
// exact decimal sums; statistical figures come from the float return
// series. Symbols without enough history contribute their raw value but
// zero to the statistics. Benchmark history drives beta; an empty
// benchmark series leaves beta at 0.
func (a *Aggregator) ComputeSnapshot(
	positions []domain.Position,
	historyBySymbol map[string][]domain.PriceObservation,
	benchmarkHistory []domain.PriceObservation,
	now time.Time,
) domain.PortfolioSnapshot {
	snapshot := domain.PortfolioSnapshot{
		TotalValue:    decimal.Zero,
		TotalInvested: decimal.Zero,
		TotalGainLoss: decimal.Zero,
		ComputedAt:    now,
	}

	for _, pos := range positions {
		snapshot.TotalValue = snapshot.TotalValue.Add(pos.MarketValue())
		snapshot.TotalInvested = snapshot.TotalInvested.Add(pos.InvestedAmount())
	}
	snapshot.TotalGainLoss = snapshot.TotalValue.Sub(snapshot.TotalInvested)
	if snapshot.TotalInvested.IsPositive() {
		pct, _ := snapshot.TotalGainLoss.Div(snapshot.TotalInvested).Mul(decimal.NewFromInt(100)).Float64()
		snapshot.GainLossPercent = pct
	}

	snapshot.DailyChange, snapshot.DailyChangePercent = a.dailyChange(positions, historyBySymbol, snapshot.TotalValue)

	portfolioReturns := a.portfolioReturns(positions, historyBySymbol, snapshot.TotalValue)

	snapshot.Volatility = domain.VolatilityBreakdown{
		Daily:      formulas.VolatilityPercent(portfolioReturns),
		Monthly:    monthlyVolatility(portfolioReturns),
		Historical: formulas.AnnualizedVolatility(portfolioReturns) * 100,
	}

	benchmarkReturns := formulas.CalculateReturns(closesOf(benchmarkHistory))
	snapshot.Beta = formulas.Beta(tailAlign(portfolioReturns, benchmarkReturns))

	if sharpe := formulas.CalculateSharpeRatio(portfolioReturns, a.riskFreeRate, periodsPerYear); sharpe != nil {
		snapshot.SharpeRatio = *sharpe
	}

	return snapshot
}

// dailyChange sums per-position value moves since the previous recorded
// observation. Positions with fewer than two observations contribute 0.
func (a *Aggregator) dailyChange(
	positions []domain.Position,
	historyBySymbol map[string][]domain.PriceObservation,
	totalValue decimal.Decimal,
) (decimal.Decimal, float64) {
	change := decimal.Zero

	for _, pos := range positions {
		series := historyBySymbol[pos.Symbol]
		if len(series) < 2 {
			a.log.Debug().Str("symbol", pos.Symbol).Msg("History too short for daily change, contributes 0")
			continue
		}

		latest := decimal.NewFromFloat(series[len(series)-1].Price)
		previous := decimal.NewFromFloat(series[len(series)-2].Price)
		change = change.Add(pos.Quantity.Mul(latest.Sub(previous)))
	}

	previousValue := totalValue.Sub(change)
	if !previousValue.IsPositive() {
		return change, 0
	}

	pct, _ := change.Div(previousValue).Mul(decimal.NewFromInt(100)).Float64()
	return change, pct
}

// portfolioReturns blends per-symbol return series into a single
// portfolio series, weighted by current market value and tail-aligned
// to the shortest usable series. Symbols are visited in sorted order so
// the result is deterministic.
func (a *Aggregator) portfolioReturns(
	positions []domain.Position,
	historyBySymbol map[string][]domain.PriceObservation,
	totalValue decimal.Decimal,
) []float64 {
	if !totalValue.IsPositive() {
		return nil
	}

	type weighted struct {
		returns []float64
		weight  float64
	}

	symbols := make([]string, 0, len(positions))
	bySymbol := make(map[string]weighted, len(positions))
	shortest := math.MaxInt

	for _, pos := range positions {
		returns := formulas.CalculateReturns(closesOf(historyBySymbol[pos.Symbol]))
		if len(returns) == 0 {
			a.log.Debug().Str("symbol", pos.Symbol).Msg("History too short for returns, excluded from portfolio series")
			continue
		}

		weight, _ := pos.MarketValue().Div(totalValue).Float64()
		symbols = append(symbols, pos.Symbol)
		bySymbol[pos.Symbol] = weighted{returns: returns, weight: weight}
		if len(returns) < shortest {
			shortest = len(returns)
		}
	}

	if len(symbols) == 0 {
		return nil
	}
	sort.Strings(symbols)

	blended := make([]float64, shortest)
	for _, symbol := range symbols {
		entry := bySymbol[symbol]
		tail := entry.returns[len(entry.returns)-shortest:]
		for i, r := range tail {
			blended[i] += entry.weight * r
		}
	}

	return blended
}

// monthlyVolatility is the return stddev over the trailing monthly
// window, scaled to the window horizon
func monthlyVolatility(returns []float64) float64 {
	window := returns
	if len(window) > monthlyWindow {
		window = window[len(window)-monthlyWindow:]
	}
	return formulas.VolatilityPercent(window) * math.Sqrt(monthlyWindow)
}

// tailAlign truncates both series to their common trailing length
func tailAlign(a, b []float64) ([]float64, []float64) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	return a[len(a)-n:], b[len(b)-n:]
}

// closesOf extracts the price column from a series
func closesOf(observations []domain.PriceObservation) []float64 {
	closes := make([]float64, len(observations))
	for i, obs := range observations {
		closes[i] = obs.Price
	}
	return closes
}
