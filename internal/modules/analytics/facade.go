package analytics

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/mveron/foliotrack/internal/domain"
	"github.com/mveron/foliotrack/internal/events"
	"github.com/mveron/foliotrack/internal/modules/alerts"
	"github.com/mveron/foliotrack/internal/modules/goals"
	"github.com/mveron/foliotrack/internal/modules/history"
	"github.com/mveron/foliotrack/internal/modules/portfolio"
	"github.com/mveron/foliotrack/internal/modules/recommendations"
	"github.com/mveron/foliotrack/pkg/formulas"
)

// rsiLength is the standard lookback for the momentum signal
const rsiLength = 14

// CorrelationView pairs a coefficient with its strength band for
// presentation
type CorrelationView struct {
	domain.CorrelationPair
	Strength domain.CorrelationBand `json:"strength"`
}

// DashboardSnapshot is the full evaluation result for one user:
// everything the dashboard renders in a single response.
type DashboardSnapshot struct {
	Snapshot        domain.PortfolioSnapshot        `json:"snapshot"`
	Positions       []portfolio.PositionWithMetrics `json:"positions"`
	Correlations    []CorrelationView               `json:"correlations"`
	AlertResults    []alerts.Result                 `json:"alert_results"`
	GoalProgress    []goals.Progress                `json:"goal_progress"`
	Recommendations []domain.Recommendation         `json:"recommendations"`
}

// Deps wires the facade's collaborators
type Deps struct {
	Portfolio   *portfolio.Service
	HistoryDB   *history.HistoryDB
	Cache       *history.ReturnsCache
	Stats       *SymbolStats
	Aggregator  *Aggregator
	Correlation *CorrelationEngine
	AlertRepo   *alerts.Repository
	AlertEval   *alerts.Evaluator
	GoalRepo    *goals.Repository
	Tracker     *goals.Tracker
	Recs        *recommendations.Generator
	Events      *events.Manager
	Benchmark   string
}

// Facade orchestrates one full portfolio evaluation: positions, price
// history, snapshot, correlations, alert evaluation, goal progress and
// recommendations. It also implements alerts.ContextBuilder for the
// scheduled check job.
type Facade struct {
	deps Deps
	log  zerolog.Logger
}

// NewFacade creates the analytics facade
func NewFacade(deps Deps, log zerolog.Logger) *Facade {
	return &Facade{
		deps: deps,
		log:  log.With().Str("service", "analytics").Logger(),
	}
}

// Summary computes the portfolio snapshot for one user
func (f *Facade) Summary(userID string) (domain.PortfolioSnapshot, error) {
	positions, err := f.positions(userID)
	if err != nil {
		return domain.PortfolioSnapshot{}, err
	}

	series := f.loadSeries(positions)
	return f.deps.Aggregator.ComputeSnapshot(positions, series, f.benchmarkSeries(), time.Now()), nil
}

// Correlations computes the banded pairwise correlations of a user's
// held symbols
func (f *Facade) Correlations(userID string) ([]CorrelationView, error) {
	positions, err := f.positions(userID)
	if err != nil {
		return nil, err
	}

	return bandPairs(f.deps.Correlation.ComputeCorrelations(f.loadSeries(positions))), nil
}

// Evaluate runs the full evaluation for one user. Alert latches are
// persisted only on the inactive-to-triggered transition; goal and
// snapshot events are emitted as side effects.
func (f *Facade) Evaluate(userID string) (DashboardSnapshot, error) {
	now := time.Now()

	enriched, err := f.deps.Portfolio.ListWithMetrics(userID)
	if err != nil {
		return DashboardSnapshot{}, fmt.Errorf("failed to load positions: %w", err)
	}

	positions := make([]domain.Position, len(enriched))
	for i, p := range enriched {
		positions[i] = p.Position
	}

	series := f.loadSeries(positions)
	snapshot := f.deps.Aggregator.ComputeSnapshot(positions, series, f.benchmarkSeries(), now)
	pairs := f.deps.Correlation.ComputeCorrelations(series)

	alertResults, err := f.evaluateAlerts(userID)
	if err != nil {
		return DashboardSnapshot{}, err
	}

	progress, err := f.trackGoals(userID, snapshot.TotalValue, now)
	if err != nil {
		return DashboardSnapshot{}, err
	}

	recs := f.deps.Recs.Generate(snapshot, enriched, pairs)
	recs = append(recs, f.deps.Recs.GenerateMomentum(f.momentum(series))...)

	f.deps.Events.Emit(events.SnapshotComputed, "analytics", map[string]interface{}{
		"user_id":     userID,
		"total_value": snapshot.TotalValue.String(),
		"positions":   len(positions),
	})

	return DashboardSnapshot{
		Snapshot:        snapshot,
		Positions:       enriched,
		Correlations:    bandPairs(pairs),
		AlertResults:    alertResults,
		GoalProgress:    progress,
		Recommendations: recs,
	}, nil
}

// BuildEvaluationContext implements alerts.ContextBuilder. The context
// covers every symbol the user's alerts reference; symbols without
// recorded data are simply absent from the maps.
func (f *Facade) BuildEvaluationContext(userID string) (alerts.EvaluationContext, error) {
	alertList, err := f.deps.AlertRepo.GetAllByUser(userID)
	if err != nil {
		return alerts.EvaluationContext{}, fmt.Errorf("failed to load alerts: %w", err)
	}

	ctx := alerts.EvaluationContext{
		Prices:       make(map[string]decimal.Decimal),
		Volatilities: make(map[string]float64),
	}

	for _, alert := range alertList {
		if _, done := ctx.Prices[alert.Symbol]; done {
			continue
		}

		latest, err := f.deps.HistoryDB.LatestPrice(alert.Symbol)
		if errors.Is(err, domain.ErrDataUnavailable) {
			f.log.Debug().Str("symbol", alert.Symbol).Msg("No price data for alert symbol")
			continue
		}
		if err != nil {
			return alerts.EvaluationContext{}, fmt.Errorf("failed to load price for %s: %w", alert.Symbol, err)
		}
		ctx.Prices[alert.Symbol] = decimal.NewFromFloat(latest.Price)

		if _, volatility, err := f.deps.Stats.SymbolStats(alert.Symbol); err == nil {
			ctx.Volatilities[alert.Symbol] = volatility
		}
	}

	return ctx, nil
}

// evaluateAlerts runs the evaluator and persists new latches
func (f *Facade) evaluateAlerts(userID string) ([]alerts.Result, error) {
	ctx, err := f.BuildEvaluationContext(userID)
	if err != nil {
		return nil, err
	}

	alertList, err := f.deps.AlertRepo.GetAllByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load alerts: %w", err)
	}

	results := f.deps.AlertEval.EvaluateAll(alertList, ctx)
	for _, result := range results {
		if !result.NewlyTriggered {
			continue
		}

		if err := f.deps.AlertRepo.SetTriggered(userID, result.Alert.ID); err != nil {
			return nil, fmt.Errorf("failed to latch alert %s: %w", result.Alert.ID, err)
		}

		f.deps.Events.Emit(events.AlertTriggered, "analytics", map[string]interface{}{
			"alert_id": result.Alert.ID,
			"user_id":  userID,
			"symbol":   result.Alert.Symbol,
			"reason":   result.Reason,
		})
	}

	return results, nil
}

// trackGoals computes progress and emits an event for each goal that
// reached its target without the user having marked it complete
func (f *Facade) trackGoals(userID string, totalValue decimal.Decimal, now time.Time) ([]goals.Progress, error) {
	goalList, err := f.deps.GoalRepo.GetAllByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load goals: %w", err)
	}

	progress, err := f.deps.Tracker.ComputeAll(goalList, totalValue, now)
	if err != nil {
		return nil, fmt.Errorf("failed to compute goal progress: %w", err)
	}

	for _, p := range progress {
		if p.EffectiveCompleted && !p.Goal.IsCompleted {
			f.deps.Events.Emit(events.GoalCompleted, "analytics", map[string]interface{}{
				"goal_id": p.Goal.ID,
				"user_id": userID,
				"title":   p.Goal.Title,
				"percent": p.Percent,
			})
		}
	}

	return progress, nil
}

// positions loads a user's raw positions through the portfolio service
func (f *Facade) positions(userID string) ([]domain.Position, error) {
	enriched, err := f.deps.Portfolio.ListWithMetrics(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load positions: %w", err)
	}

	positions := make([]domain.Position, len(enriched))
	for i, p := range enriched {
		positions[i] = p.Position
	}
	return positions, nil
}

// loadSeries loads the held symbols' price series, logging the ones
// without history
func (f *Facade) loadSeries(positions []domain.Position) map[string][]domain.PriceObservation {
	symbols := make([]string, 0, len(positions))
	for _, pos := range positions {
		symbols = append(symbols, pos.Symbol)
	}

	series, missing := f.deps.Cache.SeriesBySymbol(symbols)
	if len(missing) > 0 {
		f.log.Debug().Strs("symbols", missing).Msg("No history for some held symbols")
	}
	return series
}

// benchmarkSeries loads the benchmark history, empty when unavailable
func (f *Facade) benchmarkSeries() []domain.PriceObservation {
	series, err := f.deps.HistoryDB.GetDailyPrices(f.deps.Benchmark, 0)
	if errors.Is(err, domain.ErrDataUnavailable) {
		f.log.Warn().Str("benchmark", f.deps.Benchmark).Msg("No benchmark history, beta falls back to 0")
		return nil
	}
	if err != nil {
		f.log.Error().Err(err).Str("benchmark", f.deps.Benchmark).Msg("Failed to load benchmark history")
		return nil
	}
	return series
}

// momentum derives RSI readings from the loaded series, in sorted
// symbol order so the output is deterministic
func (f *Facade) momentum(series map[string][]domain.PriceObservation) []recommendations.MomentumInput {
	symbols := make([]string, 0, len(series))
	for symbol := range series {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	inputs := make([]recommendations.MomentumInput, 0, len(symbols))
	for _, symbol := range symbols {
		rsi := formulas.CalculateRSI(closesOf(series[symbol]), rsiLength)
		if rsi == nil {
			continue
		}
		inputs = append(inputs, recommendations.MomentumInput{Symbol: symbol, RSI: *rsi})
	}
	return inputs
}

// bandPairs attaches strength bands for presentation
func bandPairs(pairs []domain.CorrelationPair) []CorrelationView {
	views := make([]CorrelationView, len(pairs))
	for i, pair := range pairs {
		views[i] = CorrelationView{CorrelationPair: pair, Strength: pair.Band()}
	}
	return views
}
