// Package recommendations derives advisory messages from computed
// portfolio state. Recommendations are ephemeral: regenerated on every
// evaluation and never persisted.
package recommendations

import (
	"fmt"
	"sort"

	"github.com/Rhymond/go-money"
	"github.com/rs/zerolog"

	"github.com/mveron/foliotrack/internal/domain"
	"github.com/mveron/foliotrack/internal/modules/portfolio"
)

// Thresholds configure the rule cut-offs
type Thresholds struct {
	// ConcentrationLimitPct flags any single position above this weight
	ConcentrationLimitPct float64
	// HighVolatilityPct flags any position above this volatility
	HighVolatilityPct float64
}

// DefaultThresholds mirror the advisory defaults
func DefaultThresholds() Thresholds {
	return Thresholds{
		ConcentrationLimitPct: 40,
		HighVolatilityPct:     40,
	}
}

const (
	strongCorrelation = 0.7
	balancedBetaLow   = 0.8
	balancedBetaHigh  = 1.3
	rsiOverbought     = 70
	rsiOversold       = 30
)

// Generator produces recommendations from current metrics. Pure: each
// rule is independent, none suppresses another, and the output depends
// only on the inputs.
type Generator struct {
	thresholds Thresholds
	log        zerolog.Logger
}

// NewGenerator creates a recommendation generator
func NewGenerator(thresholds Thresholds, log zerolog.Logger) *Generator {
	return &Generator{
		thresholds: thresholds,
		log:        log.With().Str("service", "recommendations").Logger(),
	}
}

// Generate runs every rule against the portfolio state. Multiple rules
// may fire at once; the result is sorted by priority (highest first)
// then title for a stable presentation order.
func (g *Generator) Generate(
	snapshot domain.PortfolioSnapshot,
	positions []portfolio.PositionWithMetrics,
	pairs []domain.CorrelationPair,
) []domain.Recommendation {
	result := []domain.Recommendation{}

	result = append(result, g.concentrationRule(positions)...)
	result = append(result, g.volatilityRule(positions)...)
	result = append(result, g.betaRule(snapshot)...)
	result = append(result, g.correlationRule(pairs)...)

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Priority.Rank() != result[j].Priority.Rank() {
			return result[i].Priority.Rank() > result[j].Priority.Rank()
		}
		return result[i].Title < result[j].Title
	})

	return result
}

// concentrationRule warns on any position holding more than the
// configured share of total value
func (g *Generator) concentrationRule(positions []portfolio.PositionWithMetrics) []domain.Recommendation {
	var result []domain.Recommendation
	for _, pos := range positions {
		if pos.Weight > g.thresholds.ConcentrationLimitPct {
			result = append(result, domain.Recommendation{
				Type:     domain.RecommendationWarning,
				Title:    "High concentration",
				Priority: domain.PriorityHigh,
				Description: fmt.Sprintf("%s represents %.1f%% of your portfolio (%s). Consider diversifying.",
					pos.Symbol, pos.Weight, formatEUR(pos.MarketValue.InexactFloat64())),
			})
		}
	}
	return result
}

// volatilityRule flags positions with volatility above the threshold
func (g *Generator) volatilityRule(positions []portfolio.PositionWithMetrics) []domain.Recommendation {
	var result []domain.Recommendation
	for _, pos := range positions {
		if pos.Volatility > g.thresholds.HighVolatilityPct {
			result = append(result, domain.Recommendation{
				Type:     domain.RecommendationInfo,
				Title:    "High volatility",
				Priority: domain.PriorityMedium,
				Description: fmt.Sprintf("%s has a volatility of %.1f%%. Watch this position closely.",
					pos.Symbol, pos.Volatility),
			})
		}
	}
	return result
}

// betaRule reports balanced market exposure when portfolio beta sits in
// the configured band
func (g *Generator) betaRule(snapshot domain.PortfolioSnapshot) []domain.Recommendation {
	if snapshot.Beta < balancedBetaLow || snapshot.Beta > balancedBetaHigh {
		return nil
	}
	return []domain.Recommendation{{
		Type:     domain.RecommendationSuccess,
		Title:    "Balanced market exposure",
		Priority: domain.PriorityLow,
		Description: fmt.Sprintf("Your portfolio beta (%.2f) indicates balanced exposure to the market.",
			snapshot.Beta),
	}}
}

// correlationRule flags strongly correlated pairs
func (g *Generator) correlationRule(pairs []domain.CorrelationPair) []domain.Recommendation {
	var result []domain.Recommendation
	for _, pair := range pairs {
		if pair.Correlation > strongCorrelation {
			result = append(result, domain.Recommendation{
				Type:     domain.RecommendationInfo,
				Title:    "Strong correlation",
				Priority: domain.PriorityMedium,
				Description: fmt.Sprintf("%s and %s are strongly correlated (%.2f). Consider other sectors.",
					pair.SymbolA, pair.SymbolB, pair.Correlation),
			})
		}
	}
	return result
}

// MomentumInput carries a position's RSI reading for the momentum rule
type MomentumInput struct {
	Symbol string
	RSI    float64
}

// GenerateMomentum produces overbought/oversold notices from RSI
// readings. Kept separate from Generate because RSI needs history the
// snapshot path does not always load.
func (g *Generator) GenerateMomentum(inputs []MomentumInput) []domain.Recommendation {
	var result []domain.Recommendation
	for _, input := range inputs {
		switch {
		case input.RSI >= rsiOverbought:
			result = append(result, domain.Recommendation{
				Type:     domain.RecommendationInfo,
				Title:    "Overbought signal",
				Priority: domain.PriorityLow,
				Description: fmt.Sprintf("%s RSI is %.0f, above %d. The recent rally may be overextended.",
					input.Symbol, input.RSI, rsiOverbought),
			})
		case input.RSI > 0 && input.RSI <= rsiOversold:
			result = append(result, domain.Recommendation{
				Type:     domain.RecommendationInfo,
				Title:    "Oversold signal",
				Priority: domain.PriorityLow,
				Description: fmt.Sprintf("%s RSI is %.0f, below %d. Selling pressure may be exhausted.",
					input.Symbol, input.RSI, rsiOversold),
			})
		}
	}
	return result
}

// formatEUR renders an amount in the base currency for display.
// Rounding to two decimals happens only here, at the presentation edge.
func formatEUR(amount float64) string {
	return money.NewFromFloat(amount, money.EUR).Display()
}
