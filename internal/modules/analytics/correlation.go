package analytics

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/mveron/foliotrack/internal/domain"
	"github.com/mveron/foliotrack/pkg/formulas"
)

// minOverlappingReturns is the smallest overlap a pair needs before its
// coefficient is considered meaningful
const minOverlappingReturns = 5

// CorrelationEngine computes pairwise Pearson correlations between the
// return series of held symbols. Pairs are unordered and deduplicated:
// each appears once with SymbolA < SymbolB.
type CorrelationEngine struct {
	log zerolog.Logger
}

// NewCorrelationEngine creates a correlation engine
func NewCorrelationEngine(log zerolog.Logger) *CorrelationEngine {
	return &CorrelationEngine{
		log: log.With().Str("component", "correlation").Logger(),
	}
}

// ComputeCorrelations returns the correlation for every symbol pair
// with at least minOverlappingReturns overlapping return observations.
// Series are aligned on their common dates before returns are computed,
// so gaps in one series do not desynchronize the pair. Output is sorted
// by symbol pair.
func (e *CorrelationEngine) ComputeCorrelations(
	historyBySymbol map[string][]domain.PriceObservation,
) []domain.CorrelationPair {
	symbols := make([]string, 0, len(historyBySymbol))
	for symbol := range historyBySymbol {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	pairs := []domain.CorrelationPair{}
	for i := 0; i < len(symbols); i++ {
		for j := i + 1; j < len(symbols); j++ {
			a, b := symbols[i], symbols[j]

			returnsA, returnsB := alignedReturns(historyBySymbol[a], historyBySymbol[b])
			if len(returnsA) < minOverlappingReturns {
				e.log.Debug().
					Str("symbol_a", a).
					Str("symbol_b", b).
					Int("overlap", len(returnsA)).
					Msg("Not enough overlapping returns, pair excluded")
				continue
			}

			pairs = append(pairs, domain.CorrelationPair{
				SymbolA:     a,
				SymbolB:     b,
				Correlation: formulas.Correlation(returnsA, returnsB),
			})
		}
	}

	return pairs
}

// alignedReturns computes both symbols' returns over the dates they
// have in common
func alignedReturns(seriesA, seriesB []domain.PriceObservation) ([]float64, []float64) {
	pricesByDate := make(map[string]float64, len(seriesB))
	for _, obs := range seriesB {
		pricesByDate[obs.Timestamp.Format("2006-01-02")] = obs.Price
	}

	var commonA, commonB []float64
	for _, obs := range seriesA {
		if price, ok := pricesByDate[obs.Timestamp.Format("2006-01-02")]; ok {
			commonA = append(commonA, obs.Price)
			commonB = append(commonB, price)
		}
	}

	return formulas.CalculateReturns(commonA), formulas.CalculateReturns(commonB)
}
