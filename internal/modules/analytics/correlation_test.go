package analytics

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mveron/foliotrack/internal/domain"
)

func TestComputeCorrelations_PerfectlyCorrelated(t *testing.T) {
	engine := NewCorrelationEngine(zerolog.Nop())

	history := map[string][]domain.PriceObservation{
		"AAPL": series("AAPL", 100, 102, 101, 104, 103, 106),
		"MSFT": series("MSFT", 200, 204, 202, 208, 206, 212),
	}

	pairs := engine.ComputeCorrelations(history)

	require.Len(t, pairs, 1)
	assert.Equal(t, "AAPL", pairs[0].SymbolA)
	assert.Equal(t, "MSFT", pairs[0].SymbolB)
	assert.InDelta(t, 1.0, pairs[0].Correlation, 1e-9)
	assert.Equal(t, domain.CorrelationStrong, pairs[0].Band())
}

func TestComputeCorrelations_InverseSeries(t *testing.T) {
	engine := NewCorrelationEngine(zerolog.Nop())

	up := []float64{100, 110, 121, 133.1, 146.41, 161.051}
	down := []float64{100, 90.909091, 82.644628, 75.131480, 68.301346, 62.092132}

	history := map[string][]domain.PriceObservation{
		"UP":   series("UP", up...),
		"DOWN": series("DOWN", down...),
	}

	pairs := engine.ComputeCorrelations(history)

	require.Len(t, pairs, 1)
	assert.InDelta(t, -1.0, pairs[0].Correlation, 1e-6)
}

func TestComputeCorrelations_TooFewOverlappingReturnsExcluded(t *testing.T) {
	engine := NewCorrelationEngine(zerolog.Nop())

	// 5 common dates give only 4 overlapping returns
	history := map[string][]domain.PriceObservation{
		"AAPL": series("AAPL", 100, 102, 101, 104, 103),
		"MSFT": series("MSFT", 200, 204, 202, 208, 206),
	}

	pairs := engine.ComputeCorrelations(history)

	assert.Empty(t, pairs)
}

func TestComputeCorrelations_AlignsOnCommonDates(t *testing.T) {
	engine := NewCorrelationEngine(zerolog.Nop())

	full := series("AAPL", 100, 102, 101, 104, 103, 106, 105)

	// MSFT is missing day 2; alignment drops that date from both sides
	gapped := []domain.PriceObservation{
		obs("MSFT", 0, 200), obs("MSFT", 1, 204),
		obs("MSFT", 3, 208), obs("MSFT", 4, 206),
		obs("MSFT", 5, 212), obs("MSFT", 6, 210),
	}

	history := map[string][]domain.PriceObservation{
		"AAPL": full,
		"MSFT": gapped,
	}

	pairs := engine.ComputeCorrelations(history)

	require.Len(t, pairs, 1)
	assert.False(t, pairs[0].Correlation == 0, "aligned series should correlate")
}

func TestComputeCorrelations_PairsSortedAndDeduped(t *testing.T) {
	engine := NewCorrelationEngine(zerolog.Nop())

	base := []float64{100, 102, 101, 104, 103, 106}
	history := map[string][]domain.PriceObservation{
		"MSFT": series("MSFT", base...),
		"AAPL": series("AAPL", base...),
		"TSLA": series("TSLA", base...),
	}

	pairs := engine.ComputeCorrelations(history)

	require.Len(t, pairs, 3)
	assert.Equal(t, "AAPL", pairs[0].SymbolA)
	assert.Equal(t, "MSFT", pairs[0].SymbolB)
	assert.Equal(t, "AAPL", pairs[1].SymbolA)
	assert.Equal(t, "TSLA", pairs[1].SymbolB)
	assert.Equal(t, "MSFT", pairs[2].SymbolA)
	assert.Equal(t, "TSLA", pairs[2].SymbolB)

	for _, pair := range pairs {
		assert.Less(t, pair.SymbolA, pair.SymbolB)
	}
}

func TestComputeCorrelations_SingleSymbol(t *testing.T) {
	engine := NewCorrelationEngine(zerolog.Nop())

	history := map[string][]domain.PriceObservation{
		"AAPL": series("AAPL", 100, 102, 101, 104, 103, 106),
	}

	assert.Empty(t, engine.ComputeCorrelations(history))
}
