package analytics

import (
	"github.com/rs/zerolog"

	"github.com/mveron/foliotrack/internal/modules/history"
	"github.com/mveron/foliotrack/pkg/formulas"
)

// SymbolStats computes per-symbol regression statistics against the
// configured benchmark. It satisfies portfolio.SymbolStatsProvider.
type SymbolStats struct {
	cache     *history.ReturnsCache
	benchmark string
	log       zerolog.Logger
}

// NewSymbolStats creates a per-symbol statistics provider
func NewSymbolStats(cache *history.ReturnsCache, benchmark string, log zerolog.Logger) *SymbolStats {
	return &SymbolStats{
		cache:     cache,
		benchmark: benchmark,
		log:       log.With().Str("component", "symbol_stats").Logger(),
	}
}

// SymbolStats returns beta versus the benchmark and annualized
// volatility in percentage points. A symbol without history propagates
// domain.ErrDataUnavailable; a benchmark without history leaves beta 0.
func (s *SymbolStats) SymbolStats(symbol string) (beta, volatility float64, err error) {
	returns, err := s.cache.Returns(symbol)
	if err != nil {
		return 0, 0, err
	}

	volatility = formulas.AnnualizedVolatility(returns) * 100

	benchmarkReturns, err := s.cache.Returns(s.benchmark)
	if err != nil {
		s.log.Debug().Str("benchmark", s.benchmark).Msg("No benchmark history, beta falls back to 0")
		return 0, volatility, nil
	}

	beta = formulas.Beta(tailAlign(returns, benchmarkReturns))
	return beta, volatility, nil
}
