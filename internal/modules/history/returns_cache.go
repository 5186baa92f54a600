package history

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/mveron/foliotrack/internal/domain"
	"github.com/mveron/foliotrack/pkg/formulas"
)

// cachedReturns is the on-disk msgpack payload for a symbol's return
// series. LatestDate invalidates the entry when new observations arrive.
type cachedReturns struct {
	LatestDate string    `msgpack:"latest_date"`
	Returns    []float64 `msgpack:"returns"`
}

// ReturnsCache is a read-through cache of simple-return series computed
// from price history. Entries are msgpack files keyed by symbol and
// invalidated by the latest observation date.
type ReturnsCache struct {
	cacheDir  string
	historyDB *HistoryDB
	log       zerolog.Logger
}

// NewReturnsCache creates a returns cache rooted at cacheDir
func NewReturnsCache(cacheDir string, historyDB *HistoryDB, log zerolog.Logger) *ReturnsCache {
	return &ReturnsCache{
		cacheDir:  cacheDir,
		historyDB: historyDB,
		log:       log.With().Str("component", "returns_cache").Logger(),
	}
}

// Returns yields the full simple-return series for a symbol, reading
// from cache when the latest observation has not moved. Cache failures
// are logged and fall back to recomputation, never surfaced.
func (c *ReturnsCache) Returns(symbol string) ([]float64, error) {
	observations, err := c.historyDB.GetDailyPrices(symbol, 0)
	if err != nil {
		return nil, err
	}
	if len(observations) < 2 {
		return []float64{}, nil
	}

	latestDate := observations[len(observations)-1].Timestamp.Format("2006-01-02")

	if cached, ok := c.read(symbol, latestDate); ok {
		return cached, nil
	}

	returns := formulas.CalculateReturns(pricesOf(observations))
	c.write(symbol, latestDate, returns)

	return returns, nil
}

func (c *ReturnsCache) read(symbol, latestDate string) ([]float64, bool) {
	data, err := os.ReadFile(c.cachePath(symbol))
	if err != nil {
		return nil, false
	}

	var entry cachedReturns
	if err := msgpack.Unmarshal(data, &entry); err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("Corrupt returns cache entry, recomputing")
		return nil, false
	}

	if entry.LatestDate != latestDate {
		return nil, false
	}

	return entry.Returns, true
}

func (c *ReturnsCache) write(symbol, latestDate string, returns []float64) {
	data, err := msgpack.Marshal(cachedReturns{LatestDate: latestDate, Returns: returns})
	if err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to encode returns cache entry")
		return
	}

	if err := os.MkdirAll(c.cacheDir, 0755); err != nil {
		c.log.Warn().Err(err).Msg("Failed to create cache directory")
		return
	}

	if err := os.WriteFile(c.cachePath(symbol), data, 0644); err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to write returns cache entry")
	}
}

func (c *ReturnsCache) cachePath(symbol string) string {
	name := strings.ReplaceAll(symbol, ".", "_")
	name = strings.ReplaceAll(name, "-", "_")
	return filepath.Join(c.cacheDir, name+".returns.msgpack")
}

// pricesOf extracts the price column from a series
func pricesOf(observations []domain.PriceObservation) []float64 {
	prices := make([]float64, len(observations))
	for i, obs := range observations {
		prices[i] = obs.Price
	}
	return prices
}

// SeriesBySymbol loads ascending price series for each requested symbol.
// Symbols without history are skipped and reported in the second return
// value so callers can log them; they are not errors.
func (c *ReturnsCache) SeriesBySymbol(symbols []string) (map[string][]domain.PriceObservation, []string) {
	series := make(map[string][]domain.PriceObservation, len(symbols))
	var missing []string

	for _, symbol := range symbols {
		observations, err := c.historyDB.GetDailyPrices(symbol, 0)
		if err != nil {
			missing = append(missing, symbol)
			continue
		}
		series[symbol] = observations
	}

	return series, missing
}

// Touch removes the cache entry for a symbol, forcing recomputation on
// the next read. Used after price appends during the same day.
func (c *ReturnsCache) Touch(symbol string) {
	if err := os.Remove(c.cachePath(symbol)); err != nil && !os.IsNotExist(err) {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to drop cache entry")
	}
}
