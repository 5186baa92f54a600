package history

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mveron/foliotrack/internal/domain"
)

func day(s string) time.Time {
	ts, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return ts
}

func seedHistory(t *testing.T, h *HistoryDB, symbol string, prices map[string]float64) {
	t.Helper()
	dates := make([]string, 0, len(prices))
	for d := range prices {
		dates = append(dates, d)
	}
	// AppendPrice enforces ascending order
	for i := 0; i < len(dates); i++ {
		for j := i + 1; j < len(dates); j++ {
			if dates[j] < dates[i] {
				dates[i], dates[j] = dates[j], dates[i]
			}
		}
	}
	for _, d := range dates {
		err := h.AppendPrice(domain.PriceObservation{Symbol: symbol, Timestamp: day(d), Price: prices[d]})
		require.NoError(t, err)
	}
}

func TestHistoryDB_AppendAndRead(t *testing.T) {
	h := NewHistoryDB(t.TempDir(), zerolog.Nop())

	seedHistory(t, h, "AAPL", map[string]float64{
		"2025-01-13": 175.00,
		"2025-01-14": 176.20,
		"2025-01-15": 178.50,
	})

	observations, err := h.GetDailyPrices("AAPL", 0)
	require.NoError(t, err)
	require.Len(t, observations, 3)

	// Ascending order
	assert.True(t, observations[0].Timestamp.Before(observations[1].Timestamp))
	assert.True(t, observations[1].Timestamp.Before(observations[2].Timestamp))
	assert.Equal(t, 178.50, observations[2].Price)
}

func TestHistoryDB_TrailingWindow(t *testing.T) {
	h := NewHistoryDB(t.TempDir(), zerolog.Nop())

	seedHistory(t, h, "MSFT", map[string]float64{
		"2025-01-12": 370.00,
		"2025-01-13": 372.50,
		"2025-01-14": 375.10,
		"2025-01-15": 378.15,
	})

	observations, err := h.GetDailyPrices("MSFT", 2)
	require.NoError(t, err)
	require.Len(t, observations, 2)

	// Trailing window, still ascending
	assert.Equal(t, 375.10, observations[0].Price)
	assert.Equal(t, 378.15, observations[1].Price)
}

func TestHistoryDB_MissingSymbol(t *testing.T) {
	h := NewHistoryDB(t.TempDir(), zerolog.Nop())

	_, err := h.GetDailyPrices("UNKNOWN", 0)
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)

	_, err = h.LatestPrice("UNKNOWN")
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
}

func TestHistoryDB_AppendOnly(t *testing.T) {
	h := NewHistoryDB(t.TempDir(), zerolog.Nop())

	err := h.AppendPrice(domain.PriceObservation{Symbol: "TSLA", Timestamp: day("2025-01-15"), Price: 268.75})
	require.NoError(t, err)

	// Same day rejected
	err = h.AppendPrice(domain.PriceObservation{Symbol: "TSLA", Timestamp: day("2025-01-15"), Price: 270.00})
	assert.Error(t, err)

	// Earlier day rejected
	err = h.AppendPrice(domain.PriceObservation{Symbol: "TSLA", Timestamp: day("2025-01-14"), Price: 265.00})
	assert.Error(t, err)

	observations, err := h.GetDailyPrices("TSLA", 0)
	require.NoError(t, err)
	assert.Len(t, observations, 1)
	assert.Equal(t, 268.75, observations[0].Price)
}

func TestHistoryDB_LatestPrice(t *testing.T) {
	h := NewHistoryDB(t.TempDir(), zerolog.Nop())

	seedHistory(t, h, "BTC-USD", map[string]float64{
		"2025-01-14": 44800.00,
		"2025-01-15": 45250.00,
	})

	latest, err := h.LatestPrice("BTC-USD")
	require.NoError(t, err)
	assert.Equal(t, 45250.00, latest.Price)
	assert.Equal(t, "2025-01-15", latest.Timestamp.Format("2006-01-02"))
}

func TestReturnsCache_ReadThrough(t *testing.T) {
	dir := t.TempDir()
	h := NewHistoryDB(dir, zerolog.Nop())
	cache := NewReturnsCache(dir, h, zerolog.Nop())

	seedHistory(t, h, "AAPL", map[string]float64{
		"2025-01-13": 100.00,
		"2025-01-14": 110.00,
		"2025-01-15": 99.00,
	})

	returns, err := cache.Returns("AAPL")
	require.NoError(t, err)
	require.Len(t, returns, 2)
	assert.InDelta(t, 0.10, returns[0], 1e-9)
	assert.InDelta(t, -0.10, returns[1], 1e-9)

	// Second read hits the cache and must agree
	cached, err := cache.Returns("AAPL")
	require.NoError(t, err)
	assert.Equal(t, returns, cached)
}

func TestReturnsCache_InvalidatedByNewObservation(t *testing.T) {
	dir := t.TempDir()
	h := NewHistoryDB(dir, zerolog.Nop())
	cache := NewReturnsCache(dir, h, zerolog.Nop())

	seedHistory(t, h, "MSFT", map[string]float64{
		"2025-01-13": 100.00,
		"2025-01-14": 105.00,
	})

	first, err := cache.Returns("MSFT")
	require.NoError(t, err)
	require.Len(t, first, 1)

	require.NoError(t, h.AppendPrice(domain.PriceObservation{
		Symbol: "MSFT", Timestamp: day("2025-01-15"), Price: 110.25,
	}))

	second, err := cache.Returns("MSFT")
	require.NoError(t, err)
	assert.Len(t, second, 2)
}

func TestReturnsCache_TooFewObservations(t *testing.T) {
	dir := t.TempDir()
	h := NewHistoryDB(dir, zerolog.Nop())
	cache := NewReturnsCache(dir, h, zerolog.Nop())

	require.NoError(t, h.AppendPrice(domain.PriceObservation{
		Symbol: "NEW", Timestamp: day("2025-01-15"), Price: 10,
	}))

	returns, err := cache.Returns("NEW")
	require.NoError(t, err)
	assert.Empty(t, returns)
}

func TestSeriesBySymbol_MissingReported(t *testing.T) {
	dir := t.TempDir()
	h := NewHistoryDB(dir, zerolog.Nop())
	cache := NewReturnsCache(dir, h, zerolog.Nop())

	seedHistory(t, h, "AAPL", map[string]float64{"2025-01-15": 178.50})

	series, missing := cache.SeriesBySymbol([]string{"AAPL", "GHOST"})
	assert.Contains(t, series, "AAPL")
	assert.Equal(t, []string{"GHOST"}, missing)
}
