package portfolio

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mveron/foliotrack/internal/database"
	"github.com/mveron/foliotrack/internal/domain"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })
	return db
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// mockStats returns fixed statistics per symbol
type mockStats struct {
	beta       map[string]float64
	volatility map[string]float64
}

func (m *mockStats) SymbolStats(symbol string) (float64, float64, error) {
	beta, ok := m.beta[symbol]
	if !ok {
		return 0, 0, domain.ErrDataUnavailable
	}
	return beta, m.volatility[symbol], nil
}

// mockPrices returns fixed latest observations per symbol
type mockPrices struct {
	prices map[string]float64
}

func (m *mockPrices) LatestPrice(symbol string) (domain.PriceObservation, error) {
	price, ok := m.prices[symbol]
	if !ok {
		return domain.PriceObservation{}, domain.ErrDataUnavailable
	}
	return domain.PriceObservation{Symbol: symbol, Timestamp: time.Now(), Price: price}, nil
}

func newTestService(t *testing.T, db *database.DB, stats *mockStats, prices *mockPrices) (*Service, *PositionRepository) {
	t.Helper()
	if stats == nil {
		stats = &mockStats{}
	}
	if prices == nil {
		prices = &mockPrices{}
	}
	positionRepo := NewPositionRepository(db.Conn(), zerolog.Nop())
	txRepo := NewTransactionRepository(db.Conn(), zerolog.Nop())
	return NewService(positionRepo, txRepo, stats, prices, zerolog.Nop()), positionRepo
}

func TestPositionRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPositionRepository(db.Conn(), zerolog.Nop())

	created, err := repo.Create("user-1", CreatePositionInput{
		Symbol:    "AAPL",
		Name:      "Apple Inc.",
		AssetType: domain.AssetStock,
		Quantity:  dec("50"),
		AvgCost:   dec("150.25"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	got, err := repo.GetBySymbol("user-1", "AAPL")
	require.NoError(t, err)
	assert.True(t, got.Quantity.Equal(dec("50")))
	assert.True(t, got.AvgCost.Equal(dec("150.25")))
	assert.Equal(t, domain.AssetStock, got.AssetType)
}

func TestPositionRepository_RejectsInvalidInput(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPositionRepository(db.Conn(), zerolog.Nop())

	_, err := repo.Create("user-1", CreatePositionInput{
		Symbol: "AAPL", AssetType: domain.AssetStock,
		Quantity: dec("0"), AvgCost: dec("10"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = repo.Create("user-1", CreatePositionInput{
		Symbol: "AAPL", AssetType: domain.AssetStock,
		Quantity: dec("-5"), AvgCost: dec("10"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = repo.Create("user-1", CreatePositionInput{
		Symbol: "AAPL", AssetType: domain.AssetType("bond"),
		Quantity: dec("5"), AvgCost: dec("10"),
	})
	assert.Error(t, err)
}

func TestPositionRepository_UserScoped(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPositionRepository(db.Conn(), zerolog.Nop())

	_, err := repo.Create("user-1", CreatePositionInput{
		Symbol: "AAPL", AssetType: domain.AssetStock, Quantity: dec("10"), AvgCost: dec("100"),
	})
	require.NoError(t, err)

	_, err = repo.GetBySymbol("user-2", "AAPL")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	positions, err := repo.GetAllByUser("user-2")
	require.NoError(t, err)
	assert.Empty(t, positions)
}

func TestListWithMetrics_WeightsSumTo100(t *testing.T) {
	db := setupTestDB(t)
	svc, repo := newTestService(t, db, &mockStats{
		beta:       map[string]float64{"AAPL": 1.25, "MSFT": 1.08},
		volatility: map[string]float64{"AAPL": 22.5, "MSFT": 19.8},
	}, nil)

	for _, p := range []CreatePositionInput{
		{Symbol: "AAPL", AssetType: domain.AssetStock, Quantity: dec("50"), AvgCost: dec("150.25")},
		{Symbol: "MSFT", AssetType: domain.AssetStock, Quantity: dec("20"), AvgCost: dec("320")},
	} {
		_, err := repo.Create("user-1", p)
		require.NoError(t, err)
	}
	require.NoError(t, repo.UpdatePrice("user-1", "AAPL", dec("178.50")))
	require.NoError(t, repo.UpdatePrice("user-1", "MSFT", dec("378.15")))

	positions, err := svc.ListWithMetrics("user-1")
	require.NoError(t, err)
	require.Len(t, positions, 2)

	sum := 0.0
	for _, pos := range positions {
		sum += pos.Weight
	}
	assert.InDelta(t, 100.0, sum, 1e-6)
}

func TestListWithMetrics_MissingHistoryFallsBackToZero(t *testing.T) {
	db := setupTestDB(t)
	svc, repo := newTestService(t, db, &mockStats{}, nil)

	_, err := repo.Create("user-1", CreatePositionInput{
		Symbol: "NEW", AssetType: domain.AssetCrypto, Quantity: dec("2"), AvgCost: dec("100"),
	})
	require.NoError(t, err)

	positions, err := svc.ListWithMetrics("user-1")
	require.NoError(t, err)
	require.Len(t, positions, 1)

	// No history: statistics fall back to zero, raw value still counted
	assert.Equal(t, 0.0, positions[0].Beta)
	assert.Equal(t, 0.0, positions[0].Volatility)
	assert.True(t, positions[0].MarketValue.Equal(dec("200")))
	assert.InDelta(t, 100.0, positions[0].Weight, 1e-9)
}

func TestApplyTrade_BuyAveragesCost(t *testing.T) {
	db := setupTestDB(t)
	svc, repo := newTestService(t, db, nil, nil)

	_, err := svc.ApplyTrade("user-1", TradeInput{
		Symbol: "AAPL", TxType: domain.TxBuy, Quantity: dec("10"), Price: dec("100"),
	})
	require.NoError(t, err)

	_, err = svc.ApplyTrade("user-1", TradeInput{
		Symbol: "AAPL", TxType: domain.TxBuy, Quantity: dec("10"), Price: dec("200"),
	})
	require.NoError(t, err)

	pos, err := repo.GetBySymbol("user-1", "AAPL")
	require.NoError(t, err)
	assert.True(t, pos.Quantity.Equal(dec("20")))
	avg, _ := pos.AvgCost.Float64()
	assert.InDelta(t, 150.0, avg, 1e-9)
}

func TestApplyTrade_SellReducesAndCloses(t *testing.T) {
	db := setupTestDB(t)
	svc, repo := newTestService(t, db, nil, nil)

	_, err := svc.ApplyTrade("user-1", TradeInput{
		Symbol: "TSLA", TxType: domain.TxBuy, Quantity: dec("25"), Price: dec("245"),
	})
	require.NoError(t, err)

	_, err = svc.ApplyTrade("user-1", TradeInput{
		Symbol: "TSLA", TxType: domain.TxSell, Quantity: dec("10"), Price: dec("260"),
	})
	require.NoError(t, err)

	pos, err := repo.GetBySymbol("user-1", "TSLA")
	require.NoError(t, err)
	assert.True(t, pos.Quantity.Equal(dec("15")))

	_, err = svc.ApplyTrade("user-1", TradeInput{
		Symbol: "TSLA", TxType: domain.TxSell, Quantity: dec("15"), Price: dec("260"),
	})
	require.NoError(t, err)

	_, err = repo.GetBySymbol("user-1", "TSLA")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestApplyTrade_RejectsOversell(t *testing.T) {
	db := setupTestDB(t)
	svc, _ := newTestService(t, db, nil, nil)

	_, err := svc.ApplyTrade("user-1", TradeInput{
		Symbol: "AAPL", TxType: domain.TxBuy, Quantity: dec("10"), Price: dec("100"),
	})
	require.NoError(t, err)

	_, err = svc.ApplyTrade("user-1", TradeInput{
		Symbol: "AAPL", TxType: domain.TxSell, Quantity: dec("11"), Price: dec("100"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestApplyTrade_RecordsTransactions(t *testing.T) {
	db := setupTestDB(t)
	svc, _ := newTestService(t, db, nil, nil)
	txRepo := NewTransactionRepository(db.Conn(), zerolog.Nop())

	_, err := svc.ApplyTrade("user-1", TradeInput{
		Symbol: "AAPL", TxType: domain.TxBuy, Quantity: dec("50"), Price: dec("150.25"),
	})
	require.NoError(t, err)

	transactions, err := txRepo.GetAllByUser("user-1", 0)
	require.NoError(t, err)
	require.Len(t, transactions, 1)
	assert.Equal(t, domain.TxBuy, transactions[0].TxType)
	assert.True(t, transactions[0].Total.Equal(dec("7512.50")))
}

func TestRefreshPrices(t *testing.T) {
	db := setupTestDB(t)
	svc, repo := newTestService(t, db, nil, &mockPrices{
		prices: map[string]float64{"AAPL": 178.50},
	})

	for _, symbol := range []string{"AAPL", "GHOST"} {
		_, err := repo.Create("user-1", CreatePositionInput{
			Symbol: symbol, AssetType: domain.AssetStock, Quantity: dec("10"), AvgCost: dec("100"),
		})
		require.NoError(t, err)
	}

	require.NoError(t, svc.RefreshPrices("user-1"))

	aapl, err := repo.GetBySymbol("user-1", "AAPL")
	require.NoError(t, err)
	price, _ := aapl.CurrentPrice.Float64()
	assert.InDelta(t, 178.50, price, 1e-9)

	// Missing history keeps last known price
	ghost, err := repo.GetBySymbol("user-1", "GHOST")
	require.NoError(t, err)
	assert.True(t, ghost.CurrentPrice.Equal(dec("100")))
}

func TestListWithMetrics_Example(t *testing.T) {
	db := setupTestDB(t)
	svc, repo := newTestService(t, db, &mockStats{}, nil)

	_, err := repo.Create("user-1", CreatePositionInput{
		Symbol: "AAPL", AssetType: domain.AssetStock, Quantity: dec("50"), AvgCost: dec("150.25"),
	})
	require.NoError(t, err)
	require.NoError(t, repo.UpdatePrice("user-1", "AAPL", dec("178.50")))

	positions, err := svc.ListWithMetrics("user-1")
	require.NoError(t, err)
	require.Len(t, positions, 1)

	assert.True(t, positions[0].MarketValue.Equal(dec("8925.00")))
	assert.True(t, positions[0].GainLoss.Equal(dec("1412.50")))
	assert.True(t, math.Abs(positions[0].GainLossPercent-18.80) < 0.01)
}
