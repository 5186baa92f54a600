package formulas

import (
	"math"
	"testing"
)

func TestCalculateReturns(t *testing.T) {
	prices := []float64{100, 110, 99}
	returns := CalculateReturns(prices)

	if len(returns) != 2 {
		t.Fatalf("Expected 2 returns, got %d", len(returns))
	}
	if math.Abs(returns[0]-0.10) > 1e-9 {
		t.Errorf("Expected first return 0.10, got %f", returns[0])
	}
	if math.Abs(returns[1]-(-0.10)) > 1e-9 {
		t.Errorf("Expected second return -0.10, got %f", returns[1])
	}
}

func TestCalculateReturns_TooFewPrices(t *testing.T) {
	if got := CalculateReturns([]float64{100}); len(got) != 0 {
		t.Errorf("Expected empty returns for single price, got %v", got)
	}
	if got := CalculateReturns(nil); len(got) != 0 {
		t.Errorf("Expected empty returns for nil prices, got %v", got)
	}
}

func TestCalculateReturns_ZeroPrice(t *testing.T) {
	// A zero previous price contributes a zero return, not Inf
	returns := CalculateReturns([]float64{0, 100, 110})
	if len(returns) != 2 {
		t.Fatalf("Expected 2 returns, got %d", len(returns))
	}
	if returns[0] != 0 {
		t.Errorf("Expected 0 return after zero price, got %f", returns[0])
	}
}

func TestVolatilityPercent_InsufficientData(t *testing.T) {
	if got := VolatilityPercent([]float64{0.01}); got != 0 {
		t.Errorf("Expected 0 volatility for single return, got %f", got)
	}
	if got := VolatilityPercent(nil); got != 0 {
		t.Errorf("Expected 0 volatility for nil returns, got %f", got)
	}
}

func TestStdDev_NeverNaN(t *testing.T) {
	cases := [][]float64{nil, {}, {0.5}, {0.5, 0.5, 0.5}}
	for _, c := range cases {
		if got := StdDev(c); math.IsNaN(got) {
			t.Errorf("StdDev(%v) = NaN, want a real number", c)
		}
	}
}

func TestBeta(t *testing.T) {
	// Asset moves exactly 2x the benchmark: beta = 2
	benchmark := []float64{0.01, -0.02, 0.03, 0.01, -0.01}
	asset := make([]float64, len(benchmark))
	for i, r := range benchmark {
		asset[i] = 2 * r
	}

	beta := Beta(asset, benchmark)
	if math.Abs(beta-2.0) > 1e-9 {
		t.Errorf("Expected beta 2.0, got %f", beta)
	}
}

func TestBeta_ZeroBenchmarkVariance(t *testing.T) {
	asset := []float64{0.01, 0.02, -0.01}
	benchmark := []float64{0.01, 0.01, 0.01}

	if got := Beta(asset, benchmark); got != 0 {
		t.Errorf("Expected beta 0 with flat benchmark, got %f", got)
	}
}

func TestBeta_MismatchedSeries(t *testing.T) {
	if got := Beta([]float64{0.01, 0.02}, []float64{0.01}); got != 0 {
		t.Errorf("Expected beta 0 for mismatched series, got %f", got)
	}
}

func TestCorrelation_PerfectPositive(t *testing.T) {
	x := []float64{0.01, 0.02, 0.03, 0.04}
	corr := Correlation(x, x)
	if math.Abs(corr-1.0) > 1e-9 {
		t.Errorf("Expected correlation 1.0, got %f", corr)
	}
}

func TestCorrelation_InsufficientData(t *testing.T) {
	if got := Correlation([]float64{0.01}, []float64{0.02}); got != 0 {
		t.Errorf("Expected correlation 0 for single observation, got %f", got)
	}
}

func TestCalculateSharpeRatio(t *testing.T) {
	returns := []float64{0.01, 0.02, -0.005, 0.015, 0.01}
	sharpe := CalculateSharpeRatio(returns, 0.02, 252)
	if sharpe == nil {
		t.Fatal("Expected sharpe ratio, got nil")
	}
	if math.IsNaN(*sharpe) {
		t.Error("Sharpe ratio is NaN")
	}
}

func TestCalculateSharpeRatio_ZeroStdDev(t *testing.T) {
	returns := []float64{0.01, 0.01, 0.01}
	if got := CalculateSharpeRatio(returns, 0.02, 252); got != nil {
		t.Errorf("Expected nil sharpe for constant returns, got %f", *got)
	}
}

func TestCalculateSharpeRatio_InsufficientData(t *testing.T) {
	if got := CalculateSharpeRatio([]float64{0.01}, 0.02, 252); got != nil {
		t.Errorf("Expected nil sharpe for single return, got %f", *got)
	}
}

func TestAnnualizedVolatility(t *testing.T) {
	returns := []float64{0.01, -0.01, 0.02, -0.02}
	vol := AnnualizedVolatility(returns)
	expected := StdDev(returns) * math.Sqrt(252)
	if math.Abs(vol-expected) > 1e-12 {
		t.Errorf("Expected %f, got %f", expected, vol)
	}
}
