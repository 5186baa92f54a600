package domain

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestPosition_DerivedValues(t *testing.T) {
	pos := Position{
		Symbol:       "AAPL",
		AssetType:    AssetStock,
		Quantity:     dec("50"),
		AvgCost:      dec("150.25"),
		CurrentPrice: dec("178.50"),
	}

	if got := pos.MarketValue(); !got.Equal(dec("8925.00")) {
		t.Errorf("MarketValue = %s, want 8925.00", got)
	}
	if got := pos.InvestedAmount(); !got.Equal(dec("7512.50")) {
		t.Errorf("InvestedAmount = %s, want 7512.50", got)
	}
	if got := pos.GainLoss(); !got.Equal(dec("1412.50")) {
		t.Errorf("GainLoss = %s, want 1412.50", got)
	}
	if got := pos.GainLossPercent(); math.Abs(got-18.80) > 0.01 {
		t.Errorf("GainLossPercent = %f, want ~18.80", got)
	}
}

func TestPosition_GainLossPercent_ZeroInvested(t *testing.T) {
	pos := Position{
		Symbol:       "FREE",
		Quantity:     dec("10"),
		AvgCost:      dec("0"),
		CurrentPrice: dec("5"),
	}

	if got := pos.GainLossPercent(); got != 0 {
		t.Errorf("Expected 0%% for zero invested amount, got %f", got)
	}
}

func TestCorrelationPair_Band(t *testing.T) {
	tests := []struct {
		name        string
		correlation float64
		want        CorrelationBand
	}{
		{"strong positive", 0.78, CorrelationStrong},
		{"strong negative", -0.85, CorrelationStrong},
		{"moderate", 0.51, CorrelationModerate},
		{"moderate boundary", 0.4, CorrelationModerate},
		{"weak", 0.32, CorrelationWeak},
		{"boundary 0.7 is moderate", 0.7, CorrelationModerate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pair := CorrelationPair{SymbolA: "A", SymbolB: "B", Correlation: tt.correlation}
			if got := pair.Band(); got != tt.want {
				t.Errorf("Band(%f) = %s, want %s", tt.correlation, got, tt.want)
			}
		})
	}
}

func TestAssetType_Valid(t *testing.T) {
	if !AssetStock.Valid() || !AssetCrypto.Valid() {
		t.Error("Expected stock and crypto to be valid")
	}
	if AssetType("bond").Valid() {
		t.Error("Expected unknown asset type to be invalid")
	}
}

func TestAlertType_Valid(t *testing.T) {
	for _, at := range []AlertType{AlertPriceAbove, AlertPriceBelow, AlertVolatilityHigh} {
		if !at.Valid() {
			t.Errorf("Expected %s to be valid", at)
		}
	}
	if AlertType("price_equal").Valid() {
		t.Error("Expected unknown alert type to be invalid")
	}
}

func TestPriority_Rank(t *testing.T) {
	if PriorityHigh.Rank() <= PriorityMedium.Rank() || PriorityMedium.Rank() <= PriorityLow.Rank() {
		t.Error("Priority ranks are not strictly ordered")
	}
}
