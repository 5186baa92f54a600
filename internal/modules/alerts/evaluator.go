// Package alerts implements user-defined alert rules and their
// evaluation state machine. An alert is Inactive, Active, or
// ActiveTriggered; the triggered flag is a one-way latch while active.
package alerts

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mveron/foliotrack/internal/domain"
)

// EvaluationContext carries the market state an evaluation runs against.
// Prices and volatilities are keyed by symbol; absent symbols mean no
// usable data.
type EvaluationContext struct {
	Prices       map[string]decimal.Decimal
	Volatilities map[string]float64
}

// Result is the outcome of evaluating one alert. Triggered reports
// whether the condition holds right now; NewlyTriggered is true only on
// the Active → ActiveTriggered transition, and is what callers persist
// and notify on. Repeated evaluation with unchanged inputs never sets
// NewlyTriggered twice.
type Result struct {
	Alert          domain.Alert `json:"alert"`
	Triggered      bool         `json:"triggered"`
	NewlyTriggered bool         `json:"newly_triggered"`
	Reason         string       `json:"reason"`
}

// Evaluator applies alert rules to market state. It is pure: no side
// effects, no retained state between calls.
type Evaluator struct{}

// NewEvaluator creates an alert evaluator
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate checks a single alert against the context. Inactive alerts
// never trigger. An already-latched alert reports Triggered without a
// new transition, regardless of whether the condition still holds.
func (e *Evaluator) Evaluate(alert domain.Alert, ctx EvaluationContext) Result {
	result := Result{Alert: alert}

	if !alert.IsActive {
		result.Reason = "alert inactive"
		return result
	}

	if alert.IsTriggered {
		// Latched: no re-fire, no flap back
		result.Triggered = true
		result.Reason = "already triggered"
		return result
	}

	switch alert.AlertType {
	case domain.AlertPriceAbove, domain.AlertPriceBelow:
		price, ok := ctx.Prices[alert.Symbol]
		if !ok {
			result.Reason = fmt.Sprintf("no price data for %s", alert.Symbol)
			return result
		}

		if alert.AlertType == domain.AlertPriceAbove && price.GreaterThanOrEqual(alert.TargetValue) {
			result.Triggered = true
			result.NewlyTriggered = true
			result.Reason = fmt.Sprintf("%s price %s reached target %s", alert.Symbol, price, alert.TargetValue)
		} else if alert.AlertType == domain.AlertPriceBelow && price.LessThanOrEqual(alert.TargetValue) {
			result.Triggered = true
			result.NewlyTriggered = true
			result.Reason = fmt.Sprintf("%s price %s fell to target %s", alert.Symbol, price, alert.TargetValue)
		} else {
			result.Reason = fmt.Sprintf("%s price %s within target %s", alert.Symbol, price, alert.TargetValue)
		}

	case domain.AlertVolatilityHigh:
		volatility, ok := ctx.Volatilities[alert.Symbol]
		if !ok {
			result.Reason = fmt.Sprintf("no volatility data for %s", alert.Symbol)
			return result
		}

		target, _ := alert.TargetValue.Float64()
		if volatility >= target {
			result.Triggered = true
			result.NewlyTriggered = true
			result.Reason = fmt.Sprintf("%s volatility %.2f%% reached target %.2f%%", alert.Symbol, volatility, target)
		} else {
			result.Reason = fmt.Sprintf("%s volatility %.2f%% below target %.2f%%", alert.Symbol, volatility, target)
		}

	default:
		result.Reason = fmt.Sprintf("unknown alert type %q", alert.AlertType)
	}

	return result
}

// EvaluateAll evaluates every alert against the context, preserving
// input order
func (e *Evaluator) EvaluateAll(alertList []domain.Alert, ctx EvaluationContext) []Result {
	results := make([]Result, 0, len(alertList))
	for _, alert := range alertList {
		results = append(results, e.Evaluate(alert, ctx))
	}
	return results
}
