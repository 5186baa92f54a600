// Package goals implements financial goal definitions and progress
// tracking against the current portfolio value.
package goals

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mveron/foliotrack/internal/domain"
)

// Progress is the computed state of a goal against the current
// portfolio value
type Progress struct {
	Goal domain.Goal `json:"goal"`

	// Percent is capped at 100
	Percent float64 `json:"percent"`

	// Remaining is floored at 0
	Remaining decimal.Decimal `json:"remaining"`

	// DaysRemaining is nil when the goal has no target date. Negative
	// values mean the deadline has passed; they are not clamped so
	// callers can render "expired".
	DaysRemaining *int `json:"days_remaining,omitempty"`

	// EffectiveCompleted is the union of the explicit user flag and
	// implicit completion at 100% progress
	EffectiveCompleted bool `json:"effective_completed"`
}

// Tracker computes goal progress. Pure: no persisted state.
type Tracker struct{}

// NewTracker creates a goal tracker
func NewTracker() *Tracker {
	return &Tracker{}
}

// ComputeProgress derives progress for one goal. Goals with a
// non-positive target are rejected with domain.ErrInvalidTarget; the
// repository enforces this at creation, so hitting it here means the
// stored data is corrupt.
func (t *Tracker) ComputeProgress(goal domain.Goal, portfolioValue decimal.Decimal, now time.Time) (Progress, error) {
	if !goal.TargetAmount.IsPositive() {
		return Progress{}, fmt.Errorf("goal %s target %s: %w", goal.ID, goal.TargetAmount, domain.ErrInvalidTarget)
	}

	percent, _ := portfolioValue.Div(goal.TargetAmount).Mul(decimal.NewFromInt(100)).Float64()
	if percent > 100 {
		percent = 100
	}

	remaining := goal.TargetAmount.Sub(portfolioValue)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	progress := Progress{
		Goal:               goal,
		Percent:            percent,
		Remaining:          remaining,
		EffectiveCompleted: goal.IsCompleted || percent >= 100,
	}

	if goal.TargetDate != nil {
		days := int(math.Ceil(goal.TargetDate.Sub(now).Hours() / 24))
		progress.DaysRemaining = &days
	}

	return progress, nil
}

// ComputeAll derives progress for a set of goals, preserving input order
func (t *Tracker) ComputeAll(goalList []domain.Goal, portfolioValue decimal.Decimal, now time.Time) ([]Progress, error) {
	result := make([]Progress, 0, len(goalList))
	for _, goal := range goalList {
		progress, err := t.ComputeProgress(goal, portfolioValue, now)
		if err != nil {
			return nil, err
		}
		result = append(result, progress)
	}
	return result, nil
}
