package alerts

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mveron/foliotrack/internal/events"
)

// ContextBuilder assembles the market state for one user's evaluation.
// Implemented by the analytics facade; defined here to avoid an import
// cycle.
type ContextBuilder interface {
	BuildEvaluationContext(userID string) (EvaluationContext, error)
}

// CheckJob runs the alert evaluation cycle. For each user with active
// alerts it builds the evaluation context, runs the pure evaluator, and
// persists the trigger latch only on Active → ActiveTriggered
// transitions.
type CheckJob struct {
	repo      *Repository
	evaluator *Evaluator
	builder   ContextBuilder
	events    *events.Manager
	log       zerolog.Logger
}

// NewCheckJob creates the alert evaluation job
func NewCheckJob(repo *Repository, evaluator *Evaluator, builder ContextBuilder, em *events.Manager, log zerolog.Logger) *CheckJob {
	return &CheckJob{
		repo:      repo,
		evaluator: evaluator,
		builder:   builder,
		events:    em,
		log:       log.With().Str("job", "alert_check").Logger(),
	}
}

// Name implements scheduler.Job
func (j *CheckJob) Name() string {
	return "alert_check"
}

// Run implements scheduler.Job
func (j *CheckJob) Run() error {
	users, err := j.repo.GetActiveUsers()
	if err != nil {
		return fmt.Errorf("failed to list users with active alerts: %w", err)
	}

	for _, userID := range users {
		if err := j.runForUser(userID); err != nil {
			// One user's failure does not stop the cycle
			j.log.Error().Err(err).Str("user_id", userID).Msg("Alert cycle failed for user")
			j.events.EmitError("alerts", err, map[string]interface{}{"user_id": userID})
		}
	}

	return nil
}

func (j *CheckJob) runForUser(userID string) error {
	ctx, err := j.builder.BuildEvaluationContext(userID)
	if err != nil {
		return fmt.Errorf("failed to build evaluation context: %w", err)
	}

	alertList, err := j.repo.GetAllByUser(userID)
	if err != nil {
		return fmt.Errorf("failed to get alerts: %w", err)
	}

	for _, result := range j.evaluator.EvaluateAll(alertList, ctx) {
		if !result.NewlyTriggered {
			continue
		}

		if err := j.repo.SetTriggered(userID, result.Alert.ID); err != nil {
			return fmt.Errorf("failed to latch alert %s: %w", result.Alert.ID, err)
		}

		j.log.Info().
			Str("alert_id", result.Alert.ID).
			Str("symbol", result.Alert.Symbol).
			Str("reason", result.Reason).
			Msg("Alert triggered")

		j.events.Emit(events.AlertTriggered, "alerts", map[string]interface{}{
			"alert_id": result.Alert.ID,
			"user_id":  userID,
			"symbol":   result.Alert.Symbol,
			"type":     string(result.Alert.AlertType),
			"reason":   result.Reason,
		})
	}

	return nil
}
