package alerts

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/mveron/foliotrack/internal/domain"
)

// CreateAlertInput is the payload for defining an alert
type CreateAlertInput struct {
	Symbol      string           `json:"symbol"`
	AlertType   domain.AlertType `json:"alert_type"`
	TargetValue decimal.Decimal  `json:"target_value"`
	Notes       string           `json:"notes"`
}

// Repository handles alert database operations, scoped per user
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new alert repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "alerts").Logger(),
	}
}

const alertColumns = `id, user_id, symbol, alert_type, target_value, is_active, is_triggered, notes, created_at, updated_at`

// Create inserts a new alert. Target values must be positive; the
// engine never sees non-positive targets.
func (r *Repository) Create(userID string, input CreateAlertInput) (domain.Alert, error) {
	if !input.TargetValue.IsPositive() {
		return domain.Alert{}, fmt.Errorf("alert target %s: %w", input.TargetValue, domain.ErrInvalidTarget)
	}
	if !input.AlertType.Valid() {
		return domain.Alert{}, fmt.Errorf("unknown alert type %q", input.AlertType)
	}

	now := time.Now().UTC()
	alert := domain.Alert{
		ID:          uuid.New().String(),
		UserID:      userID,
		Symbol:      input.Symbol,
		AlertType:   input.AlertType,
		TargetValue: input.TargetValue,
		IsActive:    true,
		IsTriggered: false,
		Notes:       input.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := r.db.Exec(
		`INSERT INTO alerts (`+alertColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		alert.ID, alert.UserID, alert.Symbol, string(alert.AlertType),
		alert.TargetValue.String(), boolToInt(alert.IsActive), boolToInt(alert.IsTriggered),
		alert.Notes, alert.CreatedAt.Format(time.RFC3339), alert.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return domain.Alert{}, fmt.Errorf("failed to insert alert: %w", err)
	}

	return alert, nil
}

// GetAllByUser returns all of a user's alerts, newest first
func (r *Repository) GetAllByUser(userID string) ([]domain.Alert, error) {
	rows, err := r.db.Query(
		`SELECT `+alertColumns+` FROM alerts WHERE user_id = ? ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var result []domain.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, alert)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}

	return result, nil
}

// GetActiveUsers returns the distinct user ids that have at least one
// active alert. Used by the evaluation cycle to bound its work.
func (r *Repository) GetActiveUsers() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT user_id FROM alerts WHERE is_active = 1 ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query alert users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		users = append(users, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alert users: %w", err)
	}

	return users, nil
}

// Get returns a single alert by id
func (r *Repository) Get(userID, id string) (domain.Alert, error) {
	row := r.db.QueryRow(`SELECT `+alertColumns+` FROM alerts WHERE user_id = ? AND id = ?`, userID, id)
	alert, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Alert{}, domain.ErrNotFound
	}
	return alert, err
}

// SetActive toggles the alert's active flag. Reactivating does NOT
// clear a previous trigger latch; use ResetTrigger for that.
func (r *Repository) SetActive(userID, id string, active bool) error {
	result, err := r.db.Exec(
		`UPDATE alerts SET is_active = ?, updated_at = ? WHERE user_id = ? AND id = ?`,
		boolToInt(active), time.Now().UTC().Format(time.RFC3339), userID, id,
	)
	if err != nil {
		return fmt.Errorf("failed to toggle alert: %w", err)
	}
	return requireRowAffected(result)
}

// SetTriggered latches the triggered flag. Called by the evaluation
// cycle only on an Active → ActiveTriggered transition.
func (r *Repository) SetTriggered(userID, id string) error {
	result, err := r.db.Exec(
		`UPDATE alerts SET is_triggered = 1, updated_at = ? WHERE user_id = ? AND id = ?`,
		time.Now().UTC().Format(time.RFC3339), userID, id,
	)
	if err != nil {
		return fmt.Errorf("failed to latch alert: %w", err)
	}
	return requireRowAffected(result)
}

// ResetTrigger explicitly clears the trigger latch
func (r *Repository) ResetTrigger(userID, id string) error {
	result, err := r.db.Exec(
		`UPDATE alerts SET is_triggered = 0, updated_at = ? WHERE user_id = ? AND id = ?`,
		time.Now().UTC().Format(time.RFC3339), userID, id,
	)
	if err != nil {
		return fmt.Errorf("failed to reset alert: %w", err)
	}
	return requireRowAffected(result)
}

// Delete removes an alert
func (r *Repository) Delete(userID, id string) error {
	result, err := r.db.Exec(`DELETE FROM alerts WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}
	return requireRowAffected(result)
}

func requireRowAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAlert(row rowScanner) (domain.Alert, error) {
	var alert domain.Alert
	var alertType, targetValue, createdAt, updatedAt string
	var isActive, isTriggered int

	err := row.Scan(
		&alert.ID, &alert.UserID, &alert.Symbol, &alertType, &targetValue,
		&isActive, &isTriggered, &alert.Notes, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Alert{}, err
		}
		return domain.Alert{}, fmt.Errorf("failed to scan alert: %w", err)
	}

	alert.AlertType = domain.AlertType(alertType)
	alert.IsActive = isActive == 1
	alert.IsTriggered = isTriggered == 1
	if alert.TargetValue, err = decimal.NewFromString(targetValue); err != nil {
		return domain.Alert{}, fmt.Errorf("invalid target value %q: %w", targetValue, err)
	}
	if alert.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return domain.Alert{}, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	if alert.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return domain.Alert{}, fmt.Errorf("invalid updated_at %q: %w", updatedAt, err)
	}

	return alert, nil
}
