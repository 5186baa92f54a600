package goals

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

// CreateGoalInput is the payload for defining a goal
type CreateGoalInput struct {
	Title        string          `json:"title"`
	TargetAmount decimal.Decimal `json:"target_amount"`
	TargetDate   *time.Time      `json:"target_date,omitempty"`
	Description  string          `json:"description"`
}

// Repository handles goal database operations, scoped per user
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new goal repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "goals").Logger(),
	}
}

const goalColumns = `id, user_id, title, target_amount, target_date, is_completed, description, created_at, updated_at`

// Create inserts a new goal. Target amounts must be positive.
func (r *Repository) Create(userID string, input CreateGoalInput) (domain.Goal, error) {
	if !input.TargetAmount.IsPositive() {
		return domain.Goal{}, fmt.Errorf("goal target %s: %w", input.TargetAmount, domain.ErrInvalidTarget)
	}

	now := time.Now().UTC()
	goal := domain.Goal{
		ID:           uuid.New().String(),
		UserID:       userID,
		Title:        input.Title,
		TargetAmount: input.TargetAmount,
		TargetDate:   input.TargetDate,
		IsCompleted:  false,
		Description:  input.Description,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var targetDate interface{}
	if goal.TargetDate != nil {
		targetDate = goal.TargetDate.UTC().Format(time.RFC3339)
	}

	_, err := r.db.Exec(
		`INSERT INTO goals (`+goalColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		goal.ID, goal.UserID, goal.Title, goal.TargetAmount.String(), targetDate,
		boolToInt(goal.IsCompleted), goal.Description,
		goal.CreatedAt.Format(time.RFC3339), goal.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return domain.Goal{}, fmt.Errorf("failed to insert goal: %w", err)
	}

	return goal, nil
}

// GetAllByUser returns all of a user's goals, oldest first
func (r *Repository) GetAllByUser(userID string) ([]domain.Goal, error) {
	rows, err := r.db.Query(
		`SELECT `+goalColumns+` FROM goals WHERE user_id = ? ORDER BY created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query goals: %w", err)
	}
	defer rows.Close()

	var result []domain.Goal
	for rows.Next() {
		goal, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, goal)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating goals: %w", err)
	}

	return result, nil
}

// Get returns a single goal by id
func (r *Repository) Get(userID, id string) (domain.Goal, error) {
	row := r.db.QueryRow(`SELECT `+goalColumns+` FROM goals WHERE user_id = ? AND id = ?`, userID, id)
	goal, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Goal{}, domain.ErrNotFound
	}
	return goal, err
}

// SetCompleted sets the explicit completion flag. The effective
// completion shown to users is the union of this flag and computed
// progress; un-marking a goal whose value still exceeds target leaves
// it effectively complete.
func (r *Repository) SetCompleted(userID, id string, completed bool) error {
	result, err := r.db.Exec(
		`UPDATE goals SET is_completed = ?, updated_at = ? WHERE user_id = ? AND id = ?`,
		boolToInt(completed), time.Now().UTC().Format(time.RFC3339), userID, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update goal: %w", err)
	}
	return requireRowAffected(result)
}

// Delete removes a goal
func (r *Repository) Delete(userID, id string) error {
	result, err := r.db.Exec(`DELETE FROM goals WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
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

func scanGoal(row rowScanner) (domain.Goal, error) {
	var goal domain.Goal
	var targetAmount, createdAt, updatedAt string
	var targetDate sql.NullString
	var isCompleted int

	err := row.Scan(
		&goal.ID, &goal.UserID, &goal.Title, &targetAmount, &targetDate,
		&isCompleted, &goal.Description, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Goal{}, err
		}
		return domain.Goal{}, fmt.Errorf("failed to scan goal: %w", err)
	}

	goal.IsCompleted = isCompleted == 1
	if goal.TargetAmount, err = decimal.NewFromString(targetAmount); err != nil {
		return domain.Goal{}, fmt.Errorf("invalid target amount %q: %w", targetAmount, err)
	}
	if targetDate.Valid {
		ts, err := time.Parse(time.RFC3339, targetDate.String)
		if err != nil {
			return domain.Goal{}, fmt.Errorf("invalid target date %q: %w", targetDate.String, err)
		}
		goal.TargetDate = &ts
	}
	if goal.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return domain.Goal{}, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	if goal.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return domain.Goal{}, fmt.Errorf("invalid updated_at %q: %w", updatedAt, err)
	}

	return goal, nil
}
