package portfolio

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

// PositionRepository handles position database operations. Every query
// is scoped to a single user; cross-user reads are not possible through
// this interface.
type PositionRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewPositionRepository creates a new position repository
func NewPositionRepository(db *sql.DB, log zerolog.Logger) *PositionRepository {
	return &PositionRepository{
		db:  db,
		log: log.With().Str("repo", "position").Logger(),
	}
}

const positionColumns = `id, user_id, symbol, name, asset_type, quantity, avg_price, current_price, created_at, updated_at`

// GetAllByUser returns all positions for a user, ordered by symbol
func (r *PositionRepository) GetAllByUser(userID string) ([]domain.Position, error) {
	rows, err := r.db.Query(
		`SELECT `+positionColumns+` FROM positions WHERE user_id = ? ORDER BY symbol`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, pos)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}

	return positions, nil
}

// GetBySymbol returns the user's position in a symbol
func (r *PositionRepository) GetBySymbol(userID, symbol string) (domain.Position, error) {
	row := r.db.QueryRow(
		`SELECT `+positionColumns+` FROM positions WHERE user_id = ? AND symbol = ?`,
		userID, symbol,
	)

	pos, err := scanPosition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Position{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Position{}, err
	}

	return pos, nil
}

// Create inserts a new position. Quantity must be positive and average
// cost non-negative; violations return domain.ErrInvalidQuantity.
func (r *PositionRepository) Create(userID string, input CreatePositionInput) (domain.Position, error) {
	if !input.Quantity.IsPositive() {
		return domain.Position{}, fmt.Errorf("quantity %s: %w", input.Quantity, domain.ErrInvalidQuantity)
	}
	if input.AvgCost.IsNegative() {
		return domain.Position{}, fmt.Errorf("avg price %s: %w", input.AvgCost, domain.ErrInvalidQuantity)
	}
	if !input.AssetType.Valid() {
		return domain.Position{}, fmt.Errorf("unknown asset type %q", input.AssetType)
	}

	now := time.Now().UTC()
	pos := domain.Position{
		ID:           uuid.New().String(),
		UserID:       userID,
		Symbol:       input.Symbol,
		Name:         input.Name,
		AssetType:    input.AssetType,
		Quantity:     input.Quantity,
		AvgCost:      input.AvgCost,
		CurrentPrice: input.AvgCost,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err := r.db.Exec(
		`INSERT INTO positions (`+positionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pos.ID, pos.UserID, pos.Symbol, pos.Name, string(pos.AssetType),
		pos.Quantity.String(), pos.AvgCost.String(), pos.CurrentPrice.String(),
		pos.CreatedAt.Format(time.RFC3339), pos.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return domain.Position{}, fmt.Errorf("failed to insert position: %w", err)
	}

	return pos, nil
}

// UpdatePrice sets the current price for a user's position
func (r *PositionRepository) UpdatePrice(userID, symbol string, price decimal.Decimal) error {
	result, err := r.db.Exec(
		`UPDATE positions SET current_price = ?, updated_at = ? WHERE user_id = ? AND symbol = ?`,
		price.String(), time.Now().UTC().Format(time.RFC3339), userID, symbol,
	)
	if err != nil {
		return fmt.Errorf("failed to update price: %w", err)
	}

	return requireRowAffected(result)
}

// UpdateHolding sets quantity and average cost after a trade
func (r *PositionRepository) UpdateHolding(userID, symbol string, quantity, avgCost decimal.Decimal) error {
	result, err := r.db.Exec(
		`UPDATE positions SET quantity = ?, avg_price = ?, updated_at = ? WHERE user_id = ? AND symbol = ?`,
		quantity.String(), avgCost.String(), time.Now().UTC().Format(time.RFC3339), userID, symbol,
	)
	if err != nil {
		return fmt.Errorf("failed to update holding: %w", err)
	}

	return requireRowAffected(result)
}

// Delete removes a user's position
func (r *PositionRepository) Delete(userID, id string) error {
	result, err := r.db.Exec(`DELETE FROM positions WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete position: %w", err)
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

// rowScanner covers both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPosition(row rowScanner) (domain.Position, error) {
	var pos domain.Position
	var assetType, quantity, avgCost, currentPrice, createdAt, updatedAt string

	err := row.Scan(
		&pos.ID, &pos.UserID, &pos.Symbol, &pos.Name, &assetType,
		&quantity, &avgCost, &currentPrice, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Position{}, err
		}
		return domain.Position{}, fmt.Errorf("failed to scan position: %w", err)
	}

	pos.AssetType = domain.AssetType(assetType)
	if pos.Quantity, err = decimal.NewFromString(quantity); err != nil {
		return domain.Position{}, fmt.Errorf("invalid quantity %q: %w", quantity, err)
	}
	if pos.AvgCost, err = decimal.NewFromString(avgCost); err != nil {
		return domain.Position{}, fmt.Errorf("invalid avg price %q: %w", avgCost, err)
	}
	if pos.CurrentPrice, err = decimal.NewFromString(currentPrice); err != nil {
		return domain.Position{}, fmt.Errorf("invalid current price %q: %w", currentPrice, err)
	}
	if pos.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return domain.Position{}, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	if pos.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return domain.Position{}, fmt.Errorf("invalid updated_at %q: %w", updatedAt, err)
	}

	return pos, nil
}
