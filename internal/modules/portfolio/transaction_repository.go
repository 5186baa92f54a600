package portfolio

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/mveron/foliotrack/internal/domain"
)

// TransactionRepository records executed buys and sells
type TransactionRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *sql.DB, log zerolog.Logger) *TransactionRepository {
	return &TransactionRepository{
		db:  db,
		log: log.With().Str("repo", "transaction").Logger(),
	}
}

// Create records a transaction
func (r *TransactionRepository) Create(userID string, symbol string, txType domain.TxType, quantity, price decimal.Decimal) (domain.Transaction, error) {
	tx := domain.Transaction{
		ID:       uuid.New().String(),
		UserID:   userID,
		Symbol:   symbol,
		TxType:   txType,
		Quantity: quantity,
		Price:    price,
		Total:    quantity.Mul(price),
		Date:     time.Now().UTC(),
	}

	_, err := r.db.Exec(
		`INSERT INTO transactions (id, user_id, symbol, tx_type, quantity, price, total, date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.UserID, tx.Symbol, string(tx.TxType),
		tx.Quantity.String(), tx.Price.String(), tx.Total.String(),
		tx.Date.Format(time.RFC3339),
	)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("failed to insert transaction: %w", err)
	}

	return tx, nil
}

// GetAllByUser returns a user's transactions, most recent first
func (r *TransactionRepository) GetAllByUser(userID string, limit int) ([]domain.Transaction, error) {
	query := `SELECT id, user_id, symbol, tx_type, quantity, price, total, date
		FROM transactions WHERE user_id = ? ORDER BY date DESC`
	args := []interface{}{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		var txType, quantity, price, total, date string

		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.Symbol, &txType, &quantity, &price, &total, &date); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		tx.TxType = domain.TxType(txType)
		if tx.Quantity, err = decimal.NewFromString(quantity); err != nil {
			return nil, fmt.Errorf("invalid quantity %q: %w", quantity, err)
		}
		if tx.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("invalid price %q: %w", price, err)
		}
		if tx.Total, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("invalid total %q: %w", total, err)
		}
		if tx.Date, err = time.Parse(time.RFC3339, date); err != nil {
			return nil, fmt.Errorf("invalid date %q: %w", date, err)
		}

		transactions = append(transactions, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}
