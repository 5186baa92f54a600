// Package history provides access to per-symbol price history databases.
// Each symbol has its own SQLite file under the history directory, with
// an append-only daily_prices table ordered ascending by date.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/rs/zerolog"

	"github.com/mveron/foliotrack/internal/domain"
)

// HistoryDB provides access to historical price data
type HistoryDB struct {
	historyDir string
	log        zerolog.Logger
}

// NewHistoryDB creates a new history database accessor
func NewHistoryDB(historyDir string, log zerolog.Logger) *HistoryDB {
	return &HistoryDB{
		historyDir: historyDir,
		log:        log.With().Str("component", "history_db").Logger(),
	}
}

// GetDailyPrices fetches up to limit daily observations for a symbol,
// ordered ascending by timestamp. A limit of 0 returns the full series.
// A missing history database yields domain.ErrDataUnavailable.
func (h *HistoryDB) GetDailyPrices(symbol string, limit int) ([]domain.PriceObservation, error) {
	db, err := h.openHistoryDB(symbol)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	query := `
		SELECT date, close_price
		FROM daily_prices
		ORDER BY date ASC
	`
	args := []interface{}{}
	if limit > 0 {
		// Take the trailing window, still returned ascending
		query = `
			SELECT date, close_price FROM (
				SELECT date, close_price
				FROM daily_prices
				ORDER BY date DESC
				LIMIT ?
			) ORDER BY date ASC
		`
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily prices: %w", err)
	}
	defer rows.Close()

	var observations []domain.PriceObservation
	for rows.Next() {
		var dateStr string
		var price float64

		if err := rows.Scan(&dateStr, &price); err != nil {
			return nil, fmt.Errorf("failed to scan daily price: %w", err)
		}

		ts, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q in history for %s: %w", dateStr, symbol, err)
		}

		observations = append(observations, domain.PriceObservation{
			Symbol:    symbol,
			Timestamp: ts,
			Price:     price,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily prices: %w", err)
	}

	return observations, nil
}

// LatestPrice returns the most recent observation for a symbol
func (h *HistoryDB) LatestPrice(symbol string) (domain.PriceObservation, error) {
	db, err := h.openHistoryDB(symbol)
	if err != nil {
		return domain.PriceObservation{}, err
	}
	defer db.Close()

	var dateStr string
	var price float64
	err = db.QueryRow(`SELECT date, close_price FROM daily_prices ORDER BY date DESC LIMIT 1`).
		Scan(&dateStr, &price)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PriceObservation{}, domain.ErrDataUnavailable
	}
	if err != nil {
		return domain.PriceObservation{}, fmt.Errorf("failed to query latest price: %w", err)
	}

	ts, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return domain.PriceObservation{}, fmt.Errorf("invalid date %q for %s: %w", dateStr, symbol, err)
	}

	return domain.PriceObservation{Symbol: symbol, Timestamp: ts, Price: price}, nil
}

// AppendPrice records a new observation. The series is append-only:
// observations at or before the latest recorded date are rejected.
func (h *HistoryDB) AppendPrice(obs domain.PriceObservation) error {
	db, err := h.openOrCreateHistoryDB(obs.Symbol)
	if err != nil {
		return err
	}
	defer db.Close()

	dateStr := obs.Timestamp.Format("2006-01-02")

	var latest sql.NullString
	if err := db.QueryRow(`SELECT MAX(date) FROM daily_prices`).Scan(&latest); err != nil {
		return fmt.Errorf("failed to check latest date: %w", err)
	}
	if latest.Valid && dateStr <= latest.String {
		return fmt.Errorf("observation for %s at %s is not after latest %s", obs.Symbol, dateStr, latest.String)
	}

	if _, err := db.Exec(
		`INSERT INTO daily_prices (date, close_price) VALUES (?, ?)`,
		dateStr, obs.Price,
	); err != nil {
		return fmt.Errorf("failed to insert price: %w", err)
	}

	return nil
}

// openHistoryDB opens the history database for a symbol
func (h *HistoryDB) openHistoryDB(symbol string) (*sql.DB, error) {
	dbPath := h.dbPath(symbol)

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("no history for %s: %w", symbol, domain.ErrDataUnavailable)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database for %s: %w", symbol, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping history database for %s: %w", symbol, err)
	}

	return db, nil
}

// openOrCreateHistoryDB opens the history database for a symbol,
// creating the file and schema when missing
func (h *HistoryDB) openOrCreateHistoryDB(symbol string) (*sql.DB, error) {
	if err := os.MkdirAll(h.historyDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", h.dbPath(symbol))
	if err != nil {
		return nil, fmt.Errorf("failed to open history database for %s: %w", symbol, err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS daily_prices (
		date TEXT PRIMARY KEY,
		close_price REAL NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create daily_prices table: %w", err)
	}

	return db, nil
}

// dbPath maps a symbol to its database file.
// Symbol format: BTC-USD -> BTC_USD.db
func (h *HistoryDB) dbPath(symbol string) string {
	dbSymbol := strings.ReplaceAll(symbol, ".", "_")
	dbSymbol = strings.ReplaceAll(dbSymbol, "-", "_")
	return filepath.Join(h.historyDir, dbSymbol+".db")
}
