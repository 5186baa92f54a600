package history

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/mveron/foliotrack/internal/domain"
	"github.com/mveron/foliotrack/internal/events"
)

// Handler handles price history HTTP requests. Observations normally
// arrive from an external feed; this is its ingestion surface.
type Handler struct {
	historyDB *HistoryDB
	cache     *ReturnsCache
	events    *events.Manager
	log       zerolog.Logger
}

// NewHandler creates a new history handler
func NewHandler(historyDB *HistoryDB, cache *ReturnsCache, em *events.Manager, log zerolog.Logger) *Handler {
	return &Handler{
		historyDB: historyDB,
		cache:     cache,
		events:    em,
		log:       log.With().Str("handler", "history").Logger(),
	}
}

// Routes mounts the price history routes
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.HandleRecord)
	r.Get("/{symbol}", h.HandleList)
}

// recordPriceInput is the payload for recording an observation
type recordPriceInput struct {
	Symbol string  `json:"symbol"`
	Date   string  `json:"date"` // YYYY-MM-DD
	Price  float64 `json:"price"`
}

// HandleRecord appends a daily observation to a symbol's series
func (h *Handler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	var input recordPriceInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if input.Symbol == "" || input.Price <= 0 {
		h.writeError(w, http.StatusBadRequest, "symbol and positive price are required")
		return
	}

	ts, err := time.Parse("2006-01-02", input.Date)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	obs := domain.PriceObservation{Symbol: input.Symbol, Timestamp: ts, Price: input.Price}
	if err := h.historyDB.AppendPrice(obs); err != nil {
		// the series is append-only; out-of-order dates are a client error
		h.writeError(w, http.StatusConflict, err.Error())
		return
	}

	h.cache.Touch(input.Symbol)
	h.events.Emit(events.PriceRecorded, "history", map[string]interface{}{
		"symbol": input.Symbol,
		"date":   input.Date,
		"price":  input.Price,
	})

	h.writeJSON(w, http.StatusCreated, obs)
}

// HandleList returns a symbol's observations, optionally the trailing
// window via ?limit=
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	observations, err := h.historyDB.GetDailyPrices(symbol, limit)
	if errors.Is(err, domain.ErrDataUnavailable) {
		h.writeError(w, http.StatusNotFound, "no history for symbol")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to get prices")
		h.writeError(w, http.StatusInternalServerError, "failed to get prices")
		return
	}

	h.writeJSON(w, http.StatusOK, observations)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
