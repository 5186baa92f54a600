package portfolio

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/mveron/foliotrack/internal/domain"
)

// Handler handles portfolio HTTP requests
type Handler struct {
	positionRepo *PositionRepository
	txRepo       *TransactionRepository
	service      *Service
	log          zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(
	positionRepo *PositionRepository,
	txRepo *TransactionRepository,
	service *Service,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		positionRepo: positionRepo,
		txRepo:       txRepo,
		service:      service,
		log:          log.With().Str("handler", "portfolio").Logger(),
	}
}

// Routes mounts the portfolio routes
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.HandleList)
	r.Post("/", h.HandleCreate)
	r.Delete("/{id}", h.HandleDelete)
	r.Post("/trades", h.HandleTrade)
	r.Post("/refresh", h.HandleRefreshPrices)
	r.Get("/transactions", h.HandleTransactions)
}

// HandleList returns the user's positions with derived metrics
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	positions, err := h.service.ListWithMetrics(userID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list positions")
		h.writeError(w, http.StatusInternalServerError, "failed to list positions")
		return
	}

	h.writeJSON(w, http.StatusOK, positions)
}

// HandleCreate opens a new position
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	var input CreatePositionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pos, err := h.positionRepo.Create(userID, input)
	if errors.Is(err, domain.ErrInvalidQuantity) {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("symbol", input.Symbol).Msg("Failed to create position")
		h.writeError(w, http.StatusInternalServerError, "failed to create position")
		return
	}

	h.writeJSON(w, http.StatusCreated, pos)
}

// HandleDelete removes a position
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)
	id := chi.URLParam(r, "id")

	err := h.positionRepo.Delete(userID, id)
	if errors.Is(err, domain.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "position not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("id", id).Msg("Failed to delete position")
		h.writeError(w, http.StatusInternalServerError, "failed to delete position")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// HandleTrade records a buy or sell
func (h *Handler) HandleTrade(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	var input TradeInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tx, err := h.service.ApplyTrade(userID, input)
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity):
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, domain.ErrNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		h.log.Error().Err(err).Str("symbol", input.Symbol).Msg("Failed to apply trade")
		h.writeError(w, http.StatusInternalServerError, "failed to apply trade")
		return
	}

	h.writeJSON(w, http.StatusCreated, tx)
}

// HandleRefreshPrices pulls latest recorded prices into positions
func (h *Handler) HandleRefreshPrices(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	if err := h.service.RefreshPrices(userID); err != nil {
		h.log.Error().Err(err).Msg("Failed to refresh prices")
		h.writeError(w, http.StatusInternalServerError, "failed to refresh prices")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}

// HandleTransactions returns the user's transaction history
func (h *Handler) HandleTransactions(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	transactions, err := h.txRepo.GetAllByUser(userID, limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get transactions")
		h.writeError(w, http.StatusInternalServerError, "failed to get transactions")
		return
	}

	if transactions == nil {
		transactions = []domain.Transaction{}
	}
	h.writeJSON(w, http.StatusOK, transactions)
}

// userIDFrom extracts the user scope from the request.
// Authentication lives outside this service; the upstream proxy
// supplies the user id.
func userIDFrom(r *http.Request) string {
	if id := r.URL.Query().Get("user_id"); id != "" {
		return id
	}
	return r.Header.Get("X-User-ID")
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
