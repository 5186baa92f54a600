package goals

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/mveron/foliotrack/internal/domain"
)

// PortfolioValueProvider supplies the user's current total portfolio
// value. Implemented by the portfolio service; defined here to avoid an
// import cycle.
type PortfolioValueProvider interface {
	TotalValue(userID string) (decimal.Decimal, error)
}

// Handler handles goal HTTP requests
type Handler struct {
	repo      *Repository
	tracker   *Tracker
	portfolio PortfolioValueProvider
	log       zerolog.Logger
}

// NewHandler creates a new goal handler
func NewHandler(repo *Repository, tracker *Tracker, portfolio PortfolioValueProvider, log zerolog.Logger) *Handler {
	return &Handler{
		repo:      repo,
		tracker:   tracker,
		portfolio: portfolio,
		log:       log.With().Str("handler", "goals").Logger(),
	}
}

// Routes mounts the goal routes
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.HandleList)
	r.Post("/", h.HandleCreate)
	r.Get("/progress", h.HandleProgress)
	r.Put("/{id}", h.HandleToggleComplete)
	r.Delete("/{id}", h.HandleDelete)
}

// HandleList returns the user's goals
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	goalList, err := h.repo.GetAllByUser(userID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list goals")
		h.writeError(w, http.StatusInternalServerError, "failed to list goals")
		return
	}

	if goalList == nil {
		goalList = []domain.Goal{}
	}
	h.writeJSON(w, http.StatusOK, goalList)
}

// HandleProgress returns the user's goals with computed progress
func (h *Handler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	goalList, err := h.repo.GetAllByUser(userID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list goals")
		h.writeError(w, http.StatusInternalServerError, "failed to list goals")
		return
	}

	totalValue, err := h.portfolio.TotalValue(userID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get portfolio value")
		h.writeError(w, http.StatusInternalServerError, "failed to get portfolio value")
		return
	}

	progress, err := h.tracker.ComputeAll(goalList, totalValue, time.Now())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to compute goal progress")
		h.writeError(w, http.StatusInternalServerError, "failed to compute goal progress")
		return
	}

	h.writeJSON(w, http.StatusOK, progress)
}

// HandleCreate defines a new goal
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	var input CreateGoalInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	goal, err := h.repo.Create(userID, input)
	if errors.Is(err, domain.ErrInvalidTarget) {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("title", input.Title).Msg("Failed to create goal")
		h.writeError(w, http.StatusInternalServerError, "failed to create goal")
		return
	}

	h.writeJSON(w, http.StatusCreated, goal)
}

// HandleToggleComplete flips the explicit completion flag
func (h *Handler) HandleToggleComplete(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)
	id := chi.URLParam(r, "id")

	completed, err := strconv.ParseBool(r.URL.Query().Get("is_completed"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "is_completed query parameter required")
		return
	}

	err = h.repo.SetCompleted(userID, id, completed)
	if errors.Is(err, domain.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "goal not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("id", id).Msg("Failed to update goal")
		h.writeError(w, http.StatusInternalServerError, "failed to update goal")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// HandleDelete removes a goal
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)
	id := chi.URLParam(r, "id")

	err := h.repo.Delete(userID, id)
	if errors.Is(err, domain.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "goal not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("id", id).Msg("Failed to delete goal")
		h.writeError(w, http.StatusInternalServerError, "failed to delete goal")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

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
