package alerts

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/mveron/foliotrack/internal/domain"
)

// Handler handles alert HTTP requests
type Handler struct {
	repo *Repository
	log  zerolog.Logger
}

// NewHandler creates a new alert handler
func NewHandler(repo *Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "alerts").Logger(),
	}
}

// Routes mounts the alert routes
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.HandleList)
	r.Post("/", h.HandleCreate)
	r.Put("/{id}", h.HandleToggle)
	r.Post("/{id}/reset", h.HandleResetTrigger)
	r.Delete("/{id}", h.HandleDelete)
}

// HandleList returns the user's alerts
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	alertList, err := h.repo.GetAllByUser(userID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list alerts")
		h.writeError(w, http.StatusInternalServerError, "failed to list alerts")
		return
	}

	if alertList == nil {
		alertList = []domain.Alert{}
	}
	h.writeJSON(w, http.StatusOK, alertList)
}

// HandleCreate defines a new alert
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	var input CreateAlertInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	alert, err := h.repo.Create(userID, input)
	if errors.Is(err, domain.ErrInvalidTarget) {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("symbol", input.Symbol).Msg("Failed to create alert")
		h.writeError(w, http.StatusInternalServerError, "failed to create alert")
		return
	}

	h.writeJSON(w, http.StatusCreated, alert)
}

// HandleToggle flips the active flag. The trigger latch survives
// deactivation and reactivation.
func (h *Handler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)
	id := chi.URLParam(r, "id")

	active, err := strconv.ParseBool(r.URL.Query().Get("is_active"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "is_active query parameter required")
		return
	}

	err = h.repo.SetActive(userID, id, active)
	if errors.Is(err, domain.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "alert not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("id", id).Msg("Failed to toggle alert")
		h.writeError(w, http.StatusInternalServerError, "failed to toggle alert")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// HandleResetTrigger clears the trigger latch
func (h *Handler) HandleResetTrigger(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)
	id := chi.URLParam(r, "id")

	err := h.repo.ResetTrigger(userID, id)
	if errors.Is(err, domain.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "alert not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("id", id).Msg("Failed to reset alert")
		h.writeError(w, http.StatusInternalServerError, "failed to reset alert")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// HandleDelete removes an alert
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)
	id := chi.URLParam(r, "id")

	err := h.repo.Delete(userID, id)
	if errors.Is(err, domain.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "alert not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("id", id).Msg("Failed to delete alert")
		h.writeError(w, http.StatusInternalServerError, "failed to delete alert")
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
