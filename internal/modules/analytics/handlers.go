package analytics

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles analytics HTTP requests
type Handler struct {
	facade *Facade
	log    zerolog.Logger
}

// NewHandler creates a new analytics handler
func NewHandler(facade *Facade, log zerolog.Logger) *Handler {
	return &Handler{
		facade: facade,
		log:    log.With().Str("handler", "analytics").Logger(),
	}
}

// Routes mounts the analytics routes
func (h *Handler) Routes(r chi.Router) {
	r.Get("/summary", h.HandleSummary)
	r.Get("/correlations", h.HandleCorrelations)
	r.Get("/dashboard", h.HandleDashboard)
}

// HandleSummary returns the computed portfolio snapshot
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	snapshot, err := h.facade.Summary(userID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to compute summary")
		h.writeError(w, http.StatusInternalServerError, "failed to compute summary")
		return
	}

	h.writeJSON(w, http.StatusOK, snapshot)
}

// HandleCorrelations returns pairwise correlations for held symbols
func (h *Handler) HandleCorrelations(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	pairs, err := h.facade.Correlations(userID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to compute correlations")
		h.writeError(w, http.StatusInternalServerError, "failed to compute correlations")
		return
	}

	h.writeJSON(w, http.StatusOK, pairs)
}

// HandleDashboard runs the full evaluation and returns everything the
// dashboard renders
func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	dashboard, err := h.facade.Evaluate(userID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to evaluate dashboard")
		h.writeError(w, http.StatusInternalServerError, "failed to evaluate dashboard")
		return
	}

	h.writeJSON(w, http.StatusOK, dashboard)
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
