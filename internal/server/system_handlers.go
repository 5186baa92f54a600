package server

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/mveron/foliotrack/internal/config"
	"github.com/mveron/foliotrack/internal/database"
	"github.com/mveron/foliotrack/internal/scheduler"
)

// SystemHandlers handles monitoring endpoints
type SystemHandlers struct {
	log       zerolog.Logger
	cfg       *config.Config
	db        *database.DB
	scheduler *scheduler.Scheduler
	startedAt time.Time
}

// NewSystemHandlers creates the system handlers
func NewSystemHandlers(log zerolog.Logger, cfg *config.Config, db *database.DB, sched *scheduler.Scheduler) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("component", "system_handlers").Logger(),
		cfg:       cfg,
		db:        db,
		scheduler: sched,
		startedAt: time.Now(),
	}
}

// SystemStatusResponse represents the system status response
type SystemStatusResponse struct {
	UptimeSeconds int64    `json:"uptime_seconds"`
	CPUPercent    float64  `json:"cpu_percent"`
	MemPercent    float64  `json:"mem_percent"`
	PositionCount int      `json:"position_count"`
	AlertCount    int      `json:"alert_count"`
	GoalCount     int      `json:"goal_count"`
	Jobs          []string `json:"jobs"`
	DatabasePath  string   `json:"database_path"`
}

// DatabaseStatsResponse represents on-disk database statistics
type DatabaseStatsResponse struct {
	MainDBSizeMB float64 `json:"main_db_size_mb"`
	HistoryDBs   int     `json:"history_dbs"`
	TotalSizeMB  float64 `json:"total_size_mb"`
	LastChecked  string  `json:"last_checked"`
}

// HandleSystemStatus returns process and data statistics
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	response := SystemStatusResponse{
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		PositionCount: h.countRows("positions"),
		AlertCount:    h.countRows("alerts"),
		GoalCount:     h.countRows("goals"),
		Jobs:          h.scheduler.Jobs(),
		DatabasePath:  h.cfg.DatabasePath,
	}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		response.CPUPercent = percents[0]
	} else if err != nil {
		h.log.Warn().Err(err).Msg("Failed to read CPU usage")
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		response.MemPercent = vm.UsedPercent
	} else {
		h.log.Warn().Err(err).Msg("Failed to read memory usage")
	}

	h.writeJSON(w, response)
}

// HandleDatabaseStats returns database file statistics
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	response := DatabaseStatsResponse{
		LastChecked: time.Now().Format(time.RFC3339),
	}

	if info, err := os.Stat(h.cfg.DatabasePath); err == nil {
		response.MainDBSizeMB = float64(info.Size()) / 1024 / 1024
		response.TotalSizeMB += response.MainDBSizeMB
	}

	if entries, err := os.ReadDir(h.cfg.HistoryDir); err == nil {
		for _, entry := range entries {
			if entry.IsDir() || filepath.Ext(entry.Name()) != ".db" {
				continue
			}
			response.HistoryDBs++
			if info, err := entry.Info(); err == nil {
				response.TotalSizeMB += float64(info.Size()) / 1024 / 1024
			}
		}
	}

	h.writeJSON(w, response)
}

// countRows counts the rows of one table, 0 on error
func (h *SystemHandlers) countRows(table string) int {
	var count int
	err := h.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count)
	if err != nil && err != sql.ErrNoRows {
		h.log.Error().Err(err).Str("table", table).Msg("Failed to count rows")
	}
	return count
}

// writeJSON writes a JSON response
func (h *SystemHandlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
