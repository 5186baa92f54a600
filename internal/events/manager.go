// Package events provides typed event emission. Events are written to
// the structured log and fanned out to connected websocket clients.
package events

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

// EventType represents different event types
type EventType string

const (
	AlertTriggered   EventType = "ALERT_TRIGGERED"
	GoalCompleted    EventType = "GOAL_COMPLETED"
	SnapshotComputed EventType = "SNAPSHOT_COMPUTED"
	PriceRecorded    EventType = "PRICE_RECORDED"
	BackupCompleted  EventType = "BACKUP_COMPLETED"
	ErrorOccurred    EventType = "ERROR_OCCURRED"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Module    string                 `json:"module"`
}

// Sink receives emitted events. The websocket hub implements this.
type Sink interface {
	Publish(event Event)
}

// Manager handles event emission and logging
type Manager struct {
	log   zerolog.Logger
	sinks []Sink
}

// NewManager creates a new event manager
func NewManager(log zerolog.Logger, sinks ...Sink) *Manager {
	return &Manager{
		log:   log.With().Str("service", "events").Logger(),
		sinks: sinks,
	}
}

// Emit emits an event
func (m *Manager) Emit(eventType EventType, module string, data map[string]interface{}) {
	event := Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
		Module:    module,
	}

	eventJSON, _ := json.Marshal(event)
	m.log.Info().
		Str("event_type", string(eventType)).
		Str("module", module).
		RawJSON("event", eventJSON).
		Msg("Event emitted")

	for _, sink := range m.sinks {
		sink.Publish(event)
	}
}

// EmitError emits an error event
func (m *Manager) EmitError(module string, err error, context map[string]interface{}) {
	data := map[string]interface{}{"error": err.Error()}
	for k, v := range context {
		data[k] = v
	}
	m.Emit(ErrorOccurred, module, data)
}
