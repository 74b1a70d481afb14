// Package sink publishes access-control outcomes to MQTT, with abstraction
// for testing. Publication is best-effort from the state machine's point of
// view: a failed or dropped publish is logged and never propagated back
// into entry processing.
package sink

import (
	"encoding/json"
	"time"

	"github.com/sweeney/dtmf-gate/internal/entry"
)

// Topic is the MQTT topic for PIN decision events.
const Topic = "access/dtmf/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "access/dtmf/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a PIN decision to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(outcome entry.Outcome) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown,
// heartbeat, table reload).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT", "RELOAD"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	Session    string // session identifier
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload is the JSON body published for each PIN decision.
type Payload struct {
	Timestamp string `json:"timestamp"`
	Pin       string `json:"pin"`
	Function  string `json:"function"`
	Valid     bool   `json:"valid"`
}

// FormatPayload creates the JSON payload for a PIN decision.
func FormatPayload(outcome entry.Outcome) ([]byte, error) {
	return json.Marshal(Payload{
		Timestamp: outcome.Timestamp.UTC().Format(time.RFC3339),
		Pin:       outcome.Code,
		Function:  outcome.Label,
		Valid:     outcome.Valid,
	})
}

// SystemPayload is the envelope for system events.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
	Session   string `json:"session,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status
// snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}
	return json.Marshal(SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
			Session:   event.Session,
		},
	})
}
