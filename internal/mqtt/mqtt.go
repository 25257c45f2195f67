// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/idle-sensor/internal/activity"
)

// TopicActivity is the MQTT topic for idle/resume edges.
const TopicActivity = "home/idle-sensor/activity"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "home/idle-sensor/system"

// Activity event names carried in the payload.
const (
	EventIdle   = "IDLE"
	EventResume = "RESUME"
)

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends an activity transition to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(t activity.Transition) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT", "RELOAD"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload for an activity edge.
type Payload struct {
	Activity ActivityPayload `json:"activity"`
}

// ActivityPayload contains the edge details.
type ActivityPayload struct {
	Timestamp string       `json:"timestamp"`
	Event     string       `json:"event"`
	State     string       `json:"state"`
	Counts    CountPayload `json:"counts"`
}

// CountPayload mirrors activity.Counts.
type CountPayload struct {
	Idle   int `json:"idle"`
	Resume int `json:"resume"`
}

// EventName returns the payload event name for a transition.
func EventName(t activity.Transition) string {
	if t.To == activity.StateIdle {
		return EventIdle
	}
	return EventResume
}

// FormatPayload creates the JSON payload for an activity transition.
func FormatPayload(t activity.Transition) ([]byte, error) {
	payload := Payload{
		Activity: ActivityPayload{
			Timestamp: t.At.UTC().Format(time.RFC3339),
			Event:     EventName(t),
			State:     string(t.To),
			Counts: CountPayload{
				Idle:   t.Count.Idle,
				Resume: t.Count.Resume,
			},
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RELOAD) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	inner := SystemPayloadInner{
		Event:  event.Event,
		Reason: event.Reason,
	}
	if !event.Timestamp.IsZero() {
		inner.Timestamp = event.Timestamp.UTC().Format(time.RFC3339)
	}
	return json.Marshal(SystemPayload{System: inner})
}

// WillPayload is the last-will message the broker publishes on TopicSystem
// when the connection drops without a clean disconnect.
func WillPayload() []byte {
	b, _ := json.Marshal(SystemPayload{System: SystemPayloadInner{Event: "LWT"}})
	return b
}
