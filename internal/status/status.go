// Package status provides a thread-safe status tracker for the idle-sensor daemon.
// It is read by the HTTP handlers and by MQTT startup/heartbeat events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/idle-sensor/internal/activity"
)

// NetworkInfo contains network state as reported by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	IdleMs      int64
	ThrottleMs  int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
	WSBroker    string // Websocket broker URL (empty = disabled)
	Events      []string
	Sources     []string // Device paths and GPIO lines feeding the bus
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	State         activity.State
	Enabled       bool
	Counts        activity.Counts
	LastActivity  time.Time
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Idle reports whether the last known state is idle.
func (s Snapshot) Idle() bool {
	return s.State == activity.StateIdle
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update records the controller state after a transition or toggle.
func (t *Tracker) Update(state activity.State, enabled bool, counts activity.Counts, lastActivity time.Time) {
	t.mu.Lock()
	t.snap.State = state
	t.snap.Enabled = enabled
	t.snap.Counts = counts
	t.snap.LastActivity = lastActivity
	t.mu.Unlock()
}

// SetConfig replaces the displayed config after a reload.
func (t *Tracker) SetConfig(cfg Config) {
	t.mu.Lock()
	t.snap.Config = cfg
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Config.Events = append([]string(nil), s.Config.Events...)
	s.Config.Sources = append([]string(nil), s.Config.Sources...)
	s.Now = time.Now()
	return s
}
