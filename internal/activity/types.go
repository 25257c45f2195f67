// Package activity contains the activity/idle state machine.
// This package has NO external dependencies (no devices, MQTT or OS access).
// Time is injectable through the Clock interface.
package activity

import (
	"errors"
	"fmt"
	"time"
)

// State represents whether the user is currently active or idle.
type State string

const (
	StateActive State = "ACTIVE"
	StateIdle   State = "IDLE"
)

// Kind tags an activity event as pointer movement or anything else.
type Kind int

const (
	// KindUnknown is resolved from the event name by KindFor.
	KindUnknown Kind = iota
	KindOther
	KindMovement
)

// Default configuration values.
const (
	DefaultIdle     = 2000 * time.Millisecond
	DefaultThrottle = 200 * time.Millisecond
)

// DefaultEvents is the set of event names a controller listens to when none
// are configured. Includes the legacy scroll and pointer aliases.
var DefaultEvents = []string{
	"mousemove",
	"keydown",
	"wheel",
	"DOMMouseScroll",
	"mousewheel",
	"mousedown",
	"touchstart",
	"touchmove",
	"MSPointerDown",
	"MSPointerMove",
}

var movementEvents = map[string]bool{
	"mousemove":     true,
	"pointermove":   true,
	"MSPointerMove": true,
}

// KindFor returns the kind for a named event.
func KindFor(name string) Kind {
	if movementEvents[name] {
		return KindMovement
	}
	return KindOther
}

// Point is a pointer position.
type Point struct {
	X float64
	Y float64
}

// Event is a single raw activity signal from an event source.
type Event struct {
	Name   string
	Kind   Kind
	Pos    Point
	HasPos bool // false when the source could not resolve coordinates
	At     time.Time
}

// NewEvent builds an event without coordinates, deriving Kind from name.
func NewEvent(name string, at time.Time) Event {
	return Event{Name: name, Kind: KindFor(name), At: at}
}

// NewMoveEvent builds a movement-capable event at the given position.
func NewMoveEvent(name string, x, y float64, at time.Time) Event {
	return Event{Name: name, Kind: KindFor(name), Pos: Point{X: x, Y: y}, HasPos: true, At: at}
}

// FilterState is the memory of the event filter.
type FilterState struct {
	// Last accepted pointer position
	Pos Point
	// Time of the last accepted event of any kind
	At time.Time
}

// Counts tracks the number of delivered edges since startup.
type Counts struct {
	Idle   int
	Resume int
}

// Transition describes a delivered state change.
type Transition struct {
	At time.Time
	// From is empty for the initial idle announcement.
	From  State
	To    State
	Count Counts
}

// ErrInvalidConfig is returned for configurations that fail validation.
var ErrInvalidConfig = errors.New("invalid activity config")

// Config configures a Controller. Use DefaultConfig and override fields.
type Config struct {
	// Source delivers raw activity. Nil means Default.
	Source EventSource
	// Events are the names bound on Source.
	Events []string
	// Idle is how long without qualifying activity before becoming idle.
	Idle time.Duration
	// Throttle is the minimum spacing between accepted movement events.
	Throttle time.Duration
	Enabled  bool

	OnIdle   func()
	OnResume func()
	// OnTransition, if set, runs after OnIdle/OnResume for every delivered edge.
	OnTransition func(Transition)

	// Clock defaults to the wall clock. Only read by New.
	Clock Clock
}

// DefaultConfig returns an enabled configuration with the default events
// and durations, bound to the Default bus.
func DefaultConfig() Config {
	events := make([]string, len(DefaultEvents))
	copy(events, DefaultEvents)
	return Config{
		Events:   events,
		Idle:     DefaultIdle,
		Throttle: DefaultThrottle,
		Enabled:  true,
	}
}

// Validate checks the invariants of a configuration.
func (c Config) Validate() error {
	if c.Idle < 0 {
		return fmt.Errorf("%w: idle duration must be non-negative, got %v", ErrInvalidConfig, c.Idle)
	}
	if c.Throttle < 0 {
		return fmt.Errorf("%w: throttle must be non-negative, got %v", ErrInvalidConfig, c.Throttle)
	}
	if c.Enabled && len(c.Events) == 0 {
		return fmt.Errorf("%w: no events configured", ErrInvalidConfig)
	}
	return nil
}

func (c Config) source() EventSource {
	if c.Source == nil {
		return Default
	}
	return c.Source
}

func (c Config) clock() Clock {
	if c.Clock == nil {
		return wallClock{}
	}
	return c.Clock
}
