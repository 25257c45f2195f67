// Package gpio turns edges on a GPIO input line (a push button or a PIR
// motion sensor) into activity events.
// The real implementation uses the Linux GPIO character device.
package gpio

import (
	"time"

	"github.com/sweeney/idle-sensor/internal/activity"
)

// Options selects and configures the watched line.
type Options struct {
	Chip      string        // e.g. "gpiochip0"
	Pin       int           // line offset (BCM numbering on a Pi)
	Event     string        // activity event name emitted on the active edge
	ActiveLow bool          // true when the line reads 0 while active
	Debounce  time.Duration // kernel debounce period, 0 to disable
}

// DefaultOptions returns options for a button on BCM 17 wired to 3V3.
func DefaultOptions() Options {
	return Options{
		Chip:     "gpiochip0",
		Pin:      17,
		Event:    "mousedown",
		Debounce: 10 * time.Millisecond,
	}
}

// activeEdge reports whether a raw edge means the input became active.
func activeEdge(rising, activeLow bool) bool {
	return rising != activeLow
}

// eventFor returns the activity event for a raw edge, if any.
// Only the active edge counts; releasing a button is not activity.
func eventFor(opts Options, rising bool, at time.Time) (activity.Event, bool) {
	if !activeEdge(rising, opts.ActiveLow) {
		return activity.Event{}, false
	}
	return activity.NewEvent(opts.Event, at), true
}
