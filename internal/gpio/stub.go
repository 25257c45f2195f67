//go:build !linux

package gpio

import (
	"errors"

	"github.com/sweeney/idle-sensor/internal/activity"
)

// Watcher is not available on non-Linux platforms.
type Watcher struct{}

// NewWatcher returns an error on non-Linux platforms.
func NewWatcher(opts Options, sink activity.Emitter) (*Watcher, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Close is not implemented on non-Linux platforms.
func (w *Watcher) Close() error {
	return nil
}
