//go:build !linux

package evdev

import (
	"errors"

	"github.com/sweeney/idle-sensor/internal/activity"
)

// Device is not available on non-Linux platforms.
type Device struct{}

// Open returns an error on non-Linux platforms.
func Open(path string) (*Device, error) {
	return nil, errors.New("evdev: not supported on this platform (requires Linux)")
}

// Path is not implemented on non-Linux platforms.
func (d *Device) Path() string {
	return ""
}

// Run is not implemented on non-Linux platforms.
func (d *Device) Run(sink activity.Emitter) error {
	return errors.New("evdev: not supported")
}

// Close is not implemented on non-Linux platforms.
func (d *Device) Close() error {
	return nil
}

// Discover finds nothing on non-Linux platforms.
func Discover() ([]string, error) {
	return nil, nil
}
