//go:build linux

package evdev

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/sweeney/idle-sensor/internal/activity"
)

// eventSize is sizeof(struct input_event) for this architecture.
var eventSize = int(unsafe.Sizeof(unix.Timeval{})) + 8

// Device reads one input device and emits activity events.
type Device struct {
	path string
	file *os.File
	now  func() time.Time
}

// Open opens an input device read-only. The descriptor is non-blocking so
// that Close interrupts a pending Run.
func Open(path string) (*Device, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Device{
		path: path,
		file: os.NewFile(uintptr(fd), path),
		now:  time.Now,
	}, nil
}

// Path returns the device path.
func (d *Device) Path() string {
	return d.path
}

// Run reads until the device is closed or fails. A closed device returns nil.
func (d *Device) Run(sink activity.Emitter) error {
	parser := NewParser(eventSize)
	var tr Translator
	buf := make([]byte, eventSize*64)

	for {
		n, err := d.file.Read(buf)
		if n > 0 {
			parser.Feed(buf[:n], func(typ, code uint16, value int32) {
				for _, ev := range tr.Feed(typ, code, value, d.now()) {
					sink.Emit(ev)
				}
			})
		}
		if err != nil {
			if errors.Is(err, os.ErrClosed) {
				return nil
			}
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("read %s: device gone", d.path)
			}
			return fmt.Errorf("read %s: %w", d.path, err)
		}
	}
}

// Close releases the device.
func (d *Device) Close() error {
	return d.file.Close()
}

// Discover returns keyboard and mouse devices listed under /dev/input/by-path.
func Discover() ([]string, error) {
	var out []string
	for _, pattern := range []string{"/dev/input/by-path/*-event-kbd", "/dev/input/by-path/*-event-mouse"} {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", pattern, err)
		}
		out = append(out, matches...)
	}
	return out, nil
}
