//go:build linux

package gpio

import (
	"fmt"
	"log"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/idle-sensor/internal/activity"
)

// Watcher emits an activity event on every active edge of one GPIO line.
type Watcher struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewWatcher requests the line and starts delivering events to sink.
// Events are emitted from the gpiocdev event goroutine.
func NewWatcher(opts Options, sink activity.Emitter) (*Watcher, error) {
	chip, err := gpiocdev.NewChip(opts.Chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", opts.Chip, err)
	}

	// Bias the line towards its inactive level so a floating input
	// does not read as activity.
	bias := gpiocdev.WithPullDown
	if opts.ActiveLow {
		bias = gpiocdev.WithPullUp
	}

	handler := func(evt gpiocdev.LineEvent) {
		rising := evt.Type == gpiocdev.LineEventRisingEdge
		if ev, ok := eventFor(opts, rising, time.Now()); ok {
			sink.Emit(ev)
		}
	}

	reqOpts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		bias,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(handler),
	}
	if opts.Debounce > 0 {
		reqOpts = append(reqOpts, gpiocdev.WithDebounce(opts.Debounce))
	}

	line, err := chip.RequestLine(opts.Pin, reqOpts...)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request pin %d: %w", opts.Pin, err)
	}

	log.Printf("gpio: watching %s pin %d as %q", opts.Chip, opts.Pin, opts.Event)
	return &Watcher{chip: chip, line: line}, nil
}

// Close releases GPIO resources.
// Reconfigures the line to input with pull-down (matching Pi boot defaults)
// before closing so external hardware sees a clean state across reboots.
func (w *Watcher) Close() error {
	var errs []error

	if w.line != nil {
		if err := w.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin: %w", err))
		}
		if err := w.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin: %w", err))
		}
	}
	if w.chip != nil {
		if err := w.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
