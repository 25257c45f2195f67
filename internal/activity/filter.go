package activity

import "time"

// Accept decides whether ev counts as activity and records it in fs.
// fs is only mutated when the event is accepted.
func Accept(ev Event, fs *FilterState, throttle time.Duration) bool {
	kind := ev.Kind
	if kind == KindUnknown {
		kind = KindFor(ev.Name)
	}
	if kind != KindMovement {
		// Sources stamp events before delivery, so they can arrive out of order
		if ev.At.After(fs.At) {
			fs.At = ev.At
		}
		return true
	}

	if !ev.HasPos {
		return false
	}
	// Pointer did not actually move
	if ev.Pos == fs.Pos {
		return false
	}
	if ev.At.Sub(fs.At) < throttle {
		return false
	}

	fs.Pos = ev.Pos
	fs.At = ev.At
	return true
}
