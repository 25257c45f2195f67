// Package evdev turns Linux input devices (/dev/input/event*) into activity
// events. Decoding is platform independent; opening devices requires Linux.
package evdev

import (
	"encoding/binary"
	"time"

	"github.com/sweeney/idle-sensor/internal/activity"
)

// Linux input event types
const (
	evSyn = 0x00
	evKey = 0x01
	evRel = 0x02
	evAbs = 0x03
)

// SYN codes
const synReport = 0x00

// REL axes
const (
	relX           = 0x00
	relY           = 0x01
	relHWheel      = 0x06
	relWheel       = 0x08
	relWheelHiRes  = 0x0b
	relHWheelHiRes = 0x0c
)

// ABS axes
const (
	absX           = 0x00
	absY           = 0x01
	absMTPositionX = 0x35
	absMTPositionY = 0x36
)

// Keys and buttons
const (
	btnMisc   = 0x100
	btnLeft   = 0x110
	btnTask   = 0x117
	btnTouch  = 0x14a
	btnDigiHi = 0x15f
)

// Key values
const (
	keyRelease = 0
	keyPress   = 1
	keyRepeat  = 2
)

// Parser splits a byte stream into input_event records. The record size
// depends on the kernel's timeval size (16 bytes on 32-bit, 24 on 64-bit).
type Parser struct {
	size int
	buf  []byte
}

// NewParser creates a parser for records of the given size.
func NewParser(size int) *Parser {
	return &Parser{size: size}
}

// Feed appends chunk and calls cb for every complete record.
// Partial records are kept until the next call.
func (p *Parser) Feed(chunk []byte, cb func(typ, code uint16, value int32)) {
	p.buf = append(p.buf, chunk...)
	hdr := p.size - 8
	for len(p.buf) >= p.size {
		ev := p.buf[:p.size]
		typ := binary.NativeEndian.Uint16(ev[hdr : hdr+2])
		code := binary.NativeEndian.Uint16(ev[hdr+2 : hdr+4])
		value := int32(binary.NativeEndian.Uint32(ev[hdr+4 : hdr+8]))
		cb(typ, code, value)
		p.buf = p.buf[p.size:]
	}
	if len(p.buf) == 0 {
		p.buf = nil
	}
}

// Translator maps raw input records to activity events. Records are
// collected until SYN_REPORT, then flushed as one batch.
type Translator struct {
	pos      activity.Point
	moved    bool
	touching bool
	pending  []string
}

// Feed consumes one record and returns the events completed by it.
func (t *Translator) Feed(typ, code uint16, value int32, now time.Time) []activity.Event {
	switch typ {
	case evRel:
		t.rel(code, value)
	case evAbs:
		t.abs(code, value)
	case evKey:
		t.key(code, value)
	case evSyn:
		if code == synReport {
			return t.flush(now)
		}
	}
	return nil
}

func (t *Translator) rel(code uint16, value int32) {
	switch code {
	case relX:
		t.pos.X += float64(value)
		t.moved = true
	case relY:
		t.pos.Y += float64(value)
		t.moved = true
	case relWheel, relHWheel:
		t.pending = append(t.pending, "wheel")
	case relWheelHiRes, relHWheelHiRes:
		// Duplicates of the low-res wheel events on newer kernels
	}
}

func (t *Translator) abs(code uint16, value int32) {
	switch code {
	case absX, absMTPositionX:
		t.pos.X = float64(value)
		t.moved = true
	case absY, absMTPositionY:
		t.pos.Y = float64(value)
		t.moved = true
	}
}

func (t *Translator) key(code uint16, value int32) {
	switch {
	case code == btnTouch:
		if value == keyPress {
			t.touching = true
			t.pending = append(t.pending, "touchstart")
		} else if value == keyRelease {
			t.touching = false
		}
	case code >= btnLeft && code <= btnTask:
		if value == keyPress {
			t.pending = append(t.pending, "mousedown")
		}
	case code >= btnMisc && code <= btnDigiHi:
		// Tool and joystick buttons are not user activity on their own
	default:
		if value == keyPress || value == keyRepeat {
			t.pending = append(t.pending, "keydown")
		}
	}
}

func (t *Translator) flush(now time.Time) []activity.Event {
	var out []activity.Event
	if t.moved {
		name := "mousemove"
		if t.touching {
			name = "touchmove"
		}
		out = append(out, activity.NewMoveEvent(name, t.pos.X, t.pos.Y, now))
	}
	for _, name := range t.pending {
		out = append(out, activity.NewEvent(name, now))
	}
	t.moved = false
	t.pending = t.pending[:0]
	return out
}
