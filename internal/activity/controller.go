package activity

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrClosed is returned when reconfiguring a closed controller.
var ErrClosed = errors.New("activity controller closed")

// Controller binds an event source to the filter, idle timer and state
// machine, and delivers OnIdle/OnResume exactly once per edge.
//
// Event handling, timer fires, reconfiguration and Close are serialized on
// one lock, and callbacks run with that lock held: no two callbacks run
// concurrently and none runs after Close or SetEnabled(false) returns.
// Callbacks must therefore not call Reconfigure, SetEnabled or Close.
// IsIdle and State are lock-free and safe to call from callbacks.
type Controller struct {
	mu      sync.Mutex
	cfg     Config
	clock   Clock
	filter  FilterState
	machine *Machine
	timer   *IdleTimer
	bound   *binding
	closed  bool

	idle  atomic.Bool
	state atomic.Value // State
}

// binding is the listener registered for one bind generation.
type binding struct {
	c        *Controller
	source   EventSource
	events   []string
	detached bool // guarded by c.mu
}

func (b *binding) HandleActivity(ev Event) {
	b.c.handle(b, ev)
}

// New creates a controller. If cfg.Enabled it binds to the source right
// away and announces the initial Idle state through OnIdle.
func New(cfg Config) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	clock := cfg.clock()
	c := &Controller{
		cfg:     cfg,
		clock:   clock,
		filter:  FilterState{At: clock.Now()},
		machine: NewMachine(),
	}
	c.cfg.Events = append([]string(nil), cfg.Events...)
	c.timer = NewIdleTimer(clock, &c.mu)
	c.publishState()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.applyLocked()
	return c, nil
}

// Reconfigure unbinds the current listener and timer, then rebinds against
// cfg. The idle state is kept. On error the previous configuration stays.
func (c *Controller) Reconfigure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reconfigureLocked(cfg)
}

// SetEnabled reconfigures only the enabled flag, keeping the rest of the
// active configuration as of the same lock hold.
func (c *Controller) SetEnabled(enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cfg := c.cfg
	cfg.Enabled = enabled
	if err := cfg.Validate(); err != nil {
		return err
	}
	return c.reconfigureLocked(cfg)
}

func (c *Controller) reconfigureLocked(cfg Config) error {
	if c.closed {
		return ErrClosed
	}
	c.unbindLocked()
	c.cfg = cfg
	c.cfg.Events = append([]string(nil), cfg.Events...)
	c.applyLocked()
	return nil
}

// Close unbinds and cancels the pending timer. Safe to call more than once.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unbindLocked()
	c.closed = true
}

// IsIdle reports whether the user is currently idle.
func (c *Controller) IsIdle() bool {
	return c.idle.Load()
}

// State returns the current state.
func (c *Controller) State() State {
	return c.state.Load().(State)
}

// Enabled reports whether the controller is bound to its source.
func (c *Controller) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bound != nil
}

// Counts returns the delivered edge counters.
func (c *Controller) Counts() Counts {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.Counts()
}

// LastActivity returns the time of the last accepted event, or the
// construction time if none was accepted yet.
func (c *Controller) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter.At
}

// Config returns a copy of the active configuration.
func (c *Controller) Config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	cfg := c.cfg
	cfg.Events = append([]string(nil), c.cfg.Events...)
	return cfg
}

func (c *Controller) applyLocked() {
	if !c.cfg.Enabled {
		return
	}

	b := &binding{
		c:      c,
		source: c.cfg.source(),
		events: append([]string(nil), c.cfg.Events...),
	}
	for _, name := range b.events {
		b.source.AddListener(name, b)
	}
	c.bound = b

	// A fresh deadline for an Active state carried over from before
	if c.machine.State() == StateActive {
		c.timer.Arm(c.cfg.Idle, c.expireLocked)
	}

	if c.machine.Settle() {
		c.deliverLocked("", StateIdle)
	}
}

func (c *Controller) unbindLocked() {
	if b := c.bound; b != nil {
		for _, name := range b.events {
			b.source.RemoveListener(name, b)
		}
		b.detached = true
		c.bound = nil
	}
	c.timer.Cancel()
}

func (c *Controller) handle(b *binding, ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Late delivery to a binding that has since been replaced
	if b.detached || c.bound != b {
		return
	}

	if ev.At.IsZero() {
		ev.At = c.clock.Now()
	}

	if !Accept(ev, &c.filter, c.cfg.Throttle) {
		return
	}

	if c.machine.Resume() {
		c.deliverLocked(StateIdle, StateActive)
	}
	c.timer.Arm(c.cfg.Idle, c.expireLocked)
}

func (c *Controller) expireLocked() {
	if c.bound == nil {
		return
	}
	if c.machine.Expire() {
		c.deliverLocked(StateActive, StateIdle)
	}
}

func (c *Controller) deliverLocked(from, to State) {
	c.publishState()

	switch to {
	case StateIdle:
		if c.cfg.OnIdle != nil {
			c.cfg.OnIdle()
		}
	case StateActive:
		if c.cfg.OnResume != nil {
			c.cfg.OnResume()
		}
	}

	if c.cfg.OnTransition != nil {
		c.cfg.OnTransition(Transition{
			At:    c.clock.Now(),
			From:  from,
			To:    to,
			Count: c.machine.Counts(),
		})
	}
}

func (c *Controller) publishState() {
	s := c.machine.State()
	c.state.Store(s)
	c.idle.Store(s == StateIdle)
}
