package activity

import "sync"

// Listener receives raw activity events.
type Listener interface {
	HandleActivity(ev Event)
}

// EventSource delivers named activity events to listeners.
// Implementations must treat removing an unknown listener as a no-op.
type EventSource interface {
	AddListener(name string, l Listener)
	RemoveListener(name string, l Listener)
}

// Emitter accepts events from device readers.
type Emitter interface {
	Emit(ev Event)
}

// Bus is an in-process EventSource. Device readers emit into a Bus and
// controllers listen on it. Safe for concurrent use.
type Bus struct {
	mu        sync.RWMutex
	listeners map[string][]Listener
}

// Default is the process-wide bus used when a Config has no Source.
var Default = NewBus()

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{listeners: make(map[string][]Listener)}
}

// AddListener registers l for events named name.
func (b *Bus) AddListener(name string, l Listener) {
	b.mu.Lock()
	b.listeners[name] = append(b.listeners[name], l)
	b.mu.Unlock()
}

// RemoveListener removes one registration of l for name.
func (b *Bus) RemoveListener(name string, l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ls := b.listeners[name]
	for i, cur := range ls {
		if cur == l {
			ls = append(ls[:i:i], ls[i+1:]...)
			break
		}
	}
	if len(ls) == 0 {
		delete(b.listeners, name)
		return
	}
	b.listeners[name] = ls
}

// Emit delivers ev to every listener registered for ev.Name, in
// registration order. Listeners are called without the bus lock held.
func (b *Bus) Emit(ev Event) {
	b.mu.RLock()
	ls := b.listeners[ev.Name]
	b.mu.RUnlock()

	for _, l := range ls {
		l.HandleActivity(ev)
	}
}

// ListenerCount returns the number of registrations for name.
func (b *Bus) ListenerCount(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[name])
}

// FakeSource is an EventSource test double that records registrations.
type FakeSource struct {
	Bus

	// Added and Removed count AddListener/RemoveListener calls per name.
	Added   map[string]int
	Removed map[string]int
}

// NewFakeSource creates an empty FakeSource.
func NewFakeSource() *FakeSource {
	return &FakeSource{
		Bus:     Bus{listeners: make(map[string][]Listener)},
		Added:   make(map[string]int),
		Removed: make(map[string]int),
	}
}

// AddListener records and registers l.
func (f *FakeSource) AddListener(name string, l Listener) {
	f.mu.Lock()
	f.Added[name]++
	f.mu.Unlock()
	f.Bus.AddListener(name, l)
}

// RemoveListener records and unregisters l.
func (f *FakeSource) RemoveListener(name string, l Listener) {
	f.mu.Lock()
	f.Removed[name]++
	f.mu.Unlock()
	f.Bus.RemoveListener(name, l)
}

// Bound returns the total number of live registrations.
func (f *FakeSource) Bound() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n := 0
	for _, ls := range f.listeners {
		n += len(ls)
	}
	return n
}
