package activity

// Machine holds the Active/Idle state and performs the two legal transitions.
// Each method reports whether the matching callback should be delivered.
type Machine struct {
	state State
	// Whether any edge (or the initial idle) has been announced
	settled bool
	counts  Counts
}

// NewMachine creates a machine in the initial Idle state.
func NewMachine() *Machine {
	return &Machine{state: StateIdle}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Resume moves Idle -> Active. Returns true only on a real edge.
func (m *Machine) Resume() bool {
	if m.state != StateIdle {
		return false
	}
	m.state = StateActive
	m.settled = true
	m.counts.Resume++
	return true
}

// Expire moves Active -> Idle. Returns true only on a real edge.
func (m *Machine) Expire() bool {
	if m.state != StateActive {
		return false
	}
	m.state = StateIdle
	m.settled = true
	m.counts.Idle++
	return true
}

// Settle announces the initial Idle state. It returns true exactly once,
// and only if no edge has been delivered before.
func (m *Machine) Settle() bool {
	if m.settled {
		return false
	}
	m.settled = true
	if m.state != StateIdle {
		return false
	}
	m.counts.Idle++
	return true
}

// Counts returns the number of delivered edges.
func (m *Machine) Counts() Counts {
	return m.counts
}
