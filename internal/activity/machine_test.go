package activity

import "testing"

func TestNewMachineStartsIdle(t *testing.T) {
	m := NewMachine()
	if m.State() != StateIdle {
		t.Errorf("expected initial state IDLE, got %s", m.State())
	}
	if m.Counts() != (Counts{}) {
		t.Errorf("expected zero counts, got %+v", m.Counts())
	}
}

func TestMachineEdges(t *testing.T) {
	m := NewMachine()

	if m.Expire() {
		t.Error("Expire while idle should not report an edge")
	}
	if !m.Resume() {
		t.Error("first Resume should report an edge")
	}
	if m.State() != StateActive {
		t.Errorf("expected ACTIVE, got %s", m.State())
	}

	// Repeated activity while active
	for i := 0; i < 5; i++ {
		if m.Resume() {
			t.Errorf("iteration %d: Resume while active should not report an edge", i)
		}
	}

	if !m.Expire() {
		t.Error("Expire while active should report an edge")
	}
	if m.Expire() {
		t.Error("second Expire should not report an edge")
	}

	want := Counts{Idle: 1, Resume: 1}
	if m.Counts() != want {
		t.Errorf("counts: got %+v, want %+v", m.Counts(), want)
	}
}

func TestMachineSettleOnce(t *testing.T) {
	m := NewMachine()

	if !m.Settle() {
		t.Fatal("first Settle should announce the initial idle")
	}
	if m.Settle() {
		t.Error("second Settle should not announce again")
	}
	if m.Counts().Idle != 1 {
		t.Errorf("expected initial idle counted once, got %d", m.Counts().Idle)
	}
}

func TestMachineSettleAfterEdge(t *testing.T) {
	m := NewMachine()
	m.Resume()

	if m.Settle() {
		t.Error("Settle after an edge should not announce")
	}

	m.Expire()
	if m.Settle() {
		t.Error("Settle after returning to idle should not announce")
	}
}
