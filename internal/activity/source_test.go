package activity

import "testing"

type recorder struct {
	got []Event
}

func (r *recorder) HandleActivity(ev Event) {
	r.got = append(r.got, ev)
}

func TestBusEmitByName(t *testing.T) {
	b := NewBus()
	keys := &recorder{}
	moves := &recorder{}
	b.AddListener("keydown", keys)
	b.AddListener("mousemove", moves)

	b.Emit(NewEvent("keydown", t0))
	b.Emit(NewMoveEvent("mousemove", 1, 2, t0))
	b.Emit(NewEvent("wheel", t0))

	if len(keys.got) != 1 || keys.got[0].Name != "keydown" {
		t.Errorf("keydown listener: got %+v", keys.got)
	}
	if len(moves.got) != 1 || moves.got[0].Pos != (Point{X: 1, Y: 2}) {
		t.Errorf("mousemove listener: got %+v", moves.got)
	}
}

func TestBusRemoveListener(t *testing.T) {
	b := NewBus()
	r := &recorder{}
	b.AddListener("keydown", r)
	b.RemoveListener("keydown", r)

	b.Emit(NewEvent("keydown", t0))
	if len(r.got) != 0 {
		t.Errorf("removed listener received %d events", len(r.got))
	}
	if b.ListenerCount("keydown") != 0 {
		t.Errorf("expected no listeners, got %d", b.ListenerCount("keydown"))
	}
}

func TestBusRemoveUnknownIsNoop(t *testing.T) {
	b := NewBus()
	r := &recorder{}
	other := &recorder{}
	b.AddListener("keydown", r)

	b.RemoveListener("keydown", other)
	b.RemoveListener("wheel", r)

	if b.ListenerCount("keydown") != 1 {
		t.Errorf("expected 1 listener left, got %d", b.ListenerCount("keydown"))
	}
}

func TestBusRemoveKeepsOthers(t *testing.T) {
	b := NewBus()
	first := &recorder{}
	second := &recorder{}
	b.AddListener("keydown", first)
	b.AddListener("keydown", second)

	b.RemoveListener("keydown", first)
	b.Emit(NewEvent("keydown", t0))

	if len(first.got) != 0 {
		t.Error("removed listener should not receive events")
	}
	if len(second.got) != 1 {
		t.Errorf("remaining listener: expected 1 event, got %d", len(second.got))
	}
}

func TestFakeSourceRecords(t *testing.T) {
	f := NewFakeSource()
	r := &recorder{}

	f.AddListener("keydown", r)
	f.AddListener("wheel", r)
	if f.Bound() != 2 {
		t.Errorf("expected 2 bound, got %d", f.Bound())
	}

	f.RemoveListener("keydown", r)
	if f.Added["keydown"] != 1 || f.Removed["keydown"] != 1 {
		t.Errorf("unexpected counts: added=%v removed=%v", f.Added, f.Removed)
	}
	if f.Bound() != 1 {
		t.Errorf("expected 1 bound, got %d", f.Bound())
	}
}
