package strategy

import "testing"

func TestPositionMachineRoundTrip(t *testing.T) {
	pm := NewPositionMachine()
	if pm.Current() != StateFlat {
		t.Fatalf("expected %s, got %s", StateFlat, pm.Current())
	}
	if pm.Apply(EventEnter) != StateEntering {
		t.Fatalf("expected %s, got %s", StateEntering, pm.State)
	}
	if pm.Apply(EventOpened) != StateOpen {
		t.Fatalf("expected %s, got %s", StateOpen, pm.State)
	}
	if pm.Apply(EventExit) != StateExiting {
		t.Fatalf("expected %s, got %s", StateExiting, pm.State)
	}
	if pm.Apply(EventClosed) != StateFlat {
		t.Fatalf("expected %s, got %s", StateFlat, pm.State)
	}
}

func TestPositionMachineAbortReverts(t *testing.T) {
	pm := NewPositionMachine()
	pm.Apply(EventEnter)
	if pm.Apply(EventAbort) != StateFlat {
		t.Fatalf("aborted entry should settle flat, got %s", pm.State)
	}
	pm.SetState(StateOpen)
	pm.Apply(EventExit)
	if pm.Apply(EventAbort) != StateOpen {
		t.Fatalf("aborted exit should stay open, got %s", pm.State)
	}
}

func TestPositionMachineIgnoresInvalidEvents(t *testing.T) {
	pm := NewPositionMachine()
	if pm.Apply(EventOpened) != StateFlat {
		t.Fatalf("invalid transition should not change state")
	}
	if pm.Apply(EventExit) != StateFlat {
		t.Fatalf("flat position cannot start an exit")
	}
}
