package strategy

import "testing"

func TestStateMachineTransitions(t *testing.T) {
	sm := NewStateMachine()
	if sm.State != StateIdle {
		t.Fatalf("expected %s, got %s", StateIdle, sm.State)
	}
	if sm.Apply(EventStart) != StateRunning {
		t.Fatalf("expected %s, got %s", StateRunning, sm.State)
	}
	if sm.Apply(EventComplete) != StateIdle {
		t.Fatalf("expected %s, got %s", StateIdle, sm.State)
	}
	if sm.Apply(EventStart) != StateRunning {
		t.Fatalf("expected %s, got %s", StateRunning, sm.State)
	}
}

func TestStateMachineInvalidTransition(t *testing.T) {
	sm := NewStateMachine()
	if sm.Apply(EventComplete) != StateIdle {
		t.Fatalf("invalid transition should not change state")
	}
	sm.Apply(EventStart)
	if sm.Apply(EventStart) != StateRunning {
		t.Fatalf("start while running should not change state")
	}
}

