package capture

import "testing"

func TestHookStateCancelBeforeInstall(t *testing.T) {
	var s hookState
	s.reset()
	if tid := s.cancel(); tid != 0 {
		t.Fatalf("tid=%d before install", tid)
	}
	// The hook finished installing after Start gave up on it.
	if s.installed(42) {
		t.Fatalf("late install accepted after cancel")
	}
	if tid := s.cancel(); tid != 0 {
		t.Fatalf("tid=%d for a rejected install", tid)
	}
}

func TestHookStateCancelRunning(t *testing.T) {
	var s hookState
	s.reset()
	if !s.installed(42) {
		t.Fatalf("install rejected")
	}
	if tid := s.cancel(); tid != 42 {
		t.Fatalf("tid=%d", tid)
	}
	s.removed()
	if tid := s.cancel(); tid != 0 {
		t.Fatalf("tid=%d after removal", tid)
	}
}

func TestHookStateReset(t *testing.T) {
	var s hookState
	s.cancel()
	s.reset()
	if !s.installed(7) {
		t.Fatalf("install rejected after reset")
	}
}
