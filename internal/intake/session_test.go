package intake

import (
	"testing"
	"time"
)

func TestSessionGetOrCreate(t *testing.T) {
	s := NewMemorySessionStore()

	sess := s.GetOrCreate("CA1")
	if sess.Stage != StageIntent {
		t.Errorf("new session stage = %q", sess.Stage)
	}
	sess.Name = "Pat"

	again := s.GetOrCreate("CA1")
	if again != sess {
		t.Error("GetOrCreate returned a different session for the same key")
	}
	if again.Name != "Pat" {
		t.Errorf("session state lost: %q", again.Name)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d", s.Len())
	}
}

func TestSessionClear(t *testing.T) {
	s := NewMemorySessionStore()
	s.GetOrCreate("CA1").Stage = StageSchedule
	s.Clear("CA1")

	if s.Len() != 0 {
		t.Errorf("Len = %d after clear", s.Len())
	}
	if sess := s.GetOrCreate("CA1"); sess.Stage != StageIntent {
		t.Errorf("cleared session restarted at %q", sess.Stage)
	}

	// Clearing an unknown key is a no-op.
	s.Clear("CA999")
}

func TestSessionSweepIdle(t *testing.T) {
	s := NewMemorySessionStore()
	stale := s.GetOrCreate("CA-old")
	stale.LastActive = time.Now().Add(-time.Hour)
	s.GetOrCreate("CA-fresh")

	if removed := s.SweepIdle(30 * time.Minute); removed != 1 {
		t.Fatalf("SweepIdle removed %d, want 1", removed)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d after sweep", s.Len())
	}
	if sess := s.GetOrCreate("CA-old"); sess.Stage != StageIntent || sess.Name != "" {
		t.Error("swept session not recreated fresh")
	}
}
