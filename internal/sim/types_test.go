package sim

import (
	"testing"
	"time"
)

func TestNewAgentRecordStartsAwaitingTask(t *testing.T) {
	now := time.Now()
	rec := NewAgentRecord(7, SessionID{1, 2, 3}, now)

	if rec.ID != 7 {
		t.Fatalf("expected ID 7, got %d", rec.ID)
	}
	if rec.Mode != AgentModeAwaitingTask {
		t.Fatalf("expected AwaitingTask, got %v", rec.Mode)
	}
	if !rec.LastSeen.Equal(now) {
		t.Fatalf("expected LastSeen %v, got %v", now, rec.LastSeen)
	}
	if rec.PendingTask != nil {
		t.Fatal("expected a freshly created record to have no pending task")
	}
}

func TestAgentModeStringNamesEveryMode(t *testing.T) {
	cases := map[AgentMode]string{
		AgentModeUnspecified:  "Unspecified",
		AgentModeAwaitingTask: "AwaitingTask",
		AgentModePlanning:     "Planning",
		AgentModeNavigating:   "Navigating",
		AgentModePerceiving:   "Perceiving",
		AgentModeDisconnected: "Disconnected",
	}
	for mode, want := range cases {
		if got := mode.String(); got != want {
			t.Errorf("mode %d: expected %q, got %q", mode, want, got)
		}
	}
}

func TestAgentModeStringFallsBackForUnknownValues(t *testing.T) {
	if got := AgentMode(99).String(); got != "Unspecified" {
		t.Fatalf("expected an out-of-range mode to print as Unspecified, got %q", got)
	}
}
