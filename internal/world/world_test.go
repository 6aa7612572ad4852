package world

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	logging "github.com/sirupsen/logrus"

	"github.com/reconsim/orchestrator/internal/aggregator"
	"github.com/reconsim/orchestrator/internal/broadcast"
	"github.com/reconsim/orchestrator/internal/mask"
	"github.com/reconsim/orchestrator/internal/pointcloud"
	"github.com/reconsim/orchestrator/internal/registry"
	"github.com/reconsim/orchestrator/internal/sim"
	"github.com/reconsim/orchestrator/internal/ticket"
)

func newTestState(t *testing.T, cardinality int) *CanonicalState {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pointcloud.yaml")
	contents := []byte("cardinality: 0\n")
	if cardinality > 0 {
		contents = []byte("cardinality: " + itoa(cardinality) + "\n")
	}
	if err := os.WriteFile(path, contents, 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	l := logging.New()
	l.SetOutput(os.Stderr)
	pc, err := pointcloud.NewLoader(path, logging.NewEntry(l))
	if err != nil {
		t.Fatalf("NewLoader failed: %v", err)
	}

	return New(
		ticket.New(time.Second, 16),
		aggregator.New(),
		registry.New(time.Second, nil),
		broadcast.New(0),
		pc,
	)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func TestPublishIssuesTicketAndUpdatesBroadcaster(t *testing.T) {
	w := newTestState(t, 100)
	w.Agents.Register(sim.SessionID{1}, time.Now())

	ws, err := w.Publish(time.Now(), true)
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if len(ws.Agents) != 1 {
		t.Fatalf("expected 1 agent in the snapshot, got %d", len(ws.Agents))
	}

	snap, ok := w.ResolveTicket(ws.Ticket)
	if !ok {
		t.Fatal("expected the just-issued ticket to resolve")
	}
	if snap.Cardinality() != 0 {
		t.Fatalf("expected an empty reveal mask, got cardinality %d", snap.Cardinality())
	}

	latest, ok := w.Broadcaster.Latest()
	if !ok {
		t.Fatal("expected the broadcaster to hold a value after Publish")
	}
	if latest.(WorldSnapshot).Ticket != ws.Ticket {
		t.Fatal("expected the broadcast value to carry the same ticket as Publish returned")
	}
}

func TestResetClearsAggregatorBeforePublishing(t *testing.T) {
	w := newTestState(t, 10)
	if _, err := w.Aggregator.Merge(mustPortable(t)); err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if w.Aggregator.Cardinality() == 0 {
		t.Fatal("expected a non-empty mask before Reset")
	}

	ws, err := w.Reset(time.Now())
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if ws.CoverageRatio != 0 {
		t.Fatalf("expected coverage ratio 0 after Reset, got %v", ws.CoverageRatio)
	}
	if w.Aggregator.Cardinality() != 0 {
		t.Fatal("expected the live mask to be empty after Reset")
	}
}

func TestPublishReusesTicketWhenMaskUnchanged(t *testing.T) {
	w := newTestState(t, 100)

	first, err := w.Publish(time.Now(), true)
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	second, err := w.Publish(time.Now(), false)
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if second.Ticket != first.Ticket {
		t.Fatal("expected an unchanged-mask Publish to reuse the previous ticket")
	}

	third, err := w.Publish(time.Now(), true)
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if third.Ticket == first.Ticket {
		t.Fatal("expected a changed-mask Publish to mint a fresh ticket")
	}
}

func mustPortable(t *testing.T) []byte {
	t.Helper()
	m := mask.New()
	m.Add(1)
	b, err := m.Serialize()
	if err != nil {
		t.Fatalf("serialize failed: %v", err)
	}
	return b
}
