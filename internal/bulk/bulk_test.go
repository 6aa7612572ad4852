package bulk

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/apache/arrow/go/v16/arrow/flight"
	logging "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/reconsim/orchestrator/internal/aggregator"
	"github.com/reconsim/orchestrator/internal/broadcast"
	"github.com/reconsim/orchestrator/internal/mask"
	"github.com/reconsim/orchestrator/internal/pointcloud"
	"github.com/reconsim/orchestrator/internal/registry"
	"github.com/reconsim/orchestrator/internal/ticket"
	"github.com/reconsim/orchestrator/internal/world"
)

// fakeDoGetServer implements flight.FlightService_DoGetServer by
// recording sent messages in a slice, enough to exercise DoGet's ticket-validation and
// record-writing logic without a real gRPC transport.
type fakeDoGetServer struct {
	ctx  context.Context
	sent []*flight.FlightData
}

func (f *fakeDoGetServer) Send(d *flight.FlightData) error {
	f.sent = append(f.sent, d)
	return nil
}
func (f *fakeDoGetServer) SetHeader(metadata.MD) error  { return nil }
func (f *fakeDoGetServer) SendHeader(metadata.MD) error { return nil }
func (f *fakeDoGetServer) SetTrailer(metadata.MD)       {}
func (f *fakeDoGetServer) Context() context.Context     { return f.ctx }
func (f *fakeDoGetServer) SendMsg(m interface{}) error   { return nil }
func (f *fakeDoGetServer) RecvMsg(m interface{}) error   { return nil }

func newTestState(t *testing.T, cardinality string) *world.CanonicalState {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pointcloud.yaml")
	if err := os.WriteFile(path, []byte("cardinality: "+cardinality+"\n"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	l := logging.New()
	l.SetOutput(os.Stderr)
	pc, err := pointcloud.NewLoader(path, logging.NewEntry(l))
	if err != nil {
		t.Fatalf("NewLoader failed: %v", err)
	}
	return world.New(
		ticket.New(time.Second, 16),
		aggregator.New(),
		registry.New(time.Second, nil),
		broadcast.New(0),
		pc,
	)
}

func TestDoGetRejectsMalformedTicket(t *testing.T) {
	s := New(newTestState(t, "100"))
	fake := &fakeDoGetServer{ctx: context.Background()}

	err := s.DoGet(&flight.Ticket{Ticket: []byte("too-short")}, fake)
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestDoGetRejectsUnknownTicket(t *testing.T) {
	s := New(newTestState(t, "100"))
	fake := &fakeDoGetServer{ctx: context.Background()}

	bogus := make([]byte, 16)
	err := s.DoGet(&flight.Ticket{Ticket: bogus}, fake)
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestDoGetStreamsResolvedSnapshot(t *testing.T) {
	state := newTestState(t, "100")
	s := New(state)

	m := mask.New()
	m.Add(1)
	m.Add(2)
	if _, err := state.Aggregator.Merge(mustPortable(t, m)); err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	ws, err := state.Publish(time.Now(), true)
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	fake := &fakeDoGetServer{ctx: context.Background()}
	if err := s.DoGet(&flight.Ticket{Ticket: ws.Ticket[:]}, fake); err != nil {
		t.Fatalf("DoGet failed: %v", err)
	}
	if len(fake.sent) == 0 {
		t.Fatal("expected at least one FlightData message to be sent")
	}
}

func mustPortable(t *testing.T, m *mask.RevealMask) []byte {
	t.Helper()
	b, err := m.Serialize()
	if err != nil {
		t.Fatalf("serialize failed: %v", err)
	}
	return b
}
