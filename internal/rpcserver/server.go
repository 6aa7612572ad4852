// Package rpcserver binds the wire.OrchestratorServer RPC surface
// (spec.md §6.1) to the CanonicalState components: registration,
// bidirectional pose/mask reporting, world-state subscription, and
// operator commands.
//
// Grounded on controller/api/destination/server.go's shape (teacher): a
// thin handler type holding references to the watchers/registries it
// serves, with go-grpc-prometheus interceptors wired at server
// construction rather than per-handler.
package rpcserver

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	grpcprometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	logging "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/reconsim/orchestrator/internal/admin"
	"github.com/reconsim/orchestrator/internal/metrics"
	"github.com/reconsim/orchestrator/internal/registry"
	"github.com/reconsim/orchestrator/internal/sim"
	"github.com/reconsim/orchestrator/internal/wire"
	"github.com/reconsim/orchestrator/internal/world"
)

// maxCommandHistory bounds the /debug/commands history buffer
// (SPEC_FULL.md §C.4): only the most recent 64 commands are kept.
const maxCommandHistory = 64

// Server implements wire.OrchestratorServer.
type Server struct {
	state          *world.CanonicalState
	reportInterval time.Duration
	maxReportBytes int64
	log            *logging.Entry

	historyMu sync.Mutex
	history   []admin.CommandLogEntry
}

// New builds a Server over an already-constructed CanonicalState.
func New(state *world.CanonicalState, reportInterval time.Duration, maxReportBytes int64, log *logging.Entry) *Server {
	return &Server{
		state:          state,
		reportInterval: reportInterval,
		maxReportBytes: maxReportBytes,
		log:            log,
	}
}

// ServerOptions returns the grpc.ServerOption set every listener built
// over a Server should use. Call grpcprometheus.Register(srv) once the
// *grpc.Server is constructed to complete the wiring (teacher:
// go-grpc-prometheus's own usage docs, mirrored by controller/proxy's
// interceptor chain).
func ServerOptions() []grpc.ServerOption {
	return []grpc.ServerOption{
		grpc.UnaryInterceptor(grpcprometheus.UnaryServerInterceptor),
		grpc.StreamInterceptor(grpcprometheus.StreamServerInterceptor),
	}
}

// RegisterAgent allocates or resumes an AgentID for the caller.
func (s *Server) RegisterAgent(ctx context.Context, req *wire.RegisterAgentRequest) (*wire.RegisterAgentResponse, error) {
	if req.SessionID == ([16]byte{}) {
		metrics.GRPCRequestsTotal.WithLabelValues("RegisterAgent", "invalid_argument").Inc()
		return nil, status.Error(codes.InvalidArgument, "rpcserver: session_id must be non-empty")
	}

	rec := s.state.Agents.Register(sim.SessionID(req.SessionID), time.Now())

	metrics.AgentsRegisteredTotal.Inc()
	metrics.AgentsActive.Set(float64(s.state.Agents.Len()))
	metrics.AgentConnected.WithLabelValues(strconv.FormatUint(uint64(rec.ID), 10)).Set(1)
	metrics.GRPCRequestsTotal.WithLabelValues("RegisterAgent", "ok").Inc()

	s.log.WithField("agent_id", uint64(rec.ID)).Info("agent registered")

	return &wire.RegisterAgentResponse{
		AgentID:          uint64(rec.ID),
		ServerTimeMs:     time.Now().UnixMilli(),
		ReportIntervalMs: s.reportInterval.Milliseconds(),
		MaxReportBytes:   s.maxReportBytes,
	}, nil
}

// ReportState is the duplex pose/mask-delta stream. Per spec.md §4.3,
// reading reports and writing responses run as two independent tasks
// sharing the duplex handle, so a slow outbound Send never blocks the
// next inbound Recv: this goroutine only ever receives and processes;
// a second goroutine owns every stream.Send call, fed over outbox.
func (s *Server) ReportState(stream wire.Orchestrator_ReportStateServer) error {
	ctx := stream.Context()
	outbox := make(chan *wire.ReportStateResponse, 16)
	sendErr := make(chan error, 1)

	go func() {
		for resp := range outbox {
			if err := stream.Send(resp); err != nil {
				select {
				case sendErr <- err:
				default:
				}
				return
			}
			metrics.GRPCRequestsTotal.WithLabelValues("ReportState", "ok").Inc()
		}
	}()

	var (
		agentID    sim.AgentID
		registered bool
	)
	defer func() {
		close(outbox)
		if registered {
			s.state.Agents.StreamEnded(agentID)
			metrics.AgentsActive.Set(float64(s.state.Agents.Len()))
		}
	}()

	for {
		select {
		case err := <-sendErr:
			return err
		default:
		}

		report, err := stream.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		agentID = sim.AgentID(report.AgentID)
		registered = true

		if int64(len(report.DiscoveredPointIDsPortable)) > s.maxReportBytes {
			metrics.GRPCRequestsTotal.WithLabelValues("ReportState", "resource_exhausted").Inc()
			return status.Errorf(codes.ResourceExhausted, "report payload of %d bytes exceeds max_report_bytes %d", len(report.DiscoveredPointIDsPortable), s.maxReportBytes)
		}

		now := time.Now()
		pose := sim.Pose{
			Position:    sim.Vec3(report.State.Position),
			Velocity:    sim.Vec3(report.State.Velocity),
			Orientation: sim.Quaternion(report.State.Orientation),
			TimestampMs: report.State.TimestampMs,
			Sequence:    report.State.Sequence,
		}
		if !s.state.Agents.UpdateReport(agentID, pose, sim.AgentMode(report.State.Mode), now) {
			metrics.GRPCRequestsTotal.WithLabelValues("ReportState", "not_found").Inc()
			return status.Errorf(codes.NotFound, "agent %d is not registered", agentID)
		}

		changed := false
		if len(report.DiscoveredPointIDsPortable) > 0 {
			outcome, err := s.state.Aggregator.Merge(report.DiscoveredPointIDsPortable)
			if err != nil {
				metrics.GRPCRequestsTotal.WithLabelValues("ReportState", "invalid_argument").Inc()
				return status.Errorf(codes.InvalidArgument, "malformed reveal mask: %v", err)
			}
			if outcome.Changed {
				metrics.PointsRevealedTotal.Add(float64(outcome.Added))
				changed = true
			}
		}

		// A zero-delta merge still publishes (so pose updates reach
		// subscribers promptly) but reuses the current ticket rather
		// than minting a new one, per spec.md §4.2/§8.
		ws, err := s.state.Publish(now, changed)
		if err != nil {
			metrics.GRPCRequestsTotal.WithLabelValues("ReportState", "internal").Inc()
			return status.Errorf(codes.Internal, "publish world snapshot: %v", err)
		}
		metrics.MapCoverageRatio.Set(ws.CoverageRatio)

		if changed {
			s.assignTasks()
		}

		resp := &wire.ReportStateResponse{}
		if t, ok := s.state.Agents.TakePendingTask(agentID); ok {
			resp.HasTask = true
			resp.Task = wire.Task{Waypoint: wire.Vec3(t.Waypoint)}
		}

		select {
		case outbox <- resp:
		case err := <-sendErr:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// assignTasks runs the greedy nearest-frontier allocator over every
// AwaitingTask agent with no pending task, per spec.md §4.3.
func (s *Server) assignTasks() {
	all := s.state.Agents.Snapshot()
	awaiting := make([]sim.AgentRecord, 0, len(all))
	for _, a := range all {
		if a.Mode == sim.AgentModeAwaitingTask && a.PendingTask == nil {
			awaiting = append(awaiting, a)
		}
	}
	if len(awaiting) == 0 {
		return
	}

	snap := s.state.Aggregator.Snapshot()
	total := s.state.PointCloud.Current().Cardinality
	for id, t := range registry.Allocate(awaiting, snap, total) {
		s.state.Agents.SetPendingTask(id, t)
	}
}

// SubscribeWorldState streams every published WorldSnapshot to a viewer,
// starting with whatever has already been published.
func (s *Server) SubscribeWorldState(req *wire.SubscribeWorldStateRequest, stream wire.Orchestrator_SubscribeWorldStateServer) error {
	sub := s.state.Broadcaster.Subscribe()
	defer sub.Close()

	ctx := stream.Context()
	for {
		v, ok := sub.Next(ctx)
		if !ok {
			metrics.GRPCRequestsTotal.WithLabelValues("SubscribeWorldState", "cancelled").Inc()
			return ctx.Err()
		}
		ws, ok := v.(world.WorldSnapshot)
		if !ok {
			return status.Error(codes.Internal, "rpcserver: unexpected broadcast payload type")
		}
		msg := toWireWorldState(ws)
		if err := stream.Send(&msg); err != nil {
			return err
		}
		metrics.GRPCRequestsTotal.WithLabelValues("SubscribeWorldState", "ok").Inc()
	}
}

func toWireWorldState(ws world.WorldSnapshot) wire.WorldState {
	agents := make([]wire.AgentState, 0, len(ws.Agents))
	for _, a := range ws.Agents {
		agents = append(agents, wire.AgentState{
			AgentID:       uint64(a.ID),
			TimestampMs:   a.LastPose.TimestampMs,
			Position:      wire.Vec3(a.LastPose.Position),
			Velocity:      wire.Vec3(a.LastPose.Velocity),
			Orientation:   wire.Quaternion(a.LastPose.Orientation),
			Mode:          wire.AgentMode(a.Mode),
			Sequence:      a.LastPose.Sequence,
			SchemaVersion: wire.SchemaVersion,
		})
	}

	ticket := make([]byte, len(ws.Ticket))
	copy(ticket, ws.Ticket[:])

	return wire.WorldState{
		TimestampMs:      ws.TimestampMs,
		Agents:           agents,
		RevealMaskTicket: ticket,
		MapCoverageRatio: ws.CoverageRatio,
		SchemaVersion:    wire.SchemaVersion,
	}
}

// IssueCommand applies an operator command. Per spec.md §6.1 it never
// fails the RPC itself; failures surface as Acknowledged=false with an
// explanatory Message.
func (s *Server) IssueCommand(ctx context.Context, req *wire.IssueCommandRequest) (*wire.IssueCommandResponse, error) {
	now := time.Now()
	var resp wire.IssueCommandResponse

	switch req.Kind {
	case wire.CommandStartSurvey:
		s.assignTasks()
		resp = wire.IssueCommandResponse{Acknowledged: true, Message: "task allocation pass triggered"}
	case wire.CommandResetSimulation:
		if _, err := s.state.Reset(now); err != nil {
			resp = wire.IssueCommandResponse{Acknowledged: false, Message: err.Error()}
		} else {
			resp = wire.IssueCommandResponse{Acknowledged: true, Message: "reveal mask cleared"}
		}
	default:
		resp = wire.IssueCommandResponse{Acknowledged: false, Message: fmt.Sprintf("unrecognised command kind %d", req.Kind)}
	}

	s.recordCommand(req.Kind, now, resp)
	metrics.GRPCRequestsTotal.WithLabelValues("IssueCommand", "ok").Inc()
	return &resp, nil
}

// Recent implements admin.CommandHistory.
func (s *Server) Recent() []admin.CommandLogEntry {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()
	out := make([]admin.CommandLogEntry, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Server) recordCommand(kind wire.IssueCommandKind, at time.Time, resp wire.IssueCommandResponse) {
	entry := admin.CommandLogEntry{
		Kind:         commandKindString(kind),
		At:           at,
		Acknowledged: resp.Acknowledged,
		Message:      resp.Message,
	}
	s.historyMu.Lock()
	s.history = append(s.history, entry)
	if len(s.history) > maxCommandHistory {
		s.history = s.history[len(s.history)-maxCommandHistory:]
	}
	s.historyMu.Unlock()
}

func commandKindString(k wire.IssueCommandKind) string {
	switch k {
	case wire.CommandStartSurvey:
		return "StartSurvey"
	case wire.CommandResetSimulation:
		return "ResetSimulation"
	default:
		return "Unspecified"
	}
}
