// Package bulk implements the Bulk Payload Server (C5): Arrow Flight's
// DoGet half, returning the mask snapshot a Ticket Registry (C1) ticket
// resolves to as a single-record, single-column Arrow stream.
//
// spec.md §1 scopes the control plane around a hand-rolled gRPC wire
// protocol (see internal/wire) because this environment cannot run
// protoc against a .proto file of our own — but Arrow Flight's own
// generated service stubs ship inside the
// github.com/apache/arrow/go/v16/arrow/flight package itself, so
// implementing flight.FlightServiceServer needs no protoc invocation of
// ours at all. Grounded on the apache/arrow dependency other example
// manifests (DataDog-datadog-agent, steveyegge-beads) carry, per
// SPEC_FULL.md's domain stack.
package bulk

import (
	"fmt"

	"github.com/apache/arrow/go/v16/arrow"
	"github.com/apache/arrow/go/v16/arrow/array"
	"github.com/apache/arrow/go/v16/arrow/flight"
	"github.com/apache/arrow/go/v16/arrow/ipc"
	"github.com/apache/arrow/go/v16/arrow/memory"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/reconsim/orchestrator/internal/ticket"
	"github.com/reconsim/orchestrator/internal/world"
)

// schema is the single-column record every DoGet call returns: one
// non-null LargeBinary field holding the portable Roaring byte format,
// tagged with the metadata spec.md §6.2 requires so a client can decode
// it without out-of-band knowledge of this service's internals.
var schema = arrow.NewSchema(
	[]arrow.Field{
		{
			Name:     "roaring_portable",
			Type:     arrow.BinaryTypes.LargeBinary,
			Nullable: false,
			Metadata: arrow.NewMetadata(
				[]string{"content_type", "version"},
				[]string{"application/x-roaring", "1"},
			),
		},
	},
	nil,
)

// Server implements flight.FlightServiceServer. Only DoGet is
// meaningful here; every other method inherits
// flight.BaseFlightServer's Unimplemented behaviour.
type Server struct {
	flight.BaseFlightServer
	state *world.CanonicalState
	alloc memory.Allocator
}

// New returns a bulk Server resolving tickets against state.
func New(state *world.CanonicalState) *Server {
	return &Server{state: state, alloc: memory.NewGoAllocator()}
}

// DoGet resolves req's ticket bytes to a mask.Snapshot and streams it as
// one Arrow record.
func (s *Server) DoGet(req *flight.Ticket, stream flight.FlightService_DoGetServer) error {
	raw := req.GetTicket()
	var t ticket.Bytes
	if len(raw) != len(t) {
		return status.Errorf(codes.InvalidArgument, "bulk: ticket must be %d bytes, got %d", len(t), len(raw))
	}
	copy(t[:], raw)

	snap, ok := s.state.ResolveTicket(t)
	if !ok {
		return status.Error(codes.InvalidArgument, "bulk: ticket unknown or expired")
	}

	payload, err := snap.Serialize()
	if err != nil {
		return status.Errorf(codes.Internal, "bulk: serialize snapshot: %v", err)
	}

	builder := array.NewBinaryBuilder(s.alloc, arrow.BinaryTypes.LargeBinary)
	defer builder.Release()
	builder.Append(payload)
	col := builder.NewArray()
	defer col.Release()

	record := array.NewRecord(schema, []arrow.Array{col}, 1)
	defer record.Release()

	writer := flight.NewRecordWriter(stream, ipc.WithSchema(schema))
	defer writer.Close()
	if err := writer.Write(record); err != nil {
		return fmt.Errorf("bulk: write record: %w", err)
	}
	return nil
}
