// Package world wires the Ticket Registry (C1), Reveal Aggregator (C2),
// Agent Registry (C3), and Snapshot Broadcaster (C4) into the single
// CanonicalState object described in spec.md §5: one logical value held
// by shared ownership, each sub-component protected by its own smallest
// lock. There is no process-wide singleton; cmd/orchestrator constructs
// exactly one CanonicalState and passes it by reference to the RPC
// server and the bulk payload server.
package world

import (
	"sync"
	"time"

	"github.com/reconsim/orchestrator/internal/aggregator"
	"github.com/reconsim/orchestrator/internal/broadcast"
	"github.com/reconsim/orchestrator/internal/mask"
	"github.com/reconsim/orchestrator/internal/pointcloud"
	"github.com/reconsim/orchestrator/internal/registry"
	"github.com/reconsim/orchestrator/internal/sim"
	"github.com/reconsim/orchestrator/internal/ticket"
)

// WorldSnapshot is the broadcast record paired with agent poses, a mask
// ticket, and the current coverage ratio (spec.md §3).
type WorldSnapshot struct {
	TimestampMs      int64
	Agents           []sim.AgentRecord
	Ticket           ticket.Bytes
	CoverageRatio    float64
}

// CanonicalState is the shared core described in spec.md §5, held by
// pointer by every component that uses it.
type CanonicalState struct {
	Tickets     *ticket.Registry
	Aggregator  *aggregator.Aggregator
	Agents      *registry.Registry
	Broadcaster *broadcast.Broadcaster
	PointCloud  *pointcloud.Loader

	ticketMu   sync.Mutex
	lastTicket ticket.Bytes
	hasTicket  bool
}

// New builds a CanonicalState from its already-constructed
// sub-components.
func New(tickets *ticket.Registry, agg *aggregator.Aggregator, agents *registry.Registry, bc *broadcast.Broadcaster, pc *pointcloud.Loader) *CanonicalState {
	return &CanonicalState{Tickets: tickets, Aggregator: agg, Agents: agents, Broadcaster: bc, PointCloud: pc}
}

// Publish clones the live mask into a Snapshot and broadcasts the
// resulting WorldSnapshot, per spec.md §4.2. A fresh Ticket is only
// minted when maskChanged is true, no ticket has been issued yet, or the
// last ticket has expired or been evicted; otherwise the previously-issued
// ticket is reused, since it still
// resolves to a snapshot identical in content to the one being
// published now. This keeps pose-only reports — which still need to
// publish updated positions — from churning the 256-slot ticket
// registry and evicting tickets a viewer may still be resolving.
func (w *CanonicalState) Publish(now time.Time, maskChanged bool) (WorldSnapshot, error) {
	snap := w.Aggregator.Snapshot()

	w.ticketMu.Lock()
	t := w.lastTicket
	reuse := w.hasTicket && !maskChanged
	if reuse {
		// An expired or evicted ticket no longer resolves; mint a new one.
		_, reuse = w.Tickets.Resolve(t)
	}
	if !reuse {
		issued, err := w.Tickets.Issue(snap)
		if err != nil {
			w.ticketMu.Unlock()
			return WorldSnapshot{}, err
		}
		t = issued
		w.lastTicket = issued
		w.hasTicket = true
	}
	w.ticketMu.Unlock()

	ws := WorldSnapshot{
		TimestampMs:   now.UnixMilli(),
		Agents:        w.Agents.Snapshot(),
		Ticket:        t,
		CoverageRatio: snap.CoverageRatio(w.PointCloud.Current().Cardinality),
	}
	w.Broadcaster.Publish(ws)
	return ws, nil
}

// ResolveTicket looks up the MaskSnapshot bound to t, for the Bulk
// Payload Server (C5).
func (w *CanonicalState) ResolveTicket(t ticket.Bytes) (*mask.Snapshot, bool) {
	return w.Tickets.Resolve(t)
}

// Reset clears the live mask and publishes the resulting empty
// snapshot, per spec.md §4.2's reset procedure. The mask has
// unconditionally changed (cleared), so this always mints a fresh
// ticket.
func (w *CanonicalState) Reset(now time.Time) (WorldSnapshot, error) {
	w.Aggregator.Reset()
	return w.Publish(now, true)
}
