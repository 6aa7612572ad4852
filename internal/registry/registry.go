// Package registry implements the Agent Registry & Session Manager (C3):
// monotonic agent ID allocation, per-agent liveness and pose tracking,
// and the grace-period bookkeeping around stream teardown.
//
// Grounded on controller/api/destination/watcher/endpoints_watcher.go's
// per-entity mutex discipline (teacher): the top-level map is guarded by
// one RWMutex for insert/delete, while each entry owns its own mutex for
// the frequent pose/mode updates so distinct agents never contend.
package registry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/reconsim/orchestrator/internal/sim"
)

// entry wraps an AgentRecord with its own lock and grace-period timer.
type entry struct {
	mu     sync.Mutex
	record *sim.AgentRecord
	cancel context.CancelFunc
}

// Registry is the live set of agents known to this Orchestrator process.
type Registry struct {
	mu       sync.RWMutex
	byID     map[sim.AgentID]*entry
	bySess   map[sim.SessionID]sim.AgentID
	nextID   uint64 // atomic, pre-increment
	grace    time.Duration
	onExpire func(sim.AgentID)
}

// New returns an empty Registry. onExpire, if non-nil, is invoked (off
// the registry's locks) when a disconnected agent's grace period elapses
// without a matching re-Register, after the record (including its
// pending-task slot) has been deleted; it is the hook metrics series
// cleanup uses.
func New(gracePeriod time.Duration, onExpire func(sim.AgentID)) *Registry {
	return &Registry{
		byID:     make(map[sim.AgentID]*entry),
		bySess:   make(map[sim.SessionID]sim.AgentID),
		grace:    gracePeriod,
		onExpire: onExpire,
	}
}

// Register allocates a fresh AgentID and inserts a new AgentRecord. If a
// disconnected record with the same SessionID is still within its grace
// period, that record is reused and the pending expiry is cancelled
// (re-registration from the same process).
func (r *Registry) Register(session sim.SessionID, now time.Time) *sim.AgentRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.bySess[session]; ok {
		if e, ok := r.byID[id]; ok {
			e.mu.Lock()
			if e.record.Mode == sim.AgentModeDisconnected {
				if e.cancel != nil {
					e.cancel()
					e.cancel = nil
				}
				e.record.Mode = sim.AgentModeAwaitingTask
				e.record.LastSeen = now
				e.record.HasStream = false
				rec := e.record
				e.mu.Unlock()
				return rec
			}
			e.mu.Unlock()
		}
	}

	id := sim.AgentID(atomic.AddUint64(&r.nextID, 1))
	rec := sim.NewAgentRecord(id, session, now)
	r.byID[id] = &entry{record: rec}
	r.bySess[session] = id
	return rec
}

// Get returns a snapshot copy of the record for id, if present.
func (r *Registry) Get(id sim.AgentID) (sim.AgentRecord, bool) {
	r.mu.RLock()
	e, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return sim.AgentRecord{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return *e.record, true
}

// UpdateReport applies a single AgentReport's pose/mode to the record,
// marking it seen at now. Returns false if the agent is unknown.
func (r *Registry) UpdateReport(id sim.AgentID, pose sim.Pose, mode sim.AgentMode, now time.Time) bool {
	r.mu.RLock()
	e, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	e.mu.Lock()
	e.record.LastPose = pose
	e.record.Mode = mode
	e.record.LastSeen = now
	e.record.HasStream = true
	e.mu.Unlock()
	return true
}

// SetPendingTask installs t as the agent's next assigned task. Used only
// by the task allocator, which is read-only on everything else.
func (r *Registry) SetPendingTask(id sim.AgentID, t sim.Task) {
	r.mu.RLock()
	e, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return
	}
	e.mu.Lock()
	e.record.PendingTask = &t
	e.mu.Unlock()
}

// TakePendingTask returns and clears the agent's pending task, if any.
func (r *Registry) TakePendingTask(id sim.AgentID) (sim.Task, bool) {
	r.mu.RLock()
	e, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return sim.Task{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.record.PendingTask == nil {
		return sim.Task{}, false
	}
	t := *e.record.PendingTask
	e.record.PendingTask = nil
	return t, true
}

// Snapshot returns a copy of every live AgentRecord, for the task
// allocator and for WorldSnapshot construction.
func (r *Registry) Snapshot() []sim.AgentRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]sim.AgentRecord, 0, len(r.byID))
	for _, e := range r.byID {
		e.mu.Lock()
		out = append(out, *e.record)
		e.mu.Unlock()
	}
	return out
}

// StreamEnded marks id Disconnected and schedules deletion after the
// grace period unless a matching Register arrives first.
func (r *Registry) StreamEnded(id sim.AgentID) {
	r.mu.RLock()
	e, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return
	}

	e.mu.Lock()
	if e.record.Mode == sim.AgentModeDisconnected {
		e.mu.Unlock()
		return
	}
	e.record.Mode = sim.AgentModeDisconnected
	e.record.HasStream = false
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.mu.Unlock()

	go r.expireAfterGrace(ctx, id)
}

func (r *Registry) expireAfterGrace(ctx context.Context, id sim.AgentID) {
	t := time.NewTimer(r.grace)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return
	case <-t.C:
	}

	r.mu.Lock()
	e, ok := r.byID[id]
	if ok {
		delete(r.byID, id)
		delete(r.bySess, e.record.SessionID)
	}
	r.mu.Unlock()

	if ok && r.onExpire != nil {
		r.onExpire(id)
	}
}

// SweepStale runs StreamEnded for every connected agent whose LastSeen is
// older than staleAfter: the record is marked Disconnected, HasStream is
// cleared and the grace-period timer starts. The agent's ReportState RPC
// itself is not closed. Called on a T_sweep timer by the liveness
// sweeper.
func (r *Registry) SweepStale(now time.Time, staleAfter time.Duration) {
	for _, rec := range r.Snapshot() {
		if rec.Mode == sim.AgentModeDisconnected {
			continue
		}
		if now.Sub(rec.LastSeen) > staleAfter {
			r.StreamEnded(rec.ID)
		}
	}
}

// Len reports the number of live (not yet grace-expired) records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
