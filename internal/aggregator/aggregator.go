// Package aggregator implements the Reveal Aggregator (C2): the single
// authoritative live RevealMask, merged into by every agent report.
package aggregator

import (
	"sync"

	"github.com/reconsim/orchestrator/internal/mask"
)

// MergeOutcome reports the effect of a single merge call.
type MergeOutcome struct {
	Added          uint64
	NewCardinality uint64
	Changed        bool
}

// Aggregator owns the live mask behind a reader/writer lock: merge and
// reset are short exclusive writers; Snapshot/Cardinality are rare
// readers (teacher: controller/api/destination/watcher uses the same
// RWMutex-per-smallest-unit discipline).
type Aggregator struct {
	mu   sync.RWMutex
	live *mask.RevealMask
}

// New returns an aggregator with an empty live mask.
func New() *Aggregator {
	return &Aggregator{live: mask.New()}
}

// Merge deserializes b as a portable-format bitmap and unions it into the
// live mask in place. A malformed b leaves the live mask untouched and
// returns mask.ErrDeserialize.
func (a *Aggregator) Merge(b []byte) (MergeOutcome, error) {
	incoming, err := mask.DeserializeInto(b)
	if err != nil {
		return MergeOutcome{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	added := a.live.UnionInPlace(incoming)
	newCard := a.live.Cardinality()
	return MergeOutcome{
		Added:          added,
		NewCardinality: newCard,
		Changed:        added > 0,
	}, nil
}

// Snapshot clones the live mask into an immutable Snapshot.
func (a *Aggregator) Snapshot() *mask.Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.live.Snapshot()
}

// Cardinality returns the current live cardinality.
func (a *Aggregator) Cardinality() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.live.Cardinality()
}

// Reset replaces the live mask with an empty one.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.live.Reset()
}
