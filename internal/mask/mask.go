// Package mask implements the global reveal mask: a compressed sparse set
// of point IDs backed by a Roaring bitmap, plus the immutable snapshot
// type handed out to tickets and broadcasts.
//
// Grounded on controller/api/destination/watcher/snapshot_topic.go's
// clone-on-publish discipline (teacher), adapted to wrap
// github.com/RoaringBitmap/roaring instead of a watcher address set.
package mask

import (
	"bytes"
	"fmt"

	"github.com/RoaringBitmap/roaring"

	"github.com/reconsim/orchestrator/internal/sim"
)

// RevealMask is the live, mutable global mask. It is NOT safe for
// concurrent use on its own; callers (internal/aggregator) serialise
// access with a reader/writer lock.
type RevealMask struct {
	bitmap *roaring.Bitmap
}

// New returns an empty mask.
func New() *RevealMask {
	return &RevealMask{bitmap: roaring.New()}
}

// Cardinality returns the number of distinct point IDs currently set.
func (m *RevealMask) Cardinality() uint64 {
	return m.bitmap.GetCardinality()
}

// Add sets a single point ID in the mask. Most callers only ever merge
// whole portable-format deltas via UnionInPlace; Add exists for the rare
// caller (tests, an in-process agent simulator) that needs to build a
// mask one ID at a time rather than deserializing bytes.
func (m *RevealMask) Add(id sim.PointID) {
	m.bitmap.Add(id)
}

// UnionInPlace merges other into m destructively, returning the number of
// newly-set point IDs.
func (m *RevealMask) UnionInPlace(other *RevealMask) uint64 {
	before := m.bitmap.GetCardinality()
	m.bitmap.Or(other.bitmap)
	return m.bitmap.GetCardinality() - before
}

// Reset clears the mask back to empty, in place.
func (m *RevealMask) Reset() {
	m.bitmap.Clear()
}

// Clone returns an independent deep copy suitable for publishing as a
// Snapshot. Roaring's containers are not reference-counted in this
// library version, so Clone is a real copy; it is still cheap relative
// to re-deriving the set from scratch.
func (m *RevealMask) Clone() *RevealMask {
	return &RevealMask{bitmap: m.bitmap.Clone()}
}

// Snapshot freezes the current contents of m into an immutable Snapshot.
func (m *RevealMask) Snapshot() *Snapshot {
	return &Snapshot{bitmap: m.Clone().bitmap}
}

// Serialize writes the portable (cross-language Roaring) byte format.
func (m *RevealMask) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := m.bitmap.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("mask: serialize: %w", err)
	}
	return buf.Bytes(), nil
}

// DeserializeInto decodes b into a new RevealMask. On error it returns a
// nil mask and an ErrDeserialize-wrapped error, so no partial result is
// ever handed to the caller.
func DeserializeInto(b []byte) (*RevealMask, error) {
	bm := roaring.New()
	if _, err := bm.FromBuffer(b); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDeserialize, err)
	}
	return &RevealMask{bitmap: bm}, nil
}

// ErrDeserialize is wrapped by DeserializeInto when the input bytes are
// not a valid portable bitmap.
var ErrDeserialize = fmt.Errorf("mask: malformed portable bitmap")

// Snapshot is an immutable reference to a RevealMask value at a moment
// in time. It is safe to share across goroutines and across the
// lifetime of a Ticket.
type Snapshot struct {
	bitmap *roaring.Bitmap
}

// EmptySnapshot returns the snapshot published by Reset.
func EmptySnapshot() *Snapshot {
	return &Snapshot{bitmap: roaring.New()}
}

// Cardinality is the number of point IDs contained in the snapshot.
func (s *Snapshot) Cardinality() uint64 {
	if s == nil || s.bitmap == nil {
		return 0
	}
	return s.bitmap.GetCardinality()
}

// Serialize writes the portable byte format of the frozen bitmap.
func (s *Snapshot) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := s.bitmap.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("mask: serialize snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// Contains reports whether id is present in the snapshot; used by the
// task allocator to skip revealed points, and by tests.
func (s *Snapshot) Contains(id sim.PointID) bool {
	return s.bitmap.Contains(id)
}

// CoverageRatio divides the snapshot cardinality by the total point
// cloud cardinality n. Returns exactly 0.0 or 1.0 at the boundaries.
func (s *Snapshot) CoverageRatio(n uint64) float64 {
	if n == 0 {
		return 0
	}
	return float64(s.Cardinality()) / float64(n)
}
