package mask

import (
	"errors"
	"testing"
)

func TestUnionInPlaceReturnsAddedCount(t *testing.T) {
	a := New()
	a.Add(1)
	a.Add(2)
	a.Add(3)

	b := New()
	b.Add(3)
	b.Add(4)
	b.Add(5)

	added := a.UnionInPlace(b)
	if added != 2 {
		t.Fatalf("expected 2 newly-added IDs, got %d", added)
	}
	if a.Cardinality() != 5 {
		t.Fatalf("expected cardinality 5, got %d", a.Cardinality())
	}
}

func TestUnionInPlaceIdempotent(t *testing.T) {
	a := New()
	a.Add(1)
	a.Add(2)
	a.Add(3)
	b := a.Clone()

	first := a.UnionInPlace(b)
	second := a.UnionInPlace(b)

	if first != 0 {
		t.Fatalf("unioning with a clone of self should add nothing, got %d", first)
	}
	if second != 0 {
		t.Fatalf("repeated union should stay idempotent, got %d", second)
	}
}

func TestResetClearsCardinality(t *testing.T) {
	m := New()
	m.Add(7)
	m.Add(8)
	m.Add(9)
	m.Reset()
	if m.Cardinality() != 0 {
		t.Fatalf("expected 0 after Reset, got %d", m.Cardinality())
	}
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	m := New()
	m.Add(10)
	m.Add(20)
	m.Add(30)
	m.Add(1 << 20)

	b, err := m.Serialize()
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	out, err := DeserializeInto(b)
	if err != nil {
		t.Fatalf("DeserializeInto failed: %v", err)
	}
	if out.Cardinality() != m.Cardinality() {
		t.Fatalf("round trip cardinality mismatch: got %d want %d", out.Cardinality(), m.Cardinality())
	}
}

func TestDeserializeIntoMalformedInputReturnsErrDeserialize(t *testing.T) {
	_, err := DeserializeInto([]byte{0xFF, 0xFF, 0xFF})
	if !errors.Is(err, ErrDeserialize) {
		t.Fatalf("expected an ErrDeserialize-wrapped error for malformed input, got %v", err)
	}
}

func TestSnapshotContainsAndCardinality(t *testing.T) {
	m := New()
	m.Add(42)
	snap := m.Snapshot()

	if !snap.Contains(42) {
		t.Fatal("expected snapshot to contain 42")
	}
	if snap.Contains(43) {
		t.Fatal("expected snapshot not to contain 43")
	}
	if snap.Cardinality() != 1 {
		t.Fatalf("expected cardinality 1, got %d", snap.Cardinality())
	}
}

func TestSnapshotIsIndependentOfSourceMutation(t *testing.T) {
	m := New()
	m.Add(1)
	snap := m.Snapshot()

	m.Add(2)

	if snap.Contains(2) {
		t.Fatal("snapshot must not observe mutations made to the live mask after it was taken")
	}
}

func TestCoverageRatioBoundaries(t *testing.T) {
	empty := EmptySnapshot()
	if r := empty.CoverageRatio(0); r != 0 {
		t.Fatalf("expected 0 coverage ratio when totalPoints is 0, got %v", r)
	}

	m := New()
	m.Add(1)
	m.Add(2)
	full := m.Snapshot()
	if r := full.CoverageRatio(2); r != 1.0 {
		t.Fatalf("expected coverage ratio 1.0 when every point is revealed, got %v", r)
	}
	if r := full.CoverageRatio(4); r != 0.5 {
		t.Fatalf("expected coverage ratio 0.5, got %v", r)
	}
}
