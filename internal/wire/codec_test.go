package wire

import "testing"

func TestGobCodecRoundTripsAgentReport(t *testing.T) {
	c := gobCodec{}
	in := &AgentReport{
		AgentID:     42,
		TimestampMs: 1000,
		State: AgentState{
			AgentID:       42,
			TimestampMs:   1000,
			Position:      Vec3{X: 1, Y: 2, Z: 3},
			Orientation:   Quaternion{W: 1},
			Mode:          AgentMode(CommandStartSurvey),
			Sequence:      5,
			SchemaVersion: SchemaVersion,
		},
		DiscoveredPointIDsPortable: []byte{1, 2, 3, 4},
	}

	b, err := c.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	out := new(AgentReport)
	if err := c.Unmarshal(b, out); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if out.AgentID != in.AgentID || out.State.Sequence != in.State.Sequence {
		t.Fatalf("round trip mismatch: got %+v want %+v", out, in)
	}
	if len(out.DiscoveredPointIDsPortable) != len(in.DiscoveredPointIDsPortable) {
		t.Fatalf("expected portable payload to round-trip, got %v", out.DiscoveredPointIDsPortable)
	}
}

func TestGobCodecUnmarshalRejectsGarbage(t *testing.T) {
	c := gobCodec{}
	out := new(AgentReport)
	if err := c.Unmarshal([]byte("not a gob stream"), out); err == nil {
		t.Fatal("expected an error unmarshaling a non-gob payload")
	}
}

func TestGobCodecNameIsProto(t *testing.T) {
	if (gobCodec{}).Name() != "proto" {
		t.Fatalf("expected codec name %q, got %q", "proto", (gobCodec{}).Name())
	}
}
