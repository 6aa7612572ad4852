package registry

import (
	"testing"

	"github.com/reconsim/orchestrator/internal/mask"
	"github.com/reconsim/orchestrator/internal/sim"
)

func TestAllocateNeverDoubleAssignsAWaypoint(t *testing.T) {
	agents := []sim.AgentRecord{
		{ID: 1, LastPose: sim.Pose{Position: sim.Vec3{X: 0, Y: 0, Z: 0}}},
		{ID: 2, LastPose: sim.Pose{Position: sim.Vec3{X: 0, Y: 0, Z: 0}}},
		{ID: 3, LastPose: sim.Pose{Position: sim.Vec3{X: 0, Y: 0, Z: 0}}},
	}

	tasks := Allocate(agents, mask.EmptySnapshot(), 1000)
	if len(tasks) != len(agents) {
		t.Fatalf("expected every agent to receive a task, got %d of %d", len(tasks), len(agents))
	}

	seen := make(map[sim.Vec3]bool)
	for _, task := range tasks {
		if seen[task.Waypoint] {
			t.Fatalf("waypoint %+v was assigned to more than one agent", task.Waypoint)
		}
		seen[task.Waypoint] = true
	}
}

func TestAllocateReturnsEmptyForNoAgentsOrEmptyPointCloud(t *testing.T) {
	if tasks := Allocate(nil, mask.EmptySnapshot(), 100); len(tasks) != 0 {
		t.Fatalf("expected no tasks for zero agents, got %d", len(tasks))
	}
	agents := []sim.AgentRecord{{ID: 1}}
	if tasks := Allocate(agents, mask.EmptySnapshot(), 0); len(tasks) != 0 {
		t.Fatalf("expected no tasks when totalPoints is 0, got %d", len(tasks))
	}
}

func TestAllocateSkipsFullyRevealedPointCloud(t *testing.T) {
	m := mask.New()
	for id := sim.PointID(0); id < 10; id++ {
		m.Add(id)
	}
	agents := []sim.AgentRecord{{ID: 1}}

	tasks := Allocate(agents, m.Snapshot(), 10)
	if len(tasks) != 0 {
		t.Fatalf("expected no candidates once every point is revealed, got %d", len(tasks))
	}
}

func TestAllocateIsPureAndDoesNotMutateInputs(t *testing.T) {
	m := mask.New()
	m.Add(5)
	snap := m.Snapshot()
	before := snap.Cardinality()

	agents := []sim.AgentRecord{{ID: 1}}
	_ = Allocate(agents, snap, 100)

	if snap.Cardinality() != before {
		t.Fatal("Allocate must not mutate the mask snapshot it was given")
	}
}
