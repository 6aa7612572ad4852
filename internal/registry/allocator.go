package registry

import (
	"github.com/reconsim/orchestrator/internal/mask"
	"github.com/reconsim/orchestrator/internal/sim"
)

// maxFrontierCandidates bounds how many unrevealed point IDs the
// allocator samples per call; the global point cloud may be far larger
// than is useful to scan on every report.
const maxFrontierCandidates = 256

// Allocate is a pure function of a read-only view of state: it never
// mutates the mask or any AgentRecord, and never assigns the same
// waypoint to two agents within one call. It is the reference greedy
// nearest-frontier allocator spec.md §4.3 calls "sufficient".
//
// agents is the set of AwaitingTask agents to consider; revealed is the
// current mask snapshot; totalPoints is the point cloud's cardinality.
func Allocate(agents []sim.AgentRecord, revealed *mask.Snapshot, totalPoints uint64) map[sim.AgentID]sim.Task {
	out := make(map[sim.AgentID]sim.Task, len(agents))
	if len(agents) == 0 || totalPoints == 0 {
		return out
	}

	candidates := frontierCandidates(revealed, totalPoints, maxFrontierCandidates)
	if len(candidates) == 0 {
		return out
	}

	claimed := make(map[int]bool, len(candidates))
	for _, a := range agents {
		bestIdx := -1
		bestDist := 0.0
		for i, c := range candidates {
			if claimed[i] {
				continue
			}
			d := sim.Distance(a.LastPose.Position, c.pos)
			if bestIdx == -1 || d < bestDist {
				bestIdx, bestDist = i, d
			}
		}
		if bestIdx == -1 {
			break // every candidate already claimed this call
		}
		claimed[bestIdx] = true
		out[a.ID] = sim.Task{Waypoint: candidates[bestIdx].pos}
	}
	return out
}

type candidate struct {
	id  sim.PointID
	pos sim.Vec3
}

// frontierCandidates collects up to limit point IDs not present in
// revealed, scanning upward from 0 through at most limit*64 IDs. "Frontier" is left to the
// implementation by spec.md's glossary; this picks unrevealed IDs
// directly, which is a valid (if naive) reading of "unlikely to have
// been observed yet".
func frontierCandidates(revealed *mask.Snapshot, totalPoints uint64, limit int) []candidate {
	out := make([]candidate, 0, limit)
	maxScan := totalPoints
	if scanCap := uint64(limit) * 64; scanCap < maxScan {
		maxScan = scanCap // bound worst-case scan when a dense revealed prefix exists
	}
	for id := sim.PointID(0); uint64(id) < maxScan && len(out) < limit; id++ {
		if revealed != nil && revealed.Contains(id) {
			continue
		}
		out = append(out, candidate{id: id, pos: sim.PointPosition(id)})
	}
	return out
}
