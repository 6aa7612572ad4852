// Package sim holds the data model shared by every coordination-core
// component: agent identity, pose, task, and the point-cloud index space
// that the reveal mask ranges over.
package sim

import "time"

// AgentID is allocated monotonically by the registry and never reused
// within a process lifetime.
type AgentID uint64

// SessionID is an opaque identifier an agent supplies at registration,
// used only for logging and for disambiguating duplicate registration
// attempts from the same process.
type SessionID [16]byte

// PointID indexes into the fixed global point cloud.
type PointID = uint32

// AgentMode is the coarse-grained behavioural state of an agent.
type AgentMode int32

// Agent modes, in the order an agent is expected to move through them.
const (
	AgentModeUnspecified AgentMode = iota
	AgentModeAwaitingTask
	AgentModePlanning
	AgentModeNavigating
	AgentModePerceiving
	AgentModeDisconnected
)

func (m AgentMode) String() string {
	switch m {
	case AgentModeAwaitingTask:
		return "AwaitingTask"
	case AgentModePlanning:
		return "Planning"
	case AgentModeNavigating:
		return "Navigating"
	case AgentModePerceiving:
		return "Perceiving"
	case AgentModeDisconnected:
		return "Disconnected"
	default:
		return "Unspecified"
	}
}

// Vec3 is a three-component ECEF vector (position or velocity), in metres
// or metres/second depending on context.
type Vec3 struct {
	X, Y, Z float64
}

// Quaternion is a unit-norm orientation, canonicalised to the w>=0
// hemisphere by the producer.
type Quaternion struct {
	X, Y, Z, W float64
}

// Pose is a single agent's kinematic sample.
type Pose struct {
	Position      Vec3
	Velocity      Vec3
	Orientation   Quaternion
	TimestampMs   int64
	Sequence      uint32
}

// Task is a single ECEF waypoint assigned to an agent.
type Task struct {
	Waypoint Vec3
}

// AgentRecord is the registry's view of one agent. The zero value is not
// meaningful; use NewAgentRecord.
type AgentRecord struct {
	ID          AgentID
	SessionID   SessionID
	LastPose    Pose
	Mode        AgentMode
	LastSeen    time.Time
	HasStream   bool
	PendingTask *Task
}

// NewAgentRecord builds the record created on a successful RegisterAgent.
func NewAgentRecord(id AgentID, session SessionID, now time.Time) *AgentRecord {
	return &AgentRecord{
		ID:        id,
		SessionID: session,
		Mode:      AgentModeAwaitingTask,
		LastSeen:  now,
	}
}
