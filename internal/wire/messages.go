// Package wire defines the control-plane RPC message shapes and binds
// them to a real google.golang.org/grpc transport through a hand-written
// codec (see codec.go) instead of protoc-generated bindings — this
// environment cannot run protoc, and a hand-authored FileDescriptorProto
// byte blob would not actually decode. The gob codec matches struct
// fields by name, so decoding an older payload into a newer struct (or
// vice versa) degrades to zero-valued or ignored fields rather than
// failing, matching the
// "additive-only evolution" discipline spec.md calls for.
package wire

// SchemaVersion is the only version ever produced by this release.
const SchemaVersion = 1

// AgentMode mirrors sim.AgentMode on the wire as a plain int32 so this
// package has no dependency on internal/sim.
type AgentMode int32

// Vec3 is a three-component ECEF vector.
type Vec3 struct {
	X, Y, Z float64
}

// Quaternion is a unit-norm orientation.
type Quaternion struct {
	X, Y, Z, W float64
}

// AgentState is an agent's kinematic + behavioural sample, as carried
// both inside an AgentReport and inside a WorldState broadcast.
type AgentState struct {
	AgentID       uint64
	TimestampMs   int64
	Position      Vec3
	Velocity      Vec3
	Orientation   Quaternion
	Mode          AgentMode
	Sequence      uint32
	SchemaVersion uint32
}

// AgentReport is one client->server message on the ReportState stream.
type AgentReport struct {
	AgentID                    uint64
	TimestampMs                int64
	State                      AgentState
	DiscoveredPointIDsPortable []byte
}

// Task is a single ECEF waypoint.
type Task struct {
	Waypoint Vec3
}

// ReportStateResponse is one server->client message on the ReportState
// stream. HasTask is false for the common case of "no new task".
type ReportStateResponse struct {
	HasTask bool
	Task    Task
}

// RegisterAgentRequest is the unary RegisterAgent request.
type RegisterAgentRequest struct {
	SessionID [16]byte
}

// RegisterAgentResponse is the unary RegisterAgent response.
type RegisterAgentResponse struct {
	AgentID         uint64
	ServerTimeMs    int64
	ReportIntervalMs int64
	MaxReportBytes  int64
}

// SubscribeWorldStateRequest has no fields today; kept as a struct (not
// an empty interface) so a future field is additive.
type SubscribeWorldStateRequest struct{}

// WorldState is the broadcast record streamed to viewers.
type WorldState struct {
	TimestampMs       int64
	Agents            []AgentState
	RevealMaskTicket  []byte
	MapCoverageRatio  float64
	SchemaVersion     uint32
}

// IssueCommandKind discriminates the IssueCommandRequest one-of.
type IssueCommandKind int32

// Command kinds.
const (
	CommandUnspecified IssueCommandKind = iota
	CommandStartSurvey
	CommandResetSimulation
)

// IssueCommandRequest is the unary IssueCommand request.
type IssueCommandRequest struct {
	Kind IssueCommandKind
}

// IssueCommandResponse is the unary IssueCommand response. It never
// fails the RPC; failures are reported in Message with Acknowledged
// false.
type IssueCommandResponse struct {
	Acknowledged bool
	Message      string
}
