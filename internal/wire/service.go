package wire

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully-qualified control-plane RPC service name.
const ServiceName = "reconsim.orchestrator.v1.Orchestrator"

// OrchestratorServer is the four-method control-plane RPC surface
// (spec.md §6.1). Hand-written in the shape protoc-gen-go-grpc would
// have produced, since this environment cannot invoke protoc.
type OrchestratorServer interface {
	RegisterAgent(context.Context, *RegisterAgentRequest) (*RegisterAgentResponse, error)
	ReportState(Orchestrator_ReportStateServer) error
	SubscribeWorldState(*SubscribeWorldStateRequest, Orchestrator_SubscribeWorldStateServer) error
	IssueCommand(context.Context, *IssueCommandRequest) (*IssueCommandResponse, error)
}

// Orchestrator_ReportStateServer is the server-side duplex handle for
// ReportState: reads AgentReport, writes ReportStateResponse.
type Orchestrator_ReportStateServer interface {
	Send(*ReportStateResponse) error
	Recv() (*AgentReport, error)
	grpc.ServerStream
}

type orchestratorReportStateServer struct{ grpc.ServerStream }

func (x *orchestratorReportStateServer) Send(m *ReportStateResponse) error {
	return x.ServerStream.SendMsg(m)
}

func (x *orchestratorReportStateServer) Recv() (*AgentReport, error) {
	m := new(AgentReport)
	if err := x.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Orchestrator_SubscribeWorldStateServer is the server-side send-only
// handle for SubscribeWorldState.
type Orchestrator_SubscribeWorldStateServer interface {
	Send(*WorldState) error
	grpc.ServerStream
}

type orchestratorSubscribeWorldStateServer struct{ grpc.ServerStream }

func (x *orchestratorSubscribeWorldStateServer) Send(m *WorldState) error {
	return x.ServerStream.SendMsg(m)
}

func _Orchestrator_RegisterAgent_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(RegisterAgentRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrchestratorServer).RegisterAgent(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ServiceName + "/RegisterAgent"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OrchestratorServer).RegisterAgent(ctx, req.(*RegisterAgentRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Orchestrator_IssueCommand_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(IssueCommandRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrchestratorServer).IssueCommand(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ServiceName + "/IssueCommand"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OrchestratorServer).IssueCommand(ctx, req.(*IssueCommandRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Orchestrator_ReportState_Handler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(OrchestratorServer).ReportState(&orchestratorReportStateServer{stream})
}

func _Orchestrator_SubscribeWorldState_Handler(srv interface{}, stream grpc.ServerStream) error {
	m := new(SubscribeWorldStateRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(OrchestratorServer).SubscribeWorldState(m, &orchestratorSubscribeWorldStateServer{stream})
}

// Orchestrator_ServiceDesc is registered against a *grpc.Server the same
// way pb.RegisterXServer would (teacher: controller/util/grpc.go calls
// pb.RegisterDestinationServer(s, srv)).
var Orchestrator_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OrchestratorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RegisterAgent", Handler: _Orchestrator_RegisterAgent_Handler},
		{MethodName: "IssueCommand", Handler: _Orchestrator_IssueCommand_Handler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "ReportState", Handler: _Orchestrator_ReportState_Handler, ServerStreams: true, ClientStreams: true},
		{StreamName: "SubscribeWorldState", Handler: _Orchestrator_SubscribeWorldState_Handler, ServerStreams: true},
	},
	Metadata: "orchestrator.wire",
}

// RegisterOrchestratorServer binds srv to s.
func RegisterOrchestratorServer(s grpc.ServiceRegistrar, srv OrchestratorServer) {
	s.RegisterService(&Orchestrator_ServiceDesc, srv)
}

// OrchestratorClient is the client-side surface, used by integration
// tests and by any in-process agent/viewer simulator.
type OrchestratorClient interface {
	RegisterAgent(ctx context.Context, in *RegisterAgentRequest, opts ...grpc.CallOption) (*RegisterAgentResponse, error)
	ReportState(ctx context.Context, opts ...grpc.CallOption) (Orchestrator_ReportStateClient, error)
	SubscribeWorldState(ctx context.Context, in *SubscribeWorldStateRequest, opts ...grpc.CallOption) (Orchestrator_SubscribeWorldStateClient, error)
	IssueCommand(ctx context.Context, in *IssueCommandRequest, opts ...grpc.CallOption) (*IssueCommandResponse, error)
}

type orchestratorClient struct {
	cc grpc.ClientConnInterface
}

// NewOrchestratorClient wraps cc for use against Orchestrator_ServiceDesc.
func NewOrchestratorClient(cc grpc.ClientConnInterface) OrchestratorClient {
	return &orchestratorClient{cc}
}

func (c *orchestratorClient) RegisterAgent(ctx context.Context, in *RegisterAgentRequest, opts ...grpc.CallOption) (*RegisterAgentResponse, error) {
	out := new(RegisterAgentResponse)
	if err := c.cc.Invoke(ctx, ServiceName+"/RegisterAgent", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *orchestratorClient) IssueCommand(ctx context.Context, in *IssueCommandRequest, opts ...grpc.CallOption) (*IssueCommandResponse, error) {
	out := new(IssueCommandResponse)
	if err := c.cc.Invoke(ctx, ServiceName+"/IssueCommand", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Orchestrator_ReportStateClient is the client-side duplex handle.
type Orchestrator_ReportStateClient interface {
	Send(*AgentReport) error
	Recv() (*ReportStateResponse, error)
	grpc.ClientStream
}

type orchestratorReportStateClient struct{ grpc.ClientStream }

func (c *orchestratorReportStateClient) Send(m *AgentReport) error {
	return c.ClientStream.SendMsg(m)
}

func (c *orchestratorReportStateClient) Recv() (*ReportStateResponse, error) {
	m := new(ReportStateResponse)
	if err := c.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *orchestratorClient) ReportState(ctx context.Context, opts ...grpc.CallOption) (Orchestrator_ReportStateClient, error) {
	stream, err := c.cc.NewStream(ctx, &Orchestrator_ServiceDesc.Streams[0], ServiceName+"/ReportState", opts...)
	if err != nil {
		return nil, err
	}
	return &orchestratorReportStateClient{stream}, nil
}

// Orchestrator_SubscribeWorldStateClient is the client-side receive-only
// handle.
type Orchestrator_SubscribeWorldStateClient interface {
	Recv() (*WorldState, error)
	grpc.ClientStream
}

type orchestratorSubscribeWorldStateClient struct{ grpc.ClientStream }

func (c *orchestratorSubscribeWorldStateClient) Recv() (*WorldState, error) {
	m := new(WorldState)
	if err := c.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *orchestratorClient) SubscribeWorldState(ctx context.Context, in *SubscribeWorldStateRequest, opts ...grpc.CallOption) (Orchestrator_SubscribeWorldStateClient, error) {
	stream, err := c.cc.NewStream(ctx, &Orchestrator_ServiceDesc.Streams[1], ServiceName+"/SubscribeWorldState", opts...)
	if err != nil {
		return nil, err
	}
	x := &orchestratorSubscribeWorldStateClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
