package realtime

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	OperatorServiceName                       = "fasolink.realtime.v1.Operator"
	Operator_StartConversation_FullMethodName = "/" + OperatorServiceName + "/StartConversation"
	Operator_IssueToken_FullMethodName        = "/" + OperatorServiceName + "/IssueToken"
	Operator_RevokeToken_FullMethodName       = "/" + OperatorServiceName + "/RevokeToken"
)

// OperatorServer is the server API for the Operator service.
type OperatorServer interface {
	StartConversation(context.Context, *StartConversationRequest) (*StartConversationResponse, error)
	IssueToken(context.Context, *IssueTokenRequest) (*IssueTokenResponse, error)
	RevokeToken(context.Context, *RevokeTokenRequest) (*RevokeTokenResponse, error)
}

// UnimplementedOperatorServer must be embedded to have forward compatible implementations.
type UnimplementedOperatorServer struct{}

func (UnimplementedOperatorServer) StartConversation(context.Context, *StartConversationRequest) (*StartConversationResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method StartConversation not implemented")
}

func (UnimplementedOperatorServer) IssueToken(context.Context, *IssueTokenRequest) (*IssueTokenResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method IssueToken not implemented")
}

func (UnimplementedOperatorServer) RevokeToken(context.Context, *RevokeTokenRequest) (*RevokeTokenResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RevokeToken not implemented")
}

func RegisterOperatorServer(s grpc.ServiceRegistrar, srv OperatorServer) {
	s.RegisterService(&Operator_ServiceDesc, srv)
}

func _Operator_StartConversation_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(StartConversationRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OperatorServer).StartConversation(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Operator_StartConversation_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OperatorServer).StartConversation(ctx, req.(*StartConversationRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Operator_IssueToken_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(IssueTokenRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OperatorServer).IssueToken(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Operator_IssueToken_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OperatorServer).IssueToken(ctx, req.(*IssueTokenRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Operator_RevokeToken_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(RevokeTokenRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OperatorServer).RevokeToken(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Operator_RevokeToken_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OperatorServer).RevokeToken(ctx, req.(*RevokeTokenRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var Operator_ServiceDesc = grpc.ServiceDesc{
	ServiceName: OperatorServiceName,
	HandlerType: (*OperatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "StartConversation", Handler: _Operator_StartConversation_Handler},
		{MethodName: "IssueToken", Handler: _Operator_IssueToken_Handler},
		{MethodName: "RevokeToken", Handler: _Operator_RevokeToken_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "realtime/operator",
}

// OperatorClient is the client API for the Operator service.
type OperatorClient interface {
	StartConversation(ctx context.Context, in *StartConversationRequest, opts ...grpc.CallOption) (*StartConversationResponse, error)
	IssueToken(ctx context.Context, in *IssueTokenRequest, opts ...grpc.CallOption) (*IssueTokenResponse, error)
	RevokeToken(ctx context.Context, in *RevokeTokenRequest, opts ...grpc.CallOption) (*RevokeTokenResponse, error)
}

type operatorClient struct {
	cc grpc.ClientConnInterface
}

func NewOperatorClient(cc grpc.ClientConnInterface) OperatorClient {
	return &operatorClient{cc}
}

func (c *operatorClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	return c.cc.Invoke(ctx, method, in, out, append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)...)
}

func (c *operatorClient) StartConversation(ctx context.Context, in *StartConversationRequest, opts ...grpc.CallOption) (*StartConversationResponse, error) {
	out := new(StartConversationResponse)
	if err := c.invoke(ctx, Operator_StartConversation_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *operatorClient) IssueToken(ctx context.Context, in *IssueTokenRequest, opts ...grpc.CallOption) (*IssueTokenResponse, error) {
	out := new(IssueTokenResponse)
	if err := c.invoke(ctx, Operator_IssueToken_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *operatorClient) RevokeToken(ctx context.Context, in *RevokeTokenRequest, opts ...grpc.CallOption) (*RevokeTokenResponse, error) {
	out := new(RevokeTokenResponse)
	if err := c.invoke(ctx, Operator_RevokeToken_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}
