package realtime

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	ServiceName                             = "fasolink.realtime.v1.Publisher"
	Publisher_PublishMessage_FullMethodName = "/" + ServiceName + "/PublishMessage"
	Publisher_PublishRead_FullMethodName    = "/" + ServiceName + "/PublishRead"
	Publisher_NotifyUser_FullMethodName     = "/" + ServiceName + "/NotifyUser"
)

// PublisherServer is the server API for the Publisher service.
type PublisherServer interface {
	PublishMessage(context.Context, *PublishMessageRequest) (*PublishResponse, error)
	PublishRead(context.Context, *PublishReadRequest) (*PublishResponse, error)
	NotifyUser(context.Context, *NotifyUserRequest) (*PublishResponse, error)
}

// UnimplementedPublisherServer must be embedded to have forward compatible implementations.
type UnimplementedPublisherServer struct{}

func (UnimplementedPublisherServer) PublishMessage(context.Context, *PublishMessageRequest) (*PublishResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method PublishMessage not implemented")
}

func (UnimplementedPublisherServer) PublishRead(context.Context, *PublishReadRequest) (*PublishResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method PublishRead not implemented")
}

func (UnimplementedPublisherServer) NotifyUser(context.Context, *NotifyUserRequest) (*PublishResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method NotifyUser not implemented")
}

func RegisterPublisherServer(s grpc.ServiceRegistrar, srv PublisherServer) {
	s.RegisterService(&Publisher_ServiceDesc, srv)
}

func _Publisher_PublishMessage_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(PublishMessageRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PublisherServer).PublishMessage(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Publisher_PublishMessage_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PublisherServer).PublishMessage(ctx, req.(*PublishMessageRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Publisher_PublishRead_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(PublishReadRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PublisherServer).PublishRead(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Publisher_PublishRead_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PublisherServer).PublishRead(ctx, req.(*PublishReadRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Publisher_NotifyUser_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(NotifyUserRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PublisherServer).NotifyUser(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Publisher_NotifyUser_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PublisherServer).NotifyUser(ctx, req.(*NotifyUserRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var Publisher_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PublisherServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "PublishMessage", Handler: _Publisher_PublishMessage_Handler},
		{MethodName: "PublishRead", Handler: _Publisher_PublishRead_Handler},
		{MethodName: "NotifyUser", Handler: _Publisher_NotifyUser_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "realtime/publisher",
}

// PublisherClient is the client API for the Publisher service.
type PublisherClient interface {
	PublishMessage(ctx context.Context, in *PublishMessageRequest, opts ...grpc.CallOption) (*PublishResponse, error)
	PublishRead(ctx context.Context, in *PublishReadRequest, opts ...grpc.CallOption) (*PublishResponse, error)
	NotifyUser(ctx context.Context, in *NotifyUserRequest, opts ...grpc.CallOption) (*PublishResponse, error)
}

type publisherClient struct {
	cc grpc.ClientConnInterface
}

func NewPublisherClient(cc grpc.ClientConnInterface) PublisherClient {
	return &publisherClient{cc}
}

func (c *publisherClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	return c.cc.Invoke(ctx, method, in, out, append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)...)
}

func (c *publisherClient) PublishMessage(ctx context.Context, in *PublishMessageRequest, opts ...grpc.CallOption) (*PublishResponse, error) {
	out := new(PublishResponse)
	if err := c.invoke(ctx, Publisher_PublishMessage_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *publisherClient) PublishRead(ctx context.Context, in *PublishReadRequest, opts ...grpc.CallOption) (*PublishResponse, error) {
	out := new(PublishResponse)
	if err := c.invoke(ctx, Publisher_PublishRead_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *publisherClient) NotifyUser(ctx context.Context, in *NotifyUserRequest, opts ...grpc.CallOption) (*PublishResponse, error) {
	out := new(PublishResponse)
	if err := c.invoke(ctx, Publisher_NotifyUser_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}
