package server

import (
	"context"
	"fasolink-chat/auth"
	"fasolink-chat/domain"
	"fasolink-chat/errors"
	pb "fasolink-chat/proto/realtime"
	"fasolink-chat/runtime"
	"fasolink-chat/services"
	"log/slog"

	grpclog "github.com/mama165/sdk-go/grpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// PublisherServer lets other backend services push events into live groups.
// Every call is accepted once validated, delivery stays best-effort.
type PublisherServer struct {
	pb.UnimplementedPublisherServer
	publisher *runtime.Publisher
	log       *slog.Logger
}

func NewPublisherServer(log *slog.Logger, publisher *runtime.Publisher) *PublisherServer {
	return &PublisherServer{publisher: publisher, log: log}
}

// NewGRPCServer wires the publisher and operator services, the health service and the interceptors.
func NewGRPCServer(
	log *slog.Logger,
	issuer *auth.TokenIssuer,
	publisher *runtime.Publisher,
	operator services.IOperatorService,
) (*grpc.Server, *health.Server) {
	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			grpclog.UnaryLoggingInterceptor(log),
			auth.RoleInterceptor(issuer),
		))
	pb.RegisterPublisherServer(s, NewPublisherServer(log, publisher))
	pb.RegisterOperatorServer(s, NewOperatorServer(log, operator))

	healthServer := health.NewServer()
	healthServer.SetServingStatus(pb.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(pb.OperatorServiceName, healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, healthServer)
	return s, healthServer
}

func (s *PublisherServer) PublishMessage(ctx context.Context, req *pb.PublishMessageRequest) (*pb.PublishResponse, error) {
	if err := auth.ValidateStruct(req); err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	conversationID := domain.ConversationID(req.ConversationID)
	s.publisher.PublishConversationMessage(ctx, conversationID, domain.Message{
		ID:             domain.MessageID(req.Message.ID),
		ConversationID: conversationID,
		Content:        req.Message.Content,
		SenderID:       domain.UserID(req.Message.SenderID),
		SenderDisplay:  req.Message.Sender,
		Timestamp:      req.Message.Timestamp.UTC(),
	})
	s.logCaller(ctx, "PublishMessage", "conversation_id", conversationID)
	return &pb.PublishResponse{Accepted: true}, nil
}

func (s *PublisherServer) PublishRead(ctx context.Context, req *pb.PublishReadRequest) (*pb.PublishResponse, error) {
	if err := auth.ValidateStruct(req); err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	s.publisher.PublishConversationRead(ctx, domain.ConversationID(req.ConversationID), domain.UserID(req.UserID), req.Updated)
	s.logCaller(ctx, "PublishRead", "conversation_id", req.ConversationID)
	return &pb.PublishResponse{Accepted: true}, nil
}

func (s *PublisherServer) NotifyUser(ctx context.Context, req *pb.NotifyUserRequest) (*pb.PublishResponse, error) {
	if err := auth.ValidateStruct(req); err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	s.publisher.PublishUserNotification(ctx, domain.UserID(req.UserID), req.Data)
	s.logCaller(ctx, "NotifyUser", "user_id", req.UserID)
	return &pb.PublishResponse{Accepted: true}, nil
}

func (s *PublisherServer) logCaller(ctx context.Context, method string, args ...any) {
	principal, _ := auth.PrincipalFromContext(ctx)
	s.log.Debug("Publish request accepted", append([]any{"method", method, "caller", principal.Username}, args...)...)
}
