package server

import (
	"context"
	"fasolink-chat/auth"
	"fasolink-chat/domain"
	"fasolink-chat/errors"
	pb "fasolink-chat/proto/realtime"
	"fasolink-chat/services"
	"log/slog"

	"github.com/samber/lo"
)

// OperatorServer opens conversations and manages user credentials on a running server.
type OperatorServer struct {
	pb.UnimplementedOperatorServer
	operator services.IOperatorService
	log      *slog.Logger
}

func NewOperatorServer(log *slog.Logger, operator services.IOperatorService) *OperatorServer {
	return &OperatorServer{operator: operator, log: log}
}

func (s *OperatorServer) StartConversation(ctx context.Context, req *pb.StartConversationRequest) (*pb.StartConversationResponse, error) {
	conversation, created, err := s.operator.StartConversation(ctx, services.StartConversationCommand{
		ListingID:    req.ListingID,
		Participants: lo.Map(req.Participants, func(id int64, _ int) domain.UserID { return domain.UserID(id) }),
	})
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	s.logCaller(ctx, "StartConversation", "conversation_id", conversation.ID, "created", created)
	return &pb.StartConversationResponse{
		Conversation: pb.Conversation{
			ID:           int64(conversation.ID),
			ListingID:    conversation.ListingID,
			Participants: lo.Map(conversation.Participants, func(id domain.UserID, _ int) int64 { return int64(id) }),
			CreatedAt:    conversation.CreatedAt.UTC(),
		},
		Created: created,
	}, nil
}

func (s *OperatorServer) IssueToken(ctx context.Context, req *pb.IssueTokenRequest) (*pb.IssueTokenResponse, error) {
	issued, err := s.operator.IssueToken(ctx, services.IssueTokenCommand{
		UserID:   domain.UserID(req.UserID),
		Username: req.Username,
	})
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	s.logCaller(ctx, "IssueToken", "user_id", req.UserID, "opaque", issued.Opaque)
	res := &pb.IssueTokenResponse{Token: issued.Token, Opaque: issued.Opaque}
	if !issued.ExpiresAt.IsZero() {
		res.ExpiresAt = lo.ToPtr(issued.ExpiresAt)
	}
	return res, nil
}

func (s *OperatorServer) RevokeToken(ctx context.Context, req *pb.RevokeTokenRequest) (*pb.RevokeTokenResponse, error) {
	if err := s.operator.RevokeToken(ctx, req.Token); err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	s.logCaller(ctx, "RevokeToken")
	return &pb.RevokeTokenResponse{Revoked: true}, nil
}

func (s *OperatorServer) logCaller(ctx context.Context, method string, args ...any) {
	principal, _ := auth.PrincipalFromContext(ctx)
	s.log.Info("Operator request served", append([]any{"method", method, "caller", principal.Username}, args...)...)
}
