package services

import (
	"context"
	"fasolink-chat/auth"
	"fasolink-chat/contract"
	"fasolink-chat/domain"
	"fasolink-chat/errors"
	"fasolink-chat/runtime"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"
)

type IOperatorService interface {
	StartConversation(ctx context.Context, cmd StartConversationCommand) (domain.Conversation, bool, error)
	IssueToken(ctx context.Context, cmd IssueTokenCommand) (IssuedToken, error)
	RevokeToken(ctx context.Context, token string) error
}

type StartConversationCommand struct {
	ListingID    int64           `validate:"gt=0"`
	Participants []domain.UserID `validate:"min=2,dive,gt=0"`
}

type IssueTokenCommand struct {
	UserID   domain.UserID `validate:"gt=0"`
	Username string        `validate:"required"`
}

// IssuedToken is handed to the user once. A zero ExpiresAt never expires.
type IssuedToken struct {
	Token     string
	Opaque    bool
	ExpiresAt time.Time
}

// OperatorService backs the operator RPCs.
// Without a token store it falls back to signed tokens, which cannot be revoked.
type OperatorService struct {
	conversations contract.ConversationStore
	tokens        contract.TokenStore
	issuer        *auth.TokenIssuer
	publisher     *runtime.Publisher
	log           *slog.Logger
	tokenTTL      time.Duration
	now           func() time.Time
}

func NewOperatorService(
	log *slog.Logger,
	conversations contract.ConversationStore,
	tokens contract.TokenStore,
	issuer *auth.TokenIssuer,
	publisher *runtime.Publisher,
	tokenTTL time.Duration,
) *OperatorService {
	return &OperatorService{
		conversations: conversations,
		tokens:        tokens,
		issuer:        issuer,
		publisher:     publisher,
		log:           log,
		tokenTTL:      tokenTTL,
		now:           time.Now,
	}
}

// StartConversation finds or creates the conversation of a listing between the participants.
// Participants of a new conversation are told on their notification channel.
func (s *OperatorService) StartConversation(ctx context.Context, cmd StartConversationCommand) (domain.Conversation, bool, error) {
	cmd.Participants = lo.Uniq(cmd.Participants)
	if err := auth.ValidateStruct(cmd); err != nil {
		return domain.Conversation{}, false, err
	}
	conversation, created, err := s.conversations.StartConversation(ctx, cmd.ListingID, cmd.Participants)
	if err != nil {
		s.log.Error("Conversation not started", "listing_id", cmd.ListingID, "error", err)
		return domain.Conversation{}, false, err
	}
	if !created {
		return conversation, false, nil
	}

	s.log.Info("Conversation started", "conversation_id", conversation.ID, "listing_id", cmd.ListingID,
		"participants", len(conversation.Participants))
	notification := conversationUpdated(conversation.ID)
	for _, userID := range conversation.Participants {
		s.publisher.PublishUserNotification(ctx, userID, notification)
	}
	return conversation, true, nil
}

// IssueToken mints a user credential valid for the configured duration.
func (s *OperatorService) IssueToken(ctx context.Context, cmd IssueTokenCommand) (IssuedToken, error) {
	if err := auth.ValidateStruct(cmd); err != nil {
		return IssuedToken{}, err
	}
	principal := domain.Principal{ID: cmd.UserID, Username: cmd.Username}
	var expiresAt time.Time
	if s.tokenTTL > 0 {
		expiresAt = s.now().UTC().Add(s.tokenTTL)
	}

	if s.tokens == nil {
		if s.tokenTTL <= 0 {
			return IssuedToken{}, fmt.Errorf("%w: signed tokens need a positive duration", errors.ErrValidation)
		}
		token, err := s.issuer.GenerateToken(principal, nil, s.tokenTTL)
		if err != nil {
			return IssuedToken{}, err
		}
		return IssuedToken{Token: token, ExpiresAt: expiresAt}, nil
	}

	token, err := s.tokens.Create(ctx, principal, s.tokenTTL)
	if err != nil {
		s.log.Error("Token not issued", "user_id", cmd.UserID, "error", err)
		return IssuedToken{}, err
	}
	return IssuedToken{Token: token, Opaque: true, ExpiresAt: expiresAt}, nil
}

// RevokeToken deletes an opaque token. Revoking an unknown token succeeds.
func (s *OperatorService) RevokeToken(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("%w: token is required", errors.ErrValidation)
	}
	if s.tokens == nil {
		return fmt.Errorf("%w: no token store, signed tokens expire on their own", errors.ErrValidation)
	}
	return s.tokens.Revoke(ctx, token)
}
