package services

import (
	"context"
	"encoding/json"
	"fasolink-chat/auth"
	"fasolink-chat/contract"
	"fasolink-chat/domain"
	"fasolink-chat/errors"
	"fasolink-chat/runtime"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/samber/lo"
)

const eventConversationUpdated = "conversation.updated"

type IChatService interface {
	PostMessage(ctx context.Context, principal domain.Principal, conversationID domain.ConversationID, cmd PostMessageCommand) (domain.Message, error)
	MarkRead(ctx context.Context, principal domain.Principal, conversationID domain.ConversationID) (int, error)
	Messages(ctx context.Context, principal domain.Principal, conversationID domain.ConversationID) ([]domain.Message, error)
}

type PostMessageCommand struct {
	Content string `json:"content" validate:"required"`
}

// ChatService backs the REST paths. Persistence errors fail the call,
// broadcast failures never do.
type ChatService struct {
	gateway          contract.Gateway
	history          contract.MessageHistory
	publisher        *runtime.Publisher
	log              *slog.Logger
	maxContentLength int
}

func NewChatService(
	log *slog.Logger,
	gateway contract.Gateway,
	history contract.MessageHistory,
	publisher *runtime.Publisher,
	maxContentLength int,
) *ChatService {
	return &ChatService{
		gateway:          gateway,
		history:          history,
		publisher:        publisher,
		log:              log,
		maxContentLength: maxContentLength,
	}
}

// authorize returns the conversation participants once the principal is known to be one of them.
func (s *ChatService) authorize(ctx context.Context, principal domain.Principal, conversationID domain.ConversationID) ([]domain.UserID, error) {
	if principal.IsAnonymous() {
		return nil, errors.ErrUnauthenticated
	}
	participants, err := s.gateway.Participants(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !lo.Contains(participants, principal.ID) {
		return nil, errors.ErrNotParticipant
	}
	return participants, nil
}

// PostMessage stores the message, broadcasts it to the conversation and tells every
// other participant that the conversation changed.
func (s *ChatService) PostMessage(
	ctx context.Context,
	principal domain.Principal,
	conversationID domain.ConversationID,
	cmd PostMessageCommand,
) (domain.Message, error) {
	participants, err := s.authorize(ctx, principal, conversationID)
	if err != nil {
		return domain.Message{}, err
	}

	cmd.Content = domain.NormalizeContent(cmd.Content)
	if err := auth.ValidateStruct(cmd); err != nil {
		return domain.Message{}, err
	}
	if s.maxContentLength > 0 && utf8.RuneCountInString(cmd.Content) > s.maxContentLength {
		return domain.Message{}, fmt.Errorf("%w: content longer than %d characters", errors.ErrValidation, s.maxContentLength)
	}

	msg, err := s.gateway.CreateMessage(ctx, principal, conversationID, cmd.Content)
	if err != nil {
		s.log.Error("Message not persisted", "conversation_id", conversationID, "user_id", principal.ID, "error", err)
		return domain.Message{}, err
	}

	s.publisher.PublishConversationMessage(ctx, conversationID, msg)
	notification := conversationUpdated(conversationID)
	for _, userID := range lo.Without(participants, principal.ID) {
		s.publisher.PublishUserNotification(ctx, userID, notification)
	}
	return msg, nil
}

// MarkRead marks every unread message as read for the principal and broadcasts the receipt.
func (s *ChatService) MarkRead(ctx context.Context, principal domain.Principal, conversationID domain.ConversationID) (int, error) {
	if _, err := s.authorize(ctx, principal, conversationID); err != nil {
		return 0, err
	}
	updated, err := s.gateway.MarkUnreadAsRead(ctx, principal.ID, conversationID)
	if err != nil {
		s.log.Error("Read markers not persisted", "conversation_id", conversationID, "user_id", principal.ID, "error", err)
		return 0, err
	}
	s.publisher.PublishConversationRead(ctx, conversationID, principal.ID, updated)
	return updated, nil
}

// Messages returns the whole history, oldest first.
func (s *ChatService) Messages(ctx context.Context, principal domain.Principal, conversationID domain.ConversationID) ([]domain.Message, error) {
	if _, err := s.authorize(ctx, principal, conversationID); err != nil {
		return nil, err
	}
	return s.history.Messages(ctx, conversationID)
}

func conversationUpdated(conversationID domain.ConversationID) json.RawMessage {
	data, _ := json.Marshal(struct {
		Event          string                `json:"event"`
		ConversationID domain.ConversationID `json:"conversation_id"`
	}{eventConversationUpdated, conversationID})
	return data
}
