package services_test

import (
	"context"
	"fasolink-chat/domain"
	"fasolink-chat/domain/event"
	"fasolink-chat/errors"
	"fasolink-chat/mocks"
	"fasolink-chat/runtime"
	"fasolink-chat/services"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const conversationID = domain.ConversationID(5)

var (
	alice = domain.Principal{ID: 1, Username: "alice"}
	bob   = domain.Principal{ID: 2, Username: "bob"}
	carol = domain.Principal{ID: 3, Username: "carol"}
)

type fixture struct {
	service  *services.ChatService
	gateway  *mocks.MockGateway
	history  *mocks.MockMessageHistory
	registry *mocks.MockGroupRegistry
}

func newFixture(t *testing.T) fixture {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	log := slog.Default()
	gateway := mocks.NewMockGateway(ctrl)
	history := mocks.NewMockMessageHistory(ctrl)
	registry := mocks.NewMockGroupRegistry(ctrl)
	return fixture{
		service:  services.NewChatService(log, gateway, history, runtime.NewPublisher(registry, log), 20),
		gateway:  gateway,
		history:  history,
		registry: registry,
	}
}

func TestChatService_PostMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("should persist, broadcast and notify the other participants", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		persisted := domain.Message{ID: 9, ConversationID: conversationID, Content: "hello", SenderID: alice.ID, SenderDisplay: "alice", Timestamp: time.Now().UTC()}

		f.gateway.EXPECT().Participants(gomock.Any(), conversationID).Return([]domain.UserID{alice.ID, bob.ID}, nil)
		f.gateway.EXPECT().CreateMessage(gomock.Any(), alice, conversationID, "hello").Return(persisted, nil)
		f.registry.EXPECT().Send(gomock.Any(), domain.ConversationGroup(conversationID), event.MessageCreated{Message: persisted}).Return(nil)
		f.registry.EXPECT().Send(gomock.Any(), domain.UserGroup(bob.ID), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ domain.GroupName, evt event.Outbound) error {
				raw, err := evt.MarshalJSON()
				require.NoError(t, err)
				require.JSONEq(t, `{"event":"conversation.updated","conversation_id":5}`, string(raw))
				return nil
			})

		msg, err := f.service.PostMessage(ctx, alice, conversationID, services.PostMessageCommand{Content: " hello "})

		req.NoError(err)
		req.Equal(persisted, msg)
	})

	t.Run("should not fail when the broadcast fails", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		persisted := domain.Message{ID: 9, ConversationID: conversationID, Content: "hello", SenderID: alice.ID}

		f.gateway.EXPECT().Participants(gomock.Any(), conversationID).Return([]domain.UserID{alice.ID, bob.ID}, nil)
		f.gateway.EXPECT().CreateMessage(gomock.Any(), alice, conversationID, "hello").Return(persisted, nil)
		f.registry.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).Return(fmt.Errorf("broker down")).Times(2)

		_, err := f.service.PostMessage(ctx, alice, conversationID, services.PostMessageCommand{Content: "hello"})

		req.NoError(err)
	})

	t.Run("should reject before persistence", func(t *testing.T) {
		tests := []struct {
			name      string
			principal domain.Principal
			content   string
			setup     func(f fixture)
			wantErr   error
		}{
			{"anonymous", domain.Anonymous, "hi", func(fixture) {}, errors.ErrUnauthenticated},
			{"unknown conversation", alice, "hi", func(f fixture) {
				f.gateway.EXPECT().Participants(gomock.Any(), conversationID).
					Return(nil, fmt.Errorf("%w: 5", errors.ErrConversationNotFound))
			}, errors.ErrConversationNotFound},
			{"not a participant", carol, "hi", func(f fixture) {
				f.gateway.EXPECT().Participants(gomock.Any(), conversationID).Return([]domain.UserID{alice.ID, bob.ID}, nil)
			}, errors.ErrNotParticipant},
			{"blank content", alice, "   ", func(f fixture) {
				f.gateway.EXPECT().Participants(gomock.Any(), conversationID).Return([]domain.UserID{alice.ID, bob.ID}, nil)
			}, errors.ErrValidation},
			{"content too long", alice, strings.Repeat("a", 21), func(f fixture) {
				f.gateway.EXPECT().Participants(gomock.Any(), conversationID).Return([]domain.UserID{alice.ID, bob.ID}, nil)
			}, errors.ErrValidation},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req := require.New(t)
				f := newFixture(t)
				tt.setup(f)
				f.gateway.EXPECT().CreateMessage(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
				f.registry.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

				_, err := f.service.PostMessage(ctx, tt.principal, conversationID, services.PostMessageCommand{Content: tt.content})

				req.ErrorIs(err, tt.wantErr)
			})
		}
	})

	t.Run("should surface persistence failures without broadcasting", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		f.gateway.EXPECT().Participants(gomock.Any(), conversationID).Return([]domain.UserID{alice.ID, bob.ID}, nil)
		f.gateway.EXPECT().CreateMessage(gomock.Any(), alice, conversationID, "hello").
			Return(domain.Message{}, fmt.Errorf("%w: disk full", errors.ErrPersistence))
		f.registry.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		_, err := f.service.PostMessage(ctx, alice, conversationID, services.PostMessageCommand{Content: "hello"})

		req.ErrorIs(err, errors.ErrPersistence)
	})
}

func TestChatService_MarkRead(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	f.gateway.EXPECT().Participants(gomock.Any(), conversationID).Return([]domain.UserID{alice.ID, bob.ID}, nil).Times(2)
	gomock.InOrder(
		f.gateway.EXPECT().MarkUnreadAsRead(gomock.Any(), bob.ID, conversationID).Return(2, nil),
		f.gateway.EXPECT().MarkUnreadAsRead(gomock.Any(), bob.ID, conversationID).Return(0, nil),
	)
	gomock.InOrder(
		f.registry.EXPECT().Send(gomock.Any(), domain.ConversationGroup(conversationID), event.ReadReceipt{UserID: bob.ID, Updated: 2}).Return(nil),
		f.registry.EXPECT().Send(gomock.Any(), domain.ConversationGroup(conversationID), event.ReadReceipt{UserID: bob.ID, Updated: 0}).Return(nil),
	)

	updated, err := f.service.MarkRead(ctx, bob, conversationID)
	req.NoError(err)
	req.Equal(2, updated)

	updated, err = f.service.MarkRead(ctx, bob, conversationID)
	req.NoError(err)
	req.Zero(updated)
}

func TestChatService_MarkRead_Not_A_Participant(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.gateway.EXPECT().Participants(gomock.Any(), conversationID).Return([]domain.UserID{alice.ID, bob.ID}, nil)
	f.gateway.EXPECT().MarkUnreadAsRead(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	_, err := f.service.MarkRead(context.Background(), carol, conversationID)

	req.ErrorIs(err, errors.ErrNotParticipant)
}

func TestChatService_Messages(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	history := []domain.Message{{ID: 1, Content: "a"}, {ID: 2, Content: "b"}}
	f.gateway.EXPECT().Participants(gomock.Any(), conversationID).Return([]domain.UserID{alice.ID, bob.ID}, nil)
	f.history.EXPECT().Messages(gomock.Any(), conversationID).Return(history, nil)

	messages, err := f.service.Messages(context.Background(), alice, conversationID)

	req.NoError(err)
	req.Equal(history, messages)
}
