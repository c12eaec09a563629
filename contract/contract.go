//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"fasolink-chat/domain"
	"fasolink-chat/domain/event"
	"reflect"
	"time"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Connection is one open bidirectional channel to a client.
type Connection interface {
	ID() string
	Deliver(ctx context.Context, evt event.Outbound) error
	Close(code int, reason string) error
}

// GroupRegistry maps group names to the live connections subscribed to them.
// Send is best-effort per connection and only fails on backend errors.
type GroupRegistry interface {
	Join(ctx context.Context, group domain.GroupName, conn Connection)
	Leave(ctx context.Context, group domain.GroupName, conn Connection)
	Send(ctx context.Context, group domain.GroupName, evt event.Outbound) error
	Members(group domain.GroupName) int
}

// Gateway is the durable store for conversations, messages and read markers.
type Gateway interface {
	IsParticipant(ctx context.Context, userID domain.UserID, conversationID domain.ConversationID) (bool, error)
	Participants(ctx context.Context, conversationID domain.ConversationID) ([]domain.UserID, error)
	CreateMessage(ctx context.Context, sender domain.Principal, conversationID domain.ConversationID, text string) (domain.Message, error)
	MarkUnreadAsRead(ctx context.Context, userID domain.UserID, conversationID domain.ConversationID) (int, error)
}

// CredentialStore resolves a credential token into a principal.
type CredentialStore interface {
	LookupToken(ctx context.Context, token string) (domain.Principal, error)
}

// ConversationStore opens conversations on behalf of an operator.
// StartConversation reports whether the conversation had to be created.
type ConversationStore interface {
	StartConversation(ctx context.Context, listingID int64, participants []domain.UserID) (domain.Conversation, bool, error)
}

// TokenStore issues opaque credential tokens, a zero ttl never expires.
type TokenStore interface {
	CredentialStore
	Create(ctx context.Context, principal domain.Principal, ttl time.Duration) (string, error)
	Revoke(ctx context.Context, token string) error
}

// Broker carries encoded envelopes between processes.
// Subscribe blocks until ctx is done or the subscription fails.
type Broker interface {
	Publish(ctx context.Context, group domain.GroupName, payload []byte) error
	Subscribe(ctx context.Context, handler func(payload []byte)) error
	Close() error
}

// MessageHistory lists the stored messages of a conversation, oldest first.
type MessageHistory interface {
	Messages(ctx context.Context, conversationID domain.ConversationID) ([]domain.Message, error)
}
