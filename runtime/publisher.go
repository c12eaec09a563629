package runtime

import (
	"context"
	"encoding/json"
	"fasolink-chat/contract"
	"fasolink-chat/domain"
	"fasolink-chat/domain/event"
	"log/slog"
)

// Publisher lets non-socket code (REST handlers, the gRPC bridge) push events
// into groups. It is fire-and-forget: failures are logged and never returned.
type Publisher struct {
	registry contract.GroupRegistry
	log      *slog.Logger
}

func NewPublisher(registry contract.GroupRegistry, log *slog.Logger) *Publisher {
	return &Publisher{registry: registry, log: log}
}

func (p *Publisher) PublishConversationMessage(ctx context.Context, conversationID domain.ConversationID, msg domain.Message) {
	p.send(ctx, domain.ConversationGroup(conversationID), event.MessageCreated{Message: msg})
}

func (p *Publisher) PublishConversationRead(ctx context.Context, conversationID domain.ConversationID, userID domain.UserID, updated int) {
	p.send(ctx, domain.ConversationGroup(conversationID), event.ReadReceipt{UserID: userID, Updated: updated})
}

// PublishUserNotification forwards data verbatim to the user group. Invalid JSON is dropped.
func (p *Publisher) PublishUserNotification(ctx context.Context, userID domain.UserID, data json.RawMessage) {
	group := domain.UserGroup(userID)
	if len(data) > 0 && !json.Valid(data) {
		p.log.Warn("Dropping notification with invalid payload", "group", group)
		return
	}
	p.send(ctx, group, event.Notification{Data: data})
}

func (p *Publisher) send(ctx context.Context, group domain.GroupName, evt event.Outbound) {
	if err := p.registry.Send(ctx, group, evt); err != nil {
		p.log.Warn("Broadcast failed", "group", group, "event", evt.Kind(), "error", err)
	}
}
