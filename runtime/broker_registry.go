package runtime

import (
	"context"
	"fasolink-chat/contract"
	"fasolink-chat/domain"
	"fasolink-chat/domain/event"
	"fmt"
	"log/slog"
)

// BrokerRegistry spreads group sends across processes.
// Sockets stay process-local, so Join and Leave act on the local registry while
// Send goes through the broker. Every process, this one included, gets the envelope
// back from its BrokerRelay and delivers it to its own members.
type BrokerRegistry struct {
	local  *Registry
	broker contract.Broker
	log    *slog.Logger
}

func NewBrokerRegistry(local *Registry, broker contract.Broker, log *slog.Logger) *BrokerRegistry {
	return &BrokerRegistry{local: local, broker: broker, log: log}
}

func (b *BrokerRegistry) Join(ctx context.Context, group domain.GroupName, conn contract.Connection) {
	b.local.Join(ctx, group, conn)
}

func (b *BrokerRegistry) Leave(ctx context.Context, group domain.GroupName, conn contract.Connection) {
	b.local.Leave(ctx, group, conn)
}

// Send fails only if the event cannot be encoded or the broker rejects it.
func (b *BrokerRegistry) Send(ctx context.Context, group domain.GroupName, evt event.Outbound) error {
	payload, err := event.Encode(group, evt)
	if err != nil {
		return fmt.Errorf("encode envelope for %s: %w", group, err)
	}
	if err := b.broker.Publish(ctx, group, payload); err != nil {
		return fmt.Errorf("publish to %s: %w", group, err)
	}
	return nil
}

// Members only counts local connections.
func (b *BrokerRegistry) Members(group domain.GroupName) int {
	return b.local.Members(group)
}

// Local exposes the process-local registry to the relay worker.
func (b *BrokerRegistry) Local() *Registry {
	return b.local
}
