package workers

import (
	"context"
	"fasolink-chat/contract"
	"fasolink-chat/domain/event"
	"fmt"
	"log/slog"
)

// BrokerRelay receives envelopes published by any process
// and hands them to the local registry of this one.
type BrokerRelay struct {
	broker contract.Broker
	local  contract.GroupRegistry
	log    *slog.Logger
}

func NewBrokerRelay(broker contract.Broker, local contract.GroupRegistry, log *slog.Logger) *BrokerRelay {
	return &BrokerRelay{broker: broker, local: local, log: log}
}

// Run blocks until ctx is done. A broken subscription is returned so the
// supervisor can restart the relay.
func (r *BrokerRelay) Run(ctx context.Context) error {
	r.log.Info("Broker relay subscribed")
	err := r.broker.Subscribe(ctx, func(payload []byte) {
		r.relay(ctx, payload)
	})
	if ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("broker subscription: %w", err)
	}
	return nil
}

func (r *BrokerRelay) relay(ctx context.Context, payload []byte) {
	group, evt, err := event.Decode(payload)
	if err != nil {
		r.log.Warn("Dropping undecodable envelope", "error", err)
		return
	}
	if err := r.local.Send(ctx, group, evt); err != nil {
		r.log.Warn("Local delivery failed", "group", group, "error", err)
	}
}
