package broker

import (
	"context"
	"fasolink-chat/domain"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

const natsBufferSize = 256

// NatsBroker uses core NATS subjects, one subject per group.
type NatsBroker struct {
	conn   *nats.Conn
	log    *slog.Logger
	closed chan struct{}
}

func NewNatsBroker(url string, log *slog.Logger) (*NatsBroker, error) {
	closed := make(chan struct{})
	conn, err := nats.Connect(url,
		nats.Name("fasolink-chat"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			close(closed)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	return &NatsBroker{conn: conn, log: log, closed: closed}, nil
}

func (b *NatsBroker) Publish(_ context.Context, group domain.GroupName, payload []byte) error {
	return b.conn.Publish(Subject(group), payload)
}

// Subscribe listens to every group subject until ctx is done or the connection is closed.
func (b *NatsBroker) Subscribe(ctx context.Context, handler func(payload []byte)) error {
	messages := make(chan *nats.Msg, natsBufferSize)
	sub, err := b.conn.ChanSubscribe(subjectPattern, messages)
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-b.closed:
			return fmt.Errorf("nats connection closed")
		case msg := <-messages:
			handler(msg.Data)
		}
	}
}

func (b *NatsBroker) Close() error {
	b.conn.Close()
	return nil
}
