package sink

import (
	"context"
	"fasolink-chat/domain/event"
	"fasolink-chat/errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// WebSocketSink is the Connection of one websocket client.
// Deliver only enqueues, a single write pump owns the socket writes.
// Deliver never waits: a full buffer drops the client.
type WebSocketSink struct {
	id           string
	conn         *websocket.Conn
	log          *slog.Logger
	send         chan []byte
	done         chan struct{}
	closeOnce    sync.Once
	writeTimeout time.Duration
}

// NewWebSocketSink wraps conn. writeTimeout bounds every frame write of the pump.
func NewWebSocketSink(conn *websocket.Conn, log *slog.Logger, bufferSize int, writeTimeout time.Duration) *WebSocketSink {
	return &WebSocketSink{
		id:           uuid.NewString(),
		conn:         conn,
		log:          log,
		send:         make(chan []byte, bufferSize),
		done:         make(chan struct{}),
		writeTimeout: writeTimeout,
	}
}

func (s *WebSocketSink) ID() string {
	return s.id
}

// Deliver serializes the event and queues it for the write pump.
func (s *WebSocketSink) Deliver(ctx context.Context, evt event.Outbound) error {
	// Do not race a closed sink against free buffer space
	select {
	case <-s.done:
		return errors.ErrSinkClosed
	default:
	}

	payload, err := evt.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode %s: %w", evt.Kind(), err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case s.send <- payload:
		return nil
	case <-s.done:
		return errors.ErrSinkClosed
	default:
		s.drop()
		return errors.ErrSlowConsumer
	}
}

// drop stops the pumps of a client that does not keep up.
// Closing the socket ends the read pump, so the connection leaves its group.
func (s *WebSocketSink) drop() {
	s.log.Warn("Dropping slow websocket client", "connection", s.id, "buffered", len(s.send))
	s.closeOnce.Do(func() { close(s.done) })
	_ = s.conn.Close()
}

// Close sends a close frame with the given code and stops the write pump.
// Only the first call writes a frame.
func (s *WebSocketSink) Close(code int, reason string) error {
	var err error
	s.closeOnce.Do(func() {
		err = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
		close(s.done)
	})
	return err
}

// Release closes the underlying network connection.
func (s *WebSocketSink) Release() error {
	return s.conn.Close()
}

// ReadPump hands every text frame to handle, one at a time in arrival order,
// until the peer goes away or the sink is closed.
func (s *WebSocketSink) ReadPump(handle func(raw []byte)) {
	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				s.log.Debug("Websocket read failed", "connection", s.id, "error", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		handle(raw)
	}
}

// WritePump drains the queue onto the socket and keeps the peer alive with pings.
func (s *WebSocketSink) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case payload := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.log.Debug("Websocket write failed", "connection", s.id, "error", err)
				// Unblocks the read pump as well
				_ = s.conn.Close()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = s.conn.Close()
				return
			}
		}
	}
}
