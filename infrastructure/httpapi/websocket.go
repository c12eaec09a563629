package httpapi

import (
	"context"
	"fasolink-chat/auth"
	"fasolink-chat/sink"
	"net/http"

	"github.com/gorilla/websocket"
)

// session is what both socket kinds look like once open.
type session interface {
	Handle(ctx context.Context, raw []byte) error
	Close(ctx context.Context)
}

// conversationSocket upgrades first and authorizes afterwards, a websocket
// can only carry the 4403 close code once it is established.
func (h *Handler) conversationSocket(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	h.serve(w, r, func(ctx context.Context, s *sink.WebSocketSink) (session, error) {
		return h.router.OpenConversation(ctx, s, auth.TokenFromQuery(r), id)
	})
}

func (h *Handler) notificationSocket(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(ctx context.Context, s *sink.WebSocketSink) (session, error) {
		return h.router.OpenNotifications(ctx, s, auth.TokenFromQuery(r))
	})
}

func (h *Handler) serve(
	w http.ResponseWriter,
	r *http.Request,
	open func(ctx context.Context, s *sink.WebSocketSink) (session, error),
) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("Websocket upgrade failed", "path", r.URL.Path, "error", err)
		return
	}
	s := sink.NewWebSocketSink(conn, h.log, h.options.ConnectionBufferSize, h.options.WriteTimeout)
	defer func() { _ = s.Release() }()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	opened, err := open(ctx, s)
	if err != nil {
		// Already closed with 4403 by the router
		return
	}
	defer opened.Close(ctx)

	go s.WritePump(ctx)
	s.ReadPump(func(raw []byte) {
		if err := opened.Handle(ctx, raw); err != nil {
			h.log.Warn("Inbound event failed", "path", r.URL.Path, "connection", s.ID(), "error", err)
		}
	})
	_ = s.Close(websocket.CloseNormalClosure, "")
}
