// Package runtime handles group membership, session lifecycles and event propagation.
// It orchestrates delivery without owning persistence or domain rules.
package runtime

import (
	"context"
	"fasolink-chat/auth"
	"fasolink-chat/contract"
	"fasolink-chat/domain"
	"fasolink-chat/domain/event"
	"fasolink-chat/errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"unicode/utf8"
)

// State is the lifecycle of one live connection.
type State int32

const (
	StateConnecting State = iota
	StateAuthorizing
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthorizing:
		return "authorizing"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

const forbiddenReason = "forbidden"

// Router turns live connections into authorized sessions
// and client frames into persisted, rebroadcast side effects.
type Router struct {
	log              *slog.Logger
	authenticator    *auth.Authenticator
	gateway          contract.Gateway
	registry         contract.GroupRegistry
	maxContentLength int
}

// NewRouter builds a router. A maxContentLength of zero or less disables the length check.
func NewRouter(
	log *slog.Logger,
	authenticator *auth.Authenticator,
	gateway contract.Gateway,
	registry contract.GroupRegistry,
	maxContentLength int,
) *Router {
	return &Router{
		log:              log,
		authenticator:    authenticator,
		gateway:          gateway,
		registry:         registry,
		maxContentLength: maxContentLength,
	}
}

// OpenConversation authorizes the connection for one conversation and subscribes it
// to the conversation group. Any denial closes the connection with 4403 before a join
// can happen and returns ErrForbidden.
func (r *Router) OpenConversation(
	ctx context.Context,
	conn contract.Connection,
	token string,
	conversationID domain.ConversationID,
) (*ConversationSession, error) {
	s := &ConversationSession{
		router:         r,
		conn:           conn,
		conversationID: conversationID,
		group:          domain.ConversationGroup(conversationID),
	}
	s.state.Store(int32(StateAuthorizing))

	principal, ok := r.authenticator.Resolve(ctx, token)
	if !ok {
		return nil, r.deny(&s.state, conn, "anonymous connection", "conversation_id", conversationID)
	}
	member, err := r.gateway.IsParticipant(ctx, principal.ID, conversationID)
	if err != nil {
		r.log.Warn("Participant check failed", "conversation_id", conversationID, "user_id", principal.ID, "error", err)
		return nil, r.deny(&s.state, conn, "participant check failed", "conversation_id", conversationID)
	}
	if !member {
		return nil, r.deny(&s.state, conn, "not a participant",
			"conversation_id", conversationID, "user_id", principal.ID)
	}

	s.principal = principal
	r.registry.Join(ctx, s.group, conn)
	s.state.Store(int32(StateOpen))
	r.log.Debug("Conversation session open", "group", s.group, "user_id", principal.ID, "connection", conn.ID())
	return s, nil
}

// OpenNotifications subscribes an authenticated connection to its own user group.
func (r *Router) OpenNotifications(ctx context.Context, conn contract.Connection, token string) (*NotificationSession, error) {
	s := &NotificationSession{router: r, conn: conn}
	s.state.Store(int32(StateAuthorizing))

	principal, ok := r.authenticator.Resolve(ctx, token)
	if !ok {
		return nil, r.deny(&s.state, conn, "anonymous connection", "channel", "notifications")
	}

	s.principal = principal
	s.group = domain.UserGroup(principal.ID)
	r.registry.Join(ctx, s.group, conn)
	s.state.Store(int32(StateOpen))
	r.log.Debug("Notification session open", "group", s.group, "connection", conn.ID())
	return s, nil
}

func (r *Router) deny(state *atomic.Int32, conn contract.Connection, reason string, args ...any) error {
	state.Store(int32(StateClosed))
	r.log.Info("Connection denied", append([]any{"reason", reason, "connection", conn.ID()}, args...)...)
	if err := conn.Close(errors.CloseForbidden, forbiddenReason); err != nil {
		r.log.Debug("Closing denied connection failed", "connection", conn.ID(), "error", err)
	}
	return fmt.Errorf("%w: %s", errors.ErrForbidden, reason)
}

// ConversationSession is an Open connection bound to one conversation group.
// Handle must be called from the single read loop of the connection.
type ConversationSession struct {
	router         *Router
	conn           contract.Connection
	principal      domain.Principal
	conversationID domain.ConversationID
	group          domain.GroupName
	state          atomic.Int32
}

func (s *ConversationSession) State() State                { return State(s.state.Load()) }
func (s *ConversationSession) Principal() domain.Principal { return s.principal }
func (s *ConversationSession) Group() domain.GroupName     { return s.group }

// Handle processes one client frame.
// Unknown or malformed frames and invalid message text are ignored without a reply.
// A persistence failure is returned but leaves the session open.
func (s *ConversationSession) Handle(ctx context.Context, raw []byte) error {
	if s.State() != StateOpen {
		return nil
	}
	in, ok := event.ParseInbound(raw)
	if !ok {
		s.router.log.Debug("Ignoring inbound frame", "group", s.group, "connection", s.conn.ID())
		return nil
	}

	switch v := in.(type) {
	case event.Typing:
		return s.router.registry.Send(ctx, s.group, event.UserTyping{UserID: s.principal.ID})
	case event.PostMessage:
		return s.postMessage(ctx, v.Content)
	case event.MarkRead:
		return s.markRead(ctx)
	default:
		return nil
	}
}

func (s *ConversationSession) postMessage(ctx context.Context, content string) error {
	text := domain.NormalizeContent(content)
	if text == "" {
		return nil
	}
	if limit := s.router.maxContentLength; limit > 0 && utf8.RuneCountInString(text) > limit {
		s.router.log.Debug("Dropping oversized message", "group", s.group, "user_id", s.principal.ID, "length", utf8.RuneCountInString(text))
		return nil
	}

	msg, err := s.router.gateway.CreateMessage(ctx, s.principal, s.conversationID, text)
	if err != nil {
		s.router.log.Error("Message not persisted", "conversation_id", s.conversationID, "user_id", s.principal.ID, "error", err)
		return fmt.Errorf("%w: create message: %w", errors.ErrPersistence, err)
	}
	return s.router.registry.Send(ctx, s.group, event.MessageCreated{Message: msg})
}

func (s *ConversationSession) markRead(ctx context.Context) error {
	updated, err := s.router.gateway.MarkUnreadAsRead(ctx, s.principal.ID, s.conversationID)
	if err != nil {
		s.router.log.Error("Read markers not persisted", "conversation_id", s.conversationID, "user_id", s.principal.ID, "error", err)
		return fmt.Errorf("%w: mark read: %w", errors.ErrPersistence, err)
	}
	return s.router.registry.Send(ctx, s.group, event.ReadReceipt{UserID: s.principal.ID, Updated: updated})
}

// Close leaves the conversation group. Calling it more than once is harmless.
func (s *ConversationSession) Close(ctx context.Context) {
	if State(s.state.Swap(int32(StateClosed))) == StateClosed {
		return
	}
	s.router.registry.Leave(ctx, s.group, s.conn)
}

// NotificationSession is an Open connection bound to the user group of its principal.
type NotificationSession struct {
	router    *Router
	conn      contract.Connection
	principal domain.Principal
	group     domain.GroupName
	state     atomic.Int32
}

func (s *NotificationSession) State() State                { return State(s.state.Load()) }
func (s *NotificationSession) Principal() domain.Principal { return s.principal }
func (s *NotificationSession) Group() domain.GroupName     { return s.group }

// Handle ignores everything, the notification channel is push only.
func (s *NotificationSession) Handle(context.Context, []byte) error {
	return nil
}

func (s *NotificationSession) Close(ctx context.Context) {
	if State(s.state.Swap(int32(StateClosed))) == StateClosed {
		return
	}
	s.router.registry.Leave(ctx, s.group, s.conn)
}
