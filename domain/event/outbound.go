package event

import (
	"encoding/json"
	"fasolink-chat/domain"
	"time"
)

// Kind names an outbound event type on the broadcast path.
type Kind string

const (
	KindTyping  Kind = "chat.typing"
	KindMessage Kind = "chat.message"
	KindRead    Kind = "chat.read"
	KindNotify  Kind = "notify"
)

// Outbound is an event broadcast to every connection of a group.
// Variants are value types and are never mutated after construction.
// The set is closed, only this package declares variants.
type Outbound interface {
	Kind() Kind
	json.Marshaler
	outbound()
}

type UserTyping struct {
	UserID domain.UserID
}

type MessageCreated struct {
	Message domain.Message
}

type ReadReceipt struct {
	UserID  domain.UserID
	Updated int
}

// Notification is forwarded verbatim to user_<id> connections.
type Notification struct {
	Data json.RawMessage
}

func (UserTyping) Kind() Kind     { return KindTyping }
func (MessageCreated) Kind() Kind { return KindMessage }
func (ReadReceipt) Kind() Kind    { return KindRead }
func (Notification) Kind() Kind   { return KindNotify }

func (UserTyping) outbound()     {}
func (MessageCreated) outbound() {}
func (ReadReceipt) outbound()    {}
func (Notification) outbound()   {}

type typingFrame struct {
	Event  string        `json:"event"`
	UserID domain.UserID `json:"user_id"`
}

// MessagePayload is the wire shape of a persisted message.
type MessagePayload struct {
	ID        domain.MessageID `json:"id"`
	Content   string           `json:"content"`
	SenderID  domain.UserID    `json:"sender_id"`
	Sender    string           `json:"sender"`
	Timestamp time.Time        `json:"timestamp"`
}

type messageFrame struct {
	Event   string         `json:"event"`
	Message MessagePayload `json:"message"`
}

type readFrame struct {
	Event   string        `json:"event"`
	UserID  domain.UserID `json:"user_id"`
	Updated int           `json:"updated"`
}

func (e UserTyping) MarshalJSON() ([]byte, error) {
	return json.Marshal(typingFrame{Event: "typing", UserID: e.UserID})
}

func (e MessageCreated) MarshalJSON() ([]byte, error) {
	return json.Marshal(messageFrame{Event: "message.created", Message: ToMessagePayload(e.Message)})
}

func (e ReadReceipt) MarshalJSON() ([]byte, error) {
	return json.Marshal(readFrame{Event: "read", UserID: e.UserID, Updated: e.Updated})
}

func (e Notification) MarshalJSON() ([]byte, error) {
	if len(e.Data) == 0 {
		return []byte("{}"), nil
	}
	if !json.Valid(e.Data) {
		return nil, &json.UnsupportedValueError{Str: "notification data is not valid JSON"}
	}
	return e.Data, nil
}

func ToMessagePayload(m domain.Message) MessagePayload {
	return MessagePayload{
		ID:        m.ID,
		Content:   m.Content,
		SenderID:  m.SenderID,
		Sender:    m.SenderDisplay,
		Timestamp: m.Timestamp.UTC(),
	}
}

func fromMessagePayload(p MessagePayload, conversationID domain.ConversationID) domain.Message {
	return domain.Message{
		ID:             p.ID,
		ConversationID: conversationID,
		Content:        p.Content,
		SenderID:       p.SenderID,
		SenderDisplay:  p.Sender,
		Timestamp:      p.Timestamp.UTC(),
	}
}
