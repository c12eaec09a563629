package event

import (
	"encoding/json"
	"fasolink-chat/domain"
	"fmt"
)

// Envelope carries an outbound event across processes.
// Body holds the client wire frame, Type selects how to decode it back.
type Envelope struct {
	Type  Kind             `json:"type"`
	Group domain.GroupName `json:"group"`
	Body  json.RawMessage  `json:"body"`
}

func Encode(group domain.GroupName, evt Outbound) ([]byte, error) {
	body, err := evt.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", evt.Kind(), err)
	}
	return json.Marshal(Envelope{Type: evt.Kind(), Group: group, Body: body})
}

func Decode(data []byte) (domain.GroupName, Outbound, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, fmt.Errorf("decode envelope: %w", err)
	}
	group, err := domain.ParseGroupName(string(env.Group))
	if err != nil {
		return "", nil, err
	}
	switch env.Type {
	case KindTyping:
		var f typingFrame
		if err := json.Unmarshal(env.Body, &f); err != nil {
			return "", nil, err
		}
		return group, UserTyping{UserID: f.UserID}, nil
	case KindMessage:
		var f messageFrame
		if err := json.Unmarshal(env.Body, &f); err != nil {
			return "", nil, err
		}
		var conversationID domain.ConversationID
		if kind, id := group.Kind(); kind == domain.GroupConversation {
			conversationID = domain.ConversationID(id)
		}
		return group, MessageCreated{Message: fromMessagePayload(f.Message, conversationID)}, nil
	case KindRead:
		var f readFrame
		if err := json.Unmarshal(env.Body, &f); err != nil {
			return "", nil, err
		}
		return group, ReadReceipt{UserID: f.UserID, Updated: f.Updated}, nil
	case KindNotify:
		return group, Notification{Data: env.Body}, nil
	default:
		return "", nil, fmt.Errorf("unknown event type %q", env.Type)
	}
}
