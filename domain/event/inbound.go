package event

import (
	"encoding/json"
)

// Inbound is a client event received on a conversation connection.
// The set of variants is closed: Typing, PostMessage and MarkRead.
type Inbound interface {
	inbound()
}

type Typing struct{}

// PostMessage carries the raw client text; callers normalize it before any side effect.
type PostMessage struct {
	Content string
}

type MarkRead struct{}

func (Typing) inbound()      {}
func (PostMessage) inbound() {}
func (MarkRead) inbound()    {}

const (
	ActionTyping  = "typing"
	ActionMessage = "message"
	ActionRead    = "read"
)

type rawInbound struct {
	Action  string          `json:"action"`
	Content json.RawMessage `json:"content"`
}

// ParseInbound decodes a client frame.
// It returns false for malformed JSON, a missing action or an unknown action,
// which callers silently ignore.
func ParseInbound(data []byte) (Inbound, bool) {
	var raw rawInbound
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, false
	}
	switch raw.Action {
	case ActionTyping:
		return Typing{}, true
	case ActionMessage:
		return PostMessage{Content: contentString(raw.Content)}, true
	case ActionRead:
		return MarkRead{}, true
	default:
		return nil, false
	}
}

// contentString keeps only JSON strings; null, numbers or objects count as empty text.
func contentString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
