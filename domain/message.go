// Package domain contains core concepts of the chat system.
// This file defines Message records and related rules.
// Messages are immutable once persisted: identity and timestamp belong to the store.
package domain

import (
	"strings"
	"time"
)

type MessageID int64

// Message represents a persisted chat message.
type Message struct {
	ID             MessageID
	ConversationID ConversationID
	Content        string
	SenderID       UserID
	SenderDisplay  string
	Timestamp      time.Time
}

// NormalizeContent trims the text a client sent.
// An empty result means the message must be dropped.
func NormalizeContent(content string) string {
	return strings.TrimSpace(content)
}
