package domain

import (
	"slices"
	"strconv"
	"time"
)

type ConversationID int64

func (c ConversationID) String() string {
	return strconv.FormatInt(int64(c), 10)
}

// Conversation is a persisted thread scoped to a listing and its participant set.
type Conversation struct {
	ID           ConversationID
	ListingID    int64
	Participants []UserID
	CreatedAt    time.Time
}

func (c Conversation) HasParticipant(userID UserID) bool {
	return slices.Contains(c.Participants, userID)
}
