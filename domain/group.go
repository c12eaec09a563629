package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// GroupName identifies a broadcast scope.
// Two kinds exist: convo_<id> and user_<id>.
type GroupName string

const (
	conversationPrefix = "convo_"
	userPrefix         = "user_"
)

type GroupKind int

const (
	GroupUnknown GroupKind = iota
	GroupConversation
	GroupUser
)

func ConversationGroup(id ConversationID) GroupName {
	return GroupName(conversationPrefix + id.String())
}

func UserGroup(id UserID) GroupName {
	return GroupName(userPrefix + id.String())
}

func (g GroupName) String() string {
	return string(g)
}

// Kind returns the group kind and the numeric id it is keyed by.
func (g GroupName) Kind() (GroupKind, int64) {
	s := string(g)
	switch {
	case strings.HasPrefix(s, conversationPrefix):
		if id, err := strconv.ParseInt(s[len(conversationPrefix):], 10, 64); err == nil && id > 0 {
			return GroupConversation, id
		}
	case strings.HasPrefix(s, userPrefix):
		if id, err := strconv.ParseInt(s[len(userPrefix):], 10, 64); err == nil && id > 0 {
			return GroupUser, id
		}
	}
	return GroupUnknown, 0
}

// ParseGroupName validates a group name received from the outside (e.g. a broker).
func ParseGroupName(s string) (GroupName, error) {
	g := GroupName(s)
	if kind, _ := g.Kind(); kind == GroupUnknown {
		return "", fmt.Errorf("invalid group name %q", s)
	}
	return g, nil
}
