package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGroupName_Kinds(t *testing.T) {
	req := require.New(t)

	kind, id := ConversationGroup(5).Kind()
	req.Equal(GroupConversation, kind)
	req.EqualValues(5, id)
	req.Equal("convo_5", ConversationGroup(5).String())

	kind, id = UserGroup(42).Kind()
	req.Equal(GroupUser, kind)
	req.EqualValues(42, id)
	req.Equal("user_42", UserGroup(42).String())
}

func TestParseGroupName_RejectsGarbage(t *testing.T) {
	req := require.New(t)
	for _, s := range []string{"", "convo_", "convo_abc", "user_-1", "room_1", "convo_0"} {
		_, err := ParseGroupName(s)
		req.Error(err, s)
	}
	g, err := ParseGroupName("convo_12")
	req.NoError(err)
	req.Equal(ConversationGroup(12), g)
}

func TestPrincipal_Anonymous(t *testing.T) {
	req := require.New(t)
	req.True(Anonymous.IsAnonymous())
	req.True(Principal{Username: "ghost"}.IsAnonymous())
	req.False(Principal{ID: 1, Username: "alice"}.IsAnonymous())
}

func TestConversation_HasParticipant(t *testing.T) {
	req := require.New(t)
	c := Conversation{ID: 1, Participants: []UserID{1, 2}}
	req.True(c.HasParticipant(2))
	req.False(c.HasParticipant(3))
}

func TestNormalizeContent(t *testing.T) {
	req := require.New(t)
	req.Empty(NormalizeContent("   \n\t "))
	req.Equal("hello", NormalizeContent("  hello \n"))
}
