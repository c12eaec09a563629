package storage

import (
	"context"
	"fasolink-chat/domain"
	"fasolink-chat/errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

// SetupTestDB initializes a temporary Badger instance for testing
func SetupTestDB(t *testing.T) (*badger.DB, func()) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	require.NoError(t, err)

	return db, func() {
		db.Close()
	}
}

func setupConversationRepository(t *testing.T) *ConversationRepository {
	db, cleanup := SetupTestDB(t)
	repo, err := NewConversationRepository(db, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, repo.Close())
		cleanup()
	})
	return repo
}

var (
	alice = domain.Principal{ID: 1, Username: "alice"}
	bob   = domain.Principal{ID: 2, Username: "bob"}
	carol = domain.Principal{ID: 3, Username: "carol"}
)

func TestConversationRepository_Participants(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := setupConversationRepository(t)

	// Given a conversation between alice and bob about listing 42
	conversation, err := repo.CreateConversation(ctx, 42, []domain.UserID{alice.ID, bob.ID, alice.ID})
	req.NoError(err)
	req.Positive(int64(conversation.ID))

	// Then membership reflects the participant list only
	participants, err := repo.Participants(ctx, conversation.ID)
	req.NoError(err)
	req.ElementsMatch([]domain.UserID{alice.ID, bob.ID}, participants)

	for _, tt := range []struct {
		user domain.UserID
		want bool
	}{{alice.ID, true}, {bob.ID, true}, {carol.ID, false}} {
		member, err := repo.IsParticipant(ctx, tt.user, conversation.ID)
		req.NoError(err)
		req.Equal(tt.want, member)
	}

	// And an unknown conversation has no participants
	member, err := repo.IsParticipant(ctx, alice.ID, 999)
	req.NoError(err)
	req.False(member)
	_, err = repo.Participants(ctx, 999)
	req.ErrorIs(err, errors.ErrConversationNotFound)
}

func TestConversationRepository_CreateConversation_Requires_Participants(t *testing.T) {
	req := require.New(t)
	repo := setupConversationRepository(t)

	_, err := repo.CreateConversation(context.Background(), 1, nil)

	req.ErrorIs(err, errors.ErrValidation)
}

func TestConversationRepository_CreateMessage(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := setupConversationRepository(t)
	conversation, err := repo.CreateConversation(ctx, 42, []domain.UserID{alice.ID, bob.ID})
	req.NoError(err)

	first, err := repo.CreateMessage(ctx, alice, conversation.ID, "hello")
	req.NoError(err)
	second, err := repo.CreateMessage(ctx, bob, conversation.ID, "hi there")
	req.NoError(err)

	// Then ids are assigned by the store and increase
	req.Positive(int64(first.ID))
	req.Greater(second.ID, first.ID)
	req.Equal("alice", first.SenderDisplay)
	req.False(first.Timestamp.IsZero())

	// And the history comes back in order, verbatim
	messages, err := repo.Messages(ctx, conversation.ID)
	req.NoError(err)
	req.Len(messages, 2)
	req.Equal(first.ID, messages[0].ID)
	req.Equal(first.Content, messages[0].Content)
	req.True(first.Timestamp.Equal(messages[0].Timestamp))
	req.Equal(second.SenderID, messages[1].SenderID)
}

func TestConversationRepository_CreateMessage_Unknown_Conversation(t *testing.T) {
	req := require.New(t)
	repo := setupConversationRepository(t)

	_, err := repo.CreateMessage(context.Background(), alice, 77, "hello")

	req.ErrorIs(err, errors.ErrConversationNotFound)
}

func TestConversationRepository_MarkUnreadAsRead_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := setupConversationRepository(t)
	conversation, err := repo.CreateConversation(ctx, 42, []domain.UserID{alice.ID, bob.ID})
	req.NoError(err)

	// Given three messages from alice and one from bob
	for _, text := range []string{"one", "two", "three"} {
		_, err := repo.CreateMessage(ctx, alice, conversation.ID, text)
		req.NoError(err)
	}
	_, err = repo.CreateMessage(ctx, bob, conversation.ID, "mine")
	req.NoError(err)

	// When bob reads twice
	updated, err := repo.MarkUnreadAsRead(ctx, bob.ID, conversation.ID)
	req.NoError(err)
	req.Equal(3, updated)

	updated, err = repo.MarkUnreadAsRead(ctx, bob.ID, conversation.ID)
	req.NoError(err)
	req.Zero(updated)

	// And a new message only counts once
	_, err = repo.CreateMessage(ctx, alice, conversation.ID, "four")
	req.NoError(err)
	updated, err = repo.MarkUnreadAsRead(ctx, bob.ID, conversation.ID)
	req.NoError(err)
	req.Equal(1, updated)

	// Alice's own read counts bob's single message
	updated, err = repo.MarkUnreadAsRead(ctx, alice.ID, conversation.ID)
	req.NoError(err)
	req.Equal(1, updated)
}

func TestConversationRepository_Concurrent_MarkUnreadAsRead_Never_Duplicates(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := setupConversationRepository(t)
	conversation, err := repo.CreateConversation(ctx, 42, []domain.UserID{alice.ID, bob.ID})
	req.NoError(err)
	const messages = 20
	for i := 0; i < messages; i++ {
		_, err := repo.CreateMessage(ctx, alice, conversation.ID, "ping")
		req.NoError(err)
	}

	// When bob reads from several connections at once
	const readers = 8
	results := make([]int, readers)
	var wg sync.WaitGroup
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			updated, err := repo.MarkUnreadAsRead(ctx, bob.ID, conversation.ID)
			if err == nil {
				results[i] = updated
			}
		}(i)
	}
	wg.Wait()

	// Then the counts add up to the number of unread messages exactly once
	total := 0
	for _, r := range results {
		total += r
	}
	req.Equal(messages, total)
}

func TestConversationRepository_StartConversation_Reuses_Existing(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := setupConversationRepository(t)

	// Given alice started a conversation with bob about listing 42
	first, created, err := repo.StartConversation(ctx, 42, []domain.UserID{alice.ID, bob.ID})
	req.NoError(err)
	req.True(created)

	// When bob starts it again, listing the participants the other way round
	again, created, err := repo.StartConversation(ctx, 42, []domain.UserID{bob.ID, alice.ID})

	// Then the same conversation comes back
	req.NoError(err)
	req.False(created)
	req.Equal(first.ID, again.ID)

	// And another listing or another pair gets its own conversation
	other, created, err := repo.StartConversation(ctx, 43, []domain.UserID{alice.ID, bob.ID})
	req.NoError(err)
	req.True(created)
	req.NotEqual(first.ID, other.ID)
	withCarol, created, err := repo.StartConversation(ctx, 42, []domain.UserID{alice.ID, carol.ID})
	req.NoError(err)
	req.True(created)
	member, err := repo.IsParticipant(ctx, carol.ID, withCarol.ID)
	req.NoError(err)
	req.True(member)
}

func TestConversationRepository_Concurrent_StartConversation_Creates_One(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := setupConversationRepository(t)

	// When several starts race for the same listing and pair
	const starters = 8
	ids := make([]domain.ConversationID, starters)
	var wg sync.WaitGroup
	for i := 0; i < starters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conversation, _, err := repo.StartConversation(ctx, 42, []domain.UserID{alice.ID, bob.ID})
			if err == nil {
				ids[i] = conversation.ID
			}
		}(i)
	}
	wg.Wait()

	// Then they all agree on a single conversation
	for _, id := range ids {
		req.Equal(ids[0], id)
	}
	req.Positive(int64(ids[0]))
}
