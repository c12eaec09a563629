package storage

import (
	"context"
	"fasolink-chat/domain"
	"fasolink-chat/errors"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func setupSQLiteRepository(t *testing.T) *SQLRepository {
	db, err := OpenSQL(DialectSQLite, "file:"+filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(db, DialectSQLite))
	return NewSQLRepository(db, DialectSQLite, slog.Default())
}

func TestSQLRepository_Rebind(t *testing.T) {
	req := require.New(t)
	postgres := NewSQLRepository(nil, DialectPostgres, slog.Default())
	sqlite := NewSQLRepository(nil, DialectSQLite, slog.Default())
	query := `SELECT 1 FROM t WHERE a = ? AND b = ?`

	req.Equal(`SELECT 1 FROM t WHERE a = $1 AND b = $2`, postgres.rebind(query))
	req.Equal(query, sqlite.rebind(query))
}

func TestSQLRepository_Migrate_Twice(t *testing.T) {
	db, err := OpenSQL(DialectSQLite, "file:"+filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(db, DialectSQLite))
	require.NoError(t, Migrate(db, DialectSQLite))
}

func TestSQLRepository_Gateway(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := setupSQLiteRepository(t)

	conversation, err := repo.CreateConversation(ctx, 42, []domain.UserID{alice.ID, bob.ID})
	req.NoError(err)

	member, err := repo.IsParticipant(ctx, alice.ID, conversation.ID)
	req.NoError(err)
	req.True(member)
	member, err = repo.IsParticipant(ctx, carol.ID, conversation.ID)
	req.NoError(err)
	req.False(member)

	participants, err := repo.Participants(ctx, conversation.ID)
	req.NoError(err)
	req.Equal([]domain.UserID{alice.ID, bob.ID}, participants)
	_, err = repo.Participants(ctx, 999)
	req.ErrorIs(err, errors.ErrConversationNotFound)

	msg, err := repo.CreateMessage(ctx, alice, conversation.ID, "hello")
	req.NoError(err)
	req.Positive(int64(msg.ID))
	req.Equal("alice", msg.SenderDisplay)

	messages, err := repo.Messages(ctx, conversation.ID)
	req.NoError(err)
	req.Len(messages, 1)
	req.Equal(msg.ID, messages[0].ID)
	req.Equal(msg.Content, messages[0].Content)
	req.True(msg.Timestamp.Equal(messages[0].Timestamp))

	_, err = repo.CreateMessage(ctx, alice, 999, "lost")
	req.ErrorIs(err, errors.ErrConversationNotFound)
}

func TestSQLRepository_MarkUnreadAsRead_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := setupSQLiteRepository(t)
	conversation, err := repo.CreateConversation(ctx, 42, []domain.UserID{alice.ID, bob.ID})
	req.NoError(err)
	for _, text := range []string{"one", "two"} {
		_, err := repo.CreateMessage(ctx, alice, conversation.ID, text)
		req.NoError(err)
	}
	_, err = repo.CreateMessage(ctx, bob, conversation.ID, "mine")
	req.NoError(err)

	updated, err := repo.MarkUnreadAsRead(ctx, bob.ID, conversation.ID)
	req.NoError(err)
	req.Equal(2, updated)

	updated, err = repo.MarkUnreadAsRead(ctx, bob.ID, conversation.ID)
	req.NoError(err)
	req.Zero(updated)
}

func TestSQLRepository_Concurrent_MarkUnreadAsRead_Never_Duplicates(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := setupSQLiteRepository(t)
	conversation, err := repo.CreateConversation(ctx, 42, []domain.UserID{alice.ID, bob.ID})
	req.NoError(err)
	const messages = 10
	for i := 0; i < messages; i++ {
		_, err := repo.CreateMessage(ctx, alice, conversation.ID, "ping")
		req.NoError(err)
	}

	const readers = 5
	results := make([]int, readers)
	errs := make([]error, readers)
	var wg sync.WaitGroup
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = repo.MarkUnreadAsRead(ctx, bob.ID, conversation.ID)
		}(i)
	}
	wg.Wait()

	total := 0
	for i := range results {
		req.NoError(errs[i])
		total += results[i]
	}
	req.Equal(messages, total)
}

func TestSQLRepository_StartConversation_Reuses_Existing(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := setupSQLiteRepository(t)

	// Given a three way conversation and a two way one on the same listing
	_, err := repo.CreateConversation(ctx, 42, []domain.UserID{alice.ID, bob.ID, carol.ID})
	req.NoError(err)
	first, created, err := repo.StartConversation(ctx, 42, []domain.UserID{alice.ID, bob.ID})
	req.NoError(err)
	req.True(created)

	// When the pair starts again
	again, created, err := repo.StartConversation(ctx, 42, []domain.UserID{bob.ID, alice.ID, bob.ID})

	// Then the two way conversation is found, not the larger one
	req.NoError(err)
	req.False(created)
	req.Equal(first.ID, again.ID)
	req.Equal([]domain.UserID{alice.ID, bob.ID}, again.Participants)

	_, _, err = repo.StartConversation(ctx, 42, nil)
	req.ErrorIs(err, errors.ErrValidation)
}
