package storage

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fasolink-chat/domain"
	"fasolink-chat/errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

// SQLRepository is the persistence gateway backed by SQLite or PostgreSQL.
// Queries are written with ? placeholders and rebound for postgres.
type SQLRepository struct {
	db      *sql.DB
	dialect Dialect
	log     *slog.Logger
	now     func() time.Time
}

func NewSQLRepository(db *sql.DB, dialect Dialect, log *slog.Logger) *SQLRepository {
	return &SQLRepository{
		db:      db,
		dialect: dialect,
		log:     log,
		// postgres keeps microseconds, truncate so returned records match stored ones
		now: func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

func (r *SQLRepository) rebind(query string) string {
	if r.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

func (r *SQLRepository) CreateConversation(ctx context.Context, listingID int64, participants []domain.UserID) (domain.Conversation, error) {
	participants = lo.Uniq(participants)
	if len(participants) == 0 {
		return domain.Conversation{}, fmt.Errorf("%w: a conversation needs participants", errors.ErrValidation)
	}
	conversation := domain.Conversation{ListingID: listingID, Participants: participants, CreatedAt: r.now()}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("%w: %w", errors.ErrPersistence, err)
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	err = tx.QueryRowContext(ctx,
		r.rebind(`INSERT INTO conversations (listing_id, created_at) VALUES (?, ?) RETURNING id`),
		listingID, conversation.CreatedAt,
	).Scan(&id)
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("%w: insert conversation: %w", errors.ErrPersistence, err)
	}
	conversation.ID = domain.ConversationID(id)

	for _, userID := range participants {
		if _, err := tx.ExecContext(ctx,
			r.rebind(`INSERT INTO conversation_participants (conversation_id, user_id) VALUES (?, ?)`),
			id, int64(userID),
		); err != nil {
			return domain.Conversation{}, fmt.Errorf("%w: insert participant: %w", errors.ErrPersistence, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.Conversation{}, fmt.Errorf("%w: %w", errors.ErrPersistence, err)
	}
	return conversation, nil
}

// StartConversation returns the conversation of the listing between exactly these
// participants, creating it when there is none.
func (r *SQLRepository) StartConversation(ctx context.Context, listingID int64, participants []domain.UserID) (domain.Conversation, bool, error) {
	participants = lo.Uniq(participants)
	if len(participants) == 0 {
		return domain.Conversation{}, false, fmt.Errorf("%w: a conversation needs participants", errors.ErrValidation)
	}
	existing, ok, err := r.findConversation(ctx, listingID, participants)
	if err != nil || ok {
		return existing, false, err
	}
	created, err := r.CreateConversation(ctx, listingID, participants)
	if err != nil {
		return domain.Conversation{}, false, err
	}
	return created, true, nil
}

// findConversation lists the conversations of the listing whose participant count matches,
// then compares the member sets.
func (r *SQLRepository) findConversation(ctx context.Context, listingID int64, participants []domain.UserID) (domain.Conversation, bool, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(`
		SELECT c.id, c.created_at FROM conversations c
		WHERE c.listing_id = ?
		  AND (SELECT COUNT(*) FROM conversation_participants p WHERE p.conversation_id = c.id) = ?
		ORDER BY c.id`),
		listingID, len(participants),
	)
	if err != nil {
		return domain.Conversation{}, false, fmt.Errorf("%w: %w", errors.ErrPersistence, err)
	}
	var candidates []domain.Conversation
	for rows.Next() {
		var (
			id        int64
			createdAt time.Time
		)
		if err := rows.Scan(&id, &createdAt); err != nil {
			_ = rows.Close()
			return domain.Conversation{}, false, fmt.Errorf("%w: %w", errors.ErrPersistence, err)
		}
		candidates = append(candidates, domain.Conversation{
			ID: domain.ConversationID(id), ListingID: listingID, CreatedAt: createdAt.UTC(),
		})
	}
	if err := rows.Close(); err != nil {
		return domain.Conversation{}, false, fmt.Errorf("%w: %w", errors.ErrPersistence, err)
	}

	for _, c := range candidates {
		members, err := r.Participants(ctx, c.ID)
		if err != nil {
			return domain.Conversation{}, false, err
		}
		if len(members) == len(participants) && lo.Every(members, participants) {
			c.Participants = members
			return c, true, nil
		}
	}
	return domain.Conversation{}, false, nil
}

func (r *SQLRepository) IsParticipant(ctx context.Context, userID domain.UserID, conversationID domain.ConversationID) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		r.rebind(`SELECT 1 FROM conversation_participants WHERE conversation_id = ? AND user_id = ?`),
		int64(conversationID), int64(userID),
	).Scan(&one)
	if stderrors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %w", errors.ErrPersistence, err)
	}
	return true, nil
}

func (r *SQLRepository) Participants(ctx context.Context, conversationID domain.ConversationID) ([]domain.UserID, error) {
	if err := r.conversationExists(ctx, r.db, conversationID); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		r.rebind(`SELECT user_id FROM conversation_participants WHERE conversation_id = ? ORDER BY user_id`),
		int64(conversationID),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrPersistence, err)
	}
	defer rows.Close()

	var participants []domain.UserID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: %w", errors.ErrPersistence, err)
		}
		participants = append(participants, domain.UserID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrPersistence, err)
	}
	return participants, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *SQLRepository) conversationExists(ctx context.Context, q queryRower, conversationID domain.ConversationID) error {
	var one int
	err := q.QueryRowContext(ctx, r.rebind(`SELECT 1 FROM conversations WHERE id = ?`), int64(conversationID)).Scan(&one)
	if stderrors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %d", errors.ErrConversationNotFound, conversationID)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", errors.ErrPersistence, err)
	}
	return nil
}

func (r *SQLRepository) CreateMessage(
	ctx context.Context,
	sender domain.Principal,
	conversationID domain.ConversationID,
	text string,
) (domain.Message, error) {
	msg := domain.Message{
		ConversationID: conversationID,
		Content:        text,
		SenderID:       sender.ID,
		SenderDisplay:  sender.Username,
		Timestamp:      r.now(),
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %w", errors.ErrPersistence, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := r.conversationExists(ctx, tx, conversationID); err != nil {
		return domain.Message{}, err
	}
	var id int64
	err = tx.QueryRowContext(ctx,
		r.rebind(`INSERT INTO messages (conversation_id, sender_id, sender_username, content, created_at)
		VALUES (?, ?, ?, ?, ?) RETURNING id`),
		int64(conversationID), int64(sender.ID), sender.Username, text, msg.Timestamp,
	).Scan(&id)
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: insert message: %w", errors.ErrPersistence, err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Message{}, fmt.Errorf("%w: %w", errors.ErrPersistence, err)
	}
	msg.ID = domain.MessageID(id)
	return msg, nil
}

// MarkUnreadAsRead inserts every missing marker in one statement.
// Rows another caller inserted first are skipped by the conflict clause,
// so RowsAffected counts only the markers this call created.
func (r *SQLRepository) MarkUnreadAsRead(ctx context.Context, userID domain.UserID, conversationID domain.ConversationID) (int, error) {
	res, err := r.db.ExecContext(ctx, r.rebind(`
		INSERT INTO message_reads (message_id, user_id, read_at)
		SELECT m.id, ?, ? FROM messages m
		WHERE m.conversation_id = ?
		  AND m.sender_id <> ?
		  AND NOT EXISTS (
		      SELECT 1 FROM message_reads mr WHERE mr.message_id = m.id AND mr.user_id = ?
		  )
		ON CONFLICT (message_id, user_id) DO NOTHING`),
		int64(userID), r.now(), int64(conversationID), int64(userID), int64(userID),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: mark read: %w", errors.ErrPersistence, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: mark read: %w", errors.ErrPersistence, err)
	}
	return int(affected), nil
}

func (r *SQLRepository) Messages(ctx context.Context, conversationID domain.ConversationID) ([]domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(`
		SELECT id, sender_id, sender_username, content, created_at
		FROM messages WHERE conversation_id = ? ORDER BY id`),
		int64(conversationID),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrPersistence, err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var (
			id, senderID int64
			m            domain.Message
		)
		if err := rows.Scan(&id, &senderID, &m.SenderDisplay, &m.Content, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("%w: %w", errors.ErrPersistence, err)
		}
		m.ID = domain.MessageID(id)
		m.SenderID = domain.UserID(senderID)
		m.ConversationID = conversationID
		m.Timestamp = m.Timestamp.UTC()
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrPersistence, err)
	}
	return messages, nil
}
