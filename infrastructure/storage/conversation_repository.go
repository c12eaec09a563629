package storage

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fasolink-chat/domain"
	"fasolink-chat/errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
)

const (
	conversationSequenceKey = "seq:convo"
	messageSequenceKey      = "seq:msg"
	sequenceBandwidth       = 100
	maxTxnRetries           = 10
)

// ConversationRepository is the badger persistence gateway.
//
// Key layout:
//
//	convo:{conversation_id}                          -> DiskConversation
//	member:{conversation_id}:{user_id}               -> empty
//	msg:{conversation_id}:{message_id}               -> DiskMessage
//	read:{conversation_id}:{user_id}:{message_id}    -> read time (unix nano)
//	listing:{listing_id}                             -> empty, written with every conversation of the listing
//
// Ids are zero padded to 19 digits so prefix scans come back in id order.
type ConversationRepository struct {
	db            *badger.DB
	log           *slog.Logger
	conversations *badger.Sequence
	messages      *badger.Sequence
	now           func() time.Time
}

type DiskConversation struct {
	ID           int64   `json:"id"`
	ListingID    int64   `json:"listing_id"`
	Participants []int64 `json:"participants"`
	CreatedAt    int64   `json:"created_at"`
}

type DiskMessage struct {
	ID             int64  `json:"id"`
	ConversationID int64  `json:"conversation_id"`
	Content        string `json:"content"`
	SenderID       int64  `json:"sender_id"`
	SenderDisplay  string `json:"sender"`
	At             int64  `json:"at"`
}

func NewConversationRepository(db *badger.DB, log *slog.Logger) (*ConversationRepository, error) {
	conversations, err := db.GetSequence([]byte(conversationSequenceKey), sequenceBandwidth)
	if err != nil {
		return nil, fmt.Errorf("conversation sequence: %w", err)
	}
	messages, err := db.GetSequence([]byte(messageSequenceKey), sequenceBandwidth)
	if err != nil {
		_ = conversations.Release()
		return nil, fmt.Errorf("message sequence: %w", err)
	}
	return &ConversationRepository{
		db:            db,
		log:           log,
		conversations: conversations,
		messages:      messages,
		now:           func() time.Time { return time.Now().UTC() },
	}, nil
}

// Close hands the leased sequence ranges back to badger. The db itself stays open.
func (r *ConversationRepository) Close() error {
	return stderrors.Join(r.conversations.Release(), r.messages.Release())
}

func conversationKey(id domain.ConversationID) []byte {
	return []byte(fmt.Sprintf("convo:%019d", id))
}

func memberKey(id domain.ConversationID, userID domain.UserID) []byte {
	return []byte(fmt.Sprintf("member:%019d:%019d", id, userID))
}

func messagePrefix(id domain.ConversationID) []byte {
	return []byte(fmt.Sprintf("msg:%019d:", id))
}

func messageKey(id domain.ConversationID, messageID domain.MessageID) []byte {
	return []byte(fmt.Sprintf("msg:%019d:%019d", id, messageID))
}

func listingKey(listingID int64) []byte {
	return []byte(fmt.Sprintf("listing:%019d", listingID))
}

func readKey(id domain.ConversationID, userID domain.UserID, messageID domain.MessageID) []byte {
	return []byte(fmt.Sprintf("read:%019d:%019d:%019d", id, userID, messageID))
}

// nextID skips the zero badger hands out first, ids start at 1.
func nextID(seq *badger.Sequence) (int64, error) {
	for {
		id, err := seq.Next()
		if err != nil {
			return 0, err
		}
		if id != 0 {
			return int64(id), nil
		}
	}
}

// CreateConversation stores a conversation and its participant index.
func (r *ConversationRepository) CreateConversation(_ context.Context, listingID int64, participants []domain.UserID) (domain.Conversation, error) {
	conversation, err := r.newConversation(listingID, participants)
	if err != nil {
		return domain.Conversation{}, err
	}
	if err := r.db.Update(func(txn *badger.Txn) error {
		return putConversation(txn, conversation)
	}); err != nil {
		return domain.Conversation{}, fmt.Errorf("%w: %w", errors.ErrPersistence, err)
	}
	return conversation, nil
}

// StartConversation returns the conversation of the listing between exactly these
// participants, creating it when there is none. The scan and the write share one
// transaction, two concurrent starts conflict and the retry finds the winner.
func (r *ConversationRepository) StartConversation(ctx context.Context, listingID int64, participants []domain.UserID) (domain.Conversation, bool, error) {
	candidate, err := r.newConversation(listingID, participants)
	if err != nil {
		return domain.Conversation{}, false, err
	}
	for attempt := 1; ; attempt++ {
		var (
			found   domain.Conversation
			created bool
		)
		err := r.db.Update(func(txn *badger.Txn) error {
			existing, ok, err := findConversation(txn, listingID, candidate.Participants)
			if err != nil {
				return err
			}
			if ok {
				found = existing
				return nil
			}
			found, created = candidate, true
			return putConversation(txn, candidate)
		})
		if err == nil {
			return found, created, nil
		}
		if !stderrors.Is(err, badger.ErrConflict) || attempt == maxTxnRetries || ctx.Err() != nil {
			return domain.Conversation{}, false, fmt.Errorf("%w: start conversation: %w", errors.ErrPersistence, err)
		}
		r.log.Debug("Conversation start conflicted, retrying", "listing_id", listingID, "attempt", attempt)
	}
}

// newConversation allocates an id for a conversation not written yet.
func (r *ConversationRepository) newConversation(listingID int64, participants []domain.UserID) (domain.Conversation, error) {
	participants = lo.Uniq(participants)
	if len(participants) == 0 {
		return domain.Conversation{}, fmt.Errorf("%w: a conversation needs participants", errors.ErrValidation)
	}
	rawID, err := nextID(r.conversations)
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("%w: %w", errors.ErrPersistence, err)
	}
	return domain.Conversation{
		ID:           domain.ConversationID(rawID),
		ListingID:    listingID,
		Participants: participants,
		CreatedAt:    r.now(),
	}, nil
}

func putConversation(txn *badger.Txn, conversation domain.Conversation) error {
	data, err := json.Marshal(toDiskConversation(conversation))
	if err != nil {
		return err
	}
	if err := txn.Set(conversationKey(conversation.ID), data); err != nil {
		return err
	}
	if err := txn.Set(listingKey(conversation.ListingID), nil); err != nil {
		return err
	}
	for _, userID := range conversation.Participants {
		if err := txn.Set(memberKey(conversation.ID, userID), nil); err != nil {
			return err
		}
	}
	return nil
}

// findConversation scans every stored conversation. Reading the listing key first
// makes a concurrent start on the same listing conflict even when nothing is found.
func findConversation(txn *badger.Txn, listingID int64, participants []domain.UserID) (domain.Conversation, bool, error) {
	if _, err := txn.Get(listingKey(listingID)); err != nil && !stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Conversation{}, false, err
	}
	prefix := []byte("convo:")
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var dc DiskConversation
		if err := it.Item().Value(func(v []byte) error {
			return json.Unmarshal(v, &dc)
		}); err != nil {
			return domain.Conversation{}, false, err
		}
		if dc.ListingID != listingID {
			continue
		}
		conversation := fromDiskConversation(dc)
		if sameMembers(conversation.Participants, participants) {
			return conversation, true, nil
		}
	}
	return domain.Conversation{}, false, nil
}

// sameMembers compares two duplicate free participant lists regardless of order.
func sameMembers(a, b []domain.UserID) bool {
	return len(a) == len(b) && lo.Every(a, b)
}

func (r *ConversationRepository) IsParticipant(_ context.Context, userID domain.UserID, conversationID domain.ConversationID) (bool, error) {
	var member bool
	err := r.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(memberKey(conversationID, userID))
		switch {
		case err == nil:
			member = true
			return nil
		case stderrors.Is(err, badger.ErrKeyNotFound):
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return false, fmt.Errorf("%w: %w", errors.ErrPersistence, err)
	}
	return member, nil
}

func (r *ConversationRepository) Participants(_ context.Context, conversationID domain.ConversationID) ([]domain.UserID, error) {
	var conversation domain.Conversation
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		conversation, err = getConversation(txn, conversationID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return conversation.Participants, nil
}

// CreateMessage assigns the id and the timestamp, nothing else is trusted from the caller.
func (r *ConversationRepository) CreateMessage(
	_ context.Context,
	sender domain.Principal,
	conversationID domain.ConversationID,
	text string,
) (domain.Message, error) {
	rawID, err := nextID(r.messages)
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %w", errors.ErrPersistence, err)
	}
	msg := domain.Message{
		ID:             domain.MessageID(rawID),
		ConversationID: conversationID,
		Content:        text,
		SenderID:       sender.ID,
		SenderDisplay:  sender.Username,
		Timestamp:      r.now(),
	}
	data, err := json.Marshal(toDiskMessage(msg))
	if err != nil {
		return domain.Message{}, err
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		if _, err := getConversation(txn, conversationID); err != nil {
			return err
		}
		return txn.Set(messageKey(conversationID, msg.ID), data)
	})
	if err != nil {
		return domain.Message{}, err
	}
	return msg, nil
}

// MarkUnreadAsRead writes a read marker for every message of the conversation that the
// user did not send and has not read yet, and returns how many were written.
// The whole batch is one transaction. When two calls race, badger aborts the loser
// with ErrConflict and the retry sees the winner's markers, so no marker is written twice.
func (r *ConversationRepository) MarkUnreadAsRead(ctx context.Context, userID domain.UserID, conversationID domain.ConversationID) (int, error) {
	for attempt := 1; ; attempt++ {
		updated, err := r.markUnreadAsRead(userID, conversationID)
		if err == nil {
			return updated, nil
		}
		if !stderrors.Is(err, badger.ErrConflict) || attempt == maxTxnRetries || ctx.Err() != nil {
			return 0, fmt.Errorf("%w: mark read: %w", errors.ErrPersistence, err)
		}
		r.log.Debug("Read markers conflicted, retrying", "conversation_id", conversationID, "user_id", userID, "attempt", attempt)
	}
}

func (r *ConversationRepository) markUnreadAsRead(userID domain.UserID, conversationID domain.ConversationID) (int, error) {
	updated := 0
	readAt := []byte(fmt.Sprintf("%d", r.now().UnixNano()))

	err := r.db.Update(func(txn *badger.Txn) error {
		var unread []domain.MessageID
		prefix := messagePrefix(conversationID)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var dm DiskMessage
			if err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &dm)
			}); err != nil {
				it.Close()
				return err
			}
			if domain.UserID(dm.SenderID) == userID {
				continue
			}
			_, err := txn.Get(readKey(conversationID, userID, domain.MessageID(dm.ID)))
			switch {
			case err == nil:
				continue
			case stderrors.Is(err, badger.ErrKeyNotFound):
				unread = append(unread, domain.MessageID(dm.ID))
			default:
				it.Close()
				return err
			}
		}
		it.Close()

		for _, messageID := range unread {
			if err := txn.Set(readKey(conversationID, userID, messageID), readAt); err != nil {
				return err
			}
		}
		updated = len(unread)
		return nil
	})
	return updated, err
}

// Messages returns the conversation history in id order.
func (r *ConversationRepository) Messages(_ context.Context, conversationID domain.ConversationID) ([]domain.Message, error) {
	var messages []domain.Message
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := messagePrefix(conversationID)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(v []byte) error {
				var dm DiskMessage
				if err := json.Unmarshal(v, &dm); err != nil {
					return fmt.Errorf("failed to unmarshal message: %w", err)
				}
				messages = append(messages, fromDiskMessage(dm))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrPersistence, err)
	}
	return messages, nil
}

func getConversation(txn *badger.Txn, id domain.ConversationID) (domain.Conversation, error) {
	item, err := txn.Get(conversationKey(id))
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Conversation{}, fmt.Errorf("%w: %d", errors.ErrConversationNotFound, id)
	}
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("%w: %w", errors.ErrPersistence, err)
	}
	var dc DiskConversation
	if err := item.Value(func(v []byte) error {
		return json.Unmarshal(v, &dc)
	}); err != nil {
		return domain.Conversation{}, fmt.Errorf("%w: %w", errors.ErrPersistence, err)
	}
	return fromDiskConversation(dc), nil
}

func toDiskConversation(c domain.Conversation) DiskConversation {
	return DiskConversation{
		ID:           int64(c.ID),
		ListingID:    c.ListingID,
		Participants: lo.Map(c.Participants, func(u domain.UserID, _ int) int64 { return int64(u) }),
		CreatedAt:    c.CreatedAt.UnixNano(),
	}
}

func fromDiskConversation(dc DiskConversation) domain.Conversation {
	return domain.Conversation{
		ID:           domain.ConversationID(dc.ID),
		ListingID:    dc.ListingID,
		Participants: lo.Map(dc.Participants, func(u int64, _ int) domain.UserID { return domain.UserID(u) }),
		CreatedAt:    time.Unix(0, dc.CreatedAt).UTC(),
	}
}

func toDiskMessage(m domain.Message) DiskMessage {
	return DiskMessage{
		ID:             int64(m.ID),
		ConversationID: int64(m.ConversationID),
		Content:        m.Content,
		SenderID:       int64(m.SenderID),
		SenderDisplay:  m.SenderDisplay,
		At:             m.Timestamp.UnixNano(),
	}
}

func fromDiskMessage(dm DiskMessage) domain.Message {
	return domain.Message{
		ID:             domain.MessageID(dm.ID),
		ConversationID: domain.ConversationID(dm.ConversationID),
		Content:        dm.Content,
		SenderID:       domain.UserID(dm.SenderID),
		SenderDisplay:  dm.SenderDisplay,
		Timestamp:      time.Unix(0, dm.At).UTC(),
	}
}
