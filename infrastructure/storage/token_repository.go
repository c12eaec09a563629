package storage

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fasolink-chat/domain"
	"fasolink-chat/errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// TokenRepository stores opaque API tokens, one key per token: token:{key} -> DiskToken.
type TokenRepository struct {
	db  *badger.DB
	log *slog.Logger
}

type DiskToken struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	CreatedAt int64  `json:"created_at"`
}

func NewTokenRepository(db *badger.DB, log *slog.Logger) *TokenRepository {
	return &TokenRepository{db: db, log: log}
}

func tokenKey(token string) []byte {
	return []byte("token:" + token)
}

// Create issues a new opaque token for the principal. Badger drops the key once ttl
// has passed, a zero ttl keeps it until revoked.
func (t *TokenRepository) Create(_ context.Context, principal domain.Principal, ttl time.Duration) (string, error) {
	if principal.IsAnonymous() {
		return "", fmt.Errorf("%w: cannot issue a token to an anonymous principal", errors.ErrValidation)
	}
	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	data, err := json.Marshal(DiskToken{
		UserID:    int64(principal.ID),
		Username:  principal.Username,
		CreatedAt: time.Now().UTC().UnixNano(),
	})
	if err != nil {
		return "", err
	}
	if err := t.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(tokenKey(token), data)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	}); err != nil {
		return "", fmt.Errorf("%w: %w", errors.ErrPersistence, err)
	}
	return token, nil
}

// LookupToken implements contract.CredentialStore.
func (t *TokenRepository) LookupToken(_ context.Context, token string) (domain.Principal, error) {
	var dt DiskToken
	err := t.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(tokenKey(token))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, &dt)
		})
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Anonymous, errors.ErrInvalidToken
	}
	if err != nil {
		return domain.Anonymous, fmt.Errorf("%w: %w", errors.ErrPersistence, err)
	}
	return domain.Principal{ID: domain.UserID(dt.UserID), Username: dt.Username}, nil
}

// Revoke deletes the token. Revoking an unknown token is harmless.
func (t *TokenRepository) Revoke(_ context.Context, token string) error {
	if err := t.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(tokenKey(token))
	}); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrPersistence, err)
	}
	t.log.Debug("Token revoked")
	return nil
}
