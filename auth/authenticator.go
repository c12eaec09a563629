package auth

import (
	"context"
	"fasolink-chat/contract"
	"fasolink-chat/domain"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// Authenticator resolves the principal of a connection before anything else happens.
// Lookup failures never surface: callers decide what an anonymous principal may do.
type Authenticator struct {
	log    *slog.Logger
	stores []contract.CredentialStore
}

func NewAuthenticator(log *slog.Logger, stores ...contract.CredentialStore) *Authenticator {
	return &Authenticator{log: log, stores: stores}
}

// Resolve tries every store in order and returns the first principal found.
// An absent, malformed or expired token resolves to (domain.Anonymous, false).
func (a *Authenticator) Resolve(ctx context.Context, token string) (domain.Principal, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Anonymous, false
	}
	for _, store := range a.stores {
		principal, err := lookup(ctx, store, token)
		if err != nil {
			a.log.Debug("Credential lookup failed", "error", err)
			continue
		}
		if !principal.IsAnonymous() {
			return principal, true
		}
	}
	return domain.Anonymous, false
}

// lookup shields the caller from a panicking store.
func lookup(ctx context.Context, store contract.CredentialStore, token string) (p domain.Principal, err error) {
	defer func() {
		if r := recover(); r != nil {
			p, err = domain.Anonymous, fmt.Errorf("credential store panicked: %v", r)
		}
	}()
	return store.LookupToken(ctx, token)
}

// TokenFromQuery reads the out-of-band credential of a websocket handshake (?token=).
func TokenFromQuery(r *http.Request) string {
	return r.URL.Query().Get("token")
}

// TokenFromHeader accepts "Bearer <t>" and "Token <t>" authorization headers.
func TokenFromHeader(r *http.Request) string {
	value := strings.TrimSpace(r.Header.Get("Authorization"))
	for _, scheme := range []string{"Bearer ", "Token "} {
		if strings.HasPrefix(value, scheme) {
			return strings.TrimSpace(strings.TrimPrefix(value, scheme))
		}
	}
	return ""
}
