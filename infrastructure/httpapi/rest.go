package httpapi

import (
	"encoding/json"
	"fasolink-chat/auth"
	"fasolink-chat/domain"
	"fasolink-chat/domain/event"
	"fasolink-chat/errors"
	"fasolink-chat/services"
	"fmt"
	"net/http"

	"github.com/samber/lo"
)

const maxBodyBytes = 1 << 20

type readResponse struct {
	Updated int `json:"updated"`
}

func (h *Handler) principal(r *http.Request) domain.Principal {
	principal, _ := h.authenticator.Resolve(r.Context(), auth.TokenFromHeader(r))
	return principal
}

func (h *Handler) postMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	principal := h.principal(r)
	if principal.IsAnonymous() {
		h.writeError(w, errors.ErrUnauthenticated)
		return
	}

	var cmd services.PostMessageCommand
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&cmd); err != nil {
		h.writeError(w, fmt.Errorf("%w: invalid body: %v", errors.ErrValidation, err))
		return
	}

	msg, err := h.chat.PostMessage(r.Context(), principal, id, cmd)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event.ToMessagePayload(msg))
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	updated, err := h.chat.MarkRead(r.Context(), h.principal(r), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, readResponse{Updated: updated})
}

func (h *Handler) listMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	messages, err := h.chat.Messages(r.Context(), h.principal(r), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lo.Map(messages, func(m domain.Message, _ int) event.MessagePayload {
		return event.ToMessagePayload(m)
	}))
}
