// Package httpapi exposes the websocket endpoints and the REST paths that feed them.
package httpapi

import (
	"encoding/json"
	"fasolink-chat/auth"
	"fasolink-chat/domain"
	"fasolink-chat/errors"
	"fasolink-chat/runtime"
	"fasolink-chat/services"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

const conversationIDVar = "conversation_id"

type Options struct {
	ConnectionBufferSize int
	WriteTimeout         time.Duration
}

type Handler struct {
	log           *slog.Logger
	router        *runtime.Router
	chat          services.IChatService
	authenticator *auth.Authenticator
	upgrader      websocket.Upgrader
	options       Options
}

func NewHandler(
	log *slog.Logger,
	router *runtime.Router,
	chat services.IChatService,
	authenticator *auth.Authenticator,
	options Options,
) *Handler {
	return &Handler{
		log:           log,
		router:        router,
		chat:          chat,
		authenticator: authenticator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browsers connect from the marketplace front end, credentials ride in the query
			CheckOrigin: func(*http.Request) bool { return true },
		},
		options: options,
	}
}

// Routes builds the full HTTP surface.
func (h *Handler) Routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)

	r.HandleFunc("/ws/conversations/{conversation_id:[0-9]+}/", h.conversationSocket)
	r.HandleFunc("/ws/notifications/", h.notificationSocket)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/conversations/{conversation_id:[0-9]+}/messages/", h.listMessages).Methods(http.MethodGet)
	api.HandleFunc("/conversations/{conversation_id:[0-9]+}/messages/", h.postMessage).Methods(http.MethodPost)
	api.HandleFunc("/conversations/{conversation_id:[0-9]+}/read/", h.markRead).Methods(http.MethodPost)
	return r
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// conversationID reads the path variable. The route pattern only lets digits through.
func conversationID(r *http.Request) (domain.ConversationID, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[conversationIDVar], 10, 64)
	if err != nil {
		return 0, false
	}
	return domain.ConversationID(id), true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := errors.HTTPStatus(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		h.log.Error("Request failed", "error", err)
		detail = "internal error"
	}
	writeJSON(w, status, errorResponse{Detail: detail})
}
