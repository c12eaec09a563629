package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fasolink-chat/auth"
	"fasolink-chat/domain"
	"fasolink-chat/errors"
	"fasolink-chat/infrastructure/storage"
	"fasolink-chat/runtime"
	"fasolink-chat/services"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

var (
	alice = domain.Principal{ID: 1, Username: "alice"}
	bob   = domain.Principal{ID: 2, Username: "bob"}
	carol = domain.Principal{ID: 3, Username: "carol"}
)

type fixture struct {
	server       *httptest.Server
	registry     *runtime.Registry
	repo         *storage.ConversationRepository
	issuer       *auth.TokenIssuer
	conversation domain.Conversation
}

func newFixture(t *testing.T) fixture {
	req := require.New(t)
	log := slog.Default()

	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	req.NoError(err)
	repo, err := storage.NewConversationRepository(db, log)
	req.NoError(err)
	t.Cleanup(func() {
		_ = repo.Close()
		_ = db.Close()
	})

	// Conversation 5 between alice and bob, the earlier ones belong to other people
	var conversation domain.Conversation
	for conversation.ID < 5 {
		conversation, err = repo.CreateConversation(context.Background(), 42, []domain.UserID{alice.ID, bob.ID})
		req.NoError(err)
	}

	issuer := auth.NewTokenIssuer("secret", "fasolink")
	authenticator := auth.NewAuthenticator(log, issuer)
	registry := runtime.NewRegistry(log)
	router := runtime.NewRouter(log, authenticator, repo, registry, 20)
	chat := services.NewChatService(log, repo, repo, runtime.NewPublisher(registry, log), 20)

	handler := NewHandler(log, router, chat, authenticator, Options{
		ConnectionBufferSize: 16,
		WriteTimeout:         time.Second,
	})
	server := httptest.NewServer(handler.Routes())
	t.Cleanup(server.Close)

	return fixture{server: server, registry: registry, repo: repo, issuer: issuer, conversation: conversation}
}

func (f fixture) token(t *testing.T, p domain.Principal) string {
	token, err := f.issuer.GenerateToken(p, nil, time.Hour)
	require.NoError(t, err)
	return token
}

func (f fixture) dial(t *testing.T, path, token string) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + path
	if token != "" {
		url += "?token=" + token
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func (f fixture) conversationPath() string {
	return fmt.Sprintf("/ws/conversations/%d/", f.conversation.ID)
}

func (f fixture) waitMembers(t *testing.T, group domain.GroupName, n int) {
	require.Eventually(t, func() bool { return f.registry.Members(group) == n }, 2*time.Second, 10*time.Millisecond)
}

func (f fixture) rest(t *testing.T, method, path, token string, body any) *http.Response {
	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}
	r, err := http.NewRequest(method, f.server.URL+path, &payload)
	require.NoError(t, err)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(r)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame map[string]any
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestConversationSocket_Typing_Message_Read(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	group := domain.ConversationGroup(f.conversation.ID)

	// Given alice and bob both connected to conversation 5
	a := f.dial(t, f.conversationPath(), f.token(t, alice))
	f.waitMembers(t, group, 1)
	b := f.dial(t, f.conversationPath(), f.token(t, bob))
	f.waitMembers(t, group, 2)
	req.Equal("convo_5", string(group))

	// When alice types
	req.NoError(a.WriteJSON(map[string]any{"action": "typing"}))

	// Then both receive the typing signal
	for _, conn := range []*websocket.Conn{a, b} {
		frame := readFrame(t, conn)
		req.Equal("typing", frame["event"])
		req.EqualValues(alice.ID, frame["user_id"])
	}

	// When alice sends a message
	req.NoError(a.WriteJSON(map[string]any{"action": "message", "content": "  hi  "}))

	// Then both receive the same persisted message
	var ids []any
	for _, conn := range []*websocket.Conn{a, b} {
		frame := readFrame(t, conn)
		req.Equal("message.created", frame["event"])
		message := frame["message"].(map[string]any)
		req.Equal("hi", message["content"])
		req.EqualValues(alice.ID, message["sender_id"])
		req.Equal("alice", message["sender"])
		ids = append(ids, message["id"])
	}
	req.Equal(ids[0], ids[1])

	// When bob marks the conversation read
	req.NoError(b.WriteJSON(map[string]any{"action": "read"}))

	// Then both receive the receipt with one updated message
	for _, conn := range []*websocket.Conn{a, b} {
		frame := readFrame(t, conn)
		req.Equal("read", frame["event"])
		req.EqualValues(bob.ID, frame["user_id"])
		req.EqualValues(1, frame["updated"])
	}

	// When bob leaves, only alice remains in the group
	req.NoError(b.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	f.waitMembers(t, group, 1)
}

func TestConversationSocket_Denied_With_4403(t *testing.T) {
	for _, tt := range []struct {
		name  string
		token func(t *testing.T, f fixture) string
	}{
		{name: "anonymous", token: func(*testing.T, fixture) string { return "" }},
		{name: "garbage token", token: func(*testing.T, fixture) string { return "not-a-token" }},
		{name: "non participant", token: func(t *testing.T, f fixture) string { return f.token(t, carol) }},
	} {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			f := newFixture(t)

			conn := f.dial(t, f.conversationPath(), tt.token(t, f))

			req.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
			_, _, err := conn.ReadMessage()
			req.True(websocket.IsCloseError(err, errors.CloseForbidden), "got %v", err)
			req.Zero(f.registry.Members(domain.ConversationGroup(f.conversation.ID)))
		})
	}
}

func TestConversationSocket_Unknown_Conversation_Is_Denied(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	conn := f.dial(t, "/ws/conversations/999/", f.token(t, alice))

	req.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, _, err := conn.ReadMessage()
	req.True(websocket.IsCloseError(err, errors.CloseForbidden), "got %v", err)
}

func TestNotificationSocket_Receives_Conversation_Updated(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	// Given bob listening on his notification channel and alice on the conversation
	notifications := f.dial(t, "/ws/notifications/", f.token(t, bob))
	f.waitMembers(t, domain.UserGroup(bob.ID), 1)
	a := f.dial(t, f.conversationPath(), f.token(t, alice))
	f.waitMembers(t, domain.ConversationGroup(f.conversation.ID), 1)

	// When alice posts through the REST path
	resp := f.rest(t, http.MethodPost, fmt.Sprintf("/api/conversations/%d/messages/", f.conversation.ID),
		f.token(t, alice), map[string]string{"content": "still available?"})

	// Then the message is created and broadcast
	req.Equal(http.StatusCreated, resp.StatusCode)
	var created map[string]any
	req.NoError(json.NewDecoder(resp.Body).Decode(&created))
	req.Equal("still available?", created["content"])

	frame := readFrame(t, a)
	req.Equal("message.created", frame["event"])
	req.Equal(created["id"], frame["message"].(map[string]any)["id"])

	// And bob is told the conversation changed
	frame = readFrame(t, notifications)
	req.Equal("conversation.updated", frame["event"])
	req.EqualValues(f.conversation.ID, frame["conversation_id"])
}

func TestNotificationSocket_Anonymous_Is_Denied(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	conn := f.dial(t, "/ws/notifications/", "")

	req.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, _, err := conn.ReadMessage()
	req.True(websocket.IsCloseError(err, errors.CloseForbidden), "got %v", err)
}

func TestREST_Status_Codes(t *testing.T) {
	f := newFixture(t)
	messages := fmt.Sprintf("/api/conversations/%d/messages/", f.conversation.ID)

	for _, tt := range []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		want   int
	}{
		{"post anonymous", http.MethodPost, messages, "", map[string]string{"content": "hi"}, http.StatusUnauthorized},
		{"post non participant", http.MethodPost, messages, f.token(t, carol), map[string]string{"content": "hi"}, http.StatusForbidden},
		{"post unknown conversation", http.MethodPost, "/api/conversations/999/messages/", f.token(t, alice), map[string]string{"content": "hi"}, http.StatusNotFound},
		{"post blank content", http.MethodPost, messages, f.token(t, alice), map[string]string{"content": "   "}, http.StatusBadRequest},
		{"post too long", http.MethodPost, messages, f.token(t, alice), map[string]string{"content": strings.Repeat("x", 21)}, http.StatusBadRequest},
		{"post not json", http.MethodPost, messages, f.token(t, alice), "nope", http.StatusBadRequest},
		{"history anonymous", http.MethodGet, messages, "", nil, http.StatusUnauthorized},
		{"read non participant", http.MethodPost, fmt.Sprintf("/api/conversations/%d/read/", f.conversation.ID), f.token(t, carol), nil, http.StatusForbidden},
	} {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.rest(t, tt.method, tt.path, tt.token, tt.body)
			require.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestREST_Read_And_History(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	// Given two messages from alice
	for _, content := range []string{"first", "second"} {
		_, err := f.repo.CreateMessage(ctx, alice, f.conversation.ID, content)
		req.NoError(err)
	}

	// When bob marks the conversation read twice
	readPath := fmt.Sprintf("/api/conversations/%d/read/", f.conversation.ID)
	var first, second readResponse
	req.NoError(json.NewDecoder(f.rest(t, http.MethodPost, readPath, f.token(t, bob), nil).Body).Decode(&first))
	req.NoError(json.NewDecoder(f.rest(t, http.MethodPost, readPath, f.token(t, bob), nil).Body).Decode(&second))

	// Then only the first call updates anything
	req.Equal(2, first.Updated)
	req.Zero(second.Updated)

	// And the history lists both messages oldest first
	resp := f.rest(t, http.MethodGet, fmt.Sprintf("/api/conversations/%d/messages/", f.conversation.ID), f.token(t, bob), nil)
	req.Equal(http.StatusOK, resp.StatusCode)
	var history []map[string]any
	req.NoError(json.NewDecoder(resp.Body).Decode(&history))
	req.Len(history, 2)
	req.Equal("first", history[0]["content"])
	req.Equal("second", history[1]["content"])
}

func TestHealthz(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	resp := f.rest(t, http.MethodGet, "/healthz", "", nil)

	req.Equal(http.StatusOK, resp.StatusCode)
}
