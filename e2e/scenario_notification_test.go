package e2e

import (
	"context"
	"encoding/json"
	"fasolink-chat/domain"
	"fasolink-chat/errors"
	"fasolink-chat/infrastructure/grpc/client"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

type testNotificationSuite struct {
	BaseSuite
}

func TestNotificationSuite(t *testing.T) {
	suite.Run(t, &testNotificationSuite{})
}

func (s *testNotificationSuite) TestPublisherReachesUserChannel() {
	// A user id nobody else uses, so no other channel gets the frame
	user := domain.Principal{ID: domain.UserID(time.Now().UnixNano()%1_000_000_000 + 1), Username: "e2e-user"}
	marker := uuid.NewString()
	var conn *websocket.Conn

	s.Run("Step 1: Open the notification channel", func() {
		conn = s.Socket("Notification socket", "/ws/notifications/", s.Token(user))
	})

	s.Run("Step 2: Push a notification through the publisher", func() {
		// The server joins the group right after the handshake, give it a moment
		time.Sleep(200 * time.Millisecond)
		data, err := json.Marshal(map[string]string{"event": "e2e.ping", "marker": marker})
		s.Require().NoError(err)
		s.WithPublisher("NotifyUser", func(ctx context.Context, c *client.PublisherClient) {
			s.Require().NoError(c.NotifyUser(ctx, user.ID, data))
		})
	})

	s.Run("Step 3: The payload arrives unchanged", func() {
		frame := s.ReadFrame(conn)
		s.Require().Equal("e2e.ping", frame["event"])
		s.Require().Equal(marker, frame["marker"])
	})
}

func (s *testNotificationSuite) TestAnonymousConversationIsDenied() {
	conn := s.Socket("Anonymous conversation socket", "/ws/conversations/1/", "")

	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(5 * time.Second)))
	_, _, err := conn.ReadMessage()
	s.Require().True(websocket.IsCloseError(err, errors.CloseForbidden), "got %v", err)
}
