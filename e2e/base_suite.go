package e2e

import (
	"context"
	"encoding/json"
	"fasolink-chat/auth"
	"fasolink-chat/domain"
	"fasolink-chat/infrastructure/grpc/client"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// BaseSuite talks to a running server. It skips when no address is configured.
type BaseSuite struct {
	suite.Suite
	Config Config
}

func (s *BaseSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.HTTPAddr == "" || s.Config.GRPCAddr == "" || s.Config.JWTSecret == "" {
		s.T().Skip("E2E_HTTP_ADDR, E2E_GRPC_ADDR and E2E_JWT_SECRET must be set")
	}
}

func (s *BaseSuite) header(t *testing.T, name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	t.Log(header)
}

func (s *BaseSuite) Token(p domain.Principal, roles ...string) string {
	token, err := auth.NewTokenIssuer(s.Config.JWTSecret, s.Config.JWTIssuer).GenerateToken(p, roles, time.Hour)
	s.Require().NoError(err)
	return token
}

// Socket dials path on the server with the token in the query string.
func (s *BaseSuite) Socket(name, path, token string) *websocket.Conn {
	s.header(s.T(), name)
	url := "ws://" + strings.TrimPrefix(s.Config.HTTPAddr, "http://") + path
	if token != "" {
		url += "?token=" + token
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	s.Require().NoError(err, "Failed to open websocket at "+url)
	s.T().Cleanup(func() { _ = conn.Close() })
	return conn
}

// ReadFrame waits for the next frame and logs it.
func (s *BaseSuite) ReadFrame(conn *websocket.Conn) map[string]any {
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(5 * time.Second)))
	_, raw, err := conn.ReadMessage()
	s.Require().NoError(err)
	s.T().Logf("WS <- %s", raw)
	var frame map[string]any
	s.Require().NoError(json.Unmarshal(raw, &frame))
	return frame
}

// WithPublisher provides a publisher client that logs every call.
func (s *BaseSuite) WithPublisher(name string, fn func(ctx context.Context, c *client.PublisherClient)) {
	s.header(s.T(), name)
	c, err := client.Dial(s.Config.GRPCAddr, s.Token(domain.Principal{Username: "e2e"}, auth.RolePublisher), s.callLogger())
	s.Require().NoError(err)
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	fn(ctx, c)
}

// WithOperator provides an operator client that logs every call.
func (s *BaseSuite) WithOperator(name string, fn func(ctx context.Context, c *client.OperatorClient)) {
	s.header(s.T(), name)
	c, err := client.DialOperator(s.Config.GRPCAddr, s.Token(domain.Principal{Username: "e2e"}, auth.RoleOperator), s.callLogger())
	s.Require().NoError(err)
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	fn(ctx, c)
}

func (s *BaseSuite) callLogger() grpc.DialOption {
	t := s.T()
	return grpc.WithUnaryInterceptor(func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		start := time.Now()
		err := invoker(ctx, method, req, reply, cc, opts...)

		logBuilder := strings.Builder{}
		fmt.Fprintf(&logBuilder, "GRPC %s [%s] in %v", method, status.Code(err), time.Since(start))
		if s.Config.DebugJSON {
			body, _ := json.MarshalIndent(req, "", "  ")
			fmt.Fprintf(&logBuilder, "\nREQUEST:\n%s", body)
			if err == nil {
				body, _ = json.MarshalIndent(reply, "", "  ")
				fmt.Fprintf(&logBuilder, "\nRESPONSE:\n%s", body)
			}
		}
		t.Log(logBuilder.String())
		return err
	})
}
