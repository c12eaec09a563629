package client

import (
	"context"
	"encoding/json"
	"fasolink-chat/domain"
	pb "fasolink-chat/proto/realtime"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// PublisherClient calls the Publisher service of a remote server with a service token.
type PublisherClient struct {
	conn   *grpc.ClientConn
	client pb.PublisherClient
	token  string
}

// Dial connects to address. Extra dial options come after the defaults so tests can
// swap the transport.
func Dial(address, token string, opts ...grpc.DialOption) (*PublisherClient, error) {
	conn, err := newConn(address, opts)
	if err != nil {
		return nil, fmt.Errorf("dial publisher %s: %w", address, err)
	}
	return &PublisherClient{conn: conn, client: pb.NewPublisherClient(conn), token: token}, nil
}

func newConn(address string, opts []grpc.DialOption) (*grpc.ClientConn, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	return grpc.NewClient(address, opts...)
}

func withToken(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
}

func (c *PublisherClient) Close() error {
	return c.conn.Close()
}

func (c *PublisherClient) withToken(ctx context.Context) context.Context {
	return withToken(ctx, c.token)
}

func (c *PublisherClient) PublishMessage(ctx context.Context, msg domain.Message) error {
	_, err := c.client.PublishMessage(c.withToken(ctx), &pb.PublishMessageRequest{
		ConversationID: int64(msg.ConversationID),
		Message: pb.Message{
			ID:        int64(msg.ID),
			Content:   msg.Content,
			SenderID:  int64(msg.SenderID),
			Sender:    msg.SenderDisplay,
			Timestamp: msg.Timestamp,
		},
	})
	return err
}

func (c *PublisherClient) PublishRead(ctx context.Context, conversationID domain.ConversationID, userID domain.UserID, updated int) error {
	_, err := c.client.PublishRead(c.withToken(ctx), &pb.PublishReadRequest{
		ConversationID: int64(conversationID),
		UserID:         int64(userID),
		Updated:        updated,
	})
	return err
}

func (c *PublisherClient) NotifyUser(ctx context.Context, userID domain.UserID, data json.RawMessage) error {
	_, err := c.client.NotifyUser(c.withToken(ctx), &pb.NotifyUserRequest{
		UserID: int64(userID),
		Data:   data,
	})
	return err
}
