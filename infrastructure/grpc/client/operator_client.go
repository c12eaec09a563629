package client

import (
	"context"
	"fasolink-chat/domain"
	pb "fasolink-chat/proto/realtime"
	"fmt"
	"time"

	"github.com/samber/lo"
	"google.golang.org/grpc"
)

// OperatorClient calls the Operator service with a token carrying the operator role.
type OperatorClient struct {
	conn   *grpc.ClientConn
	client pb.OperatorClient
	token  string
}

func DialOperator(address, token string, opts ...grpc.DialOption) (*OperatorClient, error) {
	conn, err := newConn(address, opts)
	if err != nil {
		return nil, fmt.Errorf("dial operator %s: %w", address, err)
	}
	return &OperatorClient{conn: conn, client: pb.NewOperatorClient(conn), token: token}, nil
}

func (c *OperatorClient) Close() error {
	return c.conn.Close()
}

// StartConversation reports whether the server had to create the conversation.
func (c *OperatorClient) StartConversation(ctx context.Context, listingID int64, participants ...domain.UserID) (domain.Conversation, bool, error) {
	res, err := c.client.StartConversation(withToken(ctx, c.token), &pb.StartConversationRequest{
		ListingID:    listingID,
		Participants: lo.Map(participants, func(id domain.UserID, _ int) int64 { return int64(id) }),
	})
	if err != nil {
		return domain.Conversation{}, false, err
	}
	return domain.Conversation{
		ID:           domain.ConversationID(res.Conversation.ID),
		ListingID:    res.Conversation.ListingID,
		Participants: lo.Map(res.Conversation.Participants, func(id int64, _ int) domain.UserID { return domain.UserID(id) }),
		CreatedAt:    res.Conversation.CreatedAt,
	}, res.Created, nil
}

// IssueToken returns the token and its expiry, zero when it never expires.
func (c *OperatorClient) IssueToken(ctx context.Context, principal domain.Principal) (string, time.Time, error) {
	res, err := c.client.IssueToken(withToken(ctx, c.token), &pb.IssueTokenRequest{
		UserID:   int64(principal.ID),
		Username: principal.Username,
	})
	if err != nil {
		return "", time.Time{}, err
	}
	return res.Token, lo.FromPtr(res.ExpiresAt), nil
}

func (c *OperatorClient) RevokeToken(ctx context.Context, token string) error {
	_, err := c.client.RevokeToken(withToken(ctx, c.token), &pb.RevokeTokenRequest{Token: token})
	return err
}
