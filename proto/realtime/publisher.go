// Package realtime is the wire contract of the fasolink.realtime.v1 Publisher and Operator services.
// Messages travel as JSON through the "json" gRPC codec registered below,
// so the service works without generated protobuf code.
package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/grpc/encoding"
)

// CodecName is the content-subtype clients must select with grpc.CallContentSubtype.
const CodecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("json codec: %w", err)
	}
	return nil
}

func (jsonCodec) Name() string {
	return CodecName
}

type Message struct {
	ID        int64     `json:"id" validate:"gt=0"`
	Content   string    `json:"content" validate:"required"`
	SenderID  int64     `json:"sender_id" validate:"gt=0"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp" validate:"required"`
}

type PublishMessageRequest struct {
	ConversationID int64   `json:"conversation_id" validate:"gt=0"`
	Message        Message `json:"message"`
}

type PublishReadRequest struct {
	ConversationID int64 `json:"conversation_id" validate:"gt=0"`
	UserID         int64 `json:"user_id" validate:"gt=0"`
	Updated        int   `json:"updated" validate:"gte=0"`
}

type NotifyUserRequest struct {
	UserID int64           `json:"user_id" validate:"gt=0"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// PublishResponse acknowledges the publish request, not the delivery.
type PublishResponse struct {
	Accepted bool `json:"accepted"`
}
