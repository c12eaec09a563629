package realtime

import "time"

type StartConversationRequest struct {
	ListingID    int64   `json:"listing_id"`
	Participants []int64 `json:"participants"`
}

type Conversation struct {
	ID           int64     `json:"id"`
	ListingID    int64     `json:"listing_id"`
	Participants []int64   `json:"participants"`
	CreatedAt    time.Time `json:"created_at"`
}

type StartConversationResponse struct {
	Conversation Conversation `json:"conversation"`
	Created      bool         `json:"created"`
}

type IssueTokenRequest struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// IssueTokenResponse carries a credential for the websocket and REST paths.
// ExpiresAt is omitted for tokens that never expire.
type IssueTokenResponse struct {
	Token     string     `json:"token"`
	Opaque    bool       `json:"opaque"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type RevokeTokenRequest struct {
	Token string `json:"token"`
}

type RevokeTokenResponse struct {
	Revoked bool `json:"revoked"`
}
