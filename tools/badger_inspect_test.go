package main

import (
	"encoding/json"
	"fasolink-chat/infrastructure/storage"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDescribe(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC).UnixNano()
	message, err := json.Marshal(storage.DiskMessage{ID: 7, ConversationID: 5, Content: "hi", SenderID: 1, SenderDisplay: "alice", At: at})
	require.NoError(t, err)
	token, err := json.Marshal(storage.DiskToken{UserID: 2, Username: "bob", CreatedAt: at})
	require.NoError(t, err)

	for _, tt := range []struct {
		name string
		key  string
		val  []byte
		want []string
	}{
		{
			name: "message",
			key:  "msg:0000000000000000005:0000000000000000007",
			val:  message,
			want: []string{"msg:0000000000000000005:0000000000000000007", "MESSAGE", "2024-05-01 10:30:00", "alice: hi"},
		},
		{
			name: "token is shortened",
			key:  "token:0123456789abcdef",
			val:  token,
			want: []string{"token:01234567…", "TOKEN", "2024-05-01 10:30:00", "user=2 bob"},
		},
		{
			name: "listing marker",
			key:  "listing:0000000000000000042",
			want: []string{"listing:0000000000000000042", "LISTING", "", ""},
		},
		{
			name: "undecodable value is shown raw",
			key:  "convo:0000000000000000005",
			val:  []byte("garbage"),
			want: []string{"convo:0000000000000000005", "CONVO", "", "garbage"},
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, describe(tt.key, tt.val))
		})
	}
}
