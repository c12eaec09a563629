package workers

import (
	"context"
	"fasolink-chat/domain"
	"fasolink-chat/domain/event"
	"fasolink-chat/mocks"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestBrokerRelay_Delivers_Envelopes_Locally(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	broker := mocks.NewMockBroker(ctrl)
	local := mocks.NewMockGroupRegistry(ctrl)

	valid, err := event.Encode(domain.ConversationGroup(5), event.ReadReceipt{UserID: 2, Updated: 1})
	req.NoError(err)

	// Given a broker handing one valid and one broken envelope
	broker.EXPECT().Subscribe(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, handler func([]byte)) error {
			handler(valid)
			handler([]byte(`{"type":"chat.read","group":"nope"}`))
			return nil
		})

	// Then only the valid one reaches the local registry
	local.EXPECT().
		Send(gomock.Any(), domain.ConversationGroup(5), event.ReadReceipt{UserID: 2, Updated: 1}).
		Return(nil).Times(1)

	req.NoError(NewBrokerRelay(broker, local, slog.Default()).Run(context.Background()))
}

func TestBrokerRelay_Returns_Subscription_Failure(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	broker := mocks.NewMockBroker(ctrl)
	broker.EXPECT().Subscribe(gomock.Any(), gomock.Any()).Return(fmt.Errorf("redis: connection reset"))

	err := NewBrokerRelay(broker, mocks.NewMockGroupRegistry(ctrl), slog.Default()).Run(context.Background())

	req.Error(err)
}

func TestBrokerRelay_Stops_Quietly_On_Cancel(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	broker := mocks.NewMockBroker(ctrl)
	ctx, cancel := context.WithCancel(context.Background())
	broker.EXPECT().Subscribe(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ func([]byte)) error {
			cancel()
			<-ctx.Done()
			return ctx.Err()
		})

	req.NoError(NewBrokerRelay(broker, mocks.NewMockGroupRegistry(ctrl), slog.Default()).Run(ctx))
}
