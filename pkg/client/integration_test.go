package client_test

import (
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketbridge/chat-sdk/pkg/client"
	"github.com/marketbridge/chat-sdk/pkg/encoding"
	"github.com/marketbridge/chat-sdk/pkg/server"
)

const (
	waitFor = 3 * time.Second
	tick    = 10 * time.Millisecond
)

func quietLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func startBroker(t *testing.T) (*server.Server, string) {
	t.Helper()
	s, err := server.New(server.Config{Logger: quietLogger()})
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts.URL
}

func newClient(t *testing.T, url, userID string, resubscribe bool) *client.Client {
	t.Helper()
	c, err := client.New(client.Config{
		URL:              url,
		UserID:           userID,
		ReconnectDelay:   50 * time.Millisecond,
		ResubscribeRooms: resubscribe,
		Logger:           quietLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	c.Connect()
	require.Eventually(t, c.IsConnected, waitFor, tick)
	return c
}

type inbox struct {
	mu   sync.Mutex
	msgs []*encoding.ChatMessage
}

func (in *inbox) OnMessage(env *encoding.Envelope) {
	msg, err := env.ChatMessage()
	if err != nil {
		return
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	in.msgs = append(in.msgs, msg)
}

func (in *inbox) contents() []string {
	in.mu.Lock()
	defer in.mu.Unlock()
	var out []string
	for _, m := range in.msgs {
		out = append(out, m.Content)
	}
	return out
}

func TestChat_EndToEnd(t *testing.T) {
	broker, url := startBroker(t)
	buyer := newClient(t, url, "buyer", false)
	seller := newClient(t, url, "seller", false)

	require.Eventually(t, func() bool {
		return broker.SubscriberCount("/user/seller/queue/messages") == 1
	}, waitFor, tick)

	sellerRoom := &inbox{}
	seller.AddListener(sellerRoom)
	require.NotNil(t, seller.SubscribeRoom("100"))
	require.Eventually(t, func() bool {
		return broker.SubscriberCount("/topic/chat/100") == 1
	}, waitFor, tick)

	require.NoError(t, buyer.JoinRoom("100", "buyer"))
	require.NoError(t, buyer.SendMessage(&encoding.ChatMessage{
		ChatRoomID: "100",
		SenderID:   "buyer",
		ReceiverID: "seller",
		Content:    "Is the bike still for sale?",
	}))

	require.Eventually(t, func() bool { return len(sellerRoom.contents()) == 2 }, waitFor, tick)
	assert.Equal(t, []string{"buyer joined", "Is the bike still for sale?"}, sellerRoom.contents())

	// The room broadcast and the inbox delivery both land in the shared log.
	require.Eventually(t, func() bool { return seller.UnreadCount() == 1 }, waitFor, tick)
	assert.Len(t, seller.Messages(), 3)
	assert.Empty(t, buyer.Messages())

	require.NoError(t, seller.MarkAsRead("100", "seller"))
	assert.Zero(t, seller.UnreadCount())

	require.NoError(t, seller.LeaveRoom("100", "seller"))
	assert.Empty(t, seller.Rooms())
	require.Eventually(t, func() bool {
		return broker.SubscriberCount("/topic/chat/100") == 0
	}, waitFor, tick)
}

func TestChat_ReconnectAfterDrop(t *testing.T) {
	tests := []struct {
		name        string
		resubscribe bool
		wantRoom    int
	}{
		{name: "inbox only", resubscribe: false, wantRoom: 0},
		{name: "rooms restored", resubscribe: true, wantRoom: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			broker, url := startBroker(t)
			c := newClient(t, url, "alice", tt.resubscribe)
			require.NotNil(t, c.SubscribeRoom("7"))
			require.Eventually(t, func() bool {
				return broker.SubscriberCount("/topic/chat/7") == 1
			}, waitFor, tick)

			require.Equal(t, 1, broker.DropConnections())
			require.Eventually(t, func() bool { return !c.IsConnected() }, waitFor, tick)

			require.Eventually(t, func() bool {
				return c.IsConnected() && broker.SubscriberCount("/user/alice/queue/messages") == 1
			}, waitFor, tick)
			assert.Equal(t, tt.wantRoom, broker.SubscriberCount("/topic/chat/7"))

			broker.Publish("/user/alice/queue/messages", []byte(`{"chatRoomId":7,"senderId":"bob","content":"back?"}`))
			require.Eventually(t, func() bool { return c.UnreadCount() == 1 }, waitFor, tick)
		})
	}
}

func TestChat_DisconnectStopsReconnecting(t *testing.T) {
	broker, url := startBroker(t)
	c := newClient(t, url, "alice", false)

	require.NoError(t, c.Disconnect())
	require.Eventually(t, func() bool { return broker.ConnectionCount() == 0 }, waitFor, tick)

	assert.Never(t, func() bool { return c.IsConnected() || broker.ConnectionCount() > 0 }, 200*time.Millisecond, tick)
}
