package main

import (
	"io"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketbridge/chat-sdk/internal/testutil"
	"github.com/marketbridge/chat-sdk/pkg/client"
	"github.com/marketbridge/chat-sdk/pkg/core"
	"github.com/marketbridge/chat-sdk/pkg/encoding"
)

func newTestModel(t *testing.T) (model, *testutil.FakeSession) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	dialer := testutil.NewFakeDialer()
	events := newEventQueue()
	c, err := client.New(client.Config{
		UserID:        "alice",
		Dialer:        dialer,
		Clock:         testutil.NewManualClock(),
		Logger:        logrus.NewEntry(logger),
		OnStateChange: events.stateChanged,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	c.AddListener(events)

	c.Connect()
	require.Eventually(t, c.IsConnected, 2*time.Second, 5*time.Millisecond)
	return newModel(c, "alice", "", "http://localhost:8080", events), dialer.Last()
}

func TestExecute_JoinSendLeave(t *testing.T) {
	m, sess := newTestModel(t)

	assert.False(t, m.execute("/join 12"))
	assert.Equal(t, "12", m.room)
	assert.Equal(t, []string{"12"}, m.client.Rooms())

	assert.False(t, m.execute("hello there"))
	assert.False(t, m.execute("/leave"))
	assert.Empty(t, m.room)
	assert.Empty(t, m.client.Rooms())

	sent := sess.Sent()
	require.Len(t, sent, 3)
	assert.Equal(t, core.DestinationJoinRoom, sent[0].Destination)
	assert.Equal(t, core.DestinationSendMessage, sent[1].Destination)
	assert.Contains(t, string(sent[1].Body), `"content":"hello there"`)
	assert.Equal(t, core.DestinationLeaveRoom, sent[2].Destination)
}

func TestExecute_SwitchRoomLeavesPrevious(t *testing.T) {
	m, sess := newTestModel(t)

	m.execute("/join 1")
	m.execute("/join 2")

	assert.Equal(t, []string{"2"}, m.client.Rooms())
	var destinations []string
	for _, f := range sess.Sent() {
		destinations = append(destinations, f.Destination)
	}
	assert.Equal(t, []string{core.DestinationJoinRoom, core.DestinationLeaveRoom, core.DestinationJoinRoom}, destinations)
}

func TestExecute_Misc(t *testing.T) {
	m, sess := newTestModel(t)

	assert.True(t, m.execute("/quit"))
	assert.False(t, m.execute("no room yet"))
	assert.Contains(t, m.lines[len(m.lines)-1], "join a room first")
	assert.False(t, m.execute("/bogus"))
	assert.Contains(t, m.lines[len(m.lines)-1], "unknown command")
	assert.False(t, m.execute("/join"))
	assert.Contains(t, m.lines[len(m.lines)-1], "usage")
	assert.False(t, m.execute("/unread"))
	assert.Contains(t, m.lines[len(m.lines)-1], "0 unread")
	assert.Empty(t, sess.Sent())
}

func TestExecute_ReadResetsUnread(t *testing.T) {
	m, sess := newTestModel(t)
	sess.Deliver("/user/alice/queue/messages", []byte(`{"chatRoomId":3,"senderId":"bob","content":"hi"}`))
	require.Equal(t, 1, m.client.UnreadCount())

	m.execute("/join 3")
	m.execute("/read")

	assert.Zero(t, m.client.UnreadCount())
}

func TestUpdate_RoomMessages(t *testing.T) {
	m, _ := newTestModel(t)
	m.room = "5"

	show := func(body string, room string) {
		env, err := encoding.DecodeInbound(encoding.KindRoom, "/topic/chat/"+room, []byte(body))
		require.NoError(t, err)
		next, cmd := m.Update(roomMsg{env: env})
		m = next.(model)
		assert.NotNil(t, cmd)
	}

	before := len(m.lines)
	show(`{"chatRoomId":5,"senderId":"bob","content":"price?"}`, "5")
	show(`{"chatRoomId":6,"senderId":"bob","content":"elsewhere"}`, "6")
	show(`{"chatRoomId":5,"senderId":"bob","type":"JOIN","content":"bob joined"}`, "5")

	require.Len(t, m.lines, before+2)
	assert.Contains(t, m.lines[before], "price?")
	assert.Contains(t, m.lines[before+1], "bob joined")
}

func TestUpdate_StateAndKeys(t *testing.T) {
	m, _ := newTestModel(t)

	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = next.(model)
	assert.True(t, m.ready)
	assert.Contains(t, m.View(), "alice @ http://localhost:8080")

	next, _ = m.Update(stateMsg{event: core.StateEvent{OldState: core.StateConnected, NewState: core.StateDisconnected}})
	m = next.(model)
	assert.Equal(t, core.StateDisconnected, m.state)
	assert.Contains(t, m.lines[len(m.lines)-1], "disconnected")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
