package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketbridge/chat-sdk/pkg/encoding"
	"github.com/marketbridge/chat-sdk/pkg/messages"
	"github.com/marketbridge/chat-sdk/pkg/transport"
)

func newTestDispatcher() *Dispatcher {
	return newDispatcher(messages.NewLog(), quietLogger())
}

func roomFrame(room, body string) transport.Frame {
	return transport.Frame{Destination: "/topic/chat/" + room, Body: []byte(body)}
}

func inboxFrame(user, body string) transport.Frame {
	return transport.Frame{Destination: "/user/" + user + "/queue/messages", Body: []byte(body)}
}

func TestDispatcher_HandleRoom(t *testing.T) {
	d := newTestDispatcher()
	listeners := []*recorder{{}, {}, {}}
	for _, l := range listeners {
		d.AddListener(l)
	}

	d.HandleRoom(roomFrame("4", `{"chatRoomId":4,"senderId":"bob","content":"hello"}`))

	msgs := d.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, encoding.ID("bob"), msgs[0].SenderID)
	for _, l := range listeners {
		got := l.received()
		require.Len(t, got, 1)
		assert.Same(t, msgs[0], got[0])
	}
	assert.Zero(t, d.UnreadCount())
}

func TestDispatcher_HandleInbox(t *testing.T) {
	d := newTestDispatcher()
	l := &recorder{}
	d.AddListener(l)

	d.HandleInbox(inboxFrame("u", `{"chatRoomId":1}`))
	d.HandleInbox(inboxFrame("u", `{"chatRoomId":2}`))

	assert.Equal(t, 2, d.UnreadCount())
	assert.Len(t, d.Messages(), 2)
	assert.Empty(t, l.received())

	d.ResetUnread()
	d.ResetUnread()
	assert.Zero(t, d.UnreadCount())
	assert.Len(t, d.Messages(), 2)
}

func TestDispatcher_DecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `hello`},
		{name: "truncated", body: `{"chatRoomId":`},
		{name: "array", body: `[]`},
		{name: "string", body: `"text"`},
		{name: "empty", body: ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDispatcher()
			l := &recorder{}
			d.AddListener(l)

			d.HandleRoom(roomFrame("1", tt.body))
			d.HandleInbox(inboxFrame("u", tt.body))

			assert.Empty(t, d.Messages())
			assert.Empty(t, l.received())
			assert.Zero(t, d.UnreadCount())
			assert.Equal(t, int64(2), d.DecodeErrors())
		})
	}
}

func TestDispatcher_AddListenerDeduplicates(t *testing.T) {
	d := newTestDispatcher()
	l := &recorder{}

	dispose := d.AddListener(l)
	d.AddListener(l)
	assert.Equal(t, 1, d.ListenerCount())

	d.HandleRoom(roomFrame("1", `{}`))
	assert.Len(t, l.received(), 1)

	dispose()
	dispose()
	assert.Zero(t, d.ListenerCount())
}

func TestDispatcher_FuncListeners(t *testing.T) {
	d := newTestDispatcher()
	calls := 0
	fn := ListenerFunc(func(*encoding.Envelope) { calls++ })

	disposeA := d.AddListener(fn)
	disposeB := d.AddListener(fn)
	assert.Equal(t, 2, d.ListenerCount())

	// Functions are not comparable; removal goes through the disposer.
	d.RemoveListener(fn)
	assert.Equal(t, 2, d.ListenerCount())

	disposeA()
	d.HandleRoom(roomFrame("1", `{}`))
	assert.Equal(t, 1, calls)

	disposeB()
	assert.Zero(t, d.ListenerCount())
	assert.NotPanics(t, func() { d.AddListener(nil)() })
}

func TestDispatcher_RemoveListener(t *testing.T) {
	d := newTestDispatcher()
	a, b := &recorder{}, &recorder{}
	d.AddListener(a)
	d.AddListener(b)

	d.RemoveListener(a)
	d.RemoveListener(&recorder{})
	d.HandleRoom(roomFrame("1", `{}`))

	assert.Empty(t, a.received())
	assert.Len(t, b.received(), 1)
}

func TestDispatcher_PanickingListener(t *testing.T) {
	d := newTestDispatcher()
	d.AddListener(ListenerFunc(func(*encoding.Envelope) { panic("boom") }))
	after := &recorder{}
	d.AddListener(after)

	assert.NotPanics(t, func() { d.HandleRoom(roomFrame("1", `{}`)) })
	assert.Len(t, after.received(), 1)
	assert.Len(t, d.Messages(), 1)
}

func TestDispatcher_ListenerMayDisposeItself(t *testing.T) {
	d := newTestDispatcher()
	calls := 0
	var dispose Disposer
	dispose = d.AddListener(ListenerFunc(func(*encoding.Envelope) {
		calls++
		dispose()
	}))

	d.HandleRoom(roomFrame("1", `{}`))
	d.HandleRoom(roomFrame("1", `{}`))
	assert.Equal(t, 1, calls)
	assert.Len(t, d.Messages(), 2)
}

func TestDispatcher_MaxMessages(t *testing.T) {
	d := newDispatcher(messages.NewLog(messages.LogOptions{MaxMessages: 2}), quietLogger())
	for _, body := range []string{`{"n":1}`, `{"n":2}`, `{"n":3}`} {
		d.HandleRoom(roomFrame("1", body))
	}

	msgs := d.Messages()
	require.Len(t, msgs, 2)
	assert.JSONEq(t, `{"n":2}`, string(msgs[0].Payload))
	assert.Equal(t, int64(3), d.Log().Total())
}
