package encoding

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketbridge/chat-sdk/pkg/core"
)

func TestDecodeInbound(t *testing.T) {
	t.Run("room frame", func(t *testing.T) {
		env, err := DecodeInbound(KindRoom, "/topic/chat/42", []byte(`{ "id": 1, "text": "hi" }`))
		require.NoError(t, err)

		assert.Equal(t, KindRoom, env.Kind)
		assert.Equal(t, ID("42"), env.RoomID, "room id falls back to the destination")
		assert.Equal(t, "/topic/chat/42", env.Destination)
		assert.JSONEq(t, `{"id":1,"text":"hi"}`, string(env.Payload))
		assert.False(t, env.ReceivedAt.IsZero())
	})

	t.Run("inbox frame lifts routing fields", func(t *testing.T) {
		body := []byte(`{"chatRoomId":7,"senderId":"u-1","content":"offer"}`)
		env, err := DecodeInbound(KindInbox, "/user/u-2/queue/messages", body)
		require.NoError(t, err)

		assert.Equal(t, ID("7"), env.RoomID)
		assert.Equal(t, ID("u-1"), env.SenderID)

		msg, err := env.ChatMessage()
		require.NoError(t, err)
		assert.Equal(t, "offer", msg.Content)
	})

	t.Run("roomId alias", func(t *testing.T) {
		env, err := DecodeInbound(KindInbox, "/user/1/queue/messages", []byte(`{"roomId":"9"}`))
		require.NoError(t, err)
		assert.Equal(t, ID("9"), env.RoomID)
	})

	t.Run("odd routing fields do not reject the message", func(t *testing.T) {
		env, err := DecodeInbound(KindRoom, "/topic/chat/3", []byte(`{"chatRoomId":{"nested":true}}`))
		require.NoError(t, err)
		assert.Equal(t, ID("3"), env.RoomID)
	})
}

func TestDecodeInbound_Errors(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		body string
	}{
		{name: "malformed json", kind: KindRoom, body: `{"id":`},
		{name: "array payload", kind: KindRoom, body: `[1,2]`},
		{name: "string payload", kind: KindInbox, body: `"hello"`},
		{name: "empty body", kind: KindInbox, body: ``},
		{name: "unknown kind", kind: Kind("presence"), body: `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := DecodeInbound(tt.kind, "/topic/chat/1", []byte(tt.body))
			require.Error(t, err)
			assert.Nil(t, env)

			var decodeErr *core.DecodeError
			require.True(t, errors.As(err, &decodeErr))
			assert.Equal(t, "/topic/chat/1", decodeErr.Destination)
		})
	}
}

func TestID_JSON(t *testing.T) {
	var v struct {
		A ID `json:"a"`
		B ID `json:"b"`
		C ID `json:"c"`
	}
	require.NoError(t, jsonUnmarshal(`{"a":12,"b":"x-1","c":null}`, &v))
	assert.Equal(t, ID("12"), v.A)
	assert.Equal(t, ID("x-1"), v.B)
	assert.True(t, v.C.IsZero())

	tests := []struct {
		id   ID
		want string
	}{
		{id: "42", want: `42`},
		{id: "-3", want: `-3`},
		{id: "007", want: `"007"`},
		{id: "abc", want: `"abc"`},
		{id: "", want: `""`},
	}
	for _, tt := range tests {
		got, err := tt.id.MarshalJSON()
		require.NoError(t, err)
		assert.Equal(t, tt.want, string(got))
	}

	assert.Error(t, jsonUnmarshal(`{"a":true}`, &v))
}
