package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketbridge/chat-sdk/internal/testutil"
	"github.com/marketbridge/chat-sdk/pkg/core"
	"github.com/marketbridge/chat-sdk/pkg/messages"
)

func newTestRegistry(t *testing.T) (*Registry, *testutil.FakeSession) {
	t.Helper()
	logger := quietLogger()
	r := newRegistry(newDispatcher(messages.NewLog(), logger), logger)
	sess := testutil.NewFakeSession()
	r.attach(sess)
	return r, sess
}

func TestRegistry_SubscribeIsIdempotent(t *testing.T) {
	tests := []struct {
		name        string
		subscribe   func(r *Registry) *Subscription
		destination string
	}{
		{
			name:        "room",
			subscribe:   func(r *Registry) *Subscription { return r.SubscribeRoom("42") },
			destination: "/topic/chat/42",
		},
		{
			name:        "user",
			subscribe:   func(r *Registry) *Subscription { return r.SubscribeUser("alice") },
			destination: "/user/alice/queue/messages",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, sess := newTestRegistry(t)

			first := tt.subscribe(r)
			second := tt.subscribe(r)

			require.NotNil(t, first)
			assert.Same(t, first, second)
			assert.Equal(t, 1, r.Len())
			assert.Equal(t, 1, sess.SubscriptionCount(tt.destination))
			assert.Equal(t, tt.destination, first.Destination)
		})
	}
}

func TestRegistry_UserAndRoomKeysAreDistinct(t *testing.T) {
	r, _ := newTestRegistry(t)

	user := r.SubscribeUser("5")
	room := r.SubscribeRoom("5")

	require.NotNil(t, user)
	require.NotNil(t, room)
	assert.NotSame(t, user, room)
	assert.Equal(t, []core.TopicKey{core.RoomKey("5"), core.UserKey("5")}, r.Keys())
	assert.Equal(t, []string{"5"}, r.Rooms())
}

func TestRegistry_UnsubscribeAbsentIsNoOp(t *testing.T) {
	r, sess := newTestRegistry(t)
	r.SubscribeRoom("1")

	assert.NotPanics(t, func() { r.UnsubscribeRoom("2") })
	assert.False(t, r.Unsubscribe(core.UserKey("nobody")))
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, 1, sess.SubscriptionCount("/topic/chat/1"))

	assert.True(t, r.Unsubscribe(core.RoomKey("1")))
	assert.False(t, r.Unsubscribe(core.RoomKey("1")))
	assert.Zero(t, r.Len())
	assert.Zero(t, sess.SubscriptionCount("/topic/chat/1"))
}

func TestRegistry_SubscribeWithoutSession(t *testing.T) {
	logger := quietLogger()
	r := newRegistry(newDispatcher(messages.NewLog(), logger), logger)

	assert.Nil(t, r.SubscribeRoom("1"))
	assert.Nil(t, r.SubscribeUser("u"))
	assert.Zero(t, r.Len())
}

func TestRegistry_SubscribeRejectsEmptyID(t *testing.T) {
	r, sess := newTestRegistry(t)
	assert.Nil(t, r.SubscribeRoom(""))
	assert.Empty(t, sess.Destinations())
}

func TestRegistry_SubscribeOnClosedSession(t *testing.T) {
	r, sess := newTestRegistry(t)
	require.NoError(t, sess.Close())

	assert.Nil(t, r.SubscribeRoom("1"))
	_, ok := r.Get(core.RoomKey("1"))
	assert.False(t, ok)
}

func TestRegistry_Detach(t *testing.T) {
	r, sess := newTestRegistry(t)
	r.SubscribeUser("u")
	r.SubscribeRoom("9")
	r.SubscribeRoom("10")

	rooms := r.detach()

	assert.Equal(t, []string{"10", "9"}, rooms)
	assert.Zero(t, r.Len())
	assert.Nil(t, r.SubscribeRoom("9"))
	// detach does not talk to the dead session.
	assert.Len(t, sess.Destinations(), 3)
}

func TestRegistry_UnsubscribeAll(t *testing.T) {
	r, sess := newTestRegistry(t)
	r.SubscribeUser("u")
	r.SubscribeRoom("9")

	r.unsubscribeAll()

	assert.Zero(t, r.Len())
	assert.Empty(t, sess.Destinations())
}
