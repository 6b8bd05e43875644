package messages

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketbridge/chat-sdk/pkg/encoding"
)

func envelope(t *testing.T, kind encoding.Kind, room string, id int) *encoding.Envelope {
	t.Helper()
	body := fmt.Sprintf(`{"id":%d,"chatRoomId":%q}`, id, room)
	env, err := encoding.DecodeInbound(kind, "/topic/chat/"+room, []byte(body))
	require.NoError(t, err)
	return env
}

func TestLog(t *testing.T) {
	t.Run("Append keeps insertion order across rooms", func(t *testing.T) {
		l := NewLog()

		first := envelope(t, encoding.KindRoom, "1", 1)
		second := envelope(t, encoding.KindInbox, "2", 2)
		third := envelope(t, encoding.KindRoom, "1", 3)

		l.Append(first)
		l.Append(second)
		l.Append(third)
		l.Append(nil)

		assert.Equal(t, 3, l.Len())
		assert.Equal(t, []*encoding.Envelope{first, second, third}, l.All())
		assert.Equal(t, []*encoding.Envelope{first, third}, l.ByRoom("1"))
		assert.Equal(t, []*encoding.Envelope{second, third}, l.Last(2))
		assert.Empty(t, l.Last(0))
		assert.Len(t, l.Last(10), 3)
	})

	t.Run("All returns a copy", func(t *testing.T) {
		l := NewLog()
		l.Append(envelope(t, encoding.KindRoom, "1", 1))

		all := l.All()
		all[0] = nil
		assert.NotNil(t, l.All()[0])
	})

	t.Run("MaxMessages drops the oldest", func(t *testing.T) {
		l := NewLog(LogOptions{MaxMessages: 2})
		for i := 1; i <= 3; i++ {
			l.Append(envelope(t, encoding.KindRoom, "1", i))
		}

		require.Equal(t, 2, l.Len())
		assert.EqualValues(t, 3, l.Total())

		var first struct{ ID int }
		require.NoError(t, l.All()[0].Decode(&first))
		assert.Equal(t, 2, first.ID)

		snap := l.Snapshot()
		assert.EqualValues(t, 1, snap.DroppedCount)
	})

	t.Run("Clear", func(t *testing.T) {
		l := NewLog()
		l.Append(envelope(t, encoding.KindRoom, "1", 1))
		l.Clear()

		assert.Zero(t, l.Len())
		assert.EqualValues(t, 1, l.Total())
	})

	t.Run("Snapshot serializes", func(t *testing.T) {
		l := NewLog()
		l.Append(envelope(t, encoding.KindRoom, "5", 1))

		data, err := l.Snapshot().ToJSON()
		require.NoError(t, err)

		var decoded struct {
			Messages []struct {
				Kind    string          `json:"kind"`
				RoomID  encoding.ID     `json:"roomId"`
				Payload json.RawMessage `json:"payload"`
			} `json:"messages"`
			TotalMessages int `json:"totalMessages"`
		}
		require.NoError(t, json.Unmarshal(data, &decoded))
		require.Len(t, decoded.Messages, 1)
		assert.Equal(t, "room", decoded.Messages[0].Kind)
		assert.Equal(t, encoding.ID("5"), decoded.Messages[0].RoomID)
		assert.JSONEq(t, `{"id":1,"chatRoomId":"5"}`, string(decoded.Messages[0].Payload))
		assert.Equal(t, 1, decoded.TotalMessages)
	})
}

func TestLog_ConcurrentAppend(t *testing.T) {
	l := NewLog()
	env := envelope(t, encoding.KindRoom, "1", 1)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				l.Append(env)
				_ = l.Len()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1000, l.Len())
}
