package messages

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/marketbridge/chat-sdk/pkg/encoding"
)

// LogOptions configures the message log behavior
type LogOptions struct {
	MaxMessages int // Maximum number of messages to keep; 0 keeps everything
}

// DefaultLogOptions returns default log options
func DefaultLogOptions() LogOptions {
	return LogOptions{}
}

// Log is the shared, append-only, insertion-ordered sequence of inbound
// messages. It is not partitioned by room: every message lands in the same
// sequence regardless of the topic it arrived on.
type Log struct {
	mu       sync.RWMutex
	messages []*encoding.Envelope
	options  LogOptions

	// Statistics
	totalMessages int64
	droppedCount  int64
}

// NewLog creates a new message log
func NewLog(options ...LogOptions) *Log {
	opts := DefaultLogOptions()
	if len(options) > 0 {
		opts = options[0]
	}

	return &Log{
		options: opts,
	}
}

// Append adds a message at the end of the log. Nil envelopes are ignored.
func (l *Log) Append(env *encoding.Envelope) {
	if env == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.messages = append(l.messages, env)
	l.totalMessages++

	if l.options.MaxMessages > 0 && len(l.messages) > l.options.MaxMessages {
		excess := len(l.messages) - l.options.MaxMessages
		clear(l.messages[:excess])
		l.messages = l.messages[excess:]
		l.droppedCount += int64(excess)
	}
}

// All returns every message in insertion order
func (l *Log) All() []*encoding.Envelope {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]*encoding.Envelope, len(l.messages))
	copy(result, l.messages)
	return result
}

// Last returns the last n messages
func (l *Log) Last(n int) []*encoding.Envelope {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n <= 0 {
		return []*encoding.Envelope{}
	}

	start := max(len(l.messages)-n, 0)
	result := make([]*encoding.Envelope, len(l.messages)-start)
	copy(result, l.messages[start:])
	return result
}

// ByRoom returns the messages whose room id matches, in insertion order.
// It is a read-side view; the log itself stays a single sequence.
func (l *Log) ByRoom(roomID encoding.ID) []*encoding.Envelope {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var result []*encoding.Envelope
	for _, env := range l.messages {
		if env.RoomID == roomID {
			result = append(result, env)
		}
	}
	return result
}

// Len returns the current number of messages
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

// Total returns the number of messages ever appended
func (l *Log) Total() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.totalMessages
}

// Clear removes all messages from the log
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.messages = nil
}

// Snapshot creates a snapshot of the current log state
func (l *Log) Snapshot() *LogSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	messages := make([]*encoding.Envelope, len(l.messages))
	copy(messages, l.messages)

	return &LogSnapshot{
		Messages:      messages,
		TotalMessages: l.totalMessages,
		DroppedCount:  l.droppedCount,
		Timestamp:     time.Now(),
	}
}

// LogSnapshot represents a point-in-time snapshot of the log
type LogSnapshot struct {
	Messages      []*encoding.Envelope `json:"messages"`
	TotalMessages int64                `json:"totalMessages"`
	DroppedCount  int64                `json:"droppedCount"`
	Timestamp     time.Time            `json:"timestamp"`
}

// ToJSON serializes the snapshot to JSON
func (s *LogSnapshot) ToJSON() ([]byte, error) {
	return json.Marshal(s)
}
