package core

import (
	"fmt"
	"strings"
)

// ConnectionState is the state of the connection state machine.
type ConnectionState int

const (
	// StateDisconnected means no session is open.
	StateDisconnected ConnectionState = iota

	// StateConnecting means a socket is being opened and the handshake is in flight.
	StateConnecting

	// StateConnected means the session is established and ready.
	StateConnected
)

// String returns the string representation of a ConnectionState.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// StateEvent describes a single state transition.
type StateEvent struct {
	OldState ConnectionState
	NewState ConnectionState
	Error    error // Optional error that caused the transition
}

// Send destinations understood by the chat backend.
const (
	DestinationSendMessage = "/app/chat.sendMessage"
	DestinationJoinRoom    = "/app/chat.joinRoom"
	DestinationLeaveRoom   = "/app/chat.leaveRoom"
	DestinationMarkAsRead  = "/app/chat.markAsRead"
)

const (
	userQueuePrefix = "/user/"
	userQueueSuffix = "/queue/messages"
	roomTopicPrefix = "/topic/chat/"
)

// Scope identifies the family of a logical topic.
type Scope string

const (
	ScopeUser Scope = "user"
	ScopeRoom Scope = "room"
)

// TopicKey identifies one logical topic. At most one live subscription
// exists per key.
type TopicKey struct {
	Scope Scope
	ID    string
}

// UserKey returns the key of a user's personal inbox queue.
func UserKey(userID string) TopicKey {
	return TopicKey{Scope: ScopeUser, ID: userID}
}

// RoomKey returns the key of a chat room topic.
func RoomKey(roomID string) TopicKey {
	return TopicKey{Scope: ScopeRoom, ID: roomID}
}

// String returns the key as "scope:id".
func (k TopicKey) String() string {
	return string(k.Scope) + ":" + k.ID
}

// Destination returns the subscribe destination for the key.
func (k TopicKey) Destination() string {
	switch k.Scope {
	case ScopeUser:
		return userQueuePrefix + k.ID + userQueueSuffix
	case ScopeRoom:
		return roomTopicPrefix + k.ID
	default:
		return ""
	}
}

// ParseDestination maps a subscribe destination back to its topic key.
func ParseDestination(destination string) (TopicKey, error) {
	switch {
	case strings.HasPrefix(destination, roomTopicPrefix):
		id := strings.TrimPrefix(destination, roomTopicPrefix)
		if id != "" && !strings.Contains(id, "/") {
			return RoomKey(id), nil
		}
	case strings.HasPrefix(destination, userQueuePrefix) && strings.HasSuffix(destination, userQueueSuffix):
		id := strings.TrimSuffix(strings.TrimPrefix(destination, userQueuePrefix), userQueueSuffix)
		if id != "" && !strings.Contains(id, "/") {
			return UserKey(id), nil
		}
	}
	return TopicKey{}, fmt.Errorf("unknown destination %q", destination)
}
