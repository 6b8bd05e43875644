// Package core provides the foundational types shared by the chat SDK.
//
// This package defines the connection state machine states, the logical topic
// keys that map to subscribe destinations, the fixed send destinations of the
// chat backend, and the error taxonomy used across the SDK.
//
// The chat backend is a subscribe/publish broker reached through a single
// persistent socket. Consumers subscribe to:
//   - a personal inbox queue: /user/{userId}/queue/messages
//   - per-room broadcast topics: /topic/chat/{roomId}
//
// and publish commands to the /app/chat.* destinations.
//
// Example usage:
//
//	import "github.com/marketbridge/chat-sdk/pkg/core"
//
//	key := core.RoomKey("42")
//	fmt.Println(key.Destination()) // /topic/chat/42
package core
