// Package encoding provides the JSON payload encoding of the chat protocol.
//
// Every frame exchanged with the chat backend carries one UTF-8 JSON object.
// Inbound objects are free-form; this package wraps them into a tagged
// Envelope (kind, roomId, senderId, payload) so the dispatch logic can branch
// on a closed set of kinds instead of on ad hoc object shapes. Outbound
// commands are ChatMessage values.
//
// Identifiers may arrive as JSON numbers or strings. ID accepts both and
// writes numeric identifiers back as numbers.
//
// Example usage:
//
//	import "github.com/marketbridge/chat-sdk/pkg/encoding"
//
//	env, err := encoding.DecodeInbound(encoding.KindRoom, "/topic/chat/42", body)
//	if err != nil {
//		// *core.DecodeError: drop the frame
//	}
//
//	var msg encoding.ChatMessage
//	if err := env.Decode(&msg); err != nil {
//		log.Fatal(err)
//	}
package encoding
