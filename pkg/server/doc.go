// Package server provides a development broker that speaks the chat backend's
// wire protocol.
//
// The broker accepts STOMP 1.2 sessions over a WebSocket endpoint (/ws by
// default), keeps literal destination subscriptions per connection, and
// implements the /app/chat.* commands the client SDK sends. It exists for
// local development and end-to-end tests; it has no persistence and no
// authentication.
//
// Example usage:
//
//	import "github.com/marketbridge/chat-sdk/pkg/server"
//
//	s, err := server.New(server.Config{
//		Address: ":8080",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if err := s.ListenAndServe(); err != nil {
//		log.Fatal(err)
//	}
package server
