// Package client provides the real-time messaging client for the marketplace chat.
//
// A Client owns exactly one logical session with the chat backend: a single
// persistent STOMP-over-WebSocket connection that multiplexes the signed-in
// user's personal inbox queue and any number of chat room topics. Each
// signed-in user context constructs its own Client; nothing is process-wide.
//
// The client is made of four thin layers:
//   - the connection manager (Client itself) drives the
//     Disconnected -> Connecting -> Connected state machine and owns the
//     single fixed-delay reconnect timer;
//   - the Registry keeps at most one live subscription per topic key;
//   - the Dispatcher decodes inbound frames, appends them to the shared
//     message log, counts unread inbox messages and fans room messages out to
//     every registered listener;
//   - the Gateway turns UI intents into sends, gated by the connection state.
//
// No operation blocks the caller on network I/O: Connect dials in the
// background, and state changes are observed through IsConnected, State or
// Config.OnStateChange. Sends attempted while disconnected transmit nothing
// and return core.ErrNotConnected; nothing is queued. MarkAsRead still resets
// the unread counter while disconnected.
//
// Example usage:
//
//	import "github.com/marketbridge/chat-sdk/pkg/client"
//
//	c, err := client.New(client.Config{
//		URL:    "http://localhost:8080",
//		UserID: "42",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer c.Close()
//
//	c.Connect()
//
//	dispose := c.AddListener(client.ListenerFunc(func(env *encoding.Envelope) {
//		if env.RoomID != "7" {
//			return
//		}
//		fmt.Println(string(env.Payload))
//	}))
//	defer dispose()
//
//	c.SubscribeRoom("7")
//	_ = c.SendMessage(&encoding.ChatMessage{ChatRoomID: "7", SenderID: "42", Content: "Hello!"})
package client
