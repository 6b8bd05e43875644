// Package transport provides the STOMP-over-WebSocket session used by the chat client.
//
// A Dialer opens one persistent socket to the backend's /ws endpoint and
// upgrades it to a STOMP 1.2 session. The resulting Session multiplexes any
// number of subscriptions over that single socket and delivers inbound
// MESSAGE frames to their handlers in the order the socket received them,
// on a single read goroutine.
//
// Heart-beating is negotiated during the handshake. A session ends when the
// socket fails, the peer sends an ERROR frame, heart-beats stop arriving, or
// Close is called; Done is closed in every case.
//
// Example usage:
//
//	import "github.com/marketbridge/chat-sdk/pkg/transport"
//
//	d, err := transport.NewWebSocketDialer(transport.Config{
//		URL: "http://localhost:8080",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sess, err := d.Dial(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer sess.Close()
//
//	sub, err := sess.Subscribe("/topic/chat/42", func(f transport.Frame) {
//		fmt.Println(string(f.Body))
//	})
package transport
