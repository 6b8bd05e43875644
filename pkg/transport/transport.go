package transport

import "context"

// Frame is one inbound MESSAGE frame.
type Frame struct {
	Destination  string
	Subscription string
	MessageID    string
	ContentType  string
	Body         []byte
}

// Handler receives the frames of one subscription.
type Handler func(Frame)

// Subscription is the handle of one protocol subscription.
type Subscription interface {
	// ID returns the protocol subscription id
	ID() string

	// Destination returns the subscribed destination
	Destination() string

	// Unsubscribe cancels the subscription. Calling it more than once is a no-op.
	Unsubscribe() error
}

// Session is one established protocol session over a persistent socket.
type Session interface {
	// Subscribe opens a subscription to destination and routes its frames to handler.
	Subscribe(destination string, handler Handler) (Subscription, error)

	// Send publishes a JSON body to destination.
	Send(destination string, body []byte) error

	// Done is closed when the session has ended for any reason.
	Done() <-chan struct{}

	// Err returns why the session ended, or nil while it is alive or after Close.
	Err() error

	// Close ends the session gracefully.
	Close() error
}

// Dialer opens sessions.
type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}
