package client

import (
	"reflect"

	"github.com/marketbridge/chat-sdk/pkg/encoding"
)

// MessageListener receives every message arriving on a subscribed room topic.
// Listeners are not filtered by room; inspect Envelope.RoomID to select.
type MessageListener interface {
	OnMessage(env *encoding.Envelope)
}

// ListenerFunc adapts a plain function to MessageListener.
type ListenerFunc func(env *encoding.Envelope)

// OnMessage calls f(env).
func (f ListenerFunc) OnMessage(env *encoding.Envelope) {
	f(env)
}

// Disposer removes the listener it was returned for. Calling it more than
// once is safe.
type Disposer func()

// sameListener reports whether a and b are the same listener. Listeners of
// non-comparable types (such as ListenerFunc) are never equal, so they can
// only be removed through their Disposer.
func sameListener(a, b MessageListener) bool {
	if a == nil || b == nil {
		return false
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
