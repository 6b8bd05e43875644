package client

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/marketbridge/chat-sdk/pkg/encoding"
	"github.com/marketbridge/chat-sdk/pkg/messages"
	"github.com/marketbridge/chat-sdk/pkg/transport"
)

type listenerEntry struct {
	id       uint64
	listener MessageListener
}

// Dispatcher decodes inbound frames into the message log and fans room
// messages out to listeners.
type Dispatcher struct {
	log    *messages.Log
	logger *logrus.Entry

	mu           sync.Mutex
	unread       int
	listeners    []listenerEntry
	nextID       uint64
	decodeErrors int64
}

func newDispatcher(log *messages.Log, logger *logrus.Entry) *Dispatcher {
	return &Dispatcher{log: log, logger: logger}
}

// HandleInbox processes a frame from the personal inbox queue: the message is
// appended to the log and the unread counter is incremented. Listeners are
// not notified.
func (d *Dispatcher) HandleInbox(f transport.Frame) {
	env, ok := d.decode(encoding.KindInbox, f)
	if !ok {
		return
	}
	d.mu.Lock()
	d.log.Append(env)
	d.unread++
	d.mu.Unlock()
}

// HandleRoom processes a frame from a room topic: the message is appended to
// the log and every registered listener is called with it, in registration
// order.
func (d *Dispatcher) HandleRoom(f transport.Frame) {
	env, ok := d.decode(encoding.KindRoom, f)
	if !ok {
		return
	}
	d.log.Append(env)

	d.mu.Lock()
	listeners := make([]listenerEntry, len(d.listeners))
	copy(listeners, d.listeners)
	d.mu.Unlock()

	for _, entry := range listeners {
		d.notify(entry, env)
	}
}

func (d *Dispatcher) decode(kind encoding.Kind, f transport.Frame) (*encoding.Envelope, bool) {
	env, err := encoding.DecodeInbound(kind, f.Destination, f.Body)
	if err != nil {
		d.mu.Lock()
		d.decodeErrors++
		d.mu.Unlock()
		d.logger.WithFields(logrus.Fields{
			"destination": f.Destination,
			"error":       err,
		}).Warn("dropping undecodable message")
		return nil, false
	}
	return env, true
}

func (d *Dispatcher) notify(entry listenerEntry, env *encoding.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.WithFields(logrus.Fields{
				"listener": entry.id,
				"panic":    r,
			}).Error("listener panicked")
		}
	}()
	entry.listener.OnMessage(env)
}

// AddListener registers l and returns a Disposer that removes it. Adding a
// comparable listener that is already registered returns a disposer for the
// existing registration.
func (d *Dispatcher) AddListener(l MessageListener) Disposer {
	if l == nil {
		return func() {}
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, entry := range d.listeners {
		if sameListener(entry.listener, l) {
			return d.disposer(entry.id)
		}
	}
	d.nextID++
	d.listeners = append(d.listeners, listenerEntry{id: d.nextID, listener: l})
	return d.disposer(d.nextID)
}

func (d *Dispatcher) disposer(id uint64) Disposer {
	var once sync.Once
	return func() {
		once.Do(func() { d.removeID(id) })
	}
}

func (d *Dispatcher) removeID(id uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, entry := range d.listeners {
		if entry.id == id {
			d.listeners = append(d.listeners[:i:i], d.listeners[i+1:]...)
			return
		}
	}
}

// RemoveListener removes l. Unknown and non-comparable listeners are ignored.
func (d *Dispatcher) RemoveListener(l MessageListener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, entry := range d.listeners {
		if sameListener(entry.listener, l) {
			d.listeners = append(d.listeners[:i:i], d.listeners[i+1:]...)
			return
		}
	}
}

// ListenerCount returns the number of registered listeners.
func (d *Dispatcher) ListenerCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.listeners)
}

// UnreadCount returns the number of inbox messages since the last reset.
func (d *Dispatcher) UnreadCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.unread
}

// ResetUnread sets the unread counter to zero.
func (d *Dispatcher) ResetUnread() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.unread = 0
}

// Messages returns the message log in arrival order.
func (d *Dispatcher) Messages() []*encoding.Envelope {
	return d.log.All()
}

// Log returns the underlying message log.
func (d *Dispatcher) Log() *messages.Log {
	return d.log
}

// DecodeErrors returns how many frames were dropped as undecodable.
func (d *Dispatcher) DecodeErrors() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.decodeErrors
}

func (d *Dispatcher) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.log.Clear()
	d.unread = 0
}

func (d *Dispatcher) clearListeners() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = nil
}
