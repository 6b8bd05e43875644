package client

import (
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/marketbridge/chat-sdk/pkg/core"
	"github.com/marketbridge/chat-sdk/pkg/transport"
)

// Subscription is the client-side handle of one live topic subscription.
type Subscription struct {
	Key         core.TopicKey
	Destination string

	handle transport.Subscription
}

// ID returns the protocol subscription id.
func (s *Subscription) ID() string {
	if s == nil || s.handle == nil {
		return ""
	}
	return s.handle.ID()
}

// Registry tracks live subscriptions keyed by topic. It holds at most one
// subscription per key.
type Registry struct {
	dispatcher *Dispatcher
	logger     *logrus.Entry

	mu   sync.Mutex
	sess transport.Session
	subs map[core.TopicKey]*Subscription
}

func newRegistry(dispatcher *Dispatcher, logger *logrus.Entry) *Registry {
	return &Registry{
		dispatcher: dispatcher,
		logger:     logger,
		subs:       make(map[core.TopicKey]*Subscription),
	}
}

// SubscribeUser subscribes to the personal inbox of userID. It returns the
// existing subscription if there is one, and nil when no session is attached.
func (r *Registry) SubscribeUser(userID string) *Subscription {
	return r.subscribe(core.UserKey(userID), r.dispatcher.HandleInbox)
}

// SubscribeRoom subscribes to the room topic of roomID. It returns the
// existing subscription if there is one, and nil when no session is attached.
func (r *Registry) SubscribeRoom(roomID string) *Subscription {
	return r.subscribe(core.RoomKey(roomID), r.dispatcher.HandleRoom)
}

func (r *Registry) subscribe(key core.TopicKey, handler transport.Handler) *Subscription {
	if key.ID == "" {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if sub, ok := r.subs[key]; ok {
		return sub
	}
	logger := r.logger.WithField("topic", key.String())
	if r.sess == nil {
		logger.Debug("subscribe while disconnected ignored")
		return nil
	}

	destination := key.Destination()
	handle, err := r.sess.Subscribe(destination, handler)
	if err != nil {
		logger.WithError(err).Warn("subscribe failed")
		return nil
	}
	sub := &Subscription{Key: key, Destination: destination, handle: handle}
	r.subs[key] = sub
	logger.WithField("subscription", handle.ID()).Debug("subscribed")
	return sub
}

// UnsubscribeRoom cancels the room subscription of roomID, if any.
func (r *Registry) UnsubscribeRoom(roomID string) {
	r.Unsubscribe(core.RoomKey(roomID))
}

// Unsubscribe cancels the subscription for key and reports whether one existed.
func (r *Registry) Unsubscribe(key core.TopicKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subs[key]
	if !ok {
		return false
	}
	delete(r.subs, key)
	if err := sub.handle.Unsubscribe(); err != nil {
		r.logger.WithField("topic", key.String()).WithError(err).Debug("unsubscribe failed")
	}
	return true
}

// Get returns the subscription for key.
func (r *Registry) Get(key core.TopicKey) (*Subscription, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[key]
	return sub, ok
}

// Len returns the number of live subscriptions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// Keys returns the keys of the live subscriptions, sorted.
func (r *Registry) Keys() []core.TopicKey {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]core.TopicKey, 0, len(r.subs))
	for key := range r.subs {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
	return keys
}

// Rooms returns the ids of the subscribed rooms, sorted.
func (r *Registry) Rooms() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.roomsLocked()
}

func (r *Registry) roomsLocked() []string {
	var rooms []string
	for key := range r.subs {
		if key.Scope == core.ScopeRoom {
			rooms = append(rooms, key.ID)
		}
	}
	sort.Strings(rooms)
	return rooms
}

func (r *Registry) attach(sess transport.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sess = sess
}

// unsubscribeAll sends an unsubscribe for every live subscription.
func (r *Registry) unsubscribeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, sub := range r.subs {
		if err := sub.handle.Unsubscribe(); err != nil {
			r.logger.WithField("topic", key.String()).WithError(err).Debug("unsubscribe failed")
		}
		delete(r.subs, key)
	}
}

// detach forgets the session and every subscription bound to it and returns
// the rooms that were subscribed.
func (r *Registry) detach() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	rooms := r.roomsLocked()
	r.sess = nil
	r.subs = make(map[core.TopicKey]*Subscription)
	return rooms
}
