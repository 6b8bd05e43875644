package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/marketbridge/chat-sdk/pkg/core"
	"github.com/marketbridge/chat-sdk/pkg/transport"
)

// ErrDialRefused is returned by FakeDialer for failures queued with FailNext.
var ErrDialRefused = errors.New("connection refused")

// SentFrame is one frame recorded by FakeSession.Send.
type SentFrame struct {
	Destination string
	Body        []byte
}

// FakeDialer is an in-memory transport.Dialer.
type FakeDialer struct {
	mu       sync.Mutex
	calls    int
	failures int
	block    chan struct{}
	sessions []*FakeSession
}

// NewFakeDialer creates a dialer whose dials succeed.
func NewFakeDialer() *FakeDialer {
	return &FakeDialer{}
}

// FailNext makes the next n dials fail.
func (d *FakeDialer) FailNext(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures = n
}

// Block makes dials wait until Release is called or their context ends.
func (d *FakeDialer) Block() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.block == nil {
		d.block = make(chan struct{})
	}
}

// Release unblocks waiting and future dials.
func (d *FakeDialer) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.block != nil {
		close(d.block)
		d.block = nil
	}
}

// Dial implements transport.Dialer.
func (d *FakeDialer) Dial(ctx context.Context) (transport.Session, error) {
	d.mu.Lock()
	d.calls++
	block := d.block
	d.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, &core.ConnectError{URL: "fake", Err: ctx.Err()}
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failures > 0 {
		d.failures--
		return nil, &core.ConnectError{URL: "fake", Err: ErrDialRefused}
	}
	s := NewFakeSession()
	d.sessions = append(d.sessions, s)
	return s, nil
}

// Calls returns how many times Dial was invoked.
func (d *FakeDialer) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// Sessions returns every session handed out so far.
func (d *FakeDialer) Sessions() []*FakeSession {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*FakeSession(nil), d.sessions...)
}

// Last returns the most recent session, or nil.
func (d *FakeDialer) Last() *FakeSession {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.sessions) == 0 {
		return nil
	}
	return d.sessions[len(d.sessions)-1]
}

// FakeSession is an in-memory transport.Session.
type FakeSession struct {
	mu       sync.Mutex
	nextID   int
	subs     map[string]*FakeSubscription
	sent     []SentFrame
	sendErr  error
	closed   bool
	err      error
	done     chan struct{}
	doneOnce sync.Once
}

// NewFakeSession creates a live session.
func NewFakeSession() *FakeSession {
	return &FakeSession{
		subs: make(map[string]*FakeSubscription),
		done: make(chan struct{}),
	}
}

// Subscribe implements transport.Session.
func (s *FakeSession) Subscribe(destination string, handler transport.Handler) (transport.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isDone() {
		return nil, core.ErrSessionClosed
	}
	s.nextID++
	sub := &FakeSubscription{
		id:          fmt.Sprintf("sub-%d", s.nextID),
		destination: destination,
		handler:     handler,
		session:     s,
	}
	s.subs[sub.id] = sub
	return sub, nil
}

// Send implements transport.Session.
func (s *FakeSession) Send(destination string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isDone() {
		return core.ErrSessionClosed
	}
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, SentFrame{Destination: destination, Body: append([]byte(nil), body...)})
	return nil
}

// Done implements transport.Session.
func (s *FakeSession) Done() <-chan struct{} {
	return s.done
}

// Err implements transport.Session.
func (s *FakeSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close implements transport.Session.
func (s *FakeSession) Close() error {
	s.mu.Lock()
	s.closed = true
	s.subs = make(map[string]*FakeSubscription)
	s.mu.Unlock()
	s.doneOnce.Do(func() { close(s.done) })
	return nil
}

// Drop ends the session as if the socket failed.
func (s *FakeSession) Drop(err error) {
	s.mu.Lock()
	s.err = err
	s.subs = make(map[string]*FakeSubscription)
	s.mu.Unlock()
	s.doneOnce.Do(func() { close(s.done) })
}

// FailSends makes every following Send return err.
func (s *FakeSession) FailSends(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sendErr = err
}

// Deliver hands body to every subscription on destination, as the read
// goroutine of a real session would, and returns the number of deliveries.
func (s *FakeSession) Deliver(destination string, body []byte) int {
	s.mu.Lock()
	var subs []*FakeSubscription
	for _, sub := range s.subs {
		if sub.destination == destination {
			subs = append(subs, sub)
		}
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.handler(transport.Frame{
			Destination:  destination,
			Subscription: sub.id,
			ContentType:  "application/json",
			Body:         body,
		})
	}
	return len(subs)
}

// Sent returns the frames sent so far.
func (s *FakeSession) Sent() []SentFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SentFrame(nil), s.sent...)
}

// Closed reports whether Close was called.
func (s *FakeSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Destinations returns the destinations with a live subscription, one entry per subscription.
func (s *FakeSession) Destinations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, sub := range s.subs {
		out = append(out, sub.destination)
	}
	return out
}

// SubscriptionCount returns the number of live subscriptions on destination.
func (s *FakeSession) SubscriptionCount(destination string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, sub := range s.subs {
		if sub.destination == destination {
			n++
		}
	}
	return n
}

func (s *FakeSession) isDone() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// FakeSubscription is the handle returned by FakeSession.Subscribe.
type FakeSubscription struct {
	id          string
	destination string
	handler     transport.Handler
	session     *FakeSession
}

func (sub *FakeSubscription) ID() string          { return sub.id }
func (sub *FakeSubscription) Destination() string { return sub.destination }

// Unsubscribe implements transport.Subscription.
func (sub *FakeSubscription) Unsubscribe() error {
	sub.session.mu.Lock()
	defer sub.session.mu.Unlock()
	delete(sub.session.subs, sub.id)
	return nil
}
