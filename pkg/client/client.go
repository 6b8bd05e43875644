package client

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/marketbridge/chat-sdk/pkg/core"
	"github.com/marketbridge/chat-sdk/pkg/encoding"
	"github.com/marketbridge/chat-sdk/pkg/messages"
	"github.com/marketbridge/chat-sdk/pkg/transport"
)

// Client is one signed-in user's session with the chat backend.
type Client struct {
	config Config
	logger *logrus.Entry
	dialer transport.Dialer
	clock  core.Clock

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	state      core.ConnectionState
	session    transport.Session
	epoch      uint64 // bumped by every connect attempt and by Disconnect
	cancelDial context.CancelFunc
	retry      core.Timer
	retryGen   uint64
	lostRooms  []string
	closed     bool

	registry   *Registry
	dispatcher *Dispatcher
	gateway    *Gateway
}

// New creates a new chat client with the specified configuration.
// The client starts disconnected; call Connect to open the session.
func New(config Config) (*Client, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	config = config.withDefaults()

	dialer := config.Dialer
	if dialer == nil {
		d, err := transport.NewWebSocketDialer(config.transportConfig())
		if err != nil {
			return nil, err
		}
		dialer = d
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		config: config,
		logger: config.Logger.WithField("component", "connection"),
		dialer: dialer,
		clock:  config.Clock,
		ctx:    ctx,
		cancel: cancel,
		state:  core.StateDisconnected,
	}
	if config.UserID != "" {
		c.logger = c.logger.WithField("user", config.UserID)
	}

	log := messages.NewLog(messages.LogOptions{MaxMessages: config.MaxMessages})
	c.dispatcher = newDispatcher(log, config.Logger.WithField("component", "dispatcher"))
	c.registry = newRegistry(c.dispatcher, config.Logger.WithField("component", "registry"))
	c.gateway = newGateway(c, c.registry, c.dispatcher, config.Logger.WithField("component", "gateway"))
	return c, nil
}

// Connect opens the socket and starts the handshake in the background.
// It is a no-op while connecting or connected. A pending reconnect timer is
// replaced by this attempt.
func (c *Client) Connect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connectLocked()
}

func (c *Client) connectLocked() {
	if c.closed {
		c.logger.Warn("connect on closed client ignored")
		return
	}
	if c.state != core.StateDisconnected {
		return
	}
	c.stopRetryLocked()

	c.epoch++
	epoch := c.epoch
	ctx, cancel := context.WithTimeout(c.ctx, c.config.ConnectTimeout)
	c.cancelDial = cancel
	c.setStateLocked(core.StateConnecting, nil)

	go c.dial(ctx, cancel, epoch)
}

func (c *Client) dial(ctx context.Context, cancel context.CancelFunc, epoch uint64) {
	defer cancel()
	sess, err := c.dialer.Dial(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if epoch != c.epoch || c.state != core.StateConnecting {
		// Disconnect or Close won the race; the late session is not ours.
		if sess != nil {
			_ = sess.Close()
		}
		return
	}
	c.cancelDial = nil

	if err != nil {
		c.logger.WithError(err).WithField("retry_in", c.config.ReconnectDelay).Warn("connect failed")
		c.setStateLocked(core.StateDisconnected, err)
		c.scheduleRetryLocked()
		return
	}

	c.session = sess
	c.setStateLocked(core.StateConnected, nil)
	c.registry.attach(sess)
	if c.config.UserID != "" {
		c.registry.SubscribeUser(c.config.UserID)
	}
	if c.config.ResubscribeRooms {
		for _, roomID := range c.lostRooms {
			c.registry.SubscribeRoom(roomID)
		}
	}
	c.lostRooms = nil

	go c.watch(sess, epoch)
}

// watch waits for the session to end and, unless the end was requested,
// schedules a reconnect.
func (c *Client) watch(sess transport.Session, epoch uint64) {
	<-sess.Done()

	c.mu.Lock()
	defer c.mu.Unlock()

	if epoch != c.epoch || c.session != sess {
		return
	}

	err := sess.Err()
	c.logger.WithError(err).WithField("retry_in", c.config.ReconnectDelay).Warn("connection lost")
	c.lostRooms = c.registry.detach()
	c.session = nil
	c.setStateLocked(core.StateDisconnected, err)
	c.scheduleRetryLocked()
}

// Disconnect unsubscribes everything, closes the session and cancels any
// pending reconnect. The client can be connected again afterwards.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnectLocked()
}

func (c *Client) disconnectLocked() error {
	c.stopRetryLocked()
	if c.cancelDial != nil {
		c.cancelDial()
		c.cancelDial = nil
	}
	c.epoch++
	c.lostRooms = nil

	var err error
	if c.session != nil {
		c.registry.unsubscribeAll()
		c.registry.detach()
		err = c.session.Close()
		c.session = nil
	}
	c.setStateLocked(core.StateDisconnected, nil)
	return err
}

// Close disconnects and releases the client. The message log, the unread
// counter and the listeners are cleared; later Connect calls are ignored.
func (c *Client) Close() error {
	c.mu.Lock()
	err := c.disconnectLocked()
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.dispatcher.reset()
	c.dispatcher.clearListeners()
	return err
}

// Reset clears the message log and the unread counter.
func (c *Client) Reset() {
	c.dispatcher.reset()
}

func (c *Client) scheduleRetryLocked() {
	if c.closed || c.retry != nil {
		return
	}
	c.retryGen++
	gen := c.retryGen
	c.retry = c.clock.AfterFunc(c.config.ReconnectDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if gen != c.retryGen || c.retry == nil {
			// Cancelled after the timer had already fired.
			return
		}
		c.retry = nil
		c.logger.Debug("reconnecting")
		c.connectLocked()
	})
}

func (c *Client) stopRetryLocked() {
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
	c.retryGen++
}

func (c *Client) setStateLocked(state core.ConnectionState, err error) {
	old := c.state
	if old == state {
		return
	}
	c.state = state

	c.logger.WithFields(logrus.Fields{
		"from": old.String(),
		"to":   state.String(),
	}).Debug("state changed")
	if state == core.StateConnected {
		c.logger.Info("connected")
	}
	if c.config.OnStateChange != nil {
		c.config.OnStateChange(core.StateEvent{OldState: old, NewState: state, Error: err})
	}
}

// activeSession returns the session if the client is connected.
func (c *Client) activeSession() transport.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != core.StateConnected {
		return nil
	}
	return c.session
}

// State returns the current connection state.
func (c *Client) State() core.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected reports whether the state is Connected.
func (c *Client) IsConnected() bool {
	return c.State() == core.StateConnected
}

// SubscribeRoom subscribes to a room topic. It returns nil when not connected.
func (c *Client) SubscribeRoom(roomID string) *Subscription {
	return c.registry.SubscribeRoom(roomID)
}

// UnsubscribeRoom cancels a room subscription; unknown rooms are ignored.
func (c *Client) UnsubscribeRoom(roomID string) {
	c.registry.UnsubscribeRoom(roomID)
}

// SendMessage sends a chat message.
func (c *Client) SendMessage(msg *encoding.ChatMessage) error {
	return c.gateway.SendMessage(msg)
}

// JoinRoom announces senderID in the room. It does not subscribe.
func (c *Client) JoinRoom(roomID, senderID string) error {
	return c.gateway.JoinRoom(roomID, senderID)
}

// LeaveRoom announces the departure and drops the local room subscription.
func (c *Client) LeaveRoom(roomID, senderID string) error {
	return c.gateway.LeaveRoom(roomID, senderID)
}

// MarkAsRead acknowledges the room and resets the unread counter.
func (c *Client) MarkAsRead(roomID, senderID string) error {
	return c.gateway.MarkAsRead(roomID, senderID)
}

// AddListener registers a listener for room messages.
func (c *Client) AddListener(l MessageListener) Disposer {
	return c.dispatcher.AddListener(l)
}

// RemoveListener unregisters a listener; absent listeners are ignored.
func (c *Client) RemoveListener(l MessageListener) {
	c.dispatcher.RemoveListener(l)
}

// Messages returns the shared message log in arrival order.
func (c *Client) Messages() []*encoding.Envelope {
	return c.dispatcher.Messages()
}

// UnreadCount returns the number of inbox messages since the last MarkAsRead.
func (c *Client) UnreadCount() int {
	return c.dispatcher.UnreadCount()
}

// Rooms returns the ids of the rooms currently subscribed.
func (c *Client) Rooms() []string {
	return c.registry.Rooms()
}
