package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/marketbridge/chat-sdk/internal/protocol"
	"github.com/marketbridge/chat-sdk/pkg/core"
)

const jsonContentType = "application/json;charset=UTF-8"

// WebSocketDialer opens STOMP sessions over gorilla/websocket connections.
type WebSocketDialer struct {
	config Config
	url    string
	host   string
	ws     *websocket.Dialer
	logger *logrus.Entry
}

// NewWebSocketDialer creates a dialer for the configured backend.
func NewWebSocketDialer(config Config) (*WebSocketDialer, error) {
	wsURL, err := ResolveURL(config.URL, config.Endpoint)
	if err != nil {
		return nil, err
	}
	if config.HeartBeat < 0 {
		return nil, &core.ConfigError{
			Field: "HeartBeat",
			Value: config.HeartBeat,
			Err:   errors.New("heart-beat cannot be negative"),
		}
	}
	if config.HandshakeTimeout <= 0 {
		config.HandshakeTimeout = defaultHandshakeTimeout
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = defaultWriteTimeout
	}

	logger := config.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	host := config.Host
	if host == "" {
		u, _ := url.Parse(wsURL)
		host = u.Hostname()
	}

	return &WebSocketDialer{
		config: config,
		url:    wsURL,
		host:   host,
		ws: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: config.HandshakeTimeout,
		},
		logger: logger.WithField("component", "transport"),
	}, nil
}

// URL returns the resolved socket URL.
func (d *WebSocketDialer) URL() string {
	return d.url
}

// Dial opens the socket and completes the STOMP handshake.
func (d *WebSocketDialer) Dial(ctx context.Context) (Session, error) {
	conn, resp, err := d.ws.DialContext(ctx, d.url, d.config.Header)
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("%w (status: %s)", err, resp.Status)
		}
		return nil, &core.ConnectError{URL: d.url, Err: err}
	}

	sess, err := d.handshake(ctx, conn)
	if err != nil {
		_ = conn.Close()
		return nil, &core.ConnectError{URL: d.url, Err: err}
	}
	sess.start()
	return sess, nil
}

func (d *WebSocketDialer) handshake(ctx context.Context, conn *websocket.Conn) (*wsSession, error) {
	deadline := time.Now().Add(d.config.HandshakeTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	_ = conn.SetReadDeadline(deadline)
	_ = conn.SetWriteDeadline(deadline)

	connect := frame.New(frame.CONNECT,
		frame.AcceptVersion, protocol.Version,
		frame.Host, d.host,
		frame.HeartBeat, protocol.FormatHeartBeat(d.config.HeartBeat, d.config.HeartBeat),
	)
	if d.config.Login != "" {
		connect.Header.Add(frame.Login, d.config.Login)
		connect.Header.Add(frame.Passcode, d.config.Passcode)
	}
	data, err := protocol.Encode(connect)
	if err != nil {
		return nil, err
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return nil, fmt.Errorf("write CONNECT: %w", err)
	}

	var connected *frame.Frame
	for connected == nil {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("read CONNECTED: %w", err)
		}
		frames, err := protocol.Decode(data)
		if err != nil {
			return nil, &core.ProtocolError{Operation: "handshake", Err: err}
		}
		if len(frames) == 0 {
			continue
		}
		switch f := frames[0]; f.Command {
		case frame.CONNECTED:
			connected = f
		case frame.ERROR:
			return nil, &core.ProtocolError{Operation: "handshake", Err: errors.New(errorMessage(f))}
		default:
			return nil, &core.ProtocolError{
				Operation: "handshake",
				Err:       fmt.Errorf("unexpected %s frame", f.Command),
			}
		}
	}

	peerSend, peerReceive, err := protocol.ParseHeartBeat(connected.Header.Get(frame.HeartBeat))
	if err != nil {
		return nil, &core.ProtocolError{Operation: "handshake", Err: err}
	}
	send, receive := protocol.Negotiate(d.config.HeartBeat, d.config.HeartBeat, peerSend, peerReceive)

	_ = conn.SetReadDeadline(time.Time{})
	_ = conn.SetWriteDeadline(time.Time{})

	ctx, cancel := context.WithCancel(context.Background())
	sess := &wsSession{
		conn:            conn,
		writeTimeout:    d.config.WriteTimeout,
		sendInterval:    send,
		receiveInterval: receive,
		subs:            make(map[string]*wsSubscription),
		ctx:             ctx,
		cancel:          cancel,
		done:            make(chan struct{}),
		logger: d.logger.WithFields(logrus.Fields{
			"session": connected.Header.Get(frame.Session),
			"server":  connected.Header.Get(frame.Server),
		}),
	}
	sess.logger.WithFields(logrus.Fields{
		"send_heartbeat":    send,
		"receive_heartbeat": receive,
	}).Debug("session established")
	return sess, nil
}

// wsSession is a Session over one websocket connection.
type wsSession struct {
	conn            *websocket.Conn
	logger          *logrus.Entry
	writeTimeout    time.Duration
	sendInterval    time.Duration
	receiveInterval time.Duration

	writeMu sync.Mutex

	mu   sync.RWMutex
	subs map[string]*wsSubscription
	err  error

	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	closing atomic.Bool
}

func (s *wsSession) start() {
	g, gctx := errgroup.WithContext(s.ctx)
	g.Go(s.readLoop)
	if s.sendInterval > 0 {
		g.Go(func() error {
			return s.heartBeatLoop(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		return s.conn.Close()
	})

	go func() {
		s.finish(g.Wait())
	}()
}

func (s *wsSession) finish(err error) {
	if s.closing.Load() {
		err = nil
	} else if err == nil {
		err = core.ErrSessionClosed
	}

	s.mu.Lock()
	s.err = err
	s.subs = make(map[string]*wsSubscription)
	s.mu.Unlock()

	if err != nil {
		s.logger.WithError(err).Warn("session ended")
	} else {
		s.logger.Debug("session closed")
	}
	close(s.done)
}

func (s *wsSession) readLoop() error {
	for {
		if s.receiveInterval > 0 {
			_ = s.conn.SetReadDeadline(time.Now().Add(2 * s.receiveInterval))
		}
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if s.closing.Load() {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		frames, err := protocol.Decode(data)
		if err != nil {
			return &core.ProtocolError{Operation: "read", Err: err}
		}
		for _, f := range frames {
			if err := s.handleFrame(f); err != nil {
				return err
			}
		}
	}
}

func (s *wsSession) handleFrame(f *frame.Frame) error {
	switch f.Command {
	case frame.MESSAGE:
		id := f.Header.Get(frame.Subscription)
		s.mu.RLock()
		sub := s.subs[id]
		s.mu.RUnlock()
		if sub == nil {
			s.logger.WithField("subscription", id).Debug("frame for unknown subscription")
			return nil
		}
		sub.handler(Frame{
			Destination:  f.Header.Get(frame.Destination),
			Subscription: id,
			MessageID:    f.Header.Get(frame.MessageId),
			ContentType:  f.Header.Get(frame.ContentType),
			Body:         f.Body,
		})
	case frame.ERROR:
		return &core.ProtocolError{Operation: "session", Err: errors.New(errorMessage(f))}
	case frame.RECEIPT:
		s.logger.WithField("receipt", f.Header.Get(frame.ReceiptId)).Debug("receipt")
	default:
		s.logger.WithField("command", f.Command).Debug("ignoring unexpected frame")
	}
	return nil
}

func (s *wsSession) heartBeatLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.sendInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.write(protocol.HeartBeatEOL); err != nil {
				if s.closing.Load() || errors.Is(err, core.ErrSessionClosed) {
					return nil
				}
				return fmt.Errorf("heart-beat: %w", err)
			}
		}
	}
}

func (s *wsSession) write(data []byte) error {
	select {
	case <-s.done:
		return core.ErrSessionClosed
	default:
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *wsSession) writeFrame(f *frame.Frame) error {
	data, err := protocol.Encode(f)
	if err != nil {
		return err
	}
	return s.write(data)
}

// Subscribe implements Session.
func (s *wsSession) Subscribe(destination string, handler Handler) (Subscription, error) {
	if handler == nil {
		return nil, errors.New("handler cannot be nil")
	}

	sub := &wsSubscription{
		id:          "sub-" + uuid.NewString(),
		destination: destination,
		handler:     handler,
		session:     s,
	}

	// Registered before the SUBSCRIBE frame so no early MESSAGE is lost.
	s.mu.Lock()
	s.subs[sub.id] = sub
	s.mu.Unlock()

	err := s.writeFrame(frame.New(frame.SUBSCRIBE,
		frame.Id, sub.id,
		frame.Destination, destination,
		frame.Ack, "auto",
	))
	if err != nil {
		s.remove(sub.id)
		return nil, fmt.Errorf("subscribe %s: %w", destination, err)
	}
	return sub, nil
}

// Send implements Session.
func (s *wsSession) Send(destination string, body []byte) error {
	f := frame.New(frame.SEND,
		frame.Destination, destination,
		frame.ContentType, jsonContentType,
	)
	f.Body = body
	if err := s.writeFrame(f); err != nil {
		return fmt.Errorf("send %s: %w", destination, err)
	}
	return nil
}

// Done implements Session.
func (s *wsSession) Done() <-chan struct{} {
	return s.done
}

// Err implements Session.
func (s *wsSession) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Close sends DISCONNECT and tears the socket down without waiting for a receipt.
func (s *wsSession) Close() error {
	if !s.closing.CompareAndSwap(false, true) {
		return nil
	}

	err := s.writeFrame(frame.New(frame.DISCONNECT))
	if errors.Is(err, core.ErrSessionClosed) {
		err = nil
	}
	s.cancel()
	return err
}

func (s *wsSession) remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[id]; !ok {
		return false
	}
	delete(s.subs, id)
	return true
}

// wsSubscription is one SUBSCRIBE on a wsSession.
type wsSubscription struct {
	id          string
	destination string
	handler     Handler
	session     *wsSession
}

func (sub *wsSubscription) ID() string          { return sub.id }
func (sub *wsSubscription) Destination() string { return sub.destination }

// Unsubscribe implements Subscription.
func (sub *wsSubscription) Unsubscribe() error {
	if !sub.session.remove(sub.id) {
		return nil
	}
	err := sub.session.writeFrame(frame.New(frame.UNSUBSCRIBE, frame.Id, sub.id))
	if err != nil && !errors.Is(err, core.ErrSessionClosed) && !sub.session.closing.Load() {
		return fmt.Errorf("unsubscribe %s: %w", sub.destination, err)
	}
	return nil
}

func errorMessage(f *frame.Frame) string {
	msg := f.Header.Get(frame.Message)
	if body := strings.TrimSpace(string(f.Body)); body != "" {
		if msg == "" {
			return body
		}
		return msg + ": " + body
	}
	if msg == "" {
		return "server sent ERROR frame"
	}
	return msg
}
