package server

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/marketbridge/chat-sdk/internal/protocol"
)

const (
	sendBufferSize = 256
	writeTimeout   = 5 * time.Second
)

// brokerConn is one client socket on the broker.
type brokerConn struct {
	server *Server
	ws     *websocket.Conn
	logger *logrus.Entry
	send   chan []byte

	mu        sync.Mutex
	subs      map[string]string // subscription id -> destination
	connected bool

	done      chan struct{}
	closeOnce sync.Once
}

func newBrokerConn(s *Server, ws *websocket.Conn) *brokerConn {
	return &brokerConn{
		server: s,
		ws:     ws,
		logger: s.logger.WithField("remote", ws.RemoteAddr().String()),
		send:   make(chan []byte, sendBufferSize),
		subs:   make(map[string]string),
		done:   make(chan struct{}),
	}
}

func (c *brokerConn) readPump() {
	defer c.close()
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		frames, err := protocol.Decode(data)
		if err != nil {
			c.fail(err)
			return
		}
		for _, f := range frames {
			stop, err := c.handle(f)
			if err != nil {
				c.fail(err)
				return
			}
			if stop {
				return
			}
		}
	}
}

func (c *brokerConn) writePump() {
	defer c.ws.Close()
	for {
		select {
		case msg := <-c.send:
			if !c.write(msg) {
				return
			}
		case <-c.done:
			// Flush what was queued before the close, e.g. a RECEIPT or ERROR.
			for {
				select {
				case msg := <-c.send:
					if !c.write(msg) {
						return
					}
				default:
					return
				}
			}
		}
	}
}

func (c *brokerConn) write(msg []byte) bool {
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteMessage(websocket.TextMessage, msg) == nil
}

// handle processes one client frame and reports whether the connection should end.
func (c *brokerConn) handle(f *frame.Frame) (bool, error) {
	c.mu.Lock()
	connected := c.connected
	c.mu.Unlock()

	if !connected && f.Command != frame.CONNECT && f.Command != frame.STOMP {
		return false, fmt.Errorf("%s before CONNECT", f.Command)
	}

	switch f.Command {
	case frame.CONNECT, frame.STOMP:
		if versions := f.Header.Get(frame.AcceptVersion); versions != "" &&
			!slices.Contains(strings.Split(versions, ","), protocol.Version) {
			return false, fmt.Errorf("unsupported protocol versions %q", versions)
		}
		session := uuid.NewString()
		c.mu.Lock()
		c.connected = true
		c.mu.Unlock()
		c.sendFrame(connectedFrame(session))
		c.logger.WithField("session", session).Debug("client connected")

	case frame.SUBSCRIBE:
		id := f.Header.Get(frame.Id)
		destination := f.Header.Get(frame.Destination)
		if id == "" || destination == "" {
			return false, errors.New("SUBSCRIBE requires id and destination")
		}
		c.mu.Lock()
		c.subs[id] = destination
		c.mu.Unlock()
		c.logger.WithField("destination", destination).Debug("subscribed")

	case frame.UNSUBSCRIBE:
		c.mu.Lock()
		delete(c.subs, f.Header.Get(frame.Id))
		c.mu.Unlock()

	case frame.SEND:
		if err := c.server.route(c, f); err != nil {
			return false, err
		}

	case frame.DISCONNECT:
		if receipt := f.Header.Get(frame.Receipt); receipt != "" {
			c.sendFrame(frame.New(frame.RECEIPT, frame.ReceiptId, receipt))
		}
		c.logger.Debug("client disconnected")
		return true, nil

	default:
		return false, fmt.Errorf("unsupported command %s", f.Command)
	}
	return false, nil
}

func (c *brokerConn) subscriptionsFor(destination string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var ids []string
	for id, dest := range c.subs {
		if dest == destination {
			ids = append(ids, id)
		}
	}
	return ids
}

func (c *brokerConn) sendFrame(f *frame.Frame) bool {
	data, err := protocol.Encode(f)
	if err != nil {
		c.logger.WithError(err).Error("failed to encode frame")
		return false
	}

	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- data:
		return true
	default:
		c.logger.Warn("dropping slow client")
		c.abort()
		return false
	}
}

// fail reports err in an ERROR frame; the connection is closed afterwards.
func (c *brokerConn) fail(err error) {
	c.logger.WithError(err).Warn("protocol error")
	c.sendFrame(frame.New(frame.ERROR,
		frame.Message, err.Error(),
	))
}

func (c *brokerConn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *brokerConn) abort() {
	c.close()
	_ = c.ws.Close()
}
