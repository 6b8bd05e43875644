package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/marketbridge/chat-sdk/internal/protocol"
	"github.com/marketbridge/chat-sdk/pkg/core"
	"github.com/marketbridge/chat-sdk/pkg/encoding"
	"github.com/marketbridge/chat-sdk/pkg/transport"
)

const serverName = "chat-devserver/1.0"

// Server is a development STOMP broker for the chat protocol.
type Server struct {
	config   *Config
	logger   *logrus.Entry
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	conns map[*brokerConn]struct{}

	nextMessageID atomic.Int64
	httpServer    *http.Server
}

// Config contains configuration options for the server.
type Config struct {
	// Address is the server listen address (e.g., ":8080")
	Address string

	// Endpoint is the WebSocket path (defaults to /ws)
	Endpoint string

	// Logger receives broker logs
	Logger *logrus.Entry
}

// New creates a new broker with the specified configuration.
func New(config Config) (*Server, error) {
	if config.Endpoint == "" {
		config.Endpoint = transport.DefaultEndpoint
	}
	if !strings.HasPrefix(config.Endpoint, "/") {
		return nil, &core.ConfigError{
			Field: "Endpoint",
			Value: config.Endpoint,
			Err:   errors.New("endpoint must start with /"),
		}
	}

	logger := config.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Server{
		config: &config,
		logger: logger.WithField("component", "server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The development broker accepts any origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns: make(map[*brokerConn]struct{}),
	}, nil
}

// Handler returns the HTTP handler serving the WebSocket endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.config.Endpoint, s.handleWebSocket)
	return mux
}

// ListenAndServe starts the server and listens for incoming connections.
func (s *Server) ListenAndServe() error {
	s.mu.Lock()
	s.httpServer = &http.Server{
		Addr:              s.config.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"address":  s.config.Address,
		"endpoint": s.config.Endpoint,
	}).Info("starting chat broker")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and drops the open ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv := s.httpServer
	s.mu.RUnlock()

	var err error
	if srv != nil {
		err = srv.Shutdown(ctx)
	}
	s.DropConnections()
	return err
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Debug("upgrade failed")
		return
	}

	c := newBrokerConn(s, ws)
	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()

	go c.writePump()
	c.readPump()

	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
}

// Publish delivers body to every subscription on destination and returns
// the number of deliveries.
func (s *Server) Publish(destination string, body []byte) int {
	s.mu.RLock()
	conns := make([]*brokerConn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.RUnlock()

	delivered := 0
	for _, c := range conns {
		for _, id := range c.subscriptionsFor(destination) {
			msg := frame.New(frame.MESSAGE,
				frame.Destination, destination,
				frame.Subscription, id,
				frame.MessageId, uuid.NewString(),
				frame.ContentType, "application/json",
			)
			msg.Body = body
			if c.sendFrame(msg) {
				delivered++
			}
		}
	}
	return delivered
}

// DropConnections closes every socket abruptly and returns how many were open.
func (s *Server) DropConnections() int {
	s.mu.RLock()
	conns := make([]*brokerConn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.RUnlock()

	for _, c := range conns {
		c.abort()
	}
	return len(conns)
}

// ConnectionCount returns the number of open sockets.
func (s *Server) ConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

// SubscriberCount returns the number of live subscriptions on destination.
func (s *Server) SubscriberCount(destination string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for c := range s.conns {
		n += len(c.subscriptionsFor(destination))
	}
	return n
}

// route handles a SEND frame from c.
func (s *Server) route(c *brokerConn, f *frame.Frame) error {
	destination := f.Header.Get(frame.Destination)
	logger := c.logger.WithField("destination", destination)

	switch destination {
	case core.DestinationSendMessage:
		var msg encoding.ChatMessage
		if err := json.Unmarshal(f.Body, &msg); err != nil {
			return fmt.Errorf("decode chat message: %w", err)
		}
		if msg.Type == "" {
			msg.Type = encoding.TypeChat
		}
		if err := msg.Validate(); err != nil {
			return err
		}
		s.stamp(&msg)
		body, err := msg.ToJSON()
		if err != nil {
			return err
		}
		n := s.Publish(core.RoomKey(msg.ChatRoomID.String()).Destination(), body)
		if !msg.ReceiverID.IsZero() {
			n += s.Publish(core.UserKey(msg.ReceiverID.String()).Destination(), body)
		}
		logger.WithFields(logrus.Fields{"room": msg.ChatRoomID, "deliveries": n}).Debug("message routed")

	case core.DestinationJoinRoom, core.DestinationLeaveRoom:
		var cmd encoding.ChatMessage
		if err := json.Unmarshal(f.Body, &cmd); err != nil {
			return fmt.Errorf("decode room command: %w", err)
		}
		notice := encoding.ChatMessage{
			ChatRoomID: cmd.ChatRoomID,
			SenderID:   cmd.SenderID,
			Type:       encoding.TypeJoin,
			Content:    cmd.SenderID.String() + " joined",
		}
		if destination == core.DestinationLeaveRoom {
			notice.Type = encoding.TypeLeave
			notice.Content = cmd.SenderID.String() + " left"
		}
		if err := notice.Validate(); err != nil {
			return err
		}
		s.stamp(&notice)
		body, err := notice.ToJSON()
		if err != nil {
			return err
		}
		s.Publish(core.RoomKey(notice.ChatRoomID.String()).Destination(), body)

	case core.DestinationMarkAsRead:
		var cmd encoding.ChatMessage
		if err := json.Unmarshal(f.Body, &cmd); err != nil {
			return fmt.Errorf("decode read command: %w", err)
		}
		logger.WithFields(logrus.Fields{"room": cmd.ChatRoomID, "sender": cmd.SenderID}).Info("marked as read")

	default:
		if _, err := core.ParseDestination(destination); err != nil {
			return fmt.Errorf("%w: %s", core.ErrUnknownCommand, destination)
		}
		s.Publish(destination, f.Body)
	}
	return nil
}

func (s *Server) stamp(msg *encoding.ChatMessage) {
	if msg.ID.IsZero() {
		msg.ID = encoding.ID(strconv.FormatInt(s.nextMessageID.Add(1), 10))
	}
	if msg.Timestamp == nil {
		now := time.Now().UTC()
		msg.Timestamp = &now
	}
}

func connectedFrame(session string) *frame.Frame {
	return frame.New(frame.CONNECTED,
		frame.Version, protocol.Version,
		frame.HeartBeat, protocol.FormatHeartBeat(0, 0),
		frame.Session, session,
		frame.Server, serverName,
	)
}
