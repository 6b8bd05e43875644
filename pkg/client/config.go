package client

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/marketbridge/chat-sdk/pkg/core"
	"github.com/marketbridge/chat-sdk/pkg/transport"
)

const (
	// DefaultReconnectDelay is the fixed delay before a reconnect attempt.
	DefaultReconnectDelay = 5 * time.Second

	// DefaultConnectTimeout bounds one dial plus handshake.
	DefaultConnectTimeout = 10 * time.Second

	// DefaultHeartBeat is the heart-beat interval offered to the backend.
	DefaultHeartBeat = 10 * time.Second
)

// Config contains configuration options for the client.
type Config struct {
	// URL is the base URL of the chat backend (e.g., "https://market.example.com")
	URL string

	// Endpoint is the socket path on the backend (defaults to /ws)
	Endpoint string

	// UserID is the signed-in user; when set, the personal inbox queue is
	// subscribed on every successful connect
	UserID string

	// Login and Passcode are forwarded in the STOMP CONNECT frame
	Login    string
	Passcode string

	// ReconnectDelay is the fixed delay between a failure and the next attempt
	ReconnectDelay time.Duration

	// ConnectTimeout bounds a single connect attempt
	ConnectTimeout time.Duration

	// HeartBeat is the offered heart-beat interval; negative disables heart-beating
	HeartBeat time.Duration

	// ResubscribeRooms restores the room subscriptions that were active when
	// the connection dropped. Off by default: only the inbox is restored.
	ResubscribeRooms bool

	// MaxMessages caps the message log; 0 keeps every message
	MaxMessages int

	// Logger receives client logs (defaults to the logrus standard logger)
	Logger *logrus.Entry

	// Dialer overrides the WebSocket dialer built from URL
	Dialer transport.Dialer

	// Clock overrides the reconnect timer source
	Clock core.Clock

	// OnStateChange is called on every state transition. It runs while the
	// client holds its state lock and must not call back into the client.
	OnStateChange func(core.StateEvent)
}

func (c Config) withDefaults() Config {
	if c.Endpoint == "" {
		c.Endpoint = transport.DefaultEndpoint
	}
	if c.ReconnectDelay == 0 {
		c.ReconnectDelay = DefaultReconnectDelay
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.HeartBeat == 0 {
		c.HeartBeat = DefaultHeartBeat
	}
	if c.Logger == nil {
		c.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if c.Clock == nil {
		c.Clock = core.SystemClock{}
	}
	return c
}

func (c Config) validate() error {
	if c.URL == "" && c.Dialer == nil {
		return &core.ConfigError{
			Field: "URL",
			Value: c.URL,
			Err:   errors.New("URL cannot be empty"),
		}
	}
	if c.ReconnectDelay < 0 {
		return &core.ConfigError{
			Field: "ReconnectDelay",
			Value: c.ReconnectDelay,
			Err:   errors.New("reconnect delay cannot be negative"),
		}
	}
	if c.ConnectTimeout < 0 {
		return &core.ConfigError{
			Field: "ConnectTimeout",
			Value: c.ConnectTimeout,
			Err:   errors.New("connect timeout cannot be negative"),
		}
	}
	if c.MaxMessages < 0 {
		return &core.ConfigError{
			Field: "MaxMessages",
			Value: c.MaxMessages,
			Err:   errors.New("max messages cannot be negative"),
		}
	}
	return nil
}

func (c Config) transportConfig() transport.Config {
	heartBeat := c.HeartBeat
	if heartBeat < 0 {
		heartBeat = 0
	}
	return transport.Config{
		URL:              c.URL,
		Endpoint:         c.Endpoint,
		Login:            c.Login,
		Passcode:         c.Passcode,
		HeartBeat:        heartBeat,
		HandshakeTimeout: c.ConnectTimeout,
		Logger:           c.Logger,
	}
}
