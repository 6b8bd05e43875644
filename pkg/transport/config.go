package transport

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/marketbridge/chat-sdk/pkg/core"
)

const (
	// DefaultEndpoint is the backend's socket endpoint.
	DefaultEndpoint = "/ws"

	defaultHandshakeTimeout = 10 * time.Second
	defaultWriteTimeout     = 5 * time.Second
)

// Config contains configuration options for the WebSocket dialer.
type Config struct {
	// URL is the backend base URL (http, https, ws or wss)
	URL string

	// Endpoint is the socket path appended to a URL without a path
	Endpoint string

	// Host is the STOMP virtual host; defaults to the URL host
	Host string

	// Login and Passcode are sent in the CONNECT frame when set
	Login    string
	Passcode string

	// HeartBeat is offered in both directions; zero disables heart-beating
	HeartBeat time.Duration

	// HandshakeTimeout bounds the socket upgrade and the CONNECT exchange
	HandshakeTimeout time.Duration

	// WriteTimeout bounds every socket write
	WriteTimeout time.Duration

	// Header is added to the upgrade request
	Header http.Header

	// Logger receives transport logs
	Logger *logrus.Entry
}

// ResolveURL turns a backend base URL into the socket URL.
func ResolveURL(rawURL, endpoint string) (string, error) {
	if rawURL == "" {
		return "", &core.ConfigError{
			Field: "URL",
			Value: rawURL,
			Err:   errors.New("URL cannot be empty"),
		}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", &core.ConfigError{
			Field: "URL",
			Value: rawURL,
			Err:   fmt.Errorf("invalid URL: %w", err),
		}
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", &core.ConfigError{
			Field: "URL",
			Value: rawURL,
			Err:   fmt.Errorf("unsupported scheme %q", u.Scheme),
		}
	}
	if u.Host == "" {
		return "", &core.ConfigError{
			Field: "URL",
			Value: rawURL,
			Err:   errors.New("URL has no host"),
		}
	}

	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/" + strings.TrimPrefix(endpoint, "/")
	}
	return u.String(), nil
}
