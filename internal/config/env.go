// Package config loads the environment configuration of the chat binaries.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"
)

// CLI is the environment of cmd/chat-cli.
type CLI struct {
	ServerURL        string        `env:"CHAT_SERVER_URL" envDefault:"http://localhost:8080"`
	UserID           string        `env:"CHAT_USER_ID,required,notEmpty"`
	RoomID           string        `env:"CHAT_ROOM_ID"`
	ReconnectDelay   time.Duration `env:"CHAT_RECONNECT_DELAY" envDefault:"5s"`
	ResubscribeRooms bool          `env:"CHAT_RESUBSCRIBE_ROOMS" envDefault:"false"`
	LogLevel         string        `env:"CHAT_LOG_LEVEL" envDefault:"info"`
	LogFile          string        `env:"CHAT_LOG_FILE"`
}

// DevServer is the environment of cmd/chat-devserver.
type DevServer struct {
	Addr     string `env:"CHAT_DEVSERVER_ADDR" envDefault:":8080"`
	LogLevel string `env:"CHAT_LOG_LEVEL" envDefault:"info"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// NewLogger returns a text logger on stderr at the named level.
func NewLogger(level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return logger, nil
}

// Exitf writes a formatted error message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
