// Package main provides an interactive terminal client for the marketplace chat.
package main

import (
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/marketbridge/chat-sdk/internal/config"
	"github.com/marketbridge/chat-sdk/pkg/client"
)

func main() {
	var cfg config.CLI
	if err := config.ParseEnv(&cfg); err != nil {
		config.Exitf("chat-cli: %v", err)
	}
	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		config.Exitf("chat-cli: %v", err)
	}
	// The terminal belongs to the UI; logs go to a file or nowhere.
	logger.SetOutput(io.Discard)
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			config.Exitf("chat-cli: open log file: %v", err)
		}
		defer f.Close()
		logger.SetOutput(f)
	}

	events := newEventQueue()
	c, err := client.New(client.Config{
		URL:              cfg.ServerURL,
		UserID:           cfg.UserID,
		ReconnectDelay:   cfg.ReconnectDelay,
		ResubscribeRooms: cfg.ResubscribeRooms,
		Logger:           logrus.NewEntry(logger),
		OnStateChange:    events.stateChanged,
	})
	if err != nil {
		config.Exitf("chat-cli: %v", err)
	}
	defer c.Close()

	c.AddListener(events)
	c.Connect()

	m := newModel(c, cfg.UserID, cfg.RoomID, cfg.ServerURL, events)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		config.Exitf("chat-cli: %v", err)
	}
}
