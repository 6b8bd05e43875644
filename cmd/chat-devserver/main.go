// Package main runs the development chat broker.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/marketbridge/chat-sdk/internal/config"
	"github.com/marketbridge/chat-sdk/pkg/server"
)

func main() {
	var cfg config.DevServer
	if err := config.ParseEnv(&cfg); err != nil {
		config.Exitf("chat-devserver: %v", err)
	}
	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		config.Exitf("chat-devserver: %v", err)
	}

	srv, err := server.New(server.Config{
		Address: cfg.Addr,
		Logger:  logrus.NewEntry(logger),
	})
	if err != nil {
		config.Exitf("chat-devserver: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(srv.ListenAndServe)
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		config.Exitf("chat-devserver: %v", err)
	}
}
