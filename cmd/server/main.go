package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/thereayou/score-rooms/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Config: %v", err)
	}
	if err := cfg.SetupLogging(); err != nil {
		logrus.Fatalf("Logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := NewServer(ctx, cfg)
	if err != nil {
		logrus.Fatalf("Server init failed: %v", err)
	}
	if err := srv.Run(ctx); err != nil {
		logrus.Fatalf("Server run error: %v", err)
	}
}
