package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/codeloft/codeloft/pkg/config"
	"github.com/codeloft/codeloft/pkg/utils"
)

func main() {
	utils.InitLogger()
	logger := utils.GetLogger()

	if path, err := config.EnsureDefaultConfig(); err != nil {
		logger.Warn("Failed to ensure default config", "path", path, "error", err)
	}
	cfg, path, err := config.Load()
	if err != nil {
		logger.Warn("Failed to load config; falling back to defaults", "path", path, "error", err)
		cfg = &config.AppConfig{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server := NewServer(cfg)
	if err := server.SetupRoutes(ctx); err != nil {
		logger.Error("Failed to set up server", "error", err)
		os.Exit(1)
	}
	if err := server.Start(ctx); err != nil {
		logger.Error("Failed to start server", "error", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("Shutting down", "signal", sig.String())
	cancel()
}
