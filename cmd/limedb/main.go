package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"limedb/internal/http"
	"limedb/pkg/config"
	"limedb/pkg/db"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}
	initLogger(&cfg)

	store, err := db.Open(cfg.DB)
	if err != nil {
		slog.Error("failed to open db", "error", err)
		os.Exit(1)
	}

	server := http.NewServer(store, strconv.Itoa(cfg.Server.Port))
	if err := server.Start(); err != nil {
		slog.Error("failed to start server", "error", err)
		_ = store.Close()
		os.Exit(1)
	}

	<-ctx.Done()

	if err := server.Stop(); err != nil {
		slog.Warn("failed to stop server", "error", err)
	}
	if err := store.Close(); err != nil {
		slog.Error("failed to close db", "error", err)
		os.Exit(1)
	}

	slog.Info("limedb stopped")
}
