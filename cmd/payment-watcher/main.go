package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nzuev/channel-pass/internal/app/paymentwatcher"
	"github.com/nzuev/channel-pass/internal/config"
)

func main() {
	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	logger.Info("starting payment-watcher", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := paymentwatcher.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize watcher app", slog.Any("err", err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("watcher app stopped with error", slog.Any("err", err))
		os.Exit(1)
	}

	logger.Info("payment-watcher stopped gracefully")
}
