package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nzuev/channel-pass/internal/app/expirysweeper"
	"github.com/nzuev/channel-pass/internal/config"
)

func main() {
	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	logger.Info("starting expiry-sweeper", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := expirysweeper.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize sweeper app", slog.Any("err", err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("sweeper app stopped with error", slog.Any("err", err))
		os.Exit(1)
	}

	logger.Info("expiry-sweeper stopped gracefully")
}
