// Package expirysweeper собирает воркер периодического отзыва истёкших доступов.
package expirysweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/nzuev/channel-pass/internal/config"
	"github.com/nzuev/channel-pass/internal/notify/amqpnotify"
	"github.com/nzuev/channel-pass/internal/rabbitmq"
	accessservice "github.com/nzuev/channel-pass/internal/services/access"
	sweeperservice "github.com/nzuev/channel-pass/internal/services/sweeper"
	"github.com/nzuev/channel-pass/internal/storage"
	"github.com/nzuev/channel-pass/internal/storage/pgstore"
)

// App представляет приложение свипера.
type App struct {
	sweeperService *sweeperservice.Service
	interval       time.Duration
	conn           *amqp.Connection
	ch             *amqp.Channel
	db             *pgstore.Storage
	logger         *slog.Logger
}

// New создает новый экземпляр приложения свипера.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNoticeQueues())
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	store, db, err := storage.NewStore(cfg.Storage)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	access := accessservice.New(store, logger)
	notifier := amqpnotify.New(ch)
	sweeperService := sweeperservice.New(access, notifier, logger)

	return &App{
		sweeperService: sweeperService,
		interval:       cfg.SweepInterval,
		conn:           conn,
		ch:             ch,
		db:             db,
		logger:         logger,
	}, nil
}

// Run запускает свипер до отмены контекста.
func (a *App) Run(ctx context.Context) error {
	a.sweeperService.Run(ctx, a.interval)

	a.logger.Info("shutting down sweeper service")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", slog.Any("err", err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", slog.Any("err", err))
	}
	if a.db != nil {
		a.db.DB.Close()
	}
	return nil
}
