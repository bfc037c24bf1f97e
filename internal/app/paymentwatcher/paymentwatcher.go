// Package paymentwatcher собирает воркер автоматической проверки платежей.
package paymentwatcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/nzuev/channel-pass/internal/config"
	"github.com/nzuev/channel-pass/internal/notify/amqpnotify"
	"github.com/nzuev/channel-pass/internal/probe/fileprobe"
	"github.com/nzuev/channel-pass/internal/provision/invite"
	"github.com/nzuev/channel-pass/internal/rabbitmq"
	accessservice "github.com/nzuev/channel-pass/internal/services/access"
	ledgerservice "github.com/nzuev/channel-pass/internal/services/ledger"
	watcherservice "github.com/nzuev/channel-pass/internal/services/watcher"
	workflowservice "github.com/nzuev/channel-pass/internal/services/workflow"
	"github.com/nzuev/channel-pass/internal/storage"
	"github.com/nzuev/channel-pass/internal/storage/pgstore"
	"github.com/nzuev/channel-pass/internal/tariffs"
)

// App представляет приложение воркера проверки платежей.
type App struct {
	watcherService *watcherservice.Service
	interval       time.Duration
	conn           *amqp.Connection
	ch             *amqp.Channel
	db             *pgstore.Storage
	logger         *slog.Logger
}

// New создает новый экземпляр приложения воркера.
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

	probe, err := fileprobe.New(cfg.ProbeDir)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to init payment probe: %w", err)
	}

	catalog := tariffs.Default()
	ledger := ledgerservice.New(store, catalog, logger)
	access := accessservice.New(store, logger)
	notifier := amqpnotify.New(ch)
	workflow := workflowservice.New(
		ledger, access, catalog, notifier, invite.New(logger), probe,
		cfg.Admin.AdminID, cfg.Requisites, logger,
	)
	watcherService := watcherservice.New(ledger, workflow, probe, logger)

	return &App{
		watcherService: watcherService,
		interval:       cfg.ProbeInterval,
		conn:           conn,
		ch:             ch,
		db:             db,
		logger:         logger,
	}, nil
}

// Run запускает воркер до отмены контекста.
func (a *App) Run(ctx context.Context) error {
	a.watcherService.Run(ctx, a.interval)

	a.logger.Info("shutting down payment watcher")

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
