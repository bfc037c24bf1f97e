// Package channelpass собирает основное HTTP-приложение: хранилище,
// кэш, брокер уведомлений и все сервисы платёжного цикла.
package channelpass

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/nzuev/channel-pass/internal/cache"
	"github.com/nzuev/channel-pass/internal/config"
	"github.com/nzuev/channel-pass/internal/lib/jwt"
	"github.com/nzuev/channel-pass/internal/notify/amqpnotify"
	"github.com/nzuev/channel-pass/internal/probe/fileprobe"
	"github.com/nzuev/channel-pass/internal/provision/invite"
	"github.com/nzuev/channel-pass/internal/rabbitmq"
	accessservice "github.com/nzuev/channel-pass/internal/services/access"
	authservice "github.com/nzuev/channel-pass/internal/services/auth"
	ledgerservice "github.com/nzuev/channel-pass/internal/services/ledger"
	statsservice "github.com/nzuev/channel-pass/internal/services/stats"
	workflowservice "github.com/nzuev/channel-pass/internal/services/workflow"
	"github.com/nzuev/channel-pass/internal/storage"
	"github.com/nzuev/channel-pass/internal/storage/pgstore"
	"github.com/nzuev/channel-pass/internal/tariffs"
)

// App основное приложение с HTTP-сервером.
type App struct {
	srv    *http.Server
	logger *slog.Logger
	db     *pgstore.Storage
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New собирает приложение из конфигурации.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	store, db, err := storage.NewStore(cfg.Storage)
	if err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNoticeQueues())
	if err != nil {
		conn.Close()
		return nil, err
	}

	notifier := amqpnotify.New(ch)
	probe, err := fileprobe.New(cfg.ProbeDir)
	if err != nil {
		conn.Close()
		return nil, err
	}
	provisioner := invite.New(logger)

	catalog := tariffs.Default()
	ledger := ledgerservice.New(store, catalog, logger)
	access := accessservice.New(store, logger)
	workflow := workflowservice.New(
		ledger, access, catalog, notifier, provisioner, probe,
		cfg.Admin.AdminID, cfg.Requisites, logger,
	)
	stats := statsservice.New(store, catalog, cacheRedis, logger)

	maker := jwt.NewMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	auth := authservice.New(cfg.Admin, maker, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, catalog, workflow, access, stats, auth, maker)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		srv:    srv,
		logger: logger,
		db:     db,
		conn:   conn,
		ch:     ch,
	}, nil
}

// Run запускает HTTP-сервер и останавливает его при отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.srv.Addr))
		err := a.srv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.srv.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Error("failed to close channel", slog.Any("err", err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close connection", slog.Any("err", err))
		}
	}
	if a.db != nil {
		a.db.DB.Close()
	}
}
