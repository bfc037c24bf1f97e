// Package noticesender собирает воркер доставки уведомлений из очередей.
package noticesender

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/nzuev/channel-pass/internal/config"
	"github.com/nzuev/channel-pass/internal/lib/smtp"
	"github.com/nzuev/channel-pass/internal/notify/loggateway"
	"github.com/nzuev/channel-pass/internal/rabbitmq"
	senderservice "github.com/nzuev/channel-pass/internal/services/sender"
)

// App представляет приложение воркера доставки уведомлений.
type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	senderService *senderservice.Service
	logger        *slog.Logger
}

// New создает новый экземпляр приложения воркера доставки.
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

	transport := smtp.NewTransport(cfg.SMTP, logger)
	gateway := loggateway.New(logger)
	senderService := senderservice.New(transport, gateway, cfg.Admin.AdminEmail, logger)

	return &App{
		conn:          conn,
		ch:            ch,
		senderService: senderService,
		logger:        logger,
	}, nil
}

// Run запускает потребителей очередей и ждёт отмены контекста.
func (a *App) Run(ctx context.Context) error {
	err := rabbitmq.ConsumerMessage(ctx, a.ch, rabbitmq.UserQueue, a.logger, a.senderService.HandleUserNotice)
	if err != nil {
		a.logger.Error("failed to start user notice consumer", slog.Any("err", err))
		return err
	}

	err = rabbitmq.ConsumerMessage(ctx, a.ch, rabbitmq.AdminQueue, a.logger, a.senderService.HandleAdminNotice)
	if err != nil {
		a.logger.Error("failed to start admin notice consumer", slog.Any("err", err))
		return err
	}

	<-ctx.Done()
	a.logger.Info("notice sender shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", slog.Any("err", err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", slog.Any("err", err))
	}
	return nil
}
