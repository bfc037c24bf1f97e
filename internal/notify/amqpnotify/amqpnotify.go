// Package amqpnotify реализует транспорт уведомлений поверх RabbitMQ:
// сообщения публикуются в обменник уведомлений и доставляются отдельным
// воркером. Публикация происходит уже после фиксации состояния в
// хранилище, поэтому сбой брокера не влияет на принятые решения.
package amqpnotify

import (
	"context"
	"fmt"

	"github.com/streadway/amqp"

	"github.com/nzuev/channel-pass/internal/models"
	"github.com/nzuev/channel-pass/internal/rabbitmq"
)

// Notifier публикует уведомления в RabbitMQ.
type Notifier struct {
	channel *amqp.Channel
}

// New создает новый экземпляр Notifier.
func New(channel *amqp.Channel) *Notifier {
	return &Notifier{channel: channel}
}

// NotifyUser ставит уведомление пользователю в очередь доставки.
func (n *Notifier) NotifyUser(_ context.Context, userID, subject, body string) error {
	const op = "amqpnotify.NotifyUser"
	notice := models.Notice{UserID: userID, Subject: subject, Body: body}
	if err := rabbitmq.PublishMessage(n.channel, rabbitmq.NoticesExchange, rabbitmq.UserRoutingKey, notice); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// NotifyAdmin ставит уведомление администратору в очередь доставки.
func (n *Notifier) NotifyAdmin(_ context.Context, subject, body string) error {
	const op = "amqpnotify.NotifyAdmin"
	notice := models.Notice{Subject: subject, Body: body}
	if err := rabbitmq.PublishMessage(n.channel, rabbitmq.NoticesExchange, rabbitmq.AdminRoutingKey, notice); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
