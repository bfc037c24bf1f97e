package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/nzuev/channel-pass/internal/lib/sl"
)

// maxInflightDeliveries ограничивает число одновременно обрабатываемых
// сообщений одним потребителем.
const maxInflightDeliveries = 10

// ConsumerMessage создает потребителя сообщений из очереди RabbitMQ.
// Ошибка обработчика приводит к requeue сообщения.
func ConsumerMessage(ctx context.Context, ch *amqp.Channel, queueName string, log *slog.Logger, handler func([]byte) error) error {
	const op = "rabbitmq.ConsumerMessage"
	delivery, err := ch.Consume(
		queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	sem := make(chan struct{}, maxInflightDeliveries)
	go func() {
		for {
			select {
			case d, ok := <-delivery:
				if !ok {
					return
				}
				sem <- struct{}{}
				go func(d amqp.Delivery) {
					defer func() { <-sem }()
					if err := handler(d.Body); err != nil {
						if nackErr := d.Nack(false, true); nackErr != nil {
							log.Error("failed to nack message", slog.String("queue", queueName), sl.Err(nackErr))
						}
						return
					}
					if ackErr := d.Ack(false); ackErr != nil {
						log.Error("failed to ack message", slog.String("queue", queueName), sl.Err(ackErr))
					}
				}(d)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}
