// Package loggateway реализует заглушку мессенджера: уведомления
// пользователям пишутся в лог. Реальная интеграция с ботом подключается
// заменой этой реализации в воркере доставки.
package loggateway

import (
	"context"
	"log/slog"
)

// Gateway пишет пользовательские уведомления в лог.
type Gateway struct {
	log *slog.Logger
}

// New создает новый экземпляр Gateway.
func New(log *slog.Logger) *Gateway {
	return &Gateway{log: log}
}

// Deliver логирует уведомление вместо доставки.
func (g *Gateway) Deliver(_ context.Context, userID, subject, body string) error {
	g.log.Info("user notice",
		slog.String("user_id", userID),
		slog.String("subject", subject),
		slog.String("body", body))
	return nil
}
