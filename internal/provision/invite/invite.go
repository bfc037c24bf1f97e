// Package invite реализует заглушку провижининга доступа: вместо выпуска
// ссылки-приглашения во внешней платформе выдаётся одноразовый токен.
// Механика приглашений самой платформы остаётся за границей системы.
package invite

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Provisioner выпускает токены доступа.
type Provisioner struct {
	log *slog.Logger
}

// New создает новый экземпляр Provisioner.
func New(log *slog.Logger) *Provisioner {
	return &Provisioner{log: log}
}

// Provision выпускает токен доступа для пользователя.
func (p *Provisioner) Provision(_ context.Context, userID string) (string, error) {
	token := uuid.New().String()
	p.log.Info("access token issued", slog.String("user_id", userID))
	return token, nil
}
