// Package auth проверяет учётные данные администратора и выпускает
// JWT для привилегированных запросов. Других учётных записей в системе
// нет: пользователи канала взаимодействуют через внешний мессенджер
// и в HTTP API не аутентифицируются.
package auth

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/nzuev/channel-pass/internal/config"
	"github.com/nzuev/channel-pass/internal/lib/jwt"
	"github.com/nzuev/channel-pass/internal/lib/password"
)

// ErrInvalidCredentials возвращается при неверном логине или пароле.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Service сервис аутентификации администратора.
type Service struct {
	admin config.Admin
	maker *jwt.Maker
	log   *slog.Logger
}

// New создает новый экземпляр Service.
func New(admin config.Admin, maker *jwt.Maker, log *slog.Logger) *Service {
	return &Service{admin: admin, maker: maker, log: log}
}

// Login сверяет логин и пароль с настройками и возвращает подписанный токен.
func (s *Service) Login(username, pass string) (string, error) {
	const op = "auth.Login"

	if username != s.admin.AdminID {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}
	if err := password.CompareHash(s.admin.PasswordHash, pass); err != nil {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	token, err := s.maker.GenerateToken(s.admin.AdminID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("administrator logged in")
	return token, nil
}
