// Package sender доставляет уведомления из очередей получателям.
// Уведомления администратору уходят письмом на настроенный адрес;
// пользовательские уведомления передаются во внешний мессенджер через
// интерфейс Gateway — его реализация лежит за границей этого сервиса.
package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nzuev/channel-pass/internal/lib/sl"
	"github.com/nzuev/channel-pass/internal/lib/smtp"
	"github.com/nzuev/channel-pass/internal/models"
)

// Transport почтовый транспорт для писем администратору.
type Transport interface {
	Connect() (smtp.Client, error)
	GetSMTPUser() string
}

// Gateway внешний мессенджер для доставки уведомлений пользователям.
type Gateway interface {
	Deliver(ctx context.Context, userID, subject, body string) error
}

// Service воркер доставки уведомлений.
type Service struct {
	transport  Transport
	gateway    Gateway
	adminEmail string
	log        *slog.Logger
}

// New создает новый экземпляр Service.
func New(transport Transport, gateway Gateway, adminEmail string, log *slog.Logger) *Service {
	return &Service{
		transport:  transport,
		gateway:    gateway,
		adminEmail: adminEmail,
		log:        log,
	}
}

// HandleAdminNotice обрабатывает сообщение из очереди администратора.
func (s *Service) HandleAdminNotice(body []byte) error {
	var notice models.Notice
	if err := json.Unmarshal(body, &notice); err != nil {
		s.log.Error("failed to unmarshal admin notice", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	return s.sendEmail([]string{s.adminEmail}, notice.Subject, notice.Body)
}

// HandleUserNotice обрабатывает сообщение из пользовательской очереди.
func (s *Service) HandleUserNotice(body []byte) error {
	var notice models.Notice
	if err := json.Unmarshal(body, &notice); err != nil {
		s.log.Error("failed to unmarshal user notice", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	return s.gateway.Deliver(context.Background(), notice.UserID, notice.Subject, notice.Body)
}

func (s *Service) sendEmail(to []string, subject, bodyText string) error {
	msg := strings.Join([]string{
		"From: " + s.transport.GetSMTPUser(),
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Mail(s.transport.GetSMTPUser()); err != nil {
		s.log.Error("failed to set MAIL FROM", "from", s.transport.GetSMTPUser(), "error", sl.Err(err))
		return err
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", "recipient", addr, "error", sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get Data writer", sl.Err(err))
		return err
	}

	if _, err = wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}

	if err = wc.Close(); err != nil {
		s.log.Error("failed to close Data writer", sl.Err(err))
		return err
	}

	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	s.log.Info("email sent successfully", "to", to)
	return nil
}
