// Package access управляет состоянием доступа пользователей: выдача
// по подтверждённому платежу, отзыв и периодическая зачистка истёкших
// доступов.
package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/nzuev/channel-pass/internal/models"
	"github.com/nzuev/channel-pass/internal/storage"
)

// ErrUnknownUser возвращается при действии над пользователем без записи.
var ErrUnknownUser = errors.New("unknown user")

// Manager менеджер доступа.
type Manager struct {
	store storage.Store
	log   *slog.Logger
}

// New создает новый экземпляр Manager.
func New(store storage.Store, log *slog.Logger) *Manager {
	return &Manager{store: store, log: log}
}

// Grant выдаёт пользователю доступ по тарифу. Срок действия считается
// от now: now + DurationDays суток, либо бессрочно при DurationDays == 0.
// Последняя успешная оплата всегда побеждает: предыдущий срок
// перезаписывается, а не суммируется.
func (m *Manager) Grant(ctx context.Context, userID string, tariff models.Tariff, now time.Time) (*models.UserAccess, error) {
	const op = "access.Grant"

	ua := &models.UserAccess{
		UserID:    userID,
		HasAccess: true,
		TariffID:  tariff.ID,
	}
	if tariff.DurationDays > 0 {
		expiry := now.Add(time.Duration(tariff.DurationDays) * 24 * time.Hour)
		ua.AccessExpiry = &expiry
	}

	err := m.store.Update(ctx, func(snapshot *models.Snapshot) error {
		snapshot.Users[userID] = ua.Clone()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	m.log.Info("access granted",
		slog.String("user_id", userID),
		slog.String("tariff_id", tariff.ID),
		slog.Any("expiry", ua.AccessExpiry))
	return ua, nil
}

// Revoke снимает доступ, оставляя тариф и срок как исторический след.
func (m *Manager) Revoke(ctx context.Context, userID string) (*models.UserAccess, error) {
	const op = "access.Revoke"

	var ua *models.UserAccess
	err := m.store.Update(ctx, func(snapshot *models.Snapshot) error {
		found, ok := snapshot.Users[userID]
		if !ok {
			return ErrUnknownUser
		}
		found.HasAccess = false
		ua = found.Clone()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	m.log.Info("access revoked", slog.String("user_id", userID))
	return ua, nil
}

// Get возвращает состояние доступа пользователя.
func (m *Manager) Get(ctx context.Context, userID string) (*models.UserAccess, error) {
	const op = "access.Get"

	var ua *models.UserAccess
	err := m.store.View(ctx, func(snapshot *models.Snapshot) error {
		found, ok := snapshot.Users[userID]
		if !ok {
			return ErrUnknownUser
		}
		ua = found.Clone()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ua, nil
}

// SweepExpired снимает доступ у всех пользователей, чей срок строго
// раньше now. Бессрочные доступы (expiry == nil) не затрагиваются.
// Вся пачка сохраняется одной записью. Возвращает отсортированный
// список затронутых пользователей для последующих уведомлений.
func (m *Manager) SweepExpired(ctx context.Context, now time.Time) ([]string, error) {
	const op = "access.SweepExpired"

	var revoked []string
	err := m.store.Update(ctx, func(snapshot *models.Snapshot) error {
		for userID, ua := range snapshot.Users {
			if !ua.HasAccess || ua.AccessExpiry == nil {
				continue
			}
			if ua.AccessExpiry.Before(now) {
				ua.HasAccess = false
				revoked = append(revoked, userID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sort.Strings(revoked)
	if len(revoked) > 0 {
		m.log.Info("expired access revoked", slog.Int("count", len(revoked)))
	}
	return revoked, nil
}
