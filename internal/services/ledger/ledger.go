// Package ledger реализует журнал платежей поверх хранилища снимка:
// создание ожидающего платежа, чтение и единственный терминальный переход
// статуса. Запись сохраняется до того, как код транзакции уходит
// пользователю, поэтому платёж, который пользователь уже видел,
// не теряется при падении процесса.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/nzuev/channel-pass/internal/lib/txid"
	"github.com/nzuev/channel-pass/internal/models"
	"github.com/nzuev/channel-pass/internal/storage"
	"github.com/nzuev/channel-pass/internal/tariffs"
)

// ErrPaymentNotFound возвращается при обращении к неизвестному коду транзакции.
var ErrPaymentNotFound = errors.New("payment not found")

// ErrAlreadyFinalized возвращается при попытке перевести запись,
// которая уже покинула статус pending. Повторное применение того же
// терминального статуса тоже считается ошибкой: дубликат колбэка
// должен всплыть, а не пройти незамеченным.
var ErrAlreadyFinalized = errors.New("payment already finalized")

// Service журнал платежей.
type Service struct {
	store   storage.Store
	catalog *tariffs.Catalog
	log     *slog.Logger
	now     func() time.Time
}

// New создает новый экземпляр Service.
func New(store storage.Store, catalog *tariffs.Catalog, log *slog.Logger) *Service {
	return &Service{
		store:   store,
		catalog: catalog,
		log:     log,
		now:     time.Now,
	}
}

// CreatePending создаёт ожидающий платёж для пользователя по выбранному
// тарифу. Цена копируется из каталога в момент создания. Возвращает
// tariffs.ErrUnknownTariff до какой-либо записи в хранилище.
func (s *Service) CreatePending(ctx context.Context, userID, tariffID string) (*models.PaymentRecord, error) {
	const op = "ledger.CreatePending"

	tariff, err := s.catalog.Get(tariffID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now().UTC()
	rec := &models.PaymentRecord{
		UserID:    userID,
		TariffID:  tariff.ID,
		Amount:    tariff.Price,
		Status:    models.PaymentPending,
		CreatedAt: now,
	}

	err = s.store.Update(ctx, func(snapshot *models.Snapshot) error {
		// Коллизия кода с живой записью крайне маловероятна, но дешево
		// проверяется, пока снимок уже под блокировкой.
		for nonce := 0; ; nonce++ {
			id := txid.New(userID, now, nonce)
			if _, exists := snapshot.Payments[id]; !exists {
				rec.ID = id
				break
			}
		}
		snapshot.Payments[rec.ID] = rec.Clone()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("created pending payment",
		slog.String("tx_id", rec.ID),
		slog.String("user_id", userID),
		slog.String("tariff_id", tariff.ID))
	return rec, nil
}

// Get возвращает платёжную запись по коду транзакции.
func (s *Service) Get(ctx context.Context, txID string) (*models.PaymentRecord, error) {
	const op = "ledger.Get"

	var rec *models.PaymentRecord
	err := s.store.View(ctx, func(snapshot *models.Snapshot) error {
		found, ok := snapshot.Payments[txID]
		if !ok {
			return ErrPaymentNotFound
		}
		rec = found.Clone()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rec, nil
}

// ListPending возвращает все ожидающие платежи, отсортированные по
// времени создания. Используется воркером автоматической проверки.
func (s *Service) ListPending(ctx context.Context) ([]*models.PaymentRecord, error) {
	const op = "ledger.ListPending"

	var out []*models.PaymentRecord
	err := s.store.View(ctx, func(snapshot *models.Snapshot) error {
		for _, rec := range snapshot.Payments {
			if rec.Status == models.PaymentPending {
				out = append(out, rec.Clone())
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Finalize переводит запись из pending в терминальный статус confirmed
// либо rejected. Это единственная точка фиксации решения: проверка
// статуса и запись происходят в одной критической секции, поэтому при
// гонке двух решений выигрывает первое, а второе получает
// ErrAlreadyFinalized.
func (s *Service) Finalize(ctx context.Context, txID string, status models.PaymentStatus) (*models.PaymentRecord, error) {
	const op = "ledger.Finalize"

	if status != models.PaymentConfirmed && status != models.PaymentRejected {
		return nil, fmt.Errorf("%s: invalid target status %q", op, status)
	}

	var rec *models.PaymentRecord
	err := s.store.Update(ctx, func(snapshot *models.Snapshot) error {
		found, ok := snapshot.Payments[txID]
		if !ok {
			return ErrPaymentNotFound
		}
		if found.Status != models.PaymentPending {
			return ErrAlreadyFinalized
		}
		found.Status = status
		rec = found.Clone()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("payment finalized",
		slog.String("tx_id", txID),
		slog.String("status", string(status)))
	return rec, nil
}
