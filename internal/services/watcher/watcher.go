// Package watcher периодически прогоняет автоматическую проверку по всем
// ожидающим платежам. Положительный результат подтверждает платёж через
// ту же точку фиксации, что и решение администратора, поэтому дубль
// решения невозможен.
package watcher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nzuev/channel-pass/internal/lib/sl"
	"github.com/nzuev/channel-pass/internal/models"
	"github.com/nzuev/channel-pass/internal/services/ledger"
)

// Ledger операции журнала платежей, нужные воркеру.
type Ledger interface {
	ListPending(ctx context.Context) ([]*models.PaymentRecord, error)
}

// Workflow подтверждение платежа по результату проверки.
type Workflow interface {
	ConfirmVerified(ctx context.Context, txID string) error
}

// Probe автоматическая проверка поступления платежа.
type Probe interface {
	Check(ctx context.Context, txID string) (bool, error)
}

// Service воркер автоматической проверки платежей.
type Service struct {
	ledger   Ledger
	workflow Workflow
	probe    Probe
	log      *slog.Logger
}

// New создает новый экземпляр Service.
func New(l Ledger, wf Workflow, probe Probe, log *slog.Logger) *Service {
	return &Service{ledger: l, workflow: wf, probe: probe, log: log}
}

// Run выполняет проверку сразу и далее по тикеру до отмены контекста.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	s.runOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce выполняет один проход проверки.
func (s *Service) RunOnce(ctx context.Context) {
	s.runOnce(ctx)
}

func (s *Service) runOnce(ctx context.Context) {
	s.log.Info("starting pending payments check")
	pending, err := s.ledger.ListPending(ctx)
	if err != nil {
		s.log.Error("failed to list pending payments", sl.Err(err))
		return
	}
	if len(pending) == 0 {
		s.log.Info("no pending payments found")
		return
	}

	for _, rec := range pending {
		paid, err := s.probe.Check(ctx, rec.ID)
		if err != nil {
			s.log.Error("probe check failed", sl.Err(err), slog.String("tx_id", rec.ID))
			continue
		}
		if !paid {
			continue
		}
		if err := s.workflow.ConfirmVerified(ctx, rec.ID); err != nil {
			// Запись могли подтвердить или отклонить, пока шла проверка.
			if errors.Is(err, ledger.ErrAlreadyFinalized) {
				s.log.Info("payment finalized concurrently", slog.String("tx_id", rec.ID))
				continue
			}
			s.log.Error("failed to confirm verified payment", sl.Err(err), slog.String("tx_id", rec.ID))
		}
	}
}
