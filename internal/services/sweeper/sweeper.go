// Package sweeper периодически отзывает истёкшие доступы и уведомляет
// затронутых пользователей. Запускается отдельным процессом и ходит
// в хранилище по той же дисциплине блокировок, что и обработчики запросов.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nzuev/channel-pass/internal/lib/sl"
)

var sweptGrants = promauto.NewCounter(prometheus.CounterOpts{
	Name: "channelpass_swept_grants_total",
	Help: "Количество доступов, отозванных по истечении срока.",
})

// Access операции менеджера доступа, нужные свиперу.
type Access interface {
	SweepExpired(ctx context.Context, now time.Time) ([]string, error)
}

// Notifier транспорт уведомлений пользователям.
type Notifier interface {
	NotifyUser(ctx context.Context, userID, subject, body string) error
}

// Service периодическая зачистка истёкших доступов.
type Service struct {
	access   Access
	notifier Notifier
	log      *slog.Logger
}

// New создает новый экземпляр Service.
func New(access Access, notifier Notifier, log *slog.Logger) *Service {
	return &Service{access: access, notifier: notifier, log: log}
}

// Run выполняет зачистку сразу и далее по тикеру до отмены контекста.
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

// RunOnce выполняет один проход зачистки. Вынесен отдельно для вызова
// из тестов и ручного запуска.
func (s *Service) RunOnce(ctx context.Context) {
	s.runOnce(ctx)
}

func (s *Service) runOnce(ctx context.Context) {
	s.log.Info("starting expired access sweep")
	revoked, err := s.access.SweepExpired(ctx, time.Now())
	if err != nil {
		s.log.Error("sweep failed", sl.Err(err))
		return
	}
	if len(revoked) == 0 {
		s.log.Info("no expired access found")
		return
	}

	sweptGrants.Add(float64(len(revoked)))
	s.log.Info("revoked expired access", slog.Int("count", len(revoked)))
	for _, userID := range revoked {
		err := s.notifier.NotifyUser(ctx, userID, "Срок доступа истёк",
			"Срок вашего доступа к закрытому каналу истёк. Выберите тариф, чтобы продлить подписку.")
		if err != nil {
			s.log.Error("failed to notify user about revocation", sl.Err(err), slog.String("user_id", userID))
		}
	}
}
