// Package workflow связывает журнал платежей и менеджер доступа в сценарий
// «запрос пользователя → решение администратора → уведомление об итоге».
// Все изменения состояния фиксируются в хранилище до отправки уведомлений:
// сбой доставки никогда не откатывает уже принятое решение.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nzuev/channel-pass/internal/config"
	"github.com/nzuev/channel-pass/internal/lib/sl"
	"github.com/nzuev/channel-pass/internal/models"
	"github.com/nzuev/channel-pass/internal/services/ledger"
	"github.com/nzuev/channel-pass/internal/tariffs"
)

// ErrForbidden возвращается, когда привилегированное действие вызывает
// не администратор. Решение при этом не применяется.
var ErrForbidden = errors.New("forbidden")

var paymentsFinalized = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "channelpass_payments_finalized_total",
	Help: "Количество платежей, доведённых до терминального статуса.",
}, []string{"status"})

// Ledger операции журнала платежей, нужные сценарию.
type Ledger interface {
	CreatePending(ctx context.Context, userID, tariffID string) (*models.PaymentRecord, error)
	Get(ctx context.Context, txID string) (*models.PaymentRecord, error)
	Finalize(ctx context.Context, txID string, status models.PaymentStatus) (*models.PaymentRecord, error)
}

// Access операции менеджера доступа, нужные сценарию.
type Access interface {
	Grant(ctx context.Context, userID string, tariff models.Tariff, now time.Time) (*models.UserAccess, error)
	Revoke(ctx context.Context, userID string) (*models.UserAccess, error)
}

// Notifier внешний транспорт уведомлений. Доставка best-effort:
// ошибки логируются и не влияют на результат операции.
type Notifier interface {
	NotifyUser(ctx context.Context, userID, subject, body string) error
	NotifyAdmin(ctx context.Context, subject, body string) error
}

// AccessProvisioner внешний механизм фактического включения доступа
// (например, выпуск ссылки-приглашения). Вызывается ровно один раз
// на успешную выдачу.
type AccessProvisioner interface {
	Provision(ctx context.Context, userID string) (string, error)
}

// VerificationProbe автоматическая проверка поступления платежа.
// Реальная интеграция с платёжным шлюзом подключается заменой реализации.
type VerificationProbe interface {
	Check(ctx context.Context, txID string) (bool, error)
}

// Service сценарий подтверждения платежей.
type Service struct {
	ledger      Ledger
	access      Access
	catalog     *tariffs.Catalog
	notifier    Notifier
	provisioner AccessProvisioner
	probe       VerificationProbe
	adminID     string
	requisites  config.Requisites
	log         *slog.Logger
	now         func() time.Time
}

// New создает новый экземпляр Service.
func New(
	ledger Ledger,
	access Access,
	catalog *tariffs.Catalog,
	notifier Notifier,
	provisioner AccessProvisioner,
	probe VerificationProbe,
	adminID string,
	requisites config.Requisites,
	log *slog.Logger,
) *Service {
	return &Service{
		ledger:      ledger,
		access:      access,
		catalog:     catalog,
		notifier:    notifier,
		provisioner: provisioner,
		probe:       probe,
		adminID:     adminID,
		requisites:  requisites,
		log:         log,
		now:         time.Now,
	}
}

// SelectTariff создаёт ожидающий платёж и отправляет пользователю
// платёжную инструкцию с кодом транзакции.
func (s *Service) SelectTariff(ctx context.Context, userID, tariffID string) (*models.PaymentRecord, error) {
	const op = "workflow.SelectTariff"

	rec, err := s.ledger.CreatePending(ctx, userID, tariffID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	tariff, err := s.catalog.Get(rec.TariffID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	body := fmt.Sprintf(
		"Выбран тариф: %s\nСтоимость: %d ₽\n%s\n\n"+
			"Переведите сумму на карту %s (%s).\n"+
			"В комментарии к платежу обязательно укажите код: %s",
		tariff.Name, rec.Amount, tariff.Description,
		s.requisites.Card, s.requisites.Holder, rec.ID,
	)
	s.notifyUser(ctx, userID, "Инструкция по оплате", body)
	return rec, nil
}

// ClaimPaid обрабатывает сигнал пользователя «я оплатил». Сначала
// запускается автоматическая проверка; при положительном результате
// платёж подтверждается сразу, минуя администратора. Иначе запись
// уходит на ручную проверку: администратор получает запрос с кодом
// транзакции и кнопками решения.
//
// Возвращает true, если платёж подтверждён автоматически.
func (s *Service) ClaimPaid(ctx context.Context, userID, txID string) (bool, error) {
	const op = "workflow.ClaimPaid"

	rec, err := s.ledger.Get(ctx, txID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if rec.UserID != userID {
		return false, fmt.Errorf("%s: %w", op, ErrForbidden)
	}
	if rec.Status != models.PaymentPending {
		return false, fmt.Errorf("%s: %w", op, ledger.ErrAlreadyFinalized)
	}

	paid, err := s.probe.Check(ctx, txID)
	if err != nil {
		s.log.Warn("verification probe failed, falling back to manual review", sl.Err(err))
		paid = false
	}
	if paid {
		if err := s.ConfirmVerified(ctx, txID); err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}
		return true, nil
	}

	tariff, _ := s.catalog.Get(rec.TariffID)
	s.notifyUser(ctx, userID, "Платёж на проверке",
		fmt.Sprintf("Спасибо! Мы проверяем ваш платёж на сумму %d ₽. Обычно это занимает до 5 минут.", rec.Amount))
	s.notifyAdmin(ctx, "Запрос на проверку платежа",
		fmt.Sprintf("От: %s\nТариф: %s\nСумма: %d ₽\nКод транзакции: %s\n\nПроверьте поступление средств и подтвердите или отклоните платёж.",
			userID, tariff.Name, rec.Amount, rec.ID))
	return false, nil
}

// Cancel отменяет ожидание оплаты по инициативе пользователя.
// Запись в журнале не меняется: отмена до решения не является решением.
func (s *Service) Cancel(ctx context.Context, userID, txID string) error {
	const op = "workflow.Cancel"

	rec, err := s.ledger.Get(ctx, txID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rec.UserID != userID {
		return fmt.Errorf("%s: %w", op, ErrForbidden)
	}
	if rec.Status != models.PaymentPending {
		return fmt.Errorf("%s: %w", op, ledger.ErrAlreadyFinalized)
	}

	s.notifyUser(ctx, userID, "Оплата отменена", "Оплата отменена. Выберите тариф заново, когда будете готовы.")
	return nil
}

// Decide применяет решение администратора по платежу. Любой другой
// вызывающий получает ErrForbidden без какого-либо эффекта.
func (s *Service) Decide(ctx context.Context, callerID, txID string, approve bool) (*models.PaymentRecord, error) {
	const op = "workflow.Decide"

	if err := s.requireAdministrator(callerID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if approve {
		rec, err := s.confirm(ctx, txID, "администратором")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return rec, nil
	}

	rec, err := s.ledger.Finalize(ctx, txID, models.PaymentRejected)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	paymentsFinalized.WithLabelValues(string(models.PaymentRejected)).Inc()

	s.notifyUser(ctx, rec.UserID, "Платёж не подтверждён",
		"К сожалению, ваш платёж не был подтверждён. Проверьте сумму перевода и код транзакции в комментарии либо свяжитесь с администратором.")
	return rec, nil
}

// ConfirmVerified подтверждает платёж по положительному результату
// автоматической проверки. Проходит через ту же точку фиксации, что и
// решение администратора, поэтому гонка «проба против администратора»
// разрешается в пользу первого успевшего.
func (s *Service) ConfirmVerified(ctx context.Context, txID string) error {
	const op = "workflow.ConfirmVerified"
	if _, err := s.confirm(ctx, txID, "автоматически"); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GrantDirect выдаёт доступ пользователю напрямую, вне связи с платежом.
func (s *Service) GrantDirect(ctx context.Context, callerID, userID, tariffID string) (*models.UserAccess, error) {
	const op = "workflow.GrantDirect"

	if err := s.requireAdministrator(callerID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	tariff, err := s.catalog.Get(tariffID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ua, err := s.access.Grant(ctx, userID, tariff, s.now())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.notifyUser(ctx, userID, "Доступ открыт", "Администратор открыл вам доступ к закрытому каналу.")
	return ua, nil
}

// RevokeDirect снимает доступ пользователя напрямую.
func (s *Service) RevokeDirect(ctx context.Context, callerID, userID string) (*models.UserAccess, error) {
	const op = "workflow.RevokeDirect"

	if err := s.requireAdministrator(callerID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ua, err := s.access.Revoke(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.notifyUser(ctx, userID, "Доступ закрыт", "Администратор закрыл вам доступ к закрытому каналу.")
	return ua, nil
}

// confirm фиксирует подтверждение в журнале, выдаёт доступ и рассылает
// уведомления. Порядок жёсткий: сначала журнал, затем доступ, затем
// внешние вызовы — сбой провижининга или доставки не откатывает выдачу.
func (s *Service) confirm(ctx context.Context, txID, how string) (*models.PaymentRecord, error) {
	rec, err := s.ledger.Finalize(ctx, txID, models.PaymentConfirmed)
	if err != nil {
		return nil, err
	}
	paymentsFinalized.WithLabelValues(string(models.PaymentConfirmed)).Inc()

	tariff, err := s.catalog.Get(rec.TariffID)
	if err != nil {
		return nil, err
	}
	if _, err := s.access.Grant(ctx, rec.UserID, tariff, s.now()); err != nil {
		return nil, err
	}

	token, err := s.provisioner.Provision(ctx, rec.UserID)
	if err != nil {
		// Доступ уже выдан и записан; оператору нужно включить
		// пользователя вручную.
		s.log.Error("access provisioning failed", sl.Err(err), slog.String("user_id", rec.UserID))
		s.notifyAdmin(ctx, "Требуется ручное включение доступа",
			fmt.Sprintf("Платёж %s подтверждён, но выпустить приглашение не удалось. Добавьте пользователя %s вручную.", rec.ID, rec.UserID))
	} else {
		duration := "Навсегда"
		if tariff.DurationDays > 0 {
			duration = fmt.Sprintf("На %d дней", tariff.DurationDays)
		}
		s.notifyUser(ctx, rec.UserID, "Оплата подтверждена",
			fmt.Sprintf("Ваша оплата успешно подтверждена!\nТариф: %s\nДоступ: %s\nВаш ключ доступа: %s", tariff.Name, duration, token))
	}

	s.notifyAdmin(ctx, "Платёж подтверждён",
		fmt.Sprintf("Платёж подтверждён %s.\nОт: %s\nТариф: %s\nСумма: %d ₽\nКод транзакции: %s",
			how, rec.UserID, tariff.Name, rec.Amount, rec.ID))
	return rec, nil
}

// requireAdministrator единая проверка прав для всех привилегированных
// переходов.
func (s *Service) requireAdministrator(callerID string) error {
	if callerID == "" || callerID != s.adminID {
		return ErrForbidden
	}
	return nil
}

func (s *Service) notifyUser(ctx context.Context, userID, subject, body string) {
	if err := s.notifier.NotifyUser(ctx, userID, subject, body); err != nil {
		s.log.Warn("failed to notify user", sl.Err(err), slog.String("user_id", userID))
	}
}

func (s *Service) notifyAdmin(ctx context.Context, subject, body string) {
	if err := s.notifier.NotifyAdmin(ctx, subject, body); err != nil {
		s.log.Warn("failed to notify admin", sl.Err(err))
	}
}
