package workflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nzuev/channel-pass/internal/config"
	"github.com/nzuev/channel-pass/internal/models"
	"github.com/nzuev/channel-pass/internal/services/ledger"
	"github.com/nzuev/channel-pass/internal/tariffs"
)

type LedgerMock struct{ mock.Mock }

func (m *LedgerMock) CreatePending(ctx context.Context, userID, tariffID string) (*models.PaymentRecord, error) {
	args := m.Called(ctx, userID, tariffID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaymentRecord), args.Error(1)
}
func (m *LedgerMock) Get(ctx context.Context, txID string) (*models.PaymentRecord, error) {
	args := m.Called(ctx, txID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaymentRecord), args.Error(1)
}
func (m *LedgerMock) Finalize(ctx context.Context, txID string, status models.PaymentStatus) (*models.PaymentRecord, error) {
	args := m.Called(ctx, txID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaymentRecord), args.Error(1)
}

type AccessMock struct{ mock.Mock }

func (m *AccessMock) Grant(ctx context.Context, userID string, tariff models.Tariff, now time.Time) (*models.UserAccess, error) {
	args := m.Called(ctx, userID, tariff, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserAccess), args.Error(1)
}
func (m *AccessMock) Revoke(ctx context.Context, userID string) (*models.UserAccess, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserAccess), args.Error(1)
}

type NotifierMock struct{ mock.Mock }

func (m *NotifierMock) NotifyUser(ctx context.Context, userID, subject, body string) error {
	return m.Called(ctx, userID, subject, body).Error(0)
}
func (m *NotifierMock) NotifyAdmin(ctx context.Context, subject, body string) error {
	return m.Called(ctx, subject, body).Error(0)
}

type ProvisionerMock struct{ mock.Mock }

func (m *ProvisionerMock) Provision(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

type ProbeMock struct{ mock.Mock }

func (m *ProbeMock) Check(ctx context.Context, txID string) (bool, error) {
	args := m.Called(ctx, txID)
	return args.Bool(0), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

type testEnv struct {
	svc         *Service
	ledger      *LedgerMock
	access      *AccessMock
	notifier    *NotifierMock
	provisioner *ProvisionerMock
	probe       *ProbeMock
}

func newTestEnv() *testEnv {
	env := &testEnv{
		ledger:      &LedgerMock{},
		access:      &AccessMock{},
		notifier:    &NotifierMock{},
		provisioner: &ProvisionerMock{},
		probe:       &ProbeMock{},
	}
	env.svc = New(
		env.ledger, env.access, tariffs.Default(),
		env.notifier, env.provisioner, env.probe,
		"admin", config.Requisites{Card: "2200 0000 0000 0000", Holder: "Иван И."},
		newNoopLogger(),
	)
	env.svc.now = func() time.Time {
		return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	}
	return env
}

func pendingRecord(txID, userID, tariffID string, amount int) *models.PaymentRecord {
	return &models.PaymentRecord{
		ID:        txID,
		UserID:    userID,
		TariffID:  tariffID,
		Amount:    amount,
		Status:    models.PaymentPending,
		CreatedAt: time.Date(2025, 3, 1, 11, 0, 0, 0, time.UTC),
	}
}

func confirmedRecord(txID, userID, tariffID string, amount int) *models.PaymentRecord {
	rec := pendingRecord(txID, userID, tariffID, amount)
	rec.Status = models.PaymentConfirmed
	return rec
}

func TestSelectTariff_SendsInstruction(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	rec := pendingRecord("TXAAAA1111", "user-1", "month_1", 500)

	env.ledger.On("CreatePending", mock.Anything, "user-1", "month_1").Return(rec, nil).Once()
	env.notifier.On("NotifyUser", mock.Anything, "user-1", "Инструкция по оплате",
		mock.MatchedBy(func(body string) bool {
			return containsAll(body, "TXAAAA1111", "500", "2200 0000 0000 0000")
		})).Return(nil).Once()

	got, err := env.svc.SelectTariff(ctx, "user-1", "month_1")
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	env.ledger.AssertExpectations(t)
	env.notifier.AssertExpectations(t)
}

func TestSelectTariff_UnknownTariff(t *testing.T) {
	env := newTestEnv()

	env.ledger.On("CreatePending", mock.Anything, "user-1", "year_10").
		Return(nil, tariffs.ErrUnknownTariff).Once()

	_, err := env.svc.SelectTariff(context.Background(), "user-1", "year_10")
	require.ErrorIs(t, err, tariffs.ErrUnknownTariff)
	env.notifier.AssertNotCalled(t, "NotifyUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestClaimPaid_AutoConfirmed(t *testing.T) {
	// положительная проба подтверждает платёж без администратора
	env := newTestEnv()
	ctx := context.Background()

	env.ledger.On("Get", mock.Anything, "TXAAAA1111").
		Return(pendingRecord("TXAAAA1111", "user-1", "month_1", 500), nil).Once()
	env.probe.On("Check", mock.Anything, "TXAAAA1111").Return(true, nil).Once()
	env.ledger.On("Finalize", mock.Anything, "TXAAAA1111", models.PaymentConfirmed).
		Return(confirmedRecord("TXAAAA1111", "user-1", "month_1", 500), nil).Once()
	env.access.On("Grant", mock.Anything, "user-1", mock.Anything, env.svc.now()).
		Return(&models.UserAccess{UserID: "user-1", HasAccess: true}, nil).Once()
	env.provisioner.On("Provision", mock.Anything, "user-1").Return("invite-token", nil).Once()
	env.notifier.On("NotifyUser", mock.Anything, "user-1", "Оплата подтверждена", mock.Anything).Return(nil).Once()
	env.notifier.On("NotifyAdmin", mock.Anything, "Платёж подтверждён", mock.Anything).Return(nil).Once()

	confirmed, err := env.svc.ClaimPaid(ctx, "user-1", "TXAAAA1111")
	require.NoError(t, err)
	assert.True(t, confirmed)

	env.ledger.AssertExpectations(t)
	env.access.AssertExpectations(t)
	env.provisioner.AssertExpectations(t)
}

func TestClaimPaid_ManualReview(t *testing.T) {
	// отрицательная проба уводит платёж на ручную проверку
	env := newTestEnv()
	ctx := context.Background()

	env.ledger.On("Get", mock.Anything, "TXAAAA1111").
		Return(pendingRecord("TXAAAA1111", "user-1", "month_1", 500), nil).Once()
	env.probe.On("Check", mock.Anything, "TXAAAA1111").Return(false, nil).Once()
	env.notifier.On("NotifyUser", mock.Anything, "user-1", "Платёж на проверке", mock.Anything).Return(nil).Once()
	env.notifier.On("NotifyAdmin", mock.Anything, "Запрос на проверку платежа",
		mock.MatchedBy(func(body string) bool {
			return containsAll(body, "user-1", "TXAAAA1111")
		})).Return(nil).Once()

	confirmed, err := env.svc.ClaimPaid(ctx, "user-1", "TXAAAA1111")
	require.NoError(t, err)
	assert.False(t, confirmed)

	env.ledger.AssertNotCalled(t, "Finalize", mock.Anything, mock.Anything, mock.Anything)
	env.notifier.AssertExpectations(t)
}

func TestClaimPaid_ProbeFailureFallsBackToManual(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.ledger.On("Get", mock.Anything, "TXAAAA1111").
		Return(pendingRecord("TXAAAA1111", "user-1", "month_1", 500), nil).Once()
	env.probe.On("Check", mock.Anything, "TXAAAA1111").Return(false, errors.New("probe unavailable")).Once()
	env.notifier.On("NotifyUser", mock.Anything, "user-1", "Платёж на проверке", mock.Anything).Return(nil).Once()
	env.notifier.On("NotifyAdmin", mock.Anything, "Запрос на проверку платежа", mock.Anything).Return(nil).Once()

	confirmed, err := env.svc.ClaimPaid(ctx, "user-1", "TXAAAA1111")
	require.NoError(t, err)
	assert.False(t, confirmed)
}

func TestClaimPaid_ForeignTransaction(t *testing.T) {
	env := newTestEnv()

	env.ledger.On("Get", mock.Anything, "TXAAAA1111").
		Return(pendingRecord("TXAAAA1111", "user-1", "month_1", 500), nil).Once()

	_, err := env.svc.ClaimPaid(context.Background(), "intruder", "TXAAAA1111")
	require.ErrorIs(t, err, ErrForbidden)
	env.probe.AssertNotCalled(t, "Check", mock.Anything, mock.Anything)
}

func TestClaimPaid_AlreadyFinalized(t *testing.T) {
	env := newTestEnv()

	env.ledger.On("Get", mock.Anything, "TXAAAA1111").
		Return(confirmedRecord("TXAAAA1111", "user-1", "month_1", 500), nil).Once()

	_, err := env.svc.ClaimPaid(context.Background(), "user-1", "TXAAAA1111")
	require.ErrorIs(t, err, ledger.ErrAlreadyFinalized)
}

func TestCancel(t *testing.T) {
	env := newTestEnv()

	env.ledger.On("Get", mock.Anything, "TXAAAA1111").
		Return(pendingRecord("TXAAAA1111", "user-1", "month_1", 500), nil).Once()
	env.notifier.On("NotifyUser", mock.Anything, "user-1", "Оплата отменена", mock.Anything).Return(nil).Once()

	err := env.svc.Cancel(context.Background(), "user-1", "TXAAAA1111")
	require.NoError(t, err)

	// отмена не трогает журнал
	env.ledger.AssertNotCalled(t, "Finalize", mock.Anything, mock.Anything, mock.Anything)
}

func TestDecide_Confirm_GrantsAccessAndNotifies(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	now := env.svc.now()

	env.ledger.On("Finalize", mock.Anything, "TXAAAA1111", models.PaymentConfirmed).
		Return(confirmedRecord("TXAAAA1111", "user-1", "month_1", 500), nil).Once()
	env.access.On("Grant", mock.Anything, "user-1", mock.MatchedBy(func(tf models.Tariff) bool {
		return tf.ID == "month_1" && tf.DurationDays == 30
	}), now).Return(&models.UserAccess{UserID: "user-1", HasAccess: true}, nil).Once()
	env.provisioner.On("Provision", mock.Anything, "user-1").Return("invite-token", nil).Once()
	env.notifier.On("NotifyUser", mock.Anything, "user-1", "Оплата подтверждена",
		mock.MatchedBy(func(body string) bool {
			return containsAll(body, "invite-token", "На 30 дней")
		})).Return(nil).Once()
	env.notifier.On("NotifyAdmin", mock.Anything, "Платёж подтверждён", mock.Anything).Return(nil).Once()

	rec, err := env.svc.Decide(ctx, "admin", "TXAAAA1111", true)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentConfirmed, rec.Status)

	env.access.AssertExpectations(t)
	env.notifier.AssertExpectations(t)
}

func TestDecide_Confirm_LifetimeTariff(t *testing.T) {
	env := newTestEnv()

	env.ledger.On("Finalize", mock.Anything, "TXBBBB2222", models.PaymentConfirmed).
		Return(confirmedRecord("TXBBBB2222", "user-1", "lifetime", 5000), nil).Once()
	env.access.On("Grant", mock.Anything, "user-1", mock.MatchedBy(func(tf models.Tariff) bool {
		return tf.ID == "lifetime" && tf.DurationDays == 0
	}), mock.Anything).Return(&models.UserAccess{UserID: "user-1", HasAccess: true}, nil).Once()
	env.provisioner.On("Provision", mock.Anything, "user-1").Return("invite-token", nil).Once()
	env.notifier.On("NotifyUser", mock.Anything, "user-1", "Оплата подтверждена",
		mock.MatchedBy(func(body string) bool {
			return containsAll(body, "Навсегда")
		})).Return(nil).Once()
	env.notifier.On("NotifyAdmin", mock.Anything, "Платёж подтверждён", mock.Anything).Return(nil).Once()

	_, err := env.svc.Decide(context.Background(), "admin", "TXBBBB2222", true)
	require.NoError(t, err)
}

func TestDecide_Reject_NoAccessGranted(t *testing.T) {
	env := newTestEnv()
	rejected := pendingRecord("TXAAAA1111", "user-1", "month_1", 500)
	rejected.Status = models.PaymentRejected

	env.ledger.On("Finalize", mock.Anything, "TXAAAA1111", models.PaymentRejected).
		Return(rejected, nil).Once()
	env.notifier.On("NotifyUser", mock.Anything, "user-1", "Платёж не подтверждён", mock.Anything).Return(nil).Once()

	rec, err := env.svc.Decide(context.Background(), "admin", "TXAAAA1111", false)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRejected, rec.Status)

	env.access.AssertNotCalled(t, "Grant", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	env.provisioner.AssertNotCalled(t, "Provision", mock.Anything, mock.Anything)
}

func TestDecide_NonAdministrator(t *testing.T) {
	tests := []struct {
		name     string
		callerID string
	}{
		{name: "обычный пользователь", callerID: "user-1"},
		{name: "пустой идентификатор", callerID: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()

			_, err := env.svc.Decide(context.Background(), tt.callerID, "TXAAAA1111", true)
			require.ErrorIs(t, err, ErrForbidden)
			env.ledger.AssertNotCalled(t, "Finalize", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestDecide_RaceSecondDecisionFails(t *testing.T) {
	env := newTestEnv()

	env.ledger.On("Finalize", mock.Anything, "TXAAAA1111", models.PaymentRejected).
		Return(nil, ledger.ErrAlreadyFinalized).Once()

	_, err := env.svc.Decide(context.Background(), "admin", "TXAAAA1111", false)
	require.ErrorIs(t, err, ledger.ErrAlreadyFinalized)
	env.notifier.AssertNotCalled(t, "NotifyUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestConfirm_ProvisionFailureKeepsGrant(t *testing.T) {
	// сбой провижининга не откатывает выдачу: администратору уходит
	// запрос на ручное включение
	env := newTestEnv()

	env.ledger.On("Finalize", mock.Anything, "TXAAAA1111", models.PaymentConfirmed).
		Return(confirmedRecord("TXAAAA1111", "user-1", "month_1", 500), nil).Once()
	env.access.On("Grant", mock.Anything, "user-1", mock.Anything, mock.Anything).
		Return(&models.UserAccess{UserID: "user-1", HasAccess: true}, nil).Once()
	env.provisioner.On("Provision", mock.Anything, "user-1").
		Return("", errors.New("invite service down")).Once()
	env.notifier.On("NotifyAdmin", mock.Anything, "Требуется ручное включение доступа",
		mock.MatchedBy(func(body string) bool {
			return containsAll(body, "TXAAAA1111", "user-1")
		})).Return(nil).Once()
	env.notifier.On("NotifyAdmin", mock.Anything, "Платёж подтверждён", mock.Anything).Return(nil).Once()

	rec, err := env.svc.Decide(context.Background(), "admin", "TXAAAA1111", true)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentConfirmed, rec.Status)

	env.notifier.AssertNotCalled(t, "NotifyUser", mock.Anything, mock.Anything, "Оплата подтверждена", mock.Anything)
	env.notifier.AssertExpectations(t)
}

func TestConfirm_NotificationFailureDoesNotFail(t *testing.T) {
	env := newTestEnv()

	env.ledger.On("Finalize", mock.Anything, "TXAAAA1111", models.PaymentConfirmed).
		Return(confirmedRecord("TXAAAA1111", "user-1", "month_1", 500), nil).Once()
	env.access.On("Grant", mock.Anything, "user-1", mock.Anything, mock.Anything).
		Return(&models.UserAccess{UserID: "user-1", HasAccess: true}, nil).Once()
	env.provisioner.On("Provision", mock.Anything, "user-1").Return("invite-token", nil).Once()
	env.notifier.On("NotifyUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("broker down"))
	env.notifier.On("NotifyAdmin", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("broker down"))

	_, err := env.svc.Decide(context.Background(), "admin", "TXAAAA1111", true)
	require.NoError(t, err)
}

func TestGrantDirect(t *testing.T) {
	env := newTestEnv()

	env.access.On("Grant", mock.Anything, "user-1", mock.MatchedBy(func(tf models.Tariff) bool {
		return tf.ID == "month_3"
	}), env.svc.now()).Return(&models.UserAccess{UserID: "user-1", HasAccess: true}, nil).Once()
	env.notifier.On("NotifyUser", mock.Anything, "user-1", "Доступ открыт", mock.Anything).Return(nil).Once()

	ua, err := env.svc.GrantDirect(context.Background(), "admin", "user-1", "month_3")
	require.NoError(t, err)
	assert.True(t, ua.HasAccess)
}

func TestGrantDirect_Forbidden(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.GrantDirect(context.Background(), "user-1", "user-2", "month_1")
	require.ErrorIs(t, err, ErrForbidden)
	env.access.AssertNotCalled(t, "Grant", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRevokeDirect(t *testing.T) {
	env := newTestEnv()

	env.access.On("Revoke", mock.Anything, "user-1").
		Return(&models.UserAccess{UserID: "user-1", HasAccess: false}, nil).Once()
	env.notifier.On("NotifyUser", mock.Anything, "user-1", "Доступ закрыт", mock.Anything).Return(nil).Once()

	ua, err := env.svc.RevokeDirect(context.Background(), "admin", "user-1")
	require.NoError(t, err)
	assert.False(t, ua.HasAccess)
}

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
