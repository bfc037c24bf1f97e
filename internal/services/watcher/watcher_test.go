package watcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/nzuev/channel-pass/internal/models"
	"github.com/nzuev/channel-pass/internal/services/ledger"
)

type LedgerMock struct{ mock.Mock }

func (m *LedgerMock) ListPending(ctx context.Context) ([]*models.PaymentRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PaymentRecord), args.Error(1)
}

type WorkflowMock struct{ mock.Mock }

func (m *WorkflowMock) ConfirmVerified(ctx context.Context, txID string) error {
	return m.Called(ctx, txID).Error(0)
}

type ProbeMock struct{ mock.Mock }

func (m *ProbeMock) Check(ctx context.Context, txID string) (bool, error) {
	args := m.Called(ctx, txID)
	return args.Bool(0), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func pendingRecord(txID string) *models.PaymentRecord {
	return &models.PaymentRecord{
		ID:        txID,
		UserID:    "user-1",
		TariffID:  "month_1",
		Amount:    500,
		Status:    models.PaymentPending,
		CreatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRunOnce_ConfirmsPaidPayments(t *testing.T) {
	l := &LedgerMock{}
	wf := &WorkflowMock{}
	probe := &ProbeMock{}

	l.On("ListPending", mock.Anything).
		Return([]*models.PaymentRecord{pendingRecord("TXAAAA1111"), pendingRecord("TXBBBB2222")}, nil).Once()
	probe.On("Check", mock.Anything, "TXAAAA1111").Return(true, nil).Once()
	probe.On("Check", mock.Anything, "TXBBBB2222").Return(false, nil).Once()
	wf.On("ConfirmVerified", mock.Anything, "TXAAAA1111").Return(nil).Once()

	svc := New(l, wf, probe, newNoopLogger())
	svc.RunOnce(context.Background())

	wf.AssertNotCalled(t, "ConfirmVerified", mock.Anything, "TXBBBB2222")
	wf.AssertExpectations(t)
	probe.AssertExpectations(t)
}

func TestRunOnce_NoPending(t *testing.T) {
	l := &LedgerMock{}
	wf := &WorkflowMock{}
	probe := &ProbeMock{}

	l.On("ListPending", mock.Anything).Return([]*models.PaymentRecord{}, nil).Once()

	svc := New(l, wf, probe, newNoopLogger())
	svc.RunOnce(context.Background())

	probe.AssertNotCalled(t, "Check", mock.Anything, mock.Anything)
}

func TestRunOnce_ProbeErrorSkipsRecord(t *testing.T) {
	l := &LedgerMock{}
	wf := &WorkflowMock{}
	probe := &ProbeMock{}

	l.On("ListPending", mock.Anything).
		Return([]*models.PaymentRecord{pendingRecord("TXAAAA1111"), pendingRecord("TXBBBB2222")}, nil).Once()
	probe.On("Check", mock.Anything, "TXAAAA1111").Return(false, errors.New("probe unavailable")).Once()
	probe.On("Check", mock.Anything, "TXBBBB2222").Return(true, nil).Once()
	wf.On("ConfirmVerified", mock.Anything, "TXBBBB2222").Return(nil).Once()

	svc := New(l, wf, probe, newNoopLogger())
	svc.RunOnce(context.Background())

	wf.AssertExpectations(t)
}

func TestRunOnce_ConcurrentFinalizationTolerated(t *testing.T) {
	// администратор успел решить, пока шла проверка
	l := &LedgerMock{}
	wf := &WorkflowMock{}
	probe := &ProbeMock{}

	l.On("ListPending", mock.Anything).
		Return([]*models.PaymentRecord{pendingRecord("TXAAAA1111")}, nil).Once()
	probe.On("Check", mock.Anything, "TXAAAA1111").Return(true, nil).Once()
	wf.On("ConfirmVerified", mock.Anything, "TXAAAA1111").
		Return(fmt.Errorf("workflow.ConfirmVerified: %w", ledger.ErrAlreadyFinalized)).Once()

	svc := New(l, wf, probe, newNoopLogger())
	svc.RunOnce(context.Background())

	wf.AssertExpectations(t)
}
