package entitlement

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/shortsos/shortsos/internal/models"
)

type StoreMock struct{ mock.Mock }

func (m *StoreMock) EnsureAccount(ctx context.Context, userID, email string) (bool, error) {
	args := m.Called(ctx, userID, email)
	return args.Bool(0), args.Error(1)
}

func (m *StoreMock) GetAccount(ctx context.Context, userID string) (*models.Account, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *StoreMock) CancelSubscription(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *StoreMock) GrantPlanByEmail(ctx context.Context, email, newUserID string, tier models.Tier, expiry time.Time, credits *int) (*models.Account, error) {
	args := m.Called(ctx, email, newUserID, tier, expiry, credits)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

type LedgerMock struct{ mock.Mock }

func (m *LedgerMock) UseCredits(ctx context.Context, userID, feature string) (*models.CreditResult, error) {
	args := m.Called(ctx, userID, feature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CreditResult), args.Error(1)
}

func (m *LedgerMock) Balance(ctx context.Context, userID string) (*models.Balance, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Balance), args.Error(1)
}

func (m *LedgerMock) History(ctx context.Context, userID string, limit, offset int) ([]*models.CreditTransaction, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.CreditTransaction), args.Error(1)
}

type CounterMock struct{ mock.Mock }

func (m *CounterMock) CheckUsage(ctx context.Context, acc *models.Account, feature string) (*models.UsageStatus, error) {
	args := m.Called(ctx, acc, feature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UsageStatus), args.Error(1)
}

func (m *CounterMock) RecordUsage(ctx context.Context, userID, feature, idempotencyKey string) (bool, error) {
	args := m.Called(ctx, userID, feature, idempotencyKey)
	return args.Bool(0), args.Error(1)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) GetAccount(ctx context.Context, userID string) (*models.Account, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *CacheMock) SetAccount(ctx context.Context, acc *models.Account) error {
	return m.Called(ctx, acc).Error(0)
}

func (m *CacheMock) InvalidateAccount(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type CancellerMock struct{ mock.Mock }

func (m *CancellerMock) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) error {
	return m.Called(ctx, subscriptionID).Error(0)
}

type NotifierMock struct{ mock.Mock }

func (m *NotifierMock) Notify(ctx context.Context, n models.Notification) error {
	return m.Called(ctx, n).Error(0)
}

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func newTestGateway(store AccountStore, ledger CreditLedger, counter UsageCounter, opts ...Option) *Gateway {
	g := NewGateway(store, ledger, counter, func() string { return "new-id" }, newNoopLogger(), opts...)
	g.now = func() time.Time { return testNow }
	return g
}
