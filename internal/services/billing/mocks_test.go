package billing

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stripe/stripe-go/v82"

	"github.com/shortsos/shortsos/internal/models"
	"github.com/shortsos/shortsos/internal/paymentprovider"
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

func (m *StoreMock) GetAccountByStripeCustomer(ctx context.Context, customerID string) (*models.Account, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *StoreMock) GetAccountByStripeSubscription(ctx context.Context, subscriptionID string) (*models.Account, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *StoreMock) ConfirmActive(ctx context.Context, userID string, expiry time.Time) error {
	return m.Called(ctx, userID, expiry).Error(0)
}

func (m *StoreMock) DowngradeToFree(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *StoreMock) SavePaymentAndApplyPlan(ctx context.Context, p models.Payment, change models.PlanChange) error {
	return m.Called(ctx, p, change).Error(0)
}

func (m *StoreMock) CountSuccessfulPayments(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *StoreMock) ListPayments(ctx context.Context, userID string) ([]*models.Payment, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Payment), args.Error(1)
}

func (m *StoreMock) WebhookEventProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	args := m.Called(ctx, provider, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *StoreMock) MarkWebhookEventProcessed(ctx context.Context, provider, eventID, eventType string) error {
	return m.Called(ctx, provider, eventID, eventType).Error(0)
}

func (m *StoreMock) MarkStripeSubscriptionDeleted(ctx context.Context, subscriptionID string) error {
	return m.Called(ctx, subscriptionID).Error(0)
}

func (m *StoreMock) StripeSubscriptionDeleted(ctx context.Context, subscriptionID string) (bool, error) {
	args := m.Called(ctx, subscriptionID)
	return args.Bool(0), args.Error(1)
}

type CheckoutMock struct{ mock.Mock }

func (m *CheckoutMock) CreateCheckoutSession(ctx context.Context, p paymentprovider.CheckoutParams) (*paymentprovider.CheckoutSession, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentprovider.CheckoutSession), args.Error(1)
}

// testStripe проверяет подписи настоящим клиентом, а сессии берёт из мока.
type testStripe struct {
	*CheckoutMock
	verifier *paymentprovider.Stripe
}

func newTestStripe() *testStripe {
	return &testStripe{
		CheckoutMock: new(CheckoutMock),
		verifier:     paymentprovider.NewStripe("sk_test", testStripeSecret),
	}
}

func (s *testStripe) ConstructEvent(payload []byte, header string) (stripe.Event, error) {
	return s.verifier.ConstructEvent(payload, header)
}

type RazorpayMock struct{ mock.Mock }

func (m *RazorpayMock) KeyID() string { return "rzp_test_key" }

func (m *RazorpayMock) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*paymentprovider.Order, error) {
	args := m.Called(ctx, amount, currency, receipt, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentprovider.Order), args.Error(1)
}

func (m *RazorpayMock) FetchOrder(ctx context.Context, orderID string) (*paymentprovider.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentprovider.Order), args.Error(1)
}

func (m *RazorpayMock) FetchPayment(ctx context.Context, paymentID string) (*paymentprovider.Payment, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentprovider.Payment), args.Error(1)
}

type NotifierMock struct{ mock.Mock }

func (m *NotifierMock) Notify(ctx context.Context, n models.Notification) error {
	return m.Called(ctx, n).Error(0)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) InvalidateAccount(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

const (
	testStripeSecret    = "whsec_test"
	testKeySecret       = "rzp_key_secret"
	testRazorpayHookKey = "rzp_webhook_secret"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func testSettings() Settings {
	return Settings{
		StripePrices: map[models.Tier]string{
			models.TierStarter: "price_starter",
			models.TierPro:     "price_pro",
			models.TierAgency:  "price_agency",
		},
		StripeSuccessURL: "https://app.example.com/billing/success",
		StripeCancelURL:  "https://app.example.com/billing/cancel",
		RazorpayPrices: map[models.Tier]int64{
			models.TierStarter: 49900,
			models.TierPro:     99900,
			models.TierAgency:  249900,
		},
		RazorpayCurrency:     "INR",
		RazorpayKeySecret:    testKeySecret,
		RazorpayWebhook:      testRazorpayHookKey,
		FirstPaymentDiscount: 50,
	}
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func newTestService(store Store, opts ...Option) *Service {
	s := NewService(store, testSettings(), func() string { return "abc" }, newNoopLogger(), opts...)
	s.now = func() time.Time { return testNow }
	return s
}
