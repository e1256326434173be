// Package billing применяет события платёжных провайдеров к аккаунтам.
//
// Stripe оформляет подписки через Checkout и сообщает о продлениях и
// удалении подписки вебхуками. Razorpay работает заказами: клиент платит
// и возвращает подпись, а вебхук дублирует подтверждение. Оба пути
// идемпотентны: повтор события не меняет итоговое состояние аккаунта.
package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/stripe/stripe-go/v82"

	"github.com/shortsos/shortsos/internal/apperr"
	"github.com/shortsos/shortsos/internal/lib/sl"
	"github.com/shortsos/shortsos/internal/metrics"
	"github.com/shortsos/shortsos/internal/models"
	"github.com/shortsos/shortsos/internal/paymentprovider"
)

// PlanPeriod срок, на который оплата продлевает план.
const PlanPeriod = 30 * 24 * time.Hour

var (
	// ErrProviderNotConfigured провайдер не настроен.
	ErrProviderNotConfigured = fmt.Errorf("payment provider is not configured: %w", apperr.ErrConfiguration)
	// ErrInvalidPlan план нельзя купить.
	ErrInvalidPlan = apperr.Input("unknown plan")
	// ErrPaymentNotCaptured платёж ещё не списан.
	ErrPaymentNotCaptured = apperr.Input("payment is not captured")
	// ErrOrderMismatch платёж или заказ не принадлежат пользователю.
	ErrOrderMismatch = apperr.Input("payment does not match order")
	// ErrAccountNotLinked событие пришло раньше, чем аккаунт связан с клиентом провайдера.
	// Провайдер повторит доставку.
	ErrAccountNotLinked = errors.New("account is not linked to provider customer yet")
)

// Store методы хранилища, нужные биллингу.
type Store interface {
	EnsureAccount(ctx context.Context, userID, email string) (bool, error)
	GetAccount(ctx context.Context, userID string) (*models.Account, error)
	GetAccountByStripeCustomer(ctx context.Context, customerID string) (*models.Account, error)
	GetAccountByStripeSubscription(ctx context.Context, subscriptionID string) (*models.Account, error)
	ConfirmActive(ctx context.Context, userID string, expiry time.Time) error
	DowngradeToFree(ctx context.Context, userID string) error
	SavePaymentAndApplyPlan(ctx context.Context, p models.Payment, change models.PlanChange) error
	CountSuccessfulPayments(ctx context.Context, userID string) (int, error)
	ListPayments(ctx context.Context, userID string) ([]*models.Payment, error)
	WebhookEventProcessed(ctx context.Context, provider, eventID string) (bool, error)
	MarkWebhookEventProcessed(ctx context.Context, provider, eventID, eventType string) error
	MarkStripeSubscriptionDeleted(ctx context.Context, subscriptionID string) error
	StripeSubscriptionDeleted(ctx context.Context, subscriptionID string) (bool, error)
}

// StripeGateway операции Stripe.
type StripeGateway interface {
	CreateCheckoutSession(ctx context.Context, p paymentprovider.CheckoutParams) (*paymentprovider.CheckoutSession, error)
	ConstructEvent(payload []byte, signatureHeader string) (stripe.Event, error)
}

// RazorpayGateway операции Razorpay.
type RazorpayGateway interface {
	KeyID() string
	CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*paymentprovider.Order, error)
	FetchOrder(ctx context.Context, orderID string) (*paymentprovider.Order, error)
	FetchPayment(ctx context.Context, paymentID string) (*paymentprovider.Payment, error)
}

// Notifier публикует уведомления о смене плана.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// AccountInvalidator сбрасывает кэш аккаунта после изменения плана.
type AccountInvalidator interface {
	InvalidateAccount(ctx context.Context, userID string) error
}

// Settings цены и секреты провайдеров.
type Settings struct {
	StripePrices      map[models.Tier]string
	StripeSuccessURL  string
	StripeCancelURL   string
	RazorpayPrices    map[models.Tier]int64
	RazorpayCurrency  string
	RazorpayKeySecret string
	RazorpayWebhook   string
	// FirstPaymentDiscount скидка в процентах на первый заказ Razorpay.
	FirstPaymentDiscount int
}

// Service биллинг.
type Service struct {
	store    Store
	stripe   StripeGateway
	razorpay RazorpayGateway
	settings Settings
	notifier Notifier
	cache    AccountInvalidator
	metrics  *metrics.Metrics
	log      *slog.Logger
	newID    func() string
	now      func() time.Time
}

// Option настраивает необязательные зависимости.
type Option func(*Service)

// WithStripe включает Stripe.
func WithStripe(g StripeGateway) Option { return func(s *Service) { s.stripe = g } }

// WithRazorpay включает Razorpay.
func WithRazorpay(g RazorpayGateway) Option { return func(s *Service) { s.razorpay = g } }

// WithNotifier включает уведомления.
func WithNotifier(n Notifier) Option { return func(s *Service) { s.notifier = n } }

// WithCache включает сброс кэша аккаунтов.
func WithCache(c AccountInvalidator) Option { return func(s *Service) { s.cache = c } }

// WithMetrics включает счётчики.
func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

// NewService создаёт биллинг. newID выдаёт номера квитанций заказов.
func NewService(store Store, settings Settings, newID func() string, log *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:    store,
		settings: settings,
		log:      log,
		newID:    newID,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListPayments возвращает платежи пользователя.
func (s *Service) ListPayments(ctx context.Context, userID string) ([]*models.Payment, error) {
	const op = "billing.ListPayments"
	if userID == "" {
		return nil, apperr.ErrAuthenticationRequired
	}
	list, err := s.store.ListPayments(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// paidTier разбирает план покупки: бесплатный и неизвестный не продаются.
func paidTier(raw string) (models.Tier, bool) {
	switch models.Tier(raw) {
	case models.TierStarter, models.TierPro, models.TierAgency:
		return models.Tier(raw), true
	default:
		return models.TierFree, false
	}
}

func (s *Service) invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateAccount(ctx, userID); err != nil {
		s.log.Warn("account cache invalidation failed", sl.UserID(userID), sl.Err(err))
	}
}

// afterPlanChange сбрасывает кэш и публикует уведомление. Ошибка публикации
// только логируется: платёж уже применён.
func (s *Service) afterPlanChange(ctx context.Context, n models.Notification) {
	s.invalidate(ctx, n.UserID)
	if s.notifier == nil || n.Email == "" {
		return
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.log.Warn("failed to publish notification", slog.String("kind", string(n.Kind)), sl.UserID(n.UserID), sl.Err(err))
	}
}
