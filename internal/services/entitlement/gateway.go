// Package entitlement реализует шлюз доступа к функциям: единая точка,
// которая по каталогу выбирает способ учёта (кредиты, дневной лимит или
// уровень плана) и возвращает решение в одном формате.
package entitlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shortsos/shortsos/internal/apperr"
	"github.com/shortsos/shortsos/internal/features"
	"github.com/shortsos/shortsos/internal/lib/sl"
	"github.com/shortsos/shortsos/internal/metrics"
	"github.com/shortsos/shortsos/internal/models"
	"github.com/shortsos/shortsos/internal/plan"
	"github.com/shortsos/shortsos/internal/services/credits"
	"github.com/shortsos/shortsos/internal/storage"
)

var (
	// ErrAuthenticationMissing не передан идентификатор пользователя.
	ErrAuthenticationMissing = fmt.Errorf("user id missing: %w", apperr.ErrAuthenticationRequired)
	// ErrStoreUnavailable хранилище аккаунтов не настроено.
	ErrStoreUnavailable = fmt.Errorf("account store is not configured: %w", apperr.ErrConfiguration)
	// ErrUnknownFeature функции нет в каталоге.
	ErrUnknownFeature = apperr.Input("unknown feature")
	// ErrNoActiveSubscription нечего отменять.
	ErrNoActiveSubscription = apperr.Input("no active subscription")
)

// AccountStore методы хранилища аккаунтов.
type AccountStore interface {
	EnsureAccount(ctx context.Context, userID, email string) (bool, error)
	GetAccount(ctx context.Context, userID string) (*models.Account, error)
	CancelSubscription(ctx context.Context, userID string) error
	GrantPlanByEmail(ctx context.Context, email, newUserID string, tier models.Tier, expiry time.Time, credits *int) (*models.Account, error)
}

// AccountCache кэш чтения аккаунтов.
type AccountCache interface {
	GetAccount(ctx context.Context, userID string) (*models.Account, error)
	SetAccount(ctx context.Context, acc *models.Account) error
	InvalidateAccount(ctx context.Context, userID string) error
}

// CreditLedger журнал кредитов.
type CreditLedger interface {
	UseCredits(ctx context.Context, userID, feature string) (*models.CreditResult, error)
	Balance(ctx context.Context, userID string) (*models.Balance, error)
	History(ctx context.Context, userID string, limit, offset int) ([]*models.CreditTransaction, error)
}

// UsageCounter счётчик дневного использования.
type UsageCounter interface {
	CheckUsage(ctx context.Context, acc *models.Account, feature string) (*models.UsageStatus, error)
	RecordUsage(ctx context.Context, userID, feature, idempotencyKey string) (bool, error)
}

// SubscriptionCanceller отменяет подписку у провайдера в конце оплаченного периода.
type SubscriptionCanceller interface {
	CancelAtPeriodEnd(ctx context.Context, subscriptionID string) error
}

// Notifier публикует уведомления о смене плана.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// Gateway шлюз доступа.
type Gateway struct {
	store     AccountStore
	ledger    CreditLedger
	counter   UsageCounter
	cache     AccountCache
	canceller SubscriptionCanceller
	notifier  Notifier
	metrics   *metrics.Metrics
	log       *slog.Logger
	newID     func() string
	now       func() time.Time
}

// Option настраивает необязательные зависимости шлюза.
type Option func(*Gateway)

// WithCache включает кэш аккаунтов.
func WithCache(c AccountCache) Option { return func(g *Gateway) { g.cache = c } }

// WithCanceller включает отмену подписки у провайдера.
func WithCanceller(c SubscriptionCanceller) Option { return func(g *Gateway) { g.canceller = c } }

// WithNotifier включает уведомления об отмене.
func WithNotifier(n Notifier) Option { return func(g *Gateway) { g.notifier = n } }

// WithMetrics включает счётчики решений.
func WithMetrics(m *metrics.Metrics) Option { return func(g *Gateway) { g.metrics = m } }

// NewGateway создаёт шлюз. newID выдаёт идентификаторы аккаунтов,
// создаваемых оператором по email.
func NewGateway(store AccountStore, ledger CreditLedger, counter UsageCounter, newID func() string, log *slog.Logger, opts ...Option) *Gateway {
	g := &Gateway{
		store:   store,
		ledger:  ledger,
		counter: counter,
		log:     log,
		newID:   newID,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) guard(userID string) error {
	if userID == "" {
		return ErrAuthenticationMissing
	}
	if g.store == nil {
		return ErrStoreUnavailable
	}
	return nil
}

// EnsureAccount создаёт аккаунт при первом обращении. created false, если он уже был.
func (g *Gateway) EnsureAccount(ctx context.Context, userID, email string) (bool, error) {
	const op = "entitlement.EnsureAccount"
	if err := g.guard(userID); err != nil {
		return false, err
	}
	created, err := g.store.EnsureAccount(ctx, userID, email)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if created {
		g.log.Info("account created", slog.String("op", op), sl.UserID(userID))
	} else {
		g.invalidate(ctx, userID)
	}
	return created, nil
}

// CheckUsage возвращает состояние дневного лимита функции.
func (g *Gateway) CheckUsage(ctx context.Context, userID, feature string) (*models.UsageStatus, error) {
	const op = "entitlement.CheckUsage"
	if err := g.guard(userID); err != nil {
		return nil, err
	}
	acc, err := g.loadAccount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	status, err := g.counter.CheckUsage(ctx, acc, feature)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return status, nil
}

// RecordUsage учитывает успешный вызов функции с дневным лимитом.
// Для платного плана и администратора лимита нет, и запись не создаётся.
func (g *Gateway) RecordUsage(ctx context.Context, userID, feature, idempotencyKey string) (bool, error) {
	const op = "entitlement.RecordUsage"
	if err := g.guard(userID); err != nil {
		return false, err
	}
	acc, err := g.loadAccount(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if plan.IsPaid(acc, g.now()) {
		return false, nil
	}
	recorded, err := g.counter.RecordUsage(ctx, userID, feature, idempotencyKey)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return recorded, nil
}

// UseCredits списывает стоимость функции. Если аккаунта ещё нет,
// он создаётся и списание повторяется один раз.
func (g *Gateway) UseCredits(ctx context.Context, userID, feature string) (*models.CreditResult, error) {
	const op = "entitlement.UseCredits"
	if err := g.guard(userID); err != nil {
		return nil, err
	}

	res, err := g.ledger.UseCredits(ctx, userID, feature)
	if errors.Is(err, credits.ErrProfileMissing) {
		g.log.Info("bootstrapping missing account", slog.String("op", op), sl.UserID(userID))
		if _, ensureErr := g.store.EnsureAccount(ctx, userID, ""); ensureErr != nil {
			return nil, fmt.Errorf("%s: %w", op, ensureErr)
		}
		res, err = g.ledger.UseCredits(ctx, userID, feature)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !res.Unlimited {
		g.metrics.CreditsSpent(feature, res.CreditsUsed)
		g.invalidate(ctx, userID)
	}
	return res, nil
}

// Authorize принимает решение о доступе к функции по её способу учёта.
// Администратор проходит до любых других проверок. Для функций за кредиты
// успешное решение уже списало стоимость. Отказ возвращается решением
// с Allowed=false, а не ошибкой.
func (g *Gateway) Authorize(ctx context.Context, userID, feature string) (*models.Decision, error) {
	const op = "entitlement.Authorize"
	if err := g.guard(userID); err != nil {
		return nil, err
	}
	f, ok := features.Lookup(feature)
	if !ok {
		return nil, ErrUnknownFeature
	}

	acc, err := g.loadAccount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := g.now()
	d := &models.Decision{
		Feature:      f.Name,
		Strategy:     string(f.Strategy),
		IsPaid:       plan.IsPaid(acc, now),
		IsAdmin:      acc.IsAdmin,
		CurrentTier:  plan.Tier(acc, now),
		RequiredTier: f.RequiredTier,
	}

	switch {
	case acc.IsAdmin:
		d.Allowed = true
		d.Remaining = models.UnlimitedCredits
	case f.Strategy == features.StrategyCredits:
		err = g.authorizeCredits(ctx, userID, f, d)
	case f.Strategy == features.StrategyDaily:
		err = g.authorizeDaily(ctx, acc, f, d)
	default:
		g.authorizeTier(acc, f, now, d)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	g.metrics.Decision(f.Name, d.Allowed)
	g.log.Debug("entitlement decision", slog.String("op", op), sl.UserID(userID), sl.Feature(f.Name),
		slog.Bool("allowed", d.Allowed), slog.String("strategy", d.Strategy))
	return d, nil
}

func (g *Gateway) authorizeCredits(ctx context.Context, userID string, f features.Feature, d *models.Decision) error {
	res, err := g.UseCredits(ctx, userID, f.Name)
	var insufficient *credits.InsufficientCreditsError
	if errors.As(err, &insufficient) {
		d.Allowed = false
		d.Remaining = insufficient.CreditsRemaining
		d.CreditsNeeded = insufficient.CreditsNeeded
		d.RequiresUpgrade = true
		d.RequiredTier = models.TierStarter
		return nil
	}
	if err != nil {
		return err
	}
	d.Allowed = true
	d.IsPaid = res.Unlimited
	d.Remaining = res.CreditsRemaining
	d.CreditsUsed = res.CreditsUsed
	d.CreditsNeeded = f.Cost
	return nil
}

func (g *Gateway) authorizeDaily(ctx context.Context, acc *models.Account, f features.Feature, d *models.Decision) error {
	status, err := g.counter.CheckUsage(ctx, acc, f.Name)
	if err != nil {
		return err
	}
	d.Allowed = status.Allowed
	d.Remaining = status.Remaining
	d.Limit = status.Limit
	if !status.Allowed {
		d.RequiresUpgrade = true
		d.RequiredTier = models.TierStarter
	}
	return nil
}

func (g *Gateway) authorizeTier(acc *models.Account, f features.Feature, now time.Time, d *models.Decision) {
	d.Allowed = plan.CanAccessTier(acc, f.RequiredTier, now)
	d.RequiresUpgrade = !d.Allowed
	if d.Allowed {
		d.Remaining = models.UnlimitedCredits
	}
}

// Balance возвращает баланс кредитов, создавая аккаунт при необходимости.
func (g *Gateway) Balance(ctx context.Context, userID string) (*models.Balance, error) {
	const op = "entitlement.Balance"
	if err := g.guard(userID); err != nil {
		return nil, err
	}
	bal, err := g.ledger.Balance(ctx, userID)
	if errors.Is(err, credits.ErrProfileMissing) {
		if _, ensureErr := g.store.EnsureAccount(ctx, userID, ""); ensureErr != nil {
			return nil, fmt.Errorf("%s: %w", op, ensureErr)
		}
		bal, err = g.ledger.Balance(ctx, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return bal, nil
}

// History возвращает журнал списаний пользователя.
func (g *Gateway) History(ctx context.Context, userID string, limit, offset int) ([]*models.CreditTransaction, error) {
	const op = "entitlement.History"
	if err := g.guard(userID); err != nil {
		return nil, err
	}
	list, err := g.ledger.History(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// Account возвращает сводку по плану пользователя.
func (g *Gateway) Account(ctx context.Context, userID string) (*models.AccountSummary, error) {
	const op = "entitlement.Account"
	if err := g.guard(userID); err != nil {
		return nil, err
	}
	acc, err := g.loadAccount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	summary := plan.Summary(acc, g.now())
	return &summary, nil
}

// CancelSubscription мягко отменяет подписку: статус становится cancelled,
// plan_expiry не меняется, доступ сохраняется до окончания срока.
// Повторная отмена ничего не меняет.
func (g *Gateway) CancelSubscription(ctx context.Context, userID string) (*models.AccountSummary, error) {
	const op = "entitlement.CancelSubscription"
	if err := g.guard(userID); err != nil {
		return nil, err
	}
	log := g.log.With(slog.String("op", op), sl.UserID(userID))

	acc, err := g.fetchAccount(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNoActiveSubscription
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	now := g.now()
	if acc.IsAdmin || !plan.IsPaid(acc, now) {
		return nil, ErrNoActiveSubscription
	}
	if acc.SubscriptionStatus == models.StatusCancelled {
		summary := plan.Summary(acc, now)
		return &summary, nil
	}

	if acc.StripeSubscriptionID != "" && g.canceller != nil {
		if err := g.canceller.CancelAtPeriodEnd(ctx, acc.StripeSubscriptionID); err != nil {
			log.Error("provider cancellation failed", sl.Err(err))
			return nil, fmt.Errorf("%s: %w: %w", op, apperr.ErrUpstream, err)
		}
	}
	if err := g.store.CancelSubscription(ctx, userID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	g.invalidate(ctx, userID)
	log.Info("subscription cancelled")

	acc.SubscriptionStatus = models.StatusCancelled
	g.notify(ctx, models.Notification{
		Kind:       models.NotificationPlanCancelled,
		UserID:     acc.UserID,
		Email:      acc.Email,
		Tier:       plan.Tier(acc, now),
		PlanExpiry: acc.PlanExpiry,
	})
	summary := plan.Summary(acc, now)
	return &summary, nil
}

// AdminSetup находит или создаёт аккаунт по email и выдаёт ему agency
// на год. credits != nil заменяет баланс.
func (g *Gateway) AdminSetup(ctx context.Context, email string, credits *int) (*models.AccountSummary, error) {
	const op = "entitlement.AdminSetup"
	if g.store == nil {
		return nil, ErrStoreUnavailable
	}
	if email == "" {
		return nil, apperr.Input("email is required")
	}
	if credits != nil && *credits < 0 {
		return nil, apperr.Input("credits must not be negative")
	}

	now := g.now()
	acc, err := g.store.GrantPlanByEmail(ctx, email, g.newID(), models.TierAgency, now.AddDate(1, 0, 0), credits)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	g.invalidate(ctx, acc.UserID)
	g.log.Info("plan granted by operator", slog.String("op", op), sl.UserID(acc.UserID),
		slog.String("tier", string(models.TierAgency)))

	summary := plan.Summary(acc, now)
	return &summary, nil
}

// loadAccount читает аккаунт через кэш, создавая его при первом обращении.
func (g *Gateway) loadAccount(ctx context.Context, userID string) (*models.Account, error) {
	if g.cache != nil {
		acc, err := g.cache.GetAccount(ctx, userID)
		if err != nil {
			g.log.Warn("account cache read failed", sl.UserID(userID), sl.Err(err))
		} else if acc != nil {
			return acc, nil
		}
	}

	acc, err := g.fetchAccount(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		if _, err := g.store.EnsureAccount(ctx, userID, ""); err != nil {
			return nil, err
		}
		acc, err = g.fetchAccount(ctx, userID)
	}
	if err != nil {
		return nil, err
	}

	if g.cache != nil {
		if err := g.cache.SetAccount(ctx, acc); err != nil {
			g.log.Warn("account cache write failed", sl.UserID(userID), sl.Err(err))
		}
	}
	return acc, nil
}

func (g *Gateway) fetchAccount(ctx context.Context, userID string) (*models.Account, error) {
	acc, err := g.store.GetAccount(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, storage.ErrNotFound
	}
	return acc, err
}

func (g *Gateway) invalidate(ctx context.Context, userID string) {
	if g.cache == nil {
		return
	}
	if err := g.cache.InvalidateAccount(ctx, userID); err != nil {
		g.log.Warn("account cache invalidation failed", sl.UserID(userID), sl.Err(err))
	}
}

func (g *Gateway) notify(ctx context.Context, n models.Notification) {
	if g.notifier == nil || n.Email == "" {
		return
	}
	if err := g.notifier.Notify(ctx, n); err != nil {
		g.log.Warn("failed to publish notification", slog.String("kind", string(n.Kind)), sl.UserID(n.UserID), sl.Err(err))
	}
}
