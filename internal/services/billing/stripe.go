package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/stripe/stripe-go/v82"

	"github.com/shortsos/shortsos/internal/apperr"
	"github.com/shortsos/shortsos/internal/lib/sl"
	"github.com/shortsos/shortsos/internal/models"
	"github.com/shortsos/shortsos/internal/paymentprovider"
	"github.com/shortsos/shortsos/internal/storage"
)

// Типы событий Stripe, которые меняют состояние аккаунта.
const (
	EventCheckoutCompleted       = "checkout.session.completed"
	EventInvoicePaid             = "invoice.paid"
	EventInvoicePaymentSucceeded = "invoice.payment_succeeded"
	EventSubscriptionDeleted     = "customer.subscription.deleted"
)

// CreateCheckout создаёт сессию Stripe Checkout в режиме подписки.
func (s *Service) CreateCheckout(ctx context.Context, userID, email, rawPlan string) (*models.Checkout, error) {
	const op = "billing.CreateCheckout"
	if userID == "" {
		return nil, apperr.ErrAuthenticationRequired
	}
	if s.stripe == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrProviderNotConfigured)
	}
	tier, ok := paidTier(rawPlan)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidPlan)
	}
	price := s.settings.StripePrices[tier]
	if price == "" {
		return nil, fmt.Errorf("%s: price for %s: %w", op, tier, ErrProviderNotConfigured)
	}

	sess, err := s.stripe.CreateCheckoutSession(ctx, paymentprovider.CheckoutParams{
		UserID:     userID,
		Email:      email,
		Plan:       string(tier),
		PriceID:    price,
		SuccessURL: s.settings.StripeSuccessURL,
		CancelURL:  s.settings.StripeCancelURL,
	})
	if err != nil {
		s.log.Error("failed to create checkout session", sl.UserID(userID), sl.Err(err))
		return nil, fmt.Errorf("%s: %w: %w", op, apperr.ErrUpstream, err)
	}
	return &models.Checkout{SessionID: sess.ID, URL: sess.URL}, nil
}

// HandleStripeWebhook проверяет подпись тела и применяет событие.
func (s *Service) HandleStripeWebhook(ctx context.Context, payload []byte, signature string) error {
	const op = "billing.HandleStripeWebhook"
	if s.stripe == nil {
		return fmt.Errorf("%s: %w", op, ErrProviderNotConfigured)
	}
	event, err := s.stripe.ConstructEvent(payload, signature)
	if err != nil {
		s.metrics.Webhook(models.ProviderStripe, "unknown", "invalid_signature")
		return fmt.Errorf("%s: %w: %w", op, apperr.ErrInvalidSignature, err)
	}
	return s.HandleStripeEvent(ctx, event)
}

// HandleStripeEvent применяет проверенное событие Stripe.
//
// Повтор уже обработанного события ничего не меняет. Неизвестные типы
// событий принимаются и игнорируются. Событие, которое нельзя применить
// (нет пользователя, неизвестный план, битый объект), тоже принимается
// и отмечается обработанным, чтобы Stripe не повторял доставку.
func (s *Service) HandleStripeEvent(ctx context.Context, event stripe.Event) error {
	const op = "billing.HandleStripeEvent"
	eventType := string(event.Type)
	log := s.log.With(slog.String("op", op), slog.String("event_id", event.ID), slog.String("event_type", eventType))

	if event.ID != "" {
		done, err := s.store.WebhookEventProcessed(ctx, models.ProviderStripe, event.ID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if done {
			log.Info("webhook event already processed")
			s.metrics.Webhook(models.ProviderStripe, eventType, "duplicate")
			return nil
		}
	}

	var err error
	switch eventType {
	case EventCheckoutCompleted:
		err = s.checkoutCompleted(ctx, event)
	case EventInvoicePaid, EventInvoicePaymentSucceeded:
		err = s.invoicePaid(ctx, event)
	case EventSubscriptionDeleted:
		err = s.subscriptionDeleted(ctx, event)
	default:
		log.Debug("ignoring webhook event")
		s.metrics.Webhook(models.ProviderStripe, eventType, "ignored")
		return nil
	}
	if errors.Is(err, apperr.ErrInvalidInput) {
		// Подписанное событие, которое нельзя применить: повтор доставки его не исправит.
		log.Warn("dropping unprocessable webhook event", sl.Err(err))
		s.metrics.Webhook(models.ProviderStripe, eventType, "unprocessable")
		s.markProcessed(ctx, log, event.ID, eventType)
		return nil
	}
	if err != nil {
		log.Error("failed to apply webhook event", sl.Err(err))
		s.metrics.Webhook(models.ProviderStripe, eventType, "error")
		return fmt.Errorf("%s: %w", op, err)
	}

	s.markProcessed(ctx, log, event.ID, eventType)
	s.metrics.Webhook(models.ProviderStripe, eventType, "applied")
	log.Info("webhook event applied")
	return nil
}

func (s *Service) markProcessed(ctx context.Context, log *slog.Logger, eventID, eventType string) {
	if eventID == "" {
		return
	}
	if err := s.store.MarkWebhookEventProcessed(ctx, models.ProviderStripe, eventID, eventType); err != nil {
		log.Warn("failed to mark webhook event processed", sl.Err(err))
	}
}

func (s *Service) checkoutCompleted(ctx context.Context, event stripe.Event) error {
	var sess stripe.CheckoutSession
	if err := decodeObject(event, &sess); err != nil {
		return fmt.Errorf("decode checkout session: %w: %w", apperr.ErrInvalidInput, err)
	}
	userID := sess.ClientReferenceID
	if userID == "" {
		userID = sess.Metadata["user_id"]
	}
	if userID == "" {
		return apperr.Input("checkout session has no user reference")
	}
	tier, ok := paidTier(sess.Metadata["plan"])
	if !ok {
		return ErrInvalidPlan
	}

	email := ""
	if sess.CustomerDetails != nil {
		email = sess.CustomerDetails.Email
	}
	if email == "" {
		email = sess.CustomerEmail
	}
	if _, err := s.store.EnsureAccount(ctx, userID, email); err != nil {
		return err
	}

	change := models.PlanChange{
		UserID:     userID,
		Tier:       tier,
		Status:     models.StatusActive,
		PlanExpiry: s.now().UTC().Add(PlanPeriod),
	}
	if sess.Customer != nil {
		change.StripeCustomerID = sess.Customer.ID
	}
	if sess.Subscription != nil {
		change.StripeSubscriptionID = sess.Subscription.ID
	}
	if change.StripeSubscriptionID != "" {
		deleted, err := s.store.StripeSubscriptionDeleted(ctx, change.StripeSubscriptionID)
		if err != nil {
			return err
		}
		if deleted {
			return s.checkoutForDeletedSubscription(ctx, sess, change, email)
		}
	}
	err := s.store.SavePaymentAndApplyPlan(ctx, checkoutPayment(sess, change), change)
	switch {
	case errors.Is(err, storage.ErrAlreadyExists):
		return nil
	case err != nil:
		return err
	}

	s.metrics.PaymentApplied(models.ProviderStripe, string(tier))
	expiry := change.PlanExpiry
	s.afterPlanChange(ctx, models.Notification{
		Kind:       models.NotificationPlanActivated,
		UserID:     userID,
		Email:      email,
		Tier:       tier,
		PlanExpiry: &expiry,
	})
	return nil
}

// checkoutForDeletedSubscription сохраняет платёж за подписку, удаление которой
// пришло раньше завершения оформления. Аккаунт остаётся бесплатным, как если бы
// события пришли по порядку.
func (s *Service) checkoutForDeletedSubscription(ctx context.Context, sess stripe.CheckoutSession,
	change models.PlanChange, email string) error {
	acc, err := s.store.GetAccount(ctx, change.UserID)
	if err != nil {
		return err
	}
	log := s.log.With(sl.UserID(change.UserID), slog.String("subscription_id", change.StripeSubscriptionID))
	if acc.StripeSubscriptionID != "" && acc.StripeSubscriptionID != change.StripeSubscriptionID {
		log.Info("skipping checkout of deleted superseded subscription")
		return nil
	}

	payment := checkoutPayment(sess, change)
	downgrade := models.PlanChange{
		UserID:           change.UserID,
		Tier:             models.TierFree,
		Status:           models.StatusCancelled,
		PlanExpiry:       change.PlanExpiry,
		StripeCustomerID: change.StripeCustomerID,
	}
	err = s.store.SavePaymentAndApplyPlan(ctx, payment, downgrade)
	switch {
	case errors.Is(err, storage.ErrAlreadyExists):
		return nil
	case err != nil:
		return err
	}

	log.Warn("checkout completed for already deleted subscription")
	s.afterPlanChange(ctx, models.Notification{
		Kind:   models.NotificationPlanDowngraded,
		UserID: change.UserID,
		Email:  email,
		Tier:   models.TierFree,
	})
	return nil
}

func checkoutPayment(sess stripe.CheckoutSession, change models.PlanChange) models.Payment {
	return models.Payment{
		UserID:    change.UserID,
		Provider:  models.ProviderStripe,
		PaymentID: sess.ID,
		OrderID:   change.StripeSubscriptionID,
		Plan:      change.Tier,
		Amount:    sess.AmountTotal,
		Currency:  string(sess.Currency),
		Status:    "paid",
	}
}

func (s *Service) invoicePaid(ctx context.Context, event stripe.Event) error {
	var inv stripe.Invoice
	if err := decodeObject(event, &inv); err != nil {
		return fmt.Errorf("decode invoice: %w: %w", apperr.ErrInvalidInput, err)
	}
	if inv.Customer == nil || inv.Customer.ID == "" {
		return apperr.Input("invoice has no customer")
	}
	acc, err := s.store.GetAccountByStripeCustomer(ctx, inv.Customer.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// checkout.session.completed ещё не пришёл, Stripe повторит доставку.
			return ErrAccountNotLinked
		}
		return err
	}
	if err := s.store.ConfirmActive(ctx, acc.UserID, s.now().UTC().Add(PlanPeriod)); err != nil {
		return err
	}
	s.invalidate(ctx, acc.UserID)
	return nil
}

func (s *Service) subscriptionDeleted(ctx context.Context, event stripe.Event) error {
	var sub stripe.Subscription
	if err := decodeObject(event, &sub); err != nil {
		return fmt.Errorf("decode subscription: %w: %w", apperr.ErrInvalidInput, err)
	}
	if sub.ID == "" {
		return apperr.Input("subscription has no id")
	}
	// Отметка об удалении пишется до поиска аккаунта: checkout.session.completed,
	// пришедший позже, по ней не активирует план.
	if err := s.store.MarkStripeSubscriptionDeleted(ctx, sub.ID); err != nil {
		return err
	}

	acc, err := s.store.GetAccountByStripeSubscription(ctx, sub.ID)
	if errors.Is(err, storage.ErrNotFound) && sub.Metadata["user_id"] != "" {
		acc, err = s.store.GetAccount(ctx, sub.Metadata["user_id"])
		if err == nil && acc.StripeSubscriptionID != "" && acc.StripeSubscriptionID != sub.ID {
			// Пользователь уже оформил новую подписку, старая не должна её снять.
			s.log.Info("skipping deletion of superseded subscription",
				sl.UserID(acc.UserID), slog.String("subscription_id", sub.ID))
			return nil
		}
	}
	if errors.Is(err, storage.ErrNotFound) {
		s.log.Warn("subscription deleted for unknown account", slog.String("subscription_id", sub.ID))
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.store.DowngradeToFree(ctx, acc.UserID); err != nil {
		return err
	}
	s.afterPlanChange(ctx, models.Notification{
		Kind:   models.NotificationPlanDowngraded,
		UserID: acc.UserID,
		Email:  acc.Email,
		Tier:   models.TierFree,
	})
	return nil
}

func decodeObject(event stripe.Event, v any) error {
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return apperr.Input("event has no data object")
	}
	return json.Unmarshal(event.Data.Raw, v)
}
