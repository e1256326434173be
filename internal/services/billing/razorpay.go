package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shortsos/shortsos/internal/apperr"
	"github.com/shortsos/shortsos/internal/lib/secret"
	"github.com/shortsos/shortsos/internal/lib/sl"
	"github.com/shortsos/shortsos/internal/models"
	"github.com/shortsos/shortsos/internal/paymentprovider"
	"github.com/shortsos/shortsos/internal/storage"
)

// События вебхука Razorpay, подтверждающие оплату.
const (
	EventPaymentCaptured = "payment.captured"
	EventOrderPaid       = "order.paid"
)

type razorpayWebhook struct {
	Event   string `json:"event"`
	Payload struct {
		Payment *struct {
			Entity map[string]any `json:"entity"`
		} `json:"payment"`
		Order *struct {
			Entity map[string]any `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

// CreateOrder создаёт заказ Razorpay на выбранный план.
// Первый заказ пользователя без успешных платежей получает скидку.
func (s *Service) CreateOrder(ctx context.Context, userID, rawPlan string) (*models.Order, error) {
	const op = "billing.CreateOrder"
	if userID == "" {
		return nil, apperr.ErrAuthenticationRequired
	}
	if s.razorpay == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrProviderNotConfigured)
	}
	tier, ok := paidTier(rawPlan)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidPlan)
	}
	amount := s.settings.RazorpayPrices[tier]
	if amount <= 0 {
		return nil, fmt.Errorf("%s: price for %s: %w", op, tier, ErrProviderNotConfigured)
	}

	paid, err := s.store.CountSuccessfulPayments(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	discounted := paid == 0 && s.settings.FirstPaymentDiscount > 0
	if discounted {
		amount = amount * int64(100-s.settings.FirstPaymentDiscount) / 100
	}

	order, err := s.razorpay.CreateOrder(ctx, amount, s.settings.RazorpayCurrency, "rcpt_"+s.newID(),
		map[string]string{"user_id": userID, "plan": string(tier)})
	if err != nil {
		s.log.Error("failed to create razorpay order", sl.UserID(userID), sl.Err(err))
		return nil, fmt.Errorf("%s: %w: %w", op, apperr.ErrUpstream, err)
	}

	return &models.Order{
		OrderID:    order.ID,
		Amount:     order.Amount,
		Currency:   order.Currency,
		Plan:       tier,
		Discounted: discounted,
		KeyID:      s.razorpay.KeyID(),
	}, nil
}

// VerifyPayment проверяет подпись, которую клиент получил после оплаты, и активирует план.
func (s *Service) VerifyPayment(ctx context.Context, userID, email string, req models.VerifyPaymentRequest) (*models.VerifyResult, error) {
	const op = "billing.VerifyPayment"
	if userID == "" {
		return nil, apperr.ErrAuthenticationRequired
	}
	if s.razorpay == nil || s.settings.RazorpayKeySecret == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrProviderNotConfigured)
	}
	if !secret.VerifyHex(s.settings.RazorpayKeySecret, []byte(req.OrderID+"|"+req.PaymentID), req.Signature) {
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrInvalidSignature)
	}

	payment, err := s.razorpay.FetchPayment(ctx, req.PaymentID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, apperr.ErrUpstream, err)
	}
	if payment.OrderID != req.OrderID {
		return nil, fmt.Errorf("%s: %w", op, ErrOrderMismatch)
	}
	order, err := s.razorpay.FetchOrder(ctx, req.OrderID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, apperr.ErrUpstream, err)
	}
	if owner := order.Notes["user_id"]; owner != "" && owner != userID {
		return nil, fmt.Errorf("%s: %w", op, ErrOrderMismatch)
	}

	res, err := s.applyRazorpayPayment(ctx, userID, email, payment, order)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

// HandleRazorpayWebhook проверяет подпись тела и применяет событие оплаты.
// Применение идёт по тому же пути, что и VerifyPayment, поэтому вебхук и
// подтверждение клиента для одного платежа сходятся к одному результату.
// Подписанное событие, которое нельзя применить, принимается без изменений.
func (s *Service) HandleRazorpayWebhook(ctx context.Context, payload []byte, signature, eventID string) error {
	const op = "billing.HandleRazorpayWebhook"
	if s.razorpay == nil || s.settings.RazorpayWebhook == "" {
		return fmt.Errorf("%s: %w", op, ErrProviderNotConfigured)
	}
	if !secret.VerifyHex(s.settings.RazorpayWebhook, payload, signature) {
		s.metrics.Webhook(models.ProviderRazorpay, "unknown", "invalid_signature")
		return fmt.Errorf("%s: %w", op, apperr.ErrInvalidSignature)
	}

	var hook razorpayWebhook
	if err := json.Unmarshal(payload, &hook); err != nil {
		// Подпись верна, значит повтор доставки принесёт то же тело.
		s.log.Warn("dropping malformed webhook payload", slog.String("op", op), slog.String("event_id", eventID), sl.Err(err))
		s.metrics.Webhook(models.ProviderRazorpay, "unknown", "unprocessable")
		return nil
	}
	log := s.log.With(slog.String("op", op), slog.String("event_type", hook.Event), slog.String("event_id", eventID))

	if hook.Event != EventPaymentCaptured && hook.Event != EventOrderPaid {
		log.Debug("ignoring webhook event")
		s.metrics.Webhook(models.ProviderRazorpay, hook.Event, "ignored")
		return nil
	}
	if eventID != "" {
		done, err := s.store.WebhookEventProcessed(ctx, models.ProviderRazorpay, eventID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if done {
			log.Info("webhook event already processed")
			s.metrics.Webhook(models.ProviderRazorpay, hook.Event, "duplicate")
			return nil
		}
	}

	err := s.applyRazorpayWebhook(ctx, hook)
	if errors.Is(err, apperr.ErrInvalidInput) {
		log.Warn("dropping unprocessable webhook event", sl.Err(err))
		s.metrics.Webhook(models.ProviderRazorpay, hook.Event, "unprocessable")
		s.markRazorpayProcessed(ctx, log, eventID, hook.Event)
		return nil
	}
	if err != nil {
		log.Error("failed to apply webhook event", sl.Err(err))
		s.metrics.Webhook(models.ProviderRazorpay, hook.Event, "error")
		return fmt.Errorf("%s: %w", op, err)
	}

	s.markRazorpayProcessed(ctx, log, eventID, hook.Event)
	s.metrics.Webhook(models.ProviderRazorpay, hook.Event, "applied")
	log.Info("webhook event applied")
	return nil
}

func (s *Service) markRazorpayProcessed(ctx context.Context, log *slog.Logger, eventID, eventType string) {
	if eventID == "" {
		return
	}
	if err := s.store.MarkWebhookEventProcessed(ctx, models.ProviderRazorpay, eventID, eventType); err != nil {
		log.Warn("failed to mark webhook event processed", sl.Err(err))
	}
}

func (s *Service) applyRazorpayWebhook(ctx context.Context, hook razorpayWebhook) error {
	if hook.Payload.Payment == nil || hook.Payload.Payment.Entity == nil {
		return apperr.Input("webhook has no payment entity")
	}
	payment := paymentprovider.PaymentFromMap(hook.Payload.Payment.Entity)

	var order *paymentprovider.Order
	if hook.Payload.Order != nil && hook.Payload.Order.Entity != nil {
		order = paymentprovider.OrderFromMap(hook.Payload.Order.Entity)
	}
	if order == nil || order.Notes["user_id"] == "" {
		if payment.OrderID == "" {
			return apperr.Input("payment has no order")
		}
		fetched, err := s.razorpay.FetchOrder(ctx, payment.OrderID)
		if err != nil {
			return fmt.Errorf("%w: %w", apperr.ErrUpstream, err)
		}
		order = fetched
	}

	userID := order.Notes["user_id"]
	if userID == "" {
		userID = payment.Notes["user_id"]
	}
	if userID == "" {
		return apperr.Input("order has no user reference")
	}
	_, err := s.applyRazorpayPayment(ctx, userID, payment.Email, payment, order)
	return err
}

// applyRazorpayPayment сохраняет платёж и активирует план. Повтор того же
// payment_id считается уже обработанным и не продлевает план второй раз.
func (s *Service) applyRazorpayPayment(ctx context.Context, userID, email string,
	payment *paymentprovider.Payment, order *paymentprovider.Order) (*models.VerifyResult, error) {
	switch payment.Status {
	case "captured", "authorized":
	default:
		return nil, ErrPaymentNotCaptured
	}
	plan := order.Notes["plan"]
	if plan == "" {
		plan = payment.Notes["plan"]
	}
	tier, ok := paidTier(plan)
	if !ok {
		return nil, ErrInvalidPlan
	}

	if _, err := s.store.EnsureAccount(ctx, userID, email); err != nil {
		return nil, err
	}

	expiry := s.now().UTC().Add(PlanPeriod)
	err := s.store.SavePaymentAndApplyPlan(ctx, models.Payment{
		UserID:    userID,
		Provider:  models.ProviderRazorpay,
		PaymentID: payment.ID,
		OrderID:   order.ID,
		Plan:      tier,
		Amount:    payment.Amount,
		Currency:  payment.Currency,
		Status:    payment.Status,
	}, models.PlanChange{
		UserID:            userID,
		Tier:              tier,
		Status:            models.StatusActive,
		PlanExpiry:        expiry,
		RazorpayPaymentID: payment.ID,
	})
	if errors.Is(err, storage.ErrAlreadyExists) {
		return s.alreadyProcessed(ctx, userID, tier, expiry), nil
	}
	if err != nil {
		return nil, err
	}

	s.metrics.PaymentApplied(models.ProviderRazorpay, string(tier))
	s.afterPlanChange(ctx, models.Notification{
		Kind:       models.NotificationPlanActivated,
		UserID:     userID,
		Email:      email,
		Tier:       tier,
		PlanExpiry: &expiry,
	})
	return &models.VerifyResult{Success: true, Plan: tier, PlanExpiry: expiry}, nil
}

func (s *Service) alreadyProcessed(ctx context.Context, userID string, tier models.Tier, fallback time.Time) *models.VerifyResult {
	res := &models.VerifyResult{Success: true, AlreadyProcessed: true, Plan: tier, PlanExpiry: fallback}
	acc, err := s.store.GetAccount(ctx, userID)
	if err != nil {
		s.log.Warn("failed to load account after duplicate payment", sl.UserID(userID), sl.Err(err))
		return res
	}
	if acc.PlanExpiry != nil {
		res.PlanExpiry = *acc.PlanExpiry
	}
	return res
}
