package paymentprovider

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/subscription"
	"github.com/stripe/stripe-go/v82/webhook"
)

// CheckoutParams параметры сессии оформления подписки.
type CheckoutParams struct {
	UserID     string
	Email      string
	Plan       string
	PriceID    string
	SuccessURL string
	CancelURL  string
}

// CheckoutSession созданная сессия Stripe Checkout.
type CheckoutSession struct {
	ID  string
	URL string
}

// Stripe клиент Stripe без глобального stripe.Key: ключ хранится в клиентах ресурсов.
type Stripe struct {
	sessions      session.Client
	subscriptions subscription.Client
	webhookSecret string
}

// NewStripe создаёт клиента по секретному ключу API и секрету подписи вебхуков.
func NewStripe(secretKey, webhookSecret string) *Stripe {
	backend := stripe.GetBackend(stripe.APIBackend)
	return &Stripe{
		sessions:      session.Client{B: backend, Key: secretKey},
		subscriptions: subscription.Client{B: backend, Key: secretKey},
		webhookSecret: webhookSecret,
	}
}

// CreateCheckoutSession создаёт сессию в режиме подписки. Идентификатор
// пользователя и план записываются в client_reference_id и в metadata
// сессии и будущей подписки.
func (s *Stripe) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error) {
	const op = "paymentprovider.Stripe.CreateCheckoutSession"
	metadata := map[string]string{
		"user_id": p.UserID,
		"plan":    p.Plan,
	}
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:        stripe.String(p.SuccessURL),
		CancelURL:         stripe.String(p.CancelURL),
		ClientReferenceID: stripe.String(p.UserID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(p.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: metadata,
		},
	}
	params.Context = ctx
	params.Metadata = metadata
	if p.Email != "" {
		params.CustomerEmail = stripe.String(p.Email)
	}

	sess, err := s.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// CancelAtPeriodEnd отменяет подписку в конце оплаченного периода.
func (s *Stripe) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) error {
	const op = "paymentprovider.Stripe.CancelAtPeriodEnd"
	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	}
	params.Context = ctx
	if _, err := s.subscriptions.Update(subscriptionID, params); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ConstructEvent проверяет заголовок Stripe-Signature и разбирает событие.
// Несовпадение версии API не считается ошибкой: поля читаются из Data.Raw.
// Без секрета подписи события не принимаются.
func (s *Stripe) ConstructEvent(payload []byte, signatureHeader string) (stripe.Event, error) {
	if s.webhookSecret == "" {
		return stripe.Event{}, ErrEmptyWebhookSecret
	}
	return webhook.ConstructEventWithOptions(payload, signatureHeader, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
}
