package paymentprovider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/sony/gobreaker/v2"
)

// RazorpayAPI подмножество SDK, которое использует клиент.
type RazorpayAPI interface {
	CreateOrder(data map[string]any) (map[string]any, error)
	FetchOrder(orderID string) (map[string]any, error)
	FetchPayment(paymentID string) (map[string]any, error)
}

type sdkAPI struct {
	client *razorpay.Client
}

func (a sdkAPI) CreateOrder(data map[string]any) (map[string]any, error) {
	return a.client.Order.Create(data, nil)
}

func (a sdkAPI) FetchOrder(orderID string) (map[string]any, error) {
	return a.client.Order.Fetch(orderID, nil, nil)
}

func (a sdkAPI) FetchPayment(paymentID string) (map[string]any, error) {
	return a.client.Payment.Fetch(paymentID, nil, nil)
}

// Razorpay клиент заказов и платежей Razorpay. Все вызовы идут через
// автомат отключения: после пяти ошибок подряд запросы не отправляются
// тридцать секунд.
type Razorpay struct {
	api     RazorpayAPI
	breaker *gobreaker.CircuitBreaker[map[string]any]
	keyID   string
}

// NewRazorpay создаёт клиента SDK по ключам API.
func NewRazorpay(keyID, keySecret string, log *slog.Logger) *Razorpay {
	return NewRazorpayWithAPI(sdkAPI{client: razorpay.NewClient(keyID, keySecret)}, keyID, log)
}

// NewRazorpayWithAPI создаёт клиента поверх произвольной реализации API.
func NewRazorpayWithAPI(api RazorpayAPI, keyID string, log *slog.Logger) *Razorpay {
	settings := gobreaker.Settings{
		Name:        "razorpay",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	}
	return &Razorpay{
		api:     api,
		breaker: gobreaker.NewCircuitBreaker[map[string]any](settings),
		keyID:   keyID,
	}
}

// KeyID публичный ключ, который клиент передаёт в Razorpay Checkout.
func (r *Razorpay) KeyID() string {
	return r.keyID
}

func (r *Razorpay) call(ctx context.Context, fn func() (map[string]any, error)) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := r.breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrCircuitOpen
	}
	return res, err
}

// CreateOrder создаёт заказ на amount минимальных единиц валюты.
func (r *Razorpay) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*Order, error) {
	const op = "paymentprovider.Razorpay.CreateOrder"
	noteData := make(map[string]any, len(notes))
	for k, v := range notes {
		noteData[k] = v
	}
	data := map[string]any{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
		"notes":    noteData,
	}
	res, err := r.call(ctx, func() (map[string]any, error) { return r.api.CreateOrder(data) })
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return OrderFromMap(res), nil
}

// FetchOrder возвращает заказ по идентификатору.
func (r *Razorpay) FetchOrder(ctx context.Context, orderID string) (*Order, error) {
	const op = "paymentprovider.Razorpay.FetchOrder"
	res, err := r.call(ctx, func() (map[string]any, error) { return r.api.FetchOrder(orderID) })
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return OrderFromMap(res), nil
}

// FetchPayment возвращает платёж по идентификатору.
func (r *Razorpay) FetchPayment(ctx context.Context, paymentID string) (*Payment, error) {
	const op = "paymentprovider.Razorpay.FetchPayment"
	res, err := r.call(ctx, func() (map[string]any, error) { return r.api.FetchPayment(paymentID) })
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return PaymentFromMap(res), nil
}
