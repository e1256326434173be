// Package paymentprovider содержит клиенты платёжных провайдеров:
// Stripe Checkout для подписок и заказы Razorpay.
package paymentprovider

import (
	"errors"
	"fmt"
)

// ErrCircuitOpen провайдер временно отключён после серии ошибок.
var ErrCircuitOpen = errors.New("payment provider circuit is open")

// ErrEmptyWebhookSecret секрет подписи вебхуков не задан.
var ErrEmptyWebhookSecret = errors.New("webhook secret is empty")

// Order заказ Razorpay.
type Order struct {
	ID       string
	Amount   int64
	Currency string
	Receipt  string
	Status   string
	Notes    map[string]string
}

// Payment платёж Razorpay.
type Payment struct {
	ID       string
	OrderID  string
	Amount   int64
	Currency string
	Status   string
	Email    string
	Notes    map[string]string
}

// OrderFromMap разбирает сущность заказа из ответа API или вебхука.
func OrderFromMap(m map[string]any) *Order {
	return &Order{
		ID:       stringOf(m, "id"),
		Amount:   int64Of(m, "amount"),
		Currency: stringOf(m, "currency"),
		Receipt:  stringOf(m, "receipt"),
		Status:   stringOf(m, "status"),
		Notes:    notesOf(m),
	}
}

// PaymentFromMap разбирает сущность платежа из ответа API или вебхука.
func PaymentFromMap(m map[string]any) *Payment {
	return &Payment{
		ID:       stringOf(m, "id"),
		OrderID:  stringOf(m, "order_id"),
		Amount:   int64Of(m, "amount"),
		Currency: stringOf(m, "currency"),
		Status:   stringOf(m, "status"),
		Email:    stringOf(m, "email"),
		Notes:    notesOf(m),
	}
}

func stringOf(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func int64Of(m map[string]any, key string) int64 {
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}

// notesOf читает notes: Razorpay отдаёт пустые notes массивом, а заполненные объектом.
func notesOf(m map[string]any) map[string]string {
	notes := map[string]string{}
	raw, ok := m["notes"].(map[string]any)
	if !ok {
		return notes
	}
	for k, v := range raw {
		if s, ok := v.(string); ok {
			notes[k] = s
		} else if v != nil {
			notes[k] = fmt.Sprint(v)
		}
	}
	return notes
}
