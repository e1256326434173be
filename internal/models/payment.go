package models

import "time"

// Провайдеры платежей.
const (
	ProviderStripe   = "stripe"
	ProviderRazorpay = "razorpay"
)

// Payment запись о завершённом платеже. PaymentID уникален.
type Payment struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Provider  string    `json:"provider"`
	PaymentID string    `json:"payment_id"`
	OrderID   string    `json:"order_id"`
	Plan      Tier      `json:"plan"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// CheckoutRequest запрос на создание сессии оплаты Stripe.
type CheckoutRequest struct {
	Plan string `json:"plan" validate:"required,oneof=starter pro agency"`
}

// OrderRequest запрос на создание заказа Razorpay.
type OrderRequest struct {
	Plan string `json:"plan" validate:"required,oneof=starter pro agency"`
}

// Order созданный заказ Razorpay, возвращается клиенту.
type Order struct {
	OrderID    string `json:"order_id"`
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
	Plan       Tier   `json:"plan"`
	Discounted bool   `json:"discounted"`
	KeyID      string `json:"key_id"`
}

// VerifyPaymentRequest данные, которые клиент получает от Razorpay после оплаты.
type VerifyPaymentRequest struct {
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
}

// AdminSetupRequest запрос оператора на выдачу максимального тарифа.
type AdminSetupRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Credits *int   `json:"credits,omitempty" validate:"omitempty,gte=0"`
}

// Checkout созданная сессия оплаты Stripe.
type Checkout struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// VerifyResult итог подтверждения платежа Razorpay.
type VerifyResult struct {
	Success          bool      `json:"success"`
	AlreadyProcessed bool      `json:"already_processed"`
	Plan             Tier      `json:"plan"`
	PlanExpiry       time.Time `json:"plan_expiry"`
}
