// Package models содержит доменные структуры аккаунта, журнала кредитов,
// учёта использования и платежей. Структуры используются сервисами,
// хранилищем и HTTP-обработчиками.
package models

import "time"

// Tier уровень подписки пользователя.
type Tier string

const (
	TierFree    Tier = "free"
	TierStarter Tier = "starter"
	TierPro     Tier = "pro"
	TierAgency  Tier = "agency"
)

// Status состояние подписки.
type Status string

const (
	StatusInactive  Status = "inactive"
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
)

// DefaultCredits стартовый баланс нового аккаунта.
const DefaultCredits = 100

// Account представляет пользователя сервиса вместе с атрибутами подписки.
// SubscriptionTier хранится как есть: в базе могут встречаться устаревшие
// значения ("paid", "operator"), нормализация выполняется пакетом plan.
type Account struct {
	UserID               string     `json:"user_id"`
	Email                string     `json:"email,omitempty"`
	SubscriptionTier     Tier       `json:"subscription_tier"`
	SubscriptionStatus   Status     `json:"subscription_status"`
	PlanExpiry           *time.Time `json:"plan_expiry,omitempty"`
	IsAdmin              bool       `json:"is_admin"`
	Credits              int        `json:"credits"`
	StripeCustomerID     string     `json:"-"`
	StripeSubscriptionID string     `json:"-"`
	RazorpayPaymentID    string     `json:"-"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// AccountSummary представление аккаунта для клиента.
type AccountSummary struct {
	UserID          string     `json:"user_id"`
	Tier            Tier       `json:"tier"`
	Status          Status     `json:"status"`
	IsPaid          bool       `json:"is_paid"`
	IsAdmin         bool       `json:"is_admin"`
	Credits         int        `json:"credits"`
	PlanExpiry      *time.Time `json:"plan_expiry,omitempty"`
	DaysUntilExpiry *int       `json:"days_until_expiry"`
}

// Balance ответ на запрос баланса кредитов.
type Balance struct {
	Credits int  `json:"credits"`
	IsAdmin bool `json:"is_admin"`
}

// PlanChange описывает изменение подписки, которое применяет обработчик платежей.
type PlanChange struct {
	UserID               string
	Tier                 Tier
	Status               Status
	PlanExpiry           time.Time
	StripeCustomerID     string
	StripeSubscriptionID string
	RazorpayPaymentID    string
}
