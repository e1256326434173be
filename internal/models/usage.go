package models

import "time"

// UsageRecord одна запись об использовании функции бесплатным пользователем.
type UsageRecord struct {
	ID             int64     `json:"id"`
	UserID         string    `json:"user_id"`
	Feature        string    `json:"feature"`
	UsageDate      time.Time `json:"usage_date"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// UsageStatus состояние дневного лимита по функции.
// Remaining равен -1 для безлимитных аккаунтов.
type UsageStatus struct {
	Allowed   bool `json:"allowed"`
	Remaining int  `json:"remaining"`
	Limit     int  `json:"limit"`
	Used      int  `json:"used"`
	IsPaid    bool `json:"isPaid"`
	IsAdmin   bool `json:"isAdmin"`
}

// FeatureRequest тело запросов, адресованных конкретной функции.
type FeatureRequest struct {
	Feature        string `json:"feature" validate:"required"`
	IdempotencyKey string `json:"idempotency_key,omitempty" validate:"omitempty,max=128"`
}
