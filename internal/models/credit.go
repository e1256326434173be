package models

import "time"

// UnlimitedCredits значение остатка для платных аккаунтов.
const UnlimitedCredits = -1

// CreditTransaction неизменяемая запись журнала списаний.
type CreditTransaction struct {
	ID               int64     `json:"id"`
	UserID           string    `json:"user_id"`
	Feature          string    `json:"feature"`
	CreditsUsed      int       `json:"credits_used"`
	CreditsRemaining int       `json:"credits_remaining"`
	CreatedAt        time.Time `json:"created_at"`
}

// CreditResult результат успешного списания.
type CreditResult struct {
	Success          bool `json:"success"`
	Unlimited        bool `json:"unlimited"`
	CreditsUsed      int  `json:"creditsUsed"`
	CreditsRemaining int  `json:"creditsRemaining"`
}
