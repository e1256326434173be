package models

// Decision единый ответ шлюза доступа к функции.
//
// Remaining равен -1 для безлимитного доступа. При отказе RequiresUpgrade
// вместе с CurrentTier и RequiredTier подсказывают клиенту, какой план нужен.
type Decision struct {
	Allowed         bool   `json:"allowed"`
	Feature         string `json:"feature"`
	Strategy        string `json:"strategy"`
	Remaining       int    `json:"remaining"`
	Limit           int    `json:"limit,omitempty"`
	CreditsUsed     int    `json:"creditsUsed,omitempty"`
	CreditsNeeded   int    `json:"creditsNeeded,omitempty"`
	IsPaid          bool   `json:"isPaid"`
	IsAdmin         bool   `json:"isAdmin"`
	RequiresUpgrade bool   `json:"requiresUpgrade"`
	CurrentTier     Tier   `json:"currentTier"`
	RequiredTier    Tier   `json:"requiredTier,omitempty"`
}
