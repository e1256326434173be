// Package plan вычисляет статус оплаты и уровень подписки по снимку аккаунта.
//
// Пакет не выполняет ввода-вывода: все функции принимают текущее время явно.
// Это единственное место, где определяется, является ли аккаунт платным.
package plan

import (
	"math"
	"strings"
	"time"

	"github.com/shortsos/shortsos/internal/models"
)

var ranks = map[models.Tier]int{
	models.TierFree:    0,
	models.TierStarter: 1,
	models.TierPro:     2,
	models.TierAgency:  3,
}

var aliases = map[string]models.Tier{
	"paid":     models.TierStarter,
	"operator": models.TierAgency,
}

// ParseTier нормализует значение уровня. Неизвестные значения дают free.
func ParseTier(raw string) models.Tier {
	v := strings.ToLower(strings.TrimSpace(raw))
	if t, ok := aliases[v]; ok {
		return t
	}
	t := models.Tier(v)
	if _, ok := ranks[t]; ok {
		return t
	}
	return models.TierFree
}

// Rank возвращает порядковый номер уровня: free < starter < pro < agency.
func Rank(t models.Tier) int {
	return ranks[ParseTier(string(t))]
}

// IsPaid сообщает, даёт ли аккаунт безлимитный доступ на момент now.
//
// Отменённая подписка остаётся оплаченной до plan_expiry.
func IsPaid(acc *models.Account, now time.Time) bool {
	if acc == nil {
		return false
	}
	if acc.IsAdmin {
		return true
	}
	if ParseTier(string(acc.SubscriptionTier)) == models.TierFree {
		return false
	}
	switch acc.SubscriptionStatus {
	case models.StatusActive, models.StatusCancelled:
	default:
		return false
	}
	return acc.PlanExpiry != nil && acc.PlanExpiry.After(now)
}

// Tier возвращает действующий уровень аккаунта.
func Tier(acc *models.Account, now time.Time) models.Tier {
	if !IsPaid(acc, now) {
		return models.TierFree
	}
	if acc.IsAdmin {
		return models.TierAgency
	}
	return ParseTier(string(acc.SubscriptionTier))
}

// CanAccessTier проверяет, покрывает ли действующий уровень аккаунта требуемый.
func CanAccessTier(acc *models.Account, required models.Tier, now time.Time) bool {
	if ParseTier(string(required)) == models.TierFree {
		return true
	}
	if acc != nil && acc.IsAdmin {
		return true
	}
	return Rank(Tier(acc, now)) >= Rank(required)
}

// DaysUntilExpiry возвращает число дней до окончания плана с округлением вверх,
// не меньше нуля. Для аккаунта без даты окончания возвращает nil.
func DaysUntilExpiry(acc *models.Account, now time.Time) *int {
	if acc == nil || acc.PlanExpiry == nil {
		return nil
	}
	days := int(math.Ceil(acc.PlanExpiry.Sub(now).Hours() / 24))
	if days < 0 {
		days = 0
	}
	return &days
}

// Summary собирает клиентское представление аккаунта.
func Summary(acc *models.Account, now time.Time) models.AccountSummary {
	return models.AccountSummary{
		UserID:          acc.UserID,
		Tier:            Tier(acc, now),
		Status:          acc.SubscriptionStatus,
		IsPaid:          IsPaid(acc, now),
		IsAdmin:         acc.IsAdmin,
		Credits:         acc.Credits,
		PlanExpiry:      acc.PlanExpiry,
		DaysUntilExpiry: DaysUntilExpiry(acc, now),
	}
}
