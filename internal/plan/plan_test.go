package plan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shortsos/shortsos/internal/models"
)

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func at(d time.Duration) *time.Time {
	t := now.Add(d)
	return &t
}

func TestIsPaid(t *testing.T) {
	tests := []struct {
		name string
		acc  *models.Account
		want bool
	}{
		{
			name: "админ без подписки",
			acc:  &models.Account{IsAdmin: true, SubscriptionTier: models.TierFree, SubscriptionStatus: models.StatusInactive},
			want: true,
		},
		{
			name: "админ с истёкшим планом",
			acc:  &models.Account{IsAdmin: true, SubscriptionTier: models.TierPro, SubscriptionStatus: models.StatusActive, PlanExpiry: at(-time.Hour)},
			want: true,
		},
		{
			name: "активный план в будущем",
			acc:  &models.Account{SubscriptionTier: models.TierPro, SubscriptionStatus: models.StatusActive, PlanExpiry: at(time.Hour)},
			want: true,
		},
		{
			name: "активный план истёк",
			acc:  &models.Account{SubscriptionTier: models.TierPro, SubscriptionStatus: models.StatusActive, PlanExpiry: at(-time.Second)},
			want: false,
		},
		{
			name: "активный план без даты окончания",
			acc:  &models.Account{SubscriptionTier: models.TierPro, SubscriptionStatus: models.StatusActive},
			want: false,
		},
		{
			name: "free всегда неоплачен",
			acc:  &models.Account{SubscriptionTier: models.TierFree, SubscriptionStatus: models.StatusActive, PlanExpiry: at(time.Hour)},
			want: false,
		},
		{
			name: "отменённый план до окончания",
			acc:  &models.Account{SubscriptionTier: models.TierStarter, SubscriptionStatus: models.StatusCancelled, PlanExpiry: at(10 * 24 * time.Hour)},
			want: true,
		},
		{
			name: "неактивный статус",
			acc:  &models.Account{SubscriptionTier: models.TierStarter, SubscriptionStatus: models.StatusInactive, PlanExpiry: at(time.Hour)},
			want: false,
		},
		{
			name: "nil аккаунт",
			acc:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPaid(tt.acc, now))
		})
	}
}

func TestTier(t *testing.T) {
	tests := []struct {
		name string
		acc  *models.Account
		want models.Tier
	}{
		{"неоплаченный аккаунт", &models.Account{SubscriptionTier: models.TierPro}, models.TierFree},
		{"алиас paid", &models.Account{SubscriptionTier: "paid", SubscriptionStatus: models.StatusActive, PlanExpiry: at(time.Hour)}, models.TierStarter},
		{"алиас operator", &models.Account{SubscriptionTier: "operator", SubscriptionStatus: models.StatusActive, PlanExpiry: at(time.Hour)}, models.TierAgency},
		{"неизвестный уровень", &models.Account{SubscriptionTier: "gold", SubscriptionStatus: models.StatusActive, PlanExpiry: at(time.Hour)}, models.TierFree},
		{"админ", &models.Account{IsAdmin: true}, models.TierAgency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tier(tt.acc, now))
		})
	}
}

func TestCanAccessTier(t *testing.T) {
	paid := func(tier models.Tier) *models.Account {
		return &models.Account{SubscriptionTier: tier, SubscriptionStatus: models.StatusActive, PlanExpiry: at(time.Hour)}
	}

	assert.True(t, CanAccessTier(paid(models.TierAgency), models.TierPro, now))
	assert.False(t, CanAccessTier(paid(models.TierStarter), models.TierPro, now))
	assert.True(t, CanAccessTier(&models.Account{}, models.TierFree, now))
	assert.True(t, CanAccessTier(&models.Account{IsAdmin: true}, models.TierAgency, now))

	order := []models.Tier{models.TierFree, models.TierStarter, models.TierPro, models.TierAgency}
	for i, have := range order {
		for j, need := range order {
			acc := paid(have)
			if have == models.TierFree {
				acc = &models.Account{SubscriptionTier: models.TierFree}
			}
			assert.Equal(t, i >= j, CanAccessTier(acc, need, now), "%s -> %s", have, need)
		}
	}
}

func TestDaysUntilExpiry(t *testing.T) {
	assert.Nil(t, DaysUntilExpiry(&models.Account{}, now))

	days := DaysUntilExpiry(&models.Account{PlanExpiry: at(36 * time.Hour)}, now)
	require.NotNil(t, days)
	assert.Equal(t, 2, *days)

	days = DaysUntilExpiry(&models.Account{PlanExpiry: at(-72 * time.Hour)}, now)
	require.NotNil(t, days)
	assert.Equal(t, 0, *days)

	days = DaysUntilExpiry(&models.Account{PlanExpiry: at(10 * 24 * time.Hour)}, now)
	require.NotNil(t, days)
	assert.Equal(t, 10, *days)
}

func TestParseTier(t *testing.T) {
	assert.Equal(t, models.TierPro, ParseTier(" PRO "))
	assert.Equal(t, models.TierStarter, ParseTier("paid"))
	assert.Equal(t, models.TierFree, ParseTier(""))
	assert.Equal(t, 3, Rank("operator"))
}
