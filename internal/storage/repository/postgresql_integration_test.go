package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shortsos/shortsos/internal/models"
	"github.com/shortsos/shortsos/internal/storage"
)

func TestStorage_EnsureAccount(t *testing.T) {
	s, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	created, err := s.EnsureAccount(ctx, "user-1", "a@example.com")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.EnsureAccount(ctx, "user-1", "a@example.com")
	require.NoError(t, err)
	assert.False(t, created)

	created, err = s.EnsureAccount(ctx, "user-2", "a@example.com")
	require.NoError(t, err)
	assert.True(t, created, "email taken by another account must not block creation")

	acc, err := s.GetAccount(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultCredits, acc.Credits)
	assert.Equal(t, models.TierFree, acc.SubscriptionTier)
	assert.Equal(t, models.StatusInactive, acc.SubscriptionStatus)

	_, err = s.GetAccount(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStorage_DeductCredits(t *testing.T) {
	s, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()
	v := &TestVerification{storage: s}

	_, err := s.EnsureAccount(ctx, "user-1", "")
	require.NoError(t, err)

	for range 5 {
		_, err = s.DeductCredits(ctx, "user-1", "planner", 2)
		require.NoError(t, err)
	}
	assert.Equal(t, 90, v.credits(t, "user-1"))
	assert.Equal(t, 5, v.count(t, `SELECT COUNT(*) FROM credit_transactions WHERE user_id = $1 AND credits_used = 2`, "user-1"))

	_, err = s.DB.Exec(`UPDATE accounts SET credits = 1 WHERE user_id = 'user-1'`)
	require.NoError(t, err)

	balance, err := s.DeductCredits(ctx, "user-1", "scripts", 4)
	assert.ErrorIs(t, err, storage.ErrInsufficientCredits)
	assert.Equal(t, 1, balance)
	assert.Equal(t, 1, v.credits(t, "user-1"))

	_, err = s.DeductCredits(ctx, "missing", "scripts", 4)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStorage_DeductCreditsConcurrent(t *testing.T) {
	s, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()
	v := &TestVerification{storage: s}

	_, err := s.EnsureAccount(ctx, "user-1", "")
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.DeductCredits(ctx, "user-1", "creator-audit", 15); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 6, success)
	assert.Equal(t, 10, v.credits(t, "user-1"))
}

func TestStorage_SavePaymentAndApplyPlan(t *testing.T) {
	s, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()
	v := &TestVerification{storage: s}

	_, err := s.EnsureAccount(ctx, "user-1", "")
	require.NoError(t, err)

	expiry := time.Now().Add(30 * 24 * time.Hour).UTC().Truncate(time.Second)
	payment := models.Payment{
		UserID: "user-1", Provider: models.ProviderRazorpay, PaymentID: "pay_1", OrderID: "order_1",
		Plan: models.TierPro, Amount: 99900, Currency: "INR", Status: "captured",
	}
	change := models.PlanChange{UserID: "user-1", Tier: models.TierPro, Status: models.StatusActive,
		PlanExpiry: expiry, RazorpayPaymentID: "pay_1"}

	require.NoError(t, s.SavePaymentAndApplyPlan(ctx, payment, change))
	err = s.SavePaymentAndApplyPlan(ctx, payment, change)
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	assert.Equal(t, 1, v.count(t, `SELECT COUNT(*) FROM payments WHERE payment_id = 'pay_1'`))

	acc, err := s.GetAccount(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.TierPro, acc.SubscriptionTier)
	assert.Equal(t, models.StatusActive, acc.SubscriptionStatus)
	require.NotNil(t, acc.PlanExpiry)
	assert.WithinDuration(t, expiry, *acc.PlanExpiry, time.Second)

	count, err := s.CountSuccessfulPayments(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStorage_CountUsageDayBoundary(t *testing.T) {
	s, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	today := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	records := []models.UsageRecord{
		{UserID: "user-1", Feature: "planner", UsageDate: today.AddDate(0, 0, -1), CreatedAt: today.Add(-time.Second)},
		{UserID: "user-1", Feature: "planner", UsageDate: today, CreatedAt: today},
		{UserID: "user-1", Feature: "planner", UsageDate: today, CreatedAt: today.Add(23 * time.Hour), IdempotencyKey: "k1"},
		{UserID: "user-1", Feature: "planner", UsageDate: today, CreatedAt: today.Add(23 * time.Hour), IdempotencyKey: "k1"},
	}
	for _, rec := range records {
		_, err := s.RecordUsage(ctx, rec)
		require.NoError(t, err)
	}

	count, err := s.CountUsage(ctx, "user-1", "planner", today, today.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestStorage_PlanLifecycle(t *testing.T) {
	s, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	_, err := s.EnsureAccount(ctx, "user-1", "u@example.com")
	require.NoError(t, err)

	expiry := time.Now().Add(10 * 24 * time.Hour).UTC()
	require.NoError(t, s.ApplyPlanChange(ctx, models.PlanChange{
		UserID: "user-1", Tier: models.TierStarter, Status: models.StatusActive, PlanExpiry: expiry,
		StripeCustomerID: "cus_1", StripeSubscriptionID: "sub_1",
	}))

	acc, err := s.GetAccountByStripeCustomer(ctx, "cus_1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", acc.UserID)

	require.NoError(t, s.CancelSubscription(ctx, "user-1"))
	acc, err = s.GetAccount(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, acc.SubscriptionStatus)
	require.NotNil(t, acc.PlanExpiry)
	assert.WithinDuration(t, expiry, *acc.PlanExpiry, time.Second)

	require.NoError(t, s.DowngradeToFree(ctx, "user-1"))
	acc, err = s.GetAccountByStripeCustomer(ctx, "cus_1")
	require.NoError(t, err)
	assert.Equal(t, models.TierFree, acc.SubscriptionTier)
	assert.Empty(t, acc.StripeSubscriptionID)

	require.NoError(t, s.ConfirmActive(ctx, "user-1", time.Now().Add(30*24*time.Hour)))
	acc, err = s.GetAccount(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, acc.SubscriptionStatus, "renewal must not revive a downgraded account")
}

func TestStorage_GrantPlanByEmail(t *testing.T) {
	s, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	credits := 500
	expiry := time.Now().AddDate(1, 0, 0)
	acc, err := s.GrantPlanByEmail(ctx, "ops@example.com", "generated-id", models.TierAgency, expiry, &credits)
	require.NoError(t, err)
	assert.Equal(t, "generated-id", acc.UserID)
	assert.Equal(t, 500, acc.Credits)

	acc, err = s.GrantPlanByEmail(ctx, "ops@example.com", "other-id", models.TierAgency, expiry, nil)
	require.NoError(t, err)
	assert.Equal(t, "generated-id", acc.UserID)
	assert.Equal(t, 500, acc.Credits)
	assert.Equal(t, models.TierAgency, acc.SubscriptionTier)
}

func TestStorage_WebhookEvents(t *testing.T) {
	s, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	done, err := s.WebhookEventProcessed(ctx, models.ProviderStripe, "evt_1")
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, s.MarkWebhookEventProcessed(ctx, models.ProviderStripe, "evt_1", "invoice.paid"))
	require.NoError(t, s.MarkWebhookEventProcessed(ctx, models.ProviderStripe, "evt_1", "invoice.paid"))

	done, err = s.WebhookEventProcessed(ctx, models.ProviderStripe, "evt_1")
	require.NoError(t, err)
	assert.True(t, done)
}

func TestStorage_StripeDeletedSubscriptions(t *testing.T) {
	s, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	deleted, err := s.StripeSubscriptionDeleted(ctx, "sub_1")
	require.NoError(t, err)
	assert.False(t, deleted)

	require.NoError(t, s.MarkStripeSubscriptionDeleted(ctx, "sub_1"))
	require.NoError(t, s.MarkStripeSubscriptionDeleted(ctx, "sub_1"))

	deleted, err = s.StripeSubscriptionDeleted(ctx, "sub_1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.StripeSubscriptionDeleted(ctx, "sub_2")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestCheckDatabaseReady(t *testing.T) {
	t.Run("миграции применены", func(t *testing.T) {
		s, cleanup := setupTestDatabase(t)
		defer cleanup()

		assert.NoError(t, CheckDatabaseReady(s))
	})

	t.Run("пустая база", func(t *testing.T) {
		s, cleanup := startTestPostgres(t)
		defer cleanup()

		err := CheckDatabaseReady(s)
		require.ErrorIs(t, err, ErrSchemaNotMigrated)
		assert.NotContains(t, err.Error(), "%!")
	})
}
