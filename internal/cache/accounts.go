package cache

import (
	"context"
	"time"

	"github.com/shortsos/shortsos/internal/models"
)

// AccountKey ключ кэша аккаунта.
func AccountKey(userID string) string {
	return "account:" + userID
}

// Accounts кэш строк аккаунтов поверх Cache.
type Accounts struct {
	cache *Cache
	ttl   time.Duration
}

// NewAccounts создаёт кэш аккаунтов с временем жизни ttl.
func NewAccounts(c *Cache, ttl time.Duration) *Accounts {
	return &Accounts{cache: c, ttl: ttl}
}

// GetAccount возвращает аккаунт из кэша. nil без ошибки означает промах.
func (a *Accounts) GetAccount(ctx context.Context, userID string) (*models.Account, error) {
	var acc models.Account
	found, err := a.cache.Get(ctx, AccountKey(userID), &acc)
	if err != nil || !found {
		return nil, err
	}
	return &acc, nil
}

// SetAccount кладёт аккаунт в кэш.
func (a *Accounts) SetAccount(ctx context.Context, acc *models.Account) error {
	return a.cache.Set(ctx, AccountKey(acc.UserID), acc, a.ttl)
}

// InvalidateAccount удаляет аккаунт из кэша.
func (a *Accounts) InvalidateAccount(ctx context.Context, userID string) error {
	return a.cache.Invalidate(ctx, AccountKey(userID))
}
