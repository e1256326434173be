// Package credits реализует журнал кредитов: списание стоимости функции
// с баланса бесплатного аккаунта и учёт безлимитного использования платными.
package credits

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shortsos/shortsos/internal/apperr"
	"github.com/shortsos/shortsos/internal/features"
	"github.com/shortsos/shortsos/internal/lib/sl"
	"github.com/shortsos/shortsos/internal/models"
	"github.com/shortsos/shortsos/internal/plan"
	"github.com/shortsos/shortsos/internal/storage"
)

var (
	// ErrInvalidFeature функция отсутствует в таблице стоимости.
	ErrInvalidFeature = apperr.Input("unknown feature")
	// ErrProfileMissing у пользователя ещё нет аккаунта.
	ErrProfileMissing = fmt.Errorf("account profile missing: %w", apperr.ErrNotFound)
)

// InsufficientCreditsError возвращается, когда баланса не хватает на списание.
type InsufficientCreditsError struct {
	CreditsRemaining int
	CreditsNeeded    int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: have %d, need %d", e.CreditsRemaining, e.CreditsNeeded)
}

// Unwrap относит ошибку к отказу в доступе.
func (e *InsufficientCreditsError) Unwrap() error { return apperr.ErrInsufficientEntitlement }

// Repository методы хранилища, нужные журналу.
type Repository interface {
	GetAccount(ctx context.Context, userID string) (*models.Account, error)
	DeductCredits(ctx context.Context, userID, feature string, cost int) (int, error)
	LogCreditTransaction(ctx context.Context, t models.CreditTransaction) error
	ListCreditTransactions(ctx context.Context, userID string, limit, offset int) ([]*models.CreditTransaction, error)
}

// Service журнал кредитов.
type Service struct {
	repo Repository
	log  *slog.Logger
	now  func() time.Time
}

// NewService создаёт журнал кредитов.
func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
		now:  time.Now,
	}
}

// UseCredits списывает стоимость функции. Платный аккаунт получает
// безлимитный результат с записью нулевой стоимости, баланс не меняется.
// Списание с бесплатного аккаунта атомарно: баланс не уходит в минус
// при одновременных запросах.
func (s *Service) UseCredits(ctx context.Context, userID, feature string) (*models.CreditResult, error) {
	const op = "credits.UseCredits"
	log := s.log.With(slog.String("op", op), sl.UserID(userID), sl.Feature(feature))

	cost, ok := features.Cost(feature)
	if !ok {
		return nil, ErrInvalidFeature
	}

	acc, err := s.repo.GetAccount(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrProfileMissing
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if plan.IsPaid(acc, s.now()) {
		err := s.repo.LogCreditTransaction(ctx, models.CreditTransaction{
			UserID:           userID,
			Feature:          feature,
			CreditsUsed:      0,
			CreditsRemaining: models.UnlimitedCredits,
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		log.Debug("unlimited usage logged")
		return &models.CreditResult{
			Success:          true,
			Unlimited:        true,
			CreditsRemaining: models.UnlimitedCredits,
		}, nil
	}

	remaining, err := s.repo.DeductCredits(ctx, userID, feature, cost)
	switch {
	case errors.Is(err, storage.ErrInsufficientCredits):
		log.Info("insufficient credits", slog.Int("balance", remaining), slog.Int("cost", cost))
		return nil, &InsufficientCreditsError{CreditsRemaining: remaining, CreditsNeeded: cost}
	case errors.Is(err, storage.ErrNotFound):
		return nil, ErrProfileMissing
	case err != nil:
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("credits deducted", slog.Int("cost", cost), slog.Int("remaining", remaining))
	return &models.CreditResult{
		Success:          true,
		CreditsUsed:      cost,
		CreditsRemaining: remaining,
	}, nil
}

// Balance возвращает текущий баланс.
func (s *Service) Balance(ctx context.Context, userID string) (*models.Balance, error) {
	const op = "credits.Balance"
	acc, err := s.repo.GetAccount(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrProfileMissing
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &models.Balance{Credits: acc.Credits, IsAdmin: acc.IsAdmin}, nil
}

// History возвращает последние записи журнала, новые первыми.
func (s *Service) History(ctx context.Context, userID string, limit, offset int) ([]*models.CreditTransaction, error) {
	const op = "credits.History"
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	list, err := s.repo.ListCreditTransactions(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}
