// Package usage считает дневное использование функций бесплатными аккаунтами.
// Сутки отсчитываются от полуночи UTC.
package usage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shortsos/shortsos/internal/apperr"
	"github.com/shortsos/shortsos/internal/features"
	"github.com/shortsos/shortsos/internal/lib/sl"
	"github.com/shortsos/shortsos/internal/models"
	"github.com/shortsos/shortsos/internal/plan"
)

// ErrInvalidFeature у функции нет дневного лимита.
var ErrInvalidFeature = apperr.Input("feature has no daily limit")

// Repository методы хранилища записей использования.
type Repository interface {
	CountUsage(ctx context.Context, userID, feature string, from, to time.Time) (int, error)
	RecordUsage(ctx context.Context, rec models.UsageRecord) (bool, error)
}

// Service счётчик дневного использования.
type Service struct {
	repo Repository
	log  *slog.Logger
	now  func() time.Time
}

// NewService создаёт счётчик.
func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
		now:  time.Now,
	}
}

// UTCDay возвращает окно [00:00 UTC текущих суток, 00:00 UTC следующих).
func UTCDay(now time.Time) (time.Time, time.Time) {
	n := now.UTC()
	start := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// CheckUsage проверяет дневной лимит функции для аккаунта. Платные и
// администраторы получают безлимитный ответ без обращения к хранилищу.
// Ошибка чтения не блокирует пользователя: ответ считается разрешающим
// с полным остатком.
func (s *Service) CheckUsage(ctx context.Context, acc *models.Account, feature string) (*models.UsageStatus, error) {
	const op = "usage.CheckUsage"

	limit, ok := features.DailyLimit(feature)
	if !ok {
		return nil, ErrInvalidFeature
	}

	now := s.now()
	if plan.IsPaid(acc, now) {
		return &models.UsageStatus{
			Allowed:   true,
			Remaining: models.UnlimitedCredits,
			Limit:     limit,
			IsPaid:    true,
			IsAdmin:   acc.IsAdmin,
		}, nil
	}

	from, to := UTCDay(now)
	used, err := s.repo.CountUsage(ctx, acc.UserID, feature, from, to)
	if err != nil {
		s.log.Warn("usage count failed, allowing request",
			slog.String("op", op), sl.UserID(acc.UserID), sl.Feature(feature), sl.Err(err))
		return &models.UsageStatus{Allowed: true, Remaining: limit, Limit: limit}, nil
	}

	return &models.UsageStatus{
		Allowed:   used < limit,
		Remaining: max(0, limit-used),
		Limit:     limit,
		Used:      used,
	}, nil
}

// RecordUsage добавляет запись использования за текущие сутки. Повтор
// непустого idempotencyKey не создаёт вторую запись; recorded тогда false.
func (s *Service) RecordUsage(ctx context.Context, userID, feature, idempotencyKey string) (bool, error) {
	const op = "usage.RecordUsage"

	if _, ok := features.DailyLimit(feature); !ok {
		return false, ErrInvalidFeature
	}

	now := s.now().UTC()
	day, _ := UTCDay(now)
	recorded, err := s.repo.RecordUsage(ctx, models.UsageRecord{
		UserID:         userID,
		Feature:        feature,
		UsageDate:      day,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      now,
	})
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if !recorded {
		s.log.Info("usage already recorded", slog.String("op", op), sl.UserID(userID), sl.Feature(feature))
	}
	return recorded, nil
}
