// Package notification напоминает об окончании плана и доставляет
// уведомления о смене подписки по почте.
package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shortsos/shortsos/internal/lib/sl"
	"github.com/shortsos/shortsos/internal/models"
	"github.com/shortsos/shortsos/internal/plan"
)

// ExpiringPlans источник платных аккаунтов с истекающим планом.
type ExpiringPlans interface {
	FindPlansExpiringBetween(ctx context.Context, from, to time.Time) ([]*models.Account, error)
}

// Publisher публикует уведомления в брокер.
type Publisher interface {
	Notify(ctx context.Context, n models.Notification) error
}

// Scheduler раз в interval ищет планы, которые закончатся через days дней.
type Scheduler struct {
	repo      ExpiringPlans
	publisher Publisher
	days      int
	interval  time.Duration
	log       *slog.Logger
	now       func() time.Time
}

// NewScheduler создает новый экземпляр Scheduler.
func NewScheduler(repo ExpiringPlans, publisher Publisher, days int, interval time.Duration, log *slog.Logger) *Scheduler {
	return &Scheduler{
		repo:      repo,
		publisher: publisher,
		days:      days,
		interval:  interval,
		log:       log,
		now:       time.Now,
	}
}

// Run выполняет проверку сразу и затем по тикеру, пока не отменён ctx.
func (s *Scheduler) Run(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil {
		s.log.Error("expiry check failed", sl.Err(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("expiry scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.log.Error("expiry check failed", sl.Err(err))
			}
		}
	}
}

// RunOnce публикует напоминания для планов, истекающих в окне
// [now+days, now+days+interval). Окна соседних запусков не пересекаются,
// поэтому каждый аккаунт получает одно напоминание. Возвращает число
// опубликованных сообщений.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	const op = "notification.Scheduler.RunOnce"

	now := s.now().UTC()
	from := now.Add(time.Duration(s.days) * 24 * time.Hour)
	to := from.Add(s.interval)

	s.log.Info("looking for expiring plans", slog.Time("from", from), slog.Time("to", to))
	accounts, err := s.repo.FindPlansExpiringBetween(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if len(accounts) == 0 {
		s.log.Info("no expiring plans found")
		return 0, nil
	}
	s.log.Info("found expiring plans", slog.Int("count", len(accounts)))

	published := 0
	for _, acc := range accounts {
		n := models.Notification{
			Kind:       models.NotificationPlanExpiring,
			UserID:     acc.UserID,
			Email:      acc.Email,
			Tier:       plan.ParseTier(string(acc.SubscriptionTier)),
			PlanExpiry: acc.PlanExpiry,
		}
		if days := plan.DaysUntilExpiry(acc, now); days != nil {
			n.DaysLeft = *days
		}
		if err := s.publisher.Notify(ctx, n); err != nil {
			s.log.Error("failed to publish message", sl.UserID(acc.UserID), sl.Err(err))
			continue
		}
		published++
	}
	return published, nil
}
