package repository

import (
	"context"
	"fmt"
)

// WebhookEventProcessed сообщает, было ли событие провайдера уже обработано.
func (s *Storage) WebhookEventProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	const op = "storage.WebhookEventProcessed"

	var exists bool
	err := s.DB.QueryRowContext(ctx, `SELECT EXISTS (
			  SELECT 1 FROM webhook_events WHERE provider = $1 AND event_id = $2
			  )`, provider, eventID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// MarkWebhookEventProcessed фиксирует успешную обработку события. Повторная отметка не ошибка.
func (s *Storage) MarkWebhookEventProcessed(ctx context.Context, provider, eventID, eventType string) error {
	const op = "storage.MarkWebhookEventProcessed"

	query := `INSERT INTO webhook_events (provider, event_id, event_type)
			  VALUES ($1, $2, $3)
			  ON CONFLICT (provider, event_id) DO NOTHING`
	if _, err := s.DB.ExecContext(ctx, query, provider, eventID, eventType); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// MarkStripeSubscriptionDeleted запоминает, что подписка Stripe удалена.
// Отметка не зависит от того, связан ли уже аккаунт с подпиской.
func (s *Storage) MarkStripeSubscriptionDeleted(ctx context.Context, subscriptionID string) error {
	const op = "storage.MarkStripeSubscriptionDeleted"

	query := `INSERT INTO stripe_deleted_subscriptions (subscription_id)
			  VALUES ($1)
			  ON CONFLICT (subscription_id) DO NOTHING`
	if _, err := s.DB.ExecContext(ctx, query, subscriptionID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// StripeSubscriptionDeleted сообщает, приходило ли удаление подписки.
func (s *Storage) StripeSubscriptionDeleted(ctx context.Context, subscriptionID string) (bool, error) {
	const op = "storage.StripeSubscriptionDeleted"

	var exists bool
	err := s.DB.QueryRowContext(ctx, `SELECT EXISTS (
			  SELECT 1 FROM stripe_deleted_subscriptions WHERE subscription_id = $1
			  )`, subscriptionID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}
