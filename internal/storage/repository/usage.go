package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/shortsos/shortsos/internal/models"
)

// CountUsage считает записи использования функции в интервале [from, to).
func (s *Storage) CountUsage(ctx context.Context, userID, feature string, from, to time.Time) (int, error) {
	const op = "storage.CountUsage"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT COUNT(*)
			  FROM usage_records
			  WHERE user_id = $1 AND feature = $2
			    AND created_at >= $3 AND created_at < $4`
	var count int
	if err := s.DB.QueryRowContext(ctx, query, userID, feature, from, to).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// RecordUsage добавляет запись использования. Повтор непустого ключа идемпотентности
// не создаёт новую запись; в этом случае возвращается false.
func (s *Storage) RecordUsage(ctx context.Context, rec models.UsageRecord) (bool, error) {
	const op = "storage.RecordUsage"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO usage_records (user_id, feature, usage_date, idempotency_key, created_at)
			  VALUES ($1, $2, $3, NULLIF($4, ''), $5)
			  ON CONFLICT (user_id, feature, idempotency_key) DO NOTHING`
	res, err := s.DB.ExecContext(ctx, query, rec.UserID, rec.Feature, rec.UsageDate,
		rec.IdempotencyKey, rec.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n == 1, nil
}
