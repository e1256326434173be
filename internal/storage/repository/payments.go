package repository

import (
	"context"
	"fmt"

	"github.com/shortsos/shortsos/internal/models"
	"github.com/shortsos/shortsos/internal/storage"
)

// SavePaymentAndApplyPlan в одной транзакции сохраняет платёж и применяет изменение плана.
//
// Если платёж с таким payment_id уже есть, ничего не меняется и возвращается
// storage.ErrAlreadyExists: повторная доставка считается уже обработанной.
func (s *Storage) SavePaymentAndApplyPlan(ctx context.Context, p models.Payment, change models.PlanChange) error {
	const op = "storage.SavePaymentAndApplyPlan"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer rollback(tx)

	query := `INSERT INTO payments (user_id, provider, payment_id, order_id, plan, amount, currency, status)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			  ON CONFLICT (payment_id) DO NOTHING`
	res, err := tx.ExecContext(ctx, query, p.UserID, p.Provider, p.PaymentID, p.OrderID,
		p.Plan, p.Amount, p.Currency, p.Status)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}

	if err = applyPlanChange(ctx, tx, change); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CountSuccessfulPayments возвращает число успешных платежей пользователя.
func (s *Storage) CountSuccessfulPayments(ctx context.Context, userID string) (int, error) {
	const op = "storage.CountSuccessfulPayments"

	query := `SELECT COUNT(*) FROM payments
			  WHERE user_id = $1 AND status IN ('captured', 'authorized', 'paid')`
	var count int
	if err := s.DB.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// ListPayments возвращает платежи пользователя, новые первыми.
func (s *Storage) ListPayments(ctx context.Context, userID string) ([]*models.Payment, error) {
	const op = "storage.ListPayments"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_id, provider, payment_id, order_id, plan, amount, currency, status, created_at
			  FROM payments
			  WHERE user_id = $1
			  ORDER BY created_at DESC`
	rows, err := s.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Payment
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.UserID, &p.Provider, &p.PaymentID, &p.OrderID, &p.Plan,
			&p.Amount, &p.Currency, &p.Status, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
