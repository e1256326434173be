package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shortsos/shortsos/internal/models"
	"github.com/shortsos/shortsos/internal/storage"
)

// DeductCredits атомарно списывает cost кредитов и пишет запись в журнал.
//
// Списание выполняется одним условным UPDATE, поэтому параллельные запросы
// не могут увести баланс в минус. Если кредитов не хватает, возвращается
// текущий баланс и storage.ErrInsufficientCredits.
func (s *Storage) DeductCredits(ctx context.Context, userID, feature string, cost int) (int, error) {
	const op = "storage.DeductCredits"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer rollback(tx)

	var remaining int
	err = tx.QueryRowContext(ctx, `UPDATE accounts
			  SET credits = credits - $2,
			      updated_at = NOW()
			  WHERE user_id = $1 AND credits >= $2
			  RETURNING credits`, userID, cost).Scan(&remaining)
	if errors.Is(err, sql.ErrNoRows) {
		var balance int
		err = tx.QueryRowContext(ctx, `SELECT credits FROM accounts WHERE user_id = $1`, userID).Scan(&balance)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}
		if err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
		return balance, fmt.Errorf("%s: %w", op, storage.ErrInsufficientCredits)
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if _, err = tx.ExecContext(ctx, `INSERT INTO credit_transactions (user_id, feature, credits_used, credits_remaining)
			  VALUES ($1, $2, $3, $4)`, userID, feature, cost, remaining); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return remaining, nil
}

// LogCreditTransaction добавляет запись в журнал без изменения баланса.
func (s *Storage) LogCreditTransaction(ctx context.Context, t models.CreditTransaction) error {
	const op = "storage.LogCreditTransaction"

	query := `INSERT INTO credit_transactions (user_id, feature, credits_used, credits_remaining)
			  VALUES ($1, $2, $3, $4)`
	if _, err := s.DB.ExecContext(ctx, query, t.UserID, t.Feature, t.CreditsUsed, t.CreditsRemaining); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListCreditTransactions возвращает журнал списаний пользователя, новые записи первыми.
func (s *Storage) ListCreditTransactions(ctx context.Context, userID string, limit, offset int) ([]*models.CreditTransaction, error) {
	const op = "storage.ListCreditTransactions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_id, feature, credits_used, credits_remaining, created_at
			  FROM credit_transactions
			  WHERE user_id = $1
			  ORDER BY created_at DESC, id DESC
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.CreditTransaction
	for rows.Next() {
		var t models.CreditTransaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Feature, &t.CreditsUsed, &t.CreditsRemaining, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
