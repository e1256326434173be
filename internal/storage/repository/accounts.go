package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shortsos/shortsos/internal/models"
	"github.com/shortsos/shortsos/internal/storage"
)

const accountColumns = `user_id, email, subscription_tier, subscription_status, plan_expiry,
	is_admin, credits, stripe_customer_id, stripe_subscription_id, razorpay_payment_id,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var (
		a                                 models.Account
		email, customer, sub, razorpayPay sql.NullString
		expiry                            sql.NullTime
	)
	if err := row.Scan(&a.UserID, &email, &a.SubscriptionTier, &a.SubscriptionStatus, &expiry,
		&a.IsAdmin, &a.Credits, &customer, &sub, &razorpayPay, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Email = email.String
	a.StripeCustomerID = customer.String
	a.StripeSubscriptionID = sub.String
	a.RazorpayPaymentID = razorpayPay.String
	if expiry.Valid {
		t := expiry.Time.UTC()
		a.PlanExpiry = &t
	}
	return &a, nil
}

// EnsureAccount создаёт аккаунт, если его ещё нет. Возвращает true, если запись создана.
// Конфликт по user_id считается успешным идемпотентным результатом.
func (s *Storage) EnsureAccount(ctx context.Context, userID, email string) (bool, error) {
	const op = "storage.EnsureAccount"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO accounts (user_id, email, credits)
			  VALUES ($1, NULLIF($2, ''), $3)
			  ON CONFLICT DO NOTHING`
	res, err := s.DB.ExecContext(ctx, query, userID, email, models.DefaultCredits)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if n == 1 {
		return true, nil
	}

	// Конфликт мог случиться по email, занятому другим аккаунтом.
	res, err = s.DB.ExecContext(ctx, `INSERT INTO accounts (user_id, credits)
			  VALUES ($1, $2)
			  ON CONFLICT (user_id) DO NOTHING`, userID, models.DefaultCredits)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err = res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n == 1, nil
}

// GetAccount возвращает аккаунт по идентификатору пользователя.
func (s *Storage) GetAccount(ctx context.Context, userID string) (*models.Account, error) {
	const op = "storage.GetAccount"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1`
	acc, err := scanAccount(s.DB.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return acc, nil
}

// GetAccountByStripeCustomer ищет аккаунт по идентификатору клиента Stripe.
func (s *Storage) GetAccountByStripeCustomer(ctx context.Context, customerID string) (*models.Account, error) {
	const op = "storage.GetAccountByStripeCustomer"

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE stripe_customer_id = $1 LIMIT 1`
	acc, err := scanAccount(s.DB.QueryRowContext(ctx, query, customerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return acc, nil
}

// GetAccountByStripeSubscription ищет аккаунт по идентификатору подписки Stripe.
func (s *Storage) GetAccountByStripeSubscription(ctx context.Context, subscriptionID string) (*models.Account, error) {
	const op = "storage.GetAccountByStripeSubscription"

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE stripe_subscription_id = $1 LIMIT 1`
	acc, err := scanAccount(s.DB.QueryRowContext(ctx, query, subscriptionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return acc, nil
}

// ApplyPlanChange записывает уровень, статус и срок действия плана.
// Пустые внешние идентификаторы не затирают сохранённые.
func (s *Storage) ApplyPlanChange(ctx context.Context, change models.PlanChange) error {
	const op = "storage.ApplyPlanChange"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if err := applyPlanChange(ctx, s.DB, change); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func applyPlanChange(ctx context.Context, db execer, change models.PlanChange) error {
	query := `UPDATE accounts
			  SET subscription_tier = $2,
			      subscription_status = $3,
			      plan_expiry = $4,
			      stripe_customer_id = COALESCE(NULLIF($5, ''), stripe_customer_id),
			      stripe_subscription_id = COALESCE(NULLIF($6, ''), stripe_subscription_id),
			      razorpay_payment_id = COALESCE(NULLIF($7, ''), razorpay_payment_id),
			      updated_at = NOW()
			  WHERE user_id = $1`
	res, err := db.ExecContext(ctx, query, change.UserID, change.Tier, change.Status, change.PlanExpiry,
		change.StripeCustomerID, change.StripeSubscriptionID, change.RazorpayPaymentID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ConfirmActive подтверждает активность платного плана после очередного списания.
// Уровень не меняется, срок действия только продлевается.
func (s *Storage) ConfirmActive(ctx context.Context, userID string, expiry time.Time) error {
	const op = "storage.ConfirmActive"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE accounts
			  SET subscription_status = 'active',
			      plan_expiry = GREATEST(COALESCE(plan_expiry, $2), $2),
			      updated_at = NOW()
			  WHERE user_id = $1 AND subscription_tier <> 'free'`
	if _, err := s.DB.ExecContext(ctx, query, userID, expiry); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DowngradeToFree переводит аккаунт на бесплатный уровень после удаления подписки у провайдера.
func (s *Storage) DowngradeToFree(ctx context.Context, userID string) error {
	const op = "storage.DowngradeToFree"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE accounts
			  SET subscription_tier = 'free',
			      subscription_status = 'cancelled',
			      stripe_subscription_id = NULL,
			      updated_at = NOW()
			  WHERE user_id = $1`
	res, err := s.DB.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return nil
}

// CancelSubscription помечает подписку отменённой, не трогая plan_expiry.
func (s *Storage) CancelSubscription(ctx context.Context, userID string) error {
	const op = "storage.CancelSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE accounts
			  SET subscription_status = 'cancelled',
			      updated_at = NOW()
			  WHERE user_id = $1`
	res, err := s.DB.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return nil
}

// GrantPlanByEmail находит или создаёт аккаунт по email и выдаёт ему план.
// credits == nil оставляет баланс без изменений.
func (s *Storage) GrantPlanByEmail(ctx context.Context, email, newUserID string, tier models.Tier,
	expiry time.Time, credits *int) (*models.Account, error) {
	const op = "storage.GrantPlanByEmail"

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rollback(tx)

	if _, err = tx.ExecContext(ctx, `INSERT INTO accounts (user_id, email, credits)
			  VALUES ($1, $2, $3)
			  ON CONFLICT (email) DO NOTHING`, newUserID, email, models.DefaultCredits); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `UPDATE accounts
			  SET subscription_tier = $2,
			      subscription_status = 'active',
			      plan_expiry = $3,
			      credits = COALESCE($4, credits),
			      updated_at = NOW()
			  WHERE email = $1
			  RETURNING ` + accountColumns
	acc, err := scanAccount(tx.QueryRowContext(ctx, query, email, tier, expiry, credits))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return acc, nil
}

// FindPlansExpiringBetween возвращает платные аккаунты, план которых истекает в интервале [from, to).
func (s *Storage) FindPlansExpiringBetween(ctx context.Context, from, to time.Time) ([]*models.Account, error) {
	const op = "storage.FindPlansExpiringBetween"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + accountColumns + `
			  FROM accounts
			  WHERE subscription_tier <> 'free'
			    AND is_admin = false
			    AND email IS NOT NULL
			    AND plan_expiry >= $1 AND plan_expiry < $2`
	rows, err := s.DB.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, acc)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
