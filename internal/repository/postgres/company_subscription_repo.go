// internal/repository/postgres/company_subscription_repository.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"talenthub-service/internal/domain/subscription"
	xerrors "talenthub-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CompanySubscriptionRepository struct {
	db *pgxpool.Pool
}

func NewCompanySubscriptionRepository(db *pgxpool.Pool) *CompanySubscriptionRepository {
	return &CompanySubscriptionRepository{db: db}
}

const subscriptionColumns = `
	id, company_id, plan_id, status, start_date, end_date,
	cancelled_at, cancel_reason, created_at, updated_at
`

func scanSubscription(row pgx.Row) (*subscription.CompanySubscription, error) {
	var sub subscription.CompanySubscription
	err := row.Scan(
		&sub.ID, &sub.CompanyID, &sub.PlanID, &sub.Status, &sub.StartDate, &sub.EndDate,
		&sub.CancelledAt, &sub.CancelReason, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// CreateWithTx creates a subscription within a transaction
func (r *CompanySubscriptionRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, sub *subscription.CompanySubscription) error {
	query := `
		INSERT INTO company_subscriptions (company_id, plan_id, status, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := tx.QueryRow(
		ctx, query,
		sub.CompanyID, sub.PlanID, sub.Status, sub.StartDate, sub.EndDate,
	).Scan(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	return nil
}

// FindActiveByCompany retrieves the company's current subscription: the most
// recent ACTIVE row. The lifecycle guarantees at most one matches.
func (r *CompanySubscriptionRepository) FindActiveByCompany(ctx context.Context, companyID int64) (*subscription.CompanySubscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM company_subscriptions
		WHERE company_id = $1 AND status = 'active'
		ORDER BY created_at DESC
		LIMIT 1
	`

	sub, err := scanSubscription(r.db.QueryRow(ctx, query, companyID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNoActiveSubscription
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active subscription: %w", err)
	}

	return sub, nil
}

// CancelActiveWithTx marks the company's current ACTIVE subscription
// cancelled. Zero rows affected is not an error here; assignment calls this
// unconditionally before inserting the replacement.
func (r *CompanySubscriptionRepository) CancelActiveWithTx(ctx context.Context, tx pgx.Tx, companyID int64, reason string) (int64, error) {
	query := `
		UPDATE company_subscriptions
		SET status = 'cancelled', cancelled_at = NOW(), cancel_reason = $2, updated_at = NOW()
		WHERE company_id = $1 AND status = 'active'
	`

	result, err := tx.Exec(ctx, query, companyID, reason)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel active subscription: %w", err)
	}

	return result.RowsAffected(), nil
}

// Cancel marks a specific subscription cancelled.
func (r *CompanySubscriptionRepository) Cancel(ctx context.Context, id int64, reason string) error {
	query := `
		UPDATE company_subscriptions
		SET status = 'cancelled', cancelled_at = NOW(), cancel_reason = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'active'
	`

	result, err := r.db.Exec(ctx, query, id, reason)
	if err != nil {
		return fmt.Errorf("failed to cancel subscription: %w", err)
	}

	if result.RowsAffected() == 0 {
		return xerrors.ErrNoActiveSubscription
	}

	return nil
}

// AdvancePeriodWithTx pushes the billing window forward one period.
func (r *CompanySubscriptionRepository) AdvancePeriodWithTx(ctx context.Context, tx pgx.Tx, id int64, newEndDate time.Time) error {
	query := `
		UPDATE company_subscriptions
		SET end_date = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'active'
	`

	result, err := tx.Exec(ctx, query, id, newEndDate)
	if err != nil {
		return fmt.Errorf("failed to advance subscription period: %w", err)
	}

	if result.RowsAffected() == 0 {
		return xerrors.ErrNoActiveSubscription
	}

	return nil
}

// FindExpiredActive returns ACTIVE subscriptions whose period has lapsed.
func (r *CompanySubscriptionRepository) FindExpiredActive(ctx context.Context) ([]subscription.CompanySubscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM company_subscriptions
		WHERE status = 'active' AND end_date <= NOW()
		ORDER BY end_date ASC
	`
	return r.querySubscriptions(ctx, query)
}

// FindUpcomingRenewals returns ACTIVE subscriptions whose period ends within
// daysAhead, for renewal-upcoming notifications.
func (r *CompanySubscriptionRepository) FindUpcomingRenewals(ctx context.Context, daysAhead int) ([]subscription.CompanySubscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM company_subscriptions
		WHERE status = 'active'
		  AND end_date > NOW()
		  AND end_date <= NOW() + ($1 * INTERVAL '1 day')
		ORDER BY end_date ASC
	`
	return r.querySubscriptions(ctx, query, daysAhead)
}

func (r *CompanySubscriptionRepository) querySubscriptions(ctx context.Context, query string, args ...any) ([]subscription.CompanySubscription, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []subscription.CompanySubscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, *sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read subscriptions: %w", err)
	}

	return subs, nil
}
