// internal/repository/postgres/subscription_plan_repository.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"talenthub-service/internal/domain/subscription"
	xerrors "talenthub-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

type SubscriptionPlanRepository struct {
	db *pgxpool.Pool
}

func NewSubscriptionPlanRepository(db *pgxpool.Pool) *SubscriptionPlanRepository {
	return &SubscriptionPlanRepository{db: db}
}

const planColumns = `
	id, name, description, price, currency, max_active_jobs,
	featured_credits_monthly, homepage_credits_monthly, urgent_credits_monthly,
	features, is_active, display_order, created_at, updated_at
`

func scanPlan(row pgx.Row) (*subscription.SubscriptionPlan, error) {
	var plan subscription.SubscriptionPlan
	err := row.Scan(
		&plan.ID, &plan.Name, &plan.Description, &plan.Price, &plan.Currency, &plan.MaxActiveJobs,
		&plan.FeaturedCreditsMonthly, &plan.HomepageCreditsMonthly, &plan.UrgentCreditsMonthly,
		pq.Array(&plan.Features), &plan.IsActive, &plan.DisplayOrder, &plan.CreatedAt, &plan.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// Create creates a new subscription plan
func (r *SubscriptionPlanRepository) Create(ctx context.Context, plan *subscription.SubscriptionPlan) error {
	query := `
		INSERT INTO subscription_plans (
			name, description, price, currency, max_active_jobs,
			featured_credits_monthly, homepage_credits_monthly, urgent_credits_monthly,
			features, is_active, display_order
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		plan.Name, plan.Description, plan.Price, plan.Currency, plan.MaxActiveJobs,
		plan.FeaturedCreditsMonthly, plan.HomepageCreditsMonthly, plan.UrgentCreditsMonthly,
		pq.Array(plan.Features), plan.IsActive, plan.DisplayOrder,
	).Scan(&plan.ID, &plan.CreatedAt, &plan.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create subscription plan: %w", err)
	}

	return nil
}

// FindByID retrieves a subscription plan by ID
func (r *SubscriptionPlanRepository) FindByID(ctx context.Context, id int64) (*subscription.SubscriptionPlan, error) {
	query := `SELECT ` + planColumns + ` FROM subscription_plans WHERE id = $1`

	plan, err := scanPlan(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find subscription plan: %w", err)
	}

	return plan, nil
}

// ListActive retrieves active plans ordered for display
func (r *SubscriptionPlanRepository) ListActive(ctx context.Context) ([]subscription.SubscriptionPlan, error) {
	query := `
		SELECT ` + planColumns + `
		FROM subscription_plans
		WHERE is_active = TRUE
		ORDER BY display_order ASC, price ASC
	`

	return r.queryPlans(ctx, query)
}

// ListAll retrieves every plan for the admin catalog view
func (r *SubscriptionPlanRepository) ListAll(ctx context.Context) ([]subscription.SubscriptionPlan, error) {
	query := `SELECT ` + planColumns + ` FROM subscription_plans ORDER BY display_order ASC, id ASC`
	return r.queryPlans(ctx, query)
}

func (r *SubscriptionPlanRepository) queryPlans(ctx context.Context, query string, args ...any) ([]subscription.SubscriptionPlan, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query plans: %w", err)
	}
	defer rows.Close()

	var plans []subscription.SubscriptionPlan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, *plan)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read plans: %w", err)
	}

	return plans, nil
}

// Update updates a subscription plan
func (r *SubscriptionPlanRepository) Update(ctx context.Context, plan *subscription.SubscriptionPlan) error {
	query := `
		UPDATE subscription_plans
		SET name = $2, description = $3, price = $4, max_active_jobs = $5,
		    featured_credits_monthly = $6, homepage_credits_monthly = $7, urgent_credits_monthly = $8,
		    features = $9, is_active = $10, display_order = $11, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(
		ctx, query,
		plan.ID, plan.Name, plan.Description, plan.Price, plan.MaxActiveJobs,
		plan.FeaturedCreditsMonthly, plan.HomepageCreditsMonthly, plan.UrgentCreditsMonthly,
		pq.Array(plan.Features), plan.IsActive, plan.DisplayOrder,
	)
	if err != nil {
		return fmt.Errorf("failed to update subscription plan: %w", err)
	}

	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}

// Delete removes a plan. Deletion is blocked while any subscription or
// journal transaction still references it.
func (r *SubscriptionPlanRepository) Delete(ctx context.Context, id int64) error {
	var referenced bool
	guard := `
		SELECT EXISTS (SELECT 1 FROM company_subscriptions WHERE plan_id = $1)
		    OR EXISTS (SELECT 1 FROM transactions WHERE plan_id = $1)
	`
	if err := r.db.QueryRow(ctx, guard, id).Scan(&referenced); err != nil {
		return fmt.Errorf("failed to check plan references: %w", err)
	}
	if referenced {
		return xerrors.ErrPlanInUse
	}

	result, err := r.db.Exec(ctx, `DELETE FROM subscription_plans WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete subscription plan: %w", err)
	}

	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}
