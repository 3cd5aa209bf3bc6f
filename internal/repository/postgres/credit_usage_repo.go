// internal/repository/postgres/credit_usage_repository.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"talenthub-service/internal/domain/credit"
	xerrors "talenthub-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CreditUsageRepository struct {
	db *pgxpool.Pool
}

func NewCreditUsageRepository(db *pgxpool.Pool) *CreditUsageRepository {
	return &CreditUsageRepository{db: db}
}

const usageColumns = `
	id, company_id, job_id, balance_id, credit_type,
	duration_days, start_date, end_date, is_active,
	views, clicks, applications, created_at, updated_at
`

func scanUsage(row pgx.Row) (*credit.CreditUsage, error) {
	var u credit.CreditUsage
	err := row.Scan(
		&u.ID, &u.CompanyID, &u.JobID, &u.BalanceID, &u.Type,
		&u.DurationDays, &u.StartDate, &u.EndDate, &u.IsActive,
		&u.Views, &u.Clicks, &u.Applications, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateWithTx inserts a usage row inside the consume transaction.
func (r *CreditUsageRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, u *credit.CreditUsage) error {
	query := `
		INSERT INTO credit_usages (
			company_id, job_id, balance_id, credit_type,
			duration_days, start_date, end_date, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`

	err := tx.QueryRow(
		ctx, query,
		u.CompanyID, u.JobID, u.BalanceID, u.Type,
		u.DurationDays, u.StartDate, u.EndDate, u.IsActive,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create credit usage: %w", err)
	}

	return nil
}

// FindActiveByJobWithTx looks for a live usage of the given type on the job.
// Returns ErrNotFound when none exists.
func (r *CreditUsageRepository) FindActiveByJobWithTx(ctx context.Context, tx pgx.Tx, jobID int64, creditType credit.Type) (*credit.CreditUsage, error) {
	query := `
		SELECT ` + usageColumns + `
		FROM credit_usages
		WHERE job_id = $1 AND credit_type = $2 AND is_active = TRUE
		LIMIT 1
	`

	u, err := scanUsage(tx.QueryRow(ctx, query, jobID, creditType))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active usage: %w", err)
	}

	return u, nil
}

// DeactivateWithTx retires a single usage inside the consume transaction,
// freeing its (job, credit_type) slot before the replacement row is written.
func (r *CreditUsageRepository) DeactivateWithTx(ctx context.Context, tx pgx.Tx, id int64) error {
	query := `UPDATE credit_usages SET is_active = FALSE, updated_at = NOW() WHERE id = $1`

	if _, err := tx.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("failed to deactivate usage: %w", err)
	}

	return nil
}

// DeactivateExpired flips is_active off for every usage whose window has
// closed. Idempotent.
func (r *CreditUsageRepository) DeactivateExpired(ctx context.Context) (int64, error) {
	query := `
		UPDATE credit_usages
		SET is_active = FALSE, updated_at = NOW()
		WHERE is_active = TRUE AND end_date <= NOW()
	`

	result, err := r.db.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate expired usages: %w", err)
	}

	return result.RowsAffected(), nil
}

// AddEngagement increments the ROI counters for a usage.
func (r *CreditUsageRepository) AddEngagement(ctx context.Context, id int64, views, clicks, applications int) error {
	query := `
		UPDATE credit_usages
		SET views = views + $2, clicks = clicks + $3, applications = applications + $4,
		    updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query, id, views, clicks, applications)
	if err != nil {
		return fmt.Errorf("failed to add engagement: %w", err)
	}

	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}

// FindByID retrieves a usage row.
func (r *CreditUsageRepository) FindByID(ctx context.Context, id int64) (*credit.CreditUsage, error) {
	query := `SELECT ` + usageColumns + ` FROM credit_usages WHERE id = $1`

	u, err := scanUsage(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find credit usage: %w", err)
	}

	return u, nil
}

// ListByCompany retrieves usage rows for reporting, newest first.
func (r *CreditUsageRepository) ListByCompany(ctx context.Context, companyID int64, filters *credit.UsageListFilters) ([]credit.CreditUsage, int64, error) {
	conditions := []string{"company_id = $1"}
	args := []any{companyID}
	argPos := 2

	if filters.CreditType != "" {
		conditions = append(conditions, fmt.Sprintf("credit_type = $%d", argPos))
		args = append(args, filters.CreditType)
		argPos++
	}
	if filters.ActiveOnly {
		conditions = append(conditions, "is_active = TRUE")
	}

	where := strings.Join(conditions, " AND ")

	var total int64
	countQuery := `SELECT COUNT(*) FROM credit_usages WHERE ` + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count usages: %w", err)
	}

	offset := (filters.Page - 1) * filters.PageSize
	query := fmt.Sprintf(`
		SELECT %s FROM credit_usages
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, usageColumns, where, argPos, argPos+1)
	args = append(args, filters.PageSize, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list usages: %w", err)
	}
	defer rows.Close()

	var usages []credit.CreditUsage
	for rows.Next() {
		u, err := scanUsage(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan usage: %w", err)
		}
		usages = append(usages, *u)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read usages: %w", err)
	}

	return usages, total, nil
}
