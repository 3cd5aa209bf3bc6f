// internal/repository/postgres/job_repository.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"talenthub-service/internal/domain/credit"
	"talenthub-service/internal/domain/job"
	xerrors "talenthub-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// JobRepository is the entitlement engine's narrow view of job postings.
// Full posting CRUD lives in the surrounding API layer.
type JobRepository struct {
	db *pgxpool.Pool
}

func NewJobRepository(db *pgxpool.Pool) *JobRepository {
	return &JobRepository{db: db}
}

// FindByID retrieves a job posting
func (r *JobRepository) FindByID(ctx context.Context, id int64) (*job.Job, error) {
	query := `
		SELECT id, company_id, title, status, is_featured, is_urgent, views, created_at, updated_at
		FROM jobs
		WHERE id = $1
	`

	var j job.Job
	err := r.db.QueryRow(ctx, query, id).Scan(
		&j.ID, &j.CompanyID, &j.Title, &j.Status, &j.IsFeatured, &j.IsUrgent, &j.Views,
		&j.CreatedAt, &j.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find job: %w", err)
	}

	return &j, nil
}

// SetBoostFlagWithTx sets the job-level boost flag for FEATURED or URGENT
// inside the consume transaction. HOMEPAGE placement has no job-level flag.
func (r *JobRepository) SetBoostFlagWithTx(ctx context.Context, tx pgx.Tx, jobID int64, creditType credit.Type, value bool) error {
	var column string
	switch creditType {
	case credit.TypeFeatured:
		column = "is_featured"
	case credit.TypeUrgent:
		column = "is_urgent"
	default:
		return nil
	}

	query := fmt.Sprintf(`UPDATE jobs SET %s = $2, updated_at = NOW() WHERE id = $1`, column)

	result, err := tx.Exec(ctx, query, jobID, value)
	if err != nil {
		return fmt.Errorf("failed to set job boost flag: %w", err)
	}

	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}

// CountActiveByCompany counts the company's live postings, checked against
// the plan's max_active_jobs cap.
func (r *JobRepository) CountActiveByCompany(ctx context.Context, companyID int64) (int, error) {
	query := `SELECT COUNT(*) FROM jobs WHERE company_id = $1 AND status = 'active'`

	var count int
	if err := r.db.QueryRow(ctx, query, companyID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count active jobs: %w", err)
	}

	return count, nil
}
