// internal/repository/postgres/company_repository.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"talenthub-service/internal/domain/company"
	xerrors "talenthub-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CompanyRepository struct {
	db *pgxpool.Pool
}

func NewCompanyRepository(db *pgxpool.Pool) *CompanyRepository {
	return &CompanyRepository{db: db}
}

// FindByID retrieves a company by ID
func (r *CompanyRepository) FindByID(ctx context.Context, id int64) (*company.Company, error) {
	query := `
		SELECT id, name, email, max_active_jobs, created_at, updated_at
		FROM companies
		WHERE id = $1
	`

	var c company.Company
	err := r.db.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.Email, &c.MaxActiveJobs, &c.CreatedAt, &c.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find company: %w", err)
	}

	return &c, nil
}

// SetMaxActiveJobsWithTx updates the posting cap inside the plan assignment
// transaction.
func (r *CompanyRepository) SetMaxActiveJobsWithTx(ctx context.Context, tx pgx.Tx, companyID int64, maxActiveJobs int) error {
	query := `UPDATE companies SET max_active_jobs = $2, updated_at = NOW() WHERE id = $1`

	result, err := tx.Exec(ctx, query, companyID, maxActiveJobs)
	if err != nil {
		return fmt.Errorf("failed to update company posting cap: %w", err)
	}

	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}
