// internal/repository/postgres/credit_package_repository.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"talenthub-service/internal/domain/credit"
	xerrors "talenthub-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CreditPackageRepository struct {
	db *pgxpool.Pool
}

func NewCreditPackageRepository(db *pgxpool.Pool) *CreditPackageRepository {
	return &CreditPackageRepository{db: db}
}

const packageColumns = `
	id, name, description, price, currency,
	featured_credits, homepage_credits, urgent_credits,
	duration_days, is_active, display_order, created_at, updated_at
`

func scanPackage(row pgx.Row) (*credit.CreditPackage, error) {
	var p credit.CreditPackage
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Currency,
		&p.FeaturedCredits, &p.HomepageCredits, &p.UrgentCredits,
		&p.DurationDays, &p.IsActive, &p.DisplayOrder, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create creates a new credit package
func (r *CreditPackageRepository) Create(ctx context.Context, p *credit.CreditPackage) error {
	query := `
		INSERT INTO credit_packages (
			name, description, price, currency,
			featured_credits, homepage_credits, urgent_credits,
			duration_days, is_active, display_order
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		p.Name, p.Description, p.Price, p.Currency,
		p.FeaturedCredits, p.HomepageCredits, p.UrgentCredits,
		p.DurationDays, p.IsActive, p.DisplayOrder,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create credit package: %w", err)
	}

	return nil
}

// FindByID retrieves a credit package by ID
func (r *CreditPackageRepository) FindByID(ctx context.Context, id int64) (*credit.CreditPackage, error) {
	query := `SELECT ` + packageColumns + ` FROM credit_packages WHERE id = $1`

	p, err := scanPackage(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find credit package: %w", err)
	}

	return p, nil
}

// ListActive retrieves purchasable packages ordered for display
func (r *CreditPackageRepository) ListActive(ctx context.Context) ([]credit.CreditPackage, error) {
	query := `
		SELECT ` + packageColumns + `
		FROM credit_packages
		WHERE is_active = TRUE
		ORDER BY display_order ASC, price ASC
	`
	return r.queryPackages(ctx, query)
}

// ListAll retrieves every package for the admin catalog view
func (r *CreditPackageRepository) ListAll(ctx context.Context) ([]credit.CreditPackage, error) {
	query := `SELECT ` + packageColumns + ` FROM credit_packages ORDER BY display_order ASC, id ASC`
	return r.queryPackages(ctx, query)
}

func (r *CreditPackageRepository) queryPackages(ctx context.Context, query string, args ...any) ([]credit.CreditPackage, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query packages: %w", err)
	}
	defer rows.Close()

	var packages []credit.CreditPackage
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan package: %w", err)
		}
		packages = append(packages, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read packages: %w", err)
	}

	return packages, nil
}

// Update updates a credit package
func (r *CreditPackageRepository) Update(ctx context.Context, p *credit.CreditPackage) error {
	query := `
		UPDATE credit_packages
		SET name = $2, description = $3, price = $4,
		    featured_credits = $5, homepage_credits = $6, urgent_credits = $7,
		    duration_days = $8, is_active = $9, display_order = $10, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(
		ctx, query,
		p.ID, p.Name, p.Description, p.Price,
		p.FeaturedCredits, p.HomepageCredits, p.UrgentCredits,
		p.DurationDays, p.IsActive, p.DisplayOrder,
	)
	if err != nil {
		return fmt.Errorf("failed to update credit package: %w", err)
	}

	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}

// Delete removes a package. Blocked while any journal transaction still
// references it.
func (r *CreditPackageRepository) Delete(ctx context.Context, id int64) error {
	var referenced bool
	guard := `SELECT EXISTS (SELECT 1 FROM transactions WHERE package_id = $1)`
	if err := r.db.QueryRow(ctx, guard, id).Scan(&referenced); err != nil {
		return fmt.Errorf("failed to check package references: %w", err)
	}
	if referenced {
		return xerrors.ErrPackageInUse
	}

	result, err := r.db.Exec(ctx, `DELETE FROM credit_packages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete credit package: %w", err)
	}

	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}
