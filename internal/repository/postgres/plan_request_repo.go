// internal/repository/postgres/plan_request_repository.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"talenthub-service/internal/domain/request"
	xerrors "talenthub-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PlanRequestRepository struct {
	db *pgxpool.Pool
}

func NewPlanRequestRepository(db *pgxpool.Pool) *PlanRequestRepository {
	return &PlanRequestRepository{db: db}
}

const requestColumns = `
	id, company_id, kind, status, plan_id, package_id, note,
	resolved_by, resolved_at, created_at, updated_at
`

func scanRequest(row pgx.Row) (*request.PlanRequest, error) {
	var req request.PlanRequest
	err := row.Scan(
		&req.ID, &req.CompanyID, &req.Kind, &req.Status, &req.PlanID, &req.PackageID, &req.Note,
		&req.ResolvedBy, &req.ResolvedAt, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// HasPending reports whether the company already has a PENDING request for
// the same plan or package.
func (r *PlanRequestRepository) HasPending(ctx context.Context, companyID int64, kind request.Kind, targetID int64) (bool, error) {
	column := "plan_id"
	if kind == request.KindPackage {
		column = "package_id"
	}

	query := fmt.Sprintf(`
		SELECT EXISTS (
			SELECT 1 FROM plan_requests
			WHERE company_id = $1 AND kind = $2 AND %s = $3 AND status = 'pending'
		)
	`, column)

	var exists bool
	if err := r.db.QueryRow(ctx, query, companyID, kind, targetID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check pending request: %w", err)
	}

	return exists, nil
}

// Create inserts a new PENDING request. The partial unique index on pending
// requests closes the race two concurrent submissions leave between the
// HasPending check and this insert; losing that race surfaces as
// ErrRequestAlreadyExists, same as failing the check.
func (r *PlanRequestRepository) Create(ctx context.Context, req *request.PlanRequest) error {
	query := `
		INSERT INTO plan_requests (company_id, kind, status, plan_id, package_id, note)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		req.CompanyID, req.Kind, req.Status, req.PlanID, req.PackageID, req.Note,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return xerrors.ErrRequestAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("failed to create plan request: %w", err)
	}

	return nil
}

// FindByID retrieves a request by ID
func (r *PlanRequestRepository) FindByID(ctx context.Context, id int64) (*request.PlanRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM plan_requests WHERE id = $1`

	req, err := scanRequest(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find plan request: %w", err)
	}

	return req, nil
}

// Resolve transitions a PENDING request to its terminal status. The status
// guard in the WHERE clause makes concurrent approvals race-safe: exactly
// one resolver wins.
func (r *PlanRequestRepository) Resolve(ctx context.Context, id int64, status request.Status, resolvedBy int64) error {
	query := `
		UPDATE plan_requests
		SET status = $2, resolved_by = $3, resolved_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`

	result, err := r.db.Exec(ctx, query, id, status, resolvedBy)
	if err != nil {
		return fmt.Errorf("failed to resolve plan request: %w", err)
	}

	if result.RowsAffected() == 0 {
		return xerrors.ErrInvalidStatus
	}

	return nil
}

// List retrieves requests with filters, newest first
func (r *PlanRequestRepository) List(ctx context.Context, companyID int64, filters *request.ListFilters) ([]request.PlanRequest, int64, error) {
	conditions := []string{"1=1"}
	args := []any{}
	argPos := 1

	if companyID > 0 {
		conditions = append(conditions, fmt.Sprintf("company_id = $%d", argPos))
		args = append(args, companyID)
		argPos++
	}
	if filters.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, filters.Status)
		argPos++
	}
	if filters.Kind != "" {
		conditions = append(conditions, fmt.Sprintf("kind = $%d", argPos))
		args = append(args, filters.Kind)
		argPos++
	}

	where := strings.Join(conditions, " AND ")

	var total int64
	countQuery := `SELECT COUNT(*) FROM plan_requests WHERE ` + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count requests: %w", err)
	}

	offset := (filters.Page - 1) * filters.PageSize
	query := fmt.Sprintf(`
		SELECT %s FROM plan_requests
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, requestColumns, where, argPos, argPos+1)
	args = append(args, filters.PageSize, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list requests: %w", err)
	}
	defer rows.Close()

	var requests []request.PlanRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan request: %w", err)
		}
		requests = append(requests, *req)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read requests: %w", err)
	}

	return requests, total, nil
}
