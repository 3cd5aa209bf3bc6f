// internal/repository/postgres/transaction_repository.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"talenthub-service/internal/domain/transaction"
	xerrors "talenthub-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TransactionRepository is append-only: rows are inserted and read, never
// updated or deleted.
type TransactionRepository struct {
	db *pgxpool.Pool
}

func NewTransactionRepository(db *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `
	id, reference, company_id, type, status, amount, currency,
	description, plan_id, package_id, created_at
`

func scanTransaction(row pgx.Row) (*transaction.Transaction, error) {
	var t transaction.Transaction
	err := row.Scan(
		&t.ID, &t.Reference, &t.CompanyID, &t.Type, &t.Status, &t.Amount, &t.Currency,
		&t.Description, &t.PlanID, &t.PackageID, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateWithTx appends a journal entry inside an existing transaction.
func (r *TransactionRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, t *transaction.Transaction) error {
	return r.create(ctx, tx, t)
}

// Create appends a journal entry.
func (r *TransactionRepository) Create(ctx context.Context, t *transaction.Transaction) error {
	return r.create(ctx, r.db, t)
}

func (r *TransactionRepository) create(ctx context.Context, q queryRower, t *transaction.Transaction) error {
	query := `
		INSERT INTO transactions (
			reference, company_id, type, status, amount, currency,
			description, plan_id, package_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	err := q.QueryRow(
		ctx, query,
		t.Reference, t.CompanyID, t.Type, t.Status, t.Amount, t.Currency,
		t.Description, t.PlanID, t.PackageID,
	).Scan(&t.ID, &t.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// FindByReference retrieves a journal entry by its reference
func (r *TransactionRepository) FindByReference(ctx context.Context, reference string) (*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE reference = $1`

	t, err := scanTransaction(r.db.QueryRow(ctx, query, reference))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find transaction: %w", err)
	}

	return t, nil
}

// List retrieves journal entries, newest first. companyID 0 lists all
// companies (admin reporting).
func (r *TransactionRepository) List(ctx context.Context, companyID int64, filters *transaction.ListFilters) ([]transaction.Transaction, int64, error) {
	conditions := []string{"1=1"}
	args := []any{}
	argPos := 1

	if companyID > 0 {
		conditions = append(conditions, fmt.Sprintf("company_id = $%d", argPos))
		args = append(args, companyID)
		argPos++
	}
	if filters.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argPos))
		args = append(args, filters.Type)
		argPos++
	}

	where := strings.Join(conditions, " AND ")

	var total int64
	countQuery := `SELECT COUNT(*) FROM transactions WHERE ` + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	offset := (filters.Page - 1) * filters.PageSize
	query := fmt.Sprintf(`
		SELECT %s FROM transactions
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, transactionColumns, where, argPos, argPos+1)
	args = append(args, filters.PageSize, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []transaction.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, *t)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read transactions: %w", err)
	}

	return transactions, total, nil
}
