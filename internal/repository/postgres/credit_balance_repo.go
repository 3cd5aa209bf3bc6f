// internal/repository/postgres/credit_balance_repository.go
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

type CreditBalanceRepository struct {
	db *pgxpool.Pool
}

func NewCreditBalanceRepository(db *pgxpool.Pool) *CreditBalanceRepository {
	return &CreditBalanceRepository{db: db}
}

const balanceColumns = `
	id, company_id, credit_type, amount, source, source_id,
	duration_days, expires_at, low_credit_notified, expiry_notified,
	created_at, updated_at
`

// lotAvailable matches lots that can still be spent: a positive amount and
// an expiry that is either absent or in the future. An expired lot the daily
// sweep has not destroyed yet must never be selectable or counted.
const lotAvailable = `amount > 0 AND (expires_at IS NULL OR expires_at > NOW())`

func scanBalance(row pgx.Row) (*credit.CreditBalance, error) {
	var b credit.CreditBalance
	err := row.Scan(
		&b.ID, &b.CompanyID, &b.Type, &b.Amount, &b.Source, &b.SourceID,
		&b.DurationDays, &b.ExpiresAt, &b.LowCreditNotified, &b.ExpiryNotified,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Upsert deposits credits against the natural key (company_id, credit_type,
// source, source_id). An existing lot is incremented in place; duration and
// expiry of the original grant are preserved so a renewal tops up the same
// lot rather than duplicating rows.
func (r *CreditBalanceRepository) Upsert(ctx context.Context, b *credit.CreditBalance) error {
	return r.upsert(ctx, r.db, b)
}

// UpsertWithTx is Upsert inside an existing transaction.
func (r *CreditBalanceRepository) UpsertWithTx(ctx context.Context, tx pgx.Tx, b *credit.CreditBalance) error {
	return r.upsert(ctx, tx, b)
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// upsertBalanceQuery merges a deposit into the natural-key lot. The re-arm
// of the low-balance alert rides in the same statement: a top-up that lifts
// the lot above the threshold ($8) clears low_credit_notified without a
// second round trip, so the upsert stays the only statement a deposit runs
// inside a caller-owned transaction.
const upsertBalanceQuery = `
	INSERT INTO credit_balances (
		company_id, credit_type, amount, source, source_id,
		duration_days, expires_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (company_id, credit_type, source, source_id)
	DO UPDATE SET
		amount = credit_balances.amount + EXCLUDED.amount,
		low_credit_notified = CASE
			WHEN credit_balances.amount + EXCLUDED.amount > $8 THEN FALSE
			ELSE credit_balances.low_credit_notified
		END,
		updated_at = NOW()
	RETURNING ` + balanceColumns

func (r *CreditBalanceRepository) upsert(ctx context.Context, q queryRower, b *credit.CreditBalance) error {
	row, err := scanBalance(q.QueryRow(
		ctx, upsertBalanceQuery,
		b.CompanyID, b.Type, b.Amount, b.Source, b.SourceID,
		b.DurationDays, b.ExpiresAt, credit.LowBalanceThreshold,
	))
	if err != nil {
		return fmt.Errorf("failed to upsert credit balance: %w", err)
	}

	*b = *row
	return nil
}

// SelectAvailableForUpdate picks the lot the next consume must draw from:
// oldest expiry first (never-expiring lots last), creation order as
// tie-break. The row is locked until the surrounding transaction ends.
func (r *CreditBalanceRepository) SelectAvailableForUpdate(ctx context.Context, tx pgx.Tx, companyID int64, creditType credit.Type) (*credit.CreditBalance, error) {
	query := `
		SELECT ` + balanceColumns + `
		FROM credit_balances
		WHERE company_id = $1 AND credit_type = $2 AND ` + lotAvailable + `
		ORDER BY expires_at ASC NULLS LAST, created_at ASC
		LIMIT 1
		FOR UPDATE
	`

	b, err := scanBalance(tx.QueryRow(ctx, query, companyID, creditType))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrInsufficientCredits
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select available lot: %w", err)
	}

	return b, nil
}

// DecrementWithTx spends one credit from the lot. The amount > 0 guard makes
// the decrement safe even if the lot was drained between selection and
// update; zero rows affected means the credit is gone.
func (r *CreditBalanceRepository) DecrementWithTx(ctx context.Context, tx pgx.Tx, id int64) error {
	query := `
		UPDATE credit_balances
		SET amount = amount - 1, updated_at = NOW()
		WHERE id = $1 AND amount > 0
	`

	result, err := tx.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to decrement credit balance: %w", err)
	}

	if result.RowsAffected() == 0 {
		return xerrors.ErrInsufficientCredits
	}

	return nil
}

// SummaryByCompany aggregates all still-spendable lots into a per-type
// summary plus the raw lot list ordered by soonest expiry first.
func (r *CreditBalanceRepository) SummaryByCompany(ctx context.Context, companyID int64) (*credit.BalanceSummary, error) {
	query := `
		SELECT ` + balanceColumns + `
		FROM credit_balances
		WHERE company_id = $1 AND ` + lotAvailable + `
		ORDER BY expires_at ASC NULLS LAST, created_at ASC
	`

	rows, err := r.db.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query credit balances: %w", err)
	}
	defer rows.Close()

	summary := &credit.BalanceSummary{CompanyID: companyID, Lots: []credit.CreditBalance{}}
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan credit balance: %w", err)
		}

		switch b.Type {
		case credit.TypeFeatured:
			summary.Featured += b.Amount
		case credit.TypeHomepage:
			summary.Homepage += b.Amount
		case credit.TypeUrgent:
			summary.Urgent += b.Amount
		}
		summary.Lots = append(summary.Lots, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read credit balances: %w", err)
	}

	return summary, nil
}

// DeleteExpired removes every lot whose expiry has passed, regardless of
// remaining amount. Expiry destroys unused credits, it does not roll them
// over. Safe to run repeatedly.
func (r *CreditBalanceRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM credit_balances WHERE expires_at IS NOT NULL AND expires_at <= NOW()`

	result, err := r.db.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired lots: %w", err)
	}

	return result.RowsAffected(), nil
}

// LowBalanceCandidates returns lots at or below the threshold that have not
// been alerted yet.
func (r *CreditBalanceRepository) LowBalanceCandidates(ctx context.Context, threshold int) ([]credit.CreditBalance, error) {
	query := `
		SELECT ` + balanceColumns + `
		FROM credit_balances
		WHERE ` + lotAvailable + ` AND amount <= $1 AND low_credit_notified = FALSE
		ORDER BY company_id, credit_type
	`

	return r.queryBalances(ctx, query, threshold)
}

// ExpiringSoonCandidates returns lots expiring within daysAhead that have not
// been alerted yet.
func (r *CreditBalanceRepository) ExpiringSoonCandidates(ctx context.Context, daysAhead int) ([]credit.CreditBalance, error) {
	query := `
		SELECT ` + balanceColumns + `
		FROM credit_balances
		WHERE ` + lotAvailable + `
		  AND expires_at IS NOT NULL
		  AND expires_at <= NOW() + ($1 * INTERVAL '1 day')
		  AND expiry_notified = FALSE
		ORDER BY expires_at ASC
	`

	return r.queryBalances(ctx, query, daysAhead)
}

func (r *CreditBalanceRepository) queryBalances(ctx context.Context, query string, args ...any) ([]credit.CreditBalance, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query credit balances: %w", err)
	}
	defer rows.Close()

	var balances []credit.CreditBalance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan credit balance: %w", err)
		}
		balances = append(balances, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read credit balances: %w", err)
	}

	return balances, nil
}

// MarkLowCreditNotified flips the low-balance idempotency flag.
func (r *CreditBalanceRepository) MarkLowCreditNotified(ctx context.Context, id int64) error {
	return r.setFlag(ctx, id, "low_credit_notified")
}

// MarkExpiryNotified flips the expiring-soon idempotency flag.
func (r *CreditBalanceRepository) MarkExpiryNotified(ctx context.Context, id int64) error {
	return r.setFlag(ctx, id, "expiry_notified")
}

func (r *CreditBalanceRepository) setFlag(ctx context.Context, id int64, column string) error {
	query := fmt.Sprintf(`UPDATE credit_balances SET %s = TRUE, updated_at = NOW() WHERE id = $1`, column)

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark %s: %w", column, err)
	}

	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}

// FindByID retrieves a single lot.
func (r *CreditBalanceRepository) FindByID(ctx context.Context, id int64) (*credit.CreditBalance, error) {
	query := `SELECT ` + balanceColumns + ` FROM credit_balances WHERE id = $1`

	b, err := scanBalance(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find credit balance: %w", err)
	}

	return b, nil
}
