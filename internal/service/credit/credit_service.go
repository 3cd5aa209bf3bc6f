// internal/service/credit/credit_service.go
package credit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"talenthub-service/internal/domain/credit"
	"talenthub-service/internal/domain/job"
	"talenthub-service/internal/domain/transaction"
	wstypes "talenthub-service/internal/domain/websocket"
	xerrors "talenthub-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// balanceStore is the slice of the lot repository the service needs.
type balanceStore interface {
	Upsert(ctx context.Context, b *credit.CreditBalance) error
	UpsertWithTx(ctx context.Context, tx pgx.Tx, b *credit.CreditBalance) error
	SelectAvailableForUpdate(ctx context.Context, tx pgx.Tx, companyID int64, creditType credit.Type) (*credit.CreditBalance, error)
	DecrementWithTx(ctx context.Context, tx pgx.Tx, id int64) error
	SummaryByCompany(ctx context.Context, companyID int64) (*credit.BalanceSummary, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type usageStore interface {
	CreateWithTx(ctx context.Context, tx pgx.Tx, u *credit.CreditUsage) error
	FindActiveByJobWithTx(ctx context.Context, tx pgx.Tx, jobID int64, creditType credit.Type) (*credit.CreditUsage, error)
	DeactivateWithTx(ctx context.Context, tx pgx.Tx, id int64) error
	DeactivateExpired(ctx context.Context) (int64, error)
	AddEngagement(ctx context.Context, id int64, views, clicks, applications int) error
	FindByID(ctx context.Context, id int64) (*credit.CreditUsage, error)
	ListByCompany(ctx context.Context, companyID int64, filters *credit.UsageListFilters) ([]credit.CreditUsage, int64, error)
}

type jobStore interface {
	FindByID(ctx context.Context, id int64) (*job.Job, error)
	SetBoostFlagWithTx(ctx context.Context, tx pgx.Tx, jobID int64, creditType credit.Type, value bool) error
}

type journalStore interface {
	CreateWithTx(ctx context.Context, tx pgx.Tx, t *transaction.Transaction) error
}

type txBeginner interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
}

type broadcaster interface {
	BroadcastCreditUpdate(companyID int64, update *wstypes.CreditUpdateData)
}

type CreditService struct {
	balances balanceStore
	usages   usageStore
	jobs     jobStore
	journal  journalStore
	db       txBeginner
	hub      broadcaster
	logger   *zap.Logger
}

func NewCreditService(
	balances balanceStore,
	usages usageStore,
	jobs jobStore,
	journal journalStore,
	db txBeginner,
	hub broadcaster,
	logger *zap.Logger,
) *CreditService {
	return &CreditService{
		balances: balances,
		usages:   usages,
		jobs:     jobs,
		journal:  journal,
		db:       db,
		hub:      hub,
		logger:   logger,
	}
}

// GetBalance returns the per-type summary plus the raw lots for a company.
func (s *CreditService) GetBalance(ctx context.Context, companyID int64) (*credit.BalanceSummary, error) {
	return s.balances.SummaryByCompany(ctx, companyID)
}

// DepositInput describes one grant of credits into the ledger.
type DepositInput struct {
	CompanyID    int64
	Type         credit.Type
	Amount       int
	Source       credit.Source
	SourceID     string
	DurationDays int
	ExpiresAt    sql.NullTime
}

// Deposit grants credits. A deposit against an existing
// (company, type, source, sourceID) lot increments it in place, which makes
// retried grants and monthly renewals idempotent against duplication. A
// top-up past the low-balance threshold re-arms the alert within the same
// upsert statement.
func (s *CreditService) Deposit(ctx context.Context, in *DepositInput) (*credit.CreditBalance, error) {
	b, err := s.deposit(ctx, nil, in)
	if err != nil {
		return nil, err
	}

	s.broadcastUpdate(ctx, in.CompanyID, in.Type, "deposited")
	return b, nil
}

// DepositWithTx is Deposit inside a caller-owned transaction, used by plan
// assignment, renewal and package approval so the grant commits or rolls
// back with the rest of the operation.
func (s *CreditService) DepositWithTx(ctx context.Context, tx pgx.Tx, in *DepositInput) (*credit.CreditBalance, error) {
	return s.deposit(ctx, tx, in)
}

func (s *CreditService) deposit(ctx context.Context, tx pgx.Tx, in *DepositInput) (*credit.CreditBalance, error) {
	if !in.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown credit type %q", xerrors.ErrInvalidInput, in.Type)
	}
	if in.Amount <= 0 {
		return nil, fmt.Errorf("%w: deposit amount must be positive", xerrors.ErrInvalidInput)
	}

	durationDays := in.DurationDays
	if durationDays <= 0 {
		durationDays = credit.DurationDays30
	}

	b := &credit.CreditBalance{
		CompanyID:    in.CompanyID,
		Type:         in.Type,
		Amount:       in.Amount,
		Source:       in.Source,
		SourceID:     in.SourceID,
		DurationDays: durationDays,
		ExpiresAt:    in.ExpiresAt,
	}

	var err error
	if tx != nil {
		err = s.balances.UpsertWithTx(ctx, tx, b)
	} else {
		err = s.balances.Upsert(ctx, b)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("credits deposited",
		zap.Int64("company_id", in.CompanyID),
		zap.String("credit_type", string(in.Type)),
		zap.Int("amount", in.Amount),
		zap.String("source", string(in.Source)),
		zap.String("source_id", in.SourceID),
	)

	return b, nil
}

// AdminGrant deposits credits by operator fiat and journals the grant. Each
// call creates a distinct lot so repeated grants never collapse into one.
func (s *CreditService) AdminGrant(ctx context.Context, companyID int64, req *credit.AdminGrantRequest) (*credit.CreditBalance, error) {
	if !req.CreditType.Valid() {
		return nil, fmt.Errorf("%w: unknown credit type %q", xerrors.ErrInvalidInput, req.CreditType)
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	grantRef := ulid.Make().String()

	b, err := s.deposit(ctx, tx, &DepositInput{
		CompanyID:    companyID,
		Type:         req.CreditType,
		Amount:       req.Amount,
		Source:       credit.SourceAdminGrant,
		SourceID:     grantRef,
		DurationDays: req.DurationDays,
		ExpiresAt: sql.NullTime{
			Time:  time.Now().AddDate(0, 0, credit.PurchaseExpiryDays),
			Valid: true,
		},
	})
	if err != nil {
		return nil, err
	}

	description := fmt.Sprintf("Admin grant: %d %s credit(s)", req.Amount, req.CreditType)
	if req.Note != "" {
		description = fmt.Sprintf("%s (%s)", description, req.Note)
	}

	entry := &transaction.Transaction{
		Reference:   grantRef,
		CompanyID:   companyID,
		Type:        transaction.TypeAdminGrant,
		Status:      transaction.StatusCompleted,
		Amount:      0,
		Currency:    "USD",
		Description: description,
	}
	if err := s.journal.CreateWithTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit admin grant: %w", err)
	}

	s.broadcastUpdate(ctx, companyID, req.CreditType, "deposited")
	return b, nil
}

// Consume spends one credit of the given type on a job posting. The whole
// sequence runs in a single transaction: at most one active usage per
// (job, type), lot selection by soonest expiry, guarded decrement, usage
// insert and the job-level boost flag all commit or roll back together.
func (s *CreditService) Consume(ctx context.Context, companyID, jobID int64, creditType credit.Type) (*credit.CreditUsage, error) {
	if !creditType.Valid() {
		return nil, fmt.Errorf("%w: unknown credit type %q", xerrors.ErrInvalidInput, creditType)
	}

	j, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if j.CompanyID != companyID {
		return nil, xerrors.ErrNotFound
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Reject if a usage of this type is already live on the job. A usage
	// whose window has ended but which the daily sweep has not closed yet
	// does not block; it is retired here so the new usage can take its
	// slot under the one-active-usage index.
	existing, err := s.usages.FindActiveByJobWithTx(ctx, tx, jobID, creditType)
	switch {
	case err == nil && existing.EndDate.After(time.Now()):
		return nil, xerrors.ErrCreditAlreadyApplied
	case err == nil:
		if err := s.usages.DeactivateWithTx(ctx, tx, existing.ID); err != nil {
			return nil, err
		}
	case !errors.Is(err, xerrors.ErrNotFound):
		return nil, err
	}

	lot, err := s.balances.SelectAvailableForUpdate(ctx, tx, companyID, creditType)
	if err != nil {
		return nil, err
	}

	if err := s.balances.DecrementWithTx(ctx, tx, lot.ID); err != nil {
		return nil, err
	}

	durationDays := lot.DurationDays
	if durationDays <= 0 {
		durationDays = credit.DurationDays30
	}

	now := time.Now()
	usage := &credit.CreditUsage{
		CompanyID:    companyID,
		JobID:        jobID,
		BalanceID:    sql.NullInt64{Int64: lot.ID, Valid: true},
		Type:         creditType,
		DurationDays: durationDays,
		StartDate:    now,
		EndDate:      now.AddDate(0, 0, durationDays),
		IsActive:     true,
	}
	if err := s.usages.CreateWithTx(ctx, tx, usage); err != nil {
		return nil, err
	}

	if err := s.jobs.SetBoostFlagWithTx(ctx, tx, jobID, creditType, true); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit consume: %w", err)
	}

	s.logger.Info("credit consumed",
		zap.Int64("company_id", companyID),
		zap.Int64("job_id", jobID),
		zap.String("credit_type", string(creditType)),
		zap.Int64("balance_id", lot.ID),
		zap.Time("active_until", usage.EndDate),
	)

	s.broadcastUpdate(ctx, companyID, creditType, "consumed")
	return usage, nil
}

// SweepExpired destroys every lot past its expiry. Unused amounts are not
// rolled over or refunded. Run daily; safe to rerun.
func (s *CreditService) SweepExpired(ctx context.Context) (int64, error) {
	deleted, err := s.balances.DeleteExpired(ctx)
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		s.logger.Info("expired credit lots destroyed", zap.Int64("count", deleted))
	}
	return deleted, nil
}

// DeactivateExpiredUsages closes usage windows that have run out. The job
// boost flags are left as they are; Consume retires a lapsed-but-unswept
// usage itself before drawing a new credit.
func (s *CreditService) DeactivateExpiredUsages(ctx context.Context) (int64, error) {
	deactivated, err := s.usages.DeactivateExpired(ctx)
	if err != nil {
		return 0, err
	}

	if deactivated > 0 {
		s.logger.Info("expired credit usages deactivated", zap.Int64("count", deactivated))
	}
	return deactivated, nil
}

// AddEngagement records views/clicks/applications against a usage for ROI
// reporting.
func (s *CreditService) AddEngagement(ctx context.Context, companyID, usageID int64, views, clicks, applications int) error {
	u, err := s.usages.FindByID(ctx, usageID)
	if err != nil {
		return err
	}
	if u.CompanyID != companyID {
		return xerrors.ErrNotFound
	}

	return s.usages.AddEngagement(ctx, usageID, views, clicks, applications)
}

// ListUsages returns a company's usage history, newest first.
func (s *CreditService) ListUsages(ctx context.Context, companyID int64, filters *credit.UsageListFilters) (*credit.UsageListResponse, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = 20
	}
	if filters.CreditType != "" && !filters.CreditType.Valid() {
		return nil, fmt.Errorf("%w: unknown credit type %q", xerrors.ErrInvalidInput, filters.CreditType)
	}

	usages, total, err := s.usages.ListByCompany(ctx, companyID, filters)
	if err != nil {
		return nil, err
	}

	totalPages := int(total) / filters.PageSize
	if int(total)%filters.PageSize > 0 {
		totalPages++
	}

	return &credit.UsageListResponse{
		Usages:     usages,
		Total:      total,
		Page:       filters.Page,
		PageSize:   filters.PageSize,
		TotalPages: totalPages,
	}, nil
}

func (s *CreditService) broadcastUpdate(ctx context.Context, companyID int64, creditType credit.Type, reason string) {
	if s.hub == nil {
		return
	}

	remaining := 0
	if summary, err := s.balances.SummaryByCompany(ctx, companyID); err == nil {
		switch creditType {
		case credit.TypeFeatured:
			remaining = summary.Featured
		case credit.TypeHomepage:
			remaining = summary.Homepage
		case credit.TypeUrgent:
			remaining = summary.Urgent
		}
	}

	s.hub.BroadcastCreditUpdate(companyID, &wstypes.CreditUpdateData{
		CompanyID:  companyID,
		CreditType: string(creditType),
		Remaining:  remaining,
		Reason:     reason,
	})
}
