// internal/service/credit/credit_service_test.go
package credit

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"talenthub-service/internal/domain/credit"
	"talenthub-service/internal/domain/job"
	"talenthub-service/internal/domain/transaction"
	wstypes "talenthub-service/internal/domain/websocket"
	xerrors "talenthub-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTx struct {
	pgx.Tx
	commits   int
	rollbacks int
}

func (t *fakeTx) Commit(ctx context.Context) error   { t.commits++; return nil }
func (t *fakeTx) Rollback(ctx context.Context) error { t.rollbacks++; return nil }

type fakeTxBeginner struct {
	tx *fakeTx
}

func (f *fakeTxBeginner) BeginTx(ctx context.Context) (pgx.Tx, error) {
	if f.tx == nil {
		f.tx = &fakeTx{}
	}
	return f.tx, nil
}

type fakeBalanceStore struct {
	upsertFn      func(ctx context.Context, b *credit.CreditBalance) error
	upsertTxFn    func(ctx context.Context, tx pgx.Tx, b *credit.CreditBalance) error
	selectFn      func(ctx context.Context, tx pgx.Tx, companyID int64, creditType credit.Type) (*credit.CreditBalance, error)
	decrementFn   func(ctx context.Context, tx pgx.Tx, id int64) error
	summaryFn     func(ctx context.Context, companyID int64) (*credit.BalanceSummary, error)
	deleteFn      func(ctx context.Context) (int64, error)
	decrementedID int64

	// poolCalls records every method that runs outside a transaction.
	poolCalls []string
}

func (f *fakeBalanceStore) Upsert(ctx context.Context, b *credit.CreditBalance) error {
	f.poolCalls = append(f.poolCalls, "Upsert")
	if f.upsertFn != nil {
		return f.upsertFn(ctx, b)
	}
	return nil
}

func (f *fakeBalanceStore) UpsertWithTx(ctx context.Context, tx pgx.Tx, b *credit.CreditBalance) error {
	if f.upsertTxFn != nil {
		return f.upsertTxFn(ctx, tx, b)
	}
	return nil
}

func (f *fakeBalanceStore) SelectAvailableForUpdate(ctx context.Context, tx pgx.Tx, companyID int64, creditType credit.Type) (*credit.CreditBalance, error) {
	if f.selectFn != nil {
		return f.selectFn(ctx, tx, companyID, creditType)
	}
	return nil, xerrors.ErrInsufficientCredits
}

func (f *fakeBalanceStore) DecrementWithTx(ctx context.Context, tx pgx.Tx, id int64) error {
	f.decrementedID = id
	if f.decrementFn != nil {
		return f.decrementFn(ctx, tx, id)
	}
	return nil
}

func (f *fakeBalanceStore) SummaryByCompany(ctx context.Context, companyID int64) (*credit.BalanceSummary, error) {
	f.poolCalls = append(f.poolCalls, "SummaryByCompany")
	if f.summaryFn != nil {
		return f.summaryFn(ctx, companyID)
	}
	return &credit.BalanceSummary{}, nil
}

func (f *fakeBalanceStore) DeleteExpired(ctx context.Context) (int64, error) {
	f.poolCalls = append(f.poolCalls, "DeleteExpired")
	if f.deleteFn != nil {
		return f.deleteFn(ctx)
	}
	return 0, nil
}

type fakeUsageStore struct {
	createFn       func(ctx context.Context, tx pgx.Tx, u *credit.CreditUsage) error
	findActiveFn   func(ctx context.Context, tx pgx.Tx, jobID int64, creditType credit.Type) (*credit.CreditUsage, error)
	deactivateFn   func(ctx context.Context) (int64, error)
	addEngageFn    func(ctx context.Context, id int64, views, clicks, applications int) error
	findByIDFn     func(ctx context.Context, id int64) (*credit.CreditUsage, error)
	listFn         func(ctx context.Context, companyID int64, filters *credit.UsageListFilters) ([]credit.CreditUsage, int64, error)
	createdUsage   *credit.CreditUsage
	deactivatedIDs []int64
}

func (f *fakeUsageStore) DeactivateWithTx(ctx context.Context, tx pgx.Tx, id int64) error {
	f.deactivatedIDs = append(f.deactivatedIDs, id)
	return nil
}

func (f *fakeUsageStore) CreateWithTx(ctx context.Context, tx pgx.Tx, u *credit.CreditUsage) error {
	f.createdUsage = u
	if f.createFn != nil {
		return f.createFn(ctx, tx, u)
	}
	return nil
}

func (f *fakeUsageStore) FindActiveByJobWithTx(ctx context.Context, tx pgx.Tx, jobID int64, creditType credit.Type) (*credit.CreditUsage, error) {
	if f.findActiveFn != nil {
		return f.findActiveFn(ctx, tx, jobID, creditType)
	}
	return nil, xerrors.ErrNotFound
}

func (f *fakeUsageStore) DeactivateExpired(ctx context.Context) (int64, error) {
	if f.deactivateFn != nil {
		return f.deactivateFn(ctx)
	}
	return 0, nil
}

func (f *fakeUsageStore) AddEngagement(ctx context.Context, id int64, views, clicks, applications int) error {
	if f.addEngageFn != nil {
		return f.addEngageFn(ctx, id, views, clicks, applications)
	}
	return nil
}

func (f *fakeUsageStore) FindByID(ctx context.Context, id int64) (*credit.CreditUsage, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(ctx, id)
	}
	return nil, xerrors.ErrNotFound
}

func (f *fakeUsageStore) ListByCompany(ctx context.Context, companyID int64, filters *credit.UsageListFilters) ([]credit.CreditUsage, int64, error) {
	if f.listFn != nil {
		return f.listFn(ctx, companyID, filters)
	}
	return nil, 0, nil
}

type fakeJobStore struct {
	findFn    func(ctx context.Context, id int64) (*job.Job, error)
	flagJobID int64
	flagType  credit.Type
	flagValue bool
	flagCalls int
}

func (f *fakeJobStore) FindByID(ctx context.Context, id int64) (*job.Job, error) {
	if f.findFn != nil {
		return f.findFn(ctx, id)
	}
	return nil, xerrors.ErrNotFound
}

func (f *fakeJobStore) SetBoostFlagWithTx(ctx context.Context, tx pgx.Tx, jobID int64, creditType credit.Type, value bool) error {
	f.flagCalls++
	f.flagJobID = jobID
	f.flagType = creditType
	f.flagValue = value
	return nil
}

type fakeJournal struct {
	entries []*transaction.Transaction
}

func (f *fakeJournal) CreateWithTx(ctx context.Context, tx pgx.Tx, t *transaction.Transaction) error {
	f.entries = append(f.entries, t)
	return nil
}

type fakeBroadcaster struct {
	updates []*wstypes.CreditUpdateData
}

func (f *fakeBroadcaster) BroadcastCreditUpdate(companyID int64, update *wstypes.CreditUpdateData) {
	f.updates = append(f.updates, update)
}

func newTestService(balances *fakeBalanceStore, usages *fakeUsageStore, jobs *fakeJobStore, journal *fakeJournal, db *fakeTxBeginner) *CreditService {
	return NewCreditService(balances, usages, jobs, journal, db, &fakeBroadcaster{}, zap.NewNop())
}

func TestConsumeSpendsSoonestExpiringLot(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	lot := &credit.CreditBalance{
		ID:           7,
		CompanyID:    1,
		Type:         credit.TypeFeatured,
		Amount:       3,
		DurationDays: credit.DurationDays7,
		ExpiresAt:    sql.NullTime{Time: now.AddDate(0, 0, 5), Valid: true},
	}

	balances := &fakeBalanceStore{
		selectFn: func(ctx context.Context, tx pgx.Tx, companyID int64, creditType credit.Type) (*credit.CreditBalance, error) {
			return lot, nil
		},
	}
	usages := &fakeUsageStore{}
	jobs := &fakeJobStore{
		findFn: func(ctx context.Context, id int64) (*job.Job, error) {
			return &job.Job{ID: id, CompanyID: 1}, nil
		},
	}
	db := &fakeTxBeginner{}

	svc := newTestService(balances, usages, jobs, &fakeJournal{}, db)

	usage, err := svc.Consume(ctx, 1, 42, credit.TypeFeatured)
	require.NoError(t, err)

	require.Equal(t, int64(7), balances.decrementedID)
	require.Equal(t, int64(42), usage.JobID)
	require.Equal(t, sql.NullInt64{Int64: 7, Valid: true}, usage.BalanceID)
	require.True(t, usage.IsActive)
	require.Equal(t, credit.DurationDays7, usage.DurationDays)
	require.WithinDuration(t, now.AddDate(0, 0, 7), usage.EndDate, 5*time.Second)

	require.Equal(t, 1, jobs.flagCalls)
	require.Equal(t, int64(42), jobs.flagJobID)
	require.True(t, jobs.flagValue)

	require.Equal(t, 1, db.tx.commits)
}

func TestConsumeRejectsDuplicateActiveUsage(t *testing.T) {
	ctx := context.Background()

	usages := &fakeUsageStore{
		findActiveFn: func(ctx context.Context, tx pgx.Tx, jobID int64, creditType credit.Type) (*credit.CreditUsage, error) {
			return &credit.CreditUsage{
				ID: 1, JobID: jobID, Type: creditType, IsActive: true,
				EndDate: time.Now().AddDate(0, 0, 3),
			}, nil
		},
	}
	jobs := &fakeJobStore{
		findFn: func(ctx context.Context, id int64) (*job.Job, error) {
			return &job.Job{ID: id, CompanyID: 1}, nil
		},
	}
	balances := &fakeBalanceStore{}
	db := &fakeTxBeginner{}

	svc := newTestService(balances, usages, jobs, &fakeJournal{}, db)

	_, err := svc.Consume(ctx, 1, 42, credit.TypeUrgent)
	require.ErrorIs(t, err, xerrors.ErrCreditAlreadyApplied)
	require.Zero(t, balances.decrementedID)
	require.Zero(t, db.tx.commits)
}

func TestConsumeReplacesLapsedUnsweptUsage(t *testing.T) {
	ctx := context.Background()

	// the usage's window ended yesterday but the daily sweep has not run yet
	usages := &fakeUsageStore{
		findActiveFn: func(ctx context.Context, tx pgx.Tx, jobID int64, creditType credit.Type) (*credit.CreditUsage, error) {
			return &credit.CreditUsage{
				ID: 9, JobID: jobID, Type: creditType, IsActive: true,
				EndDate: time.Now().AddDate(0, 0, -1),
			}, nil
		},
	}
	balances := &fakeBalanceStore{
		selectFn: func(ctx context.Context, tx pgx.Tx, companyID int64, creditType credit.Type) (*credit.CreditBalance, error) {
			return &credit.CreditBalance{ID: 3, CompanyID: 1, Type: creditType, Amount: 2}, nil
		},
	}
	jobs := &fakeJobStore{
		findFn: func(ctx context.Context, id int64) (*job.Job, error) {
			return &job.Job{ID: id, CompanyID: 1}, nil
		},
	}
	db := &fakeTxBeginner{}

	svc := newTestService(balances, usages, jobs, &fakeJournal{}, db)

	usage, err := svc.Consume(ctx, 1, 42, credit.TypeFeatured)
	require.NoError(t, err)

	// the stale row is retired in the same transaction the new one is written
	require.Equal(t, []int64{9}, usages.deactivatedIDs)
	require.True(t, usage.IsActive)
	require.Equal(t, int64(3), balances.decrementedID)
	require.Equal(t, 1, db.tx.commits)
}

func TestConsumeFailsWithoutCredits(t *testing.T) {
	ctx := context.Background()

	jobs := &fakeJobStore{
		findFn: func(ctx context.Context, id int64) (*job.Job, error) {
			return &job.Job{ID: id, CompanyID: 1}, nil
		},
	}
	db := &fakeTxBeginner{}

	svc := newTestService(&fakeBalanceStore{}, &fakeUsageStore{}, jobs, &fakeJournal{}, db)

	_, err := svc.Consume(ctx, 1, 42, credit.TypeHomepage)
	require.ErrorIs(t, err, xerrors.ErrInsufficientCredits)
	require.Zero(t, db.tx.commits)
	require.Equal(t, 1, db.tx.rollbacks)
}

func TestConsumeHidesForeignJobs(t *testing.T) {
	ctx := context.Background()

	jobs := &fakeJobStore{
		findFn: func(ctx context.Context, id int64) (*job.Job, error) {
			return &job.Job{ID: id, CompanyID: 99}, nil
		},
	}

	svc := newTestService(&fakeBalanceStore{}, &fakeUsageStore{}, jobs, &fakeJournal{}, &fakeTxBeginner{})

	_, err := svc.Consume(ctx, 1, 42, credit.TypeFeatured)
	require.ErrorIs(t, err, xerrors.ErrNotFound)
}

func TestConsumeRejectsUnknownType(t *testing.T) {
	svc := newTestService(&fakeBalanceStore{}, &fakeUsageStore{}, &fakeJobStore{}, &fakeJournal{}, &fakeTxBeginner{})

	_, err := svc.Consume(context.Background(), 1, 42, credit.Type("premium"))
	require.ErrorIs(t, err, xerrors.ErrInvalidInput)
}

func TestDepositValidation(t *testing.T) {
	svc := newTestService(&fakeBalanceStore{}, &fakeUsageStore{}, &fakeJobStore{}, &fakeJournal{}, &fakeTxBeginner{})

	_, err := svc.Deposit(context.Background(), &DepositInput{
		CompanyID: 1, Type: credit.TypeFeatured, Amount: 0, Source: credit.SourceAdminGrant,
	})
	require.ErrorIs(t, err, xerrors.ErrInvalidInput)

	_, err = svc.Deposit(context.Background(), &DepositInput{
		CompanyID: 1, Type: credit.Type("bogus"), Amount: 5, Source: credit.SourceAdminGrant,
	})
	require.ErrorIs(t, err, xerrors.ErrInvalidInput)
}

func TestDepositDefaultsDuration(t *testing.T) {
	var got *credit.CreditBalance
	balances := &fakeBalanceStore{
		upsertFn: func(ctx context.Context, b *credit.CreditBalance) error {
			got = b
			return nil
		},
	}

	svc := newTestService(balances, &fakeUsageStore{}, &fakeJobStore{}, &fakeJournal{}, &fakeTxBeginner{})

	_, err := svc.Deposit(context.Background(), &DepositInput{
		CompanyID: 1, Type: credit.TypeFeatured, Amount: 5, Source: credit.SourcePurchase, SourceID: "10",
	})
	require.NoError(t, err)
	require.Equal(t, credit.DurationDays30, got.DurationDays)
}

func TestDepositWithTxTouchesOnlyTheCallerTransaction(t *testing.T) {
	tx := &fakeTx{}
	balances := &fakeBalanceStore{
		upsertTxFn: func(ctx context.Context, tx pgx.Tx, b *credit.CreditBalance) error {
			// the upsert returns the merged lot: previously alerted, now topped up
			b.ID = 4
			b.Amount = 10
			b.LowCreditNotified = true
			return nil
		},
	}

	svc := newTestService(balances, &fakeUsageStore{}, &fakeJobStore{}, &fakeJournal{}, &fakeTxBeginner{})

	_, err := svc.DepositWithTx(context.Background(), tx, &DepositInput{
		CompanyID: 1, Type: credit.TypeFeatured, Amount: 8, Source: credit.SourcePlanMonthly, SourceID: "2",
	})
	require.NoError(t, err)

	// no statement may run on the pool while the caller's transaction holds
	// the lot's row lock, that would stall renewals behind their own deposit
	require.Empty(t, balances.poolCalls)
	require.Zero(t, tx.commits)
}

func TestAdminGrantJournalsWithMatchingReference(t *testing.T) {
	var lotSourceID string
	balances := &fakeBalanceStore{
		upsertTxFn: func(ctx context.Context, tx pgx.Tx, b *credit.CreditBalance) error {
			lotSourceID = b.SourceID
			return nil
		},
	}
	journal := &fakeJournal{}
	db := &fakeTxBeginner{}

	svc := newTestService(balances, &fakeUsageStore{}, &fakeJobStore{}, journal, db)

	_, err := svc.AdminGrant(context.Background(), 1, &credit.AdminGrantRequest{
		CreditType: credit.TypeUrgent,
		Amount:     3,
		Note:       "goodwill",
	})
	require.NoError(t, err)

	require.Len(t, journal.entries, 1)
	entry := journal.entries[0]
	require.Equal(t, transaction.TypeAdminGrant, entry.Type)
	require.Equal(t, lotSourceID, entry.Reference)
	require.NotEmpty(t, entry.Reference)
	require.Contains(t, entry.Description, "goodwill")
	require.Equal(t, 1, db.tx.commits)
}

func TestAdminGrantCreatesDistinctLots(t *testing.T) {
	seen := map[string]bool{}
	balances := &fakeBalanceStore{
		upsertTxFn: func(ctx context.Context, tx pgx.Tx, b *credit.CreditBalance) error {
			seen[b.SourceID] = true
			return nil
		},
	}

	svc := newTestService(balances, &fakeUsageStore{}, &fakeJobStore{}, &fakeJournal{}, &fakeTxBeginner{})

	for i := 0; i < 3; i++ {
		_, err := svc.AdminGrant(context.Background(), 1, &credit.AdminGrantRequest{
			CreditType: credit.TypeFeatured,
			Amount:     1,
		})
		require.NoError(t, err)
	}
	require.Len(t, seen, 3)
}

func TestAddEngagementChecksOwnership(t *testing.T) {
	usages := &fakeUsageStore{
		findByIDFn: func(ctx context.Context, id int64) (*credit.CreditUsage, error) {
			return &credit.CreditUsage{ID: id, CompanyID: 2}, nil
		},
	}

	svc := newTestService(&fakeBalanceStore{}, usages, &fakeJobStore{}, &fakeJournal{}, &fakeTxBeginner{})

	err := svc.AddEngagement(context.Background(), 1, 10, 5, 1, 0)
	require.ErrorIs(t, err, xerrors.ErrNotFound)
}

func TestListUsagesDefaultsPagination(t *testing.T) {
	var gotFilters *credit.UsageListFilters
	usages := &fakeUsageStore{
		listFn: func(ctx context.Context, companyID int64, filters *credit.UsageListFilters) ([]credit.CreditUsage, int64, error) {
			gotFilters = filters
			return []credit.CreditUsage{{ID: 1}}, 41, nil
		},
	}

	svc := newTestService(&fakeBalanceStore{}, usages, &fakeJobStore{}, &fakeJournal{}, &fakeTxBeginner{})

	resp, err := svc.ListUsages(context.Background(), 1, &credit.UsageListFilters{})
	require.NoError(t, err)
	require.Equal(t, 1, gotFilters.Page)
	require.Equal(t, 20, gotFilters.PageSize)
	require.Equal(t, 3, resp.TotalPages)
}
