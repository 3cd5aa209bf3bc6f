// internal/service/subscription/subscription_service_test.go
package subscription

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"talenthub-service/internal/domain/company"
	"talenthub-service/internal/domain/credit"
	"talenthub-service/internal/domain/subscription"
	"talenthub-service/internal/domain/transaction"
	wstypes "talenthub-service/internal/domain/websocket"
	xerrors "talenthub-service/internal/pkg/errors"
	creditsvc "talenthub-service/internal/service/credit"

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

type fakeSubscriptionStore struct {
	createFn       func(ctx context.Context, tx pgx.Tx, sub *subscription.CompanySubscription) error
	findActiveFn   func(ctx context.Context, companyID int64) (*subscription.CompanySubscription, error)
	cancelActiveFn func(ctx context.Context, tx pgx.Tx, companyID int64, reason string) (int64, error)
	cancelFn       func(ctx context.Context, id int64, reason string) error
	advanceFn      func(ctx context.Context, tx pgx.Tx, id int64, newEndDate time.Time) error
	expiredFn      func(ctx context.Context) ([]subscription.CompanySubscription, error)
	upcomingFn     func(ctx context.Context, daysAhead int) ([]subscription.CompanySubscription, error)
}

func (f *fakeSubscriptionStore) CreateWithTx(ctx context.Context, tx pgx.Tx, sub *subscription.CompanySubscription) error {
	if f.createFn != nil {
		return f.createFn(ctx, tx, sub)
	}
	return nil
}

func (f *fakeSubscriptionStore) FindActiveByCompany(ctx context.Context, companyID int64) (*subscription.CompanySubscription, error) {
	if f.findActiveFn != nil {
		return f.findActiveFn(ctx, companyID)
	}
	return nil, xerrors.ErrNoActiveSubscription
}

func (f *fakeSubscriptionStore) CancelActiveWithTx(ctx context.Context, tx pgx.Tx, companyID int64, reason string) (int64, error) {
	if f.cancelActiveFn != nil {
		return f.cancelActiveFn(ctx, tx, companyID, reason)
	}
	return 0, nil
}

func (f *fakeSubscriptionStore) Cancel(ctx context.Context, id int64, reason string) error {
	if f.cancelFn != nil {
		return f.cancelFn(ctx, id, reason)
	}
	return nil
}

func (f *fakeSubscriptionStore) AdvancePeriodWithTx(ctx context.Context, tx pgx.Tx, id int64, newEndDate time.Time) error {
	if f.advanceFn != nil {
		return f.advanceFn(ctx, tx, id, newEndDate)
	}
	return nil
}

func (f *fakeSubscriptionStore) FindExpiredActive(ctx context.Context) ([]subscription.CompanySubscription, error) {
	if f.expiredFn != nil {
		return f.expiredFn(ctx)
	}
	return nil, nil
}

func (f *fakeSubscriptionStore) FindUpcomingRenewals(ctx context.Context, daysAhead int) ([]subscription.CompanySubscription, error) {
	if f.upcomingFn != nil {
		return f.upcomingFn(ctx, daysAhead)
	}
	return nil, nil
}

type fakePlanStore struct {
	plans map[int64]*subscription.SubscriptionPlan
}

func (f *fakePlanStore) FindByID(ctx context.Context, id int64) (*subscription.SubscriptionPlan, error) {
	if p, ok := f.plans[id]; ok {
		return p, nil
	}
	return nil, xerrors.ErrNotFound
}

type fakeCompanyStore struct {
	maxJobsSet map[int64]int
}

func (f *fakeCompanyStore) FindByID(ctx context.Context, id int64) (*company.Company, error) {
	return &company.Company{ID: id, Name: "Acme Recruiting"}, nil
}

func (f *fakeCompanyStore) SetMaxActiveJobsWithTx(ctx context.Context, tx pgx.Tx, companyID int64, maxActiveJobs int) error {
	if f.maxJobsSet == nil {
		f.maxJobsSet = map[int64]int{}
	}
	f.maxJobsSet[companyID] = maxActiveJobs
	return nil
}

type fakeJobCounter struct {
	active map[int64]int
}

func (f *fakeJobCounter) CountActiveByCompany(ctx context.Context, companyID int64) (int, error) {
	return f.active[companyID], nil
}

type depositCall struct {
	companyID int64
	in        *creditsvc.DepositInput
}

type fakeDepositor struct {
	deposits  []depositCall
	depositFn func(ctx context.Context, tx pgx.Tx, in *creditsvc.DepositInput) (*credit.CreditBalance, error)
}

func (f *fakeDepositor) DepositWithTx(ctx context.Context, tx pgx.Tx, in *creditsvc.DepositInput) (*credit.CreditBalance, error) {
	f.deposits = append(f.deposits, depositCall{companyID: in.CompanyID, in: in})
	if f.depositFn != nil {
		return f.depositFn(ctx, tx, in)
	}
	return &credit.CreditBalance{}, nil
}

func (f *fakeDepositor) GetBalance(ctx context.Context, companyID int64) (*credit.BalanceSummary, error) {
	return &credit.BalanceSummary{Featured: 1}, nil
}

type fakeJournal struct {
	entries []*transaction.Transaction
}

func (f *fakeJournal) CreateWithTx(ctx context.Context, tx pgx.Tx, t *transaction.Transaction) error {
	f.entries = append(f.entries, t)
	return nil
}

type fakeBroadcaster struct {
	events []*wstypes.SubscriptionEventData
}

func (f *fakeBroadcaster) BroadcastSubscriptionUpdate(companyID int64, event *wstypes.SubscriptionEventData) {
	f.events = append(f.events, event)
}

func standardPlan() *subscription.SubscriptionPlan {
	return &subscription.SubscriptionPlan{
		ID:                     3,
		Name:                   "Growth",
		Price:                  49,
		Currency:               "USD",
		MaxActiveJobs:          10,
		FeaturedCreditsMonthly: 5,
		HomepageCreditsMonthly: 0,
		UrgentCreditsMonthly:   2,
		IsActive:               true,
	}
}

func TestAssignReplacesActiveAndGrantsCredits(t *testing.T) {
	var cancelledReason string
	subs := &fakeSubscriptionStore{
		cancelActiveFn: func(ctx context.Context, tx pgx.Tx, companyID int64, reason string) (int64, error) {
			cancelledReason = reason
			return 1, nil
		},
	}
	plans := &fakePlanStore{plans: map[int64]*subscription.SubscriptionPlan{3: standardPlan()}}
	companies := &fakeCompanyStore{}
	credits := &fakeDepositor{}
	journal := &fakeJournal{}
	db := &fakeTxBeginner{}

	svc := NewSubscriptionService(subs, plans, companies, &fakeJobCounter{}, credits, journal, db, &fakeBroadcaster{}, zap.NewNop())

	sub, err := svc.Assign(context.Background(), 1, 3)
	require.NoError(t, err)
	require.Equal(t, subscription.StatusActive, sub.Status)
	require.WithinDuration(t, time.Now().AddDate(0, 0, 30), sub.EndDate, 5*time.Second)

	require.Equal(t, "superseded", cancelledReason)
	require.Equal(t, 10, companies.maxJobsSet[1])

	// zero-amount homepage grant is skipped
	require.Len(t, credits.deposits, 2)
	for _, d := range credits.deposits {
		require.Equal(t, credit.SourcePlanMonthly, d.in.Source)
		require.Equal(t, strconv.FormatInt(int64(3), 10), d.in.SourceID)
		require.False(t, d.in.ExpiresAt.Valid)
	}

	require.Len(t, journal.entries, 1)
	require.Equal(t, transaction.TypeSubscriptionAssigned, journal.entries[0].Type)
	require.Equal(t, float64(49), journal.entries[0].Amount)

	require.Equal(t, 1, db.tx.commits)
}

func TestAssignRejectsInactivePlan(t *testing.T) {
	plan := standardPlan()
	plan.IsActive = false
	plans := &fakePlanStore{plans: map[int64]*subscription.SubscriptionPlan{3: plan}}

	svc := NewSubscriptionService(&fakeSubscriptionStore{}, plans, &fakeCompanyStore{}, &fakeJobCounter{}, &fakeDepositor{}, &fakeJournal{}, &fakeTxBeginner{}, &fakeBroadcaster{}, zap.NewNop())

	_, err := svc.Assign(context.Background(), 1, 3)
	require.ErrorIs(t, err, xerrors.ErrInvalidInput)
}

func TestCancelWithoutActiveSubscription(t *testing.T) {
	svc := NewSubscriptionService(&fakeSubscriptionStore{}, &fakePlanStore{}, &fakeCompanyStore{}, &fakeJobCounter{}, &fakeDepositor{}, &fakeJournal{}, &fakeTxBeginner{}, &fakeBroadcaster{}, zap.NewNop())

	err := svc.Cancel(context.Background(), 1, "")
	require.ErrorIs(t, err, xerrors.ErrNoActiveSubscription)
}

func TestCancelUsesDefaultReason(t *testing.T) {
	var gotReason string
	subs := &fakeSubscriptionStore{
		findActiveFn: func(ctx context.Context, companyID int64) (*subscription.CompanySubscription, error) {
			return &subscription.CompanySubscription{ID: 5, CompanyID: companyID, Status: subscription.StatusActive}, nil
		},
		cancelFn: func(ctx context.Context, id int64, reason string) error {
			gotReason = reason
			return nil
		},
	}

	svc := NewSubscriptionService(subs, &fakePlanStore{}, &fakeCompanyStore{}, &fakeJobCounter{}, &fakeDepositor{}, &fakeJournal{}, &fakeTxBeginner{}, &fakeBroadcaster{}, zap.NewNop())

	require.NoError(t, svc.Cancel(context.Background(), 1, ""))
	require.Equal(t, "cancelled by company", gotReason)
}

func TestRenewAdvancesFromPreviousEndDate(t *testing.T) {
	end := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	var newEnd time.Time
	subs := &fakeSubscriptionStore{
		advanceFn: func(ctx context.Context, tx pgx.Tx, id int64, newEndDate time.Time) error {
			newEnd = newEndDate
			return nil
		},
	}
	plans := &fakePlanStore{plans: map[int64]*subscription.SubscriptionPlan{3: standardPlan()}}
	credits := &fakeDepositor{}
	journal := &fakeJournal{}
	db := &fakeTxBeginner{}

	svc := NewSubscriptionService(subs, plans, &fakeCompanyStore{}, &fakeJobCounter{}, credits, journal, db, &fakeBroadcaster{}, zap.NewNop())

	sub := &subscription.CompanySubscription{ID: 5, CompanyID: 1, PlanID: 3, Status: subscription.StatusActive, EndDate: end}
	require.NoError(t, svc.Renew(context.Background(), sub))

	// the new period starts where the old one ended, not at renewal time
	require.Equal(t, end.AddDate(0, 0, 30), newEnd)
	require.Len(t, credits.deposits, 2)
	require.Len(t, journal.entries, 1)
	require.Equal(t, transaction.TypeSubscriptionRenewed, journal.entries[0].Type)
	require.Equal(t, 1, db.tx.commits)
}

func TestRenewExpiredContinuesPastFailures(t *testing.T) {
	subs := &fakeSubscriptionStore{
		expiredFn: func(ctx context.Context) ([]subscription.CompanySubscription, error) {
			return []subscription.CompanySubscription{
				{ID: 1, CompanyID: 1, PlanID: 3},
				{ID: 2, CompanyID: 2, PlanID: 99}, // missing plan, renewal fails
				{ID: 3, CompanyID: 3, PlanID: 3},
			}, nil
		},
	}
	plans := &fakePlanStore{plans: map[int64]*subscription.SubscriptionPlan{3: standardPlan()}}

	svc := NewSubscriptionService(subs, plans, &fakeCompanyStore{}, &fakeJobCounter{}, &fakeDepositor{}, &fakeJournal{}, &fakeTxBeginner{}, &fakeBroadcaster{}, zap.NewNop())

	renewed, err := svc.RenewExpiredSubscriptions(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, renewed)
}

func TestGetCurrentEntitlementWithoutSubscription(t *testing.T) {
	jobs := &fakeJobCounter{active: map[int64]int{1: 3}}
	svc := NewSubscriptionService(&fakeSubscriptionStore{}, &fakePlanStore{}, &fakeCompanyStore{}, jobs, &fakeDepositor{}, &fakeJournal{}, &fakeTxBeginner{}, &fakeBroadcaster{}, zap.NewNop())

	ent, err := svc.GetCurrentEntitlement(context.Background(), 1)
	require.NoError(t, err)
	require.Nil(t, ent.Subscription)
	require.Nil(t, ent.Plan)
	require.NotNil(t, ent.Credits)
	require.Equal(t, 1, ent.Credits.Featured)
	require.Equal(t, 3, ent.ActiveJobs)
}

func TestGetCurrentEntitlementSurfacesStoreErrors(t *testing.T) {
	boom := errors.New("connection reset")
	subs := &fakeSubscriptionStore{
		findActiveFn: func(ctx context.Context, companyID int64) (*subscription.CompanySubscription, error) {
			return nil, boom
		},
	}

	svc := NewSubscriptionService(subs, &fakePlanStore{}, &fakeCompanyStore{}, &fakeJobCounter{}, &fakeDepositor{}, &fakeJournal{}, &fakeTxBeginner{}, &fakeBroadcaster{}, zap.NewNop())

	_, err := svc.GetCurrentEntitlement(context.Background(), 1)
	require.ErrorIs(t, err, boom)
}
