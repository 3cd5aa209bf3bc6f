// internal/service/planrequest/request_service_test.go
package planrequest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"talenthub-service/internal/domain/credit"
	"talenthub-service/internal/domain/request"
	"talenthub-service/internal/domain/subscription"
	"talenthub-service/internal/domain/transaction"
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

type fakeRequestStore struct {
	byID      map[int64]*request.PlanRequest
	pending   bool
	pendingFn func(ctx context.Context, companyID int64, kind request.Kind, targetID int64) (bool, error)
	resolved  []struct {
		id     int64
		status request.Status
		by     int64
	}
	resolveErr error
	createErr  error
	created    *request.PlanRequest
}

func (f *fakeRequestStore) HasPending(ctx context.Context, companyID int64, kind request.Kind, targetID int64) (bool, error) {
	if f.pendingFn != nil {
		return f.pendingFn(ctx, companyID, kind, targetID)
	}
	return f.pending, nil
}

func (f *fakeRequestStore) Create(ctx context.Context, req *request.PlanRequest) error {
	if f.createErr != nil {
		return f.createErr
	}
	req.ID = 100
	f.created = req
	return nil
}

func (f *fakeRequestStore) FindByID(ctx context.Context, id int64) (*request.PlanRequest, error) {
	if req, ok := f.byID[id]; ok {
		return req, nil
	}
	return nil, xerrors.ErrNotFound
}

func (f *fakeRequestStore) Resolve(ctx context.Context, id int64, status request.Status, resolvedBy int64) error {
	if f.resolveErr != nil {
		return f.resolveErr
	}
	f.resolved = append(f.resolved, struct {
		id     int64
		status request.Status
		by     int64
	}{id, status, resolvedBy})
	if req, ok := f.byID[id]; ok {
		req.Status = status
	}
	return nil
}

func (f *fakeRequestStore) List(ctx context.Context, companyID int64, filters *request.ListFilters) ([]request.PlanRequest, int64, error) {
	return nil, 0, nil
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

type fakePackageStore struct {
	packages map[int64]*credit.CreditPackage
}

func (f *fakePackageStore) FindByID(ctx context.Context, id int64) (*credit.CreditPackage, error) {
	if p, ok := f.packages[id]; ok {
		return p, nil
	}
	return nil, xerrors.ErrNotFound
}

type fakeAssigner struct {
	assigned []int64
	err      error
}

func (f *fakeAssigner) Assign(ctx context.Context, companyID, planID int64) (*subscription.CompanySubscription, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.assigned = append(f.assigned, planID)
	return &subscription.CompanySubscription{CompanyID: companyID, PlanID: planID}, nil
}

type fakeDepositor struct {
	deposits []*creditsvc.DepositInput
}

func (f *fakeDepositor) DepositWithTx(ctx context.Context, tx pgx.Tx, in *creditsvc.DepositInput) (*credit.CreditBalance, error) {
	f.deposits = append(f.deposits, in)
	return &credit.CreditBalance{}, nil
}

type fakeJournal struct {
	entries []*transaction.Transaction
}

func (f *fakeJournal) CreateWithTx(ctx context.Context, tx pgx.Tx, t *transaction.Transaction) error {
	f.entries = append(f.entries, t)
	return nil
}

type fakeNotifier struct {
	calls []bool
	err   error
}

func (f *fakeNotifier) SendRequestResolved(ctx context.Context, companyID int64, requestID int64, kind string, approved bool) error {
	f.calls = append(f.calls, approved)
	return f.err
}

func newTestService(requests *fakeRequestStore, plans *fakePlanStore, packages *fakePackageStore, assigner *fakeAssigner, credits *fakeDepositor, journal *fakeJournal, db *fakeTxBeginner, notifier *fakeNotifier) *RequestService {
	return NewRequestService(requests, plans, packages, assigner, credits, journal, db, notifier, zap.NewNop())
}

func activePlan() *subscription.SubscriptionPlan {
	return &subscription.SubscriptionPlan{ID: 3, Name: "Growth", IsActive: true}
}

func activePackage() *credit.CreditPackage {
	return &credit.CreditPackage{
		ID:              8,
		Name:            "Starter Bundle",
		Price:           19,
		Currency:        "USD",
		FeaturedCredits: 4,
		UrgentCredits:   2,
		DurationDays:    14,
		IsActive:        true,
	}
}

func TestRequestPlanRejectsDuplicatePending(t *testing.T) {
	requests := &fakeRequestStore{pending: true}
	plans := &fakePlanStore{plans: map[int64]*subscription.SubscriptionPlan{3: activePlan()}}

	svc := newTestService(requests, plans, &fakePackageStore{}, &fakeAssigner{}, &fakeDepositor{}, &fakeJournal{}, &fakeTxBeginner{}, &fakeNotifier{})

	_, err := svc.RequestPlan(context.Background(), 1, &request.RequestPlanInput{PlanID: 3})
	require.ErrorIs(t, err, xerrors.ErrRequestAlreadyExists)
}

func TestRequestPlanSurfacesInsertConflict(t *testing.T) {
	// two submissions race past the pending check; the unique index makes the
	// loser's insert fail, which must read the same as failing the check
	requests := &fakeRequestStore{createErr: xerrors.ErrRequestAlreadyExists}
	plans := &fakePlanStore{plans: map[int64]*subscription.SubscriptionPlan{3: activePlan()}}

	svc := newTestService(requests, plans, &fakePackageStore{}, &fakeAssigner{}, &fakeDepositor{}, &fakeJournal{}, &fakeTxBeginner{}, &fakeNotifier{})

	_, err := svc.RequestPlan(context.Background(), 1, &request.RequestPlanInput{PlanID: 3})
	require.ErrorIs(t, err, xerrors.ErrRequestAlreadyExists)
}

func TestRequestPlanFilesPending(t *testing.T) {
	requests := &fakeRequestStore{}
	plans := &fakePlanStore{plans: map[int64]*subscription.SubscriptionPlan{3: activePlan()}}

	svc := newTestService(requests, plans, &fakePackageStore{}, &fakeAssigner{}, &fakeDepositor{}, &fakeJournal{}, &fakeTxBeginner{}, &fakeNotifier{})

	req, err := svc.RequestPlan(context.Background(), 1, &request.RequestPlanInput{PlanID: 3, Note: "need more slots"})
	require.NoError(t, err)
	require.Equal(t, request.StatusPending, req.Status)
	require.Equal(t, request.KindPlan, req.Kind)
	require.True(t, req.PlanID.Valid)
	require.Equal(t, "need more slots", req.Note.String)
}

func TestRequestPackageRejectsInactive(t *testing.T) {
	pkg := activePackage()
	pkg.IsActive = false
	packages := &fakePackageStore{packages: map[int64]*credit.CreditPackage{8: pkg}}

	svc := newTestService(&fakeRequestStore{}, &fakePlanStore{}, packages, &fakeAssigner{}, &fakeDepositor{}, &fakeJournal{}, &fakeTxBeginner{}, &fakeNotifier{})

	_, err := svc.RequestPackage(context.Background(), 1, &request.RequestPackageInput{PackageID: 8})
	require.ErrorIs(t, err, xerrors.ErrInvalidInput)
}

func TestApprovePlanRequestAssignsPlan(t *testing.T) {
	requests := &fakeRequestStore{byID: map[int64]*request.PlanRequest{
		10: {ID: 10, CompanyID: 1, Kind: request.KindPlan, Status: request.StatusPending, PlanID: sql.NullInt64{Int64: 3, Valid: true}},
	}}
	assigner := &fakeAssigner{}
	notifier := &fakeNotifier{}

	svc := newTestService(requests, &fakePlanStore{}, &fakePackageStore{}, assigner, &fakeDepositor{}, &fakeJournal{}, &fakeTxBeginner{}, notifier)

	req, err := svc.Approve(context.Background(), 10, 77)
	require.NoError(t, err)
	require.Equal(t, request.StatusApproved, req.Status)

	require.Len(t, requests.resolved, 1)
	require.Equal(t, request.StatusApproved, requests.resolved[0].status)
	require.Equal(t, int64(77), requests.resolved[0].by)

	require.Equal(t, []int64{3}, assigner.assigned)
	require.Equal(t, []bool{true}, notifier.calls)
}

func TestApprovePackageRequestGrantsCredits(t *testing.T) {
	requests := &fakeRequestStore{byID: map[int64]*request.PlanRequest{
		11: {ID: 11, CompanyID: 1, Kind: request.KindPackage, Status: request.StatusPending, PackageID: sql.NullInt64{Int64: 8, Valid: true}},
	}}
	packages := &fakePackageStore{packages: map[int64]*credit.CreditPackage{8: activePackage()}}
	credits := &fakeDepositor{}
	journal := &fakeJournal{}
	db := &fakeTxBeginner{}

	svc := newTestService(requests, &fakePlanStore{}, packages, &fakeAssigner{}, credits, journal, db, &fakeNotifier{})

	_, err := svc.Approve(context.Background(), 11, 77)
	require.NoError(t, err)

	// zero-amount homepage grant is skipped
	require.Len(t, credits.deposits, 2)
	for _, d := range credits.deposits {
		require.Equal(t, credit.SourcePurchase, d.Source)
		require.Equal(t, fmt.Sprintf("%d", 11), d.SourceID)
		require.Equal(t, 14, d.DurationDays)
		require.True(t, d.ExpiresAt.Valid)
	}

	require.Len(t, journal.entries, 1)
	require.Equal(t, transaction.TypePackagePurchase, journal.entries[0].Type)
	require.Equal(t, float64(19), journal.entries[0].Amount)
	require.Equal(t, 1, db.tx.commits)
}

func TestApproveRejectsResolvedRequest(t *testing.T) {
	requests := &fakeRequestStore{byID: map[int64]*request.PlanRequest{
		12: {ID: 12, CompanyID: 1, Kind: request.KindPlan, Status: request.StatusApproved},
	}}

	svc := newTestService(requests, &fakePlanStore{}, &fakePackageStore{}, &fakeAssigner{}, &fakeDepositor{}, &fakeJournal{}, &fakeTxBeginner{}, &fakeNotifier{})

	_, err := svc.Approve(context.Background(), 12, 77)
	require.ErrorIs(t, err, xerrors.ErrInvalidStatus)
	require.Empty(t, requests.resolved)
}

func TestApproveLosingRacerStopsBeforeEffects(t *testing.T) {
	requests := &fakeRequestStore{
		byID: map[int64]*request.PlanRequest{
			13: {ID: 13, CompanyID: 1, Kind: request.KindPlan, Status: request.StatusPending, PlanID: sql.NullInt64{Int64: 3, Valid: true}},
		},
		resolveErr: xerrors.ErrNotFound, // another admin resolved it first
	}
	assigner := &fakeAssigner{}

	svc := newTestService(requests, &fakePlanStore{}, &fakePackageStore{}, assigner, &fakeDepositor{}, &fakeJournal{}, &fakeTxBeginner{}, &fakeNotifier{})

	_, err := svc.Approve(context.Background(), 13, 77)
	require.Error(t, err)
	require.Empty(t, assigner.assigned)
}

func TestApproveIgnoresNotifyFailure(t *testing.T) {
	requests := &fakeRequestStore{byID: map[int64]*request.PlanRequest{
		14: {ID: 14, CompanyID: 1, Kind: request.KindPlan, Status: request.StatusPending, PlanID: sql.NullInt64{Int64: 3, Valid: true}},
	}}
	notifier := &fakeNotifier{err: errors.New("websocket down")}

	svc := newTestService(requests, &fakePlanStore{}, &fakePackageStore{}, &fakeAssigner{}, &fakeDepositor{}, &fakeJournal{}, &fakeTxBeginner{}, notifier)

	req, err := svc.Approve(context.Background(), 14, 77)
	require.NoError(t, err)
	require.Equal(t, request.StatusApproved, req.Status)
}

func TestCancelOwnPendingRequest(t *testing.T) {
	requests := &fakeRequestStore{byID: map[int64]*request.PlanRequest{
		16: {ID: 16, CompanyID: 1, Kind: request.KindPlan, Status: request.StatusPending, PlanID: sql.NullInt64{Int64: 3, Valid: true}},
	}}
	notifier := &fakeNotifier{}

	svc := newTestService(requests, &fakePlanStore{}, &fakePackageStore{}, &fakeAssigner{}, &fakeDepositor{}, &fakeJournal{}, &fakeTxBeginner{}, notifier)

	req, err := svc.Cancel(context.Background(), 16, 1, 42)
	require.NoError(t, err)
	require.Equal(t, request.StatusRejected, req.Status)
	require.Empty(t, notifier.calls)
}

func TestCancelHidesForeignRequests(t *testing.T) {
	requests := &fakeRequestStore{byID: map[int64]*request.PlanRequest{
		16: {ID: 16, CompanyID: 2, Kind: request.KindPlan, Status: request.StatusPending, PlanID: sql.NullInt64{Int64: 3, Valid: true}},
	}}

	svc := newTestService(requests, &fakePlanStore{}, &fakePackageStore{}, &fakeAssigner{}, &fakeDepositor{}, &fakeJournal{}, &fakeTxBeginner{}, &fakeNotifier{})

	_, err := svc.Cancel(context.Background(), 16, 1, 42)
	require.ErrorIs(t, err, xerrors.ErrNotFound)
	require.Empty(t, requests.resolved)
}

func TestRejectResolvesWithoutEffects(t *testing.T) {
	requests := &fakeRequestStore{byID: map[int64]*request.PlanRequest{
		15: {ID: 15, CompanyID: 1, Kind: request.KindPackage, Status: request.StatusPending, PackageID: sql.NullInt64{Int64: 8, Valid: true}},
	}}
	credits := &fakeDepositor{}
	notifier := &fakeNotifier{}

	svc := newTestService(requests, &fakePlanStore{}, &fakePackageStore{}, &fakeAssigner{}, credits, &fakeJournal{}, &fakeTxBeginner{}, notifier)

	req, err := svc.Reject(context.Background(), 15, 77)
	require.NoError(t, err)
	require.Equal(t, request.StatusRejected, req.Status)
	require.Empty(t, credits.deposits)
	require.Equal(t, []bool{false}, notifier.calls)
}
