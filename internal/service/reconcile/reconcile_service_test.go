// internal/service/reconcile/reconcile_service_test.go
package reconcile

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"talenthub-service/internal/domain/credit"
	"talenthub-service/internal/domain/subscription"
	xerrors "talenthub-service/internal/pkg/errors"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSweeper struct {
	sweepErr      error
	sweepCalls    int
	deactivations int
}

func (f *fakeSweeper) SweepExpired(ctx context.Context) (int64, error) {
	f.sweepCalls++
	return 0, f.sweepErr
}

func (f *fakeSweeper) DeactivateExpiredUsages(ctx context.Context) (int64, error) {
	f.deactivations++
	return 0, nil
}

type fakeCandidates struct {
	lowLots      []credit.CreditBalance
	expiringLots []credit.CreditBalance
	lowMarked    []int64
	expiryMarked []int64
}

func (f *fakeCandidates) LowBalanceCandidates(ctx context.Context, threshold int) ([]credit.CreditBalance, error) {
	return f.lowLots, nil
}

func (f *fakeCandidates) ExpiringSoonCandidates(ctx context.Context, daysAhead int) ([]credit.CreditBalance, error) {
	return f.expiringLots, nil
}

func (f *fakeCandidates) MarkLowCreditNotified(ctx context.Context, id int64) error {
	f.lowMarked = append(f.lowMarked, id)
	return nil
}

func (f *fakeCandidates) MarkExpiryNotified(ctx context.Context, id int64) error {
	f.expiryMarked = append(f.expiryMarked, id)
	return nil
}

type fakeRenewer struct {
	renewed    int
	renewErr   error
	renewCalls int
	upcoming   []subscription.CompanySubscription
}

func (f *fakeRenewer) RenewExpiredSubscriptions(ctx context.Context) (int, error) {
	f.renewCalls++
	return f.renewed, f.renewErr
}

func (f *fakeRenewer) UpcomingRenewals(ctx context.Context, daysAhead int) ([]subscription.CompanySubscription, error) {
	return f.upcoming, nil
}

type fakePlanLookup struct {
	plans map[int64]*subscription.SubscriptionPlan
}

func (f *fakePlanLookup) FindByID(ctx context.Context, id int64) (*subscription.SubscriptionPlan, error) {
	if p, ok := f.plans[id]; ok {
		return p, nil
	}
	return nil, xerrors.ErrNotFound
}

type notifyCall struct {
	kind      string
	companyID int64
}

type fakeNotifier struct {
	calls       []notifyCall
	lowErr      error
	expiringErr error
	pruned      int
}

func (f *fakeNotifier) SendLowCreditsAlert(ctx context.Context, companyID int64, creditType string, remaining int) error {
	f.calls = append(f.calls, notifyCall{"low", companyID})
	return f.lowErr
}

func (f *fakeNotifier) SendCreditsExpiringAlert(ctx context.Context, companyID int64, creditType string, amount int, expiresAt time.Time) error {
	f.calls = append(f.calls, notifyCall{"expiring", companyID})
	return f.expiringErr
}

func (f *fakeNotifier) SendRenewalUpcoming(ctx context.Context, companyID int64, planName string, renewsAt time.Time) error {
	f.calls = append(f.calls, notifyCall{"renewal", companyID})
	return nil
}

func (f *fakeNotifier) DeleteExpiredNotifications(ctx context.Context) (int64, error) {
	f.pruned++
	return 0, nil
}

func TestDailySweepContainsStepFailures(t *testing.T) {
	sweeper := &fakeSweeper{sweepErr: errors.New("deadlock detected")}
	renewer := &fakeRenewer{renewed: 2}
	notifier := &fakeNotifier{}

	svc := NewReconcileService(sweeper, &fakeCandidates{}, renewer, &fakePlanLookup{}, notifier, zap.NewNop())

	// a failing step never aborts the sweep
	require.NoError(t, svc.RunDailySweep(context.Background()))
	require.Equal(t, 1, sweeper.sweepCalls)
	require.Equal(t, 1, sweeper.deactivations)
	require.Equal(t, 1, renewer.renewCalls)
	require.Equal(t, 1, notifier.pruned)
}

func TestAlertSweepMarksLowBalanceOnce(t *testing.T) {
	candidates := &fakeCandidates{
		lowLots: []credit.CreditBalance{
			{ID: 1, CompanyID: 10, Type: credit.TypeFeatured, Amount: 1},
			{ID: 2, CompanyID: 20, Type: credit.TypeUrgent, Amount: 2},
		},
	}
	notifier := &fakeNotifier{}

	svc := NewReconcileService(&fakeSweeper{}, candidates, &fakeRenewer{}, &fakePlanLookup{}, notifier, zap.NewNop())

	require.NoError(t, svc.RunAlertSweep(context.Background()))
	require.Equal(t, []int64{1, 2}, candidates.lowMarked)
}

func TestAlertSweepKeepsUnsentAlertsArmed(t *testing.T) {
	candidates := &fakeCandidates{
		lowLots: []credit.CreditBalance{{ID: 1, CompanyID: 10, Type: credit.TypeFeatured, Amount: 1}},
	}
	notifier := &fakeNotifier{lowErr: errors.New("hub unavailable")}

	svc := NewReconcileService(&fakeSweeper{}, candidates, &fakeRenewer{}, &fakePlanLookup{}, notifier, zap.NewNop())

	require.NoError(t, svc.RunAlertSweep(context.Background()))
	// the flag stays unset so the next sweep retries the alert
	require.Empty(t, candidates.lowMarked)
}

func TestAlertSweepNotifiesExpiringLots(t *testing.T) {
	expiry := sql.NullTime{Time: time.Now().AddDate(0, 0, 2), Valid: true}
	candidates := &fakeCandidates{
		expiringLots: []credit.CreditBalance{
			{ID: 5, CompanyID: 10, Type: credit.TypeHomepage, Amount: 3, ExpiresAt: expiry},
			{ID: 6, CompanyID: 11, Type: credit.TypeHomepage, Amount: 1}, // no expiry, skipped
		},
	}
	notifier := &fakeNotifier{}

	svc := NewReconcileService(&fakeSweeper{}, candidates, &fakeRenewer{}, &fakePlanLookup{}, notifier, zap.NewNop())

	require.NoError(t, svc.RunAlertSweep(context.Background()))
	require.Equal(t, []int64{5}, candidates.expiryMarked)
}

func TestDailySweepSendsRenewalNotices(t *testing.T) {
	renewer := &fakeRenewer{
		upcoming: []subscription.CompanySubscription{
			{ID: 1, CompanyID: 10, PlanID: 3, EndDate: time.Now().AddDate(0, 0, 2)},
		},
	}
	plans := &fakePlanLookup{plans: map[int64]*subscription.SubscriptionPlan{3: {ID: 3, Name: "Growth"}}}
	notifier := &fakeNotifier{}

	svc := NewReconcileService(&fakeSweeper{}, &fakeCandidates{}, renewer, plans, notifier, zap.NewNop())

	require.NoError(t, svc.RunDailySweep(context.Background()))

	var renewals int
	for _, c := range notifier.calls {
		if c.kind == "renewal" {
			renewals++
			require.Equal(t, int64(10), c.companyID)
		}
	}
	require.Equal(t, 1, renewals)
}

func TestAlertSweepLeavesRenewalNoticesToDailySweep(t *testing.T) {
	renewer := &fakeRenewer{
		upcoming: []subscription.CompanySubscription{
			{ID: 1, CompanyID: 10, PlanID: 3, EndDate: time.Now().AddDate(0, 0, 2)},
		},
	}
	notifier := &fakeNotifier{}

	svc := NewReconcileService(&fakeSweeper{}, &fakeCandidates{}, renewer, &fakePlanLookup{}, notifier, zap.NewNop())

	// the six-hourly sweep never touches renewals, one notice per day is enough
	require.NoError(t, svc.RunAlertSweep(context.Background()))
	require.Empty(t, notifier.calls)
}
