// internal/service/subscription/subscription_service.go
package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"talenthub-service/internal/domain/company"
	"talenthub-service/internal/domain/credit"
	"talenthub-service/internal/domain/subscription"
	"talenthub-service/internal/domain/transaction"
	wstypes "talenthub-service/internal/domain/websocket"
	xerrors "talenthub-service/internal/pkg/errors"
	creditsvc "talenthub-service/internal/service/credit"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// periodDays is the length of one billing period.
const periodDays = 30

type subscriptionStore interface {
	CreateWithTx(ctx context.Context, tx pgx.Tx, sub *subscription.CompanySubscription) error
	FindActiveByCompany(ctx context.Context, companyID int64) (*subscription.CompanySubscription, error)
	CancelActiveWithTx(ctx context.Context, tx pgx.Tx, companyID int64, reason string) (int64, error)
	Cancel(ctx context.Context, id int64, reason string) error
	AdvancePeriodWithTx(ctx context.Context, tx pgx.Tx, id int64, newEndDate time.Time) error
	FindExpiredActive(ctx context.Context) ([]subscription.CompanySubscription, error)
	FindUpcomingRenewals(ctx context.Context, daysAhead int) ([]subscription.CompanySubscription, error)
}

type planStore interface {
	FindByID(ctx context.Context, id int64) (*subscription.SubscriptionPlan, error)
}

type companyStore interface {
	FindByID(ctx context.Context, id int64) (*company.Company, error)
	SetMaxActiveJobsWithTx(ctx context.Context, tx pgx.Tx, companyID int64, maxActiveJobs int) error
}

type jobCounter interface {
	CountActiveByCompany(ctx context.Context, companyID int64) (int, error)
}

type depositor interface {
	DepositWithTx(ctx context.Context, tx pgx.Tx, in *creditsvc.DepositInput) (*credit.CreditBalance, error)
	GetBalance(ctx context.Context, companyID int64) (*credit.BalanceSummary, error)
}

type journalStore interface {
	CreateWithTx(ctx context.Context, tx pgx.Tx, t *transaction.Transaction) error
}

type txBeginner interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
}

type broadcaster interface {
	BroadcastSubscriptionUpdate(companyID int64, event *wstypes.SubscriptionEventData)
}

type SubscriptionService struct {
	subscriptions subscriptionStore
	plans         planStore
	companies     companyStore
	jobs          jobCounter
	credits       depositor
	journal       journalStore
	db            txBeginner
	hub           broadcaster
	logger        *zap.Logger
}

func NewSubscriptionService(
	subscriptions subscriptionStore,
	plans planStore,
	companies companyStore,
	jobs jobCounter,
	credits depositor,
	journal journalStore,
	db txBeginner,
	hub broadcaster,
	logger *zap.Logger,
) *SubscriptionService {
	return &SubscriptionService{
		subscriptions: subscriptions,
		plans:         plans,
		companies:     companies,
		jobs:          jobs,
		credits:       credits,
		journal:       journal,
		db:            db,
		hub:           hub,
		logger:        logger,
	}
}

// Assign puts a company on a plan. Any current ACTIVE subscription is
// cancelled first so at most one is live; the replacement, the posting cap,
// the monthly credit grants and the journal entry commit atomically.
// Credits already held from the previous plan survive untouched.
func (s *SubscriptionService) Assign(ctx context.Context, companyID, planID int64) (*subscription.CompanySubscription, error) {
	if _, err := s.companies.FindByID(ctx, companyID); err != nil {
		return nil, fmt.Errorf("company not found: %w", err)
	}

	plan, err := s.plans.FindByID(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("subscription plan not found: %w", err)
	}
	if !plan.IsActive {
		return nil, fmt.Errorf("%w: plan is not available for assignment", xerrors.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	replaced, err := s.subscriptions.CancelActiveWithTx(ctx, tx, companyID, "superseded")
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sub := &subscription.CompanySubscription{
		CompanyID: companyID,
		PlanID:    plan.ID,
		Status:    subscription.StatusActive,
		StartDate: now,
		EndDate:   now.AddDate(0, 0, periodDays),
	}
	if err := s.subscriptions.CreateWithTx(ctx, tx, sub); err != nil {
		return nil, err
	}

	if err := s.companies.SetMaxActiveJobsWithTx(ctx, tx, companyID, plan.MaxActiveJobs); err != nil {
		return nil, err
	}

	if err := s.grantMonthlyCredits(ctx, tx, companyID, plan); err != nil {
		return nil, err
	}

	entry := &transaction.Transaction{
		Reference:   ulid.Make().String(),
		CompanyID:   companyID,
		Type:        transaction.TypeSubscriptionAssigned,
		Status:      transaction.StatusCompleted,
		Amount:      plan.Price,
		Currency:    plan.Currency,
		Description: fmt.Sprintf("Subscription assigned: %s", plan.Name),
		PlanID:      sql.NullInt64{Int64: plan.ID, Valid: true},
	}
	if err := s.journal.CreateWithTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit plan assignment: %w", err)
	}

	s.logger.Info("plan assigned",
		zap.Int64("company_id", companyID),
		zap.Int64("plan_id", plan.ID),
		zap.String("plan", plan.Name),
		zap.Int64("replaced_subscriptions", replaced),
	)

	s.broadcast(companyID, sub.ID, plan.Name, string(sub.Status), "Plan assigned")
	return sub, nil
}

// Cancel ends the company's active subscription. Held credits and live
// boosts are unaffected; only the plan relationship ends.
func (s *SubscriptionService) Cancel(ctx context.Context, companyID int64, reason string) error {
	sub, err := s.subscriptions.FindActiveByCompany(ctx, companyID)
	if err != nil {
		return err
	}

	if reason == "" {
		reason = "cancelled by company"
	}

	if err := s.subscriptions.Cancel(ctx, sub.ID, reason); err != nil {
		return err
	}

	s.logger.Info("subscription cancelled",
		zap.Int64("company_id", companyID),
		zap.Int64("subscription_id", sub.ID),
		zap.String("reason", reason),
	)

	s.broadcast(companyID, sub.ID, "", string(subscription.StatusCancelled), "Subscription cancelled")
	return nil
}

// Renew advances one lapsed subscription a full period and re-grants the
// plan's monthly credits. The grant lands on the same
// (company, type, plan_monthly, plan) lot, so renewals stack into one
// balance instead of fragmenting.
func (s *SubscriptionService) Renew(ctx context.Context, sub *subscription.CompanySubscription) error {
	plan, err := s.plans.FindByID(ctx, sub.PlanID)
	if err != nil {
		return fmt.Errorf("subscription plan not found: %w", err)
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	newEnd := sub.EndDate.AddDate(0, 0, periodDays)
	if err := s.subscriptions.AdvancePeriodWithTx(ctx, tx, sub.ID, newEnd); err != nil {
		return err
	}

	if err := s.grantMonthlyCredits(ctx, tx, sub.CompanyID, plan); err != nil {
		return err
	}

	entry := &transaction.Transaction{
		Reference:   ulid.Make().String(),
		CompanyID:   sub.CompanyID,
		Type:        transaction.TypeSubscriptionRenewed,
		Status:      transaction.StatusCompleted,
		Amount:      plan.Price,
		Currency:    plan.Currency,
		Description: fmt.Sprintf("Subscription renewed: %s", plan.Name),
		PlanID:      sql.NullInt64{Int64: plan.ID, Valid: true},
	}
	if err := s.journal.CreateWithTx(ctx, tx, entry); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit renewal: %w", err)
	}

	s.logger.Info("subscription renewed",
		zap.Int64("company_id", sub.CompanyID),
		zap.Int64("subscription_id", sub.ID),
		zap.Time("new_end_date", newEnd),
	)

	s.broadcast(sub.CompanyID, sub.ID, plan.Name, string(sub.Status), "Subscription renewed")
	return nil
}

// RenewExpiredSubscriptions renews every ACTIVE subscription whose period
// has lapsed. One failing renewal is logged and skipped; the rest proceed.
func (s *SubscriptionService) RenewExpiredSubscriptions(ctx context.Context) (int, error) {
	expired, err := s.subscriptions.FindExpiredActive(ctx)
	if err != nil {
		return 0, err
	}

	renewed := 0
	for i := range expired {
		sub := expired[i]
		if err := s.Renew(ctx, &sub); err != nil {
			s.logger.Error("failed to renew subscription",
				zap.Int64("subscription_id", sub.ID),
				zap.Int64("company_id", sub.CompanyID),
				zap.Error(err),
			)
			continue
		}
		renewed++
	}

	return renewed, nil
}

// UpcomingRenewals lists ACTIVE subscriptions renewing within daysAhead.
func (s *SubscriptionService) UpcomingRenewals(ctx context.Context, daysAhead int) ([]subscription.CompanySubscription, error) {
	return s.subscriptions.FindUpcomingRenewals(ctx, daysAhead)
}

// GetCurrentEntitlement returns the company's active subscription, its plan
// and the consumable balance. A company without an active subscription still
// gets its credits: cancellation does not destroy lots.
func (s *SubscriptionService) GetCurrentEntitlement(ctx context.Context, companyID int64) (*subscription.CurrentEntitlement, error) {
	entitlement := &subscription.CurrentEntitlement{}

	sub, err := s.subscriptions.FindActiveByCompany(ctx, companyID)
	if err != nil && !errors.Is(err, xerrors.ErrNoActiveSubscription) {
		return nil, err
	}

	if sub != nil {
		entitlement.Subscription = sub
		plan, err := s.plans.FindByID(ctx, sub.PlanID)
		if err != nil {
			return nil, fmt.Errorf("subscription plan not found: %w", err)
		}
		entitlement.Plan = plan
	}

	credits, err := s.credits.GetBalance(ctx, companyID)
	if err != nil {
		return nil, err
	}
	entitlement.Credits = credits

	activeJobs, err := s.jobs.CountActiveByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	entitlement.ActiveJobs = activeJobs

	return entitlement, nil
}

// GetActiveSubscription returns the company's ACTIVE subscription or
// ErrNoActiveSubscription.
func (s *SubscriptionService) GetActiveSubscription(ctx context.Context, companyID int64) (*subscription.CompanySubscription, error) {
	return s.subscriptions.FindActiveByCompany(ctx, companyID)
}

// grantMonthlyCredits deposits the plan's monthly allowance for each credit
// type with a non-zero grant. Plan lots never expire; the sourceID is the
// plan ID, so repeat grants for the same plan top up one lot.
func (s *SubscriptionService) grantMonthlyCredits(ctx context.Context, tx pgx.Tx, companyID int64, plan *subscription.SubscriptionPlan) error {
	grants := []struct {
		creditType credit.Type
		amount     int
	}{
		{credit.TypeFeatured, plan.FeaturedCreditsMonthly},
		{credit.TypeHomepage, plan.HomepageCreditsMonthly},
		{credit.TypeUrgent, plan.UrgentCreditsMonthly},
	}

	for _, g := range grants {
		if g.amount <= 0 {
			continue
		}

		_, err := s.credits.DepositWithTx(ctx, tx, &creditsvc.DepositInput{
			CompanyID:    companyID,
			Type:         g.creditType,
			Amount:       g.amount,
			Source:       credit.SourcePlanMonthly,
			SourceID:     strconv.FormatInt(plan.ID, 10),
			DurationDays: credit.DurationDays30,
		})
		if err != nil {
			return fmt.Errorf("failed to grant %s credits: %w", g.creditType, err)
		}
	}

	return nil
}

func (s *SubscriptionService) broadcast(companyID, subID int64, planName, status, message string) {
	if s.hub == nil {
		return
	}

	s.hub.BroadcastSubscriptionUpdate(companyID, &wstypes.SubscriptionEventData{
		SubscriptionID: subID,
		PlanName:       planName,
		Status:         status,
		Message:        message,
	})
}
