// internal/service/reconcile/reconcile_service.go
package reconcile

import (
	"context"
	"time"

	"talenthub-service/internal/domain/credit"
	"talenthub-service/internal/domain/subscription"

	"go.uber.org/zap"
)

// renewalNoticeDays is how far ahead the daily sweep warns about an
// upcoming renewal.
const renewalNoticeDays = 3

type creditSweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
	DeactivateExpiredUsages(ctx context.Context) (int64, error)
}

type alertCandidates interface {
	LowBalanceCandidates(ctx context.Context, threshold int) ([]credit.CreditBalance, error)
	ExpiringSoonCandidates(ctx context.Context, daysAhead int) ([]credit.CreditBalance, error)
	MarkLowCreditNotified(ctx context.Context, id int64) error
	MarkExpiryNotified(ctx context.Context, id int64) error
}

type subscriptionRenewer interface {
	RenewExpiredSubscriptions(ctx context.Context) (int, error)
	UpcomingRenewals(ctx context.Context, daysAhead int) ([]subscription.CompanySubscription, error)
}

type planLookup interface {
	FindByID(ctx context.Context, id int64) (*subscription.SubscriptionPlan, error)
}

type notifier interface {
	SendLowCreditsAlert(ctx context.Context, companyID int64, creditType string, remaining int) error
	SendCreditsExpiringAlert(ctx context.Context, companyID int64, creditType string, amount int, expiresAt time.Time) error
	SendRenewalUpcoming(ctx context.Context, companyID int64, planName string, renewsAt time.Time) error
	DeleteExpiredNotifications(ctx context.Context) (int64, error)
}

// ReconcileService runs the scheduled sweeps. Every step is idempotent and
// every step's failure is logged and contained: one broken unit never stops
// the rest of a sweep.
type ReconcileService struct {
	credits       creditSweeper
	candidates    alertCandidates
	subscriptions subscriptionRenewer
	plans         planLookup
	notifications notifier
	logger        *zap.Logger
}

func NewReconcileService(
	credits creditSweeper,
	candidates alertCandidates,
	subscriptions subscriptionRenewer,
	plans planLookup,
	notifications notifier,
	logger *zap.Logger,
) *ReconcileService {
	return &ReconcileService{
		credits:       credits,
		candidates:    candidates,
		subscriptions: subscriptions,
		plans:         plans,
		notifications: notifications,
		logger:        logger,
	}
}

// RunDailySweep destroys expired lots, closes lapsed usage windows, renews
// lapsed subscriptions, sends upcoming-renewal notices and prunes expired
// notifications. Renewal notices live here rather than in the alert sweep so
// a subscription inside the notice window hears about it once a day, not
// once per alert tick.
func (s *ReconcileService) RunDailySweep(ctx context.Context) error {
	if _, err := s.credits.SweepExpired(ctx); err != nil {
		s.logger.Error("expired lot sweep failed", zap.Error(err))
	}

	if _, err := s.credits.DeactivateExpiredUsages(ctx); err != nil {
		s.logger.Error("usage deactivation failed", zap.Error(err))
	}

	renewed, err := s.subscriptions.RenewExpiredSubscriptions(ctx)
	if err != nil {
		s.logger.Error("subscription renewal pass failed", zap.Error(err))
	} else if renewed > 0 {
		s.logger.Info("subscriptions renewed", zap.Int("count", renewed))
	}

	s.sweepUpcomingRenewals(ctx)

	if _, err := s.notifications.DeleteExpiredNotifications(ctx); err != nil {
		s.logger.Error("notification pruning failed", zap.Error(err))
	}

	return nil
}

// RunAlertSweep sends low-balance and expiring-credit notices. Per-lot
// idempotency flags keep each alert to at most one send.
func (s *ReconcileService) RunAlertSweep(ctx context.Context) error {
	s.sweepLowBalances(ctx)
	s.sweepExpiringLots(ctx)
	return nil
}

func (s *ReconcileService) sweepLowBalances(ctx context.Context) {
	lots, err := s.candidates.LowBalanceCandidates(ctx, credit.LowBalanceThreshold)
	if err != nil {
		s.logger.Error("low balance scan failed", zap.Error(err))
		return
	}

	for _, lot := range lots {
		if err := s.notifications.SendLowCreditsAlert(ctx, lot.CompanyID, string(lot.Type), lot.Amount); err != nil {
			s.logger.Warn("low credit alert failed",
				zap.Int64("company_id", lot.CompanyID),
				zap.Int64("balance_id", lot.ID),
				zap.Error(err),
			)
			continue
		}

		if err := s.candidates.MarkLowCreditNotified(ctx, lot.ID); err != nil {
			s.logger.Warn("failed to mark low credit alert sent",
				zap.Int64("balance_id", lot.ID),
				zap.Error(err),
			)
		}
	}
}

func (s *ReconcileService) sweepExpiringLots(ctx context.Context) {
	lots, err := s.candidates.ExpiringSoonCandidates(ctx, renewalNoticeDays)
	if err != nil {
		s.logger.Error("expiring lot scan failed", zap.Error(err))
		return
	}

	for _, lot := range lots {
		if !lot.ExpiresAt.Valid {
			continue
		}

		if err := s.notifications.SendCreditsExpiringAlert(ctx, lot.CompanyID, string(lot.Type), lot.Amount, lot.ExpiresAt.Time); err != nil {
			s.logger.Warn("expiring credit alert failed",
				zap.Int64("company_id", lot.CompanyID),
				zap.Int64("balance_id", lot.ID),
				zap.Error(err),
			)
			continue
		}

		if err := s.candidates.MarkExpiryNotified(ctx, lot.ID); err != nil {
			s.logger.Warn("failed to mark expiry alert sent",
				zap.Int64("balance_id", lot.ID),
				zap.Error(err),
			)
		}
	}
}

func (s *ReconcileService) sweepUpcomingRenewals(ctx context.Context) {
	subs, err := s.subscriptions.UpcomingRenewals(ctx, renewalNoticeDays)
	if err != nil {
		s.logger.Error("upcoming renewal scan failed", zap.Error(err))
		return
	}

	for _, sub := range subs {
		planName := ""
		if plan, err := s.plans.FindByID(ctx, sub.PlanID); err == nil {
			planName = plan.Name
		}

		if err := s.notifications.SendRenewalUpcoming(ctx, sub.CompanyID, planName, sub.EndDate); err != nil {
			s.logger.Warn("renewal notice failed",
				zap.Int64("company_id", sub.CompanyID),
				zap.Int64("subscription_id", sub.ID),
				zap.Error(err),
			)
		}
	}
}
