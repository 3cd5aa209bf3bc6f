// internal/service/catalog/plan_service.go
package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"talenthub-service/internal/domain/subscription"
	xerrors "talenthub-service/internal/pkg/errors"
	"talenthub-service/internal/repository/postgres"

	"go.uber.org/zap"
)

// PlanService manages the subscription plan catalog. Catalog rows are
// reference data: subscriptions point at them, so deletion is refused once a
// plan has ever been assigned.
type PlanService struct {
	plans  *postgres.SubscriptionPlanRepository
	logger *zap.Logger
}

func NewPlanService(plans *postgres.SubscriptionPlanRepository, logger *zap.Logger) *PlanService {
	return &PlanService{plans: plans, logger: logger}
}

// CreatePlan adds a plan to the catalog
func (s *PlanService) CreatePlan(ctx context.Context, req *subscription.CreatePlanRequest) (*subscription.SubscriptionPlan, error) {
	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	plan := &subscription.SubscriptionPlan{
		Name:                   req.Name,
		Price:                  req.Price,
		Currency:               currency,
		MaxActiveJobs:          req.MaxActiveJobs,
		FeaturedCreditsMonthly: req.FeaturedCreditsMonthly,
		HomepageCreditsMonthly: req.HomepageCreditsMonthly,
		UrgentCreditsMonthly:   req.UrgentCreditsMonthly,
		Features:               req.Features,
		IsActive:               true,
		DisplayOrder:           req.DisplayOrder,
	}
	if req.Description != "" {
		plan.Description = sql.NullString{String: req.Description, Valid: true}
	}

	if err := s.plans.Create(ctx, plan); err != nil {
		return nil, err
	}

	s.logger.Info("plan created", zap.Int64("plan_id", plan.ID), zap.String("name", plan.Name))
	return plan, nil
}

// UpdatePlan applies a partial update to a plan
func (s *PlanService) UpdatePlan(ctx context.Context, id int64, req *subscription.UpdatePlanRequest) (*subscription.SubscriptionPlan, error) {
	plan, err := s.plans.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		plan.Name = *req.Name
	}
	if req.Description != nil {
		plan.Description = sql.NullString{String: *req.Description, Valid: *req.Description != ""}
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return nil, fmt.Errorf("%w: price cannot be negative", xerrors.ErrInvalidInput)
		}
		plan.Price = *req.Price
	}
	if req.MaxActiveJobs != nil {
		plan.MaxActiveJobs = *req.MaxActiveJobs
	}
	if req.FeaturedCreditsMonthly != nil {
		plan.FeaturedCreditsMonthly = *req.FeaturedCreditsMonthly
	}
	if req.HomepageCreditsMonthly != nil {
		plan.HomepageCreditsMonthly = *req.HomepageCreditsMonthly
	}
	if req.UrgentCreditsMonthly != nil {
		plan.UrgentCreditsMonthly = *req.UrgentCreditsMonthly
	}
	if req.Features != nil {
		plan.Features = *req.Features
	}
	if req.IsActive != nil {
		plan.IsActive = *req.IsActive
	}
	if req.DisplayOrder != nil {
		plan.DisplayOrder = *req.DisplayOrder
	}

	if err := s.plans.Update(ctx, plan); err != nil {
		return nil, err
	}

	s.logger.Info("plan updated", zap.Int64("plan_id", plan.ID))
	return plan, nil
}

// GetPlan retrieves one plan
func (s *PlanService) GetPlan(ctx context.Context, id int64) (*subscription.SubscriptionPlan, error) {
	return s.plans.FindByID(ctx, id)
}

// ListPlans returns the catalog. Companies see only active plans; admins see
// everything.
func (s *PlanService) ListPlans(ctx context.Context, includeInactive bool) ([]subscription.SubscriptionPlan, error) {
	if includeInactive {
		return s.plans.ListAll(ctx)
	}
	return s.plans.ListActive(ctx)
}

// DeletePlan removes a plan that nothing references. Plans with live
// subscriptions or journal history return ErrPlanInUse; deactivate those
// instead.
func (s *PlanService) DeletePlan(ctx context.Context, id int64) error {
	if err := s.plans.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("plan deleted", zap.Int64("plan_id", id))
	return nil
}
