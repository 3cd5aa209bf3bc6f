// internal/service/planrequest/request_service.go
package planrequest

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"talenthub-service/internal/domain/credit"
	"talenthub-service/internal/domain/request"
	"talenthub-service/internal/domain/subscription"
	"talenthub-service/internal/domain/transaction"
	xerrors "talenthub-service/internal/pkg/errors"
	creditsvc "talenthub-service/internal/service/credit"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

type requestStore interface {
	HasPending(ctx context.Context, companyID int64, kind request.Kind, targetID int64) (bool, error)
	Create(ctx context.Context, req *request.PlanRequest) error
	FindByID(ctx context.Context, id int64) (*request.PlanRequest, error)
	Resolve(ctx context.Context, id int64, status request.Status, resolvedBy int64) error
	List(ctx context.Context, companyID int64, filters *request.ListFilters) ([]request.PlanRequest, int64, error)
}

type planStore interface {
	FindByID(ctx context.Context, id int64) (*subscription.SubscriptionPlan, error)
}

type packageStore interface {
	FindByID(ctx context.Context, id int64) (*credit.CreditPackage, error)
}

type planAssigner interface {
	Assign(ctx context.Context, companyID, planID int64) (*subscription.CompanySubscription, error)
}

type depositor interface {
	DepositWithTx(ctx context.Context, tx pgx.Tx, in *creditsvc.DepositInput) (*credit.CreditBalance, error)
}

type journalStore interface {
	CreateWithTx(ctx context.Context, tx pgx.Tx, t *transaction.Transaction) error
}

type txBeginner interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
}

type notifier interface {
	SendRequestResolved(ctx context.Context, companyID int64, requestID int64, kind string, approved bool) error
}

// RequestService runs the PENDING -> APPROVED/REJECTED workflow. Approval is
// where a request turns into real entitlements: a plan assignment or a
// package credit grant.
type RequestService struct {
	requests      requestStore
	plans         planStore
	packages      packageStore
	subscriptions planAssigner
	credits       depositor
	journal       journalStore
	db            txBeginner
	notifications notifier
	logger        *zap.Logger
}

func NewRequestService(
	requests requestStore,
	plans planStore,
	packages packageStore,
	subscriptions planAssigner,
	credits depositor,
	journal journalStore,
	db txBeginner,
	notifications notifier,
	logger *zap.Logger,
) *RequestService {
	return &RequestService{
		requests:      requests,
		plans:         plans,
		packages:      packages,
		subscriptions: subscriptions,
		credits:       credits,
		journal:       journal,
		db:            db,
		notifications: notifications,
		logger:        logger,
	}
}

// RequestPlan files a company's ask for a plan. At most one PENDING request
// per (company, plan) may exist.
func (s *RequestService) RequestPlan(ctx context.Context, companyID int64, in *request.RequestPlanInput) (*request.PlanRequest, error) {
	plan, err := s.plans.FindByID(ctx, in.PlanID)
	if err != nil {
		return nil, fmt.Errorf("subscription plan not found: %w", err)
	}
	if !plan.IsActive {
		return nil, fmt.Errorf("%w: plan is not available", xerrors.ErrInvalidInput)
	}

	pending, err := s.requests.HasPending(ctx, companyID, request.KindPlan, plan.ID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, xerrors.ErrRequestAlreadyExists
	}

	req := &request.PlanRequest{
		CompanyID: companyID,
		Kind:      request.KindPlan,
		Status:    request.StatusPending,
		PlanID:    sql.NullInt64{Int64: plan.ID, Valid: true},
	}
	if in.Note != "" {
		req.Note = sql.NullString{String: in.Note, Valid: true}
	}

	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}

	s.logger.Info("plan request filed",
		zap.Int64("request_id", req.ID),
		zap.Int64("company_id", companyID),
		zap.Int64("plan_id", plan.ID),
	)
	return req, nil
}

// RequestPackage files a company's ask for a credit package.
func (s *RequestService) RequestPackage(ctx context.Context, companyID int64, in *request.RequestPackageInput) (*request.PlanRequest, error) {
	pkg, err := s.packages.FindByID(ctx, in.PackageID)
	if err != nil {
		return nil, fmt.Errorf("credit package not found: %w", err)
	}
	if !pkg.IsActive {
		return nil, fmt.Errorf("%w: package is not available", xerrors.ErrInvalidInput)
	}

	pending, err := s.requests.HasPending(ctx, companyID, request.KindPackage, pkg.ID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, xerrors.ErrRequestAlreadyExists
	}

	req := &request.PlanRequest{
		CompanyID: companyID,
		Kind:      request.KindPackage,
		Status:    request.StatusPending,
		PackageID: sql.NullInt64{Int64: pkg.ID, Valid: true},
	}
	if in.Note != "" {
		req.Note = sql.NullString{String: in.Note, Valid: true}
	}

	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}

	s.logger.Info("package request filed",
		zap.Int64("request_id", req.ID),
		zap.Int64("company_id", companyID),
		zap.Int64("package_id", pkg.ID),
	)
	return req, nil
}

// Approve resolves a PENDING request and applies its effects: a plan request
// assigns the plan, a package request grants its credits. The status-guarded
// resolve runs first, so concurrent approvals of the same request apply the
// effects exactly once.
func (s *RequestService) Approve(ctx context.Context, requestID, adminID int64) (*request.PlanRequest, error) {
	req, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != request.StatusPending {
		return nil, xerrors.ErrInvalidStatus
	}

	if err := s.requests.Resolve(ctx, requestID, request.StatusApproved, adminID); err != nil {
		return nil, err
	}

	switch req.Kind {
	case request.KindPlan:
		err = s.applyPlanApproval(ctx, req)
	case request.KindPackage:
		err = s.applyPackageApproval(ctx, req)
	default:
		err = fmt.Errorf("%w: unknown request kind %q", xerrors.ErrInvalidInput, req.Kind)
	}
	if err != nil {
		s.logger.Error("approved request effects failed",
			zap.Int64("request_id", requestID),
			zap.String("kind", string(req.Kind)),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("request approved",
		zap.Int64("request_id", requestID),
		zap.Int64("company_id", req.CompanyID),
		zap.String("kind", string(req.Kind)),
		zap.Int64("resolved_by", adminID),
	)

	if err := s.notifications.SendRequestResolved(ctx, req.CompanyID, requestID, string(req.Kind), true); err != nil {
		s.logger.Warn("failed to notify company of approval", zap.Int64("request_id", requestID), zap.Error(err))
	}

	return s.requests.FindByID(ctx, requestID)
}

// Reject resolves a PENDING request without side effects.
func (s *RequestService) Reject(ctx context.Context, requestID, adminID int64) (*request.PlanRequest, error) {
	req, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != request.StatusPending {
		return nil, xerrors.ErrInvalidStatus
	}

	if err := s.requests.Resolve(ctx, requestID, request.StatusRejected, adminID); err != nil {
		return nil, err
	}

	s.logger.Info("request rejected",
		zap.Int64("request_id", requestID),
		zap.Int64("company_id", req.CompanyID),
		zap.Int64("resolved_by", adminID),
	)

	if err := s.notifications.SendRequestResolved(ctx, req.CompanyID, requestID, string(req.Kind), false); err != nil {
		s.logger.Warn("failed to notify company of rejection", zap.Int64("request_id", requestID), zap.Error(err))
	}

	return s.requests.FindByID(ctx, requestID)
}

// Cancel lets a company withdraw its own PENDING request. The request ends
// up REJECTED, same as an admin rejection, but nobody is notified.
func (s *RequestService) Cancel(ctx context.Context, requestID, companyID, identityID int64) (*request.PlanRequest, error) {
	req, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.CompanyID != companyID {
		return nil, xerrors.ErrNotFound
	}
	if req.Status != request.StatusPending {
		return nil, xerrors.ErrInvalidStatus
	}

	if err := s.requests.Resolve(ctx, requestID, request.StatusRejected, identityID); err != nil {
		return nil, err
	}

	s.logger.Info("request cancelled by company",
		zap.Int64("request_id", requestID),
		zap.Int64("company_id", companyID),
	)

	return s.requests.FindByID(ctx, requestID)
}

// Get retrieves one request
func (s *RequestService) Get(ctx context.Context, id int64) (*request.PlanRequest, error) {
	return s.requests.FindByID(ctx, id)
}

// List returns requests newest first. companyID 0 lists all companies.
func (s *RequestService) List(ctx context.Context, companyID int64, filters *request.ListFilters) (*request.ListResponse, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = 20
	}

	requests, total, err := s.requests.List(ctx, companyID, filters)
	if err != nil {
		return nil, err
	}

	totalPages := int(total) / filters.PageSize
	if int(total)%filters.PageSize > 0 {
		totalPages++
	}

	return &request.ListResponse{
		Requests:   requests,
		Total:      total,
		Page:       filters.Page,
		PageSize:   filters.PageSize,
		TotalPages: totalPages,
	}, nil
}

func (s *RequestService) applyPlanApproval(ctx context.Context, req *request.PlanRequest) error {
	if !req.PlanID.Valid {
		return fmt.Errorf("%w: plan request without plan", xerrors.ErrInvalidInput)
	}

	_, err := s.subscriptions.Assign(ctx, req.CompanyID, req.PlanID.Int64)
	return err
}

// applyPackageApproval grants the package's credits and journals the
// purchase in one transaction. The request ID is the lot sourceID, so a
// replayed approval of the same request cannot double-grant a fresh lot.
func (s *RequestService) applyPackageApproval(ctx context.Context, req *request.PlanRequest) error {
	if !req.PackageID.Valid {
		return fmt.Errorf("%w: package request without package", xerrors.ErrInvalidInput)
	}

	pkg, err := s.packages.FindByID(ctx, req.PackageID.Int64)
	if err != nil {
		return fmt.Errorf("credit package not found: %w", err)
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	grants := []struct {
		creditType credit.Type
		amount     int
	}{
		{credit.TypeFeatured, pkg.FeaturedCredits},
		{credit.TypeHomepage, pkg.HomepageCredits},
		{credit.TypeUrgent, pkg.UrgentCredits},
	}

	expiry := sql.NullTime{
		Time:  time.Now().AddDate(0, 0, credit.PurchaseExpiryDays),
		Valid: true,
	}

	for _, g := range grants {
		if g.amount <= 0 {
			continue
		}

		_, err := s.credits.DepositWithTx(ctx, tx, &creditsvc.DepositInput{
			CompanyID:    req.CompanyID,
			Type:         g.creditType,
			Amount:       g.amount,
			Source:       credit.SourcePurchase,
			SourceID:     fmt.Sprintf("%d", req.ID),
			DurationDays: pkg.DurationDays,
			ExpiresAt:    expiry,
		})
		if err != nil {
			return fmt.Errorf("failed to grant %s credits: %w", g.creditType, err)
		}
	}

	entry := &transaction.Transaction{
		Reference:   ulid.Make().String(),
		CompanyID:   req.CompanyID,
		Type:        transaction.TypePackagePurchase,
		Status:      transaction.StatusCompleted,
		Amount:      pkg.Price,
		Currency:    pkg.Currency,
		Description: fmt.Sprintf("Package purchase: %s", pkg.Name),
		PackageID:   sql.NullInt64{Int64: pkg.ID, Valid: true},
	}
	if err := s.journal.CreateWithTx(ctx, tx, entry); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit package approval: %w", err)
	}

	return nil
}
