// internal/service/catalog/package_service.go
package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"talenthub-service/internal/domain/credit"
	xerrors "talenthub-service/internal/pkg/errors"
	"talenthub-service/internal/repository/postgres"

	"go.uber.org/zap"
)

// PackageService manages the credit package catalog.
type PackageService struct {
	packages *postgres.CreditPackageRepository
	logger   *zap.Logger
}

func NewPackageService(packages *postgres.CreditPackageRepository, logger *zap.Logger) *PackageService {
	return &PackageService{packages: packages, logger: logger}
}

// CreatePackage adds a package to the catalog
func (s *PackageService) CreatePackage(ctx context.Context, req *credit.CreatePackageRequest) (*credit.CreditPackage, error) {
	if req.FeaturedCredits == 0 && req.HomepageCredits == 0 && req.UrgentCredits == 0 {
		return nil, fmt.Errorf("%w: package must grant at least one credit", xerrors.ErrInvalidInput)
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}
	durationDays := req.DurationDays
	if durationDays <= 0 {
		durationDays = credit.DurationDays30
	}

	p := &credit.CreditPackage{
		Name:            req.Name,
		Price:           req.Price,
		Currency:        currency,
		FeaturedCredits: req.FeaturedCredits,
		HomepageCredits: req.HomepageCredits,
		UrgentCredits:   req.UrgentCredits,
		DurationDays:    durationDays,
		IsActive:        true,
		DisplayOrder:    req.DisplayOrder,
	}
	if req.Description != "" {
		p.Description = sql.NullString{String: req.Description, Valid: true}
	}

	if err := s.packages.Create(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("package created", zap.Int64("package_id", p.ID), zap.String("name", p.Name))
	return p, nil
}

// UpdatePackage applies a partial update to a package
func (s *PackageService) UpdatePackage(ctx context.Context, id int64, req *credit.UpdatePackageRequest) (*credit.CreditPackage, error) {
	p, err := s.packages.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Description != nil {
		p.Description = sql.NullString{String: *req.Description, Valid: *req.Description != ""}
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return nil, fmt.Errorf("%w: price cannot be negative", xerrors.ErrInvalidInput)
		}
		p.Price = *req.Price
	}
	if req.FeaturedCredits != nil {
		p.FeaturedCredits = *req.FeaturedCredits
	}
	if req.HomepageCredits != nil {
		p.HomepageCredits = *req.HomepageCredits
	}
	if req.UrgentCredits != nil {
		p.UrgentCredits = *req.UrgentCredits
	}
	if req.DurationDays != nil {
		p.DurationDays = *req.DurationDays
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	if req.DisplayOrder != nil {
		p.DisplayOrder = *req.DisplayOrder
	}

	if err := s.packages.Update(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("package updated", zap.Int64("package_id", p.ID))
	return p, nil
}

// GetPackage retrieves one package
func (s *PackageService) GetPackage(ctx context.Context, id int64) (*credit.CreditPackage, error) {
	return s.packages.FindByID(ctx, id)
}

// ListPackages returns the catalog, active only for companies.
func (s *PackageService) ListPackages(ctx context.Context, includeInactive bool) ([]credit.CreditPackage, error) {
	if includeInactive {
		return s.packages.ListAll(ctx)
	}
	return s.packages.ListActive(ctx)
}

// DeletePackage removes an unreferenced package; ErrPackageInUse otherwise.
func (s *PackageService) DeletePackage(ctx context.Context, id int64) error {
	if err := s.packages.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("package deleted", zap.Int64("package_id", id))
	return nil
}
