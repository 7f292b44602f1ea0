package service

import (
	"context"
	"math"
	"strings"

	"travelbooking/internal/auth"
	"travelbooking/internal/domain"
	"travelbooking/internal/models"

	"github.com/rs/zerolog"
)

// PackageService manages the catalog. Reads are public.
type PackageService struct {
	packages domain.PackageStore
	logger   *zerolog.Logger
}

func NewPackageService(packages domain.PackageStore, logger *zerolog.Logger) *PackageService {
	return &PackageService{packages: packages, logger: logger}
}

func (s *PackageService) List(ctx context.Context) ([]*models.TravelPackage, error) {
	return s.packages.ListPackages(ctx)
}

func (s *PackageService) Get(ctx context.Context, id string) (*models.TravelPackage, error) {
	return s.packages.GetPackage(ctx, id)
}

func (s *PackageService) Create(ctx context.Context, caller *auth.Caller, pkg *models.TravelPackage) (*models.TravelPackage, error) {
	if err := auth.Can(caller, auth.CapManagePackages, ""); err != nil {
		return nil, err
	}
	if err := validatePackage(pkg); err != nil {
		return nil, err
	}
	if err := s.packages.CreatePackage(ctx, pkg); err != nil {
		return nil, err
	}
	s.logger.Info().Str("package_id", pkg.ID).Int64("availability", pkg.Availability).Msg("Package created")
	return pkg, nil
}

func (s *PackageService) Update(ctx context.Context, caller *auth.Caller, pkg *models.TravelPackage) (*models.TravelPackage, error) {
	if err := auth.Can(caller, auth.CapManagePackages, ""); err != nil {
		return nil, err
	}
	if err := validatePackage(pkg); err != nil {
		return nil, err
	}
	if err := s.packages.UpdatePackage(ctx, pkg); err != nil {
		return nil, err
	}
	return s.packages.GetPackage(ctx, pkg.ID)
}

func (s *PackageService) Delete(ctx context.Context, caller *auth.Caller, id string) error {
	if err := auth.Can(caller, auth.CapManagePackages, ""); err != nil {
		return err
	}
	if err := s.packages.DeletePackage(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("package_id", id).Msg("Package deleted")
	return nil
}

func validatePackage(pkg *models.TravelPackage) error {
	pkg.Title = strings.TrimSpace(pkg.Title)
	switch {
	case pkg.Title == "":
		return domain.Errorf(domain.ErrValidation, "title is required")
	case pkg.Price <= 0 || math.IsNaN(pkg.Price) || math.IsInf(pkg.Price, 0):
		return domain.Errorf(domain.ErrValidation, "price must be positive")
	case pkg.Availability < 0:
		return domain.Errorf(domain.ErrValidation, "availability must not be negative")
	}
	return nil
}
