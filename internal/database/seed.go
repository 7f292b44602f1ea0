package database

import (
	"context"
	"errors"
	"fmt"
	"os"

	"travelbooking/internal/domain"
	"travelbooking/internal/models"

	"gopkg.in/yaml.v3"
)

type packagesFile struct {
	Packages []*models.TravelPackage `yaml:"packages"`
}

// LoadPackagesFile reads a YAML catalog of the form `packages: [...]`.
func LoadPackagesFile(path string) ([]*models.TravelPackage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read packages: %w", err)
	}
	var f packagesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse packages: %w", err)
	}
	for i, pkg := range f.Packages {
		if pkg == nil || pkg.ID == "" || pkg.Title == "" {
			return nil, fmt.Errorf("package #%d: id and title are required", i+1)
		}
	}
	return f.Packages, nil
}

// SeedPackages creates missing catalog entries and refreshes the descriptive
// fields of existing ones. Live availability of existing packages is kept.
func (db *DB) SeedPackages(ctx context.Context, packages []*models.TravelPackage) (created, updated int, err error) {
	for _, pkg := range packages {
		existing, err := db.GetPackage(ctx, pkg.ID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			seeded := *pkg
			if err := db.CreatePackage(ctx, &seeded); err != nil {
				return created, updated, fmt.Errorf("create %s: %w", pkg.ID, err)
			}
			created++
		case err != nil:
			return created, updated, err
		default:
			existing.Title = pkg.Title
			existing.Description = pkg.Description
			existing.Price = pkg.Price
			existing.Duration = pkg.Duration
			existing.Destination = pkg.Destination
			if err := db.UpdatePackage(ctx, existing); err != nil {
				return created, updated, fmt.Errorf("update %s: %w", pkg.ID, err)
			}
			updated++
		}
	}

	db.logger.Info().Int("created", created).Int("updated", updated).Msg("Package catalog seeded")
	return created, updated, nil
}
