package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogYAML = `packages:
  - id: goa-3n
    title: Goa Getaway
    price: 499.5
    duration: 3 nights
    destination: Goa
    availability: 10
  - id: munnar-2n
    title: Munnar Hills
    price: 320
    availability: 4
`

func TestSeedPackages(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "packages.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalogYAML), 0o600))

	pkgs, err := LoadPackagesFile(path)
	require.NoError(t, err)
	require.Len(t, pkgs, 2)

	created, updated, err := db.SeedPackages(ctx, pkgs)
	require.NoError(t, err)
	assert.Equal(t, 2, created)
	assert.Equal(t, 0, updated)

	_, err = db.Reserve(ctx, "goa-3n", 3)
	require.NoError(t, err)

	pkgs[0].Price = 550
	created, updated, err = db.SeedPackages(ctx, pkgs)
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.Equal(t, 2, updated)

	got, err := db.GetPackage(ctx, "goa-3n")
	require.NoError(t, err)
	assert.Equal(t, 550.0, got.Price)
	assert.Equal(t, int64(7), got.Availability, "reseeding must not reset live stock")
}

func TestLoadPackagesFileRejectsMissingID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("packages:\n  - title: Nameless\n"), 0o600))

	_, err := LoadPackagesFile(path)
	assert.Error(t, err)
}
