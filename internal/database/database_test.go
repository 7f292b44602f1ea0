package database

import (
	"context"
	"path/filepath"
	"testing"

	"travelbooking/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedPackage(t *testing.T, db *DB, availability int64) *models.TravelPackage {
	t.Helper()
	pkg := &models.TravelPackage{
		Title:        "Goa Getaway",
		Description:  "Beach week",
		Price:        499.5,
		Duration:     "5 days",
		Destination:  "Goa",
		Availability: availability,
	}
	require.NoError(t, db.CreatePackage(context.Background(), pkg))
	return pkg
}

func seedUser(t *testing.T, db *DB, username string) *models.User {
	t.Helper()
	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
	}
	require.NoError(t, db.CreateUser(context.Background(), user))
	return user
}

func TestNewDBInMemory(t *testing.T) {
	logger := zerolog.Nop()
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.PingContext(context.Background()))
}

func TestNewDBBadPath(t *testing.T) {
	logger := zerolog.Nop()
	dir := t.TempDir()
	// a directory cannot be opened as a database file
	_, err := NewDB(dir, &logger)
	require.Error(t, err)
}
