package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"travelbooking/internal/database"

	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		packagesPath = flag.String("packages", "configs/packages.yaml", "path to packages.yaml")
		dbPath       = flag.String("db", "./data/travelbooking.db", "path to sqlite db")
	)
	flag.Parse()

	packages, err := database.LoadPackagesFile(*packagesPath)
	if err != nil {
		return err
	}
	if len(packages) == 0 {
		return fmt.Errorf("no packages in %s", *packagesPath)
	}

	db, err := database.NewDB(*dbPath, &logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	created, updated, err := db.SeedPackages(ctx, packages)
	if err != nil {
		return err
	}
	fmt.Printf("Seed finished: created=%d updated=%d\n", created, updated)
	return nil
}
