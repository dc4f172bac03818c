package main

import (
	"context"

	"github.com/JFreegman/toxstats/internal/core/storage/postgres"
	"github.com/JFreegman/toxstats/internal/migrations"
)

func runMigrate(ctx context.Context, args []string) error {
	fs, cf := newFlagSet("migrate")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	cfg, err := loadConfig(cf)
	if err != nil {
		return err
	}

	db, err := postgres.Open(ctx, cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err != nil {
		return err
	}
	defer db.Close()
	return migrations.Run(db, true)
}
