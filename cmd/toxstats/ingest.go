package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	corecfg "github.com/JFreegman/toxstats/internal/core/config"
	"github.com/JFreegman/toxstats/internal/core/storage"
	"github.com/JFreegman/toxstats/internal/core/storage/memory"
	"github.com/JFreegman/toxstats/internal/core/storage/postgres"
	"github.com/JFreegman/toxstats/internal/ingestion"
	"github.com/JFreegman/toxstats/internal/migrations"
	"github.com/JFreegman/toxstats/internal/snapshot"
	"github.com/spf13/afero"
)

func runIngest(ctx context.Context, args []string) error {
	fs, cf := newFlagSet("ingest")
	cleanup := fs.Bool("cleanup", false, "delete redundant and below-threshold snapshots after processing")
	dryRun := fs.Bool("dry-run", false, "aggregate into memory without touching the database or deleting files")
	minActivity := fs.Int("min-activity", -1, "override ingest.min_activity")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: toxstats ingest [flags] <snapshot-root>")
		fs.PrintDefaults()
	}
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	cfg, err := loadConfig(cf)
	if err != nil {
		return err
	}

	root := cfg.Snapshots.Root
	if fs.NArg() > 0 {
		root = fs.Arg(0)
	}
	if root == "" {
		fs.Usage()
		return errUsage
	}
	if *minActivity >= 0 {
		cfg.Ingest.MinActivity = *minActivity
	}
	opts := ingestion.Options{
		TickMinutes: cfg.Ingest.TickMinutes,
		MinActivity: cfg.Ingest.MinActivity,
		Cleanup:     *cleanup || cfg.Ingest.Cleanup,
	}
	if *dryRun {
		opts.Cleanup = false
	}

	start := time.Now()
	report, err := ingestOnce(ctx, cfg, root, opts, *dryRun)
	if report != nil {
		fmt.Printf("Processed %d of %d snapshots (%d skipped), %d increments, %d entries purged, %d files deleted\n",
			report.Processed, report.Listed, report.TotalSkipped(), report.Increments, report.Purged, report.Deleted)
	}
	fmt.Printf("Finished in %.2f seconds\n", time.Since(start).Seconds())
	return err
}

func ingestOnce(ctx context.Context, cfg *corecfg.Config, root string, opts ingestion.Options, dryRun bool) (*ingestion.Report, error) {
	src, err := snapshot.NewSource(afero.NewOsFs(), root, cfg.Snapshots.Extension)
	if err != nil {
		return nil, err
	}
	resolver, err := buildResolver(cfg.Geo)
	if err != nil {
		return nil, err
	}

	var store storage.Store
	if dryRun {
		slog.Info("[Ingest] Dry run, counts are kept in memory only")
		store = memory.NewStore(cfg.Ingest.TickMinutes)
	} else {
		db, err := postgres.Open(ctx, cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		if err := migrations.Run(db, cfg.Database.AutoMigrate); err != nil {
			return nil, err
		}
		adapter, err := postgres.NewAdapter(db, cfg.Ingest.TickMinutes)
		if err != nil {
			return nil, err
		}
		store = adapter
	}

	svc := ingestion.NewService(src, store, resolver, opts,
		ingestion.WithLocker(snapshot.NewRootLock(root)))
	return svc.Run(ctx)
}
