package main

import (
	"context"
	"fmt"
	"log/slog"

	corecfg "github.com/JFreegman/toxstats/internal/core/config"
	"github.com/JFreegman/toxstats/internal/core/storage/postgres"
	"github.com/JFreegman/toxstats/internal/ingestion"
	"github.com/JFreegman/toxstats/internal/metrics"
	"github.com/JFreegman/toxstats/internal/migrations"
	"github.com/JFreegman/toxstats/internal/projection"
	"github.com/JFreegman/toxstats/internal/server"
	"github.com/JFreegman/toxstats/internal/snapshot"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
)

func runServe(ctx context.Context, args []string) error {
	fs, cf := newFlagSet("serve")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	cfg, err := loadConfig(cf)
	if err != nil {
		return err
	}

	// 1. Storage
	db, err := postgres.Open(ctx, cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := migrations.Run(db, cfg.Database.AutoMigrate); err != nil {
		return err
	}
	adapter, err := postgres.NewAdapter(db, cfg.Ingest.TickMinutes)
	if err != nil {
		return err
	}

	// 2. Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	var sink metrics.Sink = metrics.NewNoopSink()
	if cfg.Metrics.Enabled {
		sink = metrics.NewPrometheusSink(reg)
	}

	// 3. Query API with its cache
	srvOpts := []server.Option{server.WithHealthCheck("database", server.PingFunc(db.PingContext))}
	if cfg.Metrics.Enabled {
		srvOpts = append(srvOpts, server.WithMetrics(cfg.Metrics.Path, reg))
	}
	projOpts := []projection.Option{projection.WithMaxCountries(cfg.Server.MaxCountries)}
	switch cfg.Cache.Backend {
	case "memory":
		projOpts = append(projOpts, projection.WithCache(projection.NewMemoryCache(cfg.Cache.Size)))
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		defer client.Close()
		projOpts = append(projOpts, projection.WithCache(projection.NewRedisCache(client, cfg.Cache.Prefix)))
		srvOpts = append(srvOpts, server.WithHealthCheck("cache", server.PingFunc(func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})))
	}
	projectionSvc := projection.NewService(adapter, cfg.Ingest.TickMinutes, projOpts...)

	srv := server.New(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port), cfg.Server.Mode, srvOpts...)
	projectionSvc.RegisterRoutes(srv.Engine)

	// 4. Scheduled ingestion, when there is a snapshot root to read
	if cfg.Snapshots.Root != "" {
		svc, scheduler, err := newScheduler(cfg, adapter, sink)
		if err != nil {
			return err
		}
		ingestion.NewHandler(scheduler, svc).RegisterRoutes(srv.Engine)
		go func() {
			if err := scheduler.Start(ctx); err != nil {
				slog.Error("[Scheduler] Stopped with error", "error", err)
			}
		}()
	} else {
		slog.Info("[Serve] snapshots.root not set, serving queries only")
	}

	// HTTP server blocks until ctx is cancelled.
	if err := srv.Run(ctx); err != nil {
		return err
	}
	slog.Info("[Serve] Shutdown complete")
	return nil
}

func newScheduler(cfg *corecfg.Config, adapter *postgres.Adapter, sink metrics.Sink) (*ingestion.Service, *ingestion.Scheduler, error) {
	src, err := snapshot.NewSource(afero.NewOsFs(), cfg.Snapshots.Root, cfg.Snapshots.Extension)
	if err != nil {
		return nil, nil, err
	}
	resolver, err := buildResolver(cfg.Geo)
	if err != nil {
		return nil, nil, err
	}

	svc := ingestion.NewService(src, adapter, resolver,
		ingestion.Options{
			TickMinutes: cfg.Ingest.TickMinutes,
			MinActivity: cfg.Ingest.MinActivity,
			Cleanup:     cfg.Ingest.Cleanup,
		},
		ingestion.WithMetrics(sink),
		ingestion.WithLocker(snapshot.NewRootLock(cfg.Snapshots.Root)),
	)
	scheduler, err := ingestion.NewScheduler(svc, cfg.Ingest.Schedule)
	if err != nil {
		return nil, nil, err
	}

	slog.Info("[Serve] Ingestion scheduled",
		"root", cfg.Snapshots.Root,
		"schedule", cfg.Ingest.Schedule,
		"cleanup", cfg.Ingest.Cleanup,
		"min_activity", cfg.Ingest.MinActivity)
	return svc, scheduler, nil
}
