package svc

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"pricewatch/internal/application/port"
	"pricewatch/internal/application/service"
	"pricewatch/internal/application/usecase/scheduler"
	"pricewatch/internal/infrastructure/config"
	"pricewatch/internal/infrastructure/container"
	"pricewatch/internal/infrastructure/pricing"
)

// Cron table, UTC.
var schedule = map[string]string{
	service.JobPriceRefresh:      "*/2 * * * *",
	service.JobMoversRefresh:     "*/5 * * * *",
	service.JobDailySnapshot:     "0 0 * * *",
	service.JobHistoryCleanup:    "0 0 * * 1",
	service.JobHistoryRetention:  "0 2 * * 0",
	service.JobSnapshotRetention: "0 3 1 * *",
	service.JobMaintenanceWindow: "55 23 * * 0",
}

type ServiceContext struct {
	Ctx    context.Context
	Config *config.Config

	// infrastructure
	container *container.Container
	catalog   port.Catalog

	// application components
	Refresh     *service.RefreshJob
	Compactor   *service.Compactor
	Retention   *service.HistoryRetention
	Snapshots   *service.SnapshotService
	Movers      *service.MoversRefresher
	Maintenance *service.Orchestrator
	Query       *service.QueryService

	Scheduler *scheduler.Service
}

// New builds the container, the pricing client and every job. Both entry
// points start here.
func New(ctx context.Context, cfg *config.Config) (*ServiceContext, error) {
	c, err := container.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageInitFailed, err)
	}

	sc := &ServiceContext{
		Ctx:       ctx,
		Config:    cfg,
		container: c,
		catalog: pricing.NewClient(pricing.Options{
			BaseURL:    cfg.Pricing.BaseURL,
			APIKey:     cfg.Pricing.APIKey,
			Timeout:    cfg.PricingTimeout(),
			RatePerSec: cfg.Pricing.RatePerSec,
		}),
	}

	if err := sc.initializeComponents(); err != nil {
		// release what was already opened
		_ = sc.Close()
		return nil, err
	}
	return sc, nil
}

// initializeComponents wires the jobs in dependency order.
func (sc *ServiceContext) initializeComponents() error {
	cfg := sc.Config
	store := sc.container.Store()

	upserter := service.NewUpserter(store, store)
	crawler := service.NewCrawler(sc.catalog, store, upserter, service.CrawlerConfig{
		MinPrice:    cfg.Crawler.MinPrice,
		MaxPages:    cfg.Crawler.MaxPages,
		PageSize:    cfg.Pricing.PageSize,
		HardPageCap: cfg.Crawler.HardPageCap,
	})
	updater := service.NewPriceUpdater(sc.catalog, store, store, upserter, cfg.Refresh.UpdateBatch)
	simulator := service.NewSimulator(store, store, upserter, service.SimulatorConfig{
		BatchSize: cfg.Refresh.LiveBatch,
		Interval:  cfg.RefreshInterval(),
		Buffer:    cfg.RefreshBuffer(),
	})
	sc.Refresh = service.NewRefreshJob(crawler, updater, simulator)

	sc.Compactor = service.NewCompactor(store, store, store, service.CompactorConfig{
		Threshold: cfg.CompactionThreshold(),
		PageSize:  cfg.Compaction.PageSize,
		StepDelay: cfg.CompactionStepDelay(),
		MaxSteps:  cfg.Compaction.MaxSteps,
	})
	sc.Retention = service.NewHistoryRetention(store, cfg.History.RetentionDays)
	sc.Snapshots = service.NewSnapshotService(store, store, service.SnapshotConfig{
		BatchSize:     cfg.Snapshot.BatchSize,
		MaxCards:      cfg.Snapshot.MaxCards,
		MaxProducts:   cfg.Snapshot.MaxProducts,
		RetentionDays: cfg.Snapshot.RetentionDays,
	})
	sc.Movers = service.NewMoversRefresher(sc.Snapshots, sc.container.MoversCache(), cfg.Movers.TopK, cfg.MoversTTL())
	stepBudget := cfg.MaintenanceStepTimeout()
	sc.Maintenance = service.NewOrchestrator(store, cfg.Maintenance.Message,
		service.MaintenanceStep{Name: service.JobHistoryRetention, Run: sc.Retention.Run, Timeout: stepBudget},
		service.MaintenanceStep{Name: service.JobHistoryCleanup, Run: sc.Compactor.Run, Timeout: stepBudget},
		service.MaintenanceStep{Name: service.JobSnapshotRetention, Run: sc.Snapshots.Prune, Timeout: stepBudget},
	)
	sc.Query = service.NewQueryService(store, sc.Movers)

	sched, err := scheduler.NewService(scheduler.ServiceDeps{
		Jobs:    sc.jobs(),
		Sink:    sc.container.ResultSink(),
		Timeout: cfg.JobTimeout(),
	})
	if err != nil {
		return fmt.Errorf("scheduler initialization failed: %w", err)
	}
	sc.Scheduler = sched

	log.Info().
		Str("driver", cfg.Storage.Driver).
		Bool("redis", cfg.Storage.Redis.Enabled).
		Int("jobs", len(schedule)).
		Msg("✓ All components initialized")
	return nil
}

func (sc *ServiceContext) jobs() []scheduler.Job {
	run := map[string]scheduler.JobFunc{
		service.JobPriceRefresh:      sc.Refresh.Run,
		service.JobMoversRefresh:     sc.Movers.Run,
		service.JobDailySnapshot:     sc.Snapshots.Run,
		service.JobHistoryCleanup:    sc.Compactor.Run,
		service.JobHistoryRetention:  sc.Retention.Run,
		service.JobSnapshotRetention: sc.Snapshots.Prune,
		service.JobMaintenanceWindow: sc.Maintenance.Run,
	}
	long := map[string]bool{
		service.JobHistoryCleanup:    true,
		service.JobMaintenanceWindow: true,
	}
	jobs := make([]scheduler.Job, 0, len(run))
	for name, fn := range run {
		j := scheduler.Job{Name: name, Spec: schedule[name], Run: fn}
		if long[name] {
			j.Timeout = sc.Config.MaintenanceTimeout()
		}
		jobs = append(jobs, j)
	}
	return jobs
}

// Close releases the container.
func (sc *ServiceContext) Close() error {
	return sc.container.Close()
}
