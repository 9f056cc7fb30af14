package main

import (
	"context"
	"log"
	"os"
	_ "time/tzdata"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/orderdesk/api/handler"
	"github.com/fastygo/orderdesk/internal/config"
	"github.com/fastygo/orderdesk/internal/infrastructure/buffer"
	"github.com/fastygo/orderdesk/internal/infrastructure/monitor"
	pgInfra "github.com/fastygo/orderdesk/internal/infrastructure/postgres"
	redisInfra "github.com/fastygo/orderdesk/internal/infrastructure/redis"
	"github.com/fastygo/orderdesk/internal/middleware"
	"github.com/fastygo/orderdesk/internal/router"
	"github.com/fastygo/orderdesk/internal/services"
	"github.com/fastygo/orderdesk/internal/services/lifecycle"
	"github.com/fastygo/orderdesk/pkg/httpcontext"
	"github.com/fastygo/orderdesk/pkg/logger"
	"github.com/fastygo/orderdesk/repository"
	"github.com/fastygo/orderdesk/repository/memory"
	"github.com/fastygo/orderdesk/repository/postgres"
	redisRepo "github.com/fastygo/orderdesk/repository/redis"
	auditUC "github.com/fastygo/orderdesk/usecase/audit"
	catalogUC "github.com/fastygo/orderdesk/usecase/catalog"
	orderUC "github.com/fastygo/orderdesk/usecase/order"
	summaryUC "github.com/fastygo/orderdesk/usecase/summary"
)

type repositories struct {
	orders   repository.OrderRepository
	products repository.CatalogRepository
	stores   repository.StoreRepository
	leases   repository.LeaseRepository
	events   repository.EventRepository
	journal  *buffer.Journal
	monitor  *monitor.Monitor
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
		Service:  cfg.AppName,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen()
	appCtx := manager.Context()

	var repos repositories
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		repos, err = memoryRepositories(cfg, zapLogger)
	default:
		repos, err = postgresRepositories(appCtx, cfg, manager, zapLogger)
	}
	if err != nil {
		zapLogger.Fatal("storage initialisation failed", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}

	repos.monitor.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		repos.monitor.Stop()
		return nil
	})

	journalProcessor, err := services.NewJournalProcessor(
		repos.journal,
		repos.monitor,
		repos.events,
		zapLogger.Named("journal"),
		services.JournalConfig{
			Interval:    cfg.Journal.SyncInterval,
			BatchSize:   cfg.Journal.BatchSize,
			MaxAttempts: cfg.Journal.MaxAttempts,
			Retention:   cfg.Journal.Retention,
		},
	)
	if err != nil {
		zapLogger.Fatal("journal processor setup failed", zap.Error(err))
	}
	journalProcessor.Start()
	manager.Register("journal_processor", func(ctx context.Context) error {
		journalProcessor.Stop(ctx)
		return journalProcessor.Drain(ctx)
	})
	recorder := services.NewEventRecorder(journalProcessor)

	location := cfg.Business.Location
	catalogUseCase := catalogUC.New(repos.products, repos.stores, zapLogger.Named("catalog"))
	orderUseCase := orderUC.New(repos.orders, repos.products, repos.stores, recorder, zapLogger.Named("order"),
		orderUC.Options{Location: location, Events: repos.events})
	coordinator := auditUC.New(repos.orders, repos.products, repos.leases, recorder, zapLogger.Named("audit"),
		auditUC.Config{
			LeaseTTL:      cfg.Audit.LeaseTTL,
			OverMaxPolicy: auditUC.OverMaxPolicy(cfg.Audit.OverMaxPolicy),
		})
	summaryUseCase := summaryUC.New(repos.orders, repos.products, repos.stores, zapLogger.Named("summary"), location, nil)

	sweeper, err := services.NewLeaseSweeper(coordinator, cfg.Audit.SweepInterval, zapLogger.Named("sweeper"))
	if err != nil {
		zapLogger.Fatal("lease sweeper setup failed", zap.Error(err))
	}
	sweeper.Start()
	manager.Register("lease_sweeper", func(ctx context.Context) error {
		sweeper.Stop(ctx)
		return nil
	})

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Order:   apiHandler.NewOrderHandler(orderUseCase, ctxAdapter, zapLogger),
		Audit:   apiHandler.NewAuditHandler(coordinator, ctxAdapter, zapLogger),
		Report:  apiHandler.NewReportHandler(summaryUseCase, ctxAdapter, zapLogger),
		Catalog: apiHandler.NewCatalogHandler(catalogUseCase, ctxAdapter, zapLogger),
		Health:  apiHandler.NewHealthHandler(repos.monitor, ctxAdapter, zapLogger),
	}
	httpLogger := zapLogger.Named("http")
	r := router.New(handlers, middleware.Recover(httpLogger), middleware.AccessLog(httpLogger))

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Concurrency:  cfg.HTTP.MaxConn,
		Name:         cfg.AppName,
	}

	manager.Go("http_server", func() error {
		zapLogger.Info("server started",
			zap.String("address", cfg.Address()),
			zap.String("storage", cfg.Storage.Driver),
			zap.String("timezone", cfg.Business.Timezone),
		)
		return server.ListenAndServe(cfg.Address())
	})
	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	if err := manager.Wait(); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
		os.Exit(1)
	}
}

func memoryRepositories(cfg *config.Config, zapLogger *zap.Logger) (repositories, error) {
	catalog := memory.NewCatalog()
	if cfg.Storage.SeedPath != "" {
		if err := catalog.LoadSeed(cfg.Storage.SeedPath); err != nil {
			return repositories{}, err
		}
		zapLogger.Info("catalog seeded", zap.String("path", cfg.Storage.SeedPath))
	} else {
		zapLogger.Warn("memory storage started without SEED_PATH; catalog is empty")
	}
	return repositories{
		orders:   memory.NewOrderRepository(),
		products: catalog,
		stores:   catalog,
		leases:   memory.NewLeaseRepository(),
		events:   memory.NewEventRepository(),
		monitor:  monitor.New(cfg.Storage.Driver, nil, nil, nil, cfg.Journal.CheckInterval, zapLogger),
	}, nil
}

func postgresRepositories(ctx context.Context, cfg *config.Config, manager *lifecycle.Manager, zapLogger *zap.Logger) (repositories, error) {
	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		return repositories{}, err
	}

	pool, err := pgInfra.NewPool(ctx, cfg.Database, cfg.AppName, zapLogger)
	if err != nil {
		return repositories{}, err
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})
	if cfg.Storage.SeedPath != "" {
		seed, err := repository.ReadSeed(cfg.Storage.SeedPath)
		if err != nil {
			return repositories{}, err
		}
		if err := postgres.ApplySeed(ctx, pool, seed); err != nil {
			return repositories{}, err
		}
		zapLogger.Info("catalog seeded",
			zap.String("path", cfg.Storage.SeedPath),
			zap.Int("products", len(seed.Products)),
			zap.Int("stores", len(seed.Stores)),
		)
	}

	redisClient, err := redisInfra.NewClient(ctx, cfg.Redis, cfg.AppName, zapLogger)
	if err != nil {
		return repositories{}, err
	}
	manager.Register("redis", func(ctx context.Context) error {
		return redisClient.Close()
	})

	journal, err := buffer.Open(cfg.Journal.Path, "")
	if err != nil {
		return repositories{}, err
	}
	manager.Register("journal", func(ctx context.Context) error {
		return journal.Close()
	})

	return repositories{
		orders:   postgres.NewOrderRepository(pool),
		products: postgres.NewCatalogRepository(pool),
		stores:   postgres.NewStoreRepository(pool),
		leases:   redisRepo.NewLeaseRepository(redisClient),
		events:   postgres.NewEventRepository(pool),
		journal:  journal,
		monitor:  monitor.New(cfg.Storage.Driver, pool, redisClient, journal, cfg.Journal.CheckInterval, zapLogger),
	}, nil
}
