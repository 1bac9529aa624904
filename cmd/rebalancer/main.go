// Package main is the rebalance engine's process entry point: it wires
// every collaborator built under internal/ into one running scheduler
// loop, in the style of the teacher's cmd/indexer/main.go (load config,
// construct a service, run until a termination signal arrives).
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	_ "github.com/lib/pq"

	"github.com/everclearorg/mark-sub000/infrastructure/config"
	"github.com/everclearorg/mark-sub000/infrastructure/logging"
	"github.com/everclearorg/mark-sub000/infrastructure/resilience"
	"github.com/everclearorg/mark-sub000/internal/adapters"
	"github.com/everclearorg/mark-sub000/internal/adapters/delayed"
	"github.com/everclearorg/mark-sub000/internal/adapters/instant"
	"github.com/everclearorg/mark-sub000/internal/admin"
	"github.com/everclearorg/mark-sub000/internal/balances"
	"github.com/everclearorg/mark-sub000/internal/callback"
	"github.com/everclearorg/mark-sub000/internal/chainservice"
	"github.com/everclearorg/mark-sub000/internal/domain/chainregistry"
	"github.com/everclearorg/mark-sub000/internal/domain/policy"
	"github.com/everclearorg/mark-sub000/internal/metrics"
	"github.com/everclearorg/mark-sub000/internal/orchestrator"
	"github.com/everclearorg/mark-sub000/internal/pause"
	"github.com/everclearorg/mark-sub000/internal/storage/postgres"
	"github.com/everclearorg/mark-sub000/internal/sweeper"
)

const serviceName = "rebalancer"

func main() {
	devMode := flag.Bool("dev", false, "register in-memory chain reader/chain service and test bridge adapters instead of production ones")
	flag.Parse()

	_ = godotenv.Load()

	log := logging.NewFromEnv(serviceName)

	cfg, err := config.Load()
	if err != nil {
		log.WithContext(context.Background()).WithError(err).Fatal("load configuration")
	}

	if err := run(cfg, log, *devMode); err != nil {
		log.WithContext(context.Background()).WithError(err).Fatal("rebalancer exited with error")
	}
}

func run(cfg config.EngineConfig, log *logging.Logger, devMode bool) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := openDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("rebalancer: %w", err)
	}
	defer db.Close()

	store := postgres.New(db)
	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("rebalancer: ensure schema: %w", err)
	}

	policyStore, err := policy.LoadFile(cfg.RoutePolicyPath)
	if err != nil {
		return fmt.Errorf("rebalancer: load route policy: %w", err)
	}

	chainRegistry, err := chainregistry.LoadFile(cfg.ChainConfigPath)
	if err != nil {
		return fmt.Errorf("rebalancer: load chain catalog: %w", err)
	}

	pauses := pause.New(store)

	adapterRegistry := adapters.NewRegistry(resilience.DefaultBreakerConfig())
	var chainSvc chainservice.ChainService
	owners := ownersFromRegistry(chainRegistry)
	readers := make(map[int64]balances.ChainReader, len(owners))

	if devMode {
		log.WithContext(ctx).Warn("dev mode: registering in-memory chain reader, chain service, and test bridge adapters")
		chainSvc = chainservice.NewMemChainService()
		memReader := balances.NewMemChainReader()
		for _, chainID := range chainRegistry.ChainIDs() {
			readers[chainID] = memReader
		}
		adapterRegistry.Register(instant.New("instant"))
		adapterRegistry.Register(delayed.New("delayed", 3))
	} else {
		return fmt.Errorf("rebalancer: production chain readers, chain service, and bridge adapters are not wired; rerun with -dev or supply production implementations")
	}

	oracle := balances.New(balances.Config{
		Registry: chainRegistry,
		Readers:  readers,
		Owners:   owners,
	}, log)

	appMetrics := metrics.New(serviceName)

	callbackEngine := callback.New(callback.Config{
		Store:       store,
		Adapters:    adapterRegistry,
		Chains:      chainSvc,
		Concurrency: cfg.CallbackConcurrency,
		Logger:      log,
		Metrics:     appMetrics,
		ServiceName: serviceName,
	})

	sweep := sweeper.New(sweeper.Config{
		Store:        store,
		EarmarkTTL:   cfg.EarmarkTTL,
		OperationTTL: cfg.OperationTTL,
		Logger:       log,
		Metrics:      appMetrics,
		ServiceName:  serviceName,
	})

	selector := orchestrator.NewSelector(orchestrator.SelectorConfig{
		Adapters: adapterRegistry,
		Chains:   chainSvc,
		Store:    store,
		Owners:   owners,
		Logger:   log,
	})

	engine := orchestrator.New(orchestrator.EngineConfig{
		Pauses:      pauses,
		Sweeper:     sweep,
		Callbacks:   callbackEngine,
		Balances:    oracle,
		Policy:      policyStore,
		Registry:    chainRegistry,
		Selector:    selector,
		TickTimeout: cfg.TickTimeout,
		Logger:      log,
		Metrics:     appMetrics,
		ServiceName: serviceName,
	})

	adminLog := zerolog.New(os.Stdout).With().Timestamp().Str("service", serviceName).Logger()
	adminServer := admin.New(cfg.AdminListenAddr, admin.Config{
		Store:   store,
		Pauses:  pauses,
		Log:     adminLog,
		DevMode: devMode,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := adminServer.ListenAndServe(); err != nil {
			errCh <- fmt.Errorf("admin server: %w", err)
		}
	}()

	schedulerDone := runScheduler(ctx, cfg, log, engine)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.WithContext(ctx).WithField("signal", sig.String()).Info("shutdown signal received")
	case err := <-errCh:
		log.WithContext(ctx).WithError(err).Error("admin server stopped unexpectedly")
	}

	cancel()
	<-schedulerDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := adminServer.Raw().Shutdown(shutdownCtx); err != nil {
		log.WithContext(ctx).WithError(err).Warn("admin server shutdown")
	}

	return nil
}

// runScheduler drives Engine.Tick on a fixed interval, or on a cron
// schedule when TICK_CRON is set (spec §2.2's domain-stack wiring for
// github.com/robfig/cron/v3). Returns a channel closed once the
// scheduler has fully stopped after ctx is cancelled.
func runScheduler(ctx context.Context, cfg config.EngineConfig, log *logging.Logger, engine *orchestrator.Engine) <-chan struct{} {
	done := make(chan struct{})

	tick := func() {
		tickCtx := logging.WithTraceID(ctx, logging.NewTraceID())
		if err := engine.Tick(tickCtx); err != nil {
			log.WithContext(tickCtx).WithError(err).Error("tick failed")
		}
	}

	if cfg.TickCron != "" {
		c := cron.New()
		if _, err := c.AddFunc(cfg.TickCron, tick); err != nil {
			log.WithContext(ctx).WithError(err).Fatal("invalid TICK_CRON expression")
		}
		c.Start()
		go func() {
			<-ctx.Done()
			<-c.Stop().Done()
			close(done)
		}()
		return done
	}

	go func() {
		defer close(done)
		ticker := time.NewTicker(cfg.TickInterval)
		defer ticker.Stop()
		tick()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tick()
			}
		}
	}()
	return done
}

func openDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func ownersFromRegistry(reg *chainregistry.Registry) map[int64]string {
	owners := make(map[int64]string)
	for _, chainID := range reg.ChainIDs() {
		chain, ok := reg.Chain(chainID)
		if !ok || chain.OwnerAddress == "" {
			continue
		}
		owners[chainID] = chain.OwnerAddress
	}
	return owners
}
