package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"smart_environment/internal/assets"
	"smart_environment/internal/buffer"
	"smart_environment/internal/config"
	"smart_environment/internal/handlers"
	"smart_environment/internal/insight"
	"smart_environment/internal/logger"
	"smart_environment/internal/metrics"
	"smart_environment/internal/models"
	"smart_environment/internal/provider"
	"smart_environment/internal/repository"
	"smart_environment/internal/repository/db"
	"smart_environment/internal/server"
	"smart_environment/internal/service"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// @title        Smart Environment Dashboard API
// @version      1.0
// @description  Temperature, humidity and air quality telemetry with insights, polling control and offline assets.
// @BasePath     /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization

const envConfigPath = "SMARTENV_CONFIG"

func main() {
	// load configs/config.yml (or $SMARTENV_CONFIG)
	cfg, err := config.Load(os.Getenv(envConfigPath))
	if err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}

	// init logger
	log := logger.Get(cfg.Log.Level)
	defer func() { _ = log.Sync() }()

	// open DB
	sqlDB, err := openDB(cfg, log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var obs service.Observer
	if cfg.Metrics.Enabled {
		obs = metrics.NewPromObs(nil)
	}

	// wire dependencies
	repos := repository.NewRepository(sqlDB)
	journal := service.NewEventLogService(cfg.Journal.Capacity, log.Named("journal"))

	live, lifecycles, err := buildLiveProviders(cfg, log)
	if err != nil {
		log.Fatalw("failed to build providers", "err", err)
	}
	var bg sync.WaitGroup
	startProviders(ctx, &bg, lifecycles, log)

	scheduler, err := buildScheduler(cfg, live, journal, obs, log)
	if err != nil {
		log.Fatalw("failed to build scheduler", "err", err)
	}

	cache, err := buildOfflineCache(cfg, repos.Cache, journal, obs, log)
	if err != nil {
		log.Fatalw("failed to build offline cache", "err", err)
	}
	bg.Add(1)
	go func() {
		defer bg.Done()
		installCache(ctx, cache, cfg.Cache.InstallTimeout, log)
	}()

	if cfg.Auth.SigningKey == "" {
		log.Warnw("auth.signing_key is empty; operator sign-in is disabled")
	}
	services := service.NewService(service.Deps{
		Scheduler: scheduler,
		Journal:   journal,
		Cache:     cache,
		Auth: service.NewAuthService(repos.Auth, service.AuthConfig{
			SigningKey: cfg.Auth.SigningKey,
			TokenTTL:   cfg.Auth.TokenTTL,
		}),
	})

	opts := []handlers.Option{handlers.WithInstallTimeout(cfg.Cache.InstallTimeout)}
	if cfg.Metrics.Enabled {
		opts = append(opts, handlers.WithMetrics(cfg.Metrics.Path, promhttp.Handler()))
	}
	apiHandler := handlers.NewHandler(services, log.Named("http"), opts...)

	if cfg.Polling.AutoStart {
		if err := scheduler.Start(cfg.Polling.Interval); err != nil {
			log.Fatalw("failed to start polling", "err", err)
		}
	}

	// start HTTP server
	srv := server.New(server.Timeouts{
		ReadHeader: cfg.HTTP.ReadHeaderTimeout,
		Read:       cfg.HTTP.ReadTimeout,
		Write:      cfg.HTTP.WriteTimeout,
		Idle:       cfg.HTTP.IdleTimeout,
	})
	runHTTPServer(srv, cfg.Port, apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, srv, scheduler, lifecycles, &bg, cfg.HTTP.ShutdownTimeout, log)
}

// openDB initializes the SQLite database using configuration.
func openDB(cfg *config.Config, log *logger.Logger) (*sql.DB, error) {
	log.Infow("opening sqlite", "path", cfg.DB.Path)
	return db.InitDB(cfg.DB.Path)
}

// buildLiveProviders instantiates the configured providers in declaration order.
func buildLiveProviders(cfg *config.Config, log *logger.Logger) ([]service.RankedProvider, []provider.Lifecycle, error) {
	client := &http.Client{}
	var (
		ranked     []service.RankedProvider
		lifecycles []provider.Lifecycle
	)
	for _, d := range cfg.Resolver.Providers {
		p, err := provider.New(d, provider.Options{Client: client, Logger: log.Named("provider." + d.Name)})
		if err != nil {
			return nil, nil, err
		}
		ranked = append(ranked, service.RankedProvider{Provider: p, Rank: d.Rank, Timeout: d.Timeout})
		if lc, ok := p.(provider.Lifecycle); ok {
			lifecycles = append(lifecycles, lc)
		}
		log.Infow("provider_configured", "name", d.Name, "kind", d.Kind, "rank", d.Rank, "timeout", d.Timeout)
	}
	return ranked, lifecycles, nil
}

func startProviders(ctx context.Context, bg *sync.WaitGroup, lifecycles []provider.Lifecycle, log *logger.Logger) {
	for _, lc := range lifecycles {
		bg.Add(1)
		go func(lc provider.Lifecycle) {
			defer bg.Done()
			if err := lc.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Warnw("provider_start_failed", "err", err)
			}
		}(lc)
	}
}

// buildScheduler creates one resolver per mode over the shared buffer and classifier.
func buildScheduler(cfg *config.Config, live []service.RankedProvider, journal service.EventRecorder,
	obs service.Observer, log *logger.Logger) (*service.Scheduler, error) {
	simDesc := provider.Descriptor{Name: "simulated", Kind: provider.KindSimulated, Simulation: cfg.Simulation}
	simDesc.ApplyDefaults()
	sim, err := provider.New(simDesc, provider.Options{Logger: log.Named("provider.simulated")})
	if err != nil {
		return nil, err
	}

	resolverLog := log.Named("resolver")
	resolvers := map[models.Mode]service.SampleResolver{
		models.ModeLive: service.NewResolver(live, cfg.Resolver.Breaker, obs, resolverLog),
		models.ModeSimulated: service.NewResolver(
			[]service.RankedProvider{{Provider: sim, Timeout: simDesc.Timeout}},
			service.BreakerConfig{}, obs, resolverLog),
	}

	return service.NewScheduler(service.SchedulerConfig{
		Mode:               cfg.Mode(),
		Interval:           cfg.Polling.Interval,
		StaleAfterFailures: cfg.Polling.StaleAfterFailures,
	}, service.SchedulerDeps{
		Resolvers:  resolvers,
		Buffer:     buffer.NewRolling[models.Sample](cfg.Buffer.Capacity),
		Classifier: insight.NewClassifier(cfg.Insight),
		Events:     journal,
		Observer:   obs,
		Logger:     log.Named("scheduler"),
	})
}

func buildOfflineCache(cfg *config.Config, store repository.CacheStore, journal service.EventRecorder,
	obs service.Observer, log *logger.Logger) (*service.OfflineCacheService, error) {
	origin, err := assets.NewFetcher(cfg.Cache.Origin, &http.Client{Timeout: cfg.Cache.InstallTimeout})
	if err != nil {
		return nil, err
	}
	return service.NewOfflineCacheService(service.OfflineCacheConfig{
		Name:           cfg.Cache.Name,
		Manifest:       cfg.Cache.Manifest,
		PopulateOnMiss: cfg.Cache.PopulateOnMiss,
	}, store, origin, journal, obs, log.Named("cache")), nil
}

// installCache populates the offline store once at boot. A failure leaves the
// previous store in place and assets keep coming from the origin.
func installCache(ctx context.Context, cache *service.OfflineCacheService, timeout time.Duration, log *logger.Logger) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := cache.Install(ctx); err != nil {
		log.Warnw("offline_cache_install_failed", "err", err)
	}
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		log.Infow("http_listening", "port", port)
		if err := srv.Run(port, handler.InitRoutes()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, scheduler *service.Scheduler,
	lifecycles []provider.Lifecycle, bg *sync.WaitGroup, timeout time.Duration, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	ctx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()

	// allow in-flight requests to complete
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}

	// stop polling and wait for the pending resolution
	if err := scheduler.Close(ctx); err != nil {
		log.Errorw("scheduler did not drain", "err", err)
	}

	// stop background goroutines
	cancel()
	for _, lc := range lifecycles {
		lc.Close()
	}
	bg.Wait()
}
