package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bimdev1/Cortex/internal/config"
	"github.com/bimdev1/Cortex/pkg/api"
	"github.com/bimdev1/Cortex/pkg/events"
	"github.com/bimdev1/Cortex/pkg/logging"
	"github.com/bimdev1/Cortex/pkg/metrics"
	"github.com/bimdev1/Cortex/pkg/orchestrator"
	"github.com/bimdev1/Cortex/pkg/poller"
	"github.com/bimdev1/Cortex/pkg/provider"
	"github.com/bimdev1/Cortex/pkg/ratelimit"
	"github.com/bimdev1/Cortex/pkg/shutdown"
	"github.com/bimdev1/Cortex/pkg/store"
	"github.com/bimdev1/Cortex/pkg/tracing"
)

func main() {
	configPath := flag.String("config", os.Getenv("CORTEX_CONFIG"), "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "cortexd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("starting cortexd",
		zap.String("addr", cfg.Server.Addr),
		zap.String("store", cfg.Store.Type),
		zap.Duration("poll_interval", cfg.PollInterval()))

	tracer, err := tracing.InitTracer(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	st, err := store.NewStore(store.Config{
		Type:            cfg.Store.Type,
		DSN:             cfg.Store.DSN,
		MaxOpenConns:    cfg.Store.MaxOpenConns,
		MaxIdleConns:    cfg.Store.MaxIdleConns,
		ConnMaxLifetime: cfg.Store.ConnMaxLifetime,
	})
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}

	registry := provider.NewRegistry(logger)
	registerProviders(cfg, registry, logger)

	bus := events.NewBus()
	collector := metrics.NewCollector(prometheus.DefaultRegisterer)
	orch := orchestrator.New(st, registry, bus, collector, logger)

	ctx := context.Background()
	registry.ConnectAll(ctx)
	if err := orch.Restore(ctx); err != nil {
		return fmt.Errorf("restore active jobs: %w", err)
	}

	pl, err := poller.New(orch, cfg.PollInterval(), collector, logger)
	if err != nil {
		return err
	}
	pl.Start()

	go logEvents(bus.Subscribe(), logger)

	limiter := ratelimit.NewLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst)
	router := mux.NewRouter()
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(limiter.Middleware(ratelimit.IPKeyFunc))
	api.NewServer(orch, registry, pl, st, logger).RegisterRoutes(router)

	apiServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}
	metricsServer := &http.Server{
		Addr:    cfg.Server.MetricsAddr,
		Handler: promhttp.Handler(),
	}

	mgr := shutdown.New(30*time.Second, logger)
	mgr.Register(func(ctx context.Context) error {
		tracer.Shutdown(ctx)
		return st.Close()
	})
	mgr.Register(func(ctx context.Context) error {
		registry.DisconnectAll(ctx)
		bus.Close()
		return nil
	})
	mgr.Register(func(ctx context.Context) error {
		pl.Stop()
		return nil
	})
	mgr.Register(shutdown.StopHTTPServer(metricsServer, "metrics"))
	mgr.Register(shutdown.StopHTTPServer(apiServer, "api"))

	go func() {
		logger.Info("metrics listening", zap.String("addr", cfg.Server.MetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	go func() {
		logger.Info("api listening", zap.String("addr", cfg.Server.Addr))
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("api server failed", zap.Error(err))
		}
	}()

	mgr.Wait()
	return nil
}

// registerProviders constructs every configured provider. A malformed
// section keeps that network out of the registry without stopping the
// daemon.
func registerProviders(cfg *config.Config, registry *provider.Registry, logger *zap.Logger) {
	if cfg.Providers.Akash != nil {
		p, err := provider.NewAkashProvider(*cfg.Providers.Akash, logger)
		if err != nil {
			logger.Error("skipping akash provider", zap.Error(err))
		} else if err := registry.Register(p); err != nil {
			logger.Error("register akash provider", zap.Error(err))
		}
	}
	if cfg.Providers.Render != nil {
		p, err := provider.NewRenderProvider(*cfg.Providers.Render, logger)
		if err != nil {
			logger.Error("skipping render provider", zap.Error(err))
		} else if err := registry.Register(p); err != nil {
			logger.Error("register render provider", zap.Error(err))
		}
	}
}

// logEvents mirrors lifecycle events into the structured log.
func logEvents(ch <-chan events.Event, logger *zap.Logger) {
	for ev := range ch {
		switch e := ev.(type) {
		case events.JobCreated:
			logger.Info("event: job created",
				zap.String("job_id", e.JobID),
				zap.String("provider", e.Provider))
		case events.JobStatusChanged:
			logger.Info("event: job status changed",
				zap.String("job_id", e.JobID),
				zap.String("old_status", string(e.OldStatus)),
				zap.String("new_status", string(e.NewStatus)))
		case events.JobCancelled:
			logger.Info("event: job cancelled",
				zap.String("job_id", e.JobID),
				zap.Float64("refund", e.Refund))
		}
	}
}
