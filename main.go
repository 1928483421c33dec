package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/goldorder/internal/config"
	"github.com/nikolayk812/goldorder/internal/logging"
	"github.com/nikolayk812/goldorder/internal/metrics"
	"github.com/nikolayk812/goldorder/internal/port"
	"github.com/nikolayk812/goldorder/internal/pricing"
	"github.com/nikolayk812/goldorder/internal/repository"
	"github.com/nikolayk812/goldorder/internal/service"
	"github.com/nikolayk812/goldorder/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.NewLogger(cfg.Log.Level)
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("order engine stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	pool, err := newPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := repository.Migrate(ctx, pool); err != nil {
		return err
	}

	vocabulary := repository.NewStatusVocabulary(pool)
	if err := vocabulary.Seed(ctx); err != nil {
		return fmt.Errorf("vocabulary.Seed: %w", err)
	}
	if err := vocabulary.Verify(ctx); err != nil {
		return fmt.Errorf("vocabulary.Verify: %w", err)
	}

	blobs, closeBlobs, err := newBlobStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer closeBlobs()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	deps := service.Deps{
		UnitOfWork:   repository.NewUnitOfWork(pool),
		Blobs:        blobs,
		Pricing:      pricing.NewCalculator(),
		Charges:      pricing.NewChargePolicy(cfg.Order.TaxPercentage, cfg.Order.ShippingFlat),
		Metrics:      metrics.NewOrderMetrics(registry),
		Logger:       logger,
		Currency:     cfg.Order.Currency,
		MaxSlipBytes: cfg.Order.SlipMaxBytes,
	}

	eng, err := newEngine(pool, deps)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(registry))
	mux.HandleFunc("/healthz", eng.healthz)

	server := &http.Server{
		Addr:              cfg.Server.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.Server.ShutdownTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("order engine started",
			zap.String("addr", cfg.Server.MetricsAddr),
			zap.String("storage", cfg.Storage.Backend),
			zap.String("currency", cfg.Order.Currency.String()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server.ListenAndServe: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}

	logger.Info("order engine stopped gracefully")

	return nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

// engine owns the wired services. Callers embed it; this process serves only
// health and metrics over HTTP.
type engine struct {
	db      pinger
	orders  *service.OrderService
	slips   *service.SlipService
	catalog *service.CatalogService
}

func newEngine(db pinger, deps service.Deps) (*engine, error) {
	orders, err := service.NewOrderService(deps)
	if err != nil {
		return nil, fmt.Errorf("service.NewOrderService: %w", err)
	}

	slips, err := service.NewSlipService(deps)
	if err != nil {
		return nil, fmt.Errorf("service.NewSlipService: %w", err)
	}

	catalog, err := service.NewCatalogService(deps)
	if err != nil {
		return nil, fmt.Errorf("service.NewCatalogService: %w", err)
	}

	return &engine{
		db:      db,
		orders:  orders,
		slips:   slips,
		catalog: catalog,
	}, nil
}

func (e *engine) healthz(w http.ResponseWriter, r *http.Request) {
	if err := e.db.Ping(r.Context()); err != nil {
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func newPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.ParseConfig: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.NewWithConfig: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pool.Ping: %w", err)
	}

	return pool, nil
}

func newBlobStore(ctx context.Context, cfg config.StorageConfig) (port.BlobStore, func(), error) {
	switch cfg.Backend {
	case config.StorageGCS:
		client, err := storage.NewGCSClient(ctx, storage.GCSOptions{
			CredentialsFile: cfg.CredentialsFile,
			Endpoint:        cfg.Endpoint,
		})
		if err != nil {
			return nil, nil, err
		}

		store, err := storage.NewGCSStore(client, cfg.Bucket)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}

		return store, func() { _ = client.Close() }, nil
	default:
		store, err := storage.NewFileStore(cfg.Dir)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}
}
