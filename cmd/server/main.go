package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"creativelens/internal/delivery"
	"creativelens/internal/domain"
	"creativelens/internal/infrastructure"
	"creativelens/internal/usecase"
	"creativelens/pkg/config"
	"creativelens/pkg/logger"
	"creativelens/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level)
	log.Info("Starting server")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	backend, closeBackend, err := newBackend(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to configure storage")
	}
	defer closeBackend()

	db := infrastructure.NewDatabase(backend, log, m)
	if cfg.Storage.ConnectOnStart {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := db.Connect(ctx); err != nil {
			log.WithError(err).Warn("Storage not connected, use POST /api/v1/storage/connect once it is reachable")
		}
		cancel()
	}

	cache, closeCache, err := newCache(cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to configure analysis cache")
	}
	defer closeCache()

	perfRepo := infrastructure.NewPerformanceRepository(db, log)
	historyRepo := infrastructure.NewHistoryRepository(db, cfg.Analysis.HistoryCapacity, log)
	clientRepo := infrastructure.NewClientRepository(db)
	reportLog := infrastructure.NewReportLogRepository(db)

	matcher := usecase.NewPriorityMatcher(usecase.SubstringFilenameMatcher{})
	loc := cfg.Report.Location()

	analyzer := infrastructure.NewHTTPAnalyzer(cfg.Analysis.AnalyzerURL, cfg.Analysis.APIKey, cfg.Analysis.Timeout, cfg.Analysis.RatePerSecond, log)
	if cfg.Analysis.AnalyzerURL == "" {
		log.Warn("ANALYZER_URL not set, creative analysis requests will fail")
	}

	handlers := delivery.NewHTTPHandlers(
		usecase.NewStorageService(db, cache, db.Backend(), log),
		usecase.NewClientService(clientRepo, historyRepo, perfRepo, reportLog, log),
		usecase.NewImportService(infrastructure.NewXLSXReportReader(usecase.DateColumns), perfRepo, clientRepo, reportLog, log, m),
		usecase.NewPerformanceService(perfRepo, historyRepo, clientRepo, matcher, log, m, loc, cfg.Report.DefaultWindowDays),
		usecase.NewLinkService(perfRepo, historyRepo, clientRepo, matcher, usecase.SubstringFilenameMatcher{}, log, m, cfg.Linking.HashWorkers),
		usecase.NewAnalysisService(analyzer, infrastructure.NewImageInspector(), cache, historyRepo, clientRepo, log, m, cfg.Analysis.ContextEntries),
		log,
	)

	router := delivery.NewHTTPRouter(handlers, log, m, registry, delivery.RouterConfig{
		RequestTimeout: cfg.Server.RequestTimeout,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	}).SetupRoutes()

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Server.Port).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}
	log.Info("Server stopped")
}

func newBackend(cfg *config.Config, log *logger.Logger) (infrastructure.Backend, func(), error) {
	switch cfg.Storage.Backend {
	case "postgres":
		if cfg.Storage.PostgresDSN == "" {
			return nil, nil, fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
		pg, err := infrastructure.OpenPostgres(cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return pg, func() { _ = pg.Close() }, nil
	case "remote":
		if cfg.Storage.RemoteURL == "" {
			return nil, nil, fmt.Errorf("STORAGE_REMOTE_URL is required for the remote backend")
		}
		return infrastructure.NewRemoteBackend(cfg.Storage.RemoteURL, cfg.Storage.RemoteTimeout, cfg.Storage.RemoteRatePerSec, log), func() {}, nil
	case "memory", "":
		return infrastructure.NewMemoryBackend(int64(cfg.Storage.QuotaBytes)), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func newCache(cfg *config.Config) (domain.AnalysisCache, func(), error) {
	switch cfg.Cache.Backend {
	case "redis":
		client, err := infrastructure.NewRedisClient(cfg.Cache.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return infrastructure.NewRedisAnalysisCache(client, cfg.Cache.TTL), func() { _ = client.Close() }, nil
	case "memory", "":
		return infrastructure.NewMemoryAnalysisCache(cfg.Cache.TTL), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}
