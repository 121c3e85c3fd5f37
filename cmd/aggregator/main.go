package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/commandcenter/aggregator/cache"
	"github.com/commandcenter/aggregator/config"
	"github.com/commandcenter/aggregator/fetch"
	"github.com/commandcenter/aggregator/query"
	"github.com/commandcenter/aggregator/server"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration file")
	listenAddr := flag.String("listen", "", "HTTP listen address (overrides config)")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics listen address (overrides config)")
	dataDir := flag.String("data-dir", "", "Directory for the persistent dataset cache (overrides config)")
	cacheTTL := flag.Duration("cache-ttl", 0, "Dataset cache freshness window (overrides config)")
	pageSize := flag.Int("page-size", 0, "Records per result page (overrides config)")
	recordCap := flag.Int("record-cap", 0, "Maximum records per collection (overrides config)")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("loading configuration", slog.Any("error", err))
		os.Exit(1)
	}
	applyFlags(cfg, *listenAddr, *metricsAddr, *dataDir, *cacheTTL, *pageSize, *recordCap, *verbose)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}
	if cfg.Verbose {
		level.Set(slog.LevelDebug)
	}

	slog.Info("starting aggregator",
		slog.Int("collections", len(cfg.Handles())),
		slog.Duration("cache_ttl", cfg.CacheTTL),
		slog.String("listen", cfg.ListenAddr),
	)

	metrics := fetch.NewMetrics()
	fetcher, err := fetch.NewFetcher(cfg, metrics)
	if err != nil {
		slog.Error("initialising fetcher", slog.Any("error", err))
		os.Exit(1)
	}

	store := openStore(cfg.DataDir)

	svc, err := query.NewService(cfg, fetcher, store)
	if err != nil {
		slog.Error("initialising query service", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := svc.Close(); err != nil {
			slog.Error("closing query service", slog.Any("error", err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Warm the cache so the first dashboard request is served from memory.
	go func() {
		if facets, err := svc.Facets(ctx); err == nil {
			slog.Info("dataset warmed",
				slog.Int("years", len(facets.Years)),
				slog.Int("authors", len(facets.Authors)),
				slog.Int("publications", len(facets.Publications)),
			)
		}
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	apiServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.New(svc).Routes(),
	}
	go func() {
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown signal received, draining connections")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("api server shutdown failed", slog.Any("error", err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if envPath, ok := config.EnvString("AGGREGATOR_CONFIG"); ok {
			path = envPath
		}
	}

	var cfg *config.Config
	if path != "" {
		loaded, err := config.LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.DefaultConfig()
	}

	if token, ok := config.EnvString("AGGREGATOR_API_TOKEN"); ok {
		cfg.APIToken = token
	}
	if ttl, ok, err := config.EnvDuration("AGGREGATOR_CACHE_TTL"); err != nil {
		return nil, err
	} else if ok {
		cfg.CacheTTL = ttl
	}
	if recordCap, ok, err := config.EnvInt("AGGREGATOR_RECORD_CAP"); err != nil {
		return nil, err
	} else if ok {
		cfg.RecordsPerCollectionCap = recordCap
	}

	return cfg, nil
}

func applyFlags(cfg *config.Config, listenAddr, metricsAddr, dataDir string, cacheTTL time.Duration, pageSize, recordCap int, verbose bool) {
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}
	if metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if cacheTTL > 0 {
		cfg.CacheTTL = cacheTTL
	}
	if pageSize > 0 {
		cfg.PageSize = pageSize
	}
	if recordCap > 0 {
		cfg.RecordsPerCollectionCap = recordCap
	}
	if verbose {
		cfg.Verbose = true
	}
}

// openStore opens the persistent cache store when a data directory is
// configured, falling back to memory if it cannot be opened.
func openStore(dataDir string) cache.Store {
	if dataDir == "" {
		return cache.NewMemoryStore()
	}
	store, err := cache.NewBadgerStore(dataDir)
	if err != nil {
		slog.Error("opening cache store, continuing in-memory",
			slog.String("dir", dataDir),
			slog.Any("error", err),
		)
		return cache.NewMemoryStore()
	}
	return store
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
