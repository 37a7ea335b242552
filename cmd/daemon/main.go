// SPDX-License-Identifier: MIT

// Command daemon runs the litkeeper archive service: the HTTP API, the job
// worker pool and the library index.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/litkeeper/litkeeper/internal/api"
	"github.com/litkeeper/litkeeper/internal/cache"
	"github.com/litkeeper/litkeeper/internal/config"
	"github.com/litkeeper/litkeeper/internal/fetch"
	"github.com/litkeeper/litkeeper/internal/health"
	"github.com/litkeeper/litkeeper/internal/jobs"
	"github.com/litkeeper/litkeeper/internal/library"
	lklog "github.com/litkeeper/litkeeper/internal/log"
	"github.com/litkeeper/litkeeper/internal/notify"
	"github.com/litkeeper/litkeeper/internal/telemetry"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	lklog.Configure(lklog.Config{Level: "info", Service: "litkeeper", Version: version})
	logger := lklog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load(version)
	if err := config.Validate(cfg); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Reapply with the loaded settings; the early call only covered startup.
	lklog.Configure(lklog.Config{Level: cfg.LogLevel, Service: cfg.LogService, Version: cfg.Version})

	if err := run(ctx, cfg); err != nil {
		logger.Fatal().Err(err).Msg("daemon failed")
	}
	logger.Info().Msg("shutdown complete")
}

func run(ctx context.Context, cfg config.AppConfig) error {
	logger := lklog.WithComponent("daemon")

	if err := os.MkdirAll(cfg.DataDir, 0o775); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	// Tracing.
	tracerProvider, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.TracingEnabled,
		ServiceName:    cfg.LogService,
		ServiceVersion: cfg.Version,
		ExporterType:   cfg.TracingExporter,
		Endpoint:       cfg.TracingEndpoint,
		SamplingRate:   cfg.TracingSampling,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("tracer shutdown")
		}
	}()

	// Page cache: Redis when configured, in-memory otherwise.
	var pageCache cache.Cache
	if cfg.RedisAddr != "" {
		redisCache, err := cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, lklog.WithComponent("cache"))
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		pageCache = redisCache
	} else {
		pageCache = cache.NewMemoryCache()
	}
	defer func() {
		if err := pageCache.Close(); err != nil {
			logger.Warn().Err(err).Msg("cache close")
		}
	}()

	// Selector profiles with hot reload.
	selectors, err := config.LoadSelectors(cfg.SelectorsPath)
	if err != nil {
		return fmt.Errorf("load selector profiles: %w", err)
	}
	holder := config.NewSelectorHolder(selectors, cfg.SelectorsPath)
	if cfg.SelectorsPath != "" {
		if err := holder.StartWatcher(ctx); err != nil {
			logger.Warn().Err(err).Msg("selector hot reload unavailable")
		}
	}

	// Stores.
	index, err := library.NewStore(filepath.Join(cfg.DataDir, "library.db"))
	if err != nil {
		return fmt.Errorf("open library index: %w", err)
	}
	defer func() {
		if err := index.Close(); err != nil {
			logger.Warn().Err(err).Msg("library close")
		}
	}()

	jobStore, err := jobs.OpenStore(filepath.Join(cfg.DataDir, "jobs"))
	if err != nil {
		return fmt.Errorf("open job store: %w", err)
	}
	defer func() {
		if err := jobStore.Close(); err != nil {
			logger.Warn().Err(err).Msg("job store close")
		}
	}()

	// Notifications.
	var notifier jobs.Notifier
	if cfg.TelegramBotToken != "" {
		tg, err := notify.NewTelegram(notify.TelegramConfig{
			BotToken: cfg.TelegramBotToken,
			ChatID:   cfg.TelegramChatID,
		})
		if err != nil {
			return fmt.Errorf("init telegram notifier: %w", err)
		}
		notifier = tg
	}

	// Fetch pipeline and worker pool.
	client := fetch.NewClient(fetch.ClientConfig{
		Timeout:  cfg.FetchTimeout,
		Retries:  cfg.FetchRetries,
		Delay:    cfg.FetchDelay,
		Cache:    pageCache,
		CacheTTL: cfg.CacheTTL,
	})
	fetcher := fetch.NewService(client, holder, cfg.MaxPages)

	manager := jobs.NewManager(jobs.ManagerConfig{
		Workers: cfg.Workers,
		DataDir: cfg.DataDir,
	}, jobStore, index, fetcher, notifier)
	if err := manager.Start(ctx); err != nil {
		return fmt.Errorf("start job manager: %w", err)
	}
	defer manager.Shutdown()

	// Health and API.
	healthMgr := health.NewManager(cfg.Version)
	healthMgr.RegisterChecker(health.NewPingChecker("library", index))
	healthMgr.RegisterChecker(health.NewDirWritableChecker("data_dir", cfg.DataDir))

	server := api.NewServer(api.ServerConfig{
		Listen:          cfg.Listen,
		EPUBDir:         manager.EPUBDir(),
		APIRateLimit:    cfg.APIRateLimit,
		SubmitRateLimit: cfg.SubmitRateLimit,
		TracingService:  tracingService(cfg),
	}, manager, index, healthMgr)

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("signal received, draining")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func tracingService(cfg config.AppConfig) string {
	if !cfg.TracingEnabled {
		return ""
	}
	return cfg.LogService
}
