package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/linkdrop/linkdrop/internal/config"
	"github.com/linkdrop/linkdrop/internal/entitlement"
	"github.com/linkdrop/linkdrop/internal/logger"
	"github.com/linkdrop/linkdrop/internal/media"
	"github.com/linkdrop/linkdrop/internal/metrics"
	"github.com/linkdrop/linkdrop/internal/store"
	"github.com/linkdrop/linkdrop/internal/telegram"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("linkdrop: %v", err)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.InitLogger(cfg.LogLevel, cfg.LogDir); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if cfg.IsPlaceholderToken() {
		logger.Error("Set TELEGRAM_TOKEN environment variable!", nil)
		return nil
	}

	logger.Info("linkdrop is starting", map[string]interface{}{
		"log_level":        cfg.LogLevel,
		"has_database":     cfg.HasDatabaseConfig(),
		"has_metrics":      cfg.HasMetricsConfig(),
		"free_daily_limit": cfg.FreeDailyLimit,
	})

	st, err := store.OpenFromConfig(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if cfg.YTDLPAutoInstall {
		if err := media.EnsureInstalled(ctx); err != nil {
			return err
		}
	}

	fetcher, err := media.NewYTDLPFetcher(cfg.ScratchDir, cfg.DownloadFormat)
	if err != nil {
		return err
	}

	collector := metrics.NewCollector()
	if cfg.HasMetricsConfig() {
		srv := metrics.NewServer(cfg.MetricsAddr, nil)
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Metrics server shutdown failed", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}()
	}

	ent := entitlement.NewService(st, cfg.FreeDailyLimit)

	bot, err := telegram.NewBot(cfg, ent, fetcher, collector)
	if err != nil {
		return err
	}
	defer bot.Stop()

	logger.InfoMsg("🎥 Ready to fetch videos!")

	if err := bot.Start(ctx); err != nil {
		logger.Error("Bot error", map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}
	return nil
}
