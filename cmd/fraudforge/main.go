// fraudforge - Composable risk scoring for payments, messages and links.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opensource-finance/fraudforge/internal/api"
	"github.com/opensource-finance/fraudforge/internal/bus"
	"github.com/opensource-finance/fraudforge/internal/cache"
	"github.com/opensource-finance/fraudforge/internal/config"
	"github.com/opensource-finance/fraudforge/internal/domain"
	"github.com/opensource-finance/fraudforge/internal/engine"
	"github.com/opensource-finance/fraudforge/internal/logging"
	"github.com/opensource-finance/fraudforge/internal/repository"
	"github.com/opensource-finance/fraudforge/internal/rules"
	"github.com/opensource-finance/fraudforge/internal/service"
	"github.com/opensource-finance/fraudforge/internal/tracing"
	"github.com/opensource-finance/fraudforge/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to fraudforge.yaml (default: ./fraudforge.yaml or ./configs/fraudforge.yaml)")
	flag.Parse()

	settings, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	cfg := &settings.Service

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	slog.Info("starting fraudforge",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)
	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"auto_block", cfg.Blocklist.AutoBlock,
	)

	if err := run(settings, logger); err != nil {
		slog.Error("fraudforge stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(settings *config.Settings, logger *slog.Logger) error {
	cfg := &settings.Service

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, Version, logger)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		return fmt.Errorf("repository: %w", err)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type, "two_phase", cfg.Cache.EnableTwoPhase)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		return fmt.Errorf("event bus: %w", err)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize Rule Engine
	ruleEngine, err := rules.NewEngine(100)
	if err != nil {
		return fmt.Errorf("rule engine: %w", err)
	}
	defer ruleEngine.Close()

	// Initialize Scoring Engine
	eng, err := engine.New(&settings.Scoring, engine.WithRules(ruleEngine))
	if err != nil {
		return fmt.Errorf("scoring engine: %w", err)
	}
	for _, d := range eng.Domains() {
		slog.Debug("domain configured", "domain", d, "analyzers", eng.Analyzers(d))
	}

	svc := service.New(eng, ruleEngine, repo, cacheImpl, busImpl, cfg)

	// Load rules from database (configure via POST /rules)
	if count, err := svc.ReloadRules(ctx); err != nil {
		slog.Warn("failed to load rules, starting with none", "error", err)
	} else if count == 0 {
		slog.Info("no rules in database - configure via POST /rules API")
	} else {
		slog.Info("rule engine initialized", "rules_count", count)
	}

	// Initialize async Worker
	var asyncWorker *worker.Worker
	if cfg.Worker.Enabled {
		tenantIDs := cfg.Worker.Tenants
		if len(tenantIDs) == 0 && cfg.Server.DefaultTenant != "" {
			tenantIDs = []string{cfg.Server.DefaultTenant}
		}

		asyncWorker = worker.NewWorker(busImpl, svc)
		if err := asyncWorker.Start(worker.Config{TenantIDs: tenantIDs}); err != nil {
			slog.Error("failed to start async worker", "error", err)
			asyncWorker = nil
		}
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, svc, Version, cfg.Metrics.Enabled)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	slog.Info("fraudforge is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	select {
	case <-ctx.Done():
		slog.Info("shutting down...")
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	}

	// Stop async worker first
	if asyncWorker != nil {
		if err := asyncWorker.Stop(); err != nil {
			slog.Error("failed to stop async worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("fraudforge shutdown complete")
	return nil
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  +-------------------------------------------+")
	fmt.Println("  |                FRAUDFORGE                 |")
	fmt.Println("  |        Composable Risk Scoring            |")
	fmt.Println("  |   Cards, OTPs, links, mail and money.     |")
	fmt.Println("  +-------------------------------------------+")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST   /evaluate/{domain}               - Score an event (card, otp, url, phishing, transaction, geo)")
	fmt.Println("    POST   /events/{domain}                 - Queue an event for async scoring")
	fmt.Println("    GET    /evaluations                     - Recent evaluations")
	fmt.Println("    GET    /evaluations/{id}                - Get evaluation by ID")
	fmt.Println("    GET    /blocklist                       - List blocklist")
	fmt.Println("    POST   /blocklist                       - Block an identifier")
	fmt.Println("    DELETE /blocklist/{identifier}          - Unblock an identifier")
	fmt.Println("    POST   /actors/{actor}/failed-attempts  - Record a failed authentication")
	fmt.Println("    GET    /rules                           - List rules")
	fmt.Println("    POST   /rules                           - Create a rule")
	fmt.Println("    POST   /rules/reload                    - Hot-reload rules from database")
	fmt.Println("    GET    /config/{domain}                 - Thresholds and confidence curve")
	fmt.Println("    GET    /health                          - Health check")
	if cfg.Metrics.Enabled {
		fmt.Println("    GET    /metrics                         - Prometheus metrics")
	}
	fmt.Println()
}
