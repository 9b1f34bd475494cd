package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/nextlevelbuilder/lingorelay/internal/bridge"
	"github.com/nextlevelbuilder/lingorelay/internal/config"
	"github.com/nextlevelbuilder/lingorelay/internal/prompts"
	"github.com/nextlevelbuilder/lingorelay/internal/server"
	"github.com/nextlevelbuilder/lingorelay/internal/telegram"
	"github.com/nextlevelbuilder/lingorelay/internal/telemetry"
	"github.com/nextlevelbuilder/lingorelay/internal/translate"
)

// bridgeStats feeds the health endpoint from the live routing state.
type bridgeStats struct {
	routes *bridge.RouteTable
	store  *bridge.CorrelationStore
}

func (s bridgeStats) Routes() int       { return s.routes.Len() }
func (s bridgeStats) Correlations() int { return s.store.Len() }

func runBridge() {
	// Setup structured logging
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry, Version)
	if err != nil {
		slog.Error("failed to set up telemetry", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			slog.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	tg, err := telegram.New(cfg.Telegram)
	if err != nil {
		slog.Error("failed to create telegram client", "error", err)
		os.Exit(1)
	}

	// Locator resolution needs a live API client but not the polling loop.
	routes, err := config.ResolveRoutes(ctx, cfg.Routing, tg)
	if err != nil {
		slog.Error("failed to resolve routes", "error", err)
		os.Exit(1)
	}
	slog.Info("routes resolved", "count", routes.Len())

	catalog := prompts.Load(config.ExpandHome(cfg.Prompts.File))

	translator := translate.NewClient(
		cfg.Translator.APIKey,
		cfg.Translator.APIBase,
		cfg.Translator.Model,
		cfg.Translator.MaxTokens,
		cfg.Translator.Temperature,
	)

	router := bridge.NewRouter(routes, catalog, tg, translator, cfg.Routing.AlbumWindow())
	router.Start(ctx)

	if err := tg.Start(ctx, router.Dispatch); err != nil {
		slog.Error("failed to start telegram polling", "error", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		srv := server.New(cfg.Server, bridgeStats{routes: routes, store: router.Correlations()}, Version)
		return srv.Start(gctx)
	})
	// A dead polling loop must take the process down rather than leave it
	// reporting healthy while deaf.
	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case <-tg.Done():
			if gctx.Err() != nil {
				return nil
			}
			return errors.New("telegram polling terminated unexpectedly")
		}
	})

	slog.Info("lingorelay running", "version", Version)

	<-gctx.Done()
	slog.Info("shutting down")

	tg.Stop()
	router.Stop()
	if err := g.Wait(); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	slog.Info("goodbye")
}
