// Package app initializes and holds long-lived application services, acting
// as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pitboard-bot/pitboard/internal/archive/sqlite"
	"github.com/pitboard-bot/pitboard/internal/clock/system"
	"github.com/pitboard-bot/pitboard/internal/config"
	collyfetcher "github.com/pitboard-bot/pitboard/internal/fetcher/colly"
	"github.com/pitboard-bot/pitboard/internal/fetcher/headless"
	"github.com/pitboard-bot/pitboard/internal/hash/sha256"
	"github.com/pitboard-bot/pitboard/internal/id/uuid"
	"github.com/pitboard-bot/pitboard/internal/logging"
	"github.com/pitboard-bot/pitboard/internal/metrics"
	"github.com/pitboard-bot/pitboard/internal/parser"
	"github.com/pitboard-bot/pitboard/internal/render"
	"github.com/pitboard-bot/pitboard/internal/standings"
	"github.com/pitboard-bot/pitboard/internal/state"
)

// App holds all the shared, long-lived services: logger, fetchers, renderer,
// state store and archive. It is initialized once at startup and handed to
// the commands that need it.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	fetcher  standings.Fetcher
	headless standings.Headless
	detector standings.Detector
	parsers  map[standings.SourceKind]standings.Parser
	hasher   standings.Hasher
	renderer standings.Renderer
	state    standings.StateStore
	archive  standings.Archive
	retry    standings.RetryPolicy
	clock    standings.Clock
	ids      standings.IDGenerator
}

// New creates and initializes an App from configuration, failing fast when
// any critical service cannot be built.
func New(cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	metrics.Init()

	a := &App{
		cfg:     cfg,
		logger:  logger,
		parsers: parser.Parsers(),
		hasher:  sha256.New(),
		retry: standings.NewExponentialRetryPolicy(
			cfg.HTTP.MaxRetries,
			time.Duration(cfg.HTTP.BackoffInitialMs)*time.Millisecond,
			time.Duration(cfg.HTTP.BackoffMaxMs)*time.Millisecond,
		),
		clock:   system.New(),
		ids:     uuid.NewGenerator(),
	}

	a.fetcher = collyfetcher.New(collyfetcher.Config{
		UserAgent:    cfg.HTTP.UserAgent,
		Timeout:      cfg.HTTPTimeout(),
		MaxPageBytes: cfg.HTTP.MaxPageBytes,
	})

	if cfg.Headless.Enabled {
		hl, err := headless.NewChromedp(headless.Config{
			MaxParallel:       cfg.Headless.MaxParallel,
			UserAgent:         cfg.HTTP.UserAgent,
			NavigationTimeout: time.Duration(cfg.Headless.NavTimeoutSec) * time.Second,
			DomainQPS:         cfg.Headless.DomainQPS,
			WaitSelector:      cfg.Headless.WaitSelector,
			WaitSelectorMax:   time.Duration(cfg.Headless.WaitSelectorMs) * time.Millisecond,
		}, logger.Named("headless"))
		if err != nil {
			return nil, fmt.Errorf("init headless fetcher: %w", err)
		}
		a.headless = hl
		a.detector = standings.NewGridDetector(
			cfg.Detector.MinHTMLBytes,
			cfg.Detector.SelectorMust,
			cfg.Detector.Keywords,
		)
		logger.Info("headless promotion enabled",
			zap.Int("max_parallel", cfg.Headless.MaxParallel),
		)
	}

	badges, err := render.NewBadgeCache(cfg.Render.AssetCacheDir, logger.Named("badges"))
	if err != nil {
		return nil, fmt.Errorf("init badge cache: %w", err)
	}
	renderer, err := render.New(render.Config{
		Width:     cfg.Render.Width,
		RowHeight: cfg.Render.RowHeight,
		MaxRows:   cfg.Render.MaxRows,
		Watermark: cfg.Render.Watermark,
	}, render.DefaultTheme(), badges, logger.Named("render"))
	if err != nil {
		return nil, fmt.Errorf("init renderer: %w", err)
	}
	a.renderer = renderer

	store, err := state.NewFileStore(cfg.State.Dir)
	if err != nil {
		return nil, fmt.Errorf("init state store: %w", err)
	}
	a.state = store

	if cfg.Archive.Enabled {
		arch, err := sqlite.Open(cfg.Archive.Path)
		if err != nil {
			return nil, fmt.Errorf("init snapshot archive: %w", err)
		}
		a.archive = arch
	} else {
		logger.Info("snapshot archive disabled")
	}

	logger.Info("application services initialized",
		zap.Int("leagues", len(cfg.Leagues)),
		zap.Bool("headless", cfg.Headless.Enabled),
		zap.Bool("archive", cfg.Archive.Enabled),
	)
	return a, nil
}

// Tracker assembles a pipeline tracker around this App's services. notifier
// may be nil for one-shot commands that never touch Discord.
func (a *App) Tracker(notifier standings.Notifier) *standings.Tracker {
	return standings.NewTracker(
		a.fetcher,
		a.headless,
		a.detector,
		a.parsers,
		a.hasher,
		a.renderer,
		notifier,
		a.state,
		a.archive,
		a.retry,
		a.clock,
		a.ids,
		a.logger.Named("tracker"),
	)
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config {
	return a.cfg
}

// Logger returns the shared zap logger instance.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Renderer exposes the leaderboard image renderer.
func (a *App) Renderer() standings.Renderer {
	return a.renderer
}

// State exposes the per-league record store.
func (a *App) State() standings.StateStore {
	return a.state
}

// Archive exposes the snapshot history store; nil when disabled.
func (a *App) Archive() standings.Archive {
	return a.archive
}

// Close gracefully shuts down all services in the container.
func (a *App) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if a.headless != nil {
		if err := a.headless.Close(ctx); err != nil {
			a.logger.Warn("close headless fetcher failed", zap.Error(err))
		}
	}
	if a.archive != nil {
		if err := a.archive.Close(); err != nil {
			a.logger.Warn("close snapshot archive failed", zap.Error(err))
		}
	}
	// Best effort; stdout sync errors are expected on some platforms.
	_ = a.logger.Sync()
}
