package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pitboard-bot/pitboard/internal/notify/discord"
	"github.com/pitboard-bot/pitboard/internal/ops"
	"github.com/pitboard-bot/pitboard/internal/scheduler"
	"github.com/pitboard-bot/pitboard/internal/standings"
)

// newServeCmd creates the 'serve' subcommand: the long-running bot with cron
// schedules, Discord gateway and the ops HTTP server.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the standings bot",
		Long: `Connects to Discord, registers slash commands, schedules per-league
page checks and serves health and metrics endpoints until interrupted.`,
		RunE: runServeCommand,
	}
}

func runServeCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cfg := appInstance.Config()
	logger := appInstance.Logger()

	bot, err := discord.New(discord.Config{
		Token:    cfg.Discord.Token,
		AppID:    cfg.Discord.AppID,
		GuildID:  cfg.Discord.GuildID,
		Cooldown: cfg.Cooldown(),
	}, cfg.Leagues, appInstance.Archive(), logger.Named("discord"))
	if err != nil {
		return fmt.Errorf("init discord bot: %w", err)
	}

	tracker := appInstance.Tracker(bot.Notifier())
	bot.SetRunner(func(ctx context.Context, league standings.League, force bool) (standings.RunResult, error) {
		if force {
			return tracker.ForceRun(ctx, league)
		}
		return tracker.Run(ctx, league)
	})
	bot.SetClearer(tracker.Clear)

	if err := bot.Open(cmd.Context()); err != nil {
		return err
	}
	defer func() {
		if cerr := bot.Close(); cerr != nil {
			logger.Warn("close discord bot failed", zap.Error(cerr))
		}
	}()

	sched := scheduler.New(logger)
	for _, league := range cfg.Leagues {
		if league.Schedule == "" {
			logger.Warn("league has no schedule, manual refresh only",
				zap.String("league", league.Slug),
			)
			continue
		}
		league := league
		err := sched.Cron(league.Schedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			if _, err := tracker.Run(ctx, league); err != nil && !errors.Is(err, standings.ErrRunInProgress) {
				logger.Error("scheduled run failed",
					zap.String("league", league.Slug),
					zap.Error(err),
				)
			}
		})
		if err != nil {
			return fmt.Errorf("schedule league %s: %w", league.Slug, err)
		}
	}
	sched.Start()

	opsServer := ops.NewServer(cfg, appInstance.State(), bot.Ready, logger.Named("ops"))
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Ops.Port),
		Handler:           opsServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	httpErr := make(chan error, 1)
	go func() {
		logger.Info("ops server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-httpErr:
		logger.Error("ops server failed", zap.Error(err))
	case <-cmd.Context().Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	sched.Stop(shutdownCtx)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("ops server shutdown failed", zap.Error(err))
	}
	return nil
}
