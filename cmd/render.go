package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newRenderCmd creates the 'render' subcommand: scrape one league and write
// the leaderboard PNG to the render output directory.
func newRenderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "render <league-slug>",
		Short: "Render one league's leaderboard to a PNG file",
		Args:  cobra.ExactArgs(1),
		RunE:  runRenderCommand,
	}
}

func runRenderCommand(cmd *cobra.Command, args []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cfg := appInstance.Config()
	league, ok := cfg.LeagueBySlug(args[0])
	if !ok {
		return fmt.Errorf("unknown league %q", args[0])
	}

	tracker := appInstance.Tracker(nil)
	table, digest, err := tracker.Snapshot(cmd.Context(), league)
	if err != nil {
		return err
	}
	table.Tints = league.Tints

	png, err := appInstance.Renderer().Render(cmd.Context(), table)
	if err != nil {
		return fmt.Errorf("render %s: %w", league.Slug, err)
	}

	if err := os.MkdirAll(cfg.Render.OutputDir, 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(cfg.Render.OutputDir, fmt.Sprintf("%s-standings.png", league.Slug))
	if err := os.WriteFile(path, png, 0o640); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	appInstance.Logger().Info("board rendered",
		zap.String("league", league.Slug),
		zap.String("digest", digest),
		zap.String("path", path),
		zap.Int("rows", len(table.Rows)),
	)
	fmt.Println(path)
	return nil
}
