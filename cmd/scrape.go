package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pitboard-bot/pitboard/internal/standings"
)

// newScrapeCmd creates the 'scrape' subcommand: a one-shot fetch and parse
// that prints the normalized table as JSON, without touching Discord or
// stored state.
func newScrapeCmd() *cobra.Command {
	var archiveSnapshot bool

	cmd := &cobra.Command{
		Use:   "scrape <league-slug>",
		Short: "Fetch and parse one league's standings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScrapeCommand(cmd, args[0], archiveSnapshot)
		},
	}
	cmd.Flags().BoolVar(&archiveSnapshot, "archive", false,
		"also record the snapshot in the history archive")
	return cmd
}

func runScrapeCommand(cmd *cobra.Command, slug string, archiveSnapshot bool) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	league, ok := appInstance.Config().LeagueBySlug(slug)
	if !ok {
		return fmt.Errorf("unknown league %q", slug)
	}

	tracker := appInstance.Tracker(nil)
	table, digest, err := tracker.Snapshot(cmd.Context(), league)
	if err != nil {
		return err
	}

	if archiveSnapshot {
		if err := tracker.ArchiveSnapshot(cmd.Context(), league, table, digest); err != nil {
			return err
		}
	}

	out := struct {
		Digest string          `json:"digest"`
		Table  standings.Table `json:"table"`
	}{Digest: digest, Table: table}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode table: %w", err)
	}
	return nil
}
