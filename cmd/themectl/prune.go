package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/themed/internal/core"
	"github.com/jmylchreest/themed/internal/store"
)

var pruneOpts struct {
	olderThan string
	keep      int
	dryRun    bool
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove old transitions from history",
	Long: `Remove old transitions from the history log.

The daemon already caps the log at [store] history_keep entries; prune is
for trimming further by hand.

Examples:
  # Remove changes older than 30 days
  themectl prune --older-than 30d

  # Keep only the 50 most recent changes
  themectl prune --keep 50

  # Preview what would be removed
  themectl prune --older-than 7d --dry-run`,
	Args: cobra.NoArgs,
	RunE: runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)

	pruneCmd.Flags().StringVar(&pruneOpts.olderThan, "older-than", "",
		"Remove transitions older than this duration (e.g., 48h, 7d, 1w)")
	pruneCmd.Flags().IntVar(&pruneOpts.keep, "keep", 0,
		"Keep only the N most recent transitions (0=unlimited)")
	pruneCmd.Flags().BoolVar(&pruneOpts.dryRun, "dry-run", false,
		"Show what would be removed without actually removing")
}

func runPrune(cmd *cobra.Command, args []string) error {
	if pruneOpts.olderThan == "" && pruneOpts.keep <= 0 {
		return fmt.Errorf("specify --older-than or --keep")
	}

	var cutoff time.Time
	if pruneOpts.olderThan != "" {
		d, err := core.ParseDuration(pruneOpts.olderThan)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		if d > 0 {
			cutoff = time.Now().Add(-d)
		}
	}

	path, err := statePath()
	if err != nil {
		return fmt.Errorf("failed to get state path: %w", err)
	}
	history, err := store.OpenHistory(store.HistoryPathFor(path))
	if err != nil {
		return err
	}
	defer history.Close()

	out := cmd.OutOrStdout()

	if pruneOpts.dryRun {
		transitions, err := history.Load()
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}
		// Oldest first, as recorded.
		count := 0
		for i, t := range transitions {
			tooOld := !cutoff.IsZero() && t.Time().Before(cutoff)
			beyondKeep := pruneOpts.keep > 0 && i < len(transitions)-pruneOpts.keep
			if tooOld || beyondKeep {
				count++
			}
		}
		fmt.Fprintf(out, "Would remove %d of %d transition(s)\n", count, len(transitions))
		return nil
	}

	removed := 0
	if !cutoff.IsZero() {
		n, err := history.PruneBefore(cutoff)
		if err != nil {
			return fmt.Errorf("failed to prune history: %w", err)
		}
		removed += n
	}
	if pruneOpts.keep > 0 {
		n, err := history.Prune(pruneOpts.keep)
		if err != nil {
			return fmt.Errorf("failed to prune history: %w", err)
		}
		removed += n
	}

	fmt.Fprintf(out, "Removed %d transition(s)\n", removed)
	return nil
}
