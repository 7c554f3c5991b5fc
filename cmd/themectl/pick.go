package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/themed/internal/store"
	"github.com/jmylchreest/themed/internal/tui"
)

// sourceTUI is the transition source for changes made in the picker.
const sourceTUI = "tui"

var pickCmd = &cobra.Command{
	Use:     "pick",
	Aliases: []string{"tui"},
	Short:   "Choose the preference interactively",
	Long: `Open an interactive picker for the theme preference.

The picker shows the stored preference and the effective appearance and
updates live when the desktop color scheme or the state file changes.

Keys:
  up/k, down/j   move
  enter/space    apply the highlighted preference
  t              toggle light/dark
  ?              help
  q/esc          quit`,
	Args: cobra.NoArgs,
	RunE: runPick,
}

func init() {
	rootCmd.AddCommand(pickCmd)
}

func runPick(cmd *cobra.Command, args []string) error {
	s, err := openSession(sourceTUI)
	if err != nil {
		return err
	}
	defer s.Close()

	watcher, err := store.NewFileWatcher(s.fileStore.Path(), s.resolver.Reload, logger)
	if err != nil {
		return fmt.Errorf("failed to watch state file: %w", err)
	}
	if err := watcher.Start(); err != nil {
		logger.Warn("state file changes will not be shown", "error", err)
	} else {
		defer func() { _ = watcher.Stop() }()
	}

	return tui.Run(s.resolver, s.resolver.OnChange)
}
