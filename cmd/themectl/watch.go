package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/themed/internal/adapter/output"
	"github.com/jmylchreest/themed/internal/store"
	"github.com/jmylchreest/themed/internal/theme"
)

var watchOpts struct {
	format   string
	template string
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the status whenever the appearance changes",
	Long: `Print the current status, then a new line each time the preference or
the effective appearance changes, until interrupted.

Changes come from the desktop color scheme and from writes to the state
file by other processes (themectl set, the themed daemon). Useful as a
Waybar custom module without polling:

  "custom/theme": {
    "exec": "themectl watch --format waybar",
    "return-type": "json"
  }`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchOpts.format, "format", "plain",
		"Output format (plain, json, waybar, template)")
	watchCmd.Flags().StringVar(&watchOpts.template, "template", "",
		"Template for --format template (e.g. '{{.Appearance}}')")
}

func runWatch(cmd *cobra.Command, args []string) error {
	format := output.FormatType(watchOpts.format)
	if format == output.FormatYAML {
		return fmt.Errorf("%w: yaml is not line-oriented", output.ErrUnsupported)
	}
	formatter, err := output.NewFormatter(format, output.FormatterOptions{Template: watchOpts.template})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Watchers never record: the process that made the change already did.
	s, err := openSession("")
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	if err := formatter.FormatStatus(out, s.status()); err != nil {
		return err
	}

	changes := make(chan theme.Change, 8)
	unregister := s.resolver.OnChange(func(c theme.Change) {
		if !c.Changed {
			return
		}
		select {
		case changes <- c:
		default:
			logger.Warn("dropping change, output is not keeping up")
		}
	})
	defer unregister()

	watcher, err := store.NewFileWatcher(s.fileStore.Path(), s.resolver.Reload, logger)
	if err != nil {
		return fmt.Errorf("failed to watch state file: %w", err)
	}
	if err := watcher.Start(); err != nil {
		return fmt.Errorf("failed to watch state file: %w", err)
	}
	defer func() { _ = watcher.Stop() }()

	logger.Debug("watching", "state", s.fileStore.Path(), "source", s.notifier.Source())

	for {
		select {
		case <-ctx.Done():
			return nil
		case c := <-changes:
			logger.Debug("change", "preference", c.Preference, "appearance", c.Appearance,
				"trigger", c.Trigger)
			if err := formatter.FormatStatus(out, s.status()); err != nil {
				return err
			}
		}
	}
}
