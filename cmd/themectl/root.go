// Package main provides the CLI entrypoint for themectl.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/themed/internal/config"
	"github.com/jmylchreest/themed/internal/model"
	"github.com/jmylchreest/themed/internal/store"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// Global configuration and state
var (
	cfg        *config.Config
	globalOpts struct {
		verbose    bool
		configPath string
		stateFile  string
		appearance string
	}
	logger *slog.Logger

	// forcedAppearance is the parsed --appearance flag ("" when unset).
	forcedAppearance model.Appearance
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "themectl",
	Short: "Light/dark theme preference control",
	Long: `themectl reads and changes the light/dark/system theme preference.

The preference is stored in the themed state file. When it is "system",
the effective appearance follows the desktop color scheme (XDG Desktop
Portal, GTK_THEME, or gsettings). A running themed daemon picks up
changes made here automatically.

Running themectl without a subcommand prints the current status.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger()

		var err error
		cfg, err = config.LoadConfig(globalOpts.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if globalOpts.appearance != "" {
			forcedAppearance, err = model.ParseAppearance(globalOpts.appearance)
			if err != nil {
				return fmt.Errorf("--appearance: %w", err)
			}
		}

		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGet(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/themed/config.toml)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.stateFile, "state-file", "",
		"Path to state file (default: ~/.local/state/themed/state.json)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.appearance, "appearance", "",
		"Force the OS appearance (light or dark), skipping detection")

	rootCmd.Flags().StringVar(&getOpts.format, "format", "plain",
		"Output format (plain, json, yaml, waybar, template)")
	rootCmd.Flags().StringVar(&getOpts.template, "template", "",
		"Template for --format template (e.g. '{{.Appearance}}')")
}

// setupLogger configures the global slog logger.
func setupLogger() {
	level := slog.LevelWarn
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(os.Stderr, opts)
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// statePath returns the state file from the flag, config, or default.
func statePath() (string, error) {
	if globalOpts.stateFile != "" {
		return globalOpts.stateFile, nil
	}
	if p := cfg.StateFilePath(); p != "" {
		return p, nil
	}
	return store.StateFilePath()
}
