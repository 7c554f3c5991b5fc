// Package main is the entry point for the themed theme daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmylchreest/themed/internal/config"
	"github.com/jmylchreest/themed/internal/daemon"
	"github.com/jmylchreest/themed/internal/model"
)

var (
	// Build-time variables
	version = "dev"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: ~/.config/themed/config.toml)")
	stateFile := flag.String("state-file", "", "Path to state file (default: ~/.local/state/themed/state.json)")
	ephemeral := flag.Bool("ephemeral", false, "Keep the preference in memory only")
	forced := flag.String("appearance", "", "Force the OS appearance (light or dark), skipping detection")
	debug := flag.Bool("debug", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("themed version", version)
		os.Exit(0)
	}

	path := *configPath
	if path == "" {
		path = config.ConfigPath()
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "themed: failed to load config:", err)
		os.Exit(1)
	}

	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "themed:", err)
		os.Exit(1)
	}
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	var appearance model.Appearance
	if *forced != "" {
		appearance, err = model.ParseAppearance(*forced)
		if err != nil {
			logger.Error("invalid -appearance", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("starting themed", "version", version, "config", path)

	d, err := daemon.New(daemon.Options{
		Config:     cfg,
		ConfigPath: path,
		StatePath:  *stateFile,
		Ephemeral:  *ephemeral,
		Appearance: appearance,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("failed to create daemon", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := d.Run(ctx); err != nil {
		logger.Error("daemon exited with error", "error", err)
		os.Exit(1)
	}
}
