package main

import (
	"github.com/spf13/cobra"

	"github.com/jmylchreest/themed/internal/adapter/output"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Output Waybar-compatible JSON status",
	Long: `Output the theme status in Waybar's custom module JSON format.

This is designed to be used with Waybar's custom module:

  "custom/theme": {
    "exec": "themectl status",
    "interval": 5,
    "return-type": "json",
    "on-click": "themectl toggle -q"
  }

The output includes:
  - text: effective appearance (light, dark)
  - alt: preference (light, dark, system)
  - tooltip: preference, appearance, detector and last change
  - class: effective appearance, for CSS`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	s, err := openSession("")
	if err != nil {
		return outputError(cmd, err)
	}
	defer s.Close()

	return output.NewWaybarFormatter().FormatStatus(cmd.OutOrStdout(), s.status())
}

// outputError keeps Waybar rendering when the state cannot be read.
func outputError(cmd *cobra.Command, err error) error {
	ws := output.WaybarStatus{Text: "?", Alt: "error", Tooltip: err.Error(), Class: "error"}
	return writeJSONLine(cmd, ws)
}
