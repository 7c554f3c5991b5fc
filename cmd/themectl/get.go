package main

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/themed/internal/adapter/output"
)

var getOpts struct {
	format   string
	template string
}

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the theme preference and effective appearance",
	Long: `Show the stored preference, the effective appearance, whether the
appearance follows the desktop, which detector answered, and the last change.

Formats:
  plain     human-readable (default)
  json      JSON object
  yaml      YAML document
  waybar    Waybar custom module JSON
  template  Go text/template over the status, e.g.
            --template '{{pick .Appearance "light-theme" "dark-theme"}}'`,
	Args: cobra.NoArgs,
	RunE: runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)

	getCmd.Flags().StringVar(&getOpts.format, "format", "plain",
		"Output format (plain, json, yaml, waybar, template)")
	getCmd.Flags().StringVar(&getOpts.template, "template", "",
		"Template for --format template (e.g. '{{.Appearance}}')")
}

func runGet(cmd *cobra.Command, args []string) error {
	formatter, err := output.NewFormatter(output.FormatType(getOpts.format), output.FormatterOptions{
		Template: getOpts.template,
		Color:    isatty.IsTerminal(os.Stdout.Fd()),
	})
	if err != nil {
		return err
	}

	s, err := openSession("")
	if err != nil {
		return err
	}
	defer s.Close()

	return formatter.FormatStatus(cmd.OutOrStdout(), s.status())
}
