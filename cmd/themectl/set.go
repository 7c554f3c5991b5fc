package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/themed/internal/adapter/output"
	"github.com/jmylchreest/themed/internal/model"
)

// sourceCLI is the transition source for changes made with themectl.
const sourceCLI = "cli"

var setOpts struct {
	quiet bool // Suppress output
}

var setCmd = &cobra.Command{
	Use:       "set <light|dark|system>",
	Short:     "Set the theme preference",
	Long:      `Store a new preference. "system" follows the desktop color scheme.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: preferenceNames(),
	RunE:      runSet,
}

var toggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Switch to the opposite of the current appearance",
	Long: `Switch to the explicit opposite of the effective appearance.

Toggling always stores "light" or "dark", so it stops following the
desktop even when the preference was "system".`,
	Args: cobra.NoArgs,
	RunE: runToggle,
}

func init() {
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(toggleCmd)

	for _, cmd := range []*cobra.Command{setCmd, toggleCmd} {
		cmd.Flags().BoolVarP(&setOpts.quiet, "quiet", "q", false,
			"Suppress output")
	}
}

func preferenceNames() []string {
	var names []string
	for _, p := range model.Preferences() {
		names = append(names, p.String())
	}
	return names
}

func runSet(cmd *cobra.Command, args []string) error {
	p, err := model.ParsePreference(args[0])
	if err != nil {
		return fmt.Errorf("%w (valid: %s)", err, strings.Join(preferenceNames(), ", "))
	}

	s, err := openSession(sourceCLI)
	if err != nil {
		return err
	}
	defer s.Close()

	s.resolver.SetPreference(p)
	return printChange(cmd, s)
}

func runToggle(cmd *cobra.Command, args []string) error {
	s, err := openSession(sourceCLI)
	if err != nil {
		return err
	}
	defer s.Close()

	s.resolver.Toggle()
	return printChange(cmd, s)
}

func printChange(cmd *cobra.Command, s *session) error {
	if setOpts.quiet {
		return nil
	}
	f := output.NewPlainFormatter(output.FormatterOptions{Color: isatty.IsTerminal(os.Stdout.Fd())})
	return f.FormatStatus(cmd.OutOrStdout(), s.status())
}
