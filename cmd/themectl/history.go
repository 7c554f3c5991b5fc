package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/themed/internal/adapter/output"
	"github.com/jmylchreest/themed/internal/core"
	"github.com/jmylchreest/themed/internal/model"
	"github.com/jmylchreest/themed/internal/store"
)

var historyOpts struct {
	limit    int
	since    string
	trigger  string
	source   string
	filter   string
	sortBy   string
	order    string
	id       string
	format   string
	template string
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent preference and appearance changes",
	Long: `List recorded transitions, newest first.

Each entry shows when the change happened, the resulting appearance, the
preference before and after, what triggered it (user, system) and where it
came from (cli, dbus, tui, themed).

Filter expressions (--filter) are comma-separated conditions, all of which
must match:
  to=system                         switched to following the desktop
  trigger=system,appearance=dark    the desktop went dark
  source~=^(cli|tui)$               changes made from a terminal
  timestamp>1d                      changes in the last day`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyOpts.limit, "limit", "n", 20,
		"Maximum entries to show (0 = all)")
	historyCmd.Flags().StringVar(&historyOpts.since, "since", "0",
		"Only show changes newer than this (e.g. 1h, 7d, 0=all)")
	historyCmd.Flags().StringVar(&historyOpts.trigger, "trigger", "",
		"Only show changes with this trigger (user, system)")
	historyCmd.Flags().StringVar(&historyOpts.source, "source", "",
		"Only show changes from this source (cli, tui, dbus, themed)")
	historyCmd.Flags().StringVar(&historyOpts.filter, "filter", "",
		"Filter expression (e.g. 'to=dark,source=cli')")
	historyCmd.Flags().StringVar(&historyOpts.sortBy, "sort", "timestamp",
		"Sort field (timestamp, source, trigger)")
	historyCmd.Flags().StringVar(&historyOpts.order, "order", "desc",
		"Sort order (asc, desc)")
	historyCmd.Flags().StringVar(&historyOpts.id, "id", "",
		"Show only the transition with this ID or ID prefix")
	historyCmd.Flags().StringVar(&historyOpts.format, "format", "plain",
		"Output format (plain, json, yaml, template)")
	historyCmd.Flags().StringVar(&historyOpts.template, "template", "",
		"Template for --format template, executed per transition")
}

func runHistory(cmd *cobra.Command, args []string) error {
	formatter, err := output.NewFormatter(output.FormatType(historyOpts.format), output.FormatterOptions{
		Template: historyOpts.template,
		Color:    isatty.IsTerminal(os.Stdout.Fd()),
	})
	if err != nil {
		return err
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

	transitions, err := history.Load()
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	if historyOpts.id != "" {
		t, err := core.LookupByID(transitions, historyOpts.id)
		if err != nil {
			return err
		}
		if t == nil {
			return fmt.Errorf("transition not found: %s", historyOpts.id)
		}
		return formatter.FormatHistory(cmd.OutOrStdout(), []model.Transition{*t})
	}

	transitions, err = queryHistory(transitions)
	if err != nil {
		return err
	}

	return formatter.FormatHistory(cmd.OutOrStdout(), transitions)
}

// queryHistory applies the filter, sort and limit flags.
func queryHistory(transitions []model.Transition) ([]model.Transition, error) {
	since, err := core.ParseDuration(historyOpts.since)
	if err != nil {
		return nil, fmt.Errorf("--since: %w", err)
	}
	opts := core.FilterOptions{Since: since, Source: historyOpts.source}
	if historyOpts.trigger != "" {
		if opts.Trigger, err = core.ParseTrigger(historyOpts.trigger); err != nil {
			return nil, err
		}
	}

	expr, err := core.ParseFilter(historyOpts.filter)
	if err != nil {
		return nil, fmt.Errorf("--filter: %w", err)
	}

	field, err := core.ParseSortField(historyOpts.sortBy)
	if err != nil {
		return nil, err
	}
	order, err := core.ParseSortOrder(historyOpts.order)
	if err != nil {
		return nil, err
	}

	transitions = core.FilterWithExpr(core.Filter(transitions, opts), expr)
	core.Sort(transitions, core.SortOptions{Field: field, Order: order})

	if historyOpts.limit > 0 && len(transitions) > historyOpts.limit {
		transitions = transitions[:historyOpts.limit]
	}
	return transitions, nil
}

// writeJSONLine writes v as compact JSON followed by a newline.
func writeJSONLine(cmd *cobra.Command, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
