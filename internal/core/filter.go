// Package core provides filtering, sorting, and lookup over transition history.
package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jmylchreest/themed/internal/model"
)

// FilterOp represents a comparison operator.
type FilterOp string

const (
	FilterOpEqual     FilterOp = "="  // Exact match
	FilterOpNotEqual  FilterOp = "!=" // Not equal
	FilterOpContains  FilterOp = "~"  // Contains substring
	FilterOpRegex     FilterOp = "~=" // Regex match
	FilterOpGreater   FilterOp = ">"  // Newer than
	FilterOpLess      FilterOp = "<"  // Older than
	FilterOpGreaterEq FilterOp = ">=" // Newer than or at
	FilterOpLessEq    FilterOp = "<=" // Older than or at
)

// FilterCondition represents a single filter condition.
type FilterCondition struct {
	Field    string   // from, to, appearance, trigger, source, timestamp
	Operator FilterOp // Comparison operator
	Value    string   // Value to compare against

	regex  *regexp.Regexp // Compiled regex for ~=
	cutoff time.Time      // Parsed timestamp for comparison
}

// FilterExpr is a compound filter expression. Conditions are ANDed.
type FilterExpr struct {
	Conditions []FilterCondition
}

// FilterOptions specifies criteria for filtering transitions.
type FilterOptions struct {
	Since      time.Duration    // Only transitions newer than now-since (0=all)
	Trigger    model.Trigger    // Exact trigger ("" = any)
	Source     string           // Exact source ("" = any)
	Appearance model.Appearance // Resulting appearance ("" = any)
	Limit      int              // Maximum results (0=unlimited)
}

// Filter filters transitions based on the provided options.
func Filter(transitions []model.Transition, opts FilterOptions) []model.Transition {
	cutoff := time.Now().Add(-opts.Since)
	result := make([]model.Transition, 0, len(transitions))

	for _, t := range transitions {
		if opts.Since > 0 && t.Time().Before(cutoff) {
			continue
		}
		if opts.Trigger != "" && t.Trigger != opts.Trigger {
			continue
		}
		if opts.Source != "" && t.Source != opts.Source {
			continue
		}
		if opts.Appearance != "" && t.Appearance != opts.Appearance {
			continue
		}
		result = append(result, t)
	}

	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result
}

// ParseDuration parses a duration string with extended formats.
// Supports: 48h, 7d, 1w, 0 (all time)
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "0" || s == "" {
		return 0, nil
	}

	if daysStr, found := strings.CutSuffix(s, "d"); found {
		days, err := strconv.Atoi(daysStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}

	if weeksStr, found := strings.CutSuffix(s, "w"); found {
		weeks, err := strconv.Atoi(weeksStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(weeks) * 7 * 24 * time.Hour, nil
	}

	return time.ParseDuration(s)
}

// ParseTrigger parses a trigger name.
func ParseTrigger(s string) (model.Trigger, error) {
	switch t := model.Trigger(strings.ToLower(strings.TrimSpace(s))); t {
	case model.TriggerInit, model.TriggerUser, model.TriggerSystem, model.TriggerExternal:
		return t, nil
	default:
		return "", fmt.Errorf("invalid trigger: %s (use init, user, system, or external)", s)
	}
}

// ParseFilter parses a filter expression string into a FilterExpr.
// Format: "field=value,field2~value2,field3>value3"
//
// Supported fields: from, to, appearance, trigger, source, timestamp
// Supported operators: = (equal), != (not equal), ~ (contains), ~= (regex), >, <, >=, <=
//
// Examples:
//   - "to=system" - switched to following the desktop
//   - "trigger=system,appearance=dark" - the desktop went dark
//   - "source~=^(cli|tui)$" - changes made from a terminal
//   - "timestamp>1d" - changes in the last day
func ParseFilter(expr string) (*FilterExpr, error) {
	filter := &FilterExpr{}
	if expr == "" {
		return filter, nil
	}

	for part := range strings.SplitSeq(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		cond, err := parseCondition(part)
		if err != nil {
			return nil, err
		}
		filter.Conditions = append(filter.Conditions, cond)
	}

	return filter, nil
}

// parseCondition parses a single condition like "to=dark" or "source~cli".
func parseCondition(s string) (FilterCondition, error) {
	// Longest operators first.
	operators := []FilterOp{
		FilterOpNotEqual,
		FilterOpGreaterEq,
		FilterOpLessEq,
		FilterOpRegex,
		FilterOpEqual,
		FilterOpContains,
		FilterOpGreater,
		FilterOpLess,
	}

	for _, op := range operators {
		idx := strings.Index(s, string(op))
		if idx > 0 {
			cond := FilterCondition{
				Field:    strings.ToLower(strings.TrimSpace(s[:idx])),
				Operator: op,
				Value:    strings.TrimSpace(s[idx+len(op):]),
			}
			if err := cond.init(); err != nil {
				return FilterCondition{}, err
			}
			return cond, nil
		}
	}

	return FilterCondition{}, fmt.Errorf("invalid filter condition: %s (missing operator)", s)
}

// init pre-parses and validates the condition value.
func (c *FilterCondition) init() error {
	switch c.Field {
	case "from", "previous":
		c.Field = "from"
	case "to", "preference", "pref":
		c.Field = "to"
	case "appearance", "app":
		c.Field = "appearance"
	case "trigger":
	case "source", "src":
		c.Field = "source"
	case "timestamp", "time", "ts":
		c.Field = "timestamp"
		dur, err := ParseDuration(c.Value)
		if err != nil {
			return fmt.Errorf("invalid timestamp value: %w", err)
		}
		c.cutoff = time.Now().Add(-dur)
	default:
		return fmt.Errorf("unknown filter field: %s", c.Field)
	}

	if c.Field != "timestamp" {
		switch c.Operator {
		case FilterOpGreater, FilterOpLess, FilterOpGreaterEq, FilterOpLessEq:
			return fmt.Errorf("operator %s only applies to timestamp", c.Operator)
		}
	}

	if c.Operator == FilterOpRegex {
		re, err := regexp.Compile(c.Value)
		if err != nil {
			return fmt.Errorf("invalid regex: %w", err)
		}
		c.regex = re
	}

	return nil
}

// Match tests if a transition matches every condition.
func (f *FilterExpr) Match(t model.Transition) bool {
	for _, cond := range f.Conditions {
		if !cond.Match(t) {
			return false
		}
	}
	return true
}

// Match tests if a transition matches this single condition.
func (c *FilterCondition) Match(t model.Transition) bool {
	switch c.Field {
	case "from":
		return c.matchString(t.From.String())
	case "to":
		return c.matchString(t.To.String())
	case "appearance":
		return c.matchString(t.Appearance.String())
	case "trigger":
		return c.matchString(string(t.Trigger))
	case "source":
		return c.matchString(t.Source)
	case "timestamp":
		return c.matchTimestamp(t.Time())
	default:
		return false
	}
}

func (c *FilterCondition) matchString(fieldValue string) bool {
	switch c.Operator {
	case FilterOpEqual:
		return strings.EqualFold(fieldValue, c.Value)
	case FilterOpNotEqual:
		return !strings.EqualFold(fieldValue, c.Value)
	case FilterOpContains:
		return strings.Contains(strings.ToLower(fieldValue), strings.ToLower(c.Value))
	case FilterOpRegex:
		return c.regex != nil && c.regex.MatchString(fieldValue)
	default:
		return false
	}
}

func (c *FilterCondition) matchTimestamp(fieldValue time.Time) bool {
	switch c.Operator {
	case FilterOpGreater:
		return fieldValue.After(c.cutoff)
	case FilterOpLess:
		return fieldValue.Before(c.cutoff)
	case FilterOpGreaterEq:
		return !fieldValue.Before(c.cutoff)
	case FilterOpLessEq:
		return !fieldValue.After(c.cutoff)
	default:
		return false
	}
}

// FilterWithExpr filters transitions using a filter expression.
func FilterWithExpr(transitions []model.Transition, expr *FilterExpr) []model.Transition {
	if expr == nil || len(expr.Conditions) == 0 {
		return transitions
	}

	result := make([]model.Transition, 0, len(transitions))
	for _, t := range transitions {
		if expr.Match(t) {
			result = append(result, t)
		}
	}
	return result
}
