package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jmylchreest/themed/internal/model"
)

// SortField represents a field to sort by.
type SortField string

const (
	SortByTimestamp SortField = "timestamp"
	SortBySource    SortField = "source"
	SortByTrigger   SortField = "trigger"
)

// SortOrder represents ascending or descending order.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// SortOptions specifies sorting criteria.
type SortOptions struct {
	Field SortField
	Order SortOrder
}

// DefaultSortOptions returns default sort options (newest first).
func DefaultSortOptions() SortOptions {
	return SortOptions{
		Field: SortByTimestamp,
		Order: SortDesc,
	}
}

// Sort sorts transitions in place. Ties keep their recorded order.
func Sort(transitions []model.Transition, opts SortOptions) {
	if len(transitions) == 0 {
		return
	}

	sort.SliceStable(transitions, func(i, j int) bool {
		a, b := &transitions[i], &transitions[j]
		if ka, kb := sortKey(a, opts.Field), sortKey(b, opts.Field); ka != kb {
			if opts.Order == SortDesc {
				return ka > kb
			}
			return ka < kb
		}
		// ULIDs order by creation time.
		if opts.Order == SortDesc {
			return a.ID > b.ID
		}
		return a.ID < b.ID
	})
}

// sortKey returns the primary key for field. Timestamp ordering uses the ID.
func sortKey(t *model.Transition, field SortField) string {
	switch field {
	case SortBySource:
		return strings.ToLower(t.Source)
	case SortByTrigger:
		return string(t.Trigger)
	default:
		return ""
	}
}

// ParseSortField parses a sort field string.
func ParseSortField(s string) (SortField, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "timestamp", "time", "t", "":
		return SortByTimestamp, nil
	case "source", "src", "s":
		return SortBySource, nil
	case "trigger", "tr":
		return SortByTrigger, nil
	default:
		return "", fmt.Errorf("invalid sort field: %s (use timestamp, source, or trigger)", s)
	}
}

// ParseSortOrder parses a sort order string.
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "ascending", "a":
		return SortAsc, nil
	case "desc", "descending", "d", "":
		return SortDesc, nil
	default:
		return "", fmt.Errorf("invalid sort order: %s (use asc or desc)", s)
	}
}
