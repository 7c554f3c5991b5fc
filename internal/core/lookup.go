package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jmylchreest/themed/internal/model"
)

// LookupByID finds a transition by its ID or a unique, case-insensitive
// prefix of it. Returns nil if nothing matches.
func LookupByID(transitions []model.Transition, id string) (*model.Transition, error) {
	id = strings.ToUpper(strings.TrimSpace(id))
	if id == "" {
		return nil, nil
	}

	var found *model.Transition
	for i := range transitions {
		if transitions[i].ID == id {
			return &transitions[i], nil
		}
		if strings.HasPrefix(transitions[i].ID, id) {
			if found != nil {
				return nil, fmt.Errorf("ambiguous transition id prefix: %s", id)
			}
			found = &transitions[i]
		}
	}
	return found, nil
}

// LookupByIndex finds a transition by its index (1-based).
// Returns nil if index is out of bounds.
func LookupByIndex(transitions []model.Transition, index int) *model.Transition {
	idx := index - 1
	if idx < 0 || idx >= len(transitions) {
		return nil
	}
	return &transitions[idx]
}

// UniqueSources returns the sorted set of sources in transitions.
func UniqueSources(transitions []model.Transition) []string {
	seen := make(map[string]bool)
	var sources []string

	for _, t := range transitions {
		if t.Source != "" && !seen[t.Source] {
			seen[t.Source] = true
			sources = append(sources, t.Source)
		}
	}

	sort.Strings(sources)
	return sources
}
