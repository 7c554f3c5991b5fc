package main

import (
	"errors"
	"fmt"

	"github.com/jmylchreest/themed/internal/adapter/output"
	"github.com/jmylchreest/themed/internal/daemon"
	"github.com/jmylchreest/themed/internal/model"
	"github.com/jmylchreest/themed/internal/store"
	"github.com/jmylchreest/themed/internal/theme"
)

// sourcePreference names the appearance source when the preference pins it.
const sourcePreference = "preference"

// session is a resolver over the shared state file for one command.
type session struct {
	fileStore *store.FileStore
	history   *store.History
	notifier  daemon.OSNotifier
	resolver  *theme.Resolver
}

// openSession builds and initializes a resolver. When userSource is not
// empty, user changes are recorded in the history under that source.
func openSession(userSource string) (*session, error) {
	path, err := statePath()
	if err != nil {
		return nil, fmt.Errorf("failed to get state path: %w", err)
	}

	s := &session{fileStore: store.NewFileStore(path)}
	s.notifier = daemon.NewNotifier(cfg, forcedAppearance, logger)
	s.resolver = theme.NewResolver(s.fileStore, s.notifier, logger)

	if userSource != "" {
		history, err := store.OpenHistory(store.HistoryPathFor(path))
		if err != nil {
			_ = s.notifier.Close()
			return nil, fmt.Errorf("failed to open history: %w", err)
		}
		s.history = history
		daemon.Register(s.resolver,
			daemon.NewRecorder(history, s.fileStore, userSource, cfg.Store.HistoryKeep, logger))
	}

	s.resolver.Initialize()
	return s, nil
}

// Close tears down the resolver and releases resources.
func (s *session) Close() error {
	s.resolver.Teardown()
	var errs []error
	if err := s.notifier.Close(); err != nil {
		errs = append(errs, err)
	}
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// status snapshots the resolver for output.
func (s *session) status() *output.Status {
	st := &output.Status{
		Preference: s.resolver.Preference(),
		Appearance: s.resolver.Effective(),
		Mode:       s.resolver.Mode(),
		Source:     sourcePreference,
	}
	if st.Mode == model.ModeTracking {
		st.Source = s.notifier.Source()
	}

	state, err := s.fileStore.Load()
	if err != nil {
		logger.Debug("failed to load state for last change", "error", err)
	} else {
		st.LastChange = state.LastTransition
	}
	return st
}
