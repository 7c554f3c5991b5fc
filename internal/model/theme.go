// Package model defines the core data structures for themed.
package model

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Preference is the user's stored theme intent.
type Preference string

const (
	PreferenceLight  Preference = "light"
	PreferenceDark   Preference = "dark"
	PreferenceSystem Preference = "system"
)

// DefaultPreference is used when nothing valid has been stored.
const DefaultPreference = PreferenceSystem

// Appearance is the resolved light/dark appearance actually applied.
type Appearance string

const (
	AppearanceLight Appearance = "light"
	AppearanceDark  Appearance = "dark"
)

// Validation errors.
var (
	ErrInvalidPreference = errors.New("preference must be light, dark, or system")
	ErrInvalidAppearance = errors.New("appearance must be light or dark")
)

// Preferences returns all valid preference values.
func Preferences() []Preference {
	return []Preference{PreferenceLight, PreferenceDark, PreferenceSystem}
}

// ParsePreference parses a user-supplied preference.
// Matching is case-insensitive and ignores surrounding whitespace.
func ParsePreference(s string) (Preference, error) {
	return ParseStoredPreference(strings.ToLower(strings.TrimSpace(s)))
}

// ParseStoredPreference parses a persisted preference. Only the exact
// values that are written back are accepted.
func ParseStoredPreference(s string) (Preference, error) {
	p := Preference(s)
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPreference, s)
	}
	return p, nil
}

// Valid reports whether p is one of the known preferences.
func (p Preference) Valid() bool {
	switch p {
	case PreferenceLight, PreferenceDark, PreferenceSystem:
		return true
	default:
		return false
	}
}

// Explicit reports whether p pins the appearance regardless of the OS.
func (p Preference) Explicit() bool {
	return p == PreferenceLight || p == PreferenceDark
}

// Appearance returns the appearance an explicit preference pins.
// The second result is false for System.
func (p Preference) Appearance() (Appearance, bool) {
	switch p {
	case PreferenceLight:
		return AppearanceLight, true
	case PreferenceDark:
		return AppearanceDark, true
	default:
		return "", false
	}
}

func (p Preference) String() string {
	return string(p)
}

// ParseAppearance parses "light" or "dark".
func ParseAppearance(s string) (Appearance, error) {
	a := Appearance(strings.ToLower(strings.TrimSpace(s)))
	if !a.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidAppearance, s)
	}
	return a, nil
}

// Valid reports whether a is light or dark.
func (a Appearance) Valid() bool {
	return a == AppearanceLight || a == AppearanceDark
}

// Opposite returns the other appearance.
func (a Appearance) Opposite() Appearance {
	if a == AppearanceLight {
		return AppearanceDark
	}
	return AppearanceLight
}

// Preference returns the explicit preference that pins a.
func (a Appearance) Preference() Preference {
	if a == AppearanceDark {
		return PreferenceDark
	}
	return PreferenceLight
}

func (a Appearance) String() string {
	return string(a)
}

// Mode is the resolver state derived from the preference.
type Mode string

const (
	// ModeExplicit means the preference is light or dark and the OS signal is ignored.
	ModeExplicit Mode = "explicit"
	// ModeTracking means the preference is system and the OS signal drives the appearance.
	ModeTracking Mode = "tracking"
)

// ModeOf returns the mode for a preference.
func ModeOf(p Preference) Mode {
	if p == PreferenceSystem {
		return ModeTracking
	}
	return ModeExplicit
}

// Trigger represents what caused an appearance to be applied.
type Trigger string

const (
	// TriggerInit is the first apply of a session.
	TriggerInit Trigger = "init"
	// TriggerUser is an explicit preference change (CLI, TUI, D-Bus).
	TriggerUser Trigger = "user"
	// TriggerSystem is an OS color-scheme change while tracking.
	TriggerSystem Trigger = "system"
	// TriggerExternal is a preference written by another process.
	TriggerExternal Trigger = "external"
)

// Transition records one applied preference or appearance change.
type Transition struct {
	ID         string     `json:"id" yaml:"id"`
	From       Preference `json:"from,omitempty" yaml:"from,omitempty"`
	To         Preference `json:"to" yaml:"to"`
	Appearance Appearance `json:"appearance" yaml:"appearance"`
	Trigger    Trigger    `json:"trigger" yaml:"trigger"`
	Source     string     `json:"source,omitempty" yaml:"source,omitempty"`
	Timestamp  int64      `json:"timestamp" yaml:"timestamp"`
}

// NewTransition creates a Transition with a generated ULID and the current time.
func NewTransition(from, to Preference, appearance Appearance, trigger Trigger, source string) (*Transition, error) {
	now := time.Now()
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ULID: %w", err)
	}

	return &Transition{
		ID:         id.String(),
		From:       from,
		To:         to,
		Appearance: appearance,
		Trigger:    trigger,
		Source:     source,
		Timestamp:  now.Unix(),
	}, nil
}

// Time returns the transition timestamp as a time.Time.
func (t *Transition) Time() time.Time {
	return time.Unix(t.Timestamp, 0)
}

// PreferenceChanged reports whether the transition moved between preferences.
func (t *Transition) PreferenceChanged() bool {
	return t.From != t.To
}
