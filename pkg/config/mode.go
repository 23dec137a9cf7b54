package config

import (
	"fmt"
	"strings"
)

// Mode selects which diagram source the service is asked for and which
// render path the dispatcher takes.
type Mode string

const (
	// ModeLocalSource asks for Graphviz DOT and renders it with the local engine.
	ModeLocalSource Mode = "local-source"

	// ModeDirectMarkup asks for SVG and embeds it without running the engine.
	ModeDirectMarkup Mode = "direct-markup"
)

// DefaultMode replaces missing or unrecognised stored modes.
const DefaultMode = ModeLocalSource

// Target formats requested from the generative service.
const (
	TargetDOT = "dot"
	TargetSVG = "svg"
)

// Modes lists every valid mode in display order.
var Modes = []Mode{ModeLocalSource, ModeDirectMarkup}

// ParseMode validates s as a Mode. Matching is case-insensitive and ignores
// surrounding whitespace.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if m.Valid() {
		return m, nil
	}
	return "", fmt.Errorf("invalid mode: %q (must be one of: %s, %s)", s, ModeLocalSource, ModeDirectMarkup)
}

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	return m == ModeLocalSource || m == ModeDirectMarkup
}

// Target returns the source format requested from the service for this mode,
// or "" for an invalid mode.
func (m Mode) Target() string {
	switch m {
	case ModeLocalSource:
		return TargetDOT
	case ModeDirectMarkup:
		return TargetSVG
	default:
		return ""
	}
}

func (m Mode) String() string { return string(m) }
