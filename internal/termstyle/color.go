// SPDX-License-Identifier: MIT
package termstyle

import "github.com/liggitt/tabwriter"

const (
	Reset = "\x1b[0m"
	Green = "\x1b[32m"
	Brown = "\x1b[33m"
	Red   = "\x1b[31m"
	Blue  = "\x1b[34m"
	Dim   = "\x1b[2m"

	// Semantic aliases used by status, sync, and list output.
	Clean    = Green
	Dirty    = Brown
	Failed   = Red
	Header   = Blue
	Disabled = Dim
)

// Colorize wraps a value in ANSI escapes when color output is enabled.
func Colorize(enabled bool, value, color string) string {
	if !enabled || value == "" || color == "" {
		return value
	}
	// Hide ANSI sequences from tabwriter width calculations so columns align.
	esc := string([]byte{tabwriter.Escape})
	return esc + color + esc + value + esc + Reset + esc
}

// Paint wraps value in ANSI escapes for direct terminal output, outside of a
// tabwriter.
func Paint(enabled bool, value, color string) string {
	if !enabled || value == "" || color == "" {
		return value
	}
	return color + value + Reset
}

// Mark returns the check or cross glyph for a step outcome.
func Mark(enabled bool, ok bool) string {
	if ok {
		return Paint(enabled, "✓", Clean)
	}
	return Paint(enabled, "✗", Failed)
}
