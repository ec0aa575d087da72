// Package cli provides shared formatting helpers for panshift CLI tools.
package cli

import (
	"os"
	"strings"
)

// colorEnabled is false when NO_COLOR env var is set (per no-color.org).
var colorEnabled = os.Getenv("NO_COLOR") == ""

// Green wraps s in ANSI green. Returns s unchanged when NO_COLOR is set.
func Green(s string) string {
	if !colorEnabled {
		return s
	}
	return "\033[32m" + s + "\033[0m"
}

// Yellow wraps s in ANSI yellow. Returns s unchanged when NO_COLOR is set.
func Yellow(s string) string {
	if !colorEnabled {
		return s
	}
	return "\033[33m" + s + "\033[0m"
}

// Red wraps s in ANSI red. Returns s unchanged when NO_COLOR is set.
func Red(s string) string {
	if !colorEnabled {
		return s
	}
	return "\033[31m" + s + "\033[0m"
}

// Bold wraps s in ANSI bold. Returns s unchanged when NO_COLOR is set.
func Bold(s string) string {
	if !colorEnabled {
		return s
	}
	return "\033[1m" + s + "\033[0m"
}

// Dim wraps s in ANSI dim. Returns s unchanged when NO_COLOR is set.
func Dim(s string) string {
	if !colorEnabled {
		return s
	}
	return "\033[2m" + s + "\033[0m"
}

// DotPad pads name with dots to the given width.
// Example: DotPad("fw-east-1", 30) → "fw-east-1 ...................."
func DotPad(name string, width int) string {
	if width <= 0 || len(name) >= width-1 {
		return name
	}
	dots := width - len(name) - 1
	return name + " " + strings.Repeat(".", dots)
}

// Action colors a push action verb for the results table.
func Action(action string) string {
	switch strings.ToLower(action) {
	case "created", "updated", "renamed":
		return Green(action)
	case "skipped":
		return Dim(action)
	case "failed":
		return Red(action)
	default:
		return action
	}
}

// Status colors a deployment or phase status word.
func Status(status string) string {
	switch strings.ToLower(status) {
	case "success", "complete":
		return Green(status)
	case "partial", "in_progress", "pending":
		return Yellow(status)
	case "failed":
		return Red(status)
	case "skipped":
		return Dim(status)
	default:
		return status
	}
}
