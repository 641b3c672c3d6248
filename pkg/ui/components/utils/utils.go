// Package utils has width helpers shared by the chat components. All of them
// measure in terminal cells and leave ANSI styling intact.
package utils

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Ellipsis marks text cut by Ellipsize.
const Ellipsis = "…"

// Ellipsize shortens text to width cells, ending it with Ellipsis when cut.
func Ellipsize(text string, width int) string {
	if width <= 0 {
		return ""
	}
	return ansi.Truncate(text, width, Ellipsis)
}

// Clip cuts text to width cells without a marker.
func Clip(text string, width int) string {
	if width <= 0 {
		return ""
	}
	return ansi.Truncate(text, width, "")
}

// Pad right-pads text with spaces to width cells.
func Pad(text string, width int) string {
	gap := width - ansi.StringWidth(text)
	if gap <= 0 {
		return text
	}
	return text + strings.Repeat(" ", gap)
}

// SingleLine folds line breaks and runs of whitespace into single spaces.
func SingleLine(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
