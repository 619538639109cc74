package logger

import (
	"strings"

	"github.com/fatih/color"
)

// tone selects the color of a summary line.
type tone int

const (
	tonePlain tone = iota
	toneHeader
	toneSuccess
	toneFail
	toneWarn
	toneLabel
)

// colorScheme keeps one color per tone.
// Green: completed work
// Red: failures
// Yellow: warnings and conflicts
// Cyan: labels and paths
type colorScheme struct {
	header  *color.Color
	success *color.Color
	fail    *color.Color
	warn    *color.Color
	label   *color.Color
}

func newColorScheme() *colorScheme {
	return &colorScheme{
		header:  color.New(color.Bold),
		success: color.New(color.FgGreen),
		fail:    color.New(color.FgRed),
		warn:    color.New(color.FgYellow),
		label:   color.New(color.FgCyan),
	}
}

func (s *colorScheme) paint(t tone, text string) string {
	switch t {
	case toneHeader:
		return s.header.Sprint(text)
	case toneSuccess:
		return s.success.Sprint(text)
	case toneFail:
		return s.fail.Sprint(text)
	case toneWarn:
		return s.warn.Sprint(text)
	case toneLabel:
		return s.label.Sprint(text)
	default:
		return text
	}
}

// level colors a level tag.
func (s *colorScheme) level(level string) string {
	switch strings.ToUpper(level) {
	case "TRACE":
		return color.New(color.FgHiBlack).Sprint(level)
	case "DEBUG":
		return color.New(color.FgCyan).Sprint(level)
	case "INFO":
		return color.New(color.FgBlue).Sprint(level)
	case "WARN":
		return s.warn.Sprint(level)
	case "ERROR":
		return s.fail.Sprint(level)
	default:
		return level
	}
}
