package output

import (
	"github.com/fatih/color"

	"github.com/wesleyorama2/wattbench/internal/bench/energy"
)

// ColorScheme defines the colors used for different elements in the output
type ColorScheme struct {
	Title       *color.Color
	Rule        *color.Color
	Label       *color.Color
	Value       *color.Color
	Counter     *color.Color
	Integration *color.Color
	Success     *color.Color
	Error       *color.Color
	Dim         *color.Color
}

// DefaultColorScheme returns the default color scheme
func DefaultColorScheme() *ColorScheme {
	return &ColorScheme{
		Title:       color.New(color.Bold),
		Rule:        color.New(color.FgCyan),
		Label:       color.New(color.FgYellow),
		Value:       color.New(color.FgWhite, color.Bold),
		Counter:     color.New(color.FgGreen),
		Integration: color.New(color.FgMagenta),
		Success:     color.New(color.FgGreen, color.Bold),
		Error:       color.New(color.FgRed, color.Bold),
		Dim:         color.New(color.Faint),
	}
}

func (s *ColorScheme) all() []*color.Color {
	return []*color.Color{s.Title, s.Rule, s.Label, s.Value, s.Counter, s.Integration, s.Success, s.Error, s.Dim}
}

// ForcedColorScheme returns the default scheme with colors on regardless of
// the process-wide color.NoColor setting.
func ForcedColorScheme() *ColorScheme {
	scheme := DefaultColorScheme()
	for _, c := range scheme.all() {
		c.EnableColor()
	}
	return scheme
}

// NoColorScheme returns a color scheme with all colors disabled
func NoColorScheme() *ColorScheme {
	scheme := DefaultColorScheme()
	for _, c := range scheme.all() {
		c.DisableColor()
	}
	return scheme
}

// Method colors an energy method tag.
func (s *ColorScheme) Method(m energy.Method) string {
	if m == energy.MethodCounter {
		return s.Counter.Sprint(string(m))
	}
	return s.Integration.Sprint(string(m))
}

// SuccessIcon returns a checkmark symbol with appropriate color
func (s *ColorScheme) SuccessIcon() string {
	return s.Success.Sprint("✓")
}

// ErrorIcon returns an X symbol with appropriate color
func (s *ColorScheme) ErrorIcon() string {
	return s.Error.Sprint("✗")
}
