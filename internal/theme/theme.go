// Package theme styles the terminal transcript.
package theme

import (
	"sort"

	"github.com/charmbracelet/lipgloss"
)

const DefaultName = "default"

type Theme struct {
	Name   string
	line   lipgloss.Style
	accent lipgloss.Style
}

// Render styles one transcript line.
func (t Theme) Render(text string) string {
	return t.line.Render(text)
}

// Accent styles prompts and status lines.
func (t Theme) Accent(text string) string {
	return t.accent.Render(text)
}

func newTheme(name string, fg, accent lipgloss.Color) Theme {
	return Theme{
		Name:   name,
		line:   lipgloss.NewStyle().Foreground(fg),
		accent: lipgloss.NewStyle().Foreground(accent).Bold(true),
	}
}

var themes = map[string]Theme{
	DefaultName:      newTheme(DefaultName, lipgloss.Color("#e5e7eb"), lipgloss.Color("#10b981")),
	"cool-blue":      newTheme("cool-blue", lipgloss.Color("#bfdbfe"), lipgloss.Color("#3b82f6")),
	"warm-orange":    newTheme("warm-orange", lipgloss.Color("#fed7aa"), lipgloss.Color("#f97316")),
	"vibrant-purple": newTheme("vibrant-purple", lipgloss.Color("#e9d5ff"), lipgloss.Color("#a855f7")),
}

func Lookup(name string) (Theme, bool) {
	t, ok := themes[name]
	return t, ok
}

// Get returns the named theme, or the default one when name is unknown.
func Get(name string) Theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return themes[DefaultName]
}

func Names() []string {
	names := make([]string, 0, len(themes))
	for n := range themes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
