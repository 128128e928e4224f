// Package ui holds the terminal color themes shared by the CLI, the usage
// printer and the comparison summary.
package ui

import (
	"os"
	"sync"
)

// ThemeEnv selects the palette when colors are enabled: "dark" or "light".
const ThemeEnv = "DFT_THEME"

// Theme maps presentation roles to ANSI escape codes. An empty code leaves
// the text unstyled.
type Theme struct {
	Name      string
	Primary   string // backend names
	Secondary string // column labels and muted text
	Success   string
	Warning   string // durations and usage headings
	Error     string
	Info      string // numeric figures
	Bold      string
	Underline string
	Reset     string
}

var (
	// DarkTheme uses bright 256-color codes.
	DarkTheme = Theme{
		Name:      "dark",
		Primary:   "\033[38;5;45m",
		Secondary: "\033[38;5;246m",
		Success:   "\033[38;5;77m",
		Warning:   "\033[38;5;214m",
		Error:     "\033[38;5;203m",
		Info:      "\033[38;5;177m",
		Bold:      "\033[1m",
		Underline: "\033[4m",
		Reset:     "\033[0m",
	}

	// LightTheme uses darker codes readable on a white background.
	LightTheme = Theme{
		Name:      "light",
		Primary:   "\033[38;5;25m",
		Secondary: "\033[38;5;241m",
		Success:   "\033[38;5;22m",
		Warning:   "\033[38;5;94m",
		Error:     "\033[38;5;160m",
		Info:      "\033[38;5;90m",
		Bold:      "\033[1m",
		Underline: "\033[4m",
		Reset:     "\033[0m",
	}

	// NoColorTheme emits no escape codes at all.
	NoColorTheme = Theme{Name: "none"}

	themes = map[string]Theme{
		DarkTheme.Name:    DarkTheme,
		LightTheme.Name:   LightTheme,
		NoColorTheme.Name: NoColorTheme,
	}

	themeMu      sync.RWMutex
	currentTheme = DarkTheme
)

// LookupTheme returns the theme called name.
func LookupTheme(name string) (Theme, bool) {
	t, ok := themes[name]
	return t, ok
}

// GetCurrentTheme returns the active theme.
func GetCurrentTheme() Theme {
	themeMu.RLock()
	defer themeMu.RUnlock()
	return currentTheme
}

// SetCurrentTheme replaces the active theme. Tests use it to restore state.
func SetCurrentTheme(t Theme) {
	themeMu.Lock()
	defer themeMu.Unlock()
	currentTheme = t
}

// InitTheme picks the active theme once per run. Colors are off when
// noColor is set, when NO_COLOR is present with any value
// (https://no-color.org/) or when TERM is "dumb". Otherwise DFT_THEME
// chooses the palette, falling back to dark for unknown names.
func InitTheme(noColor bool) {
	SetCurrentTheme(resolveTheme(noColor))
}

func resolveTheme(noColor bool) Theme {
	if noColor || os.Getenv("TERM") == "dumb" {
		return NoColorTheme
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return NoColorTheme
	}
	if t, ok := LookupTheme(os.Getenv(ThemeEnv)); ok {
		return t
	}
	return DarkTheme
}
