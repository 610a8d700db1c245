package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/ahrav/go-factorlens/internal/domain"
)

// Theme names accepted by ThemeByName.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// Theme is the set of styles used by the chat view.
type Theme struct {
	Name string

	Title     lipgloss.Style
	User      lipgloss.Style
	Assistant lipgloss.Style
	Heading   lipgloss.Style
	Muted     lipgloss.Style
	Error     lipgloss.Style
	Selected  lipgloss.Style
	Bar       lipgloss.Style
	Spinner   lipgloss.Style
	Help      lipgloss.Style

	increases lipgloss.Color
	slightly  lipgloss.Color
	decreases lipgloss.Color
	neutral   lipgloss.Color
}

// DarkTheme is the default palette.
func DarkTheme() Theme {
	return Theme{
		Name:      ThemeDark,
		Title:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#60f0d8")),
		User:      lipgloss.NewStyle().Foreground(lipgloss.Color("#e5e7eb")).Background(lipgloss.Color("#1f2937")).Padding(0, 1),
		Assistant: lipgloss.NewStyle().Foreground(lipgloss.Color("#e5e7eb")).Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#2ea7ff")).Padding(0, 1),
		Heading:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffffff")),
		Muted:     lipgloss.NewStyle().Foreground(lipgloss.Color("#9aa9bf")),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("#f87171")),
		Selected:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#60f0d8")),
		Bar:       lipgloss.NewStyle().Foreground(lipgloss.Color("#2ea7ff")),
		Spinner:   lipgloss.NewStyle().Foreground(lipgloss.Color("#60f0d8")),
		Help:      lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280")),
		increases: lipgloss.Color("#34d399"),
		slightly:  lipgloss.Color("#5eead4"),
		decreases: lipgloss.Color("#f87171"),
		neutral:   lipgloss.Color("#9ca3af"),
	}
}

// LightTheme is the palette for light terminals.
func LightTheme() Theme {
	return Theme{
		Name:      ThemeLight,
		Title:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0e7490")),
		User:      lipgloss.NewStyle().Foreground(lipgloss.Color("#111827")).Background(lipgloss.Color("#e5e7eb")).Padding(0, 1),
		Assistant: lipgloss.NewStyle().Foreground(lipgloss.Color("#111827")).Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#0284c7")).Padding(0, 1),
		Heading:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#111827")),
		Muted:     lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280")),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("#b91c1c")),
		Selected:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0e7490")),
		Bar:       lipgloss.NewStyle().Foreground(lipgloss.Color("#0284c7")),
		Spinner:   lipgloss.NewStyle().Foreground(lipgloss.Color("#0e7490")),
		Help:      lipgloss.NewStyle().Foreground(lipgloss.Color("#9ca3af")),
		increases: lipgloss.Color("#047857"),
		slightly:  lipgloss.Color("#0f766e"),
		decreases: lipgloss.Color("#b91c1c"),
		neutral:   lipgloss.Color("#4b5563"),
	}
}

// ThemeByName returns the named theme, defaulting to dark.
func ThemeByName(name string) Theme {
	if name == ThemeLight {
		return LightTheme()
	}
	return DarkTheme()
}

// Toggle switches between the dark and light themes.
func (t Theme) Toggle() Theme {
	if t.Name == ThemeLight {
		return DarkTheme()
	}
	return LightTheme()
}

// Pill renders the direction label with its icon in the direction's color.
func (t Theme) Pill(d domain.Direction) string {
	c := t.neutral
	switch d {
	case domain.DirectionIncreases:
		c = t.increases
	case domain.DirectionSlightlyIncreases:
		c = t.slightly
	case domain.DirectionDecreases:
		c = t.decreases
	}
	return lipgloss.NewStyle().Foreground(c).Render(d.Icon() + " " + d.Label())
}
