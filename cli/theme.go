package cli

import "github.com/charmbracelet/lipgloss"

// Colors is the palette used by help and report rendering.
type Colors struct {
	Red    lipgloss.Color
	Green  lipgloss.Color
	Yellow lipgloss.Color
	Blue   lipgloss.Color
	Cyan   lipgloss.Color
	Violet lipgloss.Color
	Orange lipgloss.Color
	Gray   lipgloss.Color
}

// Theme groups the palette with the shared text styles.
type Theme struct {
	Colors Colors
	Muted  lipgloss.Style
	Italic lipgloss.Style
	Bold   lipgloss.Style
}

// DefaultTheme uses ANSI 256 colors so it follows the terminal palette.
var DefaultTheme = newTheme(Colors{
	Red:    lipgloss.Color("9"),
	Green:  lipgloss.Color("10"),
	Yellow: lipgloss.Color("11"),
	Blue:   lipgloss.Color("12"),
	Cyan:   lipgloss.Color("14"),
	Violet: lipgloss.Color("13"),
	Orange: lipgloss.Color("208"),
	Gray:   lipgloss.Color("8"),
})

func newTheme(c Colors) *Theme {
	return &Theme{
		Colors: c,
		Muted:  lipgloss.NewStyle().Foreground(c.Gray),
		Italic: lipgloss.NewStyle().Italic(true),
		Bold:   lipgloss.NewStyle().Bold(true),
	}
}
