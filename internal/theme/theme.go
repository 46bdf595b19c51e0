// Package theme holds the light and dark palettes. A Theme is passed to
// every view that renders; nothing reads it from a global.
package theme

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	Light = "light"
	Dark  = "dark"
)

// Palette is the raw colour set a Theme is built from.
type Palette struct {
	Primary    lipgloss.Color
	PrimaryAlt lipgloss.Color
	Card       lipgloss.Color
	CardAlt    lipgloss.Color
	Text       lipgloss.Color
	Muted      lipgloss.Color
	Background lipgloss.Color
	Error      lipgloss.Color
	Gold       lipgloss.Color
	Silver     lipgloss.Color
	Bronze     lipgloss.Color
}

var (
	lightPalette = Palette{
		Primary:    "#7D0A0A",
		PrimaryAlt: "#5B0A0A",
		Card:       "#EAD196",
		CardAlt:    "#D7B66A",
		Text:       "#1A1A1A",
		Muted:      "#6B6B6B",
		Background: "#F3EDC8",
		Error:      "#BF3131",
		Gold:       "#D4AF37",
		Silver:     "#A8A9AD",
		Bronze:     "#CD7F32",
	}
	darkPalette = Palette{
		Primary:    "#EAD196",
		PrimaryAlt: "#D7B66A",
		Card:       "#5B0A0A",
		CardAlt:    "#7D0A0A",
		Text:       "#F3EDC8",
		Muted:      "#9A9A9A",
		Background: "#0D0D0D",
		Error:      "#FF6B6B",
		Gold:       "#FFD700",
		Silver:     "#C0C0C0",
		Bronze:     "#CD7F32",
	}
)

// Theme is a ready-to-use style set.
type Theme struct {
	Name    string
	Palette Palette

	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Text     lipgloss.Style
	Muted    lipgloss.Style
	Error    lipgloss.Style
	Hint     lipgloss.Style
	Card     lipgloss.Style
	CardAlt  lipgloss.Style
	Selected lipgloss.Style
	Pager    lipgloss.Style
	Frame    lipgloss.Style
	Input    lipgloss.Style
	Podium   [3]lipgloss.Style
}

// For returns the theme called name. Unknown names get the light theme.
func For(name string) Theme {
	if strings.EqualFold(strings.TrimSpace(name), Dark) {
		return build(Dark, darkPalette)
	}
	return build(Light, lightPalette)
}

// Toggle returns the other theme.
func (t Theme) Toggle() Theme {
	if t.Name == Dark {
		return For(Light)
	}
	return For(Dark)
}

// IsDark reports whether this is the dark theme.
func (t Theme) IsDark() bool {
	return t.Name == Dark
}

func build(name string, p Palette) Theme {
	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.PrimaryAlt).
		Foreground(p.Text).
		Padding(0, 1)
	return Theme{
		Name:     name,
		Palette:  p,
		Title:    lipgloss.NewStyle().Bold(true).Foreground(p.Primary).MarginBottom(1),
		Subtitle: lipgloss.NewStyle().Bold(true).Foreground(p.PrimaryAlt),
		Text:     lipgloss.NewStyle().Foreground(p.Text),
		Muted:    lipgloss.NewStyle().Foreground(p.Muted),
		Error:    lipgloss.NewStyle().Bold(true).Foreground(p.Error),
		Hint:     lipgloss.NewStyle().Foreground(p.Muted).MarginTop(1),
		Card:     card.BorderForeground(p.Card),
		CardAlt:  card.BorderForeground(p.CardAlt),
		Selected: card.Bold(true).BorderForeground(p.Primary),
		Pager:    lipgloss.NewStyle().Bold(true).Foreground(p.Primary).MarginTop(1),
		Frame: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.PrimaryAlt).
			Padding(0, 1),
		Input: lipgloss.NewStyle().Foreground(p.Primary),
		Podium: [3]lipgloss.Style{
			card.Bold(true).BorderForeground(p.Gold),
			card.Bold(true).BorderForeground(p.Silver),
			card.Bold(true).BorderForeground(p.Bronze),
		},
	}
}
