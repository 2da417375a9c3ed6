package ui

import "github.com/charmbracelet/lipgloss"

// Palette
var (
	colorAccent  = lipgloss.Color("#05ffa1")
	colorUser    = lipgloss.Color("#7aa2f7")
	colorError   = lipgloss.Color("#f7768e")
	colorWarn    = lipgloss.Color("#e0af68")
	colorMuted   = lipgloss.Color("#565f89")
	colorText    = lipgloss.Color("#c0caf5")
	colorSurface = lipgloss.Color("#24283b")
)

// Styles holds every style the chat view uses
type Styles struct {
	User       lipgloss.Style
	Assistant  lipgloss.Style
	Error      lipgloss.Style
	Timestamp  lipgloss.Style
	Label      lipgloss.Style
	Failure    lipgloss.Style
	Muted      lipgloss.Style
	Badge      lipgloss.Style
	Card       lipgloss.Style
	CardTitle  lipgloss.Style
	Code       lipgloss.Style
	Stderr     lipgloss.Style
	Banner     lipgloss.Style
	StatusBar  lipgloss.Style
	Sidebar    lipgloss.Style
	InputFrame lipgloss.Style
}

// DefaultStyles returns the colored terminal theme
func DefaultStyles() *Styles {
	return &Styles{
		User:       lipgloss.NewStyle().Foreground(colorUser).Bold(true),
		Assistant:  lipgloss.NewStyle().Foreground(colorAccent).Bold(true),
		Error:      lipgloss.NewStyle().Foreground(colorError).Bold(true),
		Timestamp:  lipgloss.NewStyle().Foreground(colorMuted),
		Label:      lipgloss.NewStyle().Foreground(colorAccent),
		Failure:    lipgloss.NewStyle().Foreground(colorError),
		Muted:      lipgloss.NewStyle().Foreground(colorMuted).Italic(true),
		Badge:      lipgloss.NewStyle().Foreground(colorSurface).Background(colorWarn).Padding(0, 1),
		Card:       lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorMuted).Padding(0, 1),
		CardTitle:  lipgloss.NewStyle().Foreground(colorText).Bold(true),
		Code:       lipgloss.NewStyle().Foreground(colorText).Background(colorSurface),
		Stderr:     lipgloss.NewStyle().Foreground(colorError),
		Banner:     lipgloss.NewStyle().Foreground(colorSurface).Background(colorError).Bold(true).Padding(0, 1),
		StatusBar:  lipgloss.NewStyle().Foreground(colorMuted),
		Sidebar:    lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, true, false, false).BorderForeground(colorMuted).Padding(0, 1),
		InputFrame: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorAccent),
	}
}

// PlainStyles renders no decoration at all, for one-shot CLI output and
// non-terminal writers.
func PlainStyles() *Styles {
	plain := lipgloss.NewStyle()
	return &Styles{
		User: plain, Assistant: plain, Error: plain, Timestamp: plain,
		Label: plain, Failure: plain, Muted: plain, Badge: plain,
		Card: plain, CardTitle: plain, Code: plain, Stderr: plain,
		Banner: plain, StatusBar: plain, Sidebar: plain, InputFrame: plain,
	}
}
