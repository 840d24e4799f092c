package theme

import "github.com/charmbracelet/lipgloss"

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue   = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen  = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed    = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorGray   = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite  = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
)

// HeaderStyle is used for section headers such as the inbox title.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// SenderStyle renders the sender column of an email line.
var SenderStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorWhite)

// SubjectStyle renders a subject line.
var SubjectStyle = lipgloss.NewStyle().Foreground(ColorWhite)

// MutedStyle is used for timestamps, ids and sizes.
var MutedStyle = lipgloss.NewStyle().Foreground(ColorGray)

// AttachmentStyle marks attachment lines.
var AttachmentStyle = lipgloss.NewStyle().
	PaddingLeft(4).
	Foreground(ColorYellow)

// SuccessStyle is used for confirmation messages.
var SuccessStyle = lipgloss.NewStyle().Foreground(ColorGreen)

// ErrorStyle is used for error messages.
var ErrorStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorRed)

// StatusStyle returns a color-coded style for a session status label.
func StatusStyle(status string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch status {
	case "authenticated":
		return base.Foreground(ColorGreen)
	case "unauthenticated":
		return base.Foreground(ColorRed)
	default:
		return base.Foreground(ColorGray)
	}
}
