package utils

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

func init() {
	lipgloss.SetColorProfile(termenv.ANSI256)
}

var (
	RedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#cc0000"))
	OrangeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ff7c28"))
	YellowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#cc9500"))
	GreenStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#06cc00"))
	LightBlueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3cc5ff"))
	PurpleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7400e0"))
	GrayStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#adadad"))
	BoldStyle = lipgloss.NewStyle().Bold(true)

	channelStyles = map[string]lipgloss.Style{
		"shell":     LightBlueStyle,
		"control":   OrangeStyle,
		"iopub":     GreenStyle,
		"stdin":     PurpleStyle,
		"heartbeat": GrayStyle,
	}
)

// ChannelStyle returns the style used for log lines about a channel.
func ChannelStyle(channel string) lipgloss.Style {
	if style, ok := channelStyles[channel]; ok {
		return style
	}
	return YellowStyle
}
