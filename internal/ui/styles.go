package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Color palette for the monitor dashboard
var (
	// Primary colors
	PrimaryColor = lipgloss.Color("#7D56F4") // Purple - headers, borders
	SuccessColor = lipgloss.Color("#43BF6D") // Green - disarmed, ok
	ErrorColor   = lipgloss.Color("#FF5555") // Red - alarms, violations
	WarningColor = lipgloss.Color("#FFA500") // Orange - entry/exit time, warnings
	MutedColor   = lipgloss.Color("#626262") // Gray - secondary info
	TextColor    = lipgloss.Color("#FFFFFF") // White - main content
)

// Layout constants
const (
	MinTerminalWidth = 60  // Minimum supported terminal width
	MaxContentWidth  = 100 // Maximum content width before capping
)

// Shared styles for the monitor dashboard
var (
	// TitleStyle is for the dashboard title line
	TitleStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Bold(true).
			PaddingLeft(1)

	// SubtitleStyle is for the panel endpoint under the title
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			PaddingLeft(1)

	// SectionTitleStyle is for section headers (PARTITIONS, ZONES, ...)
	SectionTitleStyle = lipgloss.NewStyle().
				Foreground(PrimaryColor).
				Bold(true).
				PaddingLeft(1)

	// ConnectedStyle marks a live panel session
	ConnectedStyle = lipgloss.NewStyle().
			Foreground(SuccessColor).
			Bold(true)

	// DisconnectedStyle marks a lost panel session
	DisconnectedStyle = lipgloss.NewStyle().
				Foreground(ErrorColor).
				Bold(true)

	// ZoneQuietStyle is for zones that are currently quiet
	ZoneQuietStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	// ZoneViolatedStyle is for violated zones and active outputs
	ZoneViolatedStyle = lipgloss.NewStyle().
				Foreground(ErrorColor).
				Bold(true)

	// OutputActiveStyle is for active outputs
	OutputActiveStyle = lipgloss.NewStyle().
				Foreground(SuccessColor).
				Bold(true)

	// AlarmStyle is for triggered alarm states
	AlarmStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true).
			Blink(true)

	// ArmedStyle is for armed partition states
	ArmedStyle = lipgloss.NewStyle().
			Foreground(WarningColor)

	// DisarmedStyle is for quiet partition states
	DisarmedStyle = lipgloss.NewStyle().
			Foreground(SuccessColor)

	// EventTimeStyle is for event log timestamps
	EventTimeStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	// HelpStyle is for the key hints at the bottom
	HelpStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			PaddingLeft(1)
)

// GetTerminalWidth returns the current terminal width, with fallback
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < MinTerminalWidth {
		return MinTerminalWidth
	}
	if width > MaxContentWidth {
		return MaxContentWidth
	}
	return width
}

// BoardBorderStyle returns the border style for the dashboard sections
func BoardBorderStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Width(width - 2) // Account for border characters
}
