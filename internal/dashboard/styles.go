// Package dashboard is a bubbletea/lipgloss reference host for the
// engine: it drives a Mixer from a terminal, adapted from the teacher's
// ui package (channel strips, fader bars, a device selector) onto bus
// parameters instead of a fixed 8-channel audio mixer.
package dashboard

import "github.com/charmbracelet/lipgloss"

var (
	ColorPrimary    = lipgloss.Color("#7C3AED")
	ColorAccent     = lipgloss.Color("#F59E0B")
	ColorMuted      = lipgloss.Color("#EF4444")
	ColorCue        = lipgloss.Color("#3B82F6")
	ColorBackground = lipgloss.Color("#1F2937")
	ColorSurface    = lipgloss.Color("#374151")
	ColorText       = lipgloss.Color("#F9FAFB")
	ColorTextDim    = lipgloss.Color("#9CA3AF")
	ColorFader      = lipgloss.Color("#4ADE80")
	ColorFaderBg    = lipgloss.Color("#374151")
)

var (
	BaseStyle = lipgloss.NewStyle().
			Background(ColorBackground).
			Foreground(ColorText)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			Padding(0, 1).
			MarginBottom(1)

	BusStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorSurface).
			Padding(1).
			Width(12).
			Align(lipgloss.Center)

	SelectedBusStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorPrimary).
				Padding(1).
				Width(12).
				Align(lipgloss.Center)

	BusNameStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Align(lipgloss.Center)

	FaderTrackStyle = lipgloss.NewStyle().Foreground(ColorFaderBg)
	FaderFillStyle  = lipgloss.NewStyle().Foreground(ColorFader)

	ValueStyle = lipgloss.NewStyle().
			Foreground(ColorTextDim).
			Align(lipgloss.Center)

	EnabledActiveStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorBackground).
				Background(ColorFader).
				Padding(0, 1)

	EnabledInactiveStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorBackground).
				Background(ColorMuted).
				Padding(0, 1)

	CueActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBackground).
			Background(ColorCue).
			Padding(0, 1)

	CueInactiveStyle = lipgloss.NewStyle().
				Foreground(ColorTextDim).
				Padding(0, 1)

	GroupStyle = lipgloss.NewStyle().Foreground(ColorAccent)

	HelpStyle = lipgloss.NewStyle().
			Foreground(ColorTextDim).
			MarginTop(1)

	StatusStyle = lipgloss.NewStyle().
			Foreground(ColorTextDim).
			MarginTop(1)

	DeviceListStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorSurface).
			Padding(1).
			Width(50)

	DeviceItemStyle = lipgloss.NewStyle().
			Foreground(ColorText).
			Padding(0, 2)

	DeviceSelectedStyle = lipgloss.NewStyle().
				Foreground(ColorBackground).
				Background(ColorPrimary).
				Padding(0, 2)

	MasterStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(ColorAccent).
			Padding(1).
			Width(14).
			Align(lipgloss.Center)
)
