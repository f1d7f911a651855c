package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lumenforge/lumencore/engine"
)

const faderHeight = 10

// RenderFader renders a vertical fader for a value in [0,1].
func RenderFader(value float64, height int) string {
	filled := int(value * float64(height))

	var lines []string
	for i := height - 1; i >= 0; i-- {
		if i < filled {
			lines = append(lines, FaderFillStyle.Render("██"))
		} else {
			lines = append(lines, FaderTrackStyle.Render("░░"))
		}
	}
	return strings.Join(lines, "\n")
}

func groupLabel(g engine.CrossfadeGroup) string {
	switch g {
	case engine.GroupA:
		return "A"
	case engine.GroupB:
		return "B"
	default:
		return "BYPASS"
	}
}

// RenderBus renders one mixer bus (pattern channel or group channel) as a
// fader strip.
func RenderBus(label string, bus engine.IdentifiedBus, selected bool) string {
	var parts []string

	parts = append(parts, BusNameStyle.Render(label))
	parts = append(parts, "")
	parts = append(parts, RenderFader(bus.FaderValue(), faderHeight))
	parts = append(parts, ValueStyle.Render(fmt.Sprintf("%3d%%", int(bus.FaderValue()*100))))
	parts = append(parts, "")
	parts = append(parts, GroupStyle.Render(groupLabel(bus.Group())))
	parts = append(parts, "")

	var enabledStr, cueStr string
	if bus.IsEnabled() {
		enabledStr = EnabledActiveStyle.Render("ON")
	} else {
		enabledStr = EnabledInactiveStyle.Render("OFF")
	}
	if bus.IsCueActive() {
		cueStr = CueActiveStyle.Render("CUE")
	} else {
		cueStr = CueInactiveStyle.Render("cue")
	}
	parts = append(parts, enabledStr+" "+cueStr)

	content := strings.Join(parts, "\n")
	if selected {
		return SelectedBusStyle.Render(content)
	}
	return BusStyle.Render(content)
}

// RenderMaster renders the master channel's cue state (it has no fader of
// its own — it sits downstream of the crossfader).
func RenderMaster(master *engine.MasterChannel) string {
	var parts []string
	parts = append(parts, BusNameStyle.Render("MASTER"))
	parts = append(parts, "")
	if master.CueActive.Value() {
		parts = append(parts, CueActiveStyle.Render("CUE"))
	} else {
		parts = append(parts, CueInactiveStyle.Render("cue"))
	}
	return MasterStyle.Render(strings.Join(parts, "\n"))
}

// RenderMixer renders every bus plus the master and crossfader position.
func RenderMixer(buses []engine.IdentifiedBus, labels []string, selected int, master *engine.MasterChannel, crossfader float64) string {
	var strips []string
	for i, b := range buses {
		label := fmt.Sprintf("Bus %d", i+1)
		if i < len(labels) && labels[i] != "" {
			label = labels[i]
		}
		strips = append(strips, RenderBus(label, b, i == selected))
	}
	strips = append(strips, RenderMaster(master))

	rows := lipgloss.JoinHorizontal(lipgloss.Top, strips...)
	xf := ValueStyle.Render(fmt.Sprintf("crossfader: %.2f", crossfader))
	return lipgloss.JoinVertical(lipgloss.Center, rows, xf)
}

// RenderHelp renders the key-binding help bar.
func RenderHelp() string {
	help := "←/→: select  ↑/↓: fader  e: enable  c: cue  g: group  u: undo  r: redo  d: devices  t: tap tempo  X: destroy channel  q: quit"
	return HelpStyle.Render(help)
}

// RenderStatus renders the MIDI connection and tempo status line.
func RenderStatus(midiIn, midiOut string, bpm float64) string {
	return StatusStyle.Render(fmt.Sprintf("MIDI In: %s │ MIDI Out: %s │ %.1f BPM", midiIn, midiOut, bpm))
}
