package dashboard

import (
	"fmt"
	"strings"

	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/lumenforge/lumencore/midi"
)

// DeviceSelector drives the MIDI input/output port picker, adapted from the
// teacher's ui.DeviceSelector onto midi.Surface's port listing.
type DeviceSelector struct {
	InputPorts     []drivers.In
	OutputPorts    []drivers.Out
	SelectedInput  int
	SelectedOutput int
	FocusInput     bool
}

func NewDeviceSelector() *DeviceSelector {
	return &DeviceSelector{
		InputPorts:     midi.GetInputPorts(),
		OutputPorts:    midi.GetOutputPorts(),
		SelectedInput:  -1,
		SelectedOutput: -1,
		FocusInput:     true,
	}
}

func (d *DeviceSelector) Refresh() {
	d.InputPorts = midi.GetInputPorts()
	d.OutputPorts = midi.GetOutputPorts()
}

func (d *DeviceSelector) MoveUp() {
	if d.FocusInput {
		if d.SelectedInput > 0 {
			d.SelectedInput--
		} else if d.SelectedInput == -1 && len(d.InputPorts) > 0 {
			d.SelectedInput = 0
		}
	} else {
		if d.SelectedOutput > 0 {
			d.SelectedOutput--
		} else if d.SelectedOutput == -1 && len(d.OutputPorts) > 0 {
			d.SelectedOutput = 0
		}
	}
}

func (d *DeviceSelector) MoveDown() {
	if d.FocusInput {
		if d.SelectedInput < len(d.InputPorts)-1 {
			d.SelectedInput++
		}
	} else {
		if d.SelectedOutput < len(d.OutputPorts)-1 {
			d.SelectedOutput++
		}
	}
}

func (d *DeviceSelector) ToggleFocus() {
	d.FocusInput = !d.FocusInput
}

func (d *DeviceSelector) GetSelectedInput() drivers.In {
	if d.SelectedInput >= 0 && d.SelectedInput < len(d.InputPorts) {
		return d.InputPorts[d.SelectedInput]
	}
	return nil
}

func (d *DeviceSelector) GetSelectedOutput() drivers.Out {
	if d.SelectedOutput >= 0 && d.SelectedOutput < len(d.OutputPorts) {
		return d.OutputPorts[d.SelectedOutput]
	}
	return nil
}

// RenderDeviceSelector renders the port picker view.
func RenderDeviceSelector(d *DeviceSelector) string {
	var sections []string

	sections = append(sections, TitleStyle.Render("MIDI Device Selection"))
	sections = append(sections, "")

	inputTitle := "Input Ports"
	if d.FocusInput {
		inputTitle = "▸ Input Ports"
	}
	sections = append(sections, BusNameStyle.Render(inputTitle))

	if len(d.InputPorts) == 0 {
		sections = append(sections, DeviceItemStyle.Render("  No input devices found"))
	} else {
		for i, port := range d.InputPorts {
			sections = append(sections, renderDeviceLine(port.String(), i == d.SelectedInput, d.FocusInput))
		}
	}

	sections = append(sections, "")

	outputTitle := "Output Ports"
	if !d.FocusInput {
		outputTitle = "▸ Output Ports"
	}
	sections = append(sections, BusNameStyle.Render(outputTitle))

	if len(d.OutputPorts) == 0 {
		sections = append(sections, DeviceItemStyle.Render("  No output devices found"))
	} else {
		for i, port := range d.OutputPorts {
			sections = append(sections, renderDeviceLine(port.String(), i == d.SelectedOutput, !d.FocusInput))
		}
	}

	sections = append(sections, "")
	sections = append(sections, HelpStyle.Render("↑/↓: select  tab: switch list  enter: connect  r: refresh  esc: cancel"))

	return DeviceListStyle.Render(strings.Join(sections, "\n"))
}

func renderDeviceLine(name string, selected, listFocused bool) string {
	if selected && listFocused {
		return DeviceSelectedStyle.Render(fmt.Sprintf("● %s", name))
	}
	if selected {
		return DeviceItemStyle.Render(fmt.Sprintf("● %s", name))
	}
	return DeviceItemStyle.Render(fmt.Sprintf("  %s", name))
}
