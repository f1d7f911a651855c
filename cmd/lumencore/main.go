// Command lumencore runs the frame-loop engine behind a terminal
// dashboard, the bubbletea host adapted from the teacher's root command:
// a Model ticks the Mixer on a frame timer, drains MIDI/OSC input through
// the engine's own InboundDispatcher hook, and renders bus strips through
// internal/dashboard.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lumenforge/lumencore/capability"
	"github.com/lumenforge/lumencore/command"
	"github.com/lumenforge/lumencore/engine"
	"github.com/lumenforge/lumencore/internal/dashboard"
	"github.com/lumenforge/lumencore/lcconfig"
	"github.com/lumenforge/lumencore/midi"
	"github.com/lumenforge/lumencore/modulation"
	"github.com/lumenforge/lumencore/osc"
	"github.com/lumenforge/lumencore/persist"
	"github.com/lumenforge/lumencore/registry"
	"github.com/lumenforge/lumencore/tempo"
)

type view int

const (
	viewMixer view = iota
	viewDevices
)

// frameMsg drives one Mixer.Tick; sent on cfg.FrameInterval().
type frameMsg time.Time

// Model is the bubbletea application model.
type Model struct {
	cfg *lcconfig.Config

	reg      *registry.Registry
	graph    *modulation.Graph
	mixer    *engine.Mixer
	clock    *tempo.Clock
	cmds     *command.Engine
	resolver *command.EngineResolver
	midiSurf *midi.Surface
	oscR     *osc.Router
	codec    *persist.Codec

	labels   []string
	selected int

	deviceSelector *dashboard.DeviceSelector
	currentView    view

	width, height int
	lastTick      time.Time
	err           error
}

func newModel(cfg *lcconfig.Config) *Model {
	reg := registry.New()
	graph := modulation.NewGraph()
	mixer := engine.NewMixer(cfg.PointCount, graph)

	if err := reg.Register(mixer.Master.Node()); err != nil {
		panic(err)
	}

	labels := []string{"Bus 1", "Bus 2", "Bus 3", "Bus 4"}
	groups := []engine.CrossfadeGroup{engine.GroupA, engine.GroupA, engine.GroupB, engine.GroupB}
	for i := range labels {
		ch, err := newSolidChannel(reg, cfg.PointCount, defaultColor(i))
		if err != nil {
			panic(err)
		}
		ch.CrossfadeGroupParam.SetIndex(int(groups[i]))
		mixer.AddBus(ch)
	}

	clock := tempo.NewClock(cfg.Tempo.BPM)
	clock.Start()
	mixer.Tempo = clock

	midiSurf := midi.NewSurface(defaultBindings())
	oscR := osc.NewRouter(mixer)
	mixer.Inbound = append(mixer.Inbound, midiSurf, oscR)

	resolver := command.NewEngineResolver(reg, mixer)
	midiSurf.SetResolver(resolver.RegistryResolver)
	cmds := command.NewEngine(resolver, 200)

	classes := persist.Classes{
		Patterns: map[string]persist.PatternFactory{
			"solid": func() capability.Pattern { return capability.SolidColor(0xFFFFFFFF) },
		},
		Effects: map[string]persist.EffectFactory{},
	}
	codec := persist.NewCodec(reg, classes, graph)

	return &Model{
		cfg:         cfg,
		reg:         reg,
		graph:       graph,
		mixer:       mixer,
		clock:       clock,
		cmds:        cmds,
		resolver:    resolver,
		midiSurf:    midiSurf,
		oscR:        oscR,
		codec:       codec,
		labels:      labels,
		currentView: viewMixer,
		lastTick:    time.Time{},
	}
}

func defaultColor(i int) capability.Color {
	palette := []capability.Color{0xFFFF0000, 0xFF00FF00, 0xFF0000FF, 0xFFFFFF00}
	return palette[i%len(palette)]
}

func newSolidChannel(reg *registry.Registry, pointCount int, c capability.Color) (*engine.Channel, error) {
	slot := &engine.PatternSlot{
		Node:    engine.NewComponent("solid"),
		Pattern: capability.SolidColor(c),
		Class:   "solid",
	}
	if err := reg.Register(slot.Node); err != nil {
		return nil, err
	}
	ch, err := engine.NewChannel(pointCount, []*engine.PatternSlot{slot})
	if err != nil {
		return nil, err
	}
	if err := reg.Register(ch.Node()); err != nil {
		return nil, err
	}
	return ch, nil
}

// defaultBindings is the Surface's initial binding table. It is empty: no
// inbound MIDI CC is bound to any bus control at startup.
func defaultBindings() []midi.Binding {
	return nil
}

func (m *Model) Init() tea.Cmd {
	return tickCmd(m.cfg.FrameInterval())
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return frameMsg(t) })
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case frameMsg:
		now := time.Time(msg)
		var dt time.Duration
		if !m.lastTick.IsZero() {
			dt = now.Sub(m.lastTick)
		}
		m.lastTick = now
		m.mixer.Tick(now, dt)
		return m, tickCmd(m.cfg.FrameInterval())

	case error:
		m.err = msg
		return m, nil
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.currentView {
	case viewMixer:
		return m.handleMixerKeys(msg)
	case viewDevices:
		return m.handleDeviceKeys(msg)
	}
	return m, nil
}

func (m *Model) selectedBus() (engine.IdentifiedBus, bool) {
	if m.selected < 0 || m.selected >= len(m.mixer.Buses) {
		return nil, false
	}
	return m.mixer.Buses[m.selected], true
}

func (m *Model) setFader(delta float64) {
	bus, ok := m.selectedBus()
	if !ok {
		return
	}
	next := clamp01(bus.FaderValue() + delta)
	if _, err := m.cmds.Perform(command.SetValue(engine.ParameterHandle(bus.ID(), "fader"), next)); err != nil {
		m.err = err
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func (m *Model) toggleEnabled() {
	bus, ok := m.selectedBus()
	if !ok {
		return
	}
	if _, err := m.cmds.Perform(command.SetValue(engine.ParameterHandle(bus.ID(), "enabled"), !bus.IsEnabled())); err != nil {
		m.err = err
	}
}

func (m *Model) toggleCue() {
	bus, ok := m.selectedBus()
	if !ok {
		return
	}
	if _, err := m.cmds.Perform(command.SetValue(engine.ParameterHandle(bus.ID(), "cueActive"), !bus.IsCueActive())); err != nil {
		m.err = err
	}
}

func (m *Model) cycleGroup() {
	bus, ok := m.selectedBus()
	if !ok {
		return
	}
	next := (int(bus.Group()) + 1) % 3
	if _, err := m.cmds.Perform(command.SetValue(engine.ParameterHandle(bus.ID(), "crossfadeGroup"), next)); err != nil {
		m.err = err
	}
}

// destroySelectedChannel permanently removes the selected channel: unlike
// a plain removal, this frees its registry id and severs any modulation,
// trigger modulation, and MIDI param binding that targeted it. Undo
// rebuilds an equivalent channel with a new id rather than restoring the
// old one.
func (m *Model) destroySelectedChannel() {
	bus, ok := m.selectedBus()
	if !ok {
		return
	}
	ch, ok := bus.(*engine.Channel)
	if !ok {
		return
	}
	cmd := &command.DestroyChannelCommand{
		ChannelID: ch.ID(),
		Graph:     m.graph,
		Codec:     m.codec,
		Surface:   m.midiSurf,
	}
	if _, err := m.cmds.Perform(cmd); err != nil {
		m.err = err
		return
	}
	if m.selected >= 0 && m.selected < len(m.labels) {
		m.labels = append(m.labels[:m.selected:m.selected], m.labels[m.selected+1:]...)
	}
	if m.selected >= len(m.mixer.Buses) {
		m.selected = len(m.mixer.Buses) - 1
	}
}

func (m *Model) handleMixerKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.midiSurf.Close()
		return m, tea.Quit

	case "left", "h":
		if m.selected > 0 {
			m.selected--
		}

	case "right", "l":
		if m.selected < len(m.mixer.Buses)-1 {
			m.selected++
		}

	case "up", "k":
		m.setFader(0.05)

	case "down", "j":
		m.setFader(-0.05)

	case "shift+up", "K":
		m.setFader(0.01)

	case "shift+down", "J":
		m.setFader(-0.01)

	case "e":
		m.toggleEnabled()

	case "c":
		m.toggleCue()

	case "g":
		m.cycleGroup()

	case "u":
		if err := m.cmds.Undo(); err != nil {
			m.err = err
		}

	case "r":
		if err := m.cmds.Redo(); err != nil {
			m.err = err
		}

	case "t":
		m.clock.Tap(time.Now())

	case "d":
		m.deviceSelector = dashboard.NewDeviceSelector()
		m.currentView = viewDevices

	case "X":
		m.destroySelectedChannel()
	}

	return m, nil
}

func (m *Model) handleDeviceKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.midiSurf.Close()
		return m, tea.Quit

	case "esc":
		m.currentView = viewMixer

	case "up", "k":
		m.deviceSelector.MoveUp()

	case "down", "j":
		m.deviceSelector.MoveDown()

	case "tab":
		m.deviceSelector.ToggleFocus()

	case "r":
		m.deviceSelector.Refresh()

	case "enter":
		inPort := m.deviceSelector.GetSelectedInput()
		outPort := m.deviceSelector.GetSelectedOutput()
		if err := m.midiSurf.Connect(inPort, outPort); err != nil {
			m.err = err
		}
		m.currentView = viewMixer
	}

	return m, nil
}

func (m *Model) View() string {
	var content string
	switch m.currentView {
	case viewMixer:
		content = m.renderMixerView()
	case viewDevices:
		content = dashboard.RenderDeviceSelector(m.deviceSelector)
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func (m *Model) renderMixerView() string {
	var sections []string

	sections = append(sections, dashboard.TitleStyle.Render("LUMENCORE"))

	if m.err != nil {
		errStyle := lipgloss.NewStyle().Foreground(dashboard.ColorMuted)
		sections = append(sections, errStyle.Render(fmt.Sprintf("error: %v", m.err)))
	}

	sections = append(sections, dashboard.RenderMixer(m.mixer.Buses, m.labels, m.selected, m.mixer.Master, m.mixer.Crossfader.Value()))
	sections = append(sections, dashboard.RenderStatus(m.midiSurf.InputPortName(), m.midiSurf.OutputPortName(), m.clock.BPM.Value()))
	sections = append(sections, dashboard.RenderHelp())

	return lipgloss.JoinVertical(lipgloss.Center, sections...)
}

func main() {
	configPath := flag.String("config", "", "path to a lumencore YAML config file")
	flag.Parse()

	cfg := &lcconfig.Config{}
	if *configPath != "" {
		loaded, err := lcconfig.Load(*configPath)
		if err != nil {
			fmt.Printf("error loading config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	} else {
		cfg.PointCount = 150
		cfg.FrameRate = 60
		cfg.Tempo.BPM = 120
	}

	model := newModel(cfg)

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Printf("error running program: %v\n", err)
		os.Exit(1)
	}
}
