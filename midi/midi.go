// Package midi generalizes the teacher's CC7/CC10 volume/pan handler into
// a generic control-surface contract: an inbound binding table matched
// against arbitrary Control Change/Note messages, and outbound parameter
// listeners that format and send feedback. Built on
// gitlab.com/gomidi/midi/v2 and its rtmididrv driver exactly as the
// teacher does.
package midi

import (
	"fmt"
	"sync"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/lumenforge/lumencore/engine"
	"github.com/lumenforge/lumencore/param"
	"github.com/lumenforge/lumencore/registry"
)

// Message is the generic inbound event a Binding matches against: either
// a Control Change (Controller/Value set, NoteOn false) or a Note On
// (Note/Velocity set, NoteOn true) — the two typed extractions the
// teacher's handleMIDI already knew how to pull out of a midi.Message.
type Message struct {
	Channel    uint8
	NoteOn     bool
	Controller uint8
	Value      uint8
	Note       uint8
	Velocity   uint8
}

// Binding pairs a predicate over inbound messages with the action to run
// when it matches — e.g. "CC7 on channel 0" -> "write channel fader".
type Binding struct {
	Match  func(Message) bool
	Action func(Message)
}

// CC builds a Binding matching a specific Control Change number on any
// channel.
func CC(controller uint8, action func(Message)) Binding {
	return Binding{
		Match:  func(m Message) bool { return !m.NoteOn && m.Controller == controller },
		Action: action,
	}
}

// NoteVelocity builds a Binding matching any Note On, typically used to
// drive an envelope modulator's Engage(velocity) peak scaling.
func NoteVelocity(action func(Message)) Binding {
	return Binding{
		Match:  func(m Message) bool { return m.NoteOn },
		Action: action,
	}
}

// ParamBinding is a Binding addressed by a stable engine.Handle rather than
// a closure over a captured parameter pointer, so the mapping survives a
// destroy-and-recreate of its target component: the handle re-resolves
// through the registry on every dispatch, so only its ComponentID needs
// updating (via Retarget) once the recreated component has a new id.
type ParamBinding struct {
	Match  func(Message) bool
	Target engine.Handle
	Apply  func(p param.Parameter, m Message)
}

// Retarget repoints a binding at a different component, keeping its
// parameter path — the operation an undo of a destroying command performs
// to keep a captured mapping alive against the new id.
func (b *ParamBinding) Retarget(id registry.ID) {
	b.Target.ComponentID = id
}

// Common MIDI CC numbers, for building bindings. The dashboard binds none
// of them by default.
const (
	CCVolume     uint8 = 7
	CCPan        uint8 = 10
	CCExpression uint8 = 11
	CCReverb     uint8 = 91
	CCChorus     uint8 = 93
)

// Surface manages one MIDI input/output connection pair, dispatching
// inbound messages through its binding table and sending outbound
// feedback for any parameter a caller attaches a listener to.
type Surface struct {
	inPort    drivers.In
	outPort   drivers.Out
	stopFunc  func()
	inbox     chan Message
	mu        sync.RWMutex
	connected bool

	bindings []Binding

	paramMu       sync.Mutex
	paramBindings []*ParamBinding
	resolver      *engine.RegistryResolver

	feedbackMu sync.Mutex
	feedback   map[param.ListenerToken]func()
}

// NewSurface creates a detached surface with the given binding table.
func NewSurface(bindings []Binding) *Surface {
	return &Surface{
		inbox:    make(chan Message, 256),
		bindings: bindings,
		feedback: make(map[param.ListenerToken]func()),
	}
}

// SetResolver wires the registry a ParamBinding's Target handle resolves
// through. Param bindings dispatched before a resolver is set are dropped.
func (s *Surface) SetResolver(r *engine.RegistryResolver) {
	s.paramMu.Lock()
	s.resolver = r
	s.paramMu.Unlock()
}

// AddParamBinding registers a handle-addressed parameter mapping.
func (s *Surface) AddParamBinding(b *ParamBinding) {
	s.paramMu.Lock()
	s.paramBindings = append(s.paramBindings, b)
	s.paramMu.Unlock()
}

// ParamBindingsForComponent returns the param bindings currently targeting
// id, used by a destroying command to capture them before disposal strips
// them out from under it.
func (s *Surface) ParamBindingsForComponent(id registry.ID) []*ParamBinding {
	s.paramMu.Lock()
	defer s.paramMu.Unlock()
	var out []*ParamBinding
	for _, b := range s.paramBindings {
		if b.Target.ComponentID == id {
			out = append(out, b)
		}
	}
	return out
}

// RemoveBindingsForComponent drops every param binding targeting id,
// implementing engine.BindingRemover so Component.Dispose can strip MIDI
// mappings for a component it is tearing down.
func (s *Surface) RemoveBindingsForComponent(id registry.ID) {
	s.paramMu.Lock()
	defer s.paramMu.Unlock()
	kept := s.paramBindings[:0]
	for _, b := range s.paramBindings {
		if b.Target.ComponentID != id {
			kept = append(kept, b)
		}
	}
	s.paramBindings = kept
}

// GetInputPorts returns available MIDI input ports.
func GetInputPorts() []drivers.In { return midi.GetInPorts() }

// GetOutputPorts returns available MIDI output ports.
func GetOutputPorts() []drivers.Out { return midi.GetOutPorts() }

// Connect opens the specified input and output ports, replacing any
// existing connection.
func (s *Surface) Connect(inPort drivers.In, outPort drivers.Out) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		s.disconnect()
	}

	s.inPort = inPort
	s.outPort = outPort

	if outPort != nil {
		if err := outPort.Open(); err != nil {
			return fmt.Errorf("midi: open output port: %w", err)
		}
	}

	if inPort != nil {
		stop, err := midi.ListenTo(inPort, s.handleMIDI, midi.UseSysEx())
		if err != nil {
			if outPort != nil {
				outPort.Close()
			}
			return fmt.Errorf("midi: listen on input port: %w", err)
		}
		s.stopFunc = stop
	}

	s.connected = true
	return nil
}

func (s *Surface) handleMIDI(msg midi.Message, _ int32) {
	var ch, cc, val uint8
	if msg.GetControlChange(&ch, &cc, &val) {
		s.post(Message{Channel: ch, Controller: cc, Value: val})
		return
	}
	var note, vel uint8
	if msg.GetNoteOn(&ch, &note, &vel) {
		s.post(Message{Channel: ch, NoteOn: true, Note: note, Velocity: vel})
	}
}

func (s *Surface) post(m Message) {
	select {
	case s.inbox <- m:
	default:
		// inbox full, drop message rather than block the MIDI driver thread
	}
}

// DispatchInbound drains every message queued since the last call and
// runs it through the binding table, implementing engine.InboundDispatcher
// (spec.md §4.6 step 1 — dispatch happens before tempo/audio/modulation).
func (s *Surface) DispatchInbound() {
	for {
		select {
		case m := <-s.inbox:
			for _, b := range s.bindings {
				if b.Match(m) {
					b.Action(m)
				}
			}
			s.dispatchParamBindings(m)
		default:
			return
		}
	}
}

// dispatchParamBindings resolves each matching ParamBinding's Target handle
// fresh through the registry, rather than holding any pointer across calls
// — exactly what lets a binding survive its target component being
// destroyed and recreated with a new id between dispatches.
func (s *Surface) dispatchParamBindings(m Message) {
	s.paramMu.Lock()
	resolver := s.resolver
	bindings := make([]*ParamBinding, len(s.paramBindings))
	copy(bindings, s.paramBindings)
	s.paramMu.Unlock()

	if resolver == nil {
		return
	}
	for _, b := range bindings {
		if !b.Match(m) {
			continue
		}
		p, ok := resolver.ResolveParameter(b.Target)
		if !ok {
			continue
		}
		b.Apply(p, m)
	}
}

// WatchParameter attaches an outbound feedback listener: whenever p
// changes, encode formats its value into a CC message sent on channel 0
// out the connected output port. Returns a token WatchParameter's caller can
// pass to Unwatch.
func (s *Surface) WatchParameter(p param.Parameter, encode func(p param.Parameter) (controller uint8, value uint8)) param.ListenerToken {
	token := p.AddListener(func(param.Parameter) {
		cc, val := encode(p)
		_ = s.SendCC(0, cc, val)
	})
	s.feedbackMu.Lock()
	s.feedback[token] = func() { p.RemoveListener(token) }
	s.feedbackMu.Unlock()
	return token
}

// Unwatch detaches a feedback listener previously installed by
// WatchParameter.
func (s *Surface) Unwatch(token param.ListenerToken) {
	s.feedbackMu.Lock()
	defer s.feedbackMu.Unlock()
	if remove, ok := s.feedback[token]; ok {
		remove()
		delete(s.feedback, token)
	}
}

// SendCC sends a Control Change message on the connected output port.
// Silently a no-op if no output port is connected.
func (s *Surface) SendCC(channel, controller, value uint8) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.outPort == nil || !s.connected {
		return nil
	}
	return s.outPort.Send(midi.ControlChange(channel, controller, value))
}

func (s *Surface) disconnect() {
	if s.stopFunc != nil {
		s.stopFunc()
		s.stopFunc = nil
	}
	if s.outPort != nil {
		s.outPort.Close()
	}
	s.connected = false
}

// Close closes all MIDI connections.
func (s *Surface) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnect()
}

// IsConnected returns whether the surface currently has an open connection.
func (s *Surface) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// InputPortName returns the name of the connected input port, or "None".
func (s *Surface) InputPortName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.inPort != nil {
		return s.inPort.String()
	}
	return "None"
}

// OutputPortName returns the name of the connected output port, or "None".
func (s *Surface) OutputPortName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.outPort != nil {
		return s.outPort.String()
	}
	return "None"
}
