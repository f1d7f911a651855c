// Package param implements the typed parameter model: the scalar value
// types attached to components, their listener graph, units and polarity,
// and the base+modulation dual-value semantics of compound parameters.
//
// Listener registration returns a ListenerToken used to unregister (the
// "listener-token model" from spec.md §9), and notification snapshots the
// listener slice before iterating so a listener that registers or
// unregisters mid-callback never corrupts the in-flight notification.
package param

import "sync"

// Units a parameter's value is expressed in, for display/automation
// purposes only — they never affect stored value semantics.
type Units int

const (
	UnitsNone Units = iota
	UnitsMillis
	UnitsSeconds
	UnitsHz
	UnitsPercent
	UnitsPercentNormalized
	UnitsDegrees
	UnitsInteger
)

// Polarity of a numeric parameter: whether its natural range is centered
// on zero (bipolar, e.g. pan) or anchored at a minimum (unipolar, e.g.
// level).
type Polarity int

const (
	Unipolar Polarity = iota
	Bipolar
)

// ListenerToken is returned by AddListener and consumed by RemoveListener.
type ListenerToken uint64

// Listener is invoked synchronously, on the thread that changed the value.
// Listeners are required to be re-entrant-safe: they may themselves set
// other parameters, including the one that is currently notifying them.
type Listener func(p Parameter)

// Parameter is the common capability every parameter variant satisfies.
type Parameter interface {
	Label() string
	SetLabel(string)
	Description() string
	SetDescription(string)
	Units() Units
	SetUnits(Units)
	Polarity() Polarity
	SetPolarity(Polarity)

	AddListener(l Listener) ListenerToken
	RemoveListener(tok ListenerToken)

	// notifyListeners fires all registered listeners with the current
	// parameter as argument. It is unexported, so only this package's
	// types satisfy Parameter; not part of the narrow contract callers
	// depend on.
	notifyListeners()
}

// base is embedded by every concrete parameter type. It is not itself a
// complete Parameter (no Value-shaped accessor), only the listener/meta
// plumbing shared by all of them.
type base struct {
	mu          sync.Mutex
	label       string
	description string
	units       Units
	polarity    Polarity

	listenerSeq uint64
	listeners   map[ListenerToken]Listener
	self        Parameter // set by the concrete constructor, used for notify
}

func newBase(label string) base {
	return base{label: label, listeners: make(map[ListenerToken]Listener)}
}

func (b *base) Label() string             { return b.label }
func (b *base) SetLabel(s string)         { b.label = s }
func (b *base) Description() string       { return b.description }
func (b *base) SetDescription(s string)   { b.description = s }
func (b *base) Units() Units              { return b.units }
func (b *base) SetUnits(u Units)          { b.units = u }
func (b *base) Polarity() Polarity        { return b.polarity }
func (b *base) SetPolarity(p Polarity)    { b.polarity = p }

func (b *base) AddListener(l Listener) ListenerToken {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listenerSeq++
	tok := ListenerToken(b.listenerSeq)
	b.listeners[tok] = l
	return tok
}

func (b *base) RemoveListener(tok ListenerToken) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.listeners, tok)
}

// notifyListeners snapshots the listener map (in registration order) and
// invokes each one with self. The snapshot means a listener that adds or
// removes a listener during the callback never perturbs this pass.
func (b *base) notifyListeners() {
	b.mu.Lock()
	if len(b.listeners) == 0 {
		b.mu.Unlock()
		return
	}
	snapshot := make([]struct {
		tok ListenerToken
		fn  Listener
	}, 0, len(b.listeners))
	for tok, fn := range b.listeners {
		snapshot = append(snapshot, struct {
			tok ListenerToken
			fn  Listener
		}{tok, fn})
	}
	self := b.self
	b.mu.Unlock()

	// registration order: tokens are assigned monotonically, sort by tok.
	for i := 1; i < len(snapshot); i++ {
		for j := i; j > 0 && snapshot[j].tok < snapshot[j-1].tok; j-- {
			snapshot[j], snapshot[j-1] = snapshot[j-1], snapshot[j]
		}
	}
	for _, e := range snapshot {
		e.fn(self)
	}
}
