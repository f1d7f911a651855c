package param

import "math"

// BoolParam is a simple listenable boolean.
type BoolParam struct {
	base
	value bool
}

func NewBool(label string, initial bool) *BoolParam {
	p := &BoolParam{base: newBase(label), value: initial}
	p.self = p
	return p
}

func (p *BoolParam) Value() bool { return p.value }

// SourceBool lets a boolean parameter act as a trigger-modulation source.
func (p *BoolParam) SourceBool() bool { return p.value }

func (p *BoolParam) SetValue(v bool) {
	if p.value == v {
		return
	}
	p.value = v
	p.notifyListeners()
}

// DiscreteParam holds an integer confined to [min, max).
type DiscreteParam struct {
	base
	value    int
	min, max int // max exclusive
}

// NewDiscrete builds a discrete parameter over [min, max). initial is
// clamped into range.
func NewDiscrete(label string, min, max, initial int) *DiscreteParam {
	p := &DiscreteParam{base: newBase(label), min: min, max: max}
	p.self = p
	if initial < min {
		initial = min
	}
	if initial >= max {
		initial = max - 1
	}
	p.value = initial
	return p
}

func (p *DiscreteParam) Value() int  { return p.value }
func (p *DiscreteParam) Min() int    { return p.min }
func (p *DiscreteParam) Max() int    { return p.max }

// SetValue fails (returns false, no-op) if v is outside [min, max).
func (p *DiscreteParam) SetValue(v int) bool {
	if v < p.min || v >= p.max {
		return false
	}
	if p.value == v {
		return true
	}
	p.value = v
	p.notifyListeners()
	return true
}

// BoundedParam is a real-valued parameter over [min, max], with an
// optional display exponent (used by UIs to map a linear knob position to
// a non-linear perceptual value; the core never applies it itself).
type BoundedParam struct {
	base
	value    float64
	min, max float64
	exponent float64 // 0 means "none"
}

func NewBounded(label string, min, max, initial float64) *BoundedParam {
	p := &BoundedParam{base: newBase(label), min: min, max: max}
	p.self = p
	p.value = clamp(initial, min, max)
	return p
}

func (p *BoundedParam) Value() float64  { return p.value }

// SourceValue normalizes the current value to [0,1] so a bounded parameter
// can act as another modulation's normalized source.
func (p *BoundedParam) SourceValue() float64 {
	if p.max == p.min {
		return 0
	}
	return (p.value - p.min) / (p.max - p.min)
}
func (p *BoundedParam) Min() float64    { return p.min }
func (p *BoundedParam) Max() float64    { return p.max }
func (p *BoundedParam) Exponent() float64 { return p.exponent }
func (p *BoundedParam) SetExponent(e float64) { p.exponent = e }

// SetValue clamps v into [min, max] before storing it.
func (p *BoundedParam) SetValue(v float64) {
	v = clamp(v, p.min, p.max)
	if v == p.value {
		return
	}
	p.value = v
	p.notifyListeners()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// StringParam is a simple listenable string.
type StringParam struct {
	base
	value string
}

func NewString(label, initial string) *StringParam {
	p := &StringParam{base: newBase(label), value: initial}
	p.self = p
	return p
}

func (p *StringParam) Value() string { return p.value }

func (p *StringParam) SetValue(v string) {
	if p.value == v {
		return
	}
	p.value = v
	p.notifyListeners()
}

// EnumParam is a discrete parameter over an ordered label list.
type EnumParam struct {
	base
	labels []string
	index  int
}

func NewEnum(label string, labels []string, initial int) *EnumParam {
	p := &EnumParam{base: newBase(label), labels: append([]string(nil), labels...)}
	p.self = p
	if initial < 0 {
		initial = 0
	}
	if initial >= len(labels) {
		initial = len(labels) - 1
	}
	p.index = initial
	return p
}

func (p *EnumParam) Index() int         { return p.index }
func (p *EnumParam) Labels() []string   { return p.labels }
func (p *EnumParam) Selected() string   { return p.labels[p.index] }

func (p *EnumParam) SetIndex(i int) bool {
	if i < 0 || i >= len(p.labels) {
		return false
	}
	if i == p.index {
		return true
	}
	p.index = i
	p.notifyListeners()
	return true
}

// ColorParam holds hue/saturation/brightness as three plain values behind
// one listener list; they are not separate Parameters. SetHSB wraps hue
// into [0,1) and clamps saturation and brightness to [0,1]; NewColor
// stores its arguments as given.
type ColorParam struct {
	base
	hue, sat, bright float64
}

func NewColor(label string, hue, sat, bright float64) *ColorParam {
	p := &ColorParam{base: newBase(label), hue: hue, sat: sat, bright: bright}
	p.self = p
	return p
}

func (p *ColorParam) HSB() (h, s, b float64) { return p.hue, p.sat, p.bright }

func (p *ColorParam) SetHSB(h, s, b float64) {
	h = math.Mod(h, 1.0)
	if h < 0 {
		h += 1.0
	}
	s = clamp(s, 0, 1)
	b = clamp(b, 0, 1)
	if h == p.hue && s == p.sat && b == p.bright {
		return
	}
	p.hue, p.sat, p.bright = h, s, b
	p.notifyListeners()
}

// FunctionalParam is read-only; its value is computed on demand from other
// parameters via the supplied function.
type FunctionalParam struct {
	base
	compute func() float64
}

func NewFunctional(label string, compute func() float64) *FunctionalParam {
	p := &FunctionalParam{base: newBase(label), compute: compute}
	p.self = p
	return p
}

func (p *FunctionalParam) Value() float64 { return p.compute() }

// Recompute notifies listeners that the computed value may have changed
// (functional parameters have no setter of their own; whoever owns the
// parameters it depends on calls this after mutating them).
func (p *FunctionalParam) Recompute() { p.notifyListeners() }

// MutableParam is a simple write-notify cell of arbitrary payload, used for
// internal component bookkeeping that still wants listener semantics
// (e.g. a UI focus cursor).
type MutableParam struct {
	base
	value any
}

func NewMutable(label string, initial any) *MutableParam {
	p := &MutableParam{base: newBase(label), value: initial}
	p.self = p
	return p
}

func (p *MutableParam) Value() any { return p.value }

func (p *MutableParam) SetValue(v any) {
	p.value = v
	p.notifyListeners()
}

// TriggerParam is a momentary boolean: Fire sets it true and fires
// listeners, and it stays true until Clear is called. Engines that need an
// edge-visible-for-one-tick semantics (modulation triggers) read it during
// the same tick it was set and then clear it explicitly via Clear.
type TriggerParam struct {
	base
	value bool
}

func NewTrigger(label string) *TriggerParam {
	p := &TriggerParam{base: newBase(label)}
	p.self = p
	return p
}

func (p *TriggerParam) Value() bool { return p.value }

// SourceBool lets a trigger parameter act as a trigger-modulation source.
func (p *TriggerParam) SourceBool() bool { return p.value }

// Fire sets the trigger true and notifies listeners. The caller is
// responsible for calling Clear afterward; nothing in this module calls it
// automatically.
func (p *TriggerParam) Fire() {
	p.value = true
	p.notifyListeners()
}

func (p *TriggerParam) Clear() {
	if !p.value {
		return
	}
	p.value = false
}
