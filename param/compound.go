package param

// ContributionID identifies one modulation's contribution to a compound
// parameter's effective value. Owned and assigned by the modulation graph.
type ContributionID uint64

// CompoundParam is a bounded numeric parameter whose effective value is
// its base value plus the sum of live modulation contributions, clamped to
// [min, max]. The effective value is cached and only recomputed when
// dirtied — by a base-value change or by the modulation graph updating a
// contribution — so the channel hot loop never pays for a summation it
// didn't ask for (spec.md §9: "avoid per-read recomputation during the
// channel hot loop").
type CompoundParam struct {
	base
	baseValue    float64
	min, max     float64
	exponent     float64
	contributions map[ContributionID]float64
	dirty        bool
	cached       float64
}

func NewCompound(label string, min, max, initial float64) *CompoundParam {
	p := &CompoundParam{
		base:          newBase(label),
		min:           min,
		max:           max,
		contributions: make(map[ContributionID]float64),
	}
	p.self = p
	p.baseValue = clamp(initial, min, max)
	p.dirty = true
	return p
}

func (p *CompoundParam) Min() float64 { return p.min }
func (p *CompoundParam) Max() float64 { return p.max }
func (p *CompoundParam) Exponent() float64     { return p.exponent }
func (p *CompoundParam) SetExponent(e float64) { p.exponent = e }

// Base returns the persisted, UI-knob-moved value (no modulation applied).
func (p *CompoundParam) Base() float64 { return p.baseValue }

// SetBase updates the base value, clamped to range, and marks the
// effective value dirty. Notifies listeners unconditionally when the base
// actually changes, independent of whether the effective value also
// changes (a listener watching the knob position cares about this even if
// modulation happens to cancel it out).
func (p *CompoundParam) SetBase(v float64) {
	v = clamp(v, p.min, p.max)
	if v == p.baseValue {
		return
	}
	p.baseValue = v
	p.dirty = true
	p.notifyListeners()
}

// SetContribution records or updates one modulation's contribution
// (already resolved to a signed delta by the modulation graph: amount*src
// for unipolar, amount*(2*src-1) for bipolar). Marks the effective value
// dirty; does not itself notify listeners — the modulation graph notifies
// once per tick after all contributions for the frame are settled, via
// Recompute.
func (p *CompoundParam) SetContribution(id ContributionID, value float64) {
	if old, ok := p.contributions[id]; ok && old == value {
		return
	}
	p.contributions[id] = value
	p.dirty = true
}

// RemoveContribution drops a modulation's contribution (the modulation was
// disabled or removed).
func (p *CompoundParam) RemoveContribution(id ContributionID) {
	if _, ok := p.contributions[id]; !ok {
		return
	}
	delete(p.contributions, id)
	p.dirty = true
}

// Effective recomputes (if dirty) and returns base + sum(contributions),
// clamped to [min, max].
func (p *CompoundParam) Effective() float64 {
	if p.dirty {
		p.recompute()
	}
	return p.cached
}

func (p *CompoundParam) recompute() {
	sum := p.baseValue
	for _, c := range p.contributions {
		sum += c
	}
	p.cached = clamp(sum, p.min, p.max)
	p.dirty = false
}

// SourceValue lets a compound parameter's effective value act as another
// modulation's normalized source (spec.md §3: "a normalized source (a
// modulator's output or another normalized parameter)").
func (p *CompoundParam) SourceValue() float64 { return p.Effective() }

// HasModulation reports whether at least one contribution is currently
// registered — used by the modulation graph to skip parameters with no
// active modulations (spec.md §4.4 step 2).
func (p *CompoundParam) HasModulation() bool { return len(p.contributions) > 0 }

// Recompute forces the cached effective value to refresh and notifies
// listeners if the effective value actually moved. Called once per tick by
// the modulation graph for every compound parameter with at least one
// active modulation (spec.md §4.2: "eagerly at the start of each tick").
func (p *CompoundParam) Recompute() {
	before := p.cached
	wasDirty := p.dirty
	p.recompute()
	if wasDirty && before != p.cached {
		p.notifyListeners()
	}
}
