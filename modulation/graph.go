package modulation

import (
	"fmt"
	"time"

	"github.com/lumenforge/lumencore/enginerr"
	"github.com/lumenforge/lumencore/param"
)

// NumericSource is anything that can feed a compound modulation: a
// modulator's output, or another normalized parameter.
type NumericSource interface {
	SourceValue() float64
}

// BoolSource is anything that can feed a trigger modulation.
type BoolSource interface {
	SourceBool() bool
}

// dependent is implemented by nodes whose own value depends on other
// nodes (e.g. a modulator whose rate is itself read from a parameter).
// Most concrete modulators do not implement it; the graph still folds
// their direct source/target edges into the same dependency set.
type dependent interface {
	Dependencies() []any
}

// ModulationID identifies one compound-modulation edge, stable for the
// edge's lifetime (used as the CompoundParam contribution key and as the
// handle commands capture for undo).
type ModulationID uint64

// Modulation is one compound-modulation edge: source -> target, scaled by
// Amount and interpreted per Polarity.
type Modulation struct {
	ID       ModulationID
	Source   NumericSource
	Target   *param.CompoundParam
	Amount   float64 // [-1, 1]
	Polarity param.Polarity
	Enabled  bool
}

func (m *Modulation) contribution() float64 {
	if !m.Enabled {
		return 0
	}
	src := m.Source.SourceValue()
	switch m.Polarity {
	case param.Bipolar:
		return m.Amount * (src*2 - 1)
	default:
		return m.Amount * src
	}
}

// TriggerMode selects what a trigger modulation does on the source's
// rising edge.
type TriggerMode int

const (
	TriggerSet TriggerMode = iota
	TriggerToggle
)

// TriggerModulation is one trigger-modulation edge: a boolean/trigger
// source driving a boolean target.
type TriggerModulation struct {
	ID      ModulationID
	Source  BoolSource
	Target  *param.BoolParam
	Mode    TriggerMode
	Enabled bool

	lastSource bool
}

// Graph is the modulation data-flow substrate: it ticks modulators in
// registration order, recomputes compound parameters with active
// modulations, fires trigger modulations on rising edges, and rejects any
// edge addition that would introduce a cycle.
type Graph struct {
	modulators []Modulator

	modulations    map[ModulationID]*Modulation
	triggerMods    map[ModulationID]*TriggerModulation
	targetsByParam map[*param.CompoundParam][]ModulationID

	nextID ModulationID

	// depends[x] = set of nodes x's value depends on, used only for cycle
	// detection (DFS reachability), not for evaluation order.
	depends map[any]map[any]bool
}

func NewGraph() *Graph {
	return &Graph{
		modulations:    make(map[ModulationID]*Modulation),
		triggerMods:    make(map[ModulationID]*TriggerModulation),
		targetsByParam: make(map[*param.CompoundParam][]ModulationID),
		depends:        make(map[any]map[any]bool),
		nextID:         1,
	}
}

// RegisterModulator adds a modulator to be ticked every frame, in
// registration order.
func (g *Graph) RegisterModulator(m Modulator) {
	g.modulators = append(g.modulators, m)
}

// RegisterDependency records that node depends on dep, without creating a
// modulation edge — used when a modulator's own parameter input (e.g. its
// rate) must participate in cycle detection.
func (g *Graph) RegisterDependency(node, dep any) {
	g.addEdge(node, dep)
}

func (g *Graph) addEdge(node, dep any) {
	set, ok := g.depends[node]
	if !ok {
		set = make(map[any]bool)
		g.depends[node] = set
	}
	set[dep] = true
}

func (g *Graph) removeEdge(node, dep any) {
	if set, ok := g.depends[node]; ok {
		delete(set, dep)
	}
}

// canReach reports whether there is a path from -> to in the depends
// graph (DFS), used to detect that adding an edge to->from would close a
// cycle.
func (g *Graph) canReach(from, to any) bool {
	visited := make(map[any]bool)
	var dfs func(n any) bool
	dfs = func(n any) bool {
		if n == to {
			return true
		}
		if visited[n] {
			return false
		}
		visited[n] = true
		for dep := range g.depends[n] {
			if dfs(dep) {
				return true
			}
		}
		return false
	}
	return dfs(from)
}

// AddModulation adds a compound-modulation edge. Fails with a CycleError
// if target already (transitively) feeds source.
func (g *Graph) AddModulation(source NumericSource, target *param.CompoundParam, amount float64, polarity param.Polarity) (*Modulation, error) {
	if amount < -1 || amount > 1 {
		return nil, enginerr.New(enginerr.InvalidCommand, fmt.Sprintf("modulation amount %v out of [-1,1]", amount))
	}
	if dep, ok := source.(dependent); ok {
		for _, d := range dep.Dependencies() {
			g.addEdge(source, d)
		}
	}
	if g.canReach(source, target) {
		return nil, enginerr.New(enginerr.CycleError, "modulation would introduce a cycle")
	}

	id := g.nextID
	g.nextID++
	mod := &Modulation{ID: id, Source: source, Target: target, Amount: amount, Polarity: polarity, Enabled: true}
	g.modulations[id] = mod
	g.targetsByParam[target] = append(g.targetsByParam[target], id)
	g.addEdge(target, source)
	target.SetContribution(param.ContributionID(id), mod.contribution())
	return mod, nil
}

// RemoveModulation deletes a compound-modulation edge and clears its
// contribution from the target.
func (g *Graph) RemoveModulation(id ModulationID) {
	mod, ok := g.modulations[id]
	if !ok {
		return
	}
	mod.Target.RemoveContribution(param.ContributionID(id))
	g.removeEdge(mod.Target, mod.Source)
	delete(g.modulations, id)
	ids := g.targetsByParam[mod.Target]
	for i, existing := range ids {
		if existing == id {
			g.targetsByParam[mod.Target] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
}

// AddTriggerModulation adds a trigger-modulation edge, subject to the same
// cycle prohibition.
func (g *Graph) AddTriggerModulation(source BoolSource, target *param.BoolParam, mode TriggerMode) (*TriggerModulation, error) {
	if g.canReach(source, target) {
		return nil, enginerr.New(enginerr.CycleError, "trigger modulation would introduce a cycle")
	}
	id := g.nextID
	g.nextID++
	tm := &TriggerModulation{ID: id, Source: source, Target: target, Mode: mode, Enabled: true}
	g.triggerMods[id] = tm
	g.addEdge(target, source)
	return tm, nil
}

// RemoveTriggerModulation deletes a trigger-modulation edge.
func (g *Graph) RemoveTriggerModulation(id ModulationID) {
	tm, ok := g.triggerMods[id]
	if !ok {
		return
	}
	g.removeEdge(tm.Target, tm.Source)
	delete(g.triggerMods, id)
}

// Tick runs one frame of graph evaluation, per spec.md §4.4:
//  1. tick all modulators in registration order,
//  2. recompute every compound parameter with at least one active
//     modulation,
//  3. fire trigger modulations on the source's rising edge.
func (g *Graph) Tick(dt time.Duration, reporter enginerr.Reporter) {
	for _, m := range g.modulators {
		tickModulatorSafely(m, dt, reporter)
	}

	for target, ids := range g.targetsByParam {
		if len(ids) == 0 {
			continue
		}
		for _, id := range ids {
			mod := g.modulations[id]
			target.SetContribution(param.ContributionID(id), mod.contribution())
		}
		target.Recompute()
	}

	for _, tm := range g.triggerMods {
		if !tm.Enabled {
			continue
		}
		cur := tm.Source.SourceBool()
		rising := cur && !tm.lastSource
		tm.lastSource = cur
		if !rising {
			continue
		}
		switch tm.Mode {
		case TriggerToggle:
			tm.Target.SetValue(!tm.Target.Value())
		default:
			tm.Target.SetValue(true)
		}
	}
}

func tickModulatorSafely(m Modulator, dt time.Duration, reporter enginerr.Reporter) {
	defer func() {
		if r := recover(); r != nil {
			if reporter != nil {
				reporter.Report(enginerr.CrashedModulator, fmt.Sprintf("modulator %q crashed: %v", m.Label(), r), "")
			}
			m.Stop()
		}
	}()
	m.Tick(dt)
}

// Modulators returns the registered modulators in registration order
// (used by persistence and UI listings).
func (g *Graph) Modulators() []Modulator {
	out := make([]Modulator, len(g.modulators))
	copy(out, g.modulators)
	return out
}

// ModulatorByLabel finds a registered modulator by its Label, the
// identity persistence uses to reference a modulation edge's source when
// that source is a modulator rather than another parameter (modulators
// carry no registry id of their own).
func (g *Graph) ModulatorByLabel(label string) (Modulator, bool) {
	for _, m := range g.modulators {
		if m.Label() == label {
			return m, true
		}
	}
	return nil, false
}

// Modulations returns all compound-modulation edges.
func (g *Graph) Modulations() map[ModulationID]*Modulation {
	return g.modulations
}

// TriggerModulations returns all trigger-modulation edges.
func (g *Graph) TriggerModulations() map[ModulationID]*TriggerModulation {
	return g.triggerMods
}
