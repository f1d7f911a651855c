// Package persist implements the engine's structured save/load format:
// spec.md §6's single document with `version`/`timestamp`/`engine`/
// `externals` top-level keys, serialized with gopkg.in/yaml.v3 (the same
// library ilkoid-poncho-ai's pkg/config uses for its own structured
// documents — the only YAML library anywhere in the retrieval pack).
//
// Concrete pattern and effect implementations are external collaborators
// (spec.md §1 Non-goals): this package reconstructs them only through a
// host-supplied class registry, falling back to an inert placeholder
// pattern/effect — tagged with the original serialized blob so an
// untouched edit-and-resave cycle reproduces it byte-for-byte — when a
// serialized class isn't registered (spec.md §7's InstantiationError).
package persist

// Document is the top-level save file.
type Document struct {
	Version   int            `yaml:"version"`
	Timestamp string         `yaml:"timestamp"`
	Engine    EngineDoc      `yaml:"engine"`
	Externals map[string]any `yaml:"externals,omitempty"`
}

// EngineDoc mirrors spec.md §6's `engine` key exactly.
type EngineDoc struct {
	Palette    map[string]any           `yaml:"palette,omitempty"`
	Channels   []*ComponentDoc          `yaml:"channels"`
	Master     *ComponentDoc            `yaml:"master"`
	Tempo      map[string]any           `yaml:"tempo,omitempty"`
	Audio      map[string]any           `yaml:"audio,omitempty"`
	Output     map[string]any           `yaml:"output,omitempty"`
	Components map[string]*ComponentDoc `yaml:"components,omitempty"`
	Modulation []ModulationDoc          `yaml:"modulation,omitempty"`
	OSC        map[string]any           `yaml:"osc,omitempty"`
	MIDI       map[string]any           `yaml:"midi,omitempty"`
}

// ComponentDoc is the serialized form of one engine.Component: a stable
// id, its class (drives InstantiationError lookups on load), a packed
// modulation-color UI hint, a primitive internal-state map, a primitive
// parameter map, path-addressed nested children, and index-addressed
// child arrays — the exact shape spec.md §6 names.
type ComponentDoc struct {
	ID              int64                      `yaml:"id"`
	Class           string                     `yaml:"class"`
	ModulationColor uint32                     `yaml:"modulationColor,omitempty"`
	Internal        map[string]any             `yaml:"internal,omitempty"`
	Parameters      map[string]any             `yaml:"parameters,omitempty"`
	Children        map[string]*ComponentDoc   `yaml:"children,omitempty"`
	ChildArrays     map[string][]*ComponentDoc `yaml:"childArrays,omitempty"`
}

// ModulationDoc is the serialized form of one modulation edge. A source is
// either a named modulator (ModulatorLabel, resolved via
// modulation.Graph.ModulatorByLabel — a Modulator has no registry identity
// of its own, see command.AddModulationCommand) or another parameter
// (SourceOwner/SourcePath, a component handle); exactly one is set.
// Trigger distinguishes a boolean TriggerModulation (Target is a
// param.BoolParam) from a numeric Modulation (Target is a
// param.CompoundParam).
type ModulationDoc struct {
	ModulatorLabel string  `yaml:"modulatorLabel,omitempty"`
	SourceOwner    int64   `yaml:"sourceOwner,omitempty"`
	SourcePath     string  `yaml:"sourcePath,omitempty"`
	TargetOwner    int64   `yaml:"targetOwner"`
	TargetPath     string  `yaml:"targetPath"`
	Amount         float64 `yaml:"amount,omitempty"`
	Polarity       int     `yaml:"polarity,omitempty"`
	Trigger        bool    `yaml:"trigger,omitempty"`
	TriggerMode    int     `yaml:"triggerMode,omitempty"`
}
