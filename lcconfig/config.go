// Package lcconfig loads the engine's startup configuration from a YAML
// file, grounded on ilkoid-poncho-ai's pkg/config.Load: read the whole
// file, substitute ${VAR}/$VAR from the environment, unmarshal with
// gopkg.in/yaml.v3, then fill in defaults and validate.
package lcconfig

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root of a startup config file: the fixed engine
// properties that must be known before construction (point count, frame
// rate) plus the external-surface settings a host passes straight to the
// midi/osc/persist packages.
type Config struct {
	PointCount int     `yaml:"point_count"`
	FrameRate  float64 `yaml:"frame_rate"`

	Tempo      TempoConfig      `yaml:"tempo"`
	MIDI       MIDIConfig       `yaml:"midi"`
	OSC        OSCConfig        `yaml:"osc"`
	Persistence PersistConfig   `yaml:"persistence"`
}

type TempoConfig struct {
	BPM        float64 `yaml:"bpm"`
	TapWindow  string  `yaml:"tap_window"`
}

// MIDIConfig names the input/output ports a Surface connects to, by the
// strings drivers.In.String()/drivers.Out.String() report. The fields are
// only parsed: nothing in this module reads them or matches them against
// port names.
type MIDIConfig struct {
	InputPort  string `yaml:"input_port"`
	OutputPort string `yaml:"output_port"`
}

// OSCConfig is descriptive only: this module has no OSC transport (see
// the osc package doc comment), so ListenAddr is passed through untouched
// to whatever transport library a host wires in.
type OSCConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

type PersistConfig struct {
	ProjectPath  string `yaml:"project_path"`
	AutosaveSecs int    `yaml:"autosave_secs"`
}

// FrameInterval returns the configured frame rate as a tick interval,
// defaulting to 60fps if unset.
func (c *Config) FrameInterval() time.Duration {
	if c.FrameRate <= 0 {
		return time.Second / 60
	}
	return time.Duration(float64(time.Second) / c.FrameRate)
}

// TapWindowDuration parses Tempo.TapWindow, defaulting to 2s if unset or
// unparseable.
func (c *TempoConfig) TapWindowDuration() time.Duration {
	if c.TapWindow == "" {
		return 2 * time.Second
	}
	d, err := time.ParseDuration(c.TapWindow)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// Load reads path, expands environment references, unmarshals it, fills
// in defaults, and validates the result.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("lcconfig: read %s: %w", path, err)
	}

	expanded := os.ExpandEnv(string(raw))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("lcconfig: parse %s: %w", path, err)
	}

	// An explicitly written point_count is validated as given; only an
	// omitted one is defaulted.
	var present map[string]any
	if err := yaml.Unmarshal([]byte(expanded), &present); err == nil {
		if _, ok := present["point_count"]; ok && cfg.PointCount <= 0 {
			return nil, fmt.Errorf("lcconfig: %s: point_count must be positive, got %d", path, cfg.PointCount)
		}
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("lcconfig: %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.PointCount == 0 {
		c.PointCount = 150
	}
	if c.FrameRate == 0 {
		c.FrameRate = 60
	}
	if c.Tempo.BPM == 0 {
		c.Tempo.BPM = 120
	}
	if c.Persistence.AutosaveSecs == 0 {
		c.Persistence.AutosaveSecs = 60
	}
}

func (c *Config) validate() error {
	if c.PointCount <= 0 {
		return fmt.Errorf("point_count must be positive, got %d", c.PointCount)
	}
	if c.FrameRate <= 0 {
		return fmt.Errorf("frame_rate must be positive, got %g", c.FrameRate)
	}
	if c.Tempo.BPM <= 0 {
		return fmt.Errorf("tempo.bpm must be positive, got %g", c.Tempo.BPM)
	}
	return nil
}
