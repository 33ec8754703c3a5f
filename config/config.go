// Package config loads the engine configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("config: invalid")

// Config is the whole engine configuration. Zero sections are filled from Default.
type Config struct {
	Log        Log        `yaml:"log"`
	Frames     Frames     `yaml:"frames"`
	Terrain    Terrain    `yaml:"terrain"`
	Animation  Animation  `yaml:"animation"`
	Extraction Extraction `yaml:"extraction"`
	Simulation Simulation `yaml:"simulation"`
}

type Log struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Encoding is json or console.
	Encoding    string `yaml:"encoding"`
	Development bool   `yaml:"development"`
	Sampling    bool   `yaml:"sampling"`
}

type Frames struct {
	// InFlight is the number of per-frame resource slots.
	InFlight int `yaml:"in_flight"`
	// Max stops the engine after this many frames. Zero runs until interrupted.
	Max uint64 `yaml:"max"`
}

// Terrain describes the generated test terrain used by the commands.
type Terrain struct {
	Nodes     int32   `yaml:"nodes"`
	CellSize  float32 `yaml:"cell_size"`
	Amplitude float32 `yaml:"amplitude"`
}

type Animation struct {
	BlendTicks uint32 `yaml:"blend_ticks"`
	// Defs is an optional sequencer definitions file.
	Defs string `yaml:"defs"`
}

type Extraction struct {
	Concurrent bool `yaml:"concurrent"`
}

type Simulation struct {
	Tick          time.Duration `yaml:"tick"`
	SlowSystem    time.Duration `yaml:"slow_system"`
	TimeOfDayRate float32       `yaml:"time_of_day_rate"`
	Width         int           `yaml:"width"`
	Height        int           `yaml:"height"`
}

func Default() Config {
	return Config{
		Log: Log{
			Level:    "info",
			Encoding: "console",
			Sampling: true,
		},
		Frames: Frames{InFlight: 3},
		Terrain: Terrain{
			Nodes:     129,
			CellSize:  2,
			Amplitude: 12,
		},
		Animation:  Animation{BlendTicks: 200},
		Extraction: Extraction{Concurrent: true},
		Simulation: Simulation{
			Tick:          time.Second / 60,
			SlowSystem:    4 * time.Millisecond,
			TimeOfDayRate: 0.05,
			Width:         1280,
			Height:        720,
		},
	}
}

// Load decodes YAML on top of the defaults. Unknown keys are an error.
func Load(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func LoadFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()

	cfg, err := Load(f)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
		}
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		check(false, "log.level %q", c.Log.Level)
	}
	check(c.Log.Encoding == "json" || c.Log.Encoding == "console", "log.encoding %q", c.Log.Encoding)
	check(c.Frames.InFlight >= 1, "frames.in_flight must be at least 1, got %d", c.Frames.InFlight)
	check(c.Terrain.Nodes >= 2, "terrain.nodes must be at least 2, got %d", c.Terrain.Nodes)
	check(c.Terrain.CellSize > 0, "terrain.cell_size must be positive, got %g", c.Terrain.CellSize)
	check(c.Simulation.Tick > 0, "simulation.tick must be positive, got %s", c.Simulation.Tick)
	check(c.Simulation.SlowSystem >= 0, "simulation.slow_system must not be negative, got %s", c.Simulation.SlowSystem)
	check(c.Simulation.Width > 0 && c.Simulation.Height > 0, "simulation viewport %dx%d", c.Simulation.Width, c.Simulation.Height)
	return errors.Join(errs...)
}
