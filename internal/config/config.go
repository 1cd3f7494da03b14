package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/emberfield/pyre/internal/fire"
	"github.com/emberfield/pyre/internal/layout"
)

// SerialCfg configures the serial-attached strip driver.
type SerialCfg struct {
	Dev  string `yaml:"dev"`  // e.g. /dev/ttyACM0
	Baud int    `yaml:"baud"` // e.g. 921600
}

// AudioCfg configures the audio intake.
type AudioCfg struct {
	Backend string  `yaml:"backend"` // analyzer capture backend
	Device  string  `yaml:"device"`  // capture device name
	Bins    int     `yaml:"bins"`
	Gain    float64 `yaml:"gain"`
	Queue   int     `yaml:"queue"` // pending-sample capacity
}

// Config is the static device description, loaded once before the
// generator starts. It is never re-parsed per frame.
type Config struct {
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	Topology    string `yaml:"topology"` // row-major | zigzag-columns | linear | scattered
	ScatterSeed int64  `yaml:"scatter_seed,omitempty"`
	WrapX       bool   `yaml:"wrap_x,omitempty"`

	FPS        int     `yaml:"fps"`
	Brightness float64 `yaml:"brightness"`
	Gamma      float64 `yaml:"gamma"`

	Driver string    `yaml:"driver"` // spi | serial | sim
	Serial SerialCfg `yaml:"serial,omitempty"`

	Audio AudioCfg `yaml:"audio,omitempty"`

	// Fire overrides the default tuning set. Default() seeds this with
	// DefaultParams, so a partial YAML block only overrides the fields
	// it names.
	Fire *fire.Params `yaml:"fire,omitempty"`

	Addr string `yaml:"addr"` // debug console listen address
}

// Default returns a runnable baseline configuration.
func Default() *Config {
	fp := fire.DefaultParams()
	return &Config{
		Fire: &fp,
		Width:      16,
		Height:     8,
		Topology:   string(layout.RowMajor),
		FPS:        60,
		Brightness: 0.75,
		Gamma:      2.2,
		Driver:     "sim",
		Serial:     SerialCfg{Dev: "/dev/ttyACM0", Baud: 921600},
		Audio:      AudioCfg{Bins: 32, Gain: 1.0, Queue: 64},
		Addr:       ":8080",
	}
}

// Load reads and validates a YAML config file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "config: read")
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, errors.Wrap(err, "config: parse")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Save writes the config back out as YAML.
func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "config: marshal")
	}
	return errors.Wrap(os.WriteFile(path, b, 0644), "config: write")
}

// Validate rejects geometry and topology mistakes that Begin would also
// reject, but with file-level context.
func (c *Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return errors.Errorf("config: invalid geometry %dx%d", c.Width, c.Height)
	}
	if _, err := layout.ParseTopology(c.Topology); err != nil {
		return errors.Wrap(err, "config")
	}
	if c.FPS < 1 || c.FPS > 240 {
		return errors.Errorf("config: fps %d out of range", c.FPS)
	}
	switch c.Driver {
	case "spi", "serial", "sim":
	default:
		return errors.Errorf("config: unknown driver %q", c.Driver)
	}
	return nil
}

// FireParams resolves the effective tuning set: defaults overlaid with
// any file overrides, clamped into range.
func (c *Config) FireParams() fire.Params {
	p := fire.DefaultParams()
	if c.Fire != nil {
		p = *c.Fire
	}
	p.Clamp()
	return p
}

// GeneratorConfig maps the file onto the generator's Config.
func (c *Config) GeneratorConfig(seed int64) fire.Config {
	topo, _ := layout.ParseTopology(c.Topology)
	return fire.Config{
		Width:       c.Width,
		Height:      c.Height,
		Topology:    topo,
		ScatterSeed: c.ScatterSeed,
		WrapX:       c.WrapX,
		Seed:        seed,
	}
}
