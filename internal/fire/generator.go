package fire

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/emberfield/pyre/internal/audio"
	"github.com/emberfield/pyre/internal/field"
	"github.com/emberfield/pyre/internal/layout"
	"github.com/emberfield/pyre/internal/palette"
)

// State tracks the generator lifecycle.
type State int

const (
	Uninitialized State = iota
	Ready
	Running
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Ready:
		return "ready"
	case Running:
		return "running"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ErrNotReady is returned by Update before a successful Begin.
var ErrNotReady = errors.New("fire: generator not initialized")

// Frame timing bounds. A stalled tick is clamped so one blocking hiccup
// cannot inject a giant cooling step; a too-fast tick is skipped as a
// frame-rate cap.
const (
	MaxFrameDt = 0.1   // seconds
	MinFrameDt = 0.001 // seconds
)

// emberFloor keeps a minimum effective energy so the fire never fully
// dies in silence.
const emberFloor = 0.03

// Config selects the generator kind and geometry. One of three closed
// kinds results: matrix fire (height > 1), linear fire (height == 1),
// or scattered fire (scattered topology over either grid shape).
type Config struct {
	Width       int
	Height      int
	Topology    layout.Topology
	ScatterSeed int64
	WrapX       bool
	// Seed fixes the simulation RNG; frame sequences are reproducible
	// for a given seed and audio input.
	Seed int64
}

// Generator orchestrates the heat field, audio envelope, palette and
// layout mapping into an output color buffer, once per tick.
//
// It is not safe for concurrent use; one goroutine owns a generator.
type Generator struct {
	state   State
	field   field.Field
	env     *audio.Envelope
	mapping *layout.Mapping
	pal     palette.Palette
	params  Params
	rng     *rand.Rand
	buf     []palette.RGB

	beatCount int
}

// New returns an uninitialized generator reading audio from env.
func New(env *audio.Envelope) *Generator {
	return &Generator{
		env:    env,
		params: DefaultParams(),
	}
}

// Begin allocates the heat field and builds the layout mapping,
// transitioning Uninitialized -> Ready. On failure the generator stays
// Uninitialized and the caller should disable this instance; other
// generators sharing the process are unaffected.
func (g *Generator) Begin(cfg Config) error {
	seed := cfg.ScatterSeed
	if seed == 0 {
		seed = layout.DefaultScatterSeed
	}
	m, err := layout.BuildSeeded(cfg.Topology, cfg.Width, cfg.Height, seed)
	if err != nil {
		return err
	}
	if err := g.field.Begin(cfg.Width, cfg.Height); err != nil {
		return err
	}
	g.field.SetWrapX(cfg.WrapX)
	g.mapping = m
	if cfg.Height == 1 {
		g.pal = palette.Linear{}
	} else {
		g.pal = palette.Matrix{}
	}
	g.rng = rand.New(rand.NewSource(cfg.Seed))
	g.buf = make([]palette.RGB, m.Count())
	g.beatCount = 0
	g.state = Ready
	return nil
}

// State returns the lifecycle state.
func (g *Generator) State() State { return g.state }

// Count returns the number of physical LEDs.
func (g *Generator) Count() int {
	if g.mapping == nil {
		return 0
	}
	return g.mapping.Count()
}

// Update advances the simulation by dt seconds and re-renders the output
// buffer. The first call after Begin or Reset establishes the time
// baseline with an effective dt of zero. Ticks shorter than MinFrameDt
// are skipped (frame-rate cap); ticks longer than MaxFrameDt are clamped.
func (g *Generator) Update(dt float32) error {
	switch g.state {
	case Uninitialized:
		return ErrNotReady
	case Ready:
		g.state = Running
		dt = 0
	default:
		if dt < MinFrameDt {
			return nil // throttled, not an error
		}
		if dt > MaxFrameDt {
			dt = MaxFrameDt
		}
	}

	boosted := g.effectiveEnergy()

	cooling := g.params.BaseCooling + g.params.CoolingAudioBias*boosted
	if cooling < 0 {
		cooling = 0
	}
	g.field.Cool(cooling, g.params.CoolingVariance, dt, g.rng)
	g.field.Diffuse()

	count, heatMin, heatMax := g.planSparks(boosted)
	g.field.InjectSparks(count, heatMin, heatMax, g.params.BottomRows, g.rng)

	g.render()
	return nil
}

// effectiveEnergy folds the transient pulse into the smoothed energy and
// applies the ember floor.
func (g *Generator) effectiveEnergy() float32 {
	pulse := g.env.Pulse
	if pulse > 1 {
		pulse = 1
	}
	e := g.env.Energy * (1 + pulse*g.params.TransientHeatMax/255)
	if e < emberFloor {
		e = emberFloor
	}
	if e > 1 {
		e = 1
	}
	return e
}

// planSparks decides this tick's spark count and heat range. With a
// locked rhythm, bursts ride detected beats and every 4th beat doubles;
// otherwise spawning follows the raw transient level. A baseline chance
// always applies so silence still flickers.
func (g *Generator) planSparks(boosted float32) (count int, heatMin, heatMax float32) {
	p := g.params
	chance := p.SparkChance

	if g.env.HasRhythm() {
		if g.env.BeatDetected() {
			g.beatCount++
			burst := p.BurstSparks + int(boosted*float32(p.BurstSparks))
			if g.beatCount%4 == 0 {
				burst *= 2
			}
			count += burst
		}
	} else {
		pulse := g.env.Pulse
		if pulse > 1 {
			pulse = 1
		}
		chance += (boosted + pulse) * p.AudioSparkBoost
		if chance > 1 {
			chance = 1
		}
	}

	// Baseline probabilistic spawning across the ignition cells.
	cells := g.sparkCells()
	expect := chance * float32(cells)
	count += int(expect)
	if frac := expect - float32(math.Floor(float64(expect))); g.rng.Float32() < frac {
		count++
	}

	heatMin = p.SparkHeatMin
	heatMax = p.SparkHeatMax + boosted*p.AudioHeatBoostMax
	if heatMax > field.HeatMax {
		heatMax = field.HeatMax
	}
	return count, heatMin, heatMax
}

func (g *Generator) sparkCells() int {
	if g.field.Height() == 1 {
		if g.params.BottomRows < g.field.Width() {
			return g.params.BottomRows
		}
		return g.field.Width()
	}
	rows := g.params.BottomRows
	if rows > g.field.Height() {
		rows = g.field.Height()
	}
	return rows * g.field.Width()
}

// render maps every physical LED through the layout tables and palette.
func (g *Generator) render() {
	for i := range g.buf {
		x, y := g.mapping.ToLogical(i)
		g.buf[i] = g.pal.Heat(g.field.At(x, y))
	}
}

// Frame returns the output color buffer, indexed by physical LED. The
// slice is reused every tick; callers needing a snapshot must copy.
func (g *Generator) Frame() []palette.RGB { return g.buf }

// Reset returns a Running generator to Ready: heat and audio smoothing
// memory are cleared, parameters survive.
func (g *Generator) Reset() {
	if g.state == Uninitialized {
		return
	}
	g.field.Reset()
	g.env.Reset()
	g.beatCount = 0
	g.state = Ready
}

// SetParams installs new tuning values, silently clamped into range.
func (g *Generator) SetParams(p Params) {
	p.Clamp()
	g.params = p
}

// Params returns the current tuning values.
func (g *Generator) Params() Params { return g.params }

// RestoreDefaults resets tuning to the authoritative defaults.
func (g *Generator) RestoreDefaults() {
	g.params = DefaultParams()
}

// HeatAt exposes the heat grid for the debug console. Out-of-range
// coordinates read as zero.
func (g *Generator) HeatAt(x, y int) float32 { return g.field.At(x, y) }

// ClearHeat zeroes the heat grid without touching lifecycle or params.
func (g *Generator) ClearHeat() { g.field.Reset() }

// AverageHeat returns the mean heat across the grid.
func (g *Generator) AverageHeat() float32 { return g.field.Average() }

// ActiveCount returns how many cells exceed thresh.
func (g *Generator) ActiveCount(thresh float32) int { return g.field.ActiveCount(thresh) }

// Mapping returns the layout mapping built at Begin, or nil before it.
func (g *Generator) Mapping() *layout.Mapping { return g.mapping }
