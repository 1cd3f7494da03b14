package selftest

import (
	"github.com/emberfield/pyre/internal/palette"
)

// Kind selects a hardware verification pattern.
type Kind string

const (
	None Kind = ""
	// IndexSweep lights one LED at a time in physical order; mismatched
	// wiring shows up as the dot jumping around.
	IndexSweep Kind = "index_sweep"
	// RGBChannels cycles all LEDs through pure red, green, blue.
	RGBChannels Kind = "rgb_channels"
	// AllOn drives every LED white to check the power budget.
	AllOn Kind = "all_on"
	// PaletteRamp sweeps the fire ramp across the strip.
	PaletteRamp Kind = "palette_ramp"
)

// Plan describes one test run.
type Plan struct {
	Kind Kind
}

// Runner steps a test pattern across frames, replacing the simulation
// output while active.
type Runner struct {
	plan Plan
	step int
}

// NewRunner returns a runner for the given plan.
func NewRunner(plan Plan) *Runner { return &Runner{plan: plan} }

// Kind returns the active pattern kind.
func (r *Runner) Kind() Kind { return r.plan.Kind }

// Step fills rgb (len 3*n) with the next pattern frame and reports
// whether the test is still running.
func (r *Runner) Step(rgb []byte) bool {
	n := len(rgb) / 3
	for i := range rgb {
		rgb[i] = 0
	}

	switch r.plan.Kind {
	case IndexSweep:
		if r.step >= n {
			return false
		}
		rgb[r.step*3+0], rgb[r.step*3+1], rgb[r.step*3+2] = 255, 255, 255

	case RGBChannels:
		if r.step >= 3 {
			return false
		}
		for i := 0; i < n; i++ {
			rgb[i*3+r.step] = 255
		}

	case AllOn:
		if r.step >= 1 {
			return false
		}
		for i := range rgb {
			rgb[i] = 255
		}

	case PaletteRamp:
		if r.step >= n {
			return false
		}
		pal := palette.Matrix{}
		for i := 0; i < n; i++ {
			// Ramp rotates one LED per frame.
			h := float32((i+r.step)%n) / float32(n) * 255
			c := pal.Heat(h)
			rgb[i*3+0], rgb[i*3+1], rgb[i*3+2] = c.R, c.G, c.B
		}

	default:
		return false
	}
	r.step++
	return true
}
