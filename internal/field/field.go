package field

import (
	"errors"
	"fmt"
	"math/rand"
)

// HeatMax is the upper bound of the heat domain. Cell values live in
// [0, HeatMax]; the palettes map that range onto the fire gradient.
const HeatMax = 255.0

// MaxCells caps the grid allocation. The simulation targets small embedded
// panels; anything past this is a configuration mistake, not a real layout.
const MaxCells = 1 << 16

var (
	// ErrGeometry is returned by Begin for non-positive dimensions.
	ErrGeometry = errors.New("field: non-positive dimensions")
	// ErrAllocation is returned by Begin when the requested grid exceeds
	// the fixed memory budget.
	ErrAllocation = errors.New("field: grid exceeds cell budget")
)

// Field is a dense grid of heat values, one float32 per logical cell.
// y=0 is the heat source row (the bottom of the flame); diffusion pulls
// heat upward toward y=height-1. A height of 1 degenerates to a linear
// strip where heat spreads laterally instead.
//
// The grid and its diffusion scratch buffer are allocated once in Begin
// and reused every tick.
type Field struct {
	width   int
	height  int
	cells   []float32
	scratch []float32

	// wrapX treats the X axis as a ring. Used by cylindrical matrices
	// where column w-1 is physically adjacent to column 0.
	wrapX bool
}

// Begin allocates (or reallocates) the grid and clears it to zero.
func (f *Field) Begin(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrGeometry, width, height)
	}
	n := width * height
	if n > MaxCells {
		return fmt.Errorf("%w: %d cells (max %d)", ErrAllocation, n, MaxCells)
	}
	f.width = width
	f.height = height
	f.cells = make([]float32, n)
	f.scratch = make([]float32, n)
	return nil
}

// SetWrapX enables or disables toroidal wrapping along X.
func (f *Field) SetWrapX(wrap bool) { f.wrapX = wrap }

// Width returns the grid width.
func (f *Field) Width() int { return f.width }

// Height returns the grid height.
func (f *Field) Height() int { return f.height }

// Reset clears every cell to zero without reallocating.
func (f *Field) Reset() {
	for i := range f.cells {
		f.cells[i] = 0
	}
}

// At returns the heat at (x, y), or 0 for out-of-range coordinates.
func (f *Field) At(x, y int) float32 {
	if x < 0 || x >= f.width || y < 0 || y >= f.height {
		return 0
	}
	return f.cells[y*f.width+x]
}

// Set stores h at (x, y), clamped into [0, HeatMax]. Out-of-range
// coordinates are ignored.
func (f *Field) Set(x, y int, h float32) {
	if x < 0 || x >= f.width || y < 0 || y >= f.height {
		return
	}
	f.cells[y*f.width+x] = clampHeat(h)
}

// Add adds h at (x, y) with saturation at HeatMax.
func (f *Field) Add(x, y int, h float32) {
	if x < 0 || x >= f.width || y < 0 || y >= f.height {
		return
	}
	i := y*f.width + x
	f.cells[i] = clampHeat(f.cells[i] + h)
}

// Cool subtracts a per-cell random amount drawn from
// [0, rateBase+rateVariance), scaled by dt seconds and floored at zero.
// Each cell draws its own value; sharing one draw across the row produces
// visible banding.
func (f *Field) Cool(rateBase, rateVariance float32, dt float32, rng *rand.Rand) {
	if rateBase < 0 {
		rateBase = 0
	}
	if rateVariance < 0 {
		rateVariance = 0
	}
	for i := range f.cells {
		loss := (rateBase + rng.Float32()*rateVariance) * dt
		v := f.cells[i] - loss
		if v < 0 {
			v = 0
		}
		f.cells[i] = v
	}
}

// Diffuse replaces every cell with a weighted average of itself, the one
// and two cells toward the source, and its lateral neighbors. Weights are
// normalized by the neighbors actually present, so a uniform field is a
// fixed point and total heat is approximately conserved. Edge cells use a
// reduced stencil unless wrapX is set.
//
// For height==1 fields the stencil is purely lateral.
func (f *Field) Diffuse() {
	if f.height == 1 {
		f.diffuseLinear()
		return
	}
	copy(f.scratch, f.cells)
	w, h := f.width, f.height
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum := f.scratch[y*w+x] * 4
			div := float32(4)
			if y >= 1 {
				sum += f.scratch[(y-1)*w+x] * 2
				div += 2
			}
			if y >= 2 {
				sum += f.scratch[(y-2)*w+x]
				div++
			}
			if xl, ok := f.lateral(x, -1); ok {
				sum += f.scratch[y*w+xl]
				div++
			}
			if xr, ok := f.lateral(x, +1); ok {
				sum += f.scratch[y*w+xr]
				div++
			}
			f.cells[y*w+x] = sum / div
		}
	}
}

// diffuseLinear spreads heat to immediate neighbors along the strip.
func (f *Field) diffuseLinear() {
	copy(f.scratch, f.cells)
	w := f.width
	for x := 0; x < w; x++ {
		sum := f.scratch[x] * 4
		div := float32(4)
		if xl, ok := f.lateral(x, -1); ok {
			sum += f.scratch[xl]
			div++
		}
		if xr, ok := f.lateral(x, +1); ok {
			sum += f.scratch[xr]
			div++
		}
		f.cells[x] = sum / div
	}
}

func (f *Field) lateral(x, d int) (int, bool) {
	n := x + d
	if n >= 0 && n < f.width {
		return n, true
	}
	if f.wrapX {
		return Wrap(n, f.width), true
	}
	return 0, false
}

// InjectSparks adds count random heat injections in [heatMin, heatMax),
// confined to the bottom rows of the grid. Linear fields (height 1)
// confine sparks to the first rows cells at the origin end instead.
// Additions saturate at HeatMax.
func (f *Field) InjectSparks(count int, heatMin, heatMax float32, rows int, rng *rand.Rand) {
	if count <= 0 {
		return
	}
	if heatMax < heatMin {
		heatMin, heatMax = heatMax, heatMin
	}
	if rows < 1 {
		rows = 1
	}
	for i := 0; i < count; i++ {
		heat := heatMin + rng.Float32()*(heatMax-heatMin)
		if f.height == 1 {
			r := rows
			if r > f.width {
				r = f.width
			}
			f.Add(rng.Intn(r), 0, heat)
			continue
		}
		r := rows
		if r > f.height {
			r = f.height
		}
		f.Add(rng.Intn(f.width), rng.Intn(r), heat)
	}
}

// Sum returns the total heat across the grid.
func (f *Field) Sum() float32 {
	var s float32
	for _, v := range f.cells {
		s += v
	}
	return s
}

// Average returns the mean heat across the grid.
func (f *Field) Average() float32 {
	if len(f.cells) == 0 {
		return 0
	}
	return f.Sum() / float32(len(f.cells))
}

// ActiveCount returns the number of cells hotter than thresh.
func (f *Field) ActiveCount(thresh float32) int {
	c := 0
	for _, v := range f.cells {
		if v > thresh {
			c++
		}
	}
	return c
}

// Wrap maps coord onto [0, extent) with a non-negative result, for
// callers that need toroidal neighbor lookups.
func Wrap(coord, extent int) int {
	if extent <= 0 {
		return 0
	}
	m := coord % extent
	if m < 0 {
		m += extent
	}
	return m
}

func clampHeat(h float32) float32 {
	if h < 0 {
		return 0
	}
	if h > HeatMax {
		return HeatMax
	}
	return h
}
