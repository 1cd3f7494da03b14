package layout

import (
	"fmt"
	"math/rand"
)

// Topology names the physical wiring order of a strip relative to the
// logical grid. Values match the YAML config strings.
type Topology string

const (
	// RowMajor wires LEDs left-to-right, row by row.
	RowMajor Topology = "row-major"
	// ZigzagColumns snakes the strip up one column and down the next:
	// even columns run top-to-bottom, odd columns reversed.
	ZigzagColumns Topology = "zigzag-columns"
	// Linear is a plain 1-D strip; logical index equals physical index.
	Linear Topology = "linear"
	// Scattered is a fixed pseudo-random permutation for point clouds.
	// The permutation is seeded once so layouts stay stable across frames.
	Scattered Topology = "scattered"
)

// DefaultScatterSeed keeps scattered layouts reproducible when the config
// does not pin its own seed.
const DefaultScatterSeed int64 = 0x5eed

// Sentinel returned for out-of-range lookups.
const Invalid = -1

// Mapping is the immutable bijection between logical grid positions and
// physical LED indices. Built once at startup; lookups are table reads.
type Mapping struct {
	topo   Topology
	width  int
	height int

	posToIdx []int // logical y*width+x -> physical index
	idxToX   []int // physical index -> logical x
	idxToY   []int // physical index -> logical y
}

// Build constructs the mapping for topo over a width x height grid,
// using DefaultScatterSeed for scattered layouts.
func Build(topo Topology, width, height int) (*Mapping, error) {
	return BuildSeeded(topo, width, height, DefaultScatterSeed)
}

// BuildSeeded is Build with an explicit scatter seed. The seed only
// affects the Scattered topology.
func BuildSeeded(topo Topology, width, height int, seed int64) (*Mapping, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("layout: non-positive dimensions %dx%d", width, height)
	}
	if topo == Linear && height != 1 {
		return nil, fmt.Errorf("layout: linear topology requires height 1, got %d", height)
	}

	n := width * height
	m := &Mapping{
		topo:     topo,
		width:    width,
		height:   height,
		posToIdx: make([]int, n),
		idxToX:   make([]int, n),
		idxToY:   make([]int, n),
	}

	switch topo {
	case RowMajor, Linear:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				m.place(x, y, y*width+x)
			}
		}
	case ZigzagColumns:
		for x := 0; x < width; x++ {
			for y := 0; y < height; y++ {
				idx := x*height + y
				if x%2 == 1 {
					idx = x*height + (height - 1 - y)
				}
				m.place(x, y, idx)
			}
		}
	case Scattered:
		perm := rand.New(rand.NewSource(seed)).Perm(n)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				m.place(x, y, perm[y*width+x])
			}
		}
	default:
		return nil, fmt.Errorf("layout: unknown topology %q", topo)
	}

	return m, nil
}

func (m *Mapping) place(x, y, idx int) {
	m.posToIdx[y*m.width+x] = idx
	m.idxToX[idx] = x
	m.idxToY[idx] = y
}

// Topology returns the topology tag this mapping was built from.
func (m *Mapping) Topology() Topology { return m.topo }

// Width returns the logical grid width.
func (m *Mapping) Width() int { return m.width }

// Height returns the logical grid height.
func (m *Mapping) Height() int { return m.height }

// Count returns the number of physical LEDs.
func (m *Mapping) Count() int { return len(m.posToIdx) }

// ToPhysical returns the physical LED index for logical (x, y), or
// Invalid when the coordinates fall outside the grid.
func (m *Mapping) ToPhysical(x, y int) int {
	if x < 0 || x >= m.width || y < 0 || y >= m.height {
		return Invalid
	}
	return m.posToIdx[y*m.width+x]
}

// ToLogical returns the logical coordinates for physical index i, or
// (Invalid, Invalid) when i is out of range.
func (m *Mapping) ToLogical(i int) (x, y int) {
	if i < 0 || i >= len(m.idxToX) {
		return Invalid, Invalid
	}
	return m.idxToX[i], m.idxToY[i]
}

// Wrap maps coord onto [0, extent), always non-negative. Diffusion and
// spark code use it for toroidal neighbor lookups regardless of this
// mapping's own boundary policy.
func Wrap(coord, extent int) int {
	if extent <= 0 {
		return 0
	}
	w := coord % extent
	if w < 0 {
		w += extent
	}
	return w
}

// ParseTopology validates a config string and returns its Topology.
func ParseTopology(s string) (Topology, error) {
	switch Topology(s) {
	case RowMajor, ZigzagColumns, Linear, Scattered:
		return Topology(s), nil
	}
	return "", fmt.Errorf("layout: unknown topology %q", s)
}
