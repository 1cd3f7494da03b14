package led

import (
	"math"

	"github.com/emberfield/pyre/internal/palette"
)

// LUT is a precomputed brightness+gamma transfer table applied to every
// channel before a frame reaches the driver. Cheap LED strips bloom
// badly at full drive; the original installations capped output well
// below 100%.
type LUT struct {
	table [256]byte
}

// NewLUT builds a transfer table. brightness is a 0..1 output cap; gamma
// of 1 disables correction (2.2 is the usual choice for WS281x strips).
func NewLUT(brightness, gamma float64) *LUT {
	if brightness < 0 {
		brightness = 0
	}
	if brightness > 1 {
		brightness = 1
	}
	if gamma <= 0 {
		gamma = 1
	}
	l := &LUT{}
	for v := 0; v < 256; v++ {
		x := float64(v) / 255
		y := math.Pow(x, gamma) * brightness * 255
		l.table[v] = byte(y + 0.5)
	}
	return l
}

// Apply converts a color frame into the flat byte layout drivers accept,
// running every channel through the transfer table. dst must hold
// 3*len(frame) bytes.
func (l *LUT) Apply(frame []palette.RGB, dst []byte) {
	for i, c := range frame {
		dst[i*3+0] = l.table[c.R]
		dst[i*3+1] = l.table[c.G]
		dst[i*3+2] = l.table[c.B]
	}
}
