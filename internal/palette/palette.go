package palette

// RGB is one LED color triplet.
type RGB struct {
	R, G, B uint8
}

// Palette maps a heat value in [0, 255] onto a color. Implementations
// must be monotone in perceived brightness and return black at zero heat.
type Palette interface {
	Heat(h float32) RGB
}

// Matrix is the five-segment fire ramp used by 2-D panels:
// black, dark red, red, orange, yellow, white-hot.
type Matrix struct{}

// Linear is the simpler three-segment ramp used by 1-D strings:
// black, red, orange, yellow. No blue channel at all, which reads better
// on sparse strips.
type Linear struct{}

var (
	_ Palette = Matrix{}
	_ Palette = Linear{}
)

// Segment boundaries for the matrix ramp, as fractions of full heat.
const (
	darkRedEnd = 0.15
	redEnd     = 0.40
	orangeEnd  = 0.70
	yellowEnd  = 0.90
)

// Heat implements Palette.
func (Matrix) Heat(h float32) RGB {
	n := normalize(h)
	switch {
	case n <= darkRedEnd:
		t := n / darkRedEnd
		return RGB{R: scale(t, 0, 120), G: scale(t, 0, 15)}
	case n <= redEnd:
		t := (n - darkRedEnd) / (redEnd - darkRedEnd)
		return RGB{R: scale(t, 120, 255), G: scale(t, 15, 40)}
	case n <= orangeEnd:
		t := (n - redEnd) / (orangeEnd - redEnd)
		return RGB{R: 255, G: scale(t, 40, 165), B: scale(t, 0, 20)}
	case n <= yellowEnd:
		t := (n - orangeEnd) / (yellowEnd - orangeEnd)
		return RGB{R: 255, G: scale(t, 165, 255), B: scale(t, 20, 50)}
	default:
		t := (n - yellowEnd) / (1 - yellowEnd)
		return RGB{R: 255, G: 255, B: scale(t, 50, 255)}
	}
}

// Heat implements Palette.
func (Linear) Heat(h float32) RGB {
	v := clampHeat(h)
	switch {
	case v <= 80:
		// dark ember glow
		return RGB{R: sat(v * 3), G: sat(v / 8)}
	case v <= 170:
		return RGB{R: sat(240 + (v - 80)), G: sat(10 + (v-80)*2)}
	default:
		return RGB{R: 255, G: sat(190 + (v-170)*0.77)}
	}
}

// Luma returns an approximate perceived brightness for c, used by tests
// to check ramp monotonicity.
func Luma(c RGB) float32 {
	return 0.299*float32(c.R) + 0.587*float32(c.G) + 0.114*float32(c.B)
}

func normalize(h float32) float32 {
	return clampHeat(h) / 255
}

func clampHeat(h float32) float32 {
	if h < 0 {
		return 0
	}
	if h > 255 {
		return 255
	}
	return h
}

// scale linearly interpolates a channel from lo to hi, saturating at 255.
func scale(t, lo, hi float32) uint8 {
	return sat(lo + t*(hi-lo))
}

func sat(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
