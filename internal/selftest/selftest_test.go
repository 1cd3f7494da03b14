package selftest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndexSweepVisitsEveryLED(t *testing.T) {
	r := NewRunner(Plan{Kind: IndexSweep})
	rgb := make([]byte, 4*3)
	for i := 0; i < 4; i++ {
		assert.True(t, r.Step(rgb), "frame %d", i)
		lit := 0
		for led := 0; led < 4; led++ {
			if rgb[led*3] != 0 {
				lit++
				assert.Equal(t, i, led)
			}
		}
		assert.Equal(t, 1, lit)
	}
	assert.False(t, r.Step(rgb), "sweep ends after n frames")
}

func TestRGBChannelsCycle(t *testing.T) {
	r := NewRunner(Plan{Kind: RGBChannels})
	rgb := make([]byte, 2*3)
	for ch := 0; ch < 3; ch++ {
		assert.True(t, r.Step(rgb))
		for i := 0; i < 2; i++ {
			for c := 0; c < 3; c++ {
				want := byte(0)
				if c == ch {
					want = 255
				}
				assert.Equal(t, want, rgb[i*3+c])
			}
		}
	}
	assert.False(t, r.Step(rgb))
}

func TestAllOnSingleFrame(t *testing.T) {
	r := NewRunner(Plan{Kind: AllOn})
	rgb := make([]byte, 9)
	assert.True(t, r.Step(rgb))
	for _, v := range rgb {
		assert.Equal(t, byte(255), v)
	}
	assert.False(t, r.Step(rgb))
}

func TestNoneRunsNothing(t *testing.T) {
	r := NewRunner(Plan{})
	assert.False(t, r.Step(make([]byte, 3)))
}
