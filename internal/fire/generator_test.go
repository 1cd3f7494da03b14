package fire

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/emberfield/pyre/internal/audio"
	"github.com/emberfield/pyre/internal/layout"
	"github.com/emberfield/pyre/internal/palette"
)

const dt = 1.0 / 60.0

func matrixConfig(seed int64) Config {
	return Config{Width: 8, Height: 8, Topology: layout.RowMajor, Seed: seed}
}

func frameLit(frame []palette.RGB) bool {
	for _, c := range frame {
		if c.R != 0 || c.G != 0 || c.B != 0 {
			return true
		}
	}
	return false
}

func TestLifecycle(t *testing.T) {
	env := &audio.Envelope{}
	g := New(env)

	assert.Equal(t, Uninitialized, g.State())
	assert.ErrorIs(t, g.Update(dt), ErrNotReady)

	assert.Error(t, g.Begin(Config{Width: 0, Height: 8, Topology: layout.RowMajor}))
	assert.Equal(t, Uninitialized, g.State(), "failed Begin must not advance state")

	assert.NoError(t, g.Begin(matrixConfig(1)))
	assert.Equal(t, Ready, g.State())

	assert.NoError(t, g.Update(dt))
	assert.Equal(t, Running, g.State())

	p := g.Params()
	p.BaseCooling = 300
	g.SetParams(p)

	g.Reset()
	assert.Equal(t, Ready, g.State())
	assert.Zero(t, g.AverageHeat())
	assert.Equal(t, float32(300), g.Params().BaseCooling, "Reset must preserve params")
}

func TestParamsClampedNotRejected(t *testing.T) {
	g := New(&audio.Envelope{})
	assert.NoError(t, g.Begin(matrixConfig(1)))

	g.SetParams(Params{
		BaseCooling:  -50,
		SparkChance:  7,
		SparkHeatMin: 200,
		SparkHeatMax: 40, // min > max
		BottomRows:   0,
		BurstSparks:  -3,
	})
	p := g.Params()
	assert.Zero(t, p.BaseCooling)
	assert.Equal(t, float32(1), p.SparkChance)
	assert.LessOrEqual(t, p.SparkHeatMin, p.SparkHeatMax)
	assert.GreaterOrEqual(t, p.BottomRows, 1)
	assert.GreaterOrEqual(t, p.BurstSparks, 1)

	// A malformed tuning set must never fault the render path.
	for i := 0; i < 10; i++ {
		assert.NoError(t, g.Update(dt))
	}
}

func TestFireSurvivesSilence(t *testing.T) {
	env := &audio.Envelope{}
	g := New(env)
	assert.NoError(t, g.Begin(matrixConfig(2)))

	for tick := 0; tick < 100; tick++ {
		env.Observe(0.5, 0, dt)
		assert.NoError(t, g.Update(dt))
		if tick >= 2 {
			assert.True(t, frameLit(g.Frame()), "frame %d went dark", tick)
		}
	}
}

func TestThrottleSkipsShortTicks(t *testing.T) {
	env := &audio.Envelope{}
	g := New(env)
	assert.NoError(t, g.Begin(matrixConfig(3)))
	assert.NoError(t, g.Update(dt)) // establish baseline

	before := g.AverageHeat()
	assert.NoError(t, g.Update(0.0001))
	assert.Equal(t, before, g.AverageHeat(), "sub-interval tick must be skipped")
}

func TestDeltaClamped(t *testing.T) {
	run := func(bigDt float32) []palette.RGB {
		env := &audio.Envelope{}
		g := New(env)
		if err := g.Begin(matrixConfig(4)); err != nil {
			t.Fatal(err)
		}
		env.Observe(0.5, 0, dt)
		_ = g.Update(dt)
		env.Observe(0.5, 0, dt)
		_ = g.Update(bigDt)
		out := make([]palette.RGB, len(g.Frame()))
		copy(out, g.Frame())
		return out
	}
	assert.Equal(t, run(MaxFrameDt), run(900), "a stalled tick behaves exactly like a MaxFrameDt tick")
}

func TestDeterministicFrames(t *testing.T) {
	run := func() []palette.RGB {
		env := &audio.Envelope{}
		g := New(env)
		if err := g.Begin(matrixConfig(77)); err != nil {
			t.Fatal(err)
		}
		for tick := 0; tick < 40; tick++ {
			env.Observe(0.4, 0, dt)
			_ = g.Update(dt)
		}
		out := make([]palette.RGB, len(g.Frame()))
		copy(out, g.Frame())
		return out
	}
	assert.Equal(t, run(), run())
}

func TestLinearTransientConcentratesAtOrigin(t *testing.T) {
	env := &audio.Envelope{}
	g := New(env)
	cfg := Config{Width: 89, Height: 1, Topology: layout.Linear, Seed: 9}
	assert.NoError(t, g.Begin(cfg))

	p := g.Params()
	p.SparkChance = 0.005 // near-silent baseline
	p.BottomRows = 8
	g.SetParams(p)

	originHeat := func() float32 {
		var s float32
		for x := 0; x < 16; x++ {
			s += g.HeatAt(x, 0)
		}
		return s
	}

	for tick := 0; tick < 10; tick++ {
		env.Observe(0.2, 0, dt)
		_ = g.Update(dt)
	}
	before := originHeat()

	// One strong transient, visible across two ticks.
	env.Observe(0.2, 1.5, dt)
	_ = g.Update(dt)
	env.Observe(0.2, 1.2, dt)
	_ = g.Update(dt)
	peak := originHeat()
	assert.Greater(t, peak, before+100, "transient must raise heat near the origin end within 2 ticks")

	for tick := 12; tick < 60; tick++ {
		env.Observe(0.2, 0, dt)
		_ = g.Update(dt)
	}
	assert.Less(t, originHeat(), peak*0.5, "heat must decay back toward baseline by tick 60")
}

func TestRhythmicBurstsLandOnBeats(t *testing.T) {
	env := &audio.Envelope{}
	g := New(env)
	assert.NoError(t, g.Begin(matrixConfig(5)))

	// Disable every non-burst heat source.
	p := g.Params()
	p.SparkChance = 0
	p.AudioSparkBoost = 0
	p.BaseCooling = 0
	p.CoolingVariance = 0
	p.CoolingAudioBias = 0
	g.SetParams(p)

	ticksPerBeat := 30 // 0.5s at 60 Hz
	var firstHeatTick = -1
	beatTicks := map[int]bool{}
	tick := 0
	for beat := 0; beat < 12; beat++ {
		for i := 0; i < ticksPerBeat; i++ {
			hit := float32(0)
			if i == 0 {
				hit = 1.0
			}
			env.Observe(0.5, hit, dt)
			if env.BeatDetected() && env.HasRhythm() {
				beatTicks[tick] = true
			}
			_ = g.Update(dt)
			if firstHeatTick < 0 && g.AverageHeat() > 0 {
				firstHeatTick = tick
			}
			tick++
		}
	}

	assert.NotEqual(t, -1, firstHeatTick, "locked rhythm must eventually inject beat bursts")
	assert.True(t, beatTicks[firstHeatTick], "first heat must arrive on a detected beat, not between beats")
}

func TestScatteredFrameCoversAllLEDs(t *testing.T) {
	env := &audio.Envelope{}
	g := New(env)
	cfg := Config{Width: 10, Height: 5, Topology: layout.Scattered, ScatterSeed: 31, Seed: 6}
	assert.NoError(t, g.Begin(cfg))
	assert.Equal(t, 50, g.Count())

	for tick := 0; tick < 30; tick++ {
		env.Observe(0.6, 0, dt)
		_ = g.Update(dt)
	}
	assert.True(t, frameLit(g.Frame()))
}
