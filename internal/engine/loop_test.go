package engine

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/emberfield/pyre/internal/audio"
	"github.com/emberfield/pyre/internal/fire"
	"github.com/emberfield/pyre/internal/layout"
	"github.com/emberfield/pyre/internal/led"
	"github.com/emberfield/pyre/internal/selftest"
)

func newTestLoop(t *testing.T, opts Options) (*Loop, *led.Sim) {
	t.Helper()
	env := &audio.Envelope{}
	gen := fire.New(env)
	err := gen.Begin(fire.Config{Width: 8, Height: 8, Topology: layout.RowMajor, Seed: 1})
	if err != nil {
		t.Fatal(err)
	}
	sim := led.NewSim()
	opts.Logger = zerolog.Nop()
	l := New(gen, env, sim, led.NewLUT(1.0, 1.0), opts)
	return l, sim
}

func TestStepProducesFrames(t *testing.T) {
	l, sim := newTestLoop(t, Options{FPS: 60})
	now := time.Unix(0, 0)
	for i := 0; i < 10; i++ {
		l.Step(now)
		now = now.Add(16 * time.Millisecond)
	}
	assert.Equal(t, 10, sim.Frames())
	assert.Equal(t, uint64(10), l.FrameID())
	assert.Len(t, sim.Last(), 8*8*3)
}

func TestOnFrameObserverGetsCopies(t *testing.T) {
	var frames [][]byte
	l, _ := newTestLoop(t, Options{FPS: 60, OnFrame: func(id uint64, rgb []byte) {
		frames = append(frames, rgb)
	}})
	now := time.Unix(0, 0)
	l.Step(now)
	l.Step(now.Add(16 * time.Millisecond))
	assert.Len(t, frames, 2)
	if len(frames) == 2 && len(frames[0]) > 0 {
		// Mutating one snapshot must not alias the other.
		frames[0][0] ^= 0xFF
		assert.NotSame(t, &frames[0][0], &frames[1][0])
	}
}

func TestEnvelopeCoastsWithoutQueue(t *testing.T) {
	env := &audio.Envelope{}
	gen := fire.New(env)
	if err := gen.Begin(fire.Config{Width: 4, Height: 4, Topology: layout.RowMajor, Seed: 2}); err != nil {
		t.Fatal(err)
	}
	env.Update(1.0, 1.0) // pre-load energy
	l := New(gen, env, led.NewSim(), led.NewLUT(1, 1), Options{FPS: 60, Logger: zerolog.Nop()})

	now := time.Unix(0, 0)
	for i := 0; i < 300; i++ {
		l.Step(now)
		now = now.Add(16 * time.Millisecond)
	}
	assert.Less(t, env.Energy, float32(0.05), "envelope must decay when no samples arrive")
}

func TestQueueFeedsEnvelope(t *testing.T) {
	q := audio.NewQueue(16)
	env := &audio.Envelope{}
	gen := fire.New(env)
	if err := gen.Begin(fire.Config{Width: 4, Height: 4, Topology: layout.RowMajor, Seed: 3}); err != nil {
		t.Fatal(err)
	}
	l := New(gen, env, led.NewSim(), led.NewLUT(1, 1), Options{FPS: 60, Samples: q, Logger: zerolog.Nop()})

	now := time.Unix(0, 0)
	for i := 0; i < 60; i++ {
		q.Push(0.8)
		l.Step(now)
		now = now.Add(16 * time.Millisecond)
	}
	assert.Greater(t, env.Energy, float32(0.5), "queued samples must drive the envelope")
}

func TestSelfTestOverridesSimulation(t *testing.T) {
	l, sim := newTestLoop(t, Options{FPS: 60})
	l.StartTest(selftest.Plan{Kind: selftest.AllOn})
	assert.True(t, l.TestActive())

	l.Step(time.Unix(0, 0))
	last := sim.Last()
	for _, v := range last {
		assert.Equal(t, byte(255), v, "all-on pattern must reach the driver unscaled")
	}

	// Pattern completes; the simulation resumes.
	l.Step(time.Unix(0, int64(16*time.Millisecond)))
	assert.False(t, l.TestActive())
}
