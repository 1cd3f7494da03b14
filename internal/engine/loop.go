package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/emberfield/pyre/internal/audio"
	"github.com/emberfield/pyre/internal/fire"
	"github.com/emberfield/pyre/internal/led"
	"github.com/emberfield/pyre/internal/selftest"
)

// Loop is the fixed-rate frame scheduler: once per tick it drains the
// audio queue into the envelope, advances the fire generator, pushes the
// frame through the brightness LUT into the driver, and hands a copy to
// the optional frame observer (the websocket console).
//
// All simulation state is owned by the loop goroutine; outside access
// goes through WithGenerator, which takes the frame lock.
type Loop struct {
	mu      sync.Mutex
	gen     *fire.Generator
	env     *audio.Envelope
	samples *audio.Queue
	drv     led.Driver
	lut     *led.LUT
	test    *selftest.Runner

	fps     int
	log     zerolog.Logger
	onFrame func(frameID uint64, rgb []byte)

	rgb     []byte
	frameID uint64
	last    time.Time
	now     func() time.Time

	// Last frame timings in milliseconds, for the diagnostics channel.
	Last struct {
		UpdateMS float64
		FlushMS  float64
	}
}

// Options tune loop construction.
type Options struct {
	FPS     int
	Logger  zerolog.Logger
	Samples *audio.Queue                    // may be nil: envelope coasts
	OnFrame func(frameID uint64, rgb []byte) // called outside the frame lock
}

// New wires a loop over an initialized generator.
func New(gen *fire.Generator, env *audio.Envelope, drv led.Driver, lut *led.LUT, opts Options) *Loop {
	fps := opts.FPS
	if fps < 1 {
		fps = 60
	}
	return &Loop{
		gen:     gen,
		env:     env,
		samples: opts.Samples,
		drv:     drv,
		lut:     lut,
		fps:     fps,
		log:     opts.Logger,
		onFrame: opts.OnFrame,
		rgb:     make([]byte, gen.Count()*3),
		now:     time.Now,
	}
}

// Run drives the loop until ctx is canceled.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / time.Duration(l.fps))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.Step(l.now())
		}
	}
}

// Step advances one frame at the given wall-clock instant. Exposed so
// tests can drive the loop with a synthetic clock.
func (l *Loop) Step(now time.Time) {
	l.mu.Lock()

	var dt float32
	if !l.last.IsZero() {
		dt = float32(now.Sub(l.last).Seconds())
	}
	l.last = now

	l.feedEnvelope(dt)

	start := time.Now()
	if l.test != nil {
		if !l.test.Step(l.rgb) {
			l.test = nil
			l.log.Info().Msg("self-test complete")
			l.renderFrame(dt)
		}
	} else {
		l.renderFrame(dt)
	}
	l.Last.UpdateMS = float64(time.Since(start).Microseconds()) / 1000

	l.frameID++
	id := l.frameID
	buf := append([]byte(nil), l.rgb...)
	onFrame := l.onFrame
	l.mu.Unlock()

	flushStart := time.Now()
	if err := l.drv.Write(buf); err != nil {
		// Keep rendering; a wedged sink must not stop the show.
		l.log.Warn().Err(err).Msg("driver write failed")
	}
	flushMS := float64(time.Since(flushStart).Microseconds()) / 1000
	l.mu.Lock()
	l.Last.FlushMS = flushMS
	l.mu.Unlock()

	if onFrame != nil {
		onFrame(id, buf)
	}
}

func (l *Loop) renderFrame(dt float32) {
	if err := l.gen.Update(dt); err != nil {
		l.log.Error().Err(err).Msg("generator update failed")
		return
	}
	l.lut.Apply(l.gen.Frame(), l.rgb)
}

// feedEnvelope drains pending audio samples into one observation, or
// coasts the envelope when the queue is empty or absent.
func (l *Loop) feedEnvelope(dt float32) {
	if l.samples == nil {
		l.env.Coast(dt)
		return
	}
	var sum float32
	n := l.samples.Drain(func(v float32) { sum += v })
	if n == 0 {
		l.env.Coast(dt)
		return
	}
	l.env.Update(sum/float32(n), dt)
}

// SetOnFrame installs the frame observer. The console is built around
// the loop, so the observer arrives after construction.
func (l *Loop) SetOnFrame(fn func(frameID uint64, rgb []byte)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onFrame = fn
}

// StartTest swaps the simulation output for a hardware test pattern
// until the pattern completes.
func (l *Loop) StartTest(plan selftest.Plan) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.test = selftest.NewRunner(plan)
}

// TestActive reports whether a self-test pattern is running.
func (l *Loop) TestActive() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.test != nil
}

// WithGenerator runs fn under the frame lock, for console access to
// generator state between ticks.
func (l *Loop) WithGenerator(fn func(*fire.Generator)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l.gen)
}

// FrameID returns the number of frames emitted so far.
func (l *Loop) FrameID() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.frameID
}

// Status is a point-in-time snapshot for the debug console.
type Status struct {
	FrameID        uint64  `json:"frame_id"`
	Energy         float32 `json:"energy"`
	Pulse          float32 `json:"pulse"`
	RhythmStrength float32 `json:"rhythm_strength"`
	AverageHeat    float32 `json:"average_heat"`
	ActiveCells    int     `json:"active_cells"`
	UpdateMS       float64 `json:"update_ms"`
	FlushMS        float64 `json:"flush_ms"`
	TestActive     bool    `json:"test_active"`
	DroppedSamples uint64  `json:"dropped_samples"`
}

// Status reads a consistent snapshot under the frame lock.
func (l *Loop) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := Status{
		FrameID:        l.frameID,
		Energy:         l.env.Energy,
		Pulse:          l.env.Pulse,
		RhythmStrength: l.env.RhythmStrength,
		UpdateMS:       l.Last.UpdateMS,
		FlushMS:        l.Last.FlushMS,
		TestActive:     l.test != nil,
	}
	if l.gen.State() != fire.Uninitialized {
		s.AverageHeat = l.gen.AverageHeat()
		s.ActiveCells = l.gen.ActiveCount(1)
	}
	if l.samples != nil {
		s.DroppedSamples = l.samples.Dropped()
	}
	return s
}
