package main

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/emberfield/pyre/internal/audio"
	"github.com/emberfield/pyre/internal/engine"
	"github.com/emberfield/pyre/internal/fire"
	"github.com/emberfield/pyre/internal/layout"
	"github.com/emberfield/pyre/internal/led"
)

var (
	width    = 16
	height   = 8
	topology = "row-major"
	fps      = 60
	frames   = 300
	every    = 30
	seed     = int64(1)
	bpm      = 0.0
)

func init() {
	pflag.IntVar(&width, "width", width, "field width in cells")
	pflag.IntVar(&height, "height", height, "field height in cells")
	pflag.StringVar(&topology, "topology", topology, "LED topology (row-major | zigzag-columns | linear | scattered)")
	pflag.IntVar(&fps, "fps", fps, "simulated frame rate")
	pflag.IntVar(&frames, "frames", frames, "number of frames to simulate")
	pflag.IntVar(&every, "every", every, "print a summary every N frames")
	pflag.Int64Var(&seed, "seed", seed, "simulation seed")
	pflag.Float64Var(&bpm, "bpm", bpm, "synthetic beat rate (0 = steady hum)")
}

func main() {
	pflag.Parse()

	topo, err := layout.ParseTopology(topology)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	env := &audio.Envelope{}
	gen := fire.New(env)
	if err := gen.Begin(fire.Config{
		Width:    width,
		Height:   height,
		Topology: topo,
		Seed:     seed,
	}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	q := audio.NewQueue(64)
	sim := led.NewSim()
	loop := engine.New(gen, env, sim, led.NewLUT(1.0, 2.2), engine.Options{
		FPS:     fps,
		Logger:  zerolog.Nop(),
		Samples: q,
	})

	// Synthetic clock: drive the loop at exactly the target rate.
	tick := time.Second / time.Duration(fps)
	now := time.Unix(0, 0)
	period := 0.0
	if bpm > 0 {
		period = 60.0 / bpm
	}

	for i := 0; i < frames; i++ {
		q.Push(synthLevel(float64(i)*tick.Seconds(), tick.Seconds(), period))
		loop.Step(now)
		now = now.Add(tick)

		if every > 0 && (i+1)%every == 0 {
			st := loop.Status()
			fmt.Printf("frame %4d  %s  energy=%.2f pulse=%.2f rhythm=%.2f heat=%.1f active=%d\n",
				i+1, sim.Summary(), st.Energy, st.Pulse, st.RhythmStrength, st.AverageHeat, st.ActiveCells)
		}
	}
}

// synthLevel fabricates an audio amplitude: a steady hum, plus a sharp
// hit at the top of every beat period when a BPM is set.
func synthLevel(t, dt, period float64) float32 {
	level := 0.35 + 0.1*math.Sin(2*math.Pi*t/3.7)
	if period > 0 && math.Mod(t, period) < dt {
		level = 1.0
	}
	return float32(level)
}
