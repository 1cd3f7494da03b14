package audio

import "math"

// Tunables shared by every envelope instance. Attack/release follow the
// adaptive-mic time constants; the transient detector compares a fast
// moving average against a slow baseline.
const (
	AttackTau  = 0.08 // seconds, energy rise
	ReleaseTau = 0.30 // seconds, energy fall

	fastTau         = 0.03  // short-term average
	slowTau         = 0.60  // baseline average
	transientFactor = 1.5   // fast must exceed slow by this ratio
	loudFloor       = 0.05  // ignore transients below this level
	pulseDecay      = 8.0   // pulse units shed per second
	pulseCeil       = 2.0   // hard cap; consumers clamp to 1 anyway

	// BeatThreshold is the pulse level whose rising edge counts as a beat.
	BeatThreshold = 0.5
	// RhythmThreshold is the confidence above which HasRhythm reports true.
	RhythmThreshold = 0.3

	minBeatInterval = 0.2 // seconds (300 BPM)
	maxBeatInterval = 2.0 // seconds (30 BPM)
	intervalWindow  = 6   // inter-beat intervals kept for the period estimate
)

// Envelope smooths raw audio observations into the bounded control signal
// the fire generator consumes: a slow-moving Energy level, a transient
// Pulse, and a beat Phase with a RhythmStrength confidence.
//
// It accepts either raw amplitude samples (Update) or pre-analyzed
// (energy, hit) pairs from an upstream analyzer (Observe). When the
// sample queue runs dry the caller ticks Coast instead, so a dead
// microphone decays to silence rather than freezing the fire at its last
// loud frame.
type Envelope struct {
	Energy         float32 // smoothed loudness, 0..1
	Pulse          float32 // transient spike, 0..pulseCeil
	Phase          float32 // 0..1 cyclic, meaningful only with rhythm
	RhythmStrength float32 // 0..1 confidence that a periodic beat exists

	fastAvg   float32
	slowAvg   float32
	lastPulse float32
	beatEdge  bool

	sinceBeat float32
	period    float32
	intervals []float32
}

// Update ingests one raw amplitude observation (0..1) covering dt seconds.
func (e *Envelope) Update(raw float32, dt float32) {
	raw = clamp01(raw)

	e.Energy = smooth(e.Energy, raw, dt)

	e.fastAvg += (raw - e.fastAvg) * alpha(dt, fastTau)
	e.slowAvg += (raw - e.slowAvg) * alpha(dt, slowTau)

	e.Pulse -= pulseDecay * dt * e.Pulse
	if e.Pulse < 0 {
		e.Pulse = 0
	}
	if e.fastAvg > loudFloor && e.fastAvg > e.slowAvg*transientFactor {
		spike := e.fastAvg/maxf(e.slowAvg, 1e-4) - transientFactor
		if spike > pulseCeil {
			spike = pulseCeil
		}
		if spike > e.Pulse {
			e.Pulse = spike
		}
	}

	e.finishTick(dt)
}

// Observe ingests a pre-computed (energy, hit) pair from an upstream
// analyzer, bypassing the raw-sample transient detector.
func (e *Envelope) Observe(energy, hit float32, dt float32) {
	e.Energy = smooth(e.Energy, clamp01(energy), dt)
	if hit < 0 {
		hit = 0
	}
	if hit > pulseCeil {
		hit = pulseCeil
	}
	e.Pulse = hit
	e.finishTick(dt)
}

// Coast advances the envelope through dt seconds with no new input.
// Energy and pulse decay toward zero.
func (e *Envelope) Coast(dt float32) {
	e.Update(0, dt)
}

// Reset clears all smoothing and rhythm memory.
func (e *Envelope) Reset() {
	*e = Envelope{}
}

// BeatDetected reports whether this tick saw the pulse cross
// BeatThreshold on a rising edge. Edge-triggered: it stays false while
// the pulse holds above the threshold.
func (e *Envelope) BeatDetected() bool {
	return e.beatEdge
}

// HasRhythm reports whether recent beats have been periodic enough to
// phase-lock spark bursts to.
func (e *Envelope) HasRhythm() bool {
	return e.RhythmStrength >= RhythmThreshold
}

// Period returns the current beat period estimate in seconds, or 0 when
// no rhythm has been established.
func (e *Envelope) Period() float32 {
	return e.period
}

func (e *Envelope) finishTick(dt float32) {
	e.beatEdge = e.lastPulse < BeatThreshold && e.Pulse >= BeatThreshold
	e.lastPulse = e.Pulse

	if e.beatEdge {
		e.recordBeat()
	} else {
		e.sinceBeat += dt
		// Rhythm that stops asserting itself fades out.
		if e.period > 0 && e.sinceBeat > 2*e.period {
			e.RhythmStrength -= 0.5 * dt
			if e.RhythmStrength < 0 {
				e.RhythmStrength = 0
			}
		}
	}

	if e.period > 0 {
		p := e.sinceBeat / e.period
		e.Phase = p - float32(math.Floor(float64(p)))
	} else {
		e.Phase = 0
	}
}

func (e *Envelope) recordBeat() {
	iv := e.sinceBeat
	e.sinceBeat = 0

	if iv < minBeatInterval || iv > maxBeatInterval {
		return
	}
	e.intervals = append(e.intervals, iv)
	if len(e.intervals) > intervalWindow {
		e.intervals = e.intervals[1:]
	}
	if len(e.intervals) < 3 {
		return
	}

	var mean float32
	for _, v := range e.intervals {
		mean += v
	}
	mean /= float32(len(e.intervals))

	var maxDev float32
	for _, v := range e.intervals {
		d := v - mean
		if d < 0 {
			d = -d
		}
		if d > maxDev {
			maxDev = d
		}
	}

	if maxDev/mean < 0.15 {
		e.period = mean
		e.RhythmStrength += (1 - e.RhythmStrength) * 0.3
	} else {
		e.RhythmStrength *= 0.7
	}
}

func smooth(cur, target, dt float32) float32 {
	tau := float32(ReleaseTau)
	if target > cur {
		tau = AttackTau
	}
	return cur + (target-cur)*alpha(dt, tau)
}

func alpha(dt, tau float32) float32 {
	if tau <= 0 {
		return 1
	}
	return 1 - float32(math.Exp(float64(-dt/tau)))
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
