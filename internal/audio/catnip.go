package audio

import "github.com/noriah/catnip/processor"

// BinSource adapts a catnip spectrum analyzer into the sample queue. The
// analyzer calls Write once per analysis window; the mean bin magnitude
// becomes one amplitude observation for the envelope.
type BinSource struct {
	bins int
	gain float64
	q    *Queue
}

var _ processor.Output = (*BinSource)(nil)

// NewBinSource returns a BinSource publishing into q. gain scales the
// raw bin magnitudes into the envelope's 0..1 domain.
func NewBinSource(bins int, gain float64, q *Queue) *BinSource {
	if bins < 1 {
		bins = 1
	}
	if gain <= 0 {
		gain = 1
	}
	return &BinSource{bins: bins, gain: gain, q: q}
}

// Bins implements processor.Output.
func (s *BinSource) Bins(int) int {
	return s.bins
}

// Write implements processor.Output. Channels are averaged together; the
// fire reacts to overall loudness, not stereo placement.
func (s *BinSource) Write(bins [][]float64, nchannels int) error {
	if nchannels > len(bins) {
		nchannels = len(bins)
	}
	var sum float64
	var n int
	for ch := 0; ch < nchannels; ch++ {
		for _, v := range bins[ch][:min(s.bins, len(bins[ch]))] {
			if v < 0 {
				v = -v
			}
			sum += v
			n++
		}
	}
	if n == 0 {
		return nil
	}
	level := sum / float64(n) * s.gain
	if level > 1 {
		level = 1
	}
	s.q.Push(float32(level))
	return nil
}
