package led

import (
	"fmt"
	"sync"
)

// Sim is a headless driver for development and tests. It keeps the last
// frame and running stats instead of touching hardware.
type Sim struct {
	mu     sync.Mutex
	frames int
	last   []byte
}

// NewSim returns a simulation driver.
func NewSim() *Sim { return &Sim{} }

// Write implements Driver.
func (s *Sim) Write(rgb []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames++
	s.last = append(s.last[:0], rgb...)
	return nil
}

// Close implements Driver.
func (s *Sim) Close() error { return nil }

// Frames returns how many frames have been written.
func (s *Sim) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Last returns a copy of the most recent frame.
func (s *Sim) Last() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, len(s.last))
	copy(out, s.last)
	return out
}

// Summary formats a one-line digest of the last frame: count, average
// and first pixel. Useful for headless runs.
func (s *Sim) Summary() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.last) / 3
	if n == 0 {
		return fmt.Sprintf("[frame %04d] empty", s.frames)
	}
	var r, g, b int
	for i := 0; i < n; i++ {
		r += int(s.last[i*3+0])
		g += int(s.last[i*3+1])
		b += int(s.last[i*3+2])
	}
	return fmt.Sprintf("[frame %04d] n=%d avg=(%d,%d,%d) first=(%d,%d,%d)",
		s.frames, n, r/n, g/n, b/n, s.last[0], s.last[1], s.last[2])
}
