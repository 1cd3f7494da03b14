package audio

import "sync/atomic"

// Queue is a bounded single-producer/single-consumer sample queue. The
// capture path pushes amplitude observations as they arrive; the frame
// loop drains the queue once per tick. A full queue drops the newest
// sample instead of blocking either side.
type Queue struct {
	ch      chan float32
	dropped atomic.Uint64
}

// NewQueue returns a queue holding at most capacity pending samples.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{ch: make(chan float32, capacity)}
}

// Push enqueues one sample without blocking. It reports false when the
// queue was full and the sample was discarded.
func (q *Queue) Push(v float32) bool {
	select {
	case q.ch <- v:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Drain invokes fn for every pending sample and returns how many were
// consumed. It never blocks; an empty queue yields zero calls.
func (q *Queue) Drain(fn func(float32)) int {
	n := 0
	for {
		select {
		case v := <-q.ch:
			fn(v)
			n++
		default:
			return n
		}
	}
}

// Dropped returns the number of samples discarded on a full queue.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}
