package viewport

import "sync"

// queue carries values from a listener goroutine to the frame loop. Push
// never blocks and the consumer only ever sees the newest value.
type queue[T any] struct {
	mu      sync.Mutex
	pending []T
}

// Push appends v
func (q *queue[T]) Push(v T) {
	q.mu.Lock()
	q.pending = append(q.pending, v)
	q.mu.Unlock()
}

// Drain removes every pending value and returns the last one
func (q *queue[T]) Drain() (last T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return last, false
	}
	last = q.pending[len(q.pending)-1]
	q.pending = q.pending[:0]
	return last, true
}
