package audio

import "sync"

// Queue is a bounded FIFO of interleaved samples shared by the input and
// output callbacks. When full, Push evicts the oldest samples.
type Queue struct {
	mu   sync.Mutex
	buf  []float32
	head int
	n    int
}

// NewQueue allocates a queue holding at most capacity samples.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{buf: make([]float32, capacity)}
}

// Push appends samples, dropping the oldest ones on overflow.
func (q *Queue) Push(samples []float32) {
	q.mu.Lock()
	q.pushLocked(samples)
	q.mu.Unlock()
}

func (q *Queue) pushLocked(samples []float32) {
	c := len(q.buf)
	if len(samples) >= c {
		// Only the newest c samples can survive.
		copy(q.buf, samples[len(samples)-c:])
		q.head = 0
		q.n = c
		return
	}
	for _, s := range samples {
		if q.n == c {
			q.head = (q.head + 1) % c
			q.n--
		}
		q.buf[(q.head+q.n)%c] = s
		q.n++
	}
}

// Pop removes and returns the oldest sample.
func (q *Queue) Pop() (float32, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popLocked()
}

func (q *Queue) popLocked() (float32, bool) {
	if q.n == 0 {
		return 0, false
	}
	s := q.buf[q.head]
	q.head = (q.head + 1) % len(q.buf)
	q.n--
	return s, true
}

func (q *Queue) clearLocked() {
	q.head = 0
	q.n = 0
}

// Len returns the number of queued samples.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.n
}

// Cap returns the fixed capacity.
func (q *Queue) Cap() int {
	return len(q.buf)
}

// Snapshot copies the queued samples in FIFO order.
func (q *Queue) Snapshot() []float32 {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]float32, q.n)
	for i := range out {
		out[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	return out
}
