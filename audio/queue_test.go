package audio

import (
	"testing"

	"github.com/matryer/is"
)

func TestQueueKeepsNewest(t *testing.T) {
	is := is.New(t)

	const n, k = 8, 5
	q := NewQueue(n)
	for i := 0; i < n+k; i++ {
		q.Push([]float32{float32(i)})
	}

	is.Equal(q.Len(), n)
	got := q.Snapshot()
	for i, s := range got {
		is.Equal(s, float32(k+i)) // most recent n in original order
	}
}

func TestQueueOversizedPush(t *testing.T) {
	is := is.New(t)

	q := NewQueue(4)
	q.Push([]float32{9})
	q.Push([]float32{1, 2, 3, 4, 5, 6})
	is.Equal(q.Snapshot(), []float32{3, 4, 5, 6})

	q.Push([]float32{7})
	is.Equal(q.Snapshot(), []float32{4, 5, 6, 7})
}

func TestQueueFIFO(t *testing.T) {
	is := is.New(t)

	q := NewQueue(3)
	_, ok := q.Pop()
	is.True(!ok)

	q.Push([]float32{1, 2})
	q.Push([]float32{3, 4})
	for _, want := range []float32{2, 3, 4} {
		s, ok := q.Pop()
		is.True(ok)
		is.Equal(s, want)
	}
	is.Equal(q.Len(), 0)
	is.Equal(q.Cap(), 3)
}
