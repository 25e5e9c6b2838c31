package queue

import "sync"

// Queue is a FIFO ring buffer that grows when full. It is safe for
// concurrent use.
type Queue[T any] struct {
	mu   sync.Mutex
	data []T
	head int
	size int
}

func New[T any](initSize int) *Queue[T] {
	if initSize < 1 {
		initSize = 1
	}
	return &Queue[T]{data: make([]T, initSize)}
}

func (q *Queue[T]) Push(item T) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size == len(q.data) {
		q.data = growSlice(q.data, q.head)
		q.head = 0
	}
	q.data[(q.head+q.size)%len(q.data)] = item
	q.size++
}

func (q *Queue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pop()
}

// Drain removes and returns every queued item in order.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := make([]T, 0, q.size)
	for q.size > 0 {
		item, _ := q.pop()
		items = append(items, item)
	}
	return items
}

func (q *Queue[T]) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

func (q *Queue[T]) pop() (T, bool) {
	var none T
	if q.size == 0 {
		return none, false
	}
	value := q.data[q.head]
	q.data[q.head] = none
	q.head = (q.head + 1) % len(q.data)
	q.size--
	return value, true
}

// growSlice doubles the buffer, unrolling it so that the item at
// startIndex lands at index 0.
func growSlice[T any](slice []T, startIndex int) []T {
	capacity := len(slice)
	resized := make([]T, (capacity+1)*2)
	for i := 0; i < capacity; i++ {
		resized[i] = slice[(i+startIndex)%capacity]
	}
	return resized
}
