package netmon

// Ring is a bounded FIFO buffer; once capacity is reached the oldest entry
// is evicted. It has a single owner and is not safe for concurrent use.
type Ring[T any] struct {
	items    []T
	capacity int
}

func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring[T]{
		items:    make([]T, 0, capacity),
		capacity: capacity,
	}
}

func (r *Ring[T]) Push(v T) {
	if len(r.items) == r.capacity {
		copy(r.items, r.items[1:])
		r.items[len(r.items)-1] = v
		return
	}
	r.items = append(r.items, v)
}

func (r *Ring[T]) Len() int {
	return len(r.items)
}

func (r *Ring[T]) Capacity() int {
	return r.capacity
}

// Tail returns the most recent n entries, oldest first. When fewer than n
// are buffered it returns all of them.
func (r *Ring[T]) Tail(n int) []T {
	if n >= len(r.items) {
		n = len(r.items)
	}
	out := make([]T, n)
	copy(out, r.items[len(r.items)-n:])
	return out
}

// Items returns a copy of the buffered entries, oldest first.
func (r *Ring[T]) Items() []T {
	out := make([]T, len(r.items))
	copy(out, r.items)
	return out
}

func (r *Ring[T]) Clear() {
	r.items = r.items[:0]
}
