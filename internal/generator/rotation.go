package generator

import (
	"math/rand"
)

// Recent is a bounded most-recently-used list. The newest item is first.
type Recent[T comparable] struct {
	items []T
	size  int
}

// NewRecent creates a list holding at most size items
func NewRecent[T comparable](size int) *Recent[T] {
	if size < 0 {
		size = 0
	}
	return &Recent[T]{size: size}
}

// Add moves v to the front, dropping the oldest item when full
func (r *Recent[T]) Add(v T) {
	if r.size == 0 {
		return
	}
	for i, item := range r.items {
		if item == v {
			r.items = append(r.items[:i], r.items[i+1:]...)
			break
		}
	}
	r.items = append([]T{v}, r.items...)
	if len(r.items) > r.size {
		r.items = r.items[:r.size]
	}
}

// Contains reports whether v was used recently
func (r *Recent[T]) Contains(v T) bool {
	for _, item := range r.items {
		if item == v {
			return true
		}
	}
	return false
}

// Items returns the list, newest first
func (r *Recent[T]) Items() []T {
	out := make([]T, len(r.items))
	copy(out, r.items)
	return out
}

// rank is the position of v in the list, len(items) when absent
func (r *Recent[T]) rank(v T) int {
	for i, item := range r.items {
		if item == v {
			return i
		}
	}
	return len(r.items)
}

// Pick returns a random option that is neither recent nor excluded. When
// every option is recent it returns the least recently used one.
func Pick[T comparable](options []T, recent *Recent[T], exclude map[T]bool, rnd *rand.Rand) T {
	var fresh, allowed []T
	for _, o := range options {
		if exclude[o] {
			continue
		}
		allowed = append(allowed, o)
		if !recent.Contains(o) {
			fresh = append(fresh, o)
		}
	}

	if len(allowed) == 0 {
		allowed = options
	}
	if len(fresh) > 0 {
		return fresh[rnd.Intn(len(fresh))]
	}

	best := allowed[0]
	for _, o := range allowed[1:] {
		if recent.rank(o) > recent.rank(best) {
			best = o
		}
	}
	return best
}
