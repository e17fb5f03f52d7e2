package rotation

import (
	"math/rand/v2"
	"sync"
)

// Pool hands out items from a fixed collection at random, never repeating an
// item until every item has been returned once. Despite the rotation name
// the order is random, not cyclic.
type Pool[T any] struct {
	mu    sync.Mutex
	items []T
	used  map[int]struct{}
}

// NewPool creates a Pool over a copy of items.
func NewPool[T any](items []T) (*Pool[T], error) {
	if len(items) == 0 {
		return nil, ErrEmptyCollection
	}
	return &Pool[T]{
		items: append([]T(nil), items...),
		used:  make(map[int]struct{}, len(items)),
	}, nil
}

// Next returns a random item not yet handed out in the current cycle.
// The cycle restarts on the call that hands out the last unused item.
func (p *Pool[T]) Next() (T, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var zero T
	available := make([]int, 0, len(p.items)-len(p.used))
	for i := range p.items {
		if _, ok := p.used[i]; !ok {
			available = append(available, i)
		}
	}
	if len(available) == 0 {
		return zero, ErrCorruptedState
	}

	idx := available[rand.IntN(len(available))]
	p.used[idx] = struct{}{}
	if len(p.used) >= len(p.items) {
		clear(p.used)
	}
	return p.items[idx], nil
}

// Clear forgets which items were handed out in the current cycle.
func (p *Pool[T]) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	clear(p.used)
}

// Len returns the number of items in the pool.
func (p *Pool[T]) Len() int {
	return len(p.items)
}

// Used returns how many items have been handed out in the current cycle.
func (p *Pool[T]) Used() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.used)
}
