package rotation

import (
	"container/list"
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// Callback receives the outcome of a LockQueue request. On success err is
// nil and release must be called once the item is no longer in use. On
// timeout err is ErrLockTimeout, item is the zero value and release does
// nothing.
type Callback[T any] func(err error, item T, release func())

// QueueObserver receives LockQueue activity, typically for metrics.
type QueueObserver interface {
	OnAcquire(wait time.Duration)
	OnRelease()
	OnTimeout()
}

// QueueOption configures optional behavior of a LockQueue.
type QueueOption func(*queueOptions)

type queueOptions struct {
	observer QueueObserver
}

// WithObserver sets the receiver of acquire, release and timeout events.
func WithObserver(o QueueObserver) QueueOption {
	return func(opts *queueOptions) {
		opts.observer = o
	}
}

// request is one pending Next call. fired guards the callback so it runs
// exactly once whether the request is admitted, times out or is abandoned.
type request[T any] struct {
	cb       Callback[T]
	fired    bool
	timer    *time.Timer
	queuedAt time.Time
}

type admission[T any] struct {
	req *request[T]
	idx int
}

// LockQueue hands each requester an item that no other requester currently
// holds. At most one request per item is admitted at a time; the rest wait
// in arrival order. A request that times out keeps its place in line and is
// skipped without effect when it reaches the front.
type LockQueue[T any] struct {
	mu       sync.Mutex
	items    []T
	locked   map[int]struct{}
	waiting  *list.List
	observer QueueObserver
}

// NewLockQueue creates a LockQueue over a copy of items.
func NewLockQueue[T any](items []T, opts ...QueueOption) (*LockQueue[T], error) {
	if len(items) == 0 {
		return nil, ErrEmptyCollection
	}
	o := queueOptions{observer: noopObserver{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.observer == nil {
		o.observer = noopObserver{}
	}
	return &LockQueue[T]{
		items:    append([]T(nil), items...),
		locked:   make(map[int]struct{}, len(items)),
		waiting:  list.New(),
		observer: o.observer,
	}, nil
}

// Next queues a request for a free item. A positive timeout bounds how long
// the request may wait for admission; zero waits indefinitely. cb may run
// on the calling goroutine when an item is free right away, and on the
// releasing goroutine when it was waiting.
func (q *LockQueue[T]) Next(timeout time.Duration, cb Callback[T]) {
	q.enqueue(timeout, cb)
}

// Acquire blocks until an item is free or ctx is done. The returned release
// function must be called once the item is no longer in use.
func (q *LockQueue[T]) Acquire(ctx context.Context) (T, func(), error) {
	type result struct {
		item    T
		release func()
		err     error
	}
	ch := make(chan result, 1)
	req := q.enqueue(0, func(err error, item T, release func()) {
		ch <- result{item: item, release: release, err: err}
	})

	select {
	case res := <-ch:
		return res.item, res.release, res.err
	case <-ctx.Done():
		if q.abandon(req) {
			var zero T
			return zero, func() {}, ctx.Err()
		}
		// Admitted concurrently with cancellation; the grant is on its way.
		res := <-ch
		return res.item, res.release, res.err
	}
}

// Len returns the number of items in the queue.
func (q *LockQueue[T]) Len() int {
	return len(q.items)
}

// Locked returns the number of items currently held.
func (q *LockQueue[T]) Locked() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.locked)
}

// Pending returns the number of queued requests, including timed-out ones
// still waiting to be skipped.
func (q *LockQueue[T]) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.waiting.Len()
}

func (q *LockQueue[T]) enqueue(timeout time.Duration, cb Callback[T]) *request[T] {
	if cb == nil {
		cb = func(error, T, func()) {}
	}
	req := &request[T]{cb: cb, queuedAt: time.Now()}

	q.mu.Lock()
	q.waiting.PushBack(req)
	if timeout > 0 {
		req.timer = time.AfterFunc(timeout, func() { q.expire(req) })
	}
	admitted := q.admitLocked()
	q.mu.Unlock()

	q.deliver(admitted)
	return req
}

// admitLocked pops waiting requests while items are free. Requests that
// already fired are dropped without taking a lock.
func (q *LockQueue[T]) admitLocked() []admission[T] {
	var out []admission[T]
	for q.waiting.Len() > 0 && len(q.locked) < len(q.items) {
		req := q.waiting.Remove(q.waiting.Front()).(*request[T])
		if req.fired {
			continue
		}
		req.fired = true
		if req.timer != nil {
			req.timer.Stop()
		}

		free := make([]int, 0, len(q.items)-len(q.locked))
		for i := range q.items {
			if _, held := q.locked[i]; !held {
				free = append(free, i)
			}
		}
		idx := free[rand.IntN(len(free))]
		q.locked[idx] = struct{}{}
		out = append(out, admission[T]{req: req, idx: idx})
	}
	return out
}

// deliver runs callbacks for admitted requests outside of the lock. A
// release made while its own callback is still running hands the requests
// it admits back to this loop, so inline releases do not grow the stack.
func (q *LockQueue[T]) deliver(admitted []admission[T]) {
	for len(admitted) > 0 {
		a := admitted[0]
		admitted = admitted[1:]

		var (
			mu      sync.Mutex
			inline  = true
			pending []admission[T]
			once    sync.Once
		)
		idx := a.idx
		release := func() {
			once.Do(func() {
				next := q.unlock(idx)
				mu.Lock()
				if inline {
					pending = append(pending, next...)
					mu.Unlock()
					return
				}
				mu.Unlock()
				q.deliver(next)
			})
		}

		q.observer.OnAcquire(time.Since(a.req.queuedAt))
		a.req.cb(nil, q.items[idx], release)

		mu.Lock()
		inline = false
		admitted = append(admitted, pending...)
		mu.Unlock()
	}
}

// unlock frees idx and returns the requests admitted in its place.
func (q *LockQueue[T]) unlock(idx int) []admission[T] {
	q.mu.Lock()
	delete(q.locked, idx)
	admitted := q.admitLocked()
	q.mu.Unlock()

	q.observer.OnRelease()
	return admitted
}

func (q *LockQueue[T]) expire(req *request[T]) {
	q.mu.Lock()
	if req.fired {
		q.mu.Unlock()
		return
	}
	req.fired = true
	q.mu.Unlock()

	q.observer.OnTimeout()
	var zero T
	req.cb(ErrLockTimeout, zero, func() {})
}

// abandon marks req as fired without invoking its callback. It reports
// false if the request was already admitted or expired.
func (q *LockQueue[T]) abandon(req *request[T]) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if req.fired {
		return false
	}
	req.fired = true
	if req.timer != nil {
		req.timer.Stop()
	}
	return true
}

type noopObserver struct{}

func (noopObserver) OnAcquire(time.Duration) {}
func (noopObserver) OnRelease()              {}
func (noopObserver) OnTimeout()              {}
