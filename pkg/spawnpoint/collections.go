package spawnpoint

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/bft-labs/spawnpoint/pkg/codes"
	"github.com/bft-labs/spawnpoint/pkg/rotation"
)

// SetCollection replaces the named collection. Pools and queues built from
// the previous items are discarded; holders of queue items keep them until
// they release.
func (a *App) SetCollection(name string, items []string) error {
	if len(items) == 0 {
		return a.codes.Wrap(codes.KindErrorCode, CodeEmptyCollection, rotation.ErrEmptyCollection)
	}

	a.collMu.Lock()
	defer a.collMu.Unlock()
	if a.config.Collections == nil {
		a.config.Collections = make(map[string][]string)
	}
	a.config.Collections[name] = append([]string(nil), items...)
	delete(a.pools, name)
	delete(a.queues, name)
	return nil
}

// Sample returns a uniformly random item of the named collection. Unlike
// RoundRobin, consecutive calls may return the same item.
func (a *App) Sample(name string) (string, error) {
	a.collMu.Lock()
	defer a.collMu.Unlock()
	items, err := a.collection(name)
	if err != nil {
		return "", err
	}
	return items[rand.IntN(len(items))], nil
}

// RoundRobin returns an item of the named collection. Every item is
// returned once, in random order, before any item repeats.
func (a *App) RoundRobin(name string) (string, error) {
	pool, err := a.pool(name)
	if err != nil {
		return "", err
	}
	return pool.Next()
}

// GetAndLock hands cb an item of the named collection that no other caller
// holds, waiting up to timeout for one to free up. On timeout cb receives a
// failCode error wrapping rotation.ErrLockTimeout. cb may run on the calling
// goroutine.
func (a *App) GetAndLock(name string, timeout time.Duration, cb rotation.Callback[string]) {
	queue, err := a.queue(name)
	if err != nil {
		cb(err, "", func() {})
		return
	}
	queue.Next(timeout, func(err error, item string, release func()) {
		if errors.Is(err, rotation.ErrLockTimeout) {
			err = a.codes.Wrap(codes.KindFailCode, CodeLockedTimeout, err)
		}
		cb(err, item, release)
	})
}

// Acquire blocks until an item of the named collection is free or ctx is
// done. A deadline expiring is reported like a GetAndLock timeout.
func (a *App) Acquire(ctx context.Context, name string) (string, func(), error) {
	queue, err := a.queue(name)
	if err != nil {
		return "", func() {}, err
	}
	item, release, err := queue.Acquire(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		err = a.codes.Wrap(codes.KindFailCode, CodeLockedTimeout, errors.Join(rotation.ErrLockTimeout, err))
	}
	return item, release, err
}

func (a *App) pool(name string) (*rotation.Pool[string], error) {
	a.collMu.Lock()
	defer a.collMu.Unlock()
	if p, ok := a.pools[name]; ok {
		return p, nil
	}
	items, err := a.collection(name)
	if err != nil {
		return nil, err
	}
	p, err := rotation.NewPool(items)
	if err != nil {
		return nil, err
	}
	a.pools[name] = p
	return p, nil
}

func (a *App) queue(name string) (*rotation.LockQueue[string], error) {
	a.collMu.Lock()
	defer a.collMu.Unlock()
	if q, ok := a.queues[name]; ok {
		return q, nil
	}
	items, err := a.collection(name)
	if err != nil {
		return nil, err
	}
	var opts []rotation.QueueOption
	if a.metrics != nil {
		opts = append(opts, rotation.WithObserver(a.metrics.Queue(name)))
	}
	q, err := rotation.NewLockQueue(items, opts...)
	if err != nil {
		return nil, err
	}
	a.queues[name] = q
	return q, nil
}

// collection must be called with collMu held.
func (a *App) collection(name string) ([]string, error) {
	items, ok := a.config.Collections[name]
	if !ok || len(items) == 0 {
		return nil, a.codes.FailCode(CodeNotCollection, map[string]interface{}{"name": name})
	}
	return items, nil
}
