package pipeline

import (
	"context"
	"sync"
)

// lockRegistry hands out one lease per external movie ID so that only a
// single query progresses through resolve, render, and publish for a given
// movie at a time. Unrelated movies proceed fully in parallel. Leases are
// reference counted and removed from the registry when the last holder
// releases.
type lockRegistry struct {
	mu     sync.Mutex
	leases map[int64]*lease
}

type lease struct {
	sem  chan struct{}
	refs int
}

func newLockRegistry() *lockRegistry {
	return &lockRegistry{leases: make(map[int64]*lease)}
}

// acquire blocks until the lease for movieID is held or the context is
// cancelled. The returned release function must be called exactly once.
func (r *lockRegistry) acquire(ctx context.Context, movieID int64) (func(), error) {
	r.mu.Lock()
	entry, ok := r.leases[movieID]
	if !ok {
		entry = &lease{sem: make(chan struct{}, 1)}
		r.leases[movieID] = entry
	}
	entry.refs++
	r.mu.Unlock()

	select {
	case entry.sem <- struct{}{}:
	case <-ctx.Done():
		r.drop(movieID, entry)
		return nil, ctx.Err()
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			<-entry.sem
			r.drop(movieID, entry)
		})
	}
	return release, nil
}

func (r *lockRegistry) drop(movieID int64, entry *lease) {
	r.mu.Lock()
	entry.refs--
	if entry.refs <= 0 {
		delete(r.leases, movieID)
	}
	r.mu.Unlock()
}
