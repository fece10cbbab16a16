// Package poolx bounds CPU-heavy work (password hashing, RSA signing) so that
// a burst of logins cannot starve unrelated requests.
package poolx

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Pool admits at most Size concurrent jobs. Callers beyond that wait until a
// slot frees up or their context is done.
type Pool struct {
	sem  *semaphore.Weighted
	size int64
}

// New returns a pool with the given number of slots. Non-positive sizes fall
// back to runtime.NumCPU().
func New(size int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size)), size: int64(size)}
}

// Size reports the number of slots.
func (p *Pool) Size() int {
	return int(p.size)
}

// Do runs fn on the caller's goroutine once a slot is acquired.
// It returns ctx.Err() if the context ends before a slot frees up.
func (p *Pool) Do(ctx context.Context, fn func() error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	return fn()
}
