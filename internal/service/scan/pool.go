package scan

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/semaphore"

	"github.com/mamadbah2/epharmacy/internal/apperr"
)

// Pool bounds the number of CPU-heavy stages running at once.
type Pool struct {
	sem *semaphore.Weighted
}

// NewPool returns a pool with size slots; size <= 0 uses runtime.NumCPU().
func NewPool(size int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size))}
}

// Run executes fn on a pool slot. When ctx ends first, Run returns a Timeout
// error immediately and the stage's eventual result is discarded.
func (p *Pool) Run(ctx context.Context, stage string, fn func() error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return apperr.Timeout(fmt.Sprintf("%s: waited too long for a worker", stage), err)
	}

	done := make(chan error, 1)
	go func() {
		defer p.sem.Release(1)
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return apperr.Timeout(fmt.Sprintf("%s exceeded its time budget", stage), ctx.Err())
	}
}
