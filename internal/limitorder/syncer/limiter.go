package syncer

import "context"

// Limiter admits at most n concurrently running operations. Excess callers
// block on the semaphore channel; the runtime wakes blocked senders in
// arrival order, which gives FIFO admission without a queue of our own.
type Limiter struct {
	sem chan struct{}
}

// NewLimiter creates a gate for n concurrent operations. n must be positive.
func NewLimiter(n int) *Limiter {
	if n <= 0 {
		panic("syncer: limiter size must be positive")
	}
	return &Limiter{sem: make(chan struct{}, n)}
}

// Acquire blocks until a slot frees or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	select {
	case l.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot taken by Acquire.
func (l *Limiter) Release() {
	<-l.sem
}

// InFlight reports the number of currently held slots.
func (l *Limiter) InFlight() int {
	return len(l.sem)
}

// Limit runs fn under the limiter. A failing fn releases its slot and only
// affects its own caller; no retry happens here.
func Limit[R any](ctx context.Context, l *Limiter, fn func() (R, error)) (R, error) {
	var zero R
	if err := l.Acquire(ctx); err != nil {
		return zero, err
	}
	defer l.Release()
	return fn()
}
