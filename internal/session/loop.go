package session

import (
	"context"
	"sync"

	"github.com/alkime/whistle/pkg/channels"
)

// Loop is an Executor backed by a single goroutine. Posted funcs run in
// order; Post never blocks, so a running func may post more work.
//
// Loop is the session context for hosts without a UI loop of their own,
// such as headless drivers and tests. The terminal UI posts onto its
// Bubble Tea update loop instead.
type Loop struct {
	mu    sync.Mutex
	queue []func()
	wake  chan struct{}
	wg    sync.WaitGroup
}

// NewLoop creates a loop. Call Run to start processing.
func NewLoop() *Loop {
	return &Loop{ //nolint:exhaustruct // mu, queue, wg zero values are ready to use
		wake: make(chan struct{}, 1),
	}
}

// Run processes posted funcs until ctx is cancelled. Funcs still queued at
// cancellation are dropped.
func (l *Loop) Run(ctx context.Context) {
	l.wg.Go(func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-l.wake:
			}

			for fn := l.pop(); fn != nil; fn = l.pop() {
				if ctx.Err() != nil {
					return
				}
				fn()
			}
		}
	})
}

// Post queues fn.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	// a full wake channel already guarantees another drain pass
	_ = channels.SendNonBlock(l.wake, struct{}{})
}

// Wait blocks until Run's goroutine exits.
func (l *Loop) Wait() {
	l.wg.Wait()
}

func (l *Loop) pop() func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.queue) == 0 {
		return nil
	}

	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]

	return fn
}
