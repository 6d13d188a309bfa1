// Package schedule provides the repeating timer the session samples
// playback progress with.
package schedule

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/alkime/whistle/internal/session"
)

// Ticker schedules repeating callbacks on time.Ticker. Each callback runs on
// its timer's own goroutine; callers re-post onto their context.
type Ticker struct {
	wg sync.WaitGroup
}

var _ session.Scheduler = (*Ticker)(nil)

// NewTicker creates a Ticker.
func NewTicker() *Ticker {
	return &Ticker{} //nolint:exhaustruct // zero WaitGroup is ready
}

// ScheduleRepeating calls tick every interval until the returned cancel func
// is called. Cancel is idempotent and safe to call from within tick; no tick
// starts after it returns.
func (t *Ticker) ScheduleRepeating(interval time.Duration, tick func()) func() {
	ticker := time.NewTicker(interval)
	stop := make(chan struct{})

	var (
		cancelled atomic.Bool
		once      sync.Once
	)

	t.wg.Go(func() {
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				// a tick may be cancelled from inside itself
				if !cancelled.Load() {
					tick()
				}
			}
		}
	})

	return func() {
		once.Do(func() {
			cancelled.Store(true)
			close(stop)
		})
	}
}

// Wait blocks until every cancelled timer goroutine has exited.
func (t *Ticker) Wait() {
	t.wg.Wait()
}
