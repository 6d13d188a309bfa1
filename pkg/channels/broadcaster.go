package channels

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// subscriber holds a channel and how sends to it are attempted.
type subscriber[T any] struct {
	ch       chan<- T
	timeout  time.Duration // zero means non-blocking
	inactive atomic.Bool
	dropped  atomic.Int32
}

func (s *subscriber[T]) send(msg T) {
	if s.inactive.Load() {
		s.dropped.Add(1)
		return
	}

	var err error
	if s.timeout > 0 {
		err = SendWithTimeout(s.ch, msg, s.timeout)
	} else {
		err = SendNonBlock(s.ch, msg)
	}

	if err != nil {
		s.dropped.Add(1)

		// a closed subscriber will never read again
		if errors.Is(err, ErrChannelClosed) {
			s.inactive.Store(true)
		}
	}
}

// Broadcaster copies every message from one input channel to all subscriber
// channels. A slow subscriber loses messages instead of stalling the others.
//
// The input channel is owned by the Broadcaster. It is closed when the context
// passed to Run is cancelled, and whatever is still buffered is delivered
// before Wait returns.
type Broadcaster[T any] struct {
	subscribers []*subscriber[T]
	input       chan T
	started     atomic.Bool
	wg          sync.WaitGroup
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{} //nolint:exhaustruct // zero values are ready to use
}

// Subscribe adds a channel that receives messages without blocking. Messages
// are dropped while the channel is full. Must be called before Run.
func (b *Broadcaster[T]) Subscribe(ch chan<- T) error {
	return b.subscribe(ch, 0)
}

// SubscribeWithTimeout adds a channel that is given up to timeout to accept
// each message. Must be called before Run.
func (b *Broadcaster[T]) SubscribeWithTimeout(ch chan<- T, timeout time.Duration) error {
	if timeout <= 0 {
		return errors.New("subscriber timeout must be positive")
	}

	return b.subscribe(ch, timeout)
}

func (b *Broadcaster[T]) subscribe(ch chan<- T, timeout time.Duration) error {
	if ch == nil {
		return errors.New("subscriber channel cannot be nil")
	}

	if b.started.Load() {
		return errors.New("broadcaster already started")
	}

	b.subscribers = append(b.subscribers, &subscriber[T]{ //nolint:exhaustruct // counters start at zero
		ch:      ch,
		timeout: timeout,
	})

	return nil
}

// Run starts delivery and returns the channel producers write to.
// It fails if the broadcaster was already started or has no subscribers.
func (b *Broadcaster[T]) Run(ctx context.Context) (chan<- T, error) {
	if len(b.subscribers) == 0 {
		return nil, errors.New("no subscribers available")
	}

	if !b.started.CompareAndSwap(false, true) {
		return nil, errors.New("broadcaster already started")
	}

	b.input = make(chan T, len(b.subscribers)*2)

	b.wg.Go(func() {
		for msg := range b.input {
			for _, sub := range b.subscribers {
				sub.send(msg)
			}
		}
	})

	go func() {
		<-ctx.Done()
		close(b.input)
	}()

	return b.input, nil
}

// Wait blocks until the input channel is closed and drained. Safe to call
// from several goroutines.
func (b *Broadcaster[T]) Wait() {
	b.wg.Wait()
}

// SubscriberStats reports delivery health for one subscriber.
type SubscriberStats struct {
	Dropped  int
	Inactive bool
}

// Stats returns one entry per subscriber, in subscription order.
func (b *Broadcaster[T]) Stats() []SubscriberStats {
	stats := make([]SubscriberStats, 0, len(b.subscribers))
	for _, sub := range b.subscribers {
		stats = append(stats, SubscriberStats{
			Dropped:  int(sub.dropped.Load()),
			Inactive: sub.inactive.Load(),
		})
	}

	return stats
}
