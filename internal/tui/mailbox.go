package tui

import (
	"sync"

	"github.com/alkime/whistle/pkg/channels"
	tea "github.com/charmbracelet/bubbletea"
)

// runMsg carries funcs posted to the session, to be run inside Update.
type runMsg []func()

// mailbox is the session's Executor. Posted funcs are delivered to the
// Bubble Tea update loop, so the session only ever runs on that goroutine.
type mailbox struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	closed chan struct{}
	once   sync.Once
}

func newMailbox() *mailbox {
	return &mailbox{ //nolint:exhaustruct // mu, queue, once start empty
		wake:   make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

// Post queues fn without blocking, also when called from Update.
func (b *mailbox) Post(fn func()) {
	b.mu.Lock()
	b.queue = append(b.queue, fn)
	b.mu.Unlock()

	_ = channels.SendNonBlock(b.wake, struct{}{})
}

// next waits for posted funcs. Exactly one next command is outstanding at a
// time; Update re-arms it after each runMsg.
func (b *mailbox) next() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-b.closed:
			return nil
		case <-b.wake:
		}

		b.mu.Lock()
		fns := b.queue
		b.queue = nil
		b.mu.Unlock()

		return runMsg(fns)
	}
}

func (b *mailbox) close() {
	b.once.Do(func() { close(b.closed) })
}
