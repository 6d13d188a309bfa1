package channels

import "time"

// closedSend turns the panic from sending on a closed channel into
// ErrChannelClosed. It must be deferred directly.
func closedSend(err *error) {
	if r := recover(); r != nil {
		*err = ErrChannelClosed
	}
}

// SendNonBlock sends msg only if ch can take it right now.
// Returns ErrChannelFull or ErrChannelClosed otherwise.
func SendNonBlock[T any](ch chan<- T, msg T) (err error) {
	defer closedSend(&err)

	select {
	case ch <- msg:
		return nil
	default:
		return ErrChannelFull
	}
}

// SendWithTimeout waits up to timeout for ch to take msg.
func SendWithTimeout[T any](ch chan<- T, msg T, timeout time.Duration) (err error) {
	defer closedSend(&err)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ch <- msg:
		return nil
	case <-timer.C:
		return ErrChannelTimeout
	}
}
