// Package channels holds small helpers for sending on channels that may be
// full or closed, and a Broadcaster built on them.
package channels

import (
	"errors"
)

var (
	ErrChannelClosed  = errors.New("channel closed")
	ErrChannelTimeout = errors.New("send timeout")
	ErrChannelFull    = errors.New("channel full")
)
