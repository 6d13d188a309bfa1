// Package uictl defines the read-only controls a UI polls for live values.
package uictl

import "golang.org/x/exp/constraints"

type Number interface {
	constraints.Integer | constraints.Float
}

// Dial is a control that can read some value.
type Dial[N Number] interface {
	Read() N
}

// DialFunc adapts a func to a Dial.
type DialFunc[N Number] func() N

func (f DialFunc[N]) Read() N { return f() }

// Levels is a control that can read a window of recent values.
type Levels[N Number] interface {
	Read() []N
}
