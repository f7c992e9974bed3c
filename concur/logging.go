package concur

import (
	"io"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// NewStumpyLogger builds a *logiface.Logger[logiface.Event] backed by
// stumpy's allocation-light JSON event encoder, writing one JSON object
// per line to w. Components do not use it by default: a nil logger
// passed to their constructors is replaced with a disabled
// logiface.New logger. Pass its result explicitly to get structured,
// leveled debug/warning output for waiter enqueue/dequeue/wake decisions.
func NewStumpyLogger(w io.Writer, level logiface.Level) *logiface.Logger[logiface.Event] {
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(w)),
		stumpy.L.WithLevel(level),
	).Logger()
}
