// Package eventloopadapter adapts a running
// [github.com/joeycumines/go-eventloop] [eventloop.JS] instance to
// [concur.TimerService] and [concur.Scheduler], so that callers already
// embedding that event loop can drive the go-concur primitives on the
// loop's own goroutine instead of spinning up concur/realtime's
// dispatcher.
package eventloopadapter

import (
	"github.com/joeycumines/go-concur/concur"
	eventloop "github.com/joeycumines/go-eventloop"
)

// Adapter wraps an *eventloop.JS. Its methods are safe to call from any
// goroutine, per eventloop.JS's own thread-safety contract.
type Adapter struct {
	js *eventloop.JS
}

var _ concur.TimerService = (*Adapter)(nil)
var _ concur.Scheduler = (*Adapter)(nil)

// New wraps js. js must not be nil.
func New(js *eventloop.JS) *Adapter {
	return &Adapter{js: js}
}

// SetTimeout implements [concur.TimerService] in terms of
// [eventloop.JS.SetTimeout].
func (a *Adapter) SetTimeout(fn func(), delayMs int) (concur.TimerHandle, error) {
	id, err := a.js.SetTimeout(fn, delayMs)
	return concur.TimerHandle(id), err
}

// ClearTimeout implements [concur.TimerService] in terms of
// [eventloop.JS.ClearTimeout].
func (a *Adapter) ClearTimeout(handle concur.TimerHandle) error {
	return a.js.ClearTimeout(uint64(handle))
}

// QueueMicrotask implements [concur.Scheduler] in terms of
// [eventloop.JS.QueueMicrotask].
func (a *Adapter) QueueMicrotask(fn func()) error {
	return a.js.QueueMicrotask(fn)
}
