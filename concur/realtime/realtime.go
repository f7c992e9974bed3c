// Package realtime provides a wall-clock [concur.TimerService] and
// [concur.Scheduler] for callers who want the go-concur primitives
// without embedding a full event loop — the "low-overhead, built-in"
// counterpart to concur/eventloopadapter, in the same spirit as
// eventloop.NewDefaultLogger alongside the framework-specific logiface
// backends.
package realtime

import (
	"sync"
	"time"

	"github.com/joeycumines/go-concur/concur"
)

// Host is a TimerService backed by time.AfterFunc and a Scheduler
// backed by a single background dispatcher goroutine that runs queued
// microtasks in FIFO order. Construct it with New (the zero value is not
// usable); call Close to stop the dispatcher goroutine once the Host is
// no longer needed.
type Host struct {
	mu      sync.Mutex
	next    concur.TimerHandle
	timers  map[concur.TimerHandle]*time.Timer
	once    sync.Once
	tasks   chan func()
	closeCh chan struct{}
}

var _ concur.TimerService = (*Host)(nil)
var _ concur.Scheduler = (*Host)(nil)

// New returns a ready-to-use Host.
func New() *Host {
	h := &Host{
		timers:  make(map[concur.TimerHandle]*time.Timer),
		tasks:   make(chan func(), 256),
		closeCh: make(chan struct{}),
	}
	go h.dispatch()
	return h
}

func (h *Host) dispatch() {
	for {
		select {
		case fn := <-h.tasks:
			fn()
		case <-h.closeCh:
			return
		}
	}
}

// SetTimeout implements [concur.TimerService].
func (h *Host) SetTimeout(fn func(), delayMs int) (concur.TimerHandle, error) {
	delay := time.Duration(delayMs) * time.Millisecond
	if delayMs <= 0 {
		delay = 0
	}

	// Hold h.mu until the timer is recorded, so a callback that fires
	// immediately still finds its handle live.
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	handle := h.next
	t := time.AfterFunc(delay, func() {
		h.mu.Lock()
		_, live := h.timers[handle]
		delete(h.timers, handle)
		h.mu.Unlock()
		if live {
			h.enqueue(fn)
		}
	})
	h.timers[handle] = t
	return handle, nil
}

// ClearTimeout implements [concur.TimerService].
func (h *Host) ClearTimeout(handle concur.TimerHandle) error {
	h.mu.Lock()
	t, ok := h.timers[handle]
	delete(h.timers, handle)
	h.mu.Unlock()
	if ok {
		t.Stop()
	}
	return nil
}

// QueueMicrotask implements [concur.Scheduler].
func (h *Host) QueueMicrotask(fn func()) error {
	h.enqueue(fn)
	return nil
}

func (h *Host) enqueue(fn func()) {
	select {
	case h.tasks <- fn:
	case <-h.closeCh:
	}
}

// Close stops the dispatcher goroutine. Pending timers are not fired;
// in-flight microtasks may be dropped.
func (h *Host) Close() {
	h.once.Do(func() { close(h.closeCh) })
}
