// Package semaphore implements CountingSemaphore: batched permit
// acquire/release with optional timed acquisition, emulating the
// "first that fits" drain semantics of java.util.concurrent.Semaphore
// (spec §4.2).
package semaphore

import (
	"fmt"
	"sync"

	"github.com/joeycumines/go-concur/concur"
	"github.com/joeycumines/go-concur/concur/waitqueue"
	"github.com/joeycumines/logiface"
)

// acquirer is one pending Acquire/TryAcquireTimeout call.
type acquirer struct {
	permits  int64
	boolean  bool // true for TryAcquireTimeout (completes with bool), false for Acquire (completes with struct{})
	unit     *concur.Completion[struct{}]
	cond     *concur.Completion[bool]
	timer    concur.TimerHandle
	hasTimer bool
}

// Semaphore is a CountingSemaphore. Safe for concurrent use.
type Semaphore struct {
	mu        sync.Mutex
	available int64
	waiters   waitqueue.Queue[*acquirer]

	timerSvc concur.TimerService
	sched    concur.Scheduler
	log      *logiface.Logger[logiface.Event]
}

// New constructs a Semaphore with n initial permits, failing with
// *concur.InvalidArgument ("<n> < 0") if n is negative. timers and sched
// must not be nil; log may be nil, in which case logging is disabled.
func New(n int64, timers concur.TimerService, sched concur.Scheduler, log *logiface.Logger[logiface.Event]) (*Semaphore, error) {
	if n < 0 {
		return nil, concur.NegativeArgument(n)
	}
	if log == nil {
		log = logiface.New[logiface.Event]()
	}
	return &Semaphore{
		available: n,
		timerSvc:  timers,
		sched:     sched,
		log:       log,
	}, nil
}

// AvailablePermits returns the current number of available permits.
func (s *Semaphore) AvailablePermits() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.available
}

// HasWaitingAcquirers reports whether any acquisition is currently
// queued.
func (s *Semaphore) HasWaitingAcquirers() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.waiters.Empty()
}

// WaitingAcquirerCount returns the number of currently queued
// acquisitions.
func (s *Semaphore) WaitingAcquirerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waiters.Len()
}

// Acquire requests permits permits, failing synchronously with
// *concur.InvalidArgument if permits is negative. If enough permits are immediately available it
// returns an already-resolved completion; otherwise it enqueues the
// request and returns a completion that resolves once release(s) by
// other callers make enough permits available.
func (s *Semaphore) Acquire(permits int64) *concur.Completion[struct{}] {
	if permits < 0 {
		return concur.Failed[struct{}](concur.NegativeArgument(permits))
	}

	s.mu.Lock()
	if s.available >= permits {
		s.available -= permits
		s.mu.Unlock()
		return concur.Resolved(struct{}{})
	}
	w := &acquirer{permits: permits, unit: concur.NewCompletion[struct{}](s.sched)}
	s.waiters.Push(w)
	s.mu.Unlock()
	return w.unit
}

// TryAcquire synchronously attempts to acquire permits permits,
// returning true and subtracting them iff available >= permits. A
// negative permits is reported as false rather than an error; use
// TryAcquireTimeout to observe *concur.InvalidArgument synchronously.
func (s *Semaphore) TryAcquire(permits int64) bool {
	if permits < 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.available < permits {
		return false
	}
	s.available -= permits
	return true
}

// TryAcquireTimeout asynchronously attempts to acquire permits permits.
// If immediately satisfiable, it completes true. Otherwise, if
// timeoutMs <= 0, it completes false immediately; otherwise it enqueues
// the request with a timer that, on firing, removes it from the queue
// and completes false.
func (s *Semaphore) TryAcquireTimeout(permits int64, timeoutMs int) *concur.Completion[bool] {
	if permits < 0 {
		return concur.Failed[bool](concur.NegativeArgument(permits))
	}

	s.mu.Lock()
	if s.available >= permits {
		s.available -= permits
		s.mu.Unlock()
		return concur.Resolved(true)
	}
	if timeoutMs <= 0 {
		s.mu.Unlock()
		return concur.Resolved(false)
	}

	w := &acquirer{permits: permits, boolean: true, cond: concur.NewCompletion[bool](s.sched)}
	tok := s.waiters.Push(w)
	s.mu.Unlock()

	handle, err := s.timerSvc.SetTimeout(func() { s.onTimeout(tok, w) }, timeoutMs)
	if err != nil {
		s.mu.Lock()
		s.waiters.Remove(tok)
		s.mu.Unlock()
		w.cond.Resolve(false)
		return w.cond
	}
	s.mu.Lock()
	w.timer = handle
	w.hasTimer = true
	s.mu.Unlock()
	return w.cond
}

func (s *Semaphore) onTimeout(tok waitqueue.Token, w *acquirer) {
	s.mu.Lock()
	removed := s.waiters.Remove(tok)
	s.mu.Unlock()
	if !removed {
		// Already served by the drain protocol.
		return
	}
	w.cond.Resolve(false)
}

// Release returns permits permits to the semaphore, failing with
// *concur.InvalidArgument if permits is negative, then runs the drain
// protocol.
func (s *Semaphore) Release(permits int64) error {
	if permits < 0 {
		return concur.NegativeArgument(permits)
	}

	s.mu.Lock()
	s.available += permits
	served := s.drainLocked()
	s.mu.Unlock()

	s.log.Debug().Int64("permits", permits).Int("served", len(served)).Log("semaphore released")

	for _, w := range served {
		s.completeServed(w)
	}
	return nil
}

// drainLocked walks waiters in FIFO order, serving (subtracting permits
// from, and removing) the first waiter that fits at each step, leaving
// unsatisfiable waiters in place and continuing past them — so a large
// request does not block smaller ones behind it. Must be called with
// s.mu held; returns the waiters that were served, for completion
// outside the lock.
func (s *Semaphore) drainLocked() []*acquirer {
	var served []*acquirer
	s.waiters.Scan(func(w *acquirer) bool {
		if s.available < w.permits {
			return false
		}
		s.available -= w.permits
		served = append(served, w)
		return true
	})
	return served
}

func (s *Semaphore) completeServed(w *acquirer) {
	if w.hasTimer {
		_ = s.timerSvc.ClearTimeout(w.timer)
	}
	if w.boolean {
		w.cond.Resolve(true)
		return
	}
	w.unit.Resolve(struct{}{})
}

// DrainPermits resets available permits to zero and returns the prior
// value. Waiters are not woken — the prior state could not have
// satisfied them.
func (s *Semaphore) DrainPermits() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	prior := s.available
	s.available = 0
	if prior > 0 && !s.waiters.Empty() {
		s.log.Warning().Int64("drained", prior).Int("waiting", s.waiters.Len()).Log("drained permits left waiters unserviceable")
	}
	return prior
}

// String implements fmt.Stringer, matching the stable form from §6.
func (s *Semaphore) String() string {
	return fmt.Sprintf("Semaphore[permits=%d]", s.AvailablePermits())
}
