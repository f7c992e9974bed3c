// Package barrier implements CountdownBarrier: a one-shot "wait until N
// countdowns have occurred" primitive (spec §4.1). A Barrier is not
// reusable — once its count reaches zero it stays at zero forever.
package barrier

import (
	"fmt"
	"sync"

	"github.com/joeycumines/go-concur/concur"
	"github.com/joeycumines/go-concur/concur/waitqueue"
	"github.com/joeycumines/logiface"
)

// waiter is one pending Await/AwaitTimeout call.
type waiter struct {
	completion *concur.Completion[struct{}]
	timer      concur.TimerHandle
	hasTimer   bool
}

// Barrier is a CountdownBarrier: constructed with an initial count,
// counted down to zero, at which point every pending and future Await
// resolves immediately. Safe for concurrent use.
type Barrier struct {
	mu           sync.Mutex
	initialCount uint32
	currentCount uint32
	waiters      waitqueue.Queue[*waiter]

	timerSvc concur.TimerService
	sched    concur.Scheduler
	log      *logiface.Logger[logiface.Event]
}

// New constructs a Barrier with the given initial count, failing with
// *concur.InvalidArgument ("<n> < 0") if n is negative. timers and sched
// must not be nil; log may be nil, in which case logging is disabled.
func New(n int, timers concur.TimerService, sched concur.Scheduler, log *logiface.Logger[logiface.Event]) (*Barrier, error) {
	if n < 0 {
		return nil, concur.NegativeArgument(int64(n))
	}
	if log == nil {
		log = logiface.New[logiface.Event]()
	}
	return &Barrier{
		initialCount: uint32(n),
		currentCount: uint32(n),
		timerSvc:     timers,
		sched:        sched,
		log:          log,
	}, nil
}

// InitialCount returns the count the barrier was constructed with.
func (b *Barrier) InitialCount() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.initialCount
}

// CurrentCount returns the number of countdowns still required.
func (b *Barrier) CurrentCount() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentCount
}

// CountDown decreases the current count by one, if it is greater than
// zero. On the transition to zero, every pending waiter is completed
// successfully, in enqueue order, and its timer (if any) is cancelled.
// It is a no-op once the count has already reached zero.
func (b *Barrier) CountDown() {
	b.mu.Lock()
	if b.currentCount == 0 {
		b.mu.Unlock()
		return
	}
	b.currentCount--
	if b.currentCount > 0 {
		b.mu.Unlock()
		return
	}

	// Transition to zero: drain every waiter.
	var toComplete []*waiter
	for {
		w, _, ok := b.waiters.PopFront()
		if !ok {
			break
		}
		toComplete = append(toComplete, w)
	}
	timerSvc := b.timerSvc
	b.mu.Unlock()

	b.log.Debug().Int("waiters", len(toComplete)).Log("barrier reached zero")
	for _, w := range toComplete {
		if w.hasTimer {
			_ = timerSvc.ClearTimeout(w.timer)
		}
		w.completion.Resolve(struct{}{})
	}
}

// Await returns a completion that resolves once the count reaches zero.
// It resolves immediately if the count is already zero.
func (b *Barrier) Await() *concur.Completion[struct{}] {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.currentCount == 0 {
		return concur.Resolved(struct{}{})
	}
	w := &waiter{completion: concur.NewCompletion[struct{}](b.sched)}
	b.waiters.Push(w)
	return w.completion
}

// AwaitTimeout returns a completion that resolves once the count
// reaches zero, or fails with *concur.TimedOut ("Timeout expired") once
// timeoutMs elapses first. If timeoutMs <= 0 and the count is not
// already zero, it fails immediately. If the count is already zero, it
// resolves immediately regardless of timeoutMs.
func (b *Barrier) AwaitTimeout(timeoutMs int) *concur.Completion[struct{}] {
	b.mu.Lock()
	if b.currentCount == 0 {
		b.mu.Unlock()
		return concur.Resolved(struct{}{})
	}
	if timeoutMs <= 0 {
		b.mu.Unlock()
		return concur.Failed[struct{}](&concur.TimedOut{})
	}

	w := &waiter{completion: concur.NewCompletion[struct{}](b.sched)}
	tok := b.waiters.Push(w)
	b.mu.Unlock()

	handle, err := b.timerSvc.SetTimeout(func() { b.onTimeout(tok, w) }, timeoutMs)
	if err != nil {
		// Scheduling failure: treat as an immediate timeout rather than
		// leaving the caller waiting forever.
		b.mu.Lock()
		b.waiters.Remove(tok)
		b.mu.Unlock()
		w.completion.Reject(&concur.TimedOut{Cause: err})
		return w.completion
	}
	b.mu.Lock()
	w.timer = handle
	w.hasTimer = true
	b.mu.Unlock()
	return w.completion
}

func (b *Barrier) onTimeout(tok waitqueue.Token, w *waiter) {
	b.mu.Lock()
	removed := b.waiters.Remove(tok)
	b.mu.Unlock()
	if !removed {
		// Already completed by CountDown; the race was won by the
		// countdown, so do not also fail the completion.
		return
	}
	w.completion.Reject(&concur.TimedOut{})
}

// String implements fmt.Stringer, matching the stable Java-derived form
// from spec §6.
func (b *Barrier) String() string {
	return fmt.Sprintf("CountDownLatch[count=%d]", b.CurrentCount())
}
