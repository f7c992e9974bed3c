// Package rwlock implements ReadWriteLock: a multi-reader/single-writer
// lock with a fair or non-fair acquisition policy and direct
// upgrade/downgrade between a held read lock and a held write lock
// (spec §4.3).
package rwlock

import (
	"fmt"
	"sync"

	"github.com/joeycumines/go-concur/concur"
	"github.com/joeycumines/go-concur/concur/waitqueue"
	"github.com/joeycumines/logiface"
)

type kind int

const (
	kindRead kind = iota
	kindWrite
)

// rwWaiter is one pending AcquireRead/AcquireWrite/UpgradeToWrite call.
// grant and reject close over the waiter's actual completion type
// (*Completion[*ReadHandle] or *Completion[*WriteHandle]) so the
// waiter queue itself can stay homogeneous.
type rwWaiter struct {
	kind     kind
	grant    func()
	reject   func(err error)
	timer    concur.TimerHandle
	hasTimer bool
}

// Option configures a RWLock at construction.
type Option func(*options)

type options struct {
	fair bool
}

// WithFair controls the fairness policy: fair (the default) blocks new
// readers while writers are queued; non-fair admits readers immediately
// while reads are active, regardless of queued writers.
func WithFair(fair bool) Option {
	return func(o *options) { o.fair = fair }
}

// RWLock is a ReadWriteLock. Safe for concurrent use.
type RWLock struct {
	mu        sync.Mutex
	readCount uint32
	writeHeld bool
	fair      bool
	waiters   waitqueue.Queue[*rwWaiter]

	timerSvc concur.TimerService
	sched    concur.Scheduler
	log      *logiface.Logger[logiface.Event]
}

// New constructs a RWLock, fair by default. timers and sched must not be
// nil; log may be nil, in which case logging is disabled.
func New(timers concur.TimerService, sched concur.Scheduler, log *logiface.Logger[logiface.Event], opts ...Option) *RWLock {
	cfg := options{fair: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	if log == nil {
		log = logiface.New[logiface.Event]()
	}
	return &RWLock{
		fair:     cfg.fair,
		timerSvc: timers,
		sched:    sched,
		log:      log,
	}
}

// IsReadHeld reports whether at least one read lock is currently held.
func (l *RWLock) IsReadHeld() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readCount > 0
}

// IsWriteHeld reports whether the write lock is currently held.
func (l *RWLock) IsWriteHeld() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writeHeld
}

// CurrentReadCount returns the number of currently held read locks.
func (l *RWLock) CurrentReadCount() uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readCount
}

// WaitingReadCount returns the number of queued read acquisitions.
func (l *RWLock) WaitingReadCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.countWaitingLocked(kindRead)
}

// WaitingWriteCount returns the number of queued write acquisitions.
func (l *RWLock) WaitingWriteCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.countWaitingLocked(kindWrite)
}

func (l *RWLock) countWaitingLocked(k kind) int {
	n := 0
	for _, w := range l.waiters.Values() {
		if w.kind == k {
			n++
		}
	}
	return n
}

// String implements fmt.Stringer, matching the stable form from §6.
func (l *RWLock) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fmt.Sprintf("ReadWriteLock[write lock=%t, read locks=%d]", l.writeHeld, l.readCount)
}

func (l *RWLock) canGrantReadLocked() bool {
	if l.writeHeld {
		return false
	}
	if l.fair && !l.waiters.Empty() {
		return false
	}
	if l.readCount > 0 {
		return true
	}
	return l.waiters.Empty()
}

func (l *RWLock) canGrantWriteLocked() bool {
	return l.readCount == 0 && !l.writeHeld
}

// AcquireRead returns a completion for a [ReadHandle], following the
// fair/non-fair acquisition policy from spec §4.3. An optional
// timeoutMs behaves as described on AcquireWrite.
func (l *RWLock) AcquireRead(timeoutMs ...int) *concur.Completion[*ReadHandle] {
	l.mu.Lock()
	if l.canGrantReadLocked() {
		l.readCount++
		l.mu.Unlock()
		return concur.Resolved(l.newReadHandle())
	}

	if to, ok := soleTimeout(timeoutMs); ok && to <= 0 {
		l.mu.Unlock()
		return concur.Failed[*ReadHandle](&concur.TimedOut{})
	}

	completion := concur.NewCompletion[*ReadHandle](l.sched)
	w := &rwWaiter{
		kind: kindRead,
		grant: func() {
			l.readCount++
			completion.Resolve(l.newReadHandle())
		},
		reject: func(err error) { completion.Reject(err) },
	}
	tok := l.waiters.Push(w)
	l.mu.Unlock()

	if to, ok := soleTimeout(timeoutMs); ok {
		l.arm(tok, w, to)
	}
	return completion
}

// AcquireWrite returns a completion for a [WriteHandle]. An optional
// timeoutMs may be supplied: if absent, the wait never times out; if
// supplied and the lock cannot be granted immediately, a timeoutMs <= 0
// fails immediately with *concur.TimedOut, otherwise a timer is armed
// that fails the completion with *concur.TimedOut on expiry.
func (l *RWLock) AcquireWrite(timeoutMs ...int) *concur.Completion[*WriteHandle] {
	l.mu.Lock()
	if l.canGrantWriteLocked() {
		l.writeHeld = true
		l.mu.Unlock()
		return concur.Resolved(l.newWriteHandle())
	}

	if to, ok := soleTimeout(timeoutMs); ok && to <= 0 {
		l.mu.Unlock()
		return concur.Failed[*WriteHandle](&concur.TimedOut{})
	}

	completion := concur.NewCompletion[*WriteHandle](l.sched)
	w := &rwWaiter{
		kind: kindWrite,
		grant: func() {
			l.writeHeld = true
			completion.Resolve(l.newWriteHandle())
		},
		reject: func(err error) { completion.Reject(err) },
	}
	tok := l.waiters.Push(w)
	l.mu.Unlock()

	if to, ok := soleTimeout(timeoutMs); ok {
		l.arm(tok, w, to)
	}
	return completion
}

func soleTimeout(timeoutMs []int) (int, bool) {
	if len(timeoutMs) == 0 {
		return 0, false
	}
	return timeoutMs[0], true
}

func (l *RWLock) arm(tok waitqueue.Token, w *rwWaiter, timeoutMs int) {
	handle, err := l.timerSvc.SetTimeout(func() { l.onTimeout(tok, w) }, timeoutMs)
	l.mu.Lock()
	if err != nil {
		l.waiters.Remove(tok)
		l.mu.Unlock()
		w.reject(&concur.TimedOut{Cause: err})
		return
	}
	w.timer = handle
	w.hasTimer = true
	l.mu.Unlock()
}

func (l *RWLock) onTimeout(tok waitqueue.Token, w *rwWaiter) {
	l.mu.Lock()
	removed := l.waiters.Remove(tok)
	l.mu.Unlock()
	if !removed {
		return
	}
	l.log.Debug().Bool("write", w.kind == kindWrite).Log("acquisition timed out")
	w.reject(&concur.TimedOut{})
}

func (l *RWLock) cancelTimer(w *rwWaiter) {
	if w.hasTimer {
		_ = l.timerSvc.ClearTimeout(w.timer)
	}
}

// activateLocked runs the release-and-wake protocol from spec §4.3: pop
// the head waiter and grant it; if it was a reader, continue activating
// further readers per the read-wake sub-policy; if it was a writer,
// stop. Must be called with l.mu held, and only when readCount==0 and
// !writeHeld.
func (l *RWLock) activateLocked() {
	w, tok, ok := l.waiters.Front()
	if !ok {
		return
	}
	l.waiters.Remove(tok)
	l.cancelTimer(w)
	w.grant()
	l.log.Debug().Bool("write", w.kind == kindWrite).Log("activated waiter")

	if w.kind == kindRead {
		l.wakeReadsLocked()
	}
}

// wakeReadsLocked activates additional queued readers per the current
// fairness policy. Must be called with l.mu held.
func (l *RWLock) wakeReadsLocked() {
	if l.fair {
		l.waiters.DrainWhile(func(w *rwWaiter) bool {
			if w.kind != kindRead {
				return false
			}
			l.cancelTimer(w)
			w.grant()
			return true
		})
		return
	}
	l.waiters.Scan(func(w *rwWaiter) bool {
		if w.kind != kindRead {
			return false
		}
		l.cancelTimer(w)
		w.grant()
		return true
	})
}

func (l *RWLock) newReadHandle() *ReadHandle {
	return &ReadHandle{lock: l, held: true}
}

func (l *RWLock) newWriteHandle() *WriteHandle {
	return &WriteHandle{lock: l, held: true}
}

// releaseReadLocked decrements readCount and, if it reaches zero while
// no write is held, runs the wake protocol. Must be called with l.mu
// held.
func (l *RWLock) releaseReadLocked() {
	l.readCount--
	if l.readCount == 0 && !l.writeHeld {
		l.activateLocked()
	}
}

// releaseWriteLocked clears writeHeld and runs the wake protocol. Must
// be called with l.mu held.
func (l *RWLock) releaseWriteLocked() {
	l.writeHeld = false
	l.activateLocked()
}
