package rwlock

import (
	"fmt"
	"sync"

	"github.com/joeycumines/go-concur/concur"
)

// ReadHandle represents one held read lock. Its identity belongs to
// whichever acquirer received it; it must not be shared between
// logical acquirers.
type ReadHandle struct {
	mu   sync.Mutex
	lock *RWLock
	held bool
}

// IsHeld reports whether this handle currently holds its read lock.
func (h *ReadHandle) IsHeld() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.held
}

// Release releases the read lock, failing with *concur.InvalidState
// ("Read lock is no longer held") if it was already released.
func (h *ReadHandle) Release() error {
	h.mu.Lock()
	if !h.held {
		h.mu.Unlock()
		return &concur.InvalidState{Message: "Read lock is no longer held"}
	}
	h.held = false
	h.mu.Unlock()

	h.lock.mu.Lock()
	h.lock.releaseReadLocked()
	h.lock.mu.Unlock()
	return nil
}

// UpgradeToWrite releases the held read lock and then acquires a write
// lock with the given optional timeout, exactly as AcquireWrite. Because
// the read lock is released synchronously before the write acquisition
// is enqueued, concurrent upgraders race for the write slot like
// ordinary AcquireWrite callers — the transition is not atomic. If the
// read lock was already released, fails synchronously with
// *concur.InvalidState ("Read lock is no longer held"); on timeout, the
// original read lock is NOT restored.
func (h *ReadHandle) UpgradeToWrite(timeoutMs ...int) *concur.Completion[*WriteHandle] {
	if err := h.Release(); err != nil {
		return concur.Failed[*WriteHandle](err)
	}
	return h.lock.AcquireWrite(timeoutMs...)
}

// String implements fmt.Stringer, matching the stable form from §6.
func (h *ReadHandle) String() string {
	return fmt.Sprintf("ReadLock[held=%t]", h.IsHeld())
}

// WriteHandle represents the held write lock. Its identity belongs to
// whichever acquirer received it.
type WriteHandle struct {
	mu   sync.Mutex
	lock *RWLock
	held bool
}

// IsHeld reports whether this handle currently holds the write lock.
func (h *WriteHandle) IsHeld() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.held
}

// Release releases the write lock, failing with *concur.InvalidState
// ("Write lock is no longer held") if it was already released.
func (h *WriteHandle) Release() error {
	h.mu.Lock()
	if !h.held {
		h.mu.Unlock()
		return &concur.InvalidState{Message: "Write lock is no longer held"}
	}
	h.held = false
	h.mu.Unlock()

	h.lock.mu.Lock()
	h.lock.releaseWriteLocked()
	h.lock.mu.Unlock()
	return nil
}

// DowngradeToRead atomically (from an observer's viewpoint) swaps the
// held write lock for a newly held read lock, immediately activating any
// queued readers per the current fairness policy so they can proceed in
// parallel with the downgraded reader. Fails with *concur.InvalidState
// ("Write lock is no longer held") if the handle was not held.
func (h *WriteHandle) DowngradeToRead() (*ReadHandle, error) {
	h.mu.Lock()
	if !h.held {
		h.mu.Unlock()
		return nil, &concur.InvalidState{Message: "Write lock is no longer held"}
	}
	h.held = false
	h.mu.Unlock()

	l := h.lock
	l.mu.Lock()
	l.writeHeld = false
	l.readCount++
	read := l.newReadHandle()
	l.wakeReadsLocked()
	l.mu.Unlock()

	return read, nil
}

// String implements fmt.Stringer, matching the stable form from §6.
func (h *WriteHandle) String() string {
	return fmt.Sprintf("WriteLock[held=%t]", h.IsHeld())
}
