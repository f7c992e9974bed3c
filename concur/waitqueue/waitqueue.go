// Package waitqueue implements the FIFO, timer-cancellable waiter queue
// shared by barrier, semaphore, and rwlock: "a single-pass vector with
// marked-dead waiters (skipped at drain time) is acceptable" per spec
// design notes, which is the variant implemented here. Removing an entry
// only marks it dead; dead entries are dropped from the backing slice
// once they reach the head of the queue. Remove finds its entry by a
// linear search, so single-waiter cancellation is O(n); Scan and
// DrainWhile each make one O(n) pass.
package waitqueue

import "golang.org/x/exp/slices"

// Queue holds pending waiters of type T in FIFO enqueue order. T is
// typically a small struct carrying a completion reference plus
// whatever per-waiter bookkeeping the owning component needs (permits
// requested, Read/Write tag, timer handle, ...).
type Queue[T any] struct {
	entries []entry[T]
	seq     uint64
}

type entry[T any] struct {
	id    uint64
	dead  bool
	value T
}

// Token identifies a previously-pushed entry, for removal.
type Token uint64

// Push appends v to the tail of the queue and returns a Token that can
// later be passed to Remove (e.g. from a firing timer callback).
func (q *Queue[T]) Push(v T) Token {
	q.seq++
	q.entries = append(q.entries, entry[T]{id: q.seq, value: v})
	return Token(q.seq)
}

// Remove marks the entry identified by tok as dead, so it is skipped by
// Front, Len, and Scan/Drain. It is a no-op if tok does not identify a
// live entry (already removed, or never existed). Reports whether a
// live entry was actually removed.
func (q *Queue[T]) Remove(tok Token) bool {
	i := slices.IndexFunc(q.entries, func(e entry[T]) bool { return e.id == uint64(tok) && !e.dead })
	if i < 0 {
		return false
	}
	q.entries[i].dead = true
	q.compactIfHead()
	return true
}

// compactIfHead drops dead entries from the front of the queue, keeping
// the backing array from growing unboundedly when callers repeatedly
// push and cancel at the head (the common timeout-storm case).
func (q *Queue[T]) compactIfHead() {
	i := 0
	for i < len(q.entries) && q.entries[i].dead {
		i++
	}
	if i > 0 {
		q.entries = slices.Delete(q.entries, 0, i)
	}
}

// Len reports the number of live (non-removed) waiters.
func (q *Queue[T]) Len() int {
	n := 0
	for _, e := range q.entries {
		if !e.dead {
			n++
		}
	}
	return n
}

// Empty reports whether there are no live waiters.
func (q *Queue[T]) Empty() bool { return q.Len() == 0 }

// Front returns the first live waiter without removing it, and whether
// one exists.
func (q *Queue[T]) Front() (T, Token, bool) {
	for _, e := range q.entries {
		if !e.dead {
			return e.value, Token(e.id), true
		}
	}
	var zero T
	return zero, 0, false
}

// PopFront removes and returns the first live waiter, and whether one
// existed.
func (q *Queue[T]) PopFront() (T, Token, bool) {
	v, tok, ok := q.Front()
	if ok {
		q.Remove(tok)
	}
	return v, tok, ok
}

// Scan visits every live waiter, in FIFO order, marking for removal
// those where visit returns true; a false result leaves that waiter in
// place but does not stop the scan. This is the "first that fits"
// drain pattern used by the semaphore and the non-fair read-wake
// sub-policy, where a waiter further back in the queue may be served
// while one ahead of it is left in place.
func (q *Queue[T]) Scan(visit func(T) bool) {
	for i := range q.entries {
		if q.entries[i].dead {
			continue
		}
		if visit(q.entries[i].value) {
			q.entries[i].dead = true
		}
	}
	q.compactIfHead()
}

// DrainWhile removes and visits live waiters from the head, in FIFO
// order, for as long as keep returns true for each one in turn; it
// stops at (and leaves in place) the first waiter for which keep
// returns false. This implements the fair read-wake sub-policy: pop
// consecutive Read waiters until the first Write waiter.
func (q *Queue[T]) DrainWhile(keep func(T) bool) {
	i := 0
	for i < len(q.entries) {
		if q.entries[i].dead {
			i++
			continue
		}
		if !keep(q.entries[i].value) {
			break
		}
		q.entries[i].dead = true
		i++
	}
	q.compactIfHead()
}

// Values returns a snapshot slice of live waiters, in FIFO order. It
// allocates; callers on a hot path should prefer Scan/DrainWhile.
func (q *Queue[T]) Values() []T {
	out := make([]T, 0, len(q.entries))
	for _, e := range q.entries {
		if !e.dead {
			out = append(out, e.value)
		}
	}
	return out
}
