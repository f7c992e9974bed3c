package keyedmap

// enqueue implements the per-key serialization protocol from spec
// §4.4: if k is idle, action begins immediately; otherwise it is
// appended as a continuation, to run once every action ahead of it (for
// the same key) has completed. action is responsible for calling
// advance(k) itself once it is truly done — including after any
// asynchronous user computation it started has settled — so that
// actions which complete asynchronously don't unblock the next
// continuation early.
func (m *Map[K, V]) enqueue(k K, action func()) {
	m.mu.Lock()
	entry, busy := m.pending[k]
	if !busy {
		m.pending[k] = &pendingEntry{}
		m.mu.Unlock()
		m.log.Debug().Log("action starting on idle key")
		action()
		return
	}
	entry.continuations = append(entry.continuations, action)
	queued := len(entry.continuations)
	m.mu.Unlock()
	m.log.Debug().Int("queued", queued).Log("action queued behind in-flight action")
}

// advance pops the head continuation for k and dispatches it through
// the scheduler (never as a direct nested call, to avoid unbounded
// recursion when many actions for the same key complete synchronously
// back to back). If no continuation remains, k is removed from pending,
// returning the key to idle.
func (m *Map[K, V]) advance(k K) {
	m.mu.Lock()
	entry, ok := m.pending[k]
	if !ok {
		m.mu.Unlock()
		return
	}
	if len(entry.continuations) == 0 {
		delete(m.pending, k)
		m.mu.Unlock()
		return
	}
	next := entry.continuations[0]
	entry.continuations = entry.continuations[1:]
	m.mu.Unlock()

	if err := m.sched.QueueMicrotask(next); err != nil {
		// A scheduler that cannot accept more work is not a reason to
		// wedge the key's queue forever.
		next()
	}
}
