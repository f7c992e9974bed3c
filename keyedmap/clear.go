package keyedmap

import (
	"sync"

	"github.com/joeycumines/go-concur/concur"
)

// Clear removes every entry, synchronously: Size observes zero as soon
// as Clear returns, even for keys with an action in flight (whose own
// mutation, still running, would otherwise resurrect the entry once it
// completes). For each key that had an action in flight at the moment
// of the call, a guard tail-delete is queued behind it so the eventual
// mutation gets undone once it lands; the returned completion resolves
// only once every such guard has run. Actions already queued behind the
// in-flight one run before the guard, so entries they set are removed
// too. Entries set by actions queued after Clear was called, or on keys
// that were idle at call time, are not touched by this call.
func (m *Map[K, V]) Clear() *concur.Completion[struct{}] {
	m.mu.Lock()
	busyKeys := make([]K, 0, len(m.pending))
	for k := range m.pending {
		busyKeys = append(busyKeys, k)
	}
	for _, k := range m.order {
		delete(m.current, k)
	}
	m.order = nil
	m.mu.Unlock()

	if len(busyKeys) == 0 {
		return concur.Resolved(struct{}{})
	}

	completion := concur.NewCompletion[struct{}](m.sched)
	var mu sync.Mutex
	remaining := len(busyKeys)
	for _, k := range busyKeys {
		k := k
		m.enqueue(k, func() {
			m.mu.Lock()
			m.deleteLocked(k)
			m.mu.Unlock()
			m.advance(k)

			mu.Lock()
			remaining--
			done := remaining == 0
			mu.Unlock()
			if done {
				completion.Resolve(struct{}{})
			}
		})
	}
	return completion
}
