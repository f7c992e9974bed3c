package keyedmap

import "github.com/joeycumines/go-concur/concur"

// ComputeIfAbsent invokes fn only if k is not currently present, storing
// whatever value the returned completion resolves to and resolving with
// it (as Some). If k is already present, fn is not called and the
// outer completion resolves with the existing value. If fn's completion
// rejects, the outer completion rejects with
// *concur.UserComputationFailed and the map is left unchanged.
func (m *Map[K, V]) ComputeIfAbsent(k K, fn func(k K) *concur.Completion[V]) *concur.Completion[Maybe[V]] {
	outer := concur.NewCompletion[Maybe[V]](m.sched)
	m.enqueue(k, func() {
		m.mu.Lock()
		cur, ok := m.current[k]
		m.mu.Unlock()
		if ok {
			outer.Resolve(Some(cur))
			m.advance(k)
			return
		}

		fn(k).OnComplete(func(v V, err error) {
			if err != nil {
				outer.Reject(&concur.UserComputationFailed{Key: k, Cause: err})
				m.advance(k)
				return
			}
			m.mu.Lock()
			m.setLocked(k, v)
			m.mu.Unlock()
			outer.Resolve(Some(v))
			m.advance(k)
		})
	})
	return outer
}

// ComputeIfPresent invokes fn only if k is currently present, passing
// the current value. The result replaces the entry when Present, or
// removes it otherwise; the outer completion resolves with that same
// result. If k is absent, fn is not called and the outer completion
// resolves with absent. A rejection from fn's completion propagates as
// *concur.UserComputationFailed, leaving the map unchanged.
func (m *Map[K, V]) ComputeIfPresent(k K, fn func(k K, old V) *concur.Completion[Maybe[V]]) *concur.Completion[Maybe[V]] {
	outer := concur.NewCompletion[Maybe[V]](m.sched)
	m.enqueue(k, func() {
		m.mu.Lock()
		cur, ok := m.current[k]
		m.mu.Unlock()
		if !ok {
			outer.Resolve(None[V]())
			m.advance(k)
			return
		}

		fn(k, cur).OnComplete(func(result Maybe[V], err error) {
			if err != nil {
				outer.Reject(&concur.UserComputationFailed{Key: k, Cause: err})
				m.advance(k)
				return
			}
			m.mu.Lock()
			if result.Present {
				m.setLocked(k, result.Value)
			} else {
				m.deleteLocked(k)
			}
			m.mu.Unlock()
			outer.Resolve(result)
			m.advance(k)
		})
	})
	return outer
}

// Compute invokes fn unconditionally, passing the current value (absent
// if k is not present). The result replaces the entry when Present, or
// removes/leaves-absent it otherwise; the outer completion resolves
// with that same result. A rejection from fn's completion propagates as
// *concur.UserComputationFailed, leaving the map unchanged.
func (m *Map[K, V]) Compute(k K, fn func(k K, old Maybe[V]) *concur.Completion[Maybe[V]]) *concur.Completion[Maybe[V]] {
	outer := concur.NewCompletion[Maybe[V]](m.sched)
	m.enqueue(k, func() {
		m.mu.Lock()
		cur, ok := m.current[k]
		m.mu.Unlock()
		var old Maybe[V]
		if ok {
			old = Some(cur)
		} else {
			old = None[V]()
		}

		fn(k, old).OnComplete(func(result Maybe[V], err error) {
			if err != nil {
				outer.Reject(&concur.UserComputationFailed{Key: k, Cause: err})
				m.advance(k)
				return
			}
			m.mu.Lock()
			if result.Present {
				m.setLocked(k, result.Value)
			} else {
				m.deleteLocked(k)
			}
			m.mu.Unlock()
			outer.Resolve(result)
			m.advance(k)
		})
	})
	return outer
}

// Merge combines v with the current value via fn (if k is present), or
// stores v directly (if k is absent, in which case fn is not called).
// The merged result replaces the entry when Present, or removes it
// otherwise; the outer completion resolves with that same result. A
// rejection from fn's completion propagates as
// *concur.UserComputationFailed, leaving the map unchanged.
func (m *Map[K, V]) Merge(k K, v V, fn func(old, new V) *concur.Completion[Maybe[V]]) *concur.Completion[Maybe[V]] {
	outer := concur.NewCompletion[Maybe[V]](m.sched)
	m.enqueue(k, func() {
		m.mu.Lock()
		cur, ok := m.current[k]
		m.mu.Unlock()
		if !ok {
			m.mu.Lock()
			m.setLocked(k, v)
			m.mu.Unlock()
			outer.Resolve(Some(v))
			m.advance(k)
			return
		}

		fn(cur, v).OnComplete(func(result Maybe[V], err error) {
			if err != nil {
				outer.Reject(&concur.UserComputationFailed{Key: k, Cause: err})
				m.advance(k)
				return
			}
			m.mu.Lock()
			if result.Present {
				m.setLocked(k, result.Value)
			} else {
				m.deleteLocked(k)
			}
			m.mu.Unlock()
			outer.Resolve(result)
			m.advance(k)
		})
	})
	return outer
}
