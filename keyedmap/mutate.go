package keyedmap

import (
	"reflect"

	"github.com/joeycumines/go-concur/concur"
)

// equalValues reports whether a and b are equal, used by the
// compare-and-swap style operations (DeleteIf, Replace). V carries no
// comparable constraint (many useful V are structs holding slices or
// maps), so equality falls back to reflect.DeepEqual rather than `==`.
func equalValues[V any](a, b V) bool {
	return reflect.DeepEqual(a, b)
}

// Set unconditionally stores v under k, resolving with whatever value
// k held before (absent if none).
func (m *Map[K, V]) Set(k K, v V) *concur.Completion[Maybe[V]] {
	completion := concur.NewCompletion[Maybe[V]](m.sched)
	m.enqueue(k, func() {
		m.mu.Lock()
		old := m.setLocked(k, v)
		m.mu.Unlock()
		completion.Resolve(old)
		m.advance(k)
	})
	return completion
}

// Delete removes k, resolving with the removed value (absent if k was
// not present).
func (m *Map[K, V]) Delete(k K) *concur.Completion[Maybe[V]] {
	completion := concur.NewCompletion[Maybe[V]](m.sched)
	m.enqueue(k, func() {
		m.mu.Lock()
		old := m.deleteLocked(k)
		m.mu.Unlock()
		completion.Resolve(old)
		m.advance(k)
	})
	return completion
}

// DeleteIf removes k only if it currently maps to expected, resolving
// with whether the removal happened.
func (m *Map[K, V]) DeleteIf(k K, expected V) *concur.Completion[bool] {
	completion := concur.NewCompletion[bool](m.sched)
	m.enqueue(k, func() {
		m.mu.Lock()
		cur, ok := m.current[k]
		var removed bool
		if ok && equalValues(cur, expected) {
			m.deleteLocked(k)
			removed = true
		}
		m.mu.Unlock()
		completion.Resolve(removed)
		m.advance(k)
	})
	return completion
}

// SetIfAbsent stores v under k only if k is not currently present. It
// resolves with the value that was already there (and blocked the set)
// when present, or absent when the set happened.
func (m *Map[K, V]) SetIfAbsent(k K, v V) *concur.Completion[Maybe[V]] {
	completion := concur.NewCompletion[Maybe[V]](m.sched)
	m.enqueue(k, func() {
		m.mu.Lock()
		cur, ok := m.current[k]
		var result Maybe[V]
		if ok {
			result = Some(cur)
		} else {
			m.setLocked(k, v)
			result = None[V]()
		}
		m.mu.Unlock()
		completion.Resolve(result)
		m.advance(k)
	})
	return completion
}

// SetIfPresent stores v under k only if k is currently present. It
// resolves with the value it replaced, or absent if k was not present
// (in which case nothing is mutated).
func (m *Map[K, V]) SetIfPresent(k K, v V) *concur.Completion[Maybe[V]] {
	completion := concur.NewCompletion[Maybe[V]](m.sched)
	m.enqueue(k, func() {
		m.mu.Lock()
		cur, ok := m.current[k]
		var result Maybe[V]
		if ok {
			m.setLocked(k, v)
			result = Some(cur)
		} else {
			result = None[V]()
		}
		m.mu.Unlock()
		completion.Resolve(result)
		m.advance(k)
	})
	return completion
}

// Replace stores newV under k only if k currently maps to oldV,
// resolving with whether the replacement happened.
func (m *Map[K, V]) Replace(k K, oldV, newV V) *concur.Completion[bool] {
	completion := concur.NewCompletion[bool](m.sched)
	m.enqueue(k, func() {
		m.mu.Lock()
		cur, ok := m.current[k]
		var replaced bool
		if ok && equalValues(cur, oldV) {
			m.setLocked(k, newV)
			replaced = true
		}
		m.mu.Unlock()
		completion.Resolve(replaced)
		m.advance(k)
	})
	return completion
}
