// Package keyedmap implements ConcurrentKeyedMap: a map with per-key
// serialized asynchronous actions, supporting single-flight compute
// semantics while keeping synchronous snapshot reads always available
// (spec §4.4).
package keyedmap

import (
	"fmt"
	"sync"

	"github.com/joeycumines/go-concur/concur"
	"github.com/joeycumines/logiface"
)

// Maybe is the Go realization of spec's "absent sentinel": rather than
// threading a distinguished absent value through a generic V, presence
// is reported with an explicit flag, the same shape Go's own map
// comma-ok idiom uses.
type Maybe[V any] struct {
	Value   V
	Present bool
}

// Some returns a present Maybe holding v.
func Some[V any](v V) Maybe[V] { return Maybe[V]{Value: v, Present: true} }

// None returns an absent Maybe.
func None[V any]() Maybe[V] { var zero V; return Maybe[V]{Value: zero} }

// pendingEntry tracks the in-flight/queued actions for one key. A
// present *pendingEntry with an empty continuations slice means "one
// action running, none queued"; absence of the key from Map.pending
// means "idle".
type pendingEntry struct {
	continuations []func()
}

// Map is a ConcurrentKeyedMap[K, V]. Safe for concurrent use.
type Map[K comparable, V any] struct {
	sched concur.Scheduler
	log   *logiface.Logger[logiface.Event]

	mu      sync.Mutex
	current map[K]V
	order   []K
	pending map[K]*pendingEntry
}

// New constructs an empty Map. sched must not be nil; log may be nil, in
// which case logging is disabled.
func New[K comparable, V any](sched concur.Scheduler, log *logiface.Logger[logiface.Event]) *Map[K, V] {
	if log == nil {
		log = logiface.New[logiface.Event]()
	}
	return &Map[K, V]{
		sched:   sched,
		log:     log,
		current: make(map[K]V),
		pending: make(map[K]*pendingEntry),
	}
}

// --- snapshot (synchronous) operations; these always read current and
// ignore pending. ---

// Size returns the number of entries currently in the map.
func (m *Map[K, V]) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.current)
}

// String implements fmt.Stringer.
func (m *Map[K, V]) String() string {
	return fmt.Sprintf("ConcurrentKeyedMap[size=%d]", m.Size())
}

// Get returns the current value for k, and whether it is present.
func (m *Map[K, V]) Get(k K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.current[k]
	return v, ok
}

// Has reports whether k is currently present.
func (m *Map[K, V]) Has(k K) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.current[k]
	return ok
}

// Keys returns a snapshot of the keys currently present, in insertion
// order.
func (m *Map[K, V]) Keys() []K {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]K, len(m.order))
	copy(out, m.order)
	return out
}

// Values returns a snapshot of the values currently present, in the
// insertion order of their keys.
func (m *Map[K, V]) Values() []V {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]V, 0, len(m.order))
	for _, k := range m.order {
		out = append(out, m.current[k])
	}
	return out
}

// Entry is one key/value pair, as returned by Entries.
type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

// Entries returns a snapshot of the key/value pairs currently present,
// in insertion order.
func (m *Map[K, V]) Entries() []Entry[K, V] {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry[K, V], 0, len(m.order))
	for _, k := range m.order {
		out = append(out, Entry[K, V]{Key: k, Value: m.current[k]})
	}
	return out
}

// ForEach calls fn once per entry currently present, in insertion order.
// fn must not call back into m.
func (m *Map[K, V]) ForEach(fn func(k K, v V)) {
	for _, e := range m.Entries() {
		fn(e.Key, e.Value)
	}
}

// GetLatest queues a no-op action behind any in-flight/queued actions
// for k and resolves with the current value (and presence) once it
// reaches the front.
func (m *Map[K, V]) GetLatest(k K) *concur.Completion[Maybe[V]] {
	completion := concur.NewCompletion[Maybe[V]](m.sched)
	m.enqueue(k, func() {
		v, ok := m.Get(k)
		completion.Resolve(Maybe[V]{Value: v, Present: ok})
		m.advance(k)
	})
	return completion
}

// --- internal get/set helpers, always called from inside an enqueued
// action (so no additional locking is needed around the mutation
// itself beyond what protects current/order). ---

func (m *Map[K, V]) setLocked(k K, v V) (old Maybe[V]) {
	prev, existed := m.current[k]
	if !existed {
		m.order = append(m.order, k)
	}
	m.current[k] = v
	if existed {
		return Some(prev)
	}
	return None[V]()
}

func (m *Map[K, V]) deleteLocked(k K) (old Maybe[V]) {
	prev, existed := m.current[k]
	if !existed {
		return None[V]()
	}
	delete(m.current, k)
	m.removeOrderLocked(k)
	return Some(prev)
}

func (m *Map[K, V]) removeOrderLocked(k K) {
	for i, key := range m.order {
		if key == k {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}
