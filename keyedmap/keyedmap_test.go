package keyedmap_test

import (
	"strconv"
	"testing"

	"github.com/joeycumines/go-concur/concur"
	"github.com/joeycumines/go-concur/concur/concurtest"
	"github.com/joeycumines/go-concur/keyedmap"
	"github.com/stretchr/testify/require"
)

func newMap[K comparable, V any]() (*keyedmap.Map[K, V], *concurtest.Clock) {
	clk := &concurtest.Clock{}
	return keyedmap.New[K, V](clk, nil), clk
}

func TestSnapshotReadsAndSet(t *testing.T) {
	m, _ := newMap[string, int]()

	old, err := m.Set("a", 1).Wait()
	require.NoError(t, err)
	require.False(t, old.Present)
	require.Equal(t, 1, m.Size())
	v, ok := m.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, v)

	old, err = m.Set("a", 2).Wait()
	require.NoError(t, err)
	require.True(t, old.Present)
	require.Equal(t, 1, old.Value)
}

func TestDeleteAndDeleteIf(t *testing.T) {
	m, _ := newMap[string, int]()
	_, err := m.Set("a", 1).Wait()
	require.NoError(t, err)

	ok, err := m.DeleteIf("a", 99).Wait()
	require.NoError(t, err)
	require.False(t, ok)
	require.True(t, m.Has("a"))

	ok, err = m.DeleteIf("a", 1).Wait()
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, m.Has("a"))

	old, err := m.Delete("a").Wait()
	require.NoError(t, err)
	require.False(t, old.Present)
}

func TestSetIfAbsentAndSetIfPresent(t *testing.T) {
	m, _ := newMap[string, int]()

	existing, err := m.SetIfAbsent("a", 1).Wait()
	require.NoError(t, err)
	require.False(t, existing.Present)
	v, _ := m.Get("a")
	require.Equal(t, 1, v)

	existing, err = m.SetIfAbsent("a", 2).Wait()
	require.NoError(t, err)
	require.True(t, existing.Present)
	require.Equal(t, 1, existing.Value)
	v, _ = m.Get("a")
	require.Equal(t, 1, v)

	replaced, err := m.SetIfPresent("a", 5).Wait()
	require.NoError(t, err)
	require.True(t, replaced.Present)
	require.Equal(t, 1, replaced.Value)

	replaced, err = m.SetIfPresent("b", 5).Wait()
	require.NoError(t, err)
	require.False(t, replaced.Present)
	require.False(t, m.Has("b"))
}

func TestReplace(t *testing.T) {
	m, _ := newMap[string, int]()
	_, err := m.Set("a", 1).Wait()
	require.NoError(t, err)

	ok, err := m.Replace("a", 99, 2).Wait()
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = m.Replace("a", 1, 2).Wait()
	require.NoError(t, err)
	require.True(t, ok)
	v, _ := m.Get("a")
	require.Equal(t, 2, v)
}

// Scenario 6 (spec §8): single-flight compute. Calling compute_if_absent
// for the same key twice, back to back, only ever invokes fn once — the
// second call observes the value the first one already stored.
func TestScenario6SingleFlightCompute(t *testing.T) {
	m, clk := newMap[int, string]()
	var counter int
	fn := func(k int) *concur.Completion[string] {
		counter++
		return concur.Resolved(strconv.Itoa(k))
	}

	c1 := m.ComputeIfAbsent(1, fn)
	c2 := m.ComputeIfAbsent(1, fn)
	clk.Drain()

	v1, err := c1.Wait()
	require.NoError(t, err)
	v2, err := c2.Wait()
	require.NoError(t, err)
	require.Equal(t, "1", v1.Value)
	require.Equal(t, "1", v2.Value)
	require.Equal(t, 1, counter)
}

// Exercises the actual per-key FIFO queue (as opposed to scenario 6,
// where the first call resolves synchronously before the second is
// even issued): a second compute_if_absent call issued while the first
// is still in flight must wait its turn, and must not invoke fn once it
// observes the value the first call stored.
func TestComputeIfAbsentQueuesConcurrentCallsForSameKey(t *testing.T) {
	m, clk := newMap[int, string]()
	var counter int
	inner := concur.NewCompletion[string](nil)
	fn := func(k int) *concur.Completion[string] {
		counter++
		return inner
	}

	c1 := m.ComputeIfAbsent(1, fn)
	c2 := m.ComputeIfAbsent(1, fn)
	require.Equal(t, concur.Pending, c1.State())
	require.Equal(t, concur.Pending, c2.State())

	inner.Resolve("1")
	clk.Drain()

	v1, err := c1.Wait()
	require.NoError(t, err)
	v2, err := c2.Wait()
	require.NoError(t, err)
	require.Equal(t, "1", v1.Value)
	require.Equal(t, "1", v2.Value)
	require.Equal(t, 1, counter)
}

// Scenario 7 (spec §8): ordering under delay. Snapshot reads made while
// a compute is in flight see the pre-compute value; once every compute
// settles, snapshot reads see the new value.
func TestScenario7OrderingUnderDelay(t *testing.T) {
	m, clk := newMap[int, int]()
	for k := 0; k < 5; k++ {
		_, err := m.Set(k, k*2).Wait()
		require.NoError(t, err)
	}

	delays := make([]*concur.Completion[keyedmap.Maybe[int]], 5)
	outers := make([]*concur.Completion[keyedmap.Maybe[int]], 5)
	for k := 0; k < 5; k++ {
		k := k
		delay := concur.NewCompletion[keyedmap.Maybe[int]](nil)
		delays[k] = delay
		outers[k] = m.Compute(k, func(k int, old keyedmap.Maybe[int]) *concur.Completion[keyedmap.Maybe[int]] {
			return delay
		})
	}

	for k := 0; k < 5; k++ {
		v, ok := m.Get(k)
		require.True(t, ok)
		require.Equal(t, k*2, v)
	}
	require.Equal(t, 5, m.Size())

	for k := 0; k < 5; k++ {
		delays[k].Resolve(keyedmap.Some(k + 10))
	}
	clk.Drain()

	for k := 0; k < 5; k++ {
		_, err := outers[k].Wait()
		require.NoError(t, err)
		v, ok := m.Get(k)
		require.True(t, ok)
		require.Equal(t, k+10, v)
	}
	require.Equal(t, 5, m.Size())
}

// Scenario 8 (spec §8): clear with pending. Calling Clear while a
// compute is in flight for every key immediately reports size == 0, but
// the clear completion resolves only once every in-flight compute (and
// its guard tail-delete) has finished; afterwards no entry remains.
func TestScenario8ClearWithPending(t *testing.T) {
	m, clk := newMap[int, int]()
	for k := 0; k < 5; k++ {
		_, err := m.Set(k, k*2).Wait()
		require.NoError(t, err)
	}

	delays := make([]*concur.Completion[keyedmap.Maybe[int]], 5)
	for k := 0; k < 5; k++ {
		delay := concur.NewCompletion[keyedmap.Maybe[int]](nil)
		delays[k] = delay
		m.ComputeIfPresent(k, func(k int, old int) *concur.Completion[keyedmap.Maybe[int]] {
			return delay
		})
	}

	clearDone := m.Clear()
	require.Equal(t, 0, m.Size())
	require.Equal(t, concur.Pending, clearDone.State())

	for k := 0; k < 5; k++ {
		delays[k].Resolve(keyedmap.Some(k + 10))
	}
	clk.Drain()

	_, err := clearDone.Wait()
	require.NoError(t, err)
	require.Equal(t, 0, m.Size())
	for k := 0; k < 5; k++ {
		require.False(t, m.Has(k))
	}
}

func TestMergeAbsentSetsDirectlyWithoutInvokingFn(t *testing.T) {
	m, _ := newMap[string, int]()
	called := false
	result, err := m.Merge("a", 5, func(old, new int) *concur.Completion[keyedmap.Maybe[int]] {
		called = true
		return concur.Resolved(keyedmap.Some(old + new))
	}).Wait()
	require.NoError(t, err)
	require.False(t, called)
	require.True(t, result.Present)
	require.Equal(t, 5, result.Value)
}

func TestMergePresentCombinesAndCanDelete(t *testing.T) {
	m, _ := newMap[string, int]()
	_, err := m.Set("a", 5).Wait()
	require.NoError(t, err)

	result, err := m.Merge("a", 3, func(old, new int) *concur.Completion[keyedmap.Maybe[int]] {
		return concur.Resolved(keyedmap.Some(old + new))
	}).Wait()
	require.NoError(t, err)
	require.True(t, result.Present)
	require.Equal(t, 8, result.Value)

	result, err = m.Merge("a", 1, func(old, new int) *concur.Completion[keyedmap.Maybe[int]] {
		return concur.Resolved(keyedmap.None[int]())
	}).Wait()
	require.NoError(t, err)
	require.False(t, result.Present)
	require.False(t, m.Has("a"))
}

func TestComputeFailurePropagatesAndLeavesMapUnchanged(t *testing.T) {
	m, _ := newMap[string, int]()
	_, err := m.Set("a", 1).Wait()
	require.NoError(t, err)

	boom := &concur.InvalidState{Message: "boom"}
	_, err = m.Compute("a", func(k string, old keyedmap.Maybe[int]) *concur.Completion[keyedmap.Maybe[int]] {
		return concur.Failed[keyedmap.Maybe[int]](boom)
	}).Wait()

	var uf *concur.UserComputationFailed
	require.ErrorAs(t, err, &uf)
	require.Equal(t, "a", uf.Key)
	require.ErrorIs(t, uf, boom)
	v, ok := m.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, v)
}

func TestStringForm(t *testing.T) {
	m, _ := newMap[string, int]()
	require.Equal(t, "ConcurrentKeyedMap[size=0]", m.String())
	_, err := m.Set("a", 1).Wait()
	require.NoError(t, err)
	require.Equal(t, "ConcurrentKeyedMap[size=1]", m.String())
}
