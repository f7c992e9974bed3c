package waitqueue_test

import (
	"testing"

	"github.com/joeycumines/go-concur/concur/waitqueue"
	"github.com/stretchr/testify/require"
)

func TestPushFrontPopFrontOrder(t *testing.T) {
	var q waitqueue.Queue[string]
	require.True(t, q.Empty())

	q.Push("a")
	q.Push("b")
	q.Push("c")
	require.Equal(t, 3, q.Len())

	v, _, ok := q.Front()
	require.True(t, ok)
	require.Equal(t, "a", v)

	v, _, ok = q.PopFront()
	require.True(t, ok)
	require.Equal(t, "a", v)
	require.Equal(t, 2, q.Len())

	require.Equal(t, []string{"b", "c"}, q.Values())
}

func TestRemoveByTokenSkipsDeadEntries(t *testing.T) {
	var q waitqueue.Queue[string]
	q.Push("a")
	tok := q.Push("b")
	q.Push("c")

	require.True(t, q.Remove(tok))
	require.False(t, q.Remove(tok), "removing twice reports false")
	require.Equal(t, 2, q.Len())
	require.Equal(t, []string{"a", "c"}, q.Values())
}

func TestRemoveHeadCompacts(t *testing.T) {
	var q waitqueue.Queue[int]
	tok1 := q.Push(1)
	tok2 := q.Push(2)
	q.Push(3)

	require.True(t, q.Remove(tok1))
	require.True(t, q.Remove(tok2))
	require.Equal(t, []int{3}, q.Values())

	v, _, ok := q.Front()
	require.True(t, ok)
	require.Equal(t, 3, v)
}

func TestScanServesFirstThatFitsSkippingOthers(t *testing.T) {
	var q waitqueue.Queue[int]
	q.Push(5)
	q.Push(2)
	q.Push(3)

	var served []int
	budget := 4
	q.Scan(func(v int) bool {
		if v > budget {
			return false
		}
		budget -= v
		served = append(served, v)
		return true
	})

	require.Equal(t, []int{2}, served)
	require.Equal(t, []int{5, 3}, q.Values())
}

func TestDrainWhileStopsAtFirstRejected(t *testing.T) {
	var q waitqueue.Queue[int]
	q.Push(1)
	q.Push(1)
	q.Push(2)
	q.Push(1)

	var drained []int
	q.DrainWhile(func(v int) bool {
		if v == 2 {
			return false
		}
		drained = append(drained, v)
		return true
	})

	require.Equal(t, []int{1, 1}, drained)
	require.Equal(t, []int{2, 1}, q.Values())
}

func TestEmptyQueueOperations(t *testing.T) {
	var q waitqueue.Queue[int]
	require.True(t, q.Empty())
	_, _, ok := q.Front()
	require.False(t, ok)
	_, _, ok = q.PopFront()
	require.False(t, ok)
	require.Empty(t, q.Values())
}
