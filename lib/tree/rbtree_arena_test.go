package tree

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRBArena_AllocateAndRelease(t *testing.T) {
	arena := newRBArena[int, string](0, 0)
	require.Len(t, arena.nodes, 1)
	require.Equal(t, Black, arena.node(nilIdx).color)
	require.Equal(t, uint64(1), arena.allocated)
	require.Equal(t, uint32(maxArenaNodes), arena.limit)

	i1, ok := arena.allocate()
	require.True(t, ok)
	require.Equal(t, uint32(1), i1)
	i2, ok := arena.allocate()
	require.True(t, ok)
	require.Equal(t, uint32(2), i2)
	require.Equal(t, Red, arena.node(i2).color)
	require.Equal(t, nilIdx, arena.node(i2).left)
	require.Equal(t, uint32(2), arena.inUse)

	arena.node(i1).key, arena.node(i1).val = 7, "seven"
	gen := arena.node(i1).gen
	arena.release(i1)
	require.False(t, arena.node(i1).live)
	require.Equal(t, 0, arena.node(i1).key)
	require.Empty(t, arena.node(i1).val)
	require.Equal(t, gen+1, arena.node(i1).gen)
	require.Equal(t, i1, arena.free)

	// Recycled before growing.
	i3, ok := arena.allocate()
	require.True(t, ok)
	require.Equal(t, i1, i3)
	require.Equal(t, nilIdx, arena.free)
	require.Len(t, arena.nodes, 3)
	require.Equal(t, uint64(4), arena.allocated)
	require.Equal(t, uint64(1), arena.released)
}

func TestRBArena_FreeListOrder(t *testing.T) {
	arena := newRBArena[int, int](8, 0)
	idx := make([]uint32, 0, 4)
	for i := 0; i < 4; i++ {
		n, ok := arena.allocate()
		require.True(t, ok)
		idx = append(idx, n)
	}
	arena.release(idx[1])
	arena.release(idx[3])

	// LIFO
	n, _ := arena.allocate()
	require.Equal(t, idx[3], n)
	n, _ = arena.allocate()
	require.Equal(t, idx[1], n)
	n, _ = arena.allocate()
	require.Equal(t, uint32(5), n)
}

func TestRBArena_Limit(t *testing.T) {
	arena := newRBArena[int, int](16, 2)
	require.Equal(t, 3, cap(arena.nodes))

	_, ok := arena.allocate()
	require.True(t, ok)
	i2, ok := arena.allocate()
	require.True(t, ok)
	_, ok = arena.allocate()
	require.False(t, ok)
	require.Equal(t, uint64(3), arena.allocated)

	arena.release(i2)
	_, ok = arena.allocate()
	require.True(t, ok)
}

func TestRBArena_CapHintClamped(t *testing.T) {
	arena := newRBArena[int, int](math.MaxUint32, 0)
	require.Equal(t, maxArenaCapHint+1, cap(arena.nodes))
	require.Equal(t, uint32(maxArenaNodes), arena.limit)

	for i := 0; i < maxArenaCapHint+2; i++ {
		_, ok := arena.allocate()
		require.True(t, ok)
	}
	require.Len(t, arena.nodes, maxArenaCapHint+3)

	rbtree := NewRBTree[int, int](WithRBTreeCapacity[int, int](math.MaxUint32))
	defer rbtree.Release()
	require.NoError(t, rbtree.Insert(1, 1))
	require.Equal(t, maxArenaCapHint+1, cap(rbtree.(*rbTree[int, int]).arena.nodes))
}

func TestRBArena_DoubleRelease(t *testing.T) {
	arena := newRBArena[int, int](0, 0)
	i, _ := arena.allocate()
	arena.release(i)
	require.Panics(t, func() {
		arena.release(i)
	})
	require.Panics(t, func() {
		arena.release(nilIdx)
	})

	j, _ := arena.allocate()
	require.Panics(t, arena.releaseSentinel)
	arena.release(j)
	require.NotPanics(t, arena.releaseSentinel)
	require.Panics(t, arena.releaseSentinel)
	require.Equal(t, arena.allocated, arena.released)
}
