package tree

import (
	randv2 "math/rand/v2"
	"testing"

	"github.com/google/btree"
	"github.com/stretchr/testify/require"
)

// google/btree is the reference ordered set.
func TestRBTree_AgainstBTree(t *testing.T) {
	tree := NewRBTree[uint32, uint32]()
	oracle := btree.NewOrderedG[uint32](32)

	for i := 0; i < 20_000; i++ {
		key := randv2.Uint32() % 4096
		if _, has := oracle.Get(key); has && randv2.Uint32()&1 == 0 {
			_, ok := oracle.Delete(key)
			require.True(t, ok)
			x, err := tree.Delete(key)
			require.NoError(t, err)
			require.Equal(t, key, x.Key())
			continue
		} else if has {
			continue
		}
		oracle.ReplaceOrInsert(key)
		require.NoError(t, tree.Insert(key, key))
	}
	require.Equal(t, int64(oracle.Len()), tree.Len())
	require.NoError(t, Validate[uint32, uint32](tree))

	keys := make([]uint32, 0, oracle.Len())
	oracle.Ascend(func(item uint32) bool {
		keys = append(keys, item)
		return true
	})
	require.Equal(t, keys, tree.Keys())

	if minKey, ok := oracle.Min(); ok {
		require.Equal(t, minKey, tree.Min().Key())
	}
	if maxKey, ok := oracle.Max(); ok {
		require.Equal(t, maxKey, tree.Max().Key())
	}

	absent := uint32(4096)
	for key := uint32(0); key < 4096; key++ {
		if !oracle.Has(key) {
			absent = key
			break
		}
	}
	require.NotEmpty(t, keys)
	requireSearch[uint32, uint32](t, tree, keys[randv2.IntN(len(keys))], absent)
}

func BenchmarkBTree_Random(b *testing.B) {
	b.StopTimer()
	tree := btree.NewOrderedG[int](32)

	rngArr := make([]int, 0, b.N)
	for i := 0; i < b.N; i++ {
		rngArr = append(rngArr, randv2.Int())
	}

	b.StartTimer()
	for i := 0; i < b.N; i++ {
		tree.ReplaceOrInsert(rngArr[i])
	}
}
