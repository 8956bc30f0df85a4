package tree

import (
	"bytes"
	randv2 "math/rand/v2"
	"slices"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/benz9527/xrbtree/lib/infra"
)

type checkData struct {
	color RBColor
	key   uint64
}

func requireShape(t *testing.T, tree RBTree[uint64, uint64], expected []checkData) {
	t.Helper()
	require.Equal(t, int64(len(expected)), tree.Len())
	tree.Foreach(func(idx int64, color RBColor, key uint64, val uint64) bool {
		require.Equal(t, expected[idx].color, color)
		require.Equal(t, expected[idx].key, key)
		return true
	})
	require.NoError(t, Validate[uint64, uint64](tree))
}

// requireSearch looks up a key held by the tree and one it lacks.
func requireSearch[K infra.OrderedKey, V any](t *testing.T, tree RBTree[K, V], present, absent K) {
	t.Helper()
	x, err := tree.Search(present)
	require.NoError(t, err)
	require.False(t, x.IsNil())
	require.Equal(t, present, x.Key())

	x, err = tree.Search(absent)
	require.ErrorIs(t, err, ErrRBTreeNotFound)
	require.True(t, x.IsNil())
}

func TestNilNode(t *testing.T) {
	var nilNode RBNode[uint64, uint64] = nil
	require.True(t, isBlack[uint64, uint64](nilNode))

	tree := NewRBTree[uint64, uint64]()
	root := tree.Root()
	require.True(t, root.IsNil())
	require.Equal(t, Black, root.Color())
	require.Equal(t, uint64(0), root.Key())
	require.True(t, root.Left().IsNil())
	require.True(t, root.Right().IsNil())
	require.True(t, root.Parent().IsNil())
	require.True(t, tree.Min().IsNil())
	require.True(t, tree.Max().IsNil())
	require.Empty(t, tree.Keys())
	require.NoError(t, Validate[uint64, uint64](tree))
}

func TestRbtreeLeftAndRightRotate_Succ(t *testing.T) {
	tree := NewRBTree[uint64, uint64]()

	require.NoError(t, tree.Insert(52, 1))
	requireShape(t, tree, []checkData{
		{Black, 52},
	})

	require.NoError(t, tree.Insert(47, 1))
	requireShape(t, tree, []checkData{
		{Red, 47}, {Black, 52},
	})

	require.NoError(t, tree.Insert(3, 1))
	requireShape(t, tree, []checkData{
		{Red, 3}, {Black, 47}, {Red, 52},
	})
	require.Equal(t, uint64(47), tree.Root().Key())

	require.NoError(t, tree.Insert(35, 1))
	requireShape(t, tree, []checkData{
		{Black, 3},
		{Red, 35},
		{Black, 47},
		{Black, 52},
	})

	require.NoError(t, tree.Insert(24, 1))
	requireShape(t, tree, []checkData{
		{Red, 3},
		{Black, 24},
		{Red, 35},
		{Black, 47},
		{Black, 52},
	})

	// remove

	x, err := tree.Delete(24)
	require.NoError(t, err)
	require.Equal(t, uint64(24), x.Key())
	requireShape(t, tree, []checkData{
		{Red, 3},
		{Black, 35},
		{Black, 47},
		{Black, 52},
	})

	x, err = tree.Delete(47)
	require.NoError(t, err)
	require.Equal(t, uint64(47), x.Key())
	requireShape(t, tree, []checkData{
		{Black, 3},
		{Black, 35},
		{Black, 52},
	})
	require.Equal(t, uint64(35), tree.Root().Key())

	x, err = tree.Delete(52)
	require.NoError(t, err)
	require.Equal(t, uint64(52), x.Key())
	requireShape(t, tree, []checkData{
		{Red, 3}, {Black, 35},
	})

	x, err = tree.Delete(3)
	require.NoError(t, err)
	require.Equal(t, uint64(3), x.Key())
	requireShape(t, tree, []checkData{
		{Black, 35},
	})

	x, err = tree.Delete(35)
	require.NoError(t, err)
	require.Equal(t, uint64(35), x.Key())
	require.Equal(t, int64(0), tree.Len())
	require.True(t, tree.Root().IsNil())
}

func TestRbtree_RemoveMin(t *testing.T) {
	tree := NewRBTree[uint64, uint64]()

	for _, key := range []uint64{52, 47, 3, 35, 24} {
		require.NoError(t, tree.Insert(key, key*10))
	}
	requireShape(t, tree, []checkData{
		{Red, 3},
		{Black, 24},
		{Red, 35},
		{Black, 47},
		{Black, 52},
	})

	// remove min

	x, err := tree.RemoveMin()
	require.NoError(t, err)
	require.Equal(t, uint64(3), x.Key())
	require.Equal(t, uint64(30), x.Val())
	requireShape(t, tree, []checkData{
		{Black, 24},
		{Red, 35},
		{Black, 47},
		{Black, 52},
	})

	x, err = tree.RemoveMin()
	require.NoError(t, err)
	require.Equal(t, uint64(24), x.Key())
	requireShape(t, tree, []checkData{
		{Black, 35},
		{Black, 47},
		{Black, 52},
	})

	x, err = tree.RemoveMin()
	require.NoError(t, err)
	require.Equal(t, uint64(35), x.Key())
	requireShape(t, tree, []checkData{
		{Black, 47}, {Red, 52},
	})

	x, err = tree.RemoveMin()
	require.NoError(t, err)
	require.Equal(t, uint64(47), x.Key())
	requireShape(t, tree, []checkData{
		{Black, 52},
	})

	x, err = tree.RemoveMin()
	require.NoError(t, err)
	require.Equal(t, uint64(52), x.Key())
	require.Equal(t, int64(0), tree.Len())

	_, err = tree.RemoveMin()
	require.ErrorIs(t, err, ErrRBTreeEmpty)
	_, err = tree.RemoveMax()
	require.ErrorIs(t, err, ErrRBTreeEmpty)
}

func TestRbtree_RemoveMax(t *testing.T) {
	tree := NewRBTree[uint64, uint64]()
	for i := uint64(0); i < 64; i++ {
		require.NoError(t, tree.Insert(i, i))
	}
	for i := uint64(64); i > 0; i-- {
		require.Equal(t, i-1, tree.Max().Key())
		x, err := tree.RemoveMax()
		require.NoError(t, err)
		require.Equal(t, i-1, x.Key())
		require.NoError(t, Validate[uint64, uint64](tree))
	}
	require.Equal(t, int64(0), tree.Len())
}

func TestRbtree_RoundTrip(t *testing.T) {
	tree := NewRBTree[uint64, uint64]()
	for _, key := range []uint64{10, 20, 30, 40, 50} {
		require.NoError(t, tree.Insert(key, key))
	}
	requireShape(t, tree, []checkData{
		{Black, 10},
		{Black, 20},
		{Red, 30},
		{Black, 40},
		{Red, 50},
	})

	buf := &bytes.Buffer{}
	require.NoError(t, tree.Print(buf))
	require.Equal(t, "    50\n  40\n    30\n20\n  10\n", buf.String())

	for _, key := range []uint64{20, 10} {
		x, err := tree.Delete(key)
		require.NoError(t, err)
		require.Equal(t, key, x.Key())
	}
	requireShape(t, tree, []checkData{
		{Black, 30},
		{Black, 40},
		{Black, 50},
	})
	require.Equal(t, []uint64{30, 40, 50}, tree.Keys())
	require.Equal(t, uint64(40), tree.Root().Key())

	buf.Reset()
	require.NoError(t, tree.Print(buf))
	require.Equal(t, "  50\n40\n  30\n", buf.String())
}

func TestRbtree_PrintEmpty(t *testing.T) {
	tree := NewRBTree[uint64, uint64]()
	buf := &bytes.Buffer{}
	require.NoError(t, tree.Print(buf))
	require.Empty(t, buf.String())
}

func TestRbtree_DeleteAbsentKey(t *testing.T) {
	tree := NewRBTree[uint64, uint64]().(*rbTree[uint64, uint64])
	_, err := tree.Delete(1)
	require.ErrorIs(t, err, ErrRBTreeNotFound)

	for _, key := range []uint64{5, 3, 8, 1, 4, 7, 9} {
		require.NoError(t, tree.Insert(key, key))
	}
	root := tree.root
	nodes := slices.Clone(tree.arena.nodes)

	for _, key := range []uint64{0, 2, 6, 10} {
		x, err := tree.Delete(key)
		require.ErrorIs(t, err, ErrRBTreeNotFound)
		require.Nil(t, x)
	}
	require.Equal(t, root, tree.root)
	require.Equal(t, nodes, tree.arena.nodes)
	require.Equal(t, int64(7), tree.Len())
	require.NoError(t, Validate[uint64, uint64](tree))
}

func TestRbtree_Search(t *testing.T) {
	tree := NewRBTree[uint64, string]()
	for i := uint64(0); i < 100; i += 2 {
		require.NoError(t, tree.Insert(i, "v"))
	}

	x, err := tree.Search(42)
	require.NoError(t, err)
	require.False(t, x.IsNil())
	require.Equal(t, uint64(42), x.Key())
	require.Equal(t, "v", x.Val())

	x, err = tree.Search(43)
	require.ErrorIs(t, err, ErrRBTreeNotFound)
	require.True(t, x.IsNil())

	require.Equal(t, uint64(0), tree.Min().Key())
	require.Equal(t, uint64(98), tree.Max().Key())

	// Handles navigate the tree.
	root := tree.Root()
	require.True(t, root.Parent().IsNil())
	require.Equal(t, Black, root.Color())
	require.Equal(t, root.Key(), root.Left().Parent().Key())
	require.Less(t, root.Left().Key(), root.Key())
	require.Greater(t, root.Right().Key(), root.Key())
}

func TestRbtree_StaleHandle(t *testing.T) {
	tree := NewRBTree[uint64, uint64]()
	for i := uint64(0); i < 8; i++ {
		require.NoError(t, tree.Insert(i, i))
	}
	x, err := tree.Search(5)
	require.NoError(t, err)
	require.False(t, x.IsNil())

	_, err = tree.Delete(5)
	require.NoError(t, err)
	require.True(t, x.IsNil())
	require.Equal(t, uint64(0), x.Key())

	// The freed slot is recycled with another generation.
	require.NoError(t, tree.Insert(100, 100))
	require.True(t, x.IsNil())
	y, err := tree.Search(100)
	require.NoError(t, err)
	require.Equal(t, uint64(100), y.Val())
}

func TestRbtree_Duplicates(t *testing.T) {
	tree := NewRBTree[uint64, uint64]()
	keys := []uint64{5, 5, 5, 3, 5, 7, 3, 5}
	for i, key := range keys {
		require.NoError(t, tree.Insert(key, uint64(i)))
		require.NoError(t, Validate[uint64, uint64](tree))
	}
	sorted := slices.Clone(keys)
	slices.Sort(sorted)
	require.Equal(t, sorted, tree.Keys())

	for i := 0; i < 5; i++ {
		x, err := tree.Delete(5)
		require.NoError(t, err)
		require.Equal(t, uint64(5), x.Key())
		require.NoError(t, Validate[uint64, uint64](tree))
	}
	_, err := tree.Delete(5)
	require.ErrorIs(t, err, ErrRBTreeNotFound)
	require.Equal(t, []uint64{3, 3, 7}, tree.Keys())
}

func TestRbtree_Desc(t *testing.T) {
	tree := NewRBTree[int64, uint64](WithRBTreeDesc[int64, uint64]())
	for i := int64(0); i < 100; i++ {
		require.NoError(t, tree.Insert(i, 1))
	}
	tree.Foreach(func(idx int64, color RBColor, key int64, val uint64) bool {
		require.Equal(t, 99-idx, key)
		return true
	})
	require.Equal(t, int64(99), tree.Min().Key())
	require.Equal(t, int64(0), tree.Max().Key())
	require.NoError(t, Validate[int64, uint64](tree))
}

func TestRbtree_ForeachEarlyStop(t *testing.T) {
	tree := NewRBTree[uint64, uint64]()
	for i := uint64(0); i < 16; i++ {
		require.NoError(t, tree.Insert(i, i))
	}
	visited := 0
	tree.Foreach(func(idx int64, color RBColor, key uint64, val uint64) bool {
		visited++
		return idx < 4
	})
	require.Equal(t, 5, visited)
}

func TestRbtree_MaxNodes(t *testing.T) {
	tree := NewRBTree[uint64, uint64](
		WithRBTreeMaxNodes[uint64, uint64](3),
		WithRBTreeCapacity[uint64, uint64](3),
	)
	for i := uint64(0); i < 3; i++ {
		require.NoError(t, tree.Insert(i, i))
	}
	require.ErrorIs(t, tree.Insert(3, 3), ErrRBTreeAllocationFailure)
	require.Equal(t, int64(3), tree.Len())
	require.Equal(t, []uint64{0, 1, 2}, tree.Keys())
	require.NoError(t, Validate[uint64, uint64](tree))

	_, err := tree.Delete(1)
	require.NoError(t, err)
	require.NoError(t, tree.Insert(3, 3))
	require.Equal(t, []uint64{0, 2, 3}, tree.Keys())
}

func TestRbtree_Comparator(t *testing.T) {
	// Even keys before odd keys.
	cmp := func(i, j uint64) int64 {
		if i&1 != j&1 {
			return int64(i&1) - int64(j&1)
		}
		if i < j {
			return -1
		} else if i > j {
			return 1
		}
		return 0
	}
	tree := NewRBTree[uint64, uint64](WithRBTreeComparator[uint64, uint64](cmp))
	for _, key := range []uint64{5, 2, 7, 4, 1, 0} {
		require.NoError(t, tree.Insert(key, key))
	}
	require.Equal(t, []uint64{0, 2, 4, 1, 5, 7}, tree.Keys())
	require.NoError(t, Validate[uint64, uint64](tree))
}

func TestRbtree_Release(t *testing.T) {
	tree := NewRBTree[uint64, uint64]().(*rbTree[uint64, uint64])

	total := uint64(1000)
	for i := uint64(0); i < total; i++ {
		require.NoError(t, tree.Insert(randv2.Uint64()%200, i))
	}
	for i := 0; i < 100; i++ {
		_, _ = tree.Delete(randv2.Uint64() % 200)
	}
	require.NoError(t, Validate[uint64, uint64](tree))

	// N inserts and the sentinel.
	require.Equal(t, total+1, tree.arena.allocated)
	tree.Release()
	require.Equal(t, total+1, tree.arena.released)
	require.Equal(t, tree.arena.allocated, tree.arena.released)
	require.Equal(t, uint32(0), tree.arena.inUse)

	require.Equal(t, int64(0), tree.Len())
	require.True(t, tree.Root().IsNil())
	require.True(t, tree.Min().IsNil())
	require.Empty(t, tree.Keys())
	require.ErrorIs(t, tree.Insert(1, 1), ErrRBTreeReleased)
	_, err := tree.Delete(1)
	require.ErrorIs(t, err, ErrRBTreeReleased)
	_, err = tree.RemoveMin()
	require.ErrorIs(t, err, ErrRBTreeReleased)
	_, err = tree.RemoveMax()
	require.ErrorIs(t, err, ErrRBTreeReleased)
	x, err := tree.Search(1)
	require.ErrorIs(t, err, ErrRBTreeNotFound)
	require.True(t, x.IsNil())
	require.NoError(t, Validate[uint64, uint64](tree))

	require.NotPanics(t, tree.Release)
	require.Equal(t, total+1, tree.arena.released)
}

func TestRbtree_ReleaseEmpty(t *testing.T) {
	tree := NewRBTree[uint64, uint64]().(*rbTree[uint64, uint64])
	tree.Release()
	require.Equal(t, uint64(1), tree.arena.allocated)
	require.Equal(t, uint64(1), tree.arena.released)
}

func TestRbtree_ReleaseStaleHandle(t *testing.T) {
	tree := NewRBTree[uint64, uint64]()
	require.NoError(t, tree.Insert(1, 1))
	root := tree.Root()
	tree.Release()
	require.True(t, root.IsNil())
	require.True(t, root.Left().IsNil())
}

func rbtreeRandomInsertAndRemoveSequentialNumberRunCore(t *testing.T, total uint64) {
	insertTotal := uint64(float64(total) * 0.8)
	removeTotal := uint64(float64(total) * 0.2)

	tree := NewRBTree[uint64, uint64]()

	for i := uint64(0); i < insertTotal; i++ {
		require.NoError(t, tree.Insert(i, 1))
		require.NoError(t, Validate[uint64, uint64](tree))
	}
	tree.Foreach(func(idx int64, color RBColor, key uint64, val uint64) bool {
		require.Equal(t, uint64(idx), key)
		return true
	})

	for i := insertTotal; i < removeTotal+insertTotal; i++ {
		require.NoError(t, tree.Insert(i, 1))
		require.NoError(t, Validate[uint64, uint64](tree))
	}

	for i := insertTotal; i < removeTotal+insertTotal; i++ {
		if i == insertTotal+removeTotal/2 {
			x, err := tree.Search(i)
			require.NoError(t, err)
			require.Equal(t, i, x.Key())
		}
		x, err := tree.Delete(i)
		require.NoError(t, err)
		require.Equal(t, i, x.Key())
		require.NoError(t, Validate[uint64, uint64](tree))
	}
	tree.Foreach(func(idx int64, color RBColor, key uint64, val uint64) bool {
		require.Equal(t, uint64(idx), key)
		return true
	})
	require.Equal(t, int64(insertTotal), tree.Len())
	requireSearch[uint64, uint64](t, tree, randv2.Uint64N(insertTotal), insertTotal+randv2.Uint64N(removeTotal))
}

func TestRbtreeRandomInsertAndRemove_SequentialNumber(t *testing.T) {
	testcases := []struct {
		name  string
		total uint64
	}{
		{name: "100", total: 100},
		{name: "1000", total: 1000},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			rbtreeRandomInsertAndRemoveSequentialNumberRunCore(tt, tc.total)
		})
	}
}

func TestRbtreeRandomInsertAndRemove_ReverseSequentialNumber(t *testing.T) {
	total := int64(10000)
	insertTotal := int64(float64(total) * 0.8)
	removeTotal := int64(float64(total) * 0.2)

	tree := NewRBTree[int64, uint64](WithRBTreeDesc[int64, uint64]())

	rand := int64(randv2.Uint32() % 1_000)
	for i := insertTotal - 1; i >= 0; i-- {
		require.NoError(t, tree.Insert(i, 1))
		if i%1000 == rand {
			require.NoError(t, Validate[int64, uint64](tree))
		}
	}
	tree.Foreach(func(idx int64, color RBColor, key int64, val uint64) bool {
		require.Equal(t, insertTotal-1-idx, key)
		return true
	})

	for i := removeTotal + insertTotal - 1; i >= insertTotal; i-- {
		require.NoError(t, tree.Insert(i, 1))
	}
	tree.Foreach(func(idx int64, color RBColor, key int64, val uint64) bool {
		require.Equal(t, removeTotal+insertTotal-1-idx, key)
		return true
	})

	for i := insertTotal; i < removeTotal+insertTotal; i++ {
		x, err := tree.Delete(i)
		require.NoError(t, err)
		require.Equal(t, i, x.Key())
	}
	tree.Foreach(func(idx int64, color RBColor, key int64, val uint64) bool {
		require.Equal(t, insertTotal-1-idx, key)
		return true
	})
	require.NoError(t, Validate[int64, uint64](tree))
	requireSearch[int64, uint64](t, tree, randv2.Int64N(insertTotal), insertTotal+randv2.Int64N(removeTotal))
}

func rbtreeRandomInsertAndRemoveRandomNumberRunCore(t *testing.T, total uint64, violationCheck bool) {
	insertTotal := uint64(float64(total) * 0.8)
	removeTotal := uint64(float64(total) * 0.2)

	// Distinct keys, split between the kept and the removed ones.
	seen := make(map[uint64]struct{}, total)
	insertElements := make([]uint64, 0, insertTotal)
	removeElements := make([]uint64, 0, removeTotal)
	for uint64(len(insertElements)) < insertTotal || uint64(len(removeElements)) < removeTotal {
		num := randv2.Uint64()
		if _, ok := seen[num]; ok {
			continue
		}
		seen[num] = struct{}{}
		if num&0x1 == 0 && uint64(len(insertElements)) < insertTotal {
			insertElements = append(insertElements, num)
		} else if num&0x1 == 1 && uint64(len(removeElements)) < removeTotal {
			removeElements = append(removeElements, num)
		}
	}

	tree := NewRBTree[uint64, uint64]()

	for i := uint64(0); i < insertTotal; i++ {
		require.NoError(t, tree.Insert(insertElements[i], i))
		if violationCheck {
			require.NoError(t, Validate[uint64, uint64](tree))
		}
	}
	sort.Slice(insertElements, func(i, j int) bool {
		return insertElements[i] < insertElements[j]
	})
	tree.Foreach(func(idx int64, color RBColor, key uint64, val uint64) bool {
		require.Equal(t, insertElements[idx], key)
		return true
	})

	for i := uint64(0); i < removeTotal; i++ {
		require.NoError(t, tree.Insert(removeElements[i], 1))
		if violationCheck {
			require.NoError(t, Validate[uint64, uint64](tree))
		}
	}
	require.NoError(t, Validate[uint64, uint64](tree))

	randv2.Shuffle(len(removeElements), func(i, j int) {
		removeElements[i], removeElements[j] = removeElements[j], removeElements[i]
	})
	for i := uint64(0); i < removeTotal; i++ {
		x, err := tree.Delete(removeElements[i])
		require.NoError(t, err)
		require.Equalf(t, removeElements[i], x.Key(), "value exp: %d, real: %d\n", removeElements[i], x.Key())
		if violationCheck {
			require.NoError(t, Validate[uint64, uint64](tree))
		}
	}
	tree.Foreach(func(idx int64, color RBColor, key uint64, val uint64) bool {
		require.Equal(t, insertElements[idx], key)
		return true
	})
	require.Equal(t, int64(insertTotal), tree.Len())
	requireSearch[uint64, uint64](t, tree,
		insertElements[randv2.IntN(len(insertElements))],
		removeElements[randv2.IntN(len(removeElements))],
	)
}

func TestRbtreeRandomInsertAndRemove_RandomNumber(t *testing.T) {
	testcases := []struct {
		name           string
		total          uint64
		violationCheck bool
	}{
		{
			name:  "100000",
			total: 100000,
		},
		{
			name:           "violation check 2000",
			total:          2000,
			violationCheck: true,
		},
		{
			name:           "violation check 5000",
			total:          5000,
			violationCheck: true,
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			rbtreeRandomInsertAndRemoveRandomNumberRunCore(tt, tc.total, tc.violationCheck)
		})
	}
}

func TestRbtreeRandomMultiset(t *testing.T) {
	tree := NewRBTree[uint8, uint8]()
	expected := make([]uint8, 0, 2048)
	for i := 0; i < 4096; i++ {
		key := uint8(randv2.Uint32() % 32)
		if randv2.Uint32()%3 == 0 {
			_, err := tree.Delete(key)
			if idx := slices.Index(expected, key); idx >= 0 {
				require.NoError(t, err)
				expected = slices.Delete(expected, idx, idx+1)
			} else {
				require.ErrorIs(t, err, ErrRBTreeNotFound)
			}
		} else {
			require.NoError(t, tree.Insert(key, key))
			expected = append(expected, key)
		}
		require.NoError(t, Validate[uint8, uint8](tree))
	}
	slices.Sort(expected)
	require.Equal(t, expected, tree.Keys())

	absent := uint8(32)
	for key := uint8(0); key < 32; key++ {
		if !slices.Contains(expected, key) {
			absent = key
			break
		}
	}
	if len(expected) > 0 {
		requireSearch[uint8, uint8](t, tree, expected[randv2.IntN(len(expected))], absent)
	}
}

func BenchmarkRBTree_Random(b *testing.B) {
	testByBytes := []byte(`abc`)

	b.StopTimer()
	tree := NewRBTree[int, []byte]()

	rngArr := make([]int, 0, b.N)
	for i := 0; i < b.N; i++ {
		rngArr = append(rngArr, randv2.Int())
	}

	b.StartTimer()
	for i := 0; i < b.N; i++ {
		err := tree.Insert(rngArr[i], testByBytes)
		if err != nil {
			panic(err)
		}
	}
}

func BenchmarkRBTree_Serial(b *testing.B) {
	testByBytes := []byte(`abc`)

	b.StopTimer()
	tree := NewRBTree[int, []byte]()

	b.StartTimer()
	for i := 0; i < b.N; i++ {
		_ = tree.Insert(i, testByBytes)
	}
}
