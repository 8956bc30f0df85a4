package tree

import (
	"math"

	"github.com/benz9527/xrbtree/lib/infra"
)

// nilIdx is the sentinel's slot. Every relation to "no node" points
// to it, so the fixups dereference children and parents uniformly.
const nilIdx uint32 = 0

// Slot 0 is the sentinel, so at most MaxUint32-1 real nodes.
const maxArenaNodes = math.MaxUint32 - 1

// maxArenaCapHint bounds the slots preallocated up front. The slice
// grows past it by append.
const maxArenaCapHint = 1 << 16

// rbNode is an arena slot.
// A freed slot is threaded into the free list through left and
// its generation is bumped, so stale handles no longer match it.
type rbNode[K infra.OrderedKey, V any] struct {
	key    K
	val    V
	parent uint32
	left   uint32
	right  uint32
	gen    uint32
	color  RBColor
	live   bool
}

// References:
// https://github.com/G-M-twostay/Go-Utils/blob/main/Trees/base.go
//
// rbArena is the contiguous node storage of a single tree.
//
//	 nodes: | sentinel | n1 | n2 (free) | n3 | n4 (free) | ...
//	free list: free -> 4 -> 2 -> nilIdx
//
// @field allocated, released count the sentinel too. For a tree with
// N nodes, destruction releases exactly N+1 slots.
type rbArena[K infra.OrderedKey, V any] struct {
	nodes     []rbNode[K, V]
	free      uint32 // head of the free list, nilIdx if empty
	limit     uint32 // max real nodes in use
	inUse     uint32
	allocated uint64
	released  uint64
}

func newRBArena[K infra.OrderedKey, V any](capHint, limit uint32) *rbArena[K, V] {
	if limit == 0 || limit > maxArenaNodes {
		limit = maxArenaNodes
	}
	capHint = min(capHint, limit, maxArenaCapHint)
	arena := &rbArena[K, V]{
		nodes: make([]rbNode[K, V], 1, int(capHint)+1),
		free:  nilIdx,
		limit: limit,
	}
	arena.nodes[nilIdx] = rbNode[K, V]{
		parent: nilIdx,
		left:   nilIdx,
		right:  nilIdx,
		color:  Black,
		live:   true,
	}
	arena.allocated = 1
	return arena
}

// node returns the slot i. The pointer is invalidated by the next
// allocate, which may grow the slice.
func (arena *rbArena[K, V]) node(i uint32) *rbNode[K, V] {
	return &arena.nodes[i]
}

func (arena *rbArena[K, V]) available() bool {
	return arena.inUse < arena.limit
}

// allocate pops a recycled slot first, then appends.
// Nothing is changed if the limit has been reached.
func (arena *rbArena[K, V]) allocate() (uint32, bool) {
	if !arena.available() {
		return nilIdx, false
	}

	var i uint32
	if /* recycled */ arena.free != nilIdx {
		i = arena.free
		arena.free = arena.nodes[i].left
	} else {
		i = uint32(len(arena.nodes))
		arena.nodes = append(arena.nodes, rbNode[K, V]{})
	}

	n := &arena.nodes[i]
	n.parent, n.left, n.right = nilIdx, nilIdx, nilIdx
	n.color = Red
	n.live = true
	arena.inUse++
	arena.allocated++
	return i, true
}

func (arena *rbArena[K, V]) release(i uint32) {
	if i == nilIdx {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] release the sentinel as a node")
	}
	n := &arena.nodes[i]
	if !n.live {
		panic( /* debug assertion */ "[rbtree] double release of a node")
	}

	var (
		k K
		v V
	)
	n.key, n.val = k, v
	n.parent, n.right = nilIdx, nilIdx
	n.color = Black
	n.live = false
	n.gen++
	n.left = arena.free
	arena.free = i
	arena.inUse--
	arena.released++
}

func (arena *rbArena[K, V]) releaseSentinel() {
	if len(arena.nodes) == 0 || !arena.nodes[nilIdx].live {
		panic( /* debug assertion */ "[rbtree] double release of the sentinel")
	}
	if arena.inUse > 0 {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] release the sentinel with live nodes")
	}
	arena.nodes[nilIdx].live = false
	arena.released++
}

// clear drops the storage after every slot has been released.
func (arena *rbArena[K, V]) clear() {
	clear(arena.nodes)
	arena.nodes = nil
	arena.free = nilIdx
}
