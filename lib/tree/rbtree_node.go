package tree

import (
	"github.com/benz9527/xrbtree/lib/infra"
)

var _ RBNode[uint8, uint8] = (*rbHandle[uint8, uint8])(nil)

// rbHandle addresses a node by arena index. The generation tells a
// live node apart from a recycled slot at the same index.
type rbHandle[K infra.OrderedKey, V any] struct {
	tree *rbTree[K, V]
	idx  uint32
	gen  uint32
}

func (h *rbHandle[K, V]) resolve() *rbNode[K, V] {
	if h == nil || h.tree == nil || h.idx == nilIdx {
		return nil
	}
	nodes := h.tree.arena.nodes
	if int(h.idx) >= len(nodes) {
		return nil
	}
	n := &nodes[h.idx]
	if !n.live || n.gen != h.gen {
		return nil
	}
	return n
}

func (h *rbHandle[K, V]) IsNil() bool {
	return h.resolve() == nil
}

func (h *rbHandle[K, V]) Key() K {
	if n := h.resolve(); n != nil {
		return n.key
	}
	return *new(K)
}

func (h *rbHandle[K, V]) Val() V {
	if n := h.resolve(); n != nil {
		return n.val
	}
	return *new(V)
}

func (h *rbHandle[K, V]) Color() RBColor {
	if n := h.resolve(); n != nil {
		return n.color
	}
	return Black
}

func (h *rbHandle[K, V]) Left() RBNode[K, V] {
	if n := h.resolve(); n != nil {
		return h.tree.handle(n.left)
	}
	return h.sentinel()
}

func (h *rbHandle[K, V]) Right() RBNode[K, V] {
	if n := h.resolve(); n != nil {
		return h.tree.handle(n.right)
	}
	return h.sentinel()
}

func (h *rbHandle[K, V]) Parent() RBNode[K, V] {
	if n := h.resolve(); n != nil {
		return h.tree.handle(n.parent)
	}
	return h.sentinel()
}

func (h *rbHandle[K, V]) sentinel() RBNode[K, V] {
	if h == nil {
		return &rbHandle[K, V]{}
	}
	return &rbHandle[K, V]{tree: h.tree, idx: nilIdx}
}
