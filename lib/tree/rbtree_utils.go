package tree

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/benz9527/xrbtree/lib/infra"
)

func isBlack[K infra.OrderedKey, V any](node RBNode[K, V]) bool {
	return node == nil || node.IsNil() || node.Color() == Black
}

func isRed[K infra.OrderedKey, V any](node RBNode[K, V]) bool {
	return !isBlack[K, V](node)
}

func blackDepthTo[K infra.OrderedKey, V any](target RBNode[K, V]) int {
	depth := 0
	for aux := target; !aux.IsNil(); aux = aux.Parent() {
		if isBlack[K, V](aux) {
			depth++
		}
	}
	return depth
}

// unwrapRBTree reaches the arena backed tree for the structural checks.
func unwrapRBTree[K infra.OrderedKey, V any](tree RBTree[K, V]) *rbTree[K, V] {
	switch t := tree.(type) {
	case *rbTree[K, V]:
		return t
	case *syncRBTree[K, V]:
		return unwrapRBTree[K, V](t.tree)
	default:
	}
	return nil
}

// rbtree rule validation utilities.

// References:
// https://github1s.com/minghu6/rust-minghu6/blob/master/coll_st/src/bst/rb.rs

func RootViolationValidate[K infra.OrderedKey, V any](tree RBTree[K, V]) error {
	root := tree.Root()
	if root.IsNil() {
		return nil
	}
	if root.Color() != Black {
		return fmt.Errorf("%w: root key %v is red", ErrRBTreeRootViolation, root.Key())
	}
	if !root.Parent().IsNil() {
		return fmt.Errorf("%w: root key %v has a parent", ErrRBTreeRootViolation, root.Key())
	}
	return nil
}

func SentinelViolationValidate[K infra.OrderedKey, V any](tree RBTree[K, V]) error {
	t := unwrapRBTree[K, V](tree)
	if t == nil || t.released {
		return nil
	}
	s := t.node(nilIdx)
	if s.color != Black {
		return fmt.Errorf("%w: sentinel is red", ErrRBTreeSentinelViolation)
	}
	if s.left != nilIdx || s.right != nilIdx || s.parent != nilIdx {
		return fmt.Errorf("%w: sentinel links (p: %d, l: %d, r: %d)",
			ErrRBTreeSentinelViolation, s.parent, s.left, s.right)
	}
	return nil
}

// Inorder traversal to validate the rbtree properties.
func RedViolationValidate[K infra.OrderedKey, V any](tree RBTree[K, V]) error {
	aux := tree.Root()
	if aux.IsNil() {
		return nil
	}

	stack := make([]RBNode[K, V], 0, 64)
	defer func() {
		clear(stack)
	}()

	for ; !aux.IsNil(); aux = aux.Left() {
		stack = append(stack, aux)
	}

	for size := len(stack); size > 0; size = len(stack) {
		if aux = stack[size-1]; isRed[K, V](aux) {
			if isRed[K, V](aux.Parent()) || isRed[K, V](aux.Left()) || isRed[K, V](aux.Right()) {
				return fmt.Errorf("%w: red key %v", ErrRBTreeRedViolation, aux.Key())
			}
		}

		stack = stack[:size-1]
		for aux = aux.Right(); !aux.IsNil(); aux = aux.Left() {
			stack = append(stack, aux)
		}
	}
	return nil
}

// BFS traversal to load all nodes owning at least one sentinel child.
func bfsLeaves[K infra.OrderedKey, V any](tree RBTree[K, V]) []RBNode[K, V] {
	aux := tree.Root()
	if aux.IsNil() {
		return nil
	}

	leaves := make([]RBNode[K, V], 0, tree.Len()>>1+1)
	queue := make([]RBNode[K, V], 0, tree.Len()>>1+1)
	defer func() {
		clear(queue)
	}()
	queue = append(queue, aux)

	for len(queue) > 0 {
		aux = queue[0]
		l, r := aux.Left(), aux.Right()
		if /* sentinel leaves, keep one */ l.IsNil() || r.IsNil() {
			leaves = append(leaves, aux)
		}
		if !l.IsNil() {
			queue = append(queue, l)
		}
		if !r.IsNil() {
			queue = append(queue, r)
		}
		queue = queue[1:]
	}
	return leaves
}

/*
<X> is a RED node.
[X] is a BLACK node (or sentinel).

	        [13]
	        /  \
	     <8>    [15]
	     / \    /  \
	  [6] [11] [14] [17]
	  /              /
	<1>            <16>

2-3-4 tree like:

	       <8> --- [13] --- <15>
	      /  \             /    \
	     /    \           /      \
	  <1>-[6][11]      [14] <16>-[17]

Each sentinel to root black depth are equal. If it holds for the root,
it holds for every node, because all paths below a node share the
prefix from the root.
*/
func BlackViolationValidate[K infra.OrderedKey, V any](tree RBTree[K, V]) error {
	leaves := bfsLeaves[K, V](tree)
	if leaves == nil {
		return nil
	}

	blackDepth := blackDepthTo[K, V](leaves[0])
	for i := 1; i < len(leaves); i++ {
		if depth := blackDepthTo[K, V](leaves[i]); depth != blackDepth {
			return fmt.Errorf("%w: key %v black depth %d, expected %d",
				ErrRBTreeBlackViolation, leaves[i].Key(), depth, blackDepth)
		}
	}
	return nil
}

type orderFrame[K infra.OrderedKey] struct {
	idx    uint32
	lo, hi K
	hasLo  bool // lo <= key
	hasHi  bool // key <= hi
}

// OrderViolationValidate checks every node against the bounds inherited
// from its ancestors. Bounds are inclusive on both sides, rotations may
// move an equal key into the right subtree. It also checks the parent
// links and the node count.
func OrderViolationValidate[K infra.OrderedKey, V any](tree RBTree[K, V]) error {
	t := unwrapRBTree[K, V](tree)
	if t == nil || t.released {
		return nil
	}

	stack := make([]orderFrame[K], 0, 64)
	defer func() {
		clear(stack)
	}()
	if t.root != nilIdx {
		stack = append(stack, orderFrame[K]{idx: t.root})
	}

	count := int64(0)
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := t.node(f.idx)
		if f.hasLo && t.kcmp(n.key, f.lo) < 0 {
			return fmt.Errorf("%w: key %v in the right subtree of %v", ErrRBTreeOrderViolation, n.key, f.lo)
		}
		if f.hasHi && t.kcmp(n.key, f.hi) > 0 {
			return fmt.Errorf("%w: key %v in the left subtree of %v", ErrRBTreeOrderViolation, n.key, f.hi)
		}
		if n.left != nilIdx && t.node(n.left).parent != f.idx ||
			n.right != nilIdx && t.node(n.right).parent != f.idx {
			return fmt.Errorf("%w: key %v child with a broken parent link", ErrRBTreeOrderViolation, n.key)
		}
		count++

		if n.left != nilIdx {
			stack = append(stack, orderFrame[K]{idx: n.left, lo: f.lo, hasLo: f.hasLo, hi: n.key, hasHi: true})
		}
		if n.right != nilIdx {
			stack = append(stack, orderFrame[K]{idx: n.right, lo: n.key, hasLo: true, hi: f.hi, hasHi: f.hasHi})
		}
	}

	if count != t.Len() {
		return fmt.Errorf("%w: %d nodes reachable, len %d", ErrRBTreeSizeViolation, count, t.Len())
	}
	return nil
}

// Validate runs every rule and combines all failures.
func Validate[K infra.OrderedKey, V any](tree RBTree[K, V]) error {
	return multierr.Combine(
		RootViolationValidate[K, V](tree),
		SentinelViolationValidate[K, V](tree),
		RedViolationValidate[K, V](tree),
		BlackViolationValidate[K, V](tree),
		OrderViolationValidate[K, V](tree),
	)
}
