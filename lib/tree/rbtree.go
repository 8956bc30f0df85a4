package tree

import (
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/benz9527/xrbtree/lib/infra"
	"github.com/benz9527/xrbtree/lib/xlog"
)

var _ RBTree[uint8, uint8] = (*rbTree[uint8, uint8])(nil)

type rbElement[K infra.OrderedKey, V any] struct {
	key K
	val V
}

func (e *rbElement[K, V]) Key() K {
	return e.key
}

func (e *rbElement[K, V]) Val() V {
	return e.val
}

type rbTree[K infra.OrderedKey, V any] struct {
	arena    *rbArena[K, V]
	kcmp     infra.OrderedKeyComparator[K]
	stats    *rbTreeStats
	logger   xlog.XLogger
	root     uint32
	count    int64
	released bool
}

func (tree *rbTree[K, V]) node(i uint32) *rbNode[K, V] {
	return tree.arena.node(i)
}

// The sentinel is black, so no presence check is needed.
func (tree *rbTree[K, V]) color(i uint32) RBColor {
	return tree.arena.node(i).color
}

func (tree *rbTree[K, V]) child(i uint32, dir RBDirection) uint32 {
	if dir == Left {
		return tree.node(i).left
	}
	return tree.node(i).right
}

// direction of x relative to its parent. It also works for the
// sentinel standing in a vacated slot during delete fixup, because
// the sentinel's parent is set by transplant.
func (tree *rbTree[K, V]) direction(x uint32) RBDirection {
	p := tree.node(x).parent
	if p == nilIdx {
		return Root
	}
	if tree.node(p).left == x {
		return Left
	}
	return Right
}

func (tree *rbTree[K, V]) minimum(x uint32) uint32 {
	for x != nilIdx && tree.node(x).left != nilIdx {
		x = tree.node(x).left
	}
	return x
}

func (tree *rbTree[K, V]) maximum(x uint32) uint32 {
	for x != nilIdx && tree.node(x).right != nilIdx {
		x = tree.node(x).right
	}
	return x
}

func (tree *rbTree[K, V]) handle(i uint32) RBNode[K, V] {
	if tree.released || i == nilIdx {
		return &rbHandle[K, V]{tree: tree, idx: nilIdx}
	}
	return &rbHandle[K, V]{tree: tree, idx: i, gen: tree.node(i).gen}
}

func (tree *rbTree[K, V]) Len() int64 {
	return atomic.LoadInt64(&tree.count)
}

func (tree *rbTree[K, V]) Root() RBNode[K, V] {
	return tree.handle(tree.root)
}

// References:
// Introduction to Algorithms (CLRS), chapter 13.
// rbtree properties:
// p1. The root is black.
// p2. The sentinel is black and never has a real child.
// p3. A red node does not have a red child. (red-violation)
// p4. Every path from a given node to any of its descendant
//   sentinels goes through the same number of black nodes. (black-violation)
// p5. Keys in the left subtree are less than or equal to the node's key,
//   keys in the right subtree are greater.

/*
	 |                         |
	 X                         S
	/ \     leftRotate(X)     / \
   L   S    ============>    X   Sd
	  / \                   / \
	Sc   Sd                L   Sc
*/
func (tree *rbTree[K, V]) leftRotate(x uint32) {
	if x == nilIdx || tree.node(x).right == nilIdx {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] left rotate node x is nil or x.right is nil")
	}

	xn := tree.node(x)
	y := xn.right
	yn := tree.node(y)
	xn.right = yn.left
	if yn.left != nilIdx {
		tree.node(yn.left).parent = x
	}
	yn.parent = xn.parent
	switch p := xn.parent; {
	case p == nilIdx:
		tree.root = y
	case tree.node(p).left == x:
		tree.node(p).left = y
	default:
		tree.node(p).right = y
	}
	yn.left = x
	xn.parent = y
	tree.stats.IncreaseRotateCount()
}

/*
		 |                         |
		 X                         S
		/ \     rightRotate(S)    / \
	   L   S    <============    X   R
		  / \                   / \
		Sc   Sd               Sc   Sd
*/
func (tree *rbTree[K, V]) rightRotate(x uint32) {
	if x == nilIdx || tree.node(x).left == nilIdx {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] right rotate node x is nil or x.left is nil")
	}

	xn := tree.node(x)
	y := xn.left
	yn := tree.node(y)
	xn.left = yn.right
	if yn.right != nilIdx {
		tree.node(yn.right).parent = x
	}
	yn.parent = xn.parent
	switch p := xn.parent; {
	case p == nilIdx:
		tree.root = y
	case tree.node(p).left == x:
		tree.node(p).left = y
	default:
		tree.node(p).right = y
	}
	yn.right = x
	xn.parent = y
	tree.stats.IncreaseRotateCount()
}

// rotate x down to the dir side.
func (tree *rbTree[K, V]) rotate(x uint32, dir RBDirection) {
	switch dir {
	case Left:
		tree.leftRotate(x)
	case Right:
		tree.rightRotate(x)
	default:
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] unknown rotate direction")
	}
}

// i1: Empty rbtree, the new node becomes root and the fixup paints it black.
func (tree *rbTree[K, V]) Insert(key K, val V) error {
	if tree.released {
		return ErrRBTreeReleased
	}
	// Allocate before linking, a failure leaves the tree untouched.
	z, ok := tree.arena.allocate()
	if !ok {
		if tree.logger != nil {
			tree.logger.Warn("[rbtree] insert rejected, node limit reached",
				zap.Uint32("limit", tree.arena.limit),
			)
		}
		return ErrRBTreeAllocationFailure
	}

	y, x := nilIdx, tree.root
	for x != nilIdx {
		y = x
		if /* less or equal */ tree.kcmp(key, tree.node(x).key) <= 0 {
			x = tree.node(x).left
		} else /* greater */ {
			x = tree.node(x).right
		}
	}

	zn := tree.node(z)
	zn.key, zn.val = key, val
	zn.parent = y
	if /* i1 */ y == nilIdx {
		tree.root = z
	} else if tree.kcmp(key, tree.node(y).key) <= 0 {
		tree.node(y).left = z
	} else {
		tree.node(y).right = z
	}

	atomic.AddInt64(&tree.count, 1)
	tree.insertRebalance(z)
	tree.stats.IncreaseInsertCount()
	return nil
}

/*
New node X is red by default.

<X> is a RED node.
[X] is a BLACK node (or sentinel).
{X} is either a RED node or a BLACK node.

im1: Current node X's parent P is black, nothing to fix.

im2: Current node X is root, repaint it into black at the end.

im3: If both the parent P and the uncle U are red, grandpa G is black.
(red-violation)
After repainted G into red may be still red-violation.
Loop to fix grandpa.

	    [G]             <G>
	    / \             / \
	  <P> <U>  ====>  [P] [U]
	  /               /
	<X>             <X>

im4: The parent P is red but the uncle U is black. (red-violation)
X is opposite direction to P. Rotate P to opposite direction.
After rotation it is still red-violation. Here must enter im5 to fix.

	  [G]                 [G]
	  / \    rotate(P)    / \
	<P> [U]  ========>  <X> [U]
	  \                 /
	  <X>             <P>

im5: Handle im4 scenario, current node is the same direction as parent.
It always terminates the loop.

	    [G]                 <P>               [P]
	    / \    rotate(G)    / \    repaint    / \
	  <P> [U]  ========>  <X> [G]  ======>  <X> <G>
	  /                         \                 \
	<X>                         [U]               [U]
*/
func (tree *rbTree[K, V]) insertRebalance(z uint32) {
	for /* im1 */ tree.color(tree.node(z).parent) == Red {
		// A red parent is never the root, so grandpa is a real node.
		p := tree.node(z).parent
		g := tree.node(p).parent
		dir := tree.direction(p)
		u := tree.child(g, dir.opposite())

		if /* im3 */ tree.color(u) == Red {
			tree.node(p).color = Black
			tree.node(u).color = Black
			tree.node(g).color = Red
			z = g
			continue
		}

		if /* im4 */ tree.direction(z) != dir {
			z = p
			tree.rotate(z, dir)
			p = tree.node(z).parent
		}

		/* im5 */
		tree.node(p).color = Black
		tree.node(g).color = Red
		tree.rotate(g, dir.opposite())
	}
	/* im2 */
	tree.node(tree.root).color = Black
}

func (tree *rbTree[K, V]) search(key K) uint32 {
	for aux := tree.root; aux != nilIdx; {
		res := tree.kcmp(key, tree.node(aux).key)
		if res == 0 {
			return aux
		} else if res > 0 {
			aux = tree.node(aux).right
		} else {
			aux = tree.node(aux).left
		}
	}
	return nilIdx
}

// transplant replaces the subtree rooted at u by the subtree rooted at v.
// v may be the sentinel, its parent is written anyway for the fixup.
func (tree *rbTree[K, V]) transplant(u, v uint32) {
	p := tree.node(u).parent
	switch {
	case p == nilIdx:
		tree.root = v
	case tree.node(p).left == u:
		tree.node(p).left = v
	default:
		tree.node(p).right = v
	}
	tree.node(v).parent = p
}

/*
r1: Node Z has no left child, promote its right child (maybe the sentinel).

r2: Node Z has no right child, promote its left child.

r3: Node Z has both children. Its succ Y is the minimum of Z's right
subtree and has no left child. Splice Y out (promoting Y's right child),
then move Y into Z's position and paint Y with Z's color.

	  |                    |
	  Z                    Y
	 / \                  / \
	L  ..   move(Y, Z)   L  ..
	    |   =========>       |
	    P                    P
	   / \                  / \
	  Y  ..                X  ..
	   \
	    X

X is the node which occupies the vacated slot. If the color removed from
its position was black, X carries an extra black and the fixup runs.
*/
func (tree *rbTree[K, V]) removeNode(z uint32) RBElement[K, V] {
	zn := tree.node(z)
	res := &rbElement[K, V]{
		key: zn.key,
		val: zn.val,
	}

	var x uint32
	removedColor := zn.color
	if /* r1 */ zn.left == nilIdx {
		x = zn.right
		tree.transplant(z, zn.right)
	} else if /* r2 */ zn.right == nilIdx {
		x = zn.left
		tree.transplant(z, zn.left)
	} else /* r3 */ {
		y := tree.minimum(zn.right)
		yn := tree.node(y)
		removedColor = yn.color
		x = yn.right
		if yn.parent == z {
			tree.node(x).parent = y
		} else {
			tree.transplant(y, yn.right)
			yn.right = zn.right
			tree.node(yn.right).parent = y
		}
		tree.transplant(z, y)
		yn.left = zn.left
		tree.node(yn.left).parent = y
		yn.color = zn.color
	}

	if removedColor == Black {
		tree.removeRebalance(x)
	}
	// Drop the transient parent link written by transplant.
	tree.node(nilIdx).parent = nilIdx

	tree.arena.release(z)
	atomic.AddInt64(&tree.count, -1)
	tree.stats.IncreaseDeleteCount()
	return res
}

func (tree *rbTree[K, V]) Delete(key K) (RBElement[K, V], error) {
	if tree.released {
		return nil, ErrRBTreeReleased
	}
	z := tree.search(key)
	if z == nilIdx {
		tree.stats.IncreaseDeleteNotFoundCount()
		if tree.logger != nil {
			tree.logger.Debug("[rbtree] delete key not found",
				zap.Any("key", key),
				zap.Int64("len", tree.Len()),
			)
		}
		return nil, ErrRBTreeNotFound
	}
	return tree.removeNode(z), nil
}

func (tree *rbTree[K, V]) RemoveMin() (RBElement[K, V], error) {
	if tree.released {
		return nil, ErrRBTreeReleased
	}
	if tree.root == nilIdx {
		return nil, ErrRBTreeEmpty
	}
	return tree.removeNode(tree.minimum(tree.root)), nil
}

func (tree *rbTree[K, V]) RemoveMax() (RBElement[K, V], error) {
	if tree.released {
		return nil, ErrRBTreeReleased
	}
	if tree.root == nilIdx {
		return nil, ErrRBTreeEmpty
	}
	return tree.removeNode(tree.maximum(tree.root)), nil
}

/*
<X> is a RED node.
[X] is a BLACK node (or sentinel).
{X} is either a RED node or a BLACK node.

X carries an extra black. S is X's sibling.
Sc is the same direction to X and it is S's child node.
Sd is the opposite direction to X and it is S's child node.

rm1: The sibling S is red, so the parent P, nephew node Sc and Sd
must be black. Rotate P toward X, repaint S into black and P into red.
Then X has a black sibling, enter rm2-rm4.

	  [P]                   <S>               [S]
	  / \    l-rotate(P)    / \    repaint    / \
	[X] <S>  ==========>  [P] [Sd]  ======>  <P> [Sd]
	    / \               / \               / \
	 [Sc] [Sd]          [X] [Sc]          [X] [Sc]

rm2: The sibling S, nephew node Sc and Sd are black.
Repaint S into red, so the extra black moves up to P.
If P is red the loop ends and P is painted black.

	  {P}             {P}
	  / \             / \
	[X] [S]  ====>  [X] <S>
	    / \             / \
	 [Sc] [Sd]       [Sc] [Sd]

rm3: The sibling S is black, nephew node Sc is red and Sd is black.
Rotate S away from X, repaint Sc into black and S into red.
Enter into rm4 to fix.

	                        {P}                {P}
	  {P}                   / \                / \
	  / \    r-rotate(S)  [X] <Sc>   repaint  [X] [Sc]
	[X] [S]  ==========>        \    ======>       \
	    / \                     [S]                <S>
	  <Sc> [Sd]                   \                  \
	                              [Sd]               [Sd]

rm4: The sibling S is black and nephew node Sd is red.
Rotate P toward X, S takes P's color, P and Sd are painted black.
The extra black is absorbed and the loop ends.

	  {P}                   [S]                {S}
	  / \    l-rotate(P)    / \     repaint    / \
	[X] [S]  ==========>  {P} <Sd>  ======>  [P] [Sd]
	    / \               / \                / \
	 [Sc] <Sd>          [X] [Sc]           [X] [Sc]
*/
func (tree *rbTree[K, V]) removeRebalance(x uint32) {
	for x != tree.root && tree.color(x) == Black {
		p := tree.node(x).parent
		dir := tree.direction(x)
		s := tree.child(p, dir.opposite())

		if /* rm1 */ tree.color(s) == Red {
			tree.node(s).color = Black
			tree.node(p).color = Red
			tree.rotate(p, dir)
			s = tree.child(p, dir.opposite())
		}

		sc, sd := tree.child(s, dir), tree.child(s, dir.opposite())
		if /* rm2 */ tree.color(sc) == Black && tree.color(sd) == Black {
			tree.node(s).color = Red
			x = p
			continue
		}

		if /* rm3 */ tree.color(sd) == Black {
			tree.node(sc).color = Black
			tree.node(s).color = Red
			tree.rotate(s, dir.opposite())
			s = tree.child(p, dir.opposite())
			sd = tree.child(s, dir.opposite())
		}

		/* rm4 */
		tree.node(s).color = tree.node(p).color
		tree.node(p).color = Black
		tree.node(sd).color = Black
		tree.rotate(p, dir)
		x = tree.root
	}
	tree.node(x).color = Black
}

func (tree *rbTree[K, V]) Search(key K) (RBNode[K, V], error) {
	if tree.released {
		return tree.handle(nilIdx), ErrRBTreeNotFound
	}
	x := tree.search(key)
	if x == nilIdx {
		return tree.handle(nilIdx), ErrRBTreeNotFound
	}
	return tree.handle(x), nil
}

func (tree *rbTree[K, V]) Min() RBNode[K, V] {
	if tree.released {
		return tree.handle(nilIdx)
	}
	return tree.handle(tree.minimum(tree.root))
}

func (tree *rbTree[K, V]) Max() RBNode[K, V] {
	if tree.released {
		return tree.handle(nilIdx)
	}
	return tree.handle(tree.maximum(tree.root))
}

// Inorder traversal to implement the DFS.
func (tree *rbTree[K, V]) Foreach(action func(idx int64, color RBColor, key K, val V) bool) {
	size := atomic.LoadInt64(&tree.count)
	if tree.released || size <= 0 {
		return
	}

	stack := make([]uint32, 0, 64)
	defer func() {
		clear(stack)
	}()

	idx := int64(0)
	for aux := tree.root; aux != nilIdx || len(stack) > 0; {
		for ; aux != nilIdx; aux = tree.node(aux).left {
			stack = append(stack, aux)
		}
		aux = stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := tree.node(aux)
		if !action(idx, n.color, n.key, n.val) {
			return
		}
		idx++
		aux = n.right
	}
}

func (tree *rbTree[K, V]) Keys() []K {
	keys := make([]K, 0, tree.Len())
	tree.Foreach(func(idx int64, color RBColor, key K, val V) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}

type printFrame struct {
	idx   uint32
	depth int
}

// Reverse inorder traversal (right, self, left).
func (tree *rbTree[K, V]) Print(w io.Writer) error {
	if tree.released || tree.root == nilIdx {
		return nil
	}

	stack := make([]printFrame, 0, 64)
	defer func() {
		clear(stack)
	}()

	for aux, depth := tree.root, 0; aux != nilIdx || len(stack) > 0; {
		for ; aux != nilIdx; aux, depth = tree.node(aux).right, depth+1 {
			stack = append(stack, printFrame{idx: aux, depth: depth})
		}
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, err := fmt.Fprintf(w, "%s%v\n", strings.Repeat("  ", f.depth), tree.node(f.idx).key); err != nil {
			return err
		}
		aux, depth = tree.node(f.idx).left, f.depth+1
	}
	return nil
}

// Release frees every node in post-order, then the sentinel.
// The tree is unusable afterward: mutations return ErrRBTreeReleased
// and reads see an empty tree.
func (tree *rbTree[K, V]) Release() {
	if tree.released {
		return
	}

	size := atomic.LoadInt64(&tree.count)
	// Reversed (self, right, left) order is the post-order.
	order := make([]uint32, 0, size)
	stack := make([]uint32, 0, 64)
	if tree.root != nilIdx {
		stack = append(stack, tree.root)
	}
	for len(stack) > 0 {
		aux := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		order = append(order, aux)
		if l := tree.node(aux).left; l != nilIdx {
			stack = append(stack, l)
		}
		if r := tree.node(aux).right; r != nilIdx {
			stack = append(stack, r)
		}
	}
	for i := len(order) - 1; i >= 0; i-- {
		tree.arena.release(order[i])
	}
	tree.arena.releaseSentinel()
	tree.arena.clear()

	tree.root = nilIdx
	tree.released = true
	atomic.StoreInt64(&tree.count, 0)
	tree.stats.RecordReleased(int64(len(order)))
	if tree.logger != nil {
		tree.logger.Debug("[rbtree] released",
			zap.Int("nodes", len(order)),
			zap.Uint64("allocated", tree.arena.allocated),
			zap.Uint64("released", tree.arena.released),
		)
	}
}

func NewRBTree[K infra.OrderedKey, V any](opts ...RBTreeOpt[K, V]) RBTree[K, V] {
	cfg := &rbTreeCfg[K, V]{}
	for _, o := range opts {
		o(cfg)
	}
	return cfg.build()
}
