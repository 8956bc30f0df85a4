package tree

import (
	"io"
	"sync"

	"github.com/benz9527/xrbtree/lib/infra"
)

var _ RBTree[uint8, uint8] = (*syncRBTree[uint8, uint8])(nil)

// syncRBTree serializes the mutations and shares the reads.
// Handles returned by Root, Search, Min and Max are not protected,
// read them while no writer is running.
type syncRBTree[K infra.OrderedKey, V any] struct {
	lock sync.RWMutex
	tree RBTree[K, V]
}

func (t *syncRBTree[K, V]) Len() int64 {
	return t.tree.Len()
}

func (t *syncRBTree[K, V]) Root() RBNode[K, V] {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.tree.Root()
}

func (t *syncRBTree[K, V]) Insert(key K, val V) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.tree.Insert(key, val)
}

func (t *syncRBTree[K, V]) Delete(key K) (RBElement[K, V], error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.tree.Delete(key)
}

func (t *syncRBTree[K, V]) RemoveMin() (RBElement[K, V], error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.tree.RemoveMin()
}

func (t *syncRBTree[K, V]) RemoveMax() (RBElement[K, V], error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.tree.RemoveMax()
}

func (t *syncRBTree[K, V]) Search(key K) (RBNode[K, V], error) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.tree.Search(key)
}

func (t *syncRBTree[K, V]) Min() RBNode[K, V] {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.tree.Min()
}

func (t *syncRBTree[K, V]) Max() RBNode[K, V] {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.tree.Max()
}

// Foreach holds the read lock for the whole traversal. The action
// must not mutate the tree.
func (t *syncRBTree[K, V]) Foreach(action func(idx int64, color RBColor, key K, val V) bool) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	t.tree.Foreach(action)
}

func (t *syncRBTree[K, V]) Keys() []K {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.tree.Keys()
}

func (t *syncRBTree[K, V]) Print(w io.Writer) error {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.tree.Print(w)
}

func (t *syncRBTree[K, V]) Release() {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.tree.Release()
}

// NewSyncRBTree wraps the tree by a coarse read-write lock.
func NewSyncRBTree[K infra.OrderedKey, V any](tree RBTree[K, V]) RBTree[K, V] {
	if tree == nil {
		tree = NewRBTree[K, V]()
	}
	if st, ok := tree.(*syncRBTree[K, V]); ok {
		return st
	}
	return &syncRBTree[K, V]{tree: tree}
}
