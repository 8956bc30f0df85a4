package tree

import (
	"github.com/benz9527/xrbtree/lib/infra"
	"github.com/benz9527/xrbtree/lib/xlog"
)

type rbTreeCfg[K infra.OrderedKey, V any] struct {
	kcmp      infra.OrderedKeyComparator[K]
	logger    xlog.XLogger
	statsName *string
	capHint   uint32
	maxNodes  uint32
	isDesc    bool
}

func (cfg *rbTreeCfg[K, V]) build() *rbTree[K, V] {
	tree := &rbTree[K, V]{
		arena:  newRBArena[K, V](cfg.capHint, cfg.maxNodes),
		kcmp:   cfg.kcmp,
		logger: cfg.logger,
		root:   nilIdx,
	}
	if tree.kcmp == nil {
		if cfg.isDesc {
			tree.kcmp = infra.DescOrderedKeyComparator[K]()
		} else {
			tree.kcmp = infra.AscOrderedKeyComparator[K]()
		}
	}
	if cfg.statsName != nil {
		tree.stats = newRBTreeStats(*cfg.statsName)
	}
	return tree
}

type RBTreeOpt[K infra.OrderedKey, V any] func(*rbTreeCfg[K, V])

// WithRBTreeDesc orders the keys from the greatest to the least.
// It is ignored if a comparator is set by WithRBTreeComparator.
func WithRBTreeDesc[K infra.OrderedKey, V any]() RBTreeOpt[K, V] {
	return func(cfg *rbTreeCfg[K, V]) {
		cfg.isDesc = true
	}
}

func WithRBTreeComparator[K infra.OrderedKey, V any](cmp infra.OrderedKeyComparator[K]) RBTreeOpt[K, V] {
	return func(cfg *rbTreeCfg[K, V]) {
		cfg.kcmp = cmp
	}
}

// WithRBTreeCapacity preallocates the arena slots.
func WithRBTreeCapacity[K infra.OrderedKey, V any](hint uint32) RBTreeOpt[K, V] {
	return func(cfg *rbTreeCfg[K, V]) {
		cfg.capHint = hint
	}
}

// WithRBTreeMaxNodes limits the live nodes. Insert beyond the
// limit fails with ErrRBTreeAllocationFailure.
func WithRBTreeMaxNodes[K infra.OrderedKey, V any](n uint32) RBTreeOpt[K, V] {
	return func(cfg *rbTreeCfg[K, V]) {
		cfg.maxNodes = n
	}
}

func WithRBTreeStats[K infra.OrderedKey, V any](name string) RBTreeOpt[K, V] {
	return func(cfg *rbTreeCfg[K, V]) {
		cfg.statsName = &name
	}
}

func WithRBTreeLogger[K infra.OrderedKey, V any](logger xlog.XLogger) RBTreeOpt[K, V] {
	return func(cfg *rbTreeCfg[K, V]) {
		cfg.logger = logger
	}
}
