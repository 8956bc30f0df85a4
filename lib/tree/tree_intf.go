package tree

import (
	"errors"
	"io"

	"github.com/benz9527/xrbtree/lib/infra"
)

// go install golang.org/x/tools/cmd/stringer@latest

//go:generate stringer -type=RBColor
type RBColor uint8

const (
	Black RBColor = iota
	Red
)

type RBDirection int8

const (
	Left RBDirection = -1 + iota
	Root
	Right
)

func (dir RBDirection) opposite() RBDirection {
	return -dir
}

var (
	ErrRBTreeNotFound          = errors.New("[rbtree] key not found")
	ErrRBTreeEmpty             = errors.New("[rbtree] empty element to remove")
	ErrRBTreeAllocationFailure = errors.New("[rbtree] node allocation failure")
	ErrRBTreeReleased          = errors.New("[rbtree] tree has been released")

	ErrRBTreeRootViolation     = errors.New("[rbtree] root violation")
	ErrRBTreeSentinelViolation = errors.New("[rbtree] sentinel violation")
	ErrRBTreeRedViolation      = errors.New("[rbtree] red violation")
	ErrRBTreeBlackViolation    = errors.New("[rbtree] black violation")
	ErrRBTreeOrderViolation    = errors.New("[rbtree] order violation")
	ErrRBTreeSizeViolation     = errors.New("[rbtree] size violation")
)

// RBElement is a detached copy of a removed node's key and value.
type RBElement[K infra.OrderedKey, V any] interface {
	Key() K
	Val() V
}

// RBNode is a read-only handle of a live node.
// The sentinel handle (IsNil) reports zero key and value, Black color,
// and navigates to itself. A handle whose node has been removed reads
// as the sentinel.
type RBNode[K infra.OrderedKey, V any] interface {
	RBElement[K, V]
	Color() RBColor
	IsNil() bool
	Left() RBNode[K, V]
	Right() RBNode[K, V]
	Parent() RBNode[K, V]
}

// RBTree is not safe for concurrent use. Wrap it by NewSyncRBTree
// if it is shared between goroutines.
type RBTree[K infra.OrderedKey, V any] interface {
	Len() int64
	Root() RBNode[K, V]
	// Insert always adds a new node. Equal keys are kept and routed
	// to the left subtree.
	Insert(key K, val V) error
	// Delete removes one node matching key. The tree is left untouched
	// and ErrRBTreeNotFound returned if the key is absent.
	Delete(key K) (RBElement[K, V], error)
	RemoveMin() (RBElement[K, V], error)
	RemoveMax() (RBElement[K, V], error)
	// Search returns the sentinel handle and ErrRBTreeNotFound if the
	// key is absent.
	Search(key K) (RBNode[K, V], error)
	Min() RBNode[K, V]
	Max() RBNode[K, V]
	Foreach(action func(idx int64, color RBColor, key K, val V) bool)
	Keys() []K
	// Print writes the tree sideways, the greatest key first and each
	// level indented by two spaces.
	Print(w io.Writer) error
	Release()
}
