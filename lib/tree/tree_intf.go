package tree

import (
	"errors"

	"github.com/benz9527/xrbtree/lib/infra"
)

type RBColor uint8

const (
	Black RBColor = iota
	Red
)

func (c RBColor) String() string {
	switch c {
	case Black:
		return "Black"
	case Red:
		return "Red"
	default:
	}
	return "Unknown"
}

type RBDirection int8

const (
	Left RBDirection = -1 + iota
	Root
	Right
)

func (d RBDirection) String() string {
	switch d {
	case Left:
		return "Left"
	case Root:
		return "Root"
	case Right:
		return "Right"
	default:
	}
	return "Unknown"
}

var (
	ErrRBTreeInvalidKey      = errors.New("[rbtree] invalid key")
	ErrRBTreeInvalidValue    = errors.New("[rbtree] invalid value")
	ErrRBTreeReplaceDisabled = errors.New("[rbtree] replace disabled")
)

// RBNode is the read only handle of a tree node.
// The nil leaf (sentinel) handle has no key and value, it is
// always black and its Left, Right and Parent are nil.
type RBNode[K infra.OrderedKey, V any] interface {
	Key() K
	Val() V
	HasKeyVal() bool
	Color() RBColor
	Left() RBNode[K, V]
	Right() RBNode[K, V]
	Parent() RBNode[K, V]
}

// RBTree is not safe for concurrent use.
// Not found is reported by the bool results, the errors are
// only returned for the invalid arguments and nothing is
// mutated in that case.
type RBTree[K infra.OrderedKey, V any] interface {
	Root() RBNode[K, V]
	IsEmpty() bool
	Compare(k1, k2 K) int64
	Search(key K) (V, bool, error)
	Contains(key K) (bool, error)
	Insert(key K, val V, ifNotPresent ...bool) error
	Delete(key K) (bool, error)
	// Foreach inorder traversal. The action must not mutate the tree.
	Foreach(action func(idx int64, color RBColor, key K, val V) bool)
	Clear()
}
