package tree

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/benz9527/xrbtree/lib/infra"
)

func isBlack[K infra.OrderedKey, V any](node RBNode[K, V]) bool {
	return isNilLeaf[K, V](node) || node.Color() == Black
}

func isRed[K infra.OrderedKey, V any](node RBNode[K, V]) bool {
	return !isNilLeaf[K, V](node) && node.Color() == Red
}

func isNilLeaf[K infra.OrderedKey, V any](node RBNode[K, V]) bool {
	return node == nil || !node.HasKeyVal()
}

func blackDepth[K infra.OrderedKey, V any](target RBNode[K, V]) int {
	depth := 0
	for aux := target; aux != nil; aux = aux.Parent() {
		if isBlack[K, V](aux) {
			depth++
		}
	}
	return depth
}

// rbtree rule validation utilities.

// References:
// https://github1s.com/minghu6/rust-minghu6/blob/master/coll_st/src/bst/rb.rs

// Inorder traversal to validate the rbtree properties.
func RedViolationValidate[K infra.OrderedKey, V any](tree RBTree[K, V]) error {
	stack := make([]RBNode[K, V], 0, 32)
	defer func() {
		clear(stack)
	}()

	for aux := tree.Root(); !isNilLeaf[K, V](aux) || len(stack) > 0; {
		for ; !isNilLeaf[K, V](aux); aux = aux.Left() {
			stack = append(stack, aux)
		}
		aux = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if isRed[K, V](aux) && (isRed[K, V](aux.Left()) || isRed[K, V](aux.Right())) {
			return fmt.Errorf("rbtree red violation at key %v", aux.Key())
		}
		aux = aux.Right()
	}
	return nil
}

// BFS traversal to load all the nodes owning at least one nil leaf.
func bfsLeaves[K infra.OrderedKey, V any](tree RBTree[K, V]) []RBNode[K, V] {
	aux := tree.Root()
	if isNilLeaf[K, V](aux) {
		return nil
	}

	leaves := make([]RBNode[K, V], 0, 32)
	queue := make([]RBNode[K, V], 0, 32)
	defer func() {
		clear(queue)
	}()
	queue = append(queue, aux)

	for len(queue) > 0 {
		aux = queue[0]
		l, r := aux.Left(), aux.Right()
		if /* nil leaves, keep one */ isNilLeaf[K, V](l) || isNilLeaf[K, V](r) {
			leaves = append(leaves, aux)
		}
		if !isNilLeaf[K, V](l) {
			queue = append(queue, l)
		}
		if !isNilLeaf[K, V](r) {
			queue = append(queue, r)
		}
		queue = queue[1:]
	}
	return leaves
}

/*
<X> is a RED node.
[X] is a BLACK node (or NIL).

	        [13]
			/  \
		 <8>    [15]
		 / \    /  \
	  [6] [11] [14] [17]
	  /              /
	<1>            [16]

2-3-4 tree like:

	       <8> --- [13] --- <15>
		  /  \             /    \
		 /    \           /      \
	  <1>-[6][11]      [14] <16>-[17]

Each leaf node to root node black depth are equal.
*/
func BlackViolationValidate[K infra.OrderedKey, V any](tree RBTree[K, V]) error {
	leaves := bfsLeaves[K, V](tree)
	if leaves == nil {
		return nil
	}

	depth := blackDepth[K, V](leaves[0])
	for i := 1; i < len(leaves); i++ {
		if d := blackDepth[K, V](leaves[i]); d != depth {
			return fmt.Errorf("rbtree black violation at key %v, black depth %d, expected %d", leaves[i].Key(), d, depth)
		}
	}
	return nil
}

// OrderViolationValidate checks the inorder keys are strictly increasing
// under the tree order.
func OrderViolationValidate[K infra.OrderedKey, V any](tree RBTree[K, V]) (err error) {
	var prev K
	tree.Foreach(func(idx int64, color RBColor, key K, val V) bool {
		if idx > 0 && tree.Compare(prev, key) >= 0 {
			err = fmt.Errorf("rbtree order violation at index %d, key %v after %v", idx, key, prev)
			return false
		}
		prev = key
		return true
	})
	return err
}

// LinkViolationValidate checks every child links back to its parent.
func LinkViolationValidate[K infra.OrderedKey, V any](tree RBTree[K, V]) error {
	root := tree.Root()
	if isNilLeaf[K, V](root) {
		return nil
	}
	if root.Parent() != nil {
		return fmt.Errorf("rbtree root %v has parent", root.Key())
	}

	queue := []RBNode[K, V]{root}
	for len(queue) > 0 {
		aux := queue[0]
		queue = queue[1:]
		for _, child := range []RBNode[K, V]{aux.Left(), aux.Right()} {
			if child == nil {
				return fmt.Errorf("rbtree key %v has a nil child instead of nil leaf", aux.Key())
			}
			if isNilLeaf[K, V](child) {
				if child.Color() != Black {
					return fmt.Errorf("rbtree nil leaf under key %v is not black", aux.Key())
				}
				continue
			}
			if child.Parent() != aux {
				return fmt.Errorf("rbtree key %v parent link broken", child.Key())
			}
			queue = append(queue, child)
		}
	}
	return nil
}

func RootViolationValidate[K infra.OrderedKey, V any](tree RBTree[K, V]) error {
	root := tree.Root()
	if root == nil {
		return fmt.Errorf("rbtree root is nil instead of nil leaf")
	}
	if root.Color() != Black {
		return fmt.Errorf("rbtree root %v is not black", root.Key())
	}
	return nil
}

// Validate combines all the rbtree properties validation.
func Validate[K infra.OrderedKey, V any](tree RBTree[K, V]) error {
	return multierr.Combine(
		RootViolationValidate[K, V](tree),
		LinkViolationValidate[K, V](tree),
		OrderViolationValidate[K, V](tree),
		RedViolationValidate[K, V](tree),
		BlackViolationValidate[K, V](tree),
	)
}

// Height is the number of nodes on the longest root to leaf path.
func Height[K infra.OrderedKey, V any](tree RBTree[K, V]) int {
	level := make([]RBNode[K, V], 0, 32)
	if root := tree.Root(); !isNilLeaf[K, V](root) {
		level = append(level, root)
	}

	height := 0
	for len(level) > 0 {
		height++
		next := make([]RBNode[K, V], 0, len(level)*2)
		for _, aux := range level {
			if l := aux.Left(); !isNilLeaf[K, V](l) {
				next = append(next, l)
			}
			if r := aux.Right(); !isNilLeaf[K, V](r) {
				next = append(next, r)
			}
		}
		level = next
	}
	return height
}
