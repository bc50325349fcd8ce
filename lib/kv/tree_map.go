package kv

import (
	"reflect"

	"github.com/samber/lo"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/benz9527/xrbtree/lib/infra"
	"github.com/benz9527/xrbtree/lib/tree"
	"github.com/benz9527/xrbtree/xlog"
)

var _ SortedMap[int, int] = (*treeMap[int, int])(nil)

func isNilLeaf[K infra.OrderedKey, V any](node tree.RBNode[K, V]) bool {
	return node == nil || !node.HasKeyVal()
}

// treeMap never touches the tree links directly, it reads the
// nodes by the RBNode handles and mutates by the tree operations.
type treeMap[K infra.OrderedKey, V any] struct {
	tree     tree.RBTree[K, V]
	logger   xlog.XLogger
	treeOpts []tree.RBTreeOpt[K, V]
	count    int64
}

func (m *treeMap[K, V]) Len() int64 {
	return m.count
}

func (m *treeMap[K, V]) Clear() {
	m.tree.Clear()
	m.count = 0
}

// Put increases the count only if the key is new.
func (m *treeMap[K, V]) Put(key K, val V) error {
	exists, err := m.tree.Contains(key)
	if err != nil {
		return err
	}
	if err = m.tree.Insert(key, val); err != nil {
		return err
	}
	if !exists {
		m.count++
	}
	return nil
}

// PutAll applies nothing if any entry is invalid. All the invalid
// entries are reported together.
func (m *treeMap[K, V]) PutAll(items map[K]V) error {
	if len(items) == 0 {
		return nil
	}

	var merr error
	for key, val := range items {
		merr = multierr.Append(merr, tree.CheckKey[K](key))
		merr = multierr.Append(merr, tree.CheckVal[V](val))
	}
	if merr != nil {
		err := infra.WrapErrorStackWithMessage(merr, "[treemap] put all rejected")
		m.logger.ErrorStack(err, "[treemap] put all rejected",
			zap.Int("entries", len(items)),
			zap.Int("invalid", len(multierr.Errors(merr))),
		)
		return err
	}

	for key, val := range items {
		if err := m.Put(key, val); err != nil {
			// impossible run to here
			return err
		}
	}
	return nil
}

func (m *treeMap[K, V]) Get(key K) (V, bool, error) {
	return m.tree.Search(key)
}

func (m *treeMap[K, V]) Remove(key K) (bool, error) {
	removed, err := m.tree.Delete(key)
	if err != nil {
		return false, err
	}
	if removed {
		m.count--
	}
	return removed, nil
}

func (m *treeMap[K, V]) ContainsKey(key K) (bool, error) {
	return m.tree.Contains(key)
}

// ContainsValue DFS the whole tree.
func (m *treeMap[K, V]) ContainsValue(val V) (bool, error) {
	if err := tree.CheckVal[V](val); err != nil {
		return false, err
	}
	root := m.tree.Root()
	if isNilLeaf[K, V](root) {
		return false, nil
	}

	stack := make([]tree.RBNode[K, V], 0, 32)
	defer func() {
		clear(stack)
	}()
	stack = append(stack, root)
	for len(stack) > 0 {
		aux := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if reflect.DeepEqual(aux.Val(), val) {
			return true, nil
		}
		if r := aux.Right(); !isNilLeaf[K, V](r) {
			stack = append(stack, r)
		}
		if l := aux.Left(); !isNilLeaf[K, V](l) {
			stack = append(stack, l)
		}
	}
	return false, nil
}

func (m *treeMap[K, V]) first() tree.RBNode[K, V] {
	aux := m.tree.Root()
	if isNilLeaf[K, V](aux) {
		return nil
	}
	for l := aux.Left(); !isNilLeaf[K, V](l); l = aux.Left() {
		aux = l
	}
	return aux
}

func (m *treeMap[K, V]) last() tree.RBNode[K, V] {
	aux := m.tree.Root()
	if isNilLeaf[K, V](aux) {
		return nil
	}
	for r := aux.Right(); !isNilLeaf[K, V](r); r = aux.Right() {
		aux = r
	}
	return aux
}

func (m *treeMap[K, V]) FirstKey() (K, bool) {
	if node := m.first(); node != nil {
		return node.Key(), true
	}
	var zero K
	return zero, false
}

func (m *treeMap[K, V]) FirstEntry() MapEntry[K, V] {
	if node := m.first(); node != nil {
		return newMapEntry[K, V](node.Key(), node.Val())
	}
	return nil
}

func (m *treeMap[K, V]) LastKey() (K, bool) {
	if node := m.last(); node != nil {
		return node.Key(), true
	}
	var zero K
	return zero, false
}

func (m *treeMap[K, V]) LastEntry() MapEntry[K, V] {
	if node := m.last(); node != nil {
		return newMapEntry[K, V](node.Key(), node.Val())
	}
	return nil
}

// The greatest node not after the key.
func (m *treeMap[K, V]) floor(key K) (tree.RBNode[K, V], error) {
	if err := tree.CheckKey[K](key); err != nil {
		return nil, err
	}
	var candidate tree.RBNode[K, V]
	for aux := m.tree.Root(); !isNilLeaf[K, V](aux); {
		res := m.tree.Compare(aux.Key(), key)
		if /* equal */ res == 0 {
			return aux, nil
		} else /* less */ if res < 0 {
			candidate = aux
			aux = aux.Right()
		} else /* greater */ {
			aux = aux.Left()
		}
	}
	return candidate, nil
}

// The least node not before the key.
func (m *treeMap[K, V]) ceiling(key K) (tree.RBNode[K, V], error) {
	if err := tree.CheckKey[K](key); err != nil {
		return nil, err
	}
	var candidate tree.RBNode[K, V]
	for aux := m.tree.Root(); !isNilLeaf[K, V](aux); {
		res := m.tree.Compare(aux.Key(), key)
		if /* equal */ res == 0 {
			return aux, nil
		} else /* less */ if res < 0 {
			aux = aux.Right()
		} else /* greater */ {
			candidate = aux
			aux = aux.Left()
		}
	}
	return candidate, nil
}

func (m *treeMap[K, V]) FloorKey(key K) (K, bool, error) {
	var zero K
	node, err := m.floor(key)
	if err != nil || node == nil {
		return zero, false, err
	}
	return node.Key(), true, nil
}

func (m *treeMap[K, V]) FloorEntry(key K) (MapEntry[K, V], error) {
	node, err := m.floor(key)
	if err != nil || node == nil {
		return nil, err
	}
	return newMapEntry[K, V](node.Key(), node.Val()), nil
}

func (m *treeMap[K, V]) CeilingKey(key K) (K, bool, error) {
	var zero K
	node, err := m.ceiling(key)
	if err != nil || node == nil {
		return zero, false, err
	}
	return node.Key(), true, nil
}

func (m *treeMap[K, V]) CeilingEntry(key K) (MapEntry[K, V], error) {
	node, err := m.ceiling(key)
	if err != nil || node == nil {
		return nil, err
	}
	return newMapEntry[K, V](node.Key(), node.Val()), nil
}

func (m *treeMap[K, V]) poll(node tree.RBNode[K, V]) MapEntry[K, V] {
	if node == nil {
		return nil
	}
	// The node payload may be swapped by the removal, copy it first.
	entry := newMapEntry[K, V](node.Key(), node.Val())
	if _, err := m.Remove(entry.Key()); err != nil {
		// impossible run to here
		m.logger.Error(err, "[treemap] poll entry failed")
		return nil
	}
	return entry
}

func (m *treeMap[K, V]) PollFirstEntry() MapEntry[K, V] {
	return m.poll(m.first())
}

func (m *treeMap[K, V]) PollLastEntry() MapEntry[K, V] {
	return m.poll(m.last())
}

// HeadMap inorder traversal stops once the bound is exceeded.
func (m *treeMap[K, V]) HeadMap(toKey K, inclusive ...bool) ([]MapEntry[K, V], error) {
	if err := tree.CheckKey[K](toKey); err != nil {
		return nil, err
	}
	isInclusive := len(inclusive) > 0 && inclusive[0]

	entries := make([]MapEntry[K, V], 0, 32)
	stack := make([]tree.RBNode[K, V], 0, 32)
	defer func() {
		clear(stack)
	}()
	for aux := m.tree.Root(); !isNilLeaf[K, V](aux) || len(stack) > 0; {
		for ; !isNilLeaf[K, V](aux); aux = aux.Left() {
			stack = append(stack, aux)
		}
		aux = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		res := m.tree.Compare(aux.Key(), toKey)
		if res > 0 || (res == 0 && !isInclusive) {
			break
		}
		entries = append(entries, newMapEntry[K, V](aux.Key(), aux.Val()))
		aux = aux.Right()
	}
	return entries, nil
}

func (m *treeMap[K, V]) Entries() []MapEntry[K, V] {
	entries := make([]MapEntry[K, V], 0, m.count)
	m.tree.Foreach(func(idx int64, color tree.RBColor, key K, val V) bool {
		entries = append(entries, newMapEntry[K, V](key, val))
		return true
	})
	return entries
}

func (m *treeMap[K, V]) Keys() []K {
	return lo.Map(m.Entries(), func(e MapEntry[K, V], _ int) K {
		return e.Key()
	})
}

func (m *treeMap[K, V]) Values() []V {
	return lo.Map(m.Entries(), func(e MapEntry[K, V], _ int) V {
		return e.Val()
	})
}

func (m *treeMap[K, V]) Foreach(action func(idx int64, key K, val V) bool) {
	m.tree.Foreach(func(idx int64, color tree.RBColor, key K, val V) bool {
		return action(idx, key, val)
	})
}

type TreeMapOpt[K infra.OrderedKey, V any] func(*treeMap[K, V])

// WithTreeMapRBTreeOptions passes the options to the backing rbtree.
func WithTreeMapRBTreeOptions[K infra.OrderedKey, V any](opts ...tree.RBTreeOpt[K, V]) TreeMapOpt[K, V] {
	return func(m *treeMap[K, V]) {
		m.treeOpts = append(m.treeOpts, opts...)
	}
}

func WithTreeMapLogger[K infra.OrderedKey, V any](logger xlog.XLogger) TreeMapOpt[K, V] {
	return func(m *treeMap[K, V]) {
		m.logger = logger
	}
}

func NewTreeMap[K infra.OrderedKey, V any](opts ...TreeMapOpt[K, V]) SortedMap[K, V] {
	m := &treeMap[K, V]{}
	for _, o := range opts {
		if o != nil {
			o(m)
		}
	}
	if m.logger == nil {
		m.logger = xlog.NewNopXLogger()
	}
	// The explicit rbtree logger option overrides the map logger.
	treeOpts := append([]tree.RBTreeOpt[K, V]{tree.WithRBTreeLogger[K, V](m.logger)}, m.treeOpts...)
	m.tree = tree.NewRBTree[K, V](treeOpts...)
	m.treeOpts = nil
	return m
}
