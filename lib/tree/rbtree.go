package tree

import (
	"reflect"

	"go.uber.org/zap"

	"github.com/benz9527/xrbtree/lib/infra"
	"github.com/benz9527/xrbtree/xlog"
)

type rbNode[K infra.OrderedKey, V any] struct {
	parent *rbNode[K, V]
	left   *rbNode[K, V]
	right  *rbNode[K, V]
	key    K
	val    V
	color  RBColor
	hasKV  bool
}

func (node *rbNode[K, V]) Color() RBColor {
	return node.color
}

func (node *rbNode[K, V]) Key() K {
	return node.key
}

func (node *rbNode[K, V]) Val() V {
	return node.val
}

func (node *rbNode[K, V]) HasKeyVal() bool {
	if node == nil {
		return false
	}
	return node.hasKV
}

func (node *rbNode[K, V]) Left() RBNode[K, V] {
	if node == nil || node.left == nil {
		return nil
	}
	return node.left
}

func (node *rbNode[K, V]) Parent() RBNode[K, V] {
	if node == nil || node.parent == nil {
		return nil
	}
	return node.parent
}

func (node *rbNode[K, V]) Right() RBNode[K, V] {
	if node == nil || node.right == nil {
		return nil
	}
	return node.right
}

func (node *rbNode[K, V]) isNilLeaf() bool {
	return node == nil || !node.hasKV
}

func (node *rbNode[K, V]) isRed() bool {
	return !node.isNilLeaf() && node.color == Red
}

func (node *rbNode[K, V]) isBlack() bool {
	return node.isNilLeaf() || node.color == Black
}

func (node *rbNode[K, V]) isRoot() bool {
	return !node.isNilLeaf() && node.parent == nil
}

// Direction is meaningless for the nil leaf, because it is shared
// by all the leaf positions of a tree.
func (node *rbNode[K, V]) Direction() RBDirection {
	if node.isNilLeaf() {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] nil leaf node without direction")
	}

	if node.isRoot() {
		return Root
	}
	if node == node.parent.left {
		return Left
	}
	return Right
}

func (node *rbNode[K, V]) sibling() *rbNode[K, V] {
	switch node.Direction() {
	case Left:
		return node.parent.right
	case Right:
		return node.parent.left
	default:
	}
	return nil
}

// Never links the nil leaf back, it has no parent.
func (node *rbNode[K, V]) fixLink() {
	if !node.left.isNilLeaf() {
		node.left.parent = node
	}
	if !node.right.isNilLeaf() {
		node.right.parent = node
	}
}

func (node *rbNode[K, V]) minimum() *rbNode[K, V] {
	aux := node
	for ; !aux.left.isNilLeaf(); aux = aux.left {
	}
	return aux
}

func (node *rbNode[K, V]) maximum() *rbNode[K, V] {
	aux := node
	for ; !aux.right.isNilLeaf(); aux = aux.right {
	}
	return aux
}

func (node *rbNode[K, V]) unlink() {
	var (
		zeroK K
		zeroV V
	)
	node.parent, node.left, node.right = nil, nil, nil
	node.key, node.val = zeroK, zeroV
	node.hasKV = false
}

func CheckKey[K infra.OrderedKey](key K) error {
	if infra.IsNaNKey[K](key) {
		return infra.WrapErrorStackWithMessage(ErrRBTreeInvalidKey, "NaN key breaks the total order")
	}
	return nil
}

// CheckVal rejects the absent values, the nil interface and the nil
// pointer, map, slice, chan and func.
func CheckVal[V any](val V) error {
	rv := reflect.ValueOf(any(val))
	if !rv.IsValid() {
		return infra.WrapErrorStackWithMessage(ErrRBTreeInvalidValue, "nil value")
	}
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan,
		reflect.Func, reflect.Interface, reflect.UnsafePointer:
		if rv.IsNil() {
			return infra.WrapErrorStackWithMessage(ErrRBTreeInvalidValue, "nil "+rv.Kind().String()+" value")
		}
	default:
	}
	return nil
}

type rbTree[K infra.OrderedKey, V any] struct {
	root           *rbNode[K, V]
	nilLeaf        *rbNode[K, V]
	cmp            infra.OrderedKeyComparator[K]
	stats          *rbTreeStats
	logger         xlog.XLogger
	statsName      string
	sentinelHops   uint64
	isDesc         bool
	isRmBorrowPred bool
	isStatsEnabled bool
}

func (tree *rbTree[K, V]) Compare(k1, k2 K) int64 {
	return tree.cmp(k1, k2)
}

func (tree *rbTree[K, V]) Root() RBNode[K, V] {
	return tree.root
}

func (tree *rbTree[K, V]) IsEmpty() bool {
	return tree.root.isNilLeaf()
}

func (tree *rbTree[K, V]) newNode(key K, val V, color RBColor, parent *rbNode[K, V]) *rbNode[K, V] {
	return &rbNode[K, V]{
		parent: parent,
		left:   tree.nilLeaf,
		right:  tree.nilLeaf,
		key:    key,
		val:    val,
		color:  color,
		hasKV:  true,
	}
}

// The current key less than the target key turns to right part.
func (tree *rbTree[K, V]) searchNode(key K) *rbNode[K, V] {
	for aux := tree.root; !aux.isNilLeaf(); {
		res := tree.cmp(aux.key, key)
		if /* equal */ res == 0 {
			return aux
		} else /* less */ if res < 0 {
			aux = aux.right
		} else /* greater */ {
			aux = aux.left
		}
	}
	return nil
}

func (tree *rbTree[K, V]) Search(key K) (V, bool, error) {
	var zero V
	if err := CheckKey[K](key); err != nil {
		return zero, false, err
	}
	if x := tree.searchNode(key); x != nil {
		return x.val, true, nil
	}
	return zero, false, nil
}

func (tree *rbTree[K, V]) Contains(key K) (bool, error) {
	if err := CheckKey[K](key); err != nil {
		return false, err
	}
	return tree.searchNode(key) != nil, nil
}

// References:
// https://elixir.bootlin.com/linux/latest/source/lib/rbtree.c
// rbtree properties:
// https://en.wikipedia.org/wiki/Red%E2%80%93black_tree#Properties
// p1. Every node is either red or black.
// p2. All NIL nodes are considered black.
// p3. A red node does not have a red child. (red-violation)
// p4. Every path from a given node to any of its descendant
//   NIL nodes goes through the same number of black nodes. (black-violation)
// p5. The root is black.
// (Conclusion) If a node X has exactly one child, it must be a red child,
//   because if it were black, its NIL descendants would sit at a different
//   black depth than X's NIL child, violating p4.

/*
		 |                         |
		 X                         S
		/ \     leftRotate(X)     / \
	   L   S    ============>    X   Sd
		  / \                   / \
		Sc   Sd                L   Sc
*/
func (tree *rbTree[K, V]) leftRotate(x *rbNode[K, V]) {
	if x.isNilLeaf() || x.right.isNilLeaf() {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] left rotate node x is nil or x.right is nil")
	}

	p, y := x.parent, x.right
	dir := x.Direction()
	x.right, y.left = y.left, x

	x.fixLink()
	y.fixLink()

	switch dir {
	case Root:
		tree.root = y
	case Left:
		p.left = y
	case Right:
		p.right = y
	default:
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] unknown node direction to left-rotate")
	}
	y.parent = p
	tree.stats.IncreaseRotationCount(Left)
}

/*
			 |                         |
			 X                         S
			/ \     rightRotate(S)    / \
	       L   S    <============    X   R
			  / \                   / \
			Sc   Sd               Sc   Sd
*/
func (tree *rbTree[K, V]) rightRotate(x *rbNode[K, V]) {
	if x.isNilLeaf() || x.left.isNilLeaf() {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] right rotate node x is nil or x.left is nil")
	}

	p, y := x.parent, x.left
	dir := x.Direction()
	x.left, y.right = y.right, x

	x.fixLink()
	y.fixLink()

	switch dir {
	case Root:
		tree.root = y
	case Left:
		p.left = y
	case Right:
		p.right = y
	default:
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] unknown node direction to right-rotate")
	}
	y.parent = p
	tree.stats.IncreaseRotationCount(Right)
}

// i1: Empty rbtree, the new node becomes the root and it is painted to black.
// i2: The key exists, replace the value only (unless ifNotPresent).
// i3: Attach a red node to the nil leaf position, then rebalance.
func (tree *rbTree[K, V]) Insert(key K, val V, ifNotPresent ...bool) error {
	if err := CheckKey[K](key); err != nil {
		return err
	}
	if err := CheckVal[V](val); err != nil {
		return err
	}

	if /* i1 */ tree.root.isNilLeaf() {
		tree.root = tree.newNode(key, val, Black, nil)
		tree.stats.IncreaseInsertCount()
		return nil
	}

	var (
		x, y *rbNode[K, V] = tree.root, nil
		res  int64
	)
	for !x.isNilLeaf() {
		y = x
		if res = tree.cmp(x.key, key); /* equal */ res == 0 {
			break
		} else /* less */ if res < 0 {
			x = x.right
		} else /* greater */ {
			x = x.left
		}
	}

	if /* i2 */ res == 0 {
		if len(ifNotPresent) > 0 && ifNotPresent[0] {
			return infra.WrapErrorStackWithMessage(ErrRBTreeReplaceDisabled, "key exists")
		}
		y.val = val
		return nil
	}

	/* i3 */
	z := tree.newNode(key, val, Red, y)
	if res < 0 {
		y.right = z
	} else {
		y.left = z
	}
	tree.stats.IncreaseInsertCount()
	tree.insertRebalance(z)
	return nil
}

/*
New node X is red by default.

<X> is a RED node.
[X] is a BLACK node (or NIL).

im1: Current node X is root or its parent P is black, nothing violated.

im2: Both the parent P and the uncle U are red, grandpa G is black.
(red-violation)
After repainted G into red may be still red-violation.
Loop to fix grandpa.

	    [G]             <G>
	    / \             / \
	  <P> <U>  ====>  [P] [U]
	  /               /
	<X>             <X>

im3: The parent P is red but the uncle U is black. (red-violation)
X is opposite direction to P (left-right or right-left).
Rotate P to the direction of P, then X and P swap roles
and enter im4 to fix.

	  [G]                 [G]
	  / \    rotate(P)    / \
	<P> [U]  ========>  <X> [U]
	  \                 /
	  <X>             <P>

im4: X is the same direction as P (left-left or right-right).
Rotate G to the opposite direction of P and swap colors of P and G.
The subtree black depth is unchanged, stop.

	    [G]                 <P>               [P]
	    / \    rotate(G)    / \    repaint    / \
	  <P> [U]  ========>  <X> [G]  ======>  <X> <G>
	  /                         \                 \
	<X>                         [U]               [U]

Finally, the root is painted into black.
*/
func (tree *rbTree[K, V]) insertRebalance(x *rbNode[K, V]) {
	for /* im1 */ !x.isRoot() && x.parent.isRed() {
		// The red parent is never the root, so grandpa exists.
		p := x.parent
		gp := p.parent
		if /* im2 */ u := p.sibling(); u.isRed() {
			p.color, u.color, gp.color = Black, Black, Red
			tree.stats.IncreaseInsertFixupCount(fixupUncleRed)
			x = gp
			continue
		}

		pDir, xDir := p.Direction(), x.Direction()
		fixupCase := insertFixupCase(pDir, xDir)
		if /* im3 */ xDir != pDir {
			switch xDir {
			case Left:
				tree.rightRotate(p)
			case Right:
				tree.leftRotate(p)
			default:
				// impossible run to here
				panic( /* debug assertion */ "[rbtree] insert violate (im3)")
			}
			p = x
		}

		switch /* im4 */ pDir {
		case Left:
			tree.rightRotate(gp)
		case Right:
			tree.leftRotate(gp)
		default:
			// impossible run to here
			panic( /* debug assertion */ "[rbtree] insert violate (im4)")
		}
		p.color, gp.color = gp.color, p.color
		tree.stats.IncreaseInsertFixupCount(fixupCase)
		break
	}
	tree.root.color = Black
}

func insertFixupCase(pDir, xDir RBDirection) rbFixupCase {
	switch {
	case pDir == Left && xDir == Left:
		return fixupLeftLeft
	case pDir == Left && xDir == Right:
		return fixupLeftRight
	case pDir == Right && xDir == Left:
		return fixupRightLeft
	default:
	}
	return fixupRightRight
}

func (tree *rbTree[K, V]) Delete(key K) (bool, error) {
	if err := CheckKey[K](key); err != nil {
		return false, err
	}
	z := tree.searchNode(key)
	if z == nil {
		return false, nil
	}
	tree.removeNode(z)
	tree.stats.IncreaseDeleteCount()
	return true, nil
}

// Replaces y by n at y's parent slot.
func (tree *rbTree[K, V]) transplant(y, n *rbNode[K, V]) {
	switch dir := y.Direction(); dir {
	case Root:
		tree.root = n
	case Left:
		y.parent.left = n
	case Right:
		y.parent.right = n
	default:
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] unknown node direction to transplant")
	}
	if !n.isNilLeaf() {
		n.parent = y.parent
	}
}

/*
r1: Current node X has left and right node.
Find node X's succ (or pred) Y, swap the key and value only.
Then remove Y instead, Y has at most one not nil child.

	  |                    |
	  X                    Y
	 / \                  / \
	L  ..   swap(X, Y)   L  ..
		|   =========>       |
		P                    P
	   / \                  / \
	  Y  ..                X  ..

r2: Y has only one not nil child C. Splice Y out, C takes Y's position
and is painted into black. The child of a one child node must be red
(see conclusion), otherwise Y and C are both black and C is double black.

r3: Y is a leaf node. The nil leaf takes Y's position.
(1) Y is red, remove directly.
(2) Y is black, the nil leaf position is double black.
(black-violation)
*/
func (tree *rbTree[K, V]) removeNode(z *rbNode[K, V]) {
	y := z
	if /* r1 */ !z.left.isNilLeaf() && !z.right.isNilLeaf() {
		if tree.isRmBorrowPred {
			y = z.left.maximum()
		} else {
			y = z.right.minimum()
		}
		z.key, y.key = y.key, z.key
		z.val, y.val = y.val, z.val
	}

	var child *rbNode[K, V]
	if !y.left.isNilLeaf() {
		child = y.left
	} else if !y.right.isNilLeaf() {
		child = y.right
	}

	if /* r2 */ child != nil {
		isDoubleBlack := y.isBlack() && child.isBlack()
		tree.transplant(y, child)
		child.color = Black
		if isDoubleBlack && !child.isRoot() {
			tree.removeRebalance(child, child.parent, child.Direction())
		}
	} else /* r3 */ {
		p, dir := y.parent, y.Direction()
		tree.transplant(y, tree.nilLeaf)
		if /* r3 (2) */ y.isBlack() && p != nil {
			tree.removeRebalance(tree.nilLeaf, p, dir)
		}
	}
	y.unlink()
}

/*
<X> is a RED node.
[X] is a BLACK node (or NIL).
{X} is either a RED node or a BLACK node.

X is double black, it may be the nil leaf, so its parent P and
its direction are tracked explicitly.
Sc is the same direction to X and it is X's sibling's child node.
Sd is the opposite direction to X and it is X's sibling's child node.

rm0: X's sibling is the nil leaf. It never happens in a valid rbtree,
because the sibling subtree has the black depth at least 1.
Move the deficiency up to P and record it as an anomaly.

rm1: X's sibling S is red, so the parent P, nephew node Sc and Sd
must be black. (Otherwise, red-violation)
Repaint S into black, P into red, rotate P towards X.
X gets a black sibling, continue.

	  [P]                   <S>               [S]
	  / \    l-rotate(P)    / \    repaint    / \
	[X] <S>  ==========>  [P] [Sd]  =====>  <P> [Sd]
	    / \               / \               / \
	 [Sc] [Sd]          [X] [Sc]          [X] [Sc]

rm2: X's parent P is red, the sibling S, nephew node Sc and Sd
are black. Repaint S into red and P into black, stop.

	  <P>             [P]
	  / \             / \
	[X] [S]  ====>  [X] <S>
	    / \             / \
	 [Sc] [Sd]       [Sc] [Sd]

rm3: All of X's parent P, the sibling S, nephew node Sc and Sd
are black. Paint S into red to satisfy p4 locally,
then P is double black, continue.

	  [P]             [P]
	  / \             / \
	[X] [S]  ====>  [X] <S>
	    / \             / \
	 [Sc] [Sd]       [Sc] [Sd]

rm4: X's sibling S is black, nephew node Sc is red and Sd is black.
Rotate S away from X, repaint Sc into black and S into red.
Enter rm5 to fix.

	                        {P}                {P}
	  {P}                   / \                / \
	  / \    r-rotate(S)  [X] <Sc>   repaint  [X] [Sc]
	[X] [S]  ==========>        \    ======>       \
	    / \                     [S]                <S>
	  <Sc> [Sd]                   \                  \
	                              [Sd]               [Sd]

rm5: X's sibling S is black, nephew node Sd is red.
Rotate P towards X, S takes P's color, P and Sd are painted into black,
stop.

	  {P}                   [S]                {S}
	  / \    l-rotate(P)    / \     repaint    / \
	[X] [S]  ==========>  {P} <Sd>  ======>  [P] [Sd]
	    / \               / \                / \
	 [Sc] <Sd>          [X] [Sc]           [X] [Sc]
*/
func (tree *rbTree[K, V]) removeRebalance(x, p *rbNode[K, V], dir RBDirection) {
	moveUp := func() {
		x, p = p, p.parent
		if p != nil {
			dir = x.Direction()
		}
	}

	for p != nil {
		var sibling *rbNode[K, V]
		switch dir {
		case Left:
			sibling = p.right
		case Right:
			sibling = p.left
		default:
			// impossible run to here
			panic( /* debug assertion */ "[rbtree] remove violate, double black node without direction")
		}

		if /* rm0 */ sibling.isNilLeaf() {
			tree.sentinelHops++
			tree.stats.IncreaseSentinelHopCount()
			tree.logger.Warn("[rbtree] double black node sibling is nil leaf, move up",
				zap.Uint64("hops", tree.sentinelHops),
			)
			moveUp()
			continue
		}

		if /* rm1 */ sibling.isRed() {
			sibling.color, p.color = Black, Red
			switch dir {
			case Left:
				tree.leftRotate(p)
			case Right:
				tree.rightRotate(p)
			default:
			}
			tree.stats.IncreaseDeleteFixupCount(fixupSiblingRed)
			continue
		}

		var sc, sd *rbNode[K, V]
		switch dir {
		case Left:
			sc, sd = sibling.left, sibling.right
		case Right:
			sc, sd = sibling.right, sibling.left
		default:
		}

		if sc.isBlack() && sd.isBlack() {
			sibling.color = Red
			if /* rm2 */ p.isRed() {
				p.color = Black
				tree.stats.IncreaseDeleteFixupCount(fixupParentRed)
				return
			}
			/* rm3 */
			tree.stats.IncreaseDeleteFixupCount(fixupParentBlack)
			moveUp()
			continue
		}

		if /* rm4 */ sd.isBlack() {
			switch dir {
			case Left:
				tree.rightRotate(sibling)
			case Right:
				tree.leftRotate(sibling)
			default:
			}
			sc.color, sibling.color = Black, Red
			sibling, sd = sc, sibling
			tree.stats.IncreaseDeleteFixupCount(fixupNearNephewRed)
		}

		/* rm5 */
		switch dir {
		case Left:
			tree.leftRotate(p)
		case Right:
			tree.rightRotate(p)
		default:
		}
		sibling.color, p.color, sd.color = p.color, Black, Black
		tree.stats.IncreaseDeleteFixupCount(fixupFarNephewRed)
		return
	}
}

// Inorder traversal to implement the DFS.
func (tree *rbTree[K, V]) Foreach(action func(idx int64, color RBColor, key K, val V) bool) {
	stack := make([]*rbNode[K, V], 0, 32)
	defer func() {
		clear(stack)
	}()

	idx := int64(0)
	for aux := tree.root; !aux.isNilLeaf() || len(stack) > 0; {
		for ; !aux.isNilLeaf(); aux = aux.left {
			stack = append(stack, aux)
		}
		aux = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !action(idx, aux.color, aux.key, aux.val) {
			return
		}
		idx++
		aux = aux.right
	}
}

func (tree *rbTree[K, V]) Clear() {
	aux := tree.root
	tree.root = tree.nilLeaf
	if aux.isNilLeaf() {
		return
	}

	stack := make([]*rbNode[K, V], 0, 32)
	defer func() {
		clear(stack)
	}()
	stack = append(stack, aux)

	released := 0
	for len(stack) > 0 {
		aux = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !aux.left.isNilLeaf() {
			stack = append(stack, aux.left)
		}
		if !aux.right.isNilLeaf() {
			stack = append(stack, aux.right)
		}
		aux.unlink()
		released++
	}
	tree.logger.Debug("[rbtree] cleared", zap.Int("released", released))
}

type RBTreeOpt[K infra.OrderedKey, V any] func(*rbTree[K, V])

func WithRBTreeDesc[K infra.OrderedKey, V any]() RBTreeOpt[K, V] {
	return func(tree *rbTree[K, V]) {
		tree.isDesc = true
	}
}

// WithRBTreeRemoveBorrowPred removes a two children node by its
// predecessor instead of its successor.
func WithRBTreeRemoveBorrowPred[K infra.OrderedKey, V any]() RBTreeOpt[K, V] {
	return func(tree *rbTree[K, V]) {
		tree.isRmBorrowPred = true
	}
}

func WithRBTreeStats[K infra.OrderedKey, V any](name string) RBTreeOpt[K, V] {
	return func(tree *rbTree[K, V]) {
		tree.isStatsEnabled = true
		tree.statsName = name
	}
}

func WithRBTreeLogger[K infra.OrderedKey, V any](logger xlog.XLogger) RBTreeOpt[K, V] {
	return func(tree *rbTree[K, V]) {
		tree.logger = logger
	}
}

func newRBTree[K infra.OrderedKey, V any](opts ...RBTreeOpt[K, V]) *rbTree[K, V] {
	tree := &rbTree[K, V]{
		nilLeaf: &rbNode[K, V]{color: Black},
	}
	for _, o := range opts {
		if o != nil {
			o(tree)
		}
	}

	tree.root = tree.nilLeaf
	tree.cmp = infra.AscOrderedKeyComparator[K]
	if tree.isDesc {
		tree.cmp = infra.DescOrderedKeyComparator[K]
	}
	if tree.logger == nil {
		tree.logger = xlog.NewNopXLogger()
	}
	if tree.isStatsEnabled {
		tree.stats = newRBTreeStats(tree.statsName)
	}
	return tree
}

func NewRBTree[K infra.OrderedKey, V any](opts ...RBTreeOpt[K, V]) RBTree[K, V] {
	return newRBTree[K, V](opts...)
}
