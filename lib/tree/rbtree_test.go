package tree

import (
	"bytes"
	"errors"
	"math"
	randv2 "math/rand"
	"sort"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/benz9527/xrbtree/lib/infra"
	"github.com/benz9527/xrbtree/xlog"
)

type checkData struct {
	color RBColor
	key   uint64
}

func requireInorder(t *testing.T, tree RBTree[uint64, uint64], expected []checkData) {
	count := 0
	tree.Foreach(func(idx int64, color RBColor, key uint64, val uint64) bool {
		require.Less(t, int(idx), len(expected))
		require.Equal(t, expected[idx].color, color)
		require.Equal(t, expected[idx].key, key)
		count++
		return true
	})
	require.Equal(t, len(expected), count)
	require.NoError(t, Validate[uint64, uint64](tree))
}

func TestNilNode(t *testing.T) {
	var nilNode RBNode[uint64, uint64] = nil
	require.True(t, nilNode == nil)

	var nilNode2 *rbNode[uint64, uint64] = nil
	nilNode = nilNode2
	require.True(t, nilNode != nil)
	require.Nil(t, nilNode)
	require.False(t, nilNode.HasKeyVal())
}

func TestRBTree_EmptyNilLeaf(t *testing.T) {
	tree := newRBTree[uint64, uint64]()
	require.True(t, tree.IsEmpty())

	root := tree.Root()
	require.NotNil(t, root)
	require.False(t, root.HasKeyVal())
	require.Equal(t, Black, root.Color())
	require.Nil(t, root.Left())
	require.Nil(t, root.Right())
	require.Nil(t, root.Parent())
	require.NoError(t, Validate[uint64, uint64](tree))
	require.Equal(t, 0, Height[uint64, uint64](tree))

	_, ok, err := tree.Search(1)
	require.NoError(t, err)
	require.False(t, ok)
	removed, err := tree.Delete(1)
	require.NoError(t, err)
	require.False(t, removed)
}

func TestRbtreeLeftAndRightRotate_Pred(t *testing.T) {
	tree := NewRBTree[uint64, uint64](WithRBTreeRemoveBorrowPred[uint64, uint64]())

	require.NoError(t, tree.Insert(52, 1))
	requireInorder(t, tree, []checkData{
		{Black, 52},
	})

	require.NoError(t, tree.Insert(47, 1))
	requireInorder(t, tree, []checkData{
		{Red, 47}, {Black, 52},
	})

	require.NoError(t, tree.Insert(3, 1))
	requireInorder(t, tree, []checkData{
		{Red, 3}, {Black, 47}, {Red, 52},
	})

	require.NoError(t, tree.Insert(35, 1))
	requireInorder(t, tree, []checkData{
		{Black, 3},
		{Red, 35},
		{Black, 47},
		{Black, 52},
	})

	require.NoError(t, tree.Insert(24, 1))
	requireInorder(t, tree, []checkData{
		{Red, 3},
		{Black, 24},
		{Red, 35},
		{Black, 47},
		{Black, 52},
	})

	// remove

	removed, err := tree.Delete(24)
	require.NoError(t, err)
	require.True(t, removed)
	requireInorder(t, tree, []checkData{
		{Black, 3},
		{Red, 35},
		{Black, 47},
		{Black, 52},
	})

	removed, err = tree.Delete(47)
	require.NoError(t, err)
	require.True(t, removed)
	requireInorder(t, tree, []checkData{
		{Black, 3},
		{Black, 35},
		{Black, 52},
	})

	removed, err = tree.Delete(52)
	require.NoError(t, err)
	require.True(t, removed)
	requireInorder(t, tree, []checkData{
		{Red, 3}, {Black, 35},
	})

	removed, err = tree.Delete(3)
	require.NoError(t, err)
	require.True(t, removed)
	requireInorder(t, tree, []checkData{
		{Black, 35},
	})

	removed, err = tree.Delete(35)
	require.NoError(t, err)
	require.True(t, removed)
	require.True(t, tree.IsEmpty())
}

func TestRbtreeLeftAndRightRotate_Succ(t *testing.T) {
	tree := NewRBTree[uint64, uint64]()
	for _, key := range []uint64{52, 47, 3, 35, 24} {
		require.NoError(t, tree.Insert(key, key))
	}

	// 24 is replaced by its successor 35, the red leaf is spliced out.
	removed, err := tree.Delete(24)
	require.NoError(t, err)
	require.True(t, removed)
	requireInorder(t, tree, []checkData{
		{Red, 3},
		{Black, 35},
		{Black, 47},
		{Black, 52},
	})
	val, ok, err := tree.Search(35)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(35), val)
}

func TestRbtree_RemoveMin(t *testing.T) {
	tree := NewRBTree[uint64, uint64]()
	for _, key := range []uint64{52, 47, 3, 35, 24} {
		require.NoError(t, tree.Insert(key, 1))
	}
	requireInorder(t, tree, []checkData{
		{Red, 3},
		{Black, 24},
		{Red, 35},
		{Black, 47},
		{Black, 52},
	})

	removeMin := func() uint64 {
		var minKey uint64
		tree.Foreach(func(idx int64, color RBColor, key uint64, val uint64) bool {
			minKey = key
			return false
		})
		removed, err := tree.Delete(minKey)
		require.NoError(t, err)
		require.True(t, removed)
		return minKey
	}

	require.Equal(t, uint64(3), removeMin())
	requireInorder(t, tree, []checkData{
		{Black, 24},
		{Red, 35},
		{Black, 47},
		{Black, 52},
	})

	require.Equal(t, uint64(24), removeMin())
	requireInorder(t, tree, []checkData{
		{Black, 35},
		{Black, 47},
		{Black, 52},
	})

	require.Equal(t, uint64(35), removeMin())
	requireInorder(t, tree, []checkData{
		{Black, 47}, {Red, 52},
	})

	require.Equal(t, uint64(47), removeMin())
	requireInorder(t, tree, []checkData{
		{Black, 52},
	})

	require.Equal(t, uint64(52), removeMin())
	require.True(t, tree.IsEmpty())
}

func TestRBTree_InsertSearchOverwrite(t *testing.T) {
	tree := NewRBTree[int, string]()
	require.NoError(t, tree.Insert(1, "a"))
	require.NoError(t, tree.Insert(2, "b"))

	val, ok, err := tree.Search(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "a", val)

	require.NoError(t, tree.Insert(1, "c"))
	val, ok, err = tree.Search(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "c", val)

	err = tree.Insert(1, "d", true)
	require.True(t, errors.Is(err, ErrRBTreeReplaceDisabled))
	val, _, _ = tree.Search(1)
	require.Equal(t, "c", val)

	ok, err = tree.Contains(2)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = tree.Contains(3)
	require.NoError(t, err)
	require.False(t, ok)

	keys := make([]int, 0, 2)
	tree.Foreach(func(idx int64, color RBColor, key int, val string) bool {
		keys = append(keys, key)
		return true
	})
	require.Equal(t, []int{1, 2}, keys)
}

func TestRBTree_InvalidArguments(t *testing.T) {
	ft := NewRBTree[float64, int]()
	require.NoError(t, ft.Insert(1.5, 1))

	nan := math.NaN()
	err := ft.Insert(nan, 1)
	require.True(t, errors.Is(err, ErrRBTreeInvalidKey))
	var es infra.ErrorStack
	require.True(t, errors.As(err, &es))
	require.NotEmpty(t, es.Frames())

	_, _, err = ft.Search(nan)
	require.True(t, errors.Is(err, ErrRBTreeInvalidKey))
	_, err = ft.Contains(nan)
	require.True(t, errors.Is(err, ErrRBTreeInvalidKey))
	_, err = ft.Delete(nan)
	require.True(t, errors.Is(err, ErrRBTreeInvalidKey))

	type payload struct{ n int }
	pt := NewRBTree[string, *payload]()
	err = pt.Insert("a", nil)
	require.True(t, errors.Is(err, ErrRBTreeInvalidValue))
	require.True(t, pt.IsEmpty())
	require.NoError(t, pt.Insert("a", &payload{n: 1}))

	at := NewRBTree[string, any]()
	require.True(t, errors.Is(at.Insert("a", nil), ErrRBTreeInvalidValue))
	require.True(t, errors.Is(at.Insert("a", []byte(nil)), ErrRBTreeInvalidValue))
	require.NoError(t, at.Insert("a", 0))
	require.NoError(t, at.Insert("b", ""))

	// Nothing mutated by the rejected calls.
	count := 0
	ft.Foreach(func(idx int64, color RBColor, key float64, val int) bool {
		count++
		return true
	})
	require.Equal(t, 1, count)
}

func TestCheckVal(t *testing.T) {
	testcases := []struct {
		name    string
		val     any
		invalid bool
	}{
		{name: "nil interface", val: nil, invalid: true},
		{name: "nil map", val: map[string]int(nil), invalid: true},
		{name: "nil slice", val: []int(nil), invalid: true},
		{name: "nil chan", val: (chan int)(nil), invalid: true},
		{name: "nil func", val: (func())(nil), invalid: true},
		{name: "nil pointer", val: (*int)(nil), invalid: true},
		{name: "zero int", val: 0},
		{name: "empty string", val: ""},
		{name: "empty slice", val: []int{}},
		{name: "struct", val: struct{}{}},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			err := CheckVal[any](tc.val)
			if tc.invalid {
				require.True(tt, errors.Is(err, ErrRBTreeInvalidValue))
				return
			}
			require.NoError(tt, err)
		})
	}
}

func TestRBTree_DeleteToSingleRoot(t *testing.T) {
	keys := []int{1058, 1685, 6997, 8438, 2776, 1129, 7913, 7515}
	tree := newRBTree[int, string]()
	for _, key := range keys {
		require.NoError(t, tree.Insert(key, strconv.Itoa(key)))
		require.NoError(t, Validate[int, string](tree))
	}

	for _, key := range keys {
		if key == 7515 {
			continue
		}
		removed, err := tree.Delete(key)
		require.NoError(t, err)
		require.True(t, removed)
		require.NoError(t, Validate[int, string](tree))
	}

	root := tree.Root()
	require.True(t, root.HasKeyVal())
	require.Equal(t, 7515, root.Key())
	require.Equal(t, "7515", root.Val())
	require.Equal(t, Black, root.Color())
	require.Nil(t, root.Parent())
	require.False(t, root.Left().HasKeyVal())
	require.False(t, root.Right().HasKeyVal())
	require.Equal(t, uint64(0), tree.sentinelHops)
}

func rbtreeRandomInsertAndRemoveSequentialNumberRunCore(t *testing.T, rbRmByPred bool) {
	total := uint64(1000)
	insertTotal := uint64(float64(total) * 0.8)
	removeTotal := uint64(float64(total) * 0.2)

	opts := make([]RBTreeOpt[uint64, uint64], 0, 1)
	if rbRmByPred {
		opts = append(opts, WithRBTreeRemoveBorrowPred[uint64, uint64]())
	}
	tree := newRBTree[uint64, uint64](opts...)

	for i := uint64(0); i < insertTotal+removeTotal; i++ {
		require.NoError(t, tree.Insert(i, 1))
		require.NoError(t, RedViolationValidate[uint64, uint64](tree))
		require.NoError(t, BlackViolationValidate[uint64, uint64](tree))
	}
	tree.Foreach(func(idx int64, color RBColor, key uint64, val uint64) bool {
		require.Equal(t, uint64(idx), key)
		return true
	})

	for i := insertTotal; i < removeTotal+insertTotal; i++ {
		if i == 920 {
			ok, err := tree.Contains(i)
			require.NoError(t, err)
			require.True(t, ok)
		}
		removed, err := tree.Delete(i)
		require.NoError(t, err)
		require.True(t, removed)
		require.NoError(t, Validate[uint64, uint64](tree))
	}
	count := uint64(0)
	tree.Foreach(func(idx int64, color RBColor, key uint64, val uint64) bool {
		require.Equal(t, uint64(idx), key)
		count++
		return true
	})
	require.Equal(t, insertTotal, count)
	require.Equal(t, uint64(0), tree.sentinelHops)
}

func TestRbtreeRandomInsertAndRemove_SequentialNumber(t *testing.T) {
	type testcase struct {
		name       string
		rbRmByPred bool
	}
	testcases := []testcase{
		{
			name: "rm by succ",
		},
		{
			name:       "rm by pred",
			rbRmByPred: true,
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			rbtreeRandomInsertAndRemoveSequentialNumberRunCore(tt, tc.rbRmByPred)
		})
	}
}

func TestRBTreeRandomInsert_SequentialNumber_Clear(t *testing.T) {
	insertTotal := uint64(100_000)
	tree := newRBTree[uint64, uint64]()

	rand := uint64(randv2.Uint32() % 1_000)
	for i := uint64(0); i < insertTotal; i++ {
		require.NoError(t, tree.Insert(i, 1))
		if i%1000 == rand {
			require.NoError(t, RedViolationValidate[uint64, uint64](tree))
			require.NoError(t, BlackViolationValidate[uint64, uint64](tree))
		}
	}
	tree.Foreach(func(idx int64, color RBColor, key uint64, val uint64) bool {
		require.Equal(t, uint64(idx), key)
		return true
	})
	h := Height[uint64, uint64](tree)
	require.LessOrEqual(t, float64(h), 2*math.Log2(float64(insertTotal+1)))

	tree.Clear()
	require.True(t, tree.IsEmpty())
	require.False(t, tree.Root().HasKeyVal())
	require.Equal(t, 0, Height[uint64, uint64](tree))

	// The tree is reusable after cleared.
	require.NoError(t, tree.Insert(7, 7))
	requireInorder(t, tree, []checkData{{Black, 7}})
}

func TestRbtreeRandomInsertAndRemove_ReverseSequentialNumber(t *testing.T) {
	total := int64(10000)
	insertTotal := int64(float64(total) * 0.8)
	removeTotal := int64(float64(total) * 0.2)

	tree := newRBTree[int64, uint64](WithRBTreeDesc[int64, uint64]())

	rand := int64(randv2.Uint32() % 1_000)
	for i := insertTotal - 1; i >= 0; i-- {
		require.NoError(t, tree.Insert(i, 1))
		if i%1000 == rand {
			require.NoError(t, RedViolationValidate[int64, uint64](tree))
			require.NoError(t, BlackViolationValidate[int64, uint64](tree))
		}
	}
	tree.Foreach(func(idx int64, color RBColor, key int64, val uint64) bool {
		require.Equal(t, insertTotal-1-idx, key)
		return true
	})

	for i := removeTotal + insertTotal - 1; i >= insertTotal; i-- {
		require.NoError(t, tree.Insert(i, 1))
	}
	tree.Foreach(func(idx int64, color RBColor, key int64, val uint64) bool {
		require.Equal(t, removeTotal+insertTotal-1-idx, key)
		return true
	})
	require.NoError(t, Validate[int64, uint64](tree))

	for i := insertTotal; i < removeTotal+insertTotal; i++ {
		removed, err := tree.Delete(i)
		require.NoError(t, err)
		require.True(t, removed)
	}
	tree.Foreach(func(idx int64, color RBColor, key int64, val uint64) bool {
		require.Equal(t, insertTotal-1-idx, key)
		return true
	})
	require.NoError(t, Validate[int64, uint64](tree))
	require.Equal(t, uint64(0), tree.sentinelHops)
}

func rbtreeRandomInsertAndRemove_RandomNumberRunCore(t *testing.T, total uint64, rbRmByPred bool, violationCheck bool) {
	insertTotal := uint64(float64(total) * 0.8)
	removeTotal := uint64(float64(total) * 0.2)

	// Unique numbers, then split into the kept part and the removed part.
	seen := make(map[uint64]struct{}, total)
	elements := make([]uint64, 0, total)
	for uint64(len(elements)) < insertTotal+removeTotal {
		num := randv2.Uint64()
		if _, ok := seen[num]; ok {
			continue
		}
		seen[num] = struct{}{}
		elements = append(elements, num)
	}
	insertElements := elements[:insertTotal]
	removeElements := elements[insertTotal:]

	opts := make([]RBTreeOpt[uint64, uint64], 0, 1)
	if rbRmByPred {
		opts = append(opts, WithRBTreeRemoveBorrowPred[uint64, uint64]())
	}
	tree := newRBTree[uint64, uint64](opts...)

	for i := uint64(0); i < insertTotal; i++ {
		require.NoError(t, tree.Insert(insertElements[i], i))
		if violationCheck {
			require.NoError(t, RedViolationValidate[uint64, uint64](tree))
			require.NoError(t, BlackViolationValidate[uint64, uint64](tree))
		}
	}
	for i := uint64(0); i < removeTotal; i++ {
		require.NoError(t, tree.Insert(removeElements[i], 1))
		if violationCheck {
			require.NoError(t, RedViolationValidate[uint64, uint64](tree))
			require.NoError(t, BlackViolationValidate[uint64, uint64](tree))
		}
	}
	require.NoError(t, Validate[uint64, uint64](tree))

	randv2.Shuffle(len(removeElements), func(i, j int) {
		removeElements[i], removeElements[j] = removeElements[j], removeElements[i]
	})
	for i := uint64(0); i < removeTotal; i++ {
		removed, err := tree.Delete(removeElements[i])
		require.NoError(t, err)
		require.Truef(t, removed, "key %d not removed", removeElements[i])
		if violationCheck {
			require.NoError(t, Validate[uint64, uint64](tree))
		}
	}

	sort.Slice(insertElements, func(i, j int) bool {
		return insertElements[i] < insertElements[j]
	})
	tree.Foreach(func(idx int64, color RBColor, key uint64, val uint64) bool {
		require.Equal(t, insertElements[idx], key)
		return true
	})
	require.NoError(t, Validate[uint64, uint64](tree))
	require.LessOrEqual(t, float64(Height[uint64, uint64](tree)), 2*math.Log2(float64(insertTotal+1)))
	require.Equal(t, uint64(0), tree.sentinelHops)
}

func TestRbtreeRandomInsertAndRemove_RandomNumber(t *testing.T) {
	type testcase struct {
		name           string
		rbRmByPred     bool
		total          uint64
		violationCheck bool
	}
	testcases := []testcase{
		{
			name:  "rm by succ 100000",
			total: 100000,
		},
		{
			name:       "rm by pred 100000",
			rbRmByPred: true,
			total:      100000,
		},
		{
			name:           "violation check rm by succ 2000",
			total:          2000,
			violationCheck: true,
		},
		{
			name:           "violation check rm by pred 2000",
			rbRmByPred:     true,
			total:          2000,
			violationCheck: true,
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			rbtreeRandomInsertAndRemove_RandomNumberRunCore(tt, tc.total, tc.rbRmByPred, tc.violationCheck)
		})
	}
}

func TestRBTree_ForeachEarlyStop(t *testing.T) {
	tree := NewRBTree[int, int]()
	for i := 0; i < 10; i++ {
		require.NoError(t, tree.Insert(i, i*i))
	}
	visited := make([]int, 0, 3)
	tree.Foreach(func(idx int64, color RBColor, key int, val int) bool {
		visited = append(visited, val)
		return idx < 2
	})
	require.Equal(t, []int{0, 1, 4}, visited)
}

func TestRBTree_StringKeysDesc(t *testing.T) {
	tree := NewRBTree[string, int](WithRBTreeDesc[string, int]())
	for i, key := range []string{"b", "d", "a", "c"} {
		require.NoError(t, tree.Insert(key, i))
	}
	require.Equal(t, int64(1), tree.Compare("a", "b"))

	keys := make([]string, 0, 4)
	tree.Foreach(func(idx int64, color RBColor, key string, val int) bool {
		keys = append(keys, key)
		return true
	})
	require.Equal(t, []string{"d", "c", "b", "a"}, keys)
	require.NoError(t, Validate[string, int](tree))
}

func TestValidate_DetectsViolations(t *testing.T) {
	tree := newRBTree[int, int]()
	for i := 0; i < 8; i++ {
		require.NoError(t, tree.Insert(i, i))
	}
	require.NoError(t, Validate[int, int](tree))

	tree.root.color = Red
	require.Error(t, RootViolationValidate[int, int](tree))
	tree.root.color = Black

	leaf := tree.root.maximum()
	require.Equal(t, 7, leaf.key)
	require.Equal(t, Red, leaf.color)
	leaf.color = Black
	require.Error(t, BlackViolationValidate[int, int](tree))
	leaf.color = Red

	leaf.key = -1
	require.Error(t, OrderViolationValidate[int, int](tree))
	err := Validate[int, int](tree)
	require.Error(t, err)
	leaf.key = 7

	tree.root.right.color = Red
	tree.root.right.right.color = Red
	require.Error(t, RedViolationValidate[int, int](tree))
	tree.root.right.right.color = Black
	require.NoError(t, Validate[int, int](tree))
}

func TestRBTree_Logger(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := xlog.NewXLogger(
		xlog.WithXLoggerWriter(zapcore.AddSync(buf)),
		xlog.WithXLoggerLevel(xlog.LogLevelDebug),
	)
	tree := NewRBTree[int, int](WithRBTreeLogger[int, int](logger))
	for i := 0; i < 16; i++ {
		require.NoError(t, tree.Insert(i, i))
	}
	tree.Clear()
	require.NoError(t, logger.Sync())
	require.Contains(t, buf.String(), "[rbtree] cleared")
	require.Contains(t, buf.String(), `"released":16`)
}

func BenchmarkRBTree_Random(b *testing.B) {
	testByBytes := []byte(`abc`)

	b.StopTimer()
	tree := NewRBTree[int, []byte]()

	rngArr := make([]int, 0, b.N)
	for i := 0; i < b.N; i++ {
		rngArr = append(rngArr, randv2.Int())
	}

	b.StartTimer()
	for i := 0; i < b.N; i++ {
		err := tree.Insert(rngArr[i], testByBytes)
		if err != nil {
			panic(err)
		}
	}
}

func BenchmarkRBTree_Serial(b *testing.B) {
	testByBytes := []byte(`abc`)

	b.StopTimer()
	tree := NewRBTree[int, []byte]()

	b.StartTimer()
	for i := 0; i < b.N; i++ {
		_ = tree.Insert(i, testByBytes)
	}
}
