package kv

import (
	"github.com/benz9527/xrbtree/lib/infra"
)

type MapEntry[K infra.OrderedKey, V any] interface {
	Key() K
	Val() V
}

type mapEntry[K infra.OrderedKey, V any] struct {
	key K
	val V
}

func (e *mapEntry[K, V]) Key() K {
	return e.key
}

func (e *mapEntry[K, V]) Val() V {
	return e.val
}

func newMapEntry[K infra.OrderedKey, V any](key K, val V) MapEntry[K, V] {
	return &mapEntry[K, V]{key: key, val: val}
}

// SortedMap keeps the entries in the order of the backing rbtree.
// Not found is reported by the bool results or the nil entry, errors
// are only returned for the invalid keys and values.
type SortedMap[K infra.OrderedKey, V any] interface {
	Len() int64
	Clear()

	Put(key K, val V) error
	PutAll(items map[K]V) error
	Get(key K) (V, bool, error)
	Remove(key K) (bool, error)
	ContainsKey(key K) (bool, error)
	ContainsValue(val V) (bool, error)

	FirstKey() (K, bool)
	FirstEntry() MapEntry[K, V]
	LastKey() (K, bool)
	LastEntry() MapEntry[K, V]
	FloorKey(key K) (K, bool, error)
	FloorEntry(key K) (MapEntry[K, V], error)
	CeilingKey(key K) (K, bool, error)
	CeilingEntry(key K) (MapEntry[K, V], error)
	PollFirstEntry() MapEntry[K, V]
	PollLastEntry() MapEntry[K, V]

	// HeadMap returns the entries before toKey, exclusive by default.
	HeadMap(toKey K, inclusive ...bool) ([]MapEntry[K, V], error)
	Keys() []K
	Values() []V
	Entries() []MapEntry[K, V]
	Foreach(action func(idx int64, key K, val V) bool)
}
