package kv

import (
	"sync"

	"github.com/benz9527/xrbtree/lib/infra"
)

var _ SortedMap[int, int] = (*threadSafeTreeMap[int, int])(nil)

type threadSafeTreeMap[K infra.OrderedKey, V any] struct {
	lock sync.RWMutex
	m    SortedMap[K, V]
}

func (t *threadSafeTreeMap[K, V]) Len() int64 {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.m.Len()
}

func (t *threadSafeTreeMap[K, V]) Clear() {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.m.Clear()
}

func (t *threadSafeTreeMap[K, V]) Put(key K, val V) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.m.Put(key, val)
}

func (t *threadSafeTreeMap[K, V]) PutAll(items map[K]V) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.m.PutAll(items)
}

func (t *threadSafeTreeMap[K, V]) Get(key K) (V, bool, error) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.m.Get(key)
}

func (t *threadSafeTreeMap[K, V]) Remove(key K) (bool, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.m.Remove(key)
}

func (t *threadSafeTreeMap[K, V]) ContainsKey(key K) (bool, error) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.m.ContainsKey(key)
}

func (t *threadSafeTreeMap[K, V]) ContainsValue(val V) (bool, error) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.m.ContainsValue(val)
}

func (t *threadSafeTreeMap[K, V]) FirstKey() (K, bool) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.m.FirstKey()
}

func (t *threadSafeTreeMap[K, V]) FirstEntry() MapEntry[K, V] {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.m.FirstEntry()
}

func (t *threadSafeTreeMap[K, V]) LastKey() (K, bool) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.m.LastKey()
}

func (t *threadSafeTreeMap[K, V]) LastEntry() MapEntry[K, V] {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.m.LastEntry()
}

func (t *threadSafeTreeMap[K, V]) FloorKey(key K) (K, bool, error) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.m.FloorKey(key)
}

func (t *threadSafeTreeMap[K, V]) FloorEntry(key K) (MapEntry[K, V], error) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.m.FloorEntry(key)
}

func (t *threadSafeTreeMap[K, V]) CeilingKey(key K) (K, bool, error) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.m.CeilingKey(key)
}

func (t *threadSafeTreeMap[K, V]) CeilingEntry(key K) (MapEntry[K, V], error) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.m.CeilingEntry(key)
}

func (t *threadSafeTreeMap[K, V]) PollFirstEntry() MapEntry[K, V] {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.m.PollFirstEntry()
}

func (t *threadSafeTreeMap[K, V]) PollLastEntry() MapEntry[K, V] {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.m.PollLastEntry()
}

func (t *threadSafeTreeMap[K, V]) HeadMap(toKey K, inclusive ...bool) ([]MapEntry[K, V], error) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.m.HeadMap(toKey, inclusive...)
}

func (t *threadSafeTreeMap[K, V]) Keys() []K {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.m.Keys()
}

func (t *threadSafeTreeMap[K, V]) Values() []V {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.m.Values()
}

func (t *threadSafeTreeMap[K, V]) Entries() []MapEntry[K, V] {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.m.Entries()
}

// Foreach holds the read lock, the action must not call back the map
// mutations.
func (t *threadSafeTreeMap[K, V]) Foreach(action func(idx int64, key K, val V) bool) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	t.m.Foreach(action)
}

func NewThreadSafeTreeMap[K infra.OrderedKey, V any](opts ...TreeMapOpt[K, V]) SortedMap[K, V] {
	return &threadSafeTreeMap[K, V]{
		m: NewTreeMap[K, V](opts...),
	}
}
