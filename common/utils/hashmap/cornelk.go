package hashmap

import (
	"github.com/zhangjyr/hashmap"
)

// CornelkMap is a lock-free map. The kernel keeps its channel sockets in one, keyed by channel name.
type CornelkMap[V any] struct {
	hashmap *hashmap.HashMap
}

func NewCornelkMap[V any](size int) *CornelkMap[V] {
	return &CornelkMap[V]{
		hashmap: hashmap.New(uintptr(size)),
	}
}

func (m *CornelkMap[V]) Delete(key string) {
	m.hashmap.Del(key)
}

func (m *CornelkMap[V]) Load(key string) (ret V, ok bool) {
	v, ok := m.hashmap.GetStringKey(key)
	if !ok || v == nil {
		return ret, false
	}
	ret, ok = v.(V)
	return ret, ok
}

func (m *CornelkMap[V]) LoadAndDelete(key string) (ret V, exists bool) {
	ret, exists = m.Load(key)
	if exists {
		m.hashmap.Del(key)
	}
	return ret, exists
}

func (m *CornelkMap[V]) LoadOrStore(key string, value V) (ret V, loaded bool) {
	actual, loaded := m.hashmap.GetOrInsert(key, value)
	if actual != nil {
		ret, _ = actual.(V)
	}
	return ret, loaded
}

// Range visits a snapshot of the entries so the callback may modify the map.
func (m *CornelkMap[V]) Range(cb func(string, V) bool) {
	kvs := make([]hashmap.KeyValue, 0, m.hashmap.Len())
	for kv := range m.hashmap.Iter() {
		kvs = append(kvs, kv)
	}

	for _, kv := range kvs {
		val, ok := kv.Value.(V)
		if !ok {
			continue
		}
		if !cb(kv.Key.(string), val) {
			return
		}
	}
}

func (m *CornelkMap[V]) Store(key string, val V) {
	m.hashmap.Set(key, val)
}

func (m *CornelkMap[V]) Len() int {
	return m.hashmap.Len()
}
