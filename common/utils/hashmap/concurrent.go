package hashmap

import (
	cmap "github.com/orcaman/concurrent-map/v2"
)

// ConcurrentMap is a sharded map. Pending comm RPCs are tracked in one, keyed by msg_id.
type ConcurrentMap[V any] struct {
	backend cmap.ConcurrentMap[string, V]
}

func NewConcurrentMap[V any]() *ConcurrentMap[V] {
	return &ConcurrentMap[V]{
		backend: cmap.New[V](),
	}
}

func (m *ConcurrentMap[V]) Delete(key string) {
	m.backend.Remove(key)
}

func (m *ConcurrentMap[V]) Load(key string) (V, bool) {
	return m.backend.Get(key)
}

func (m *ConcurrentMap[V]) LoadAndDelete(key string) (V, bool) {
	return m.backend.Pop(key)
}

func (m *ConcurrentMap[V]) LoadOrStore(key string, value V) (V, bool) {
	if m.backend.SetIfAbsent(key, value) {
		return value, false
	}
	return m.backend.Get(key)
}

func (m *ConcurrentMap[V]) Range(cb func(string, V) bool) {
	for key, val := range m.backend.Items() {
		if !cb(key, val) {
			return
		}
	}
}

func (m *ConcurrentMap[V]) Store(key string, val V) {
	m.backend.Set(key, val)
}

func (m *ConcurrentMap[V]) Len() int {
	return m.backend.Count()
}

// Clear removes every entry and returns how many there were.
func (m *ConcurrentMap[V]) Clear() int {
	n := m.backend.Count()
	m.backend.Clear()
	return n
}
