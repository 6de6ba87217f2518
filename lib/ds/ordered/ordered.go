// Package ordered provides a map that remembers insertion order.
package ordered

// Map keeps keys in the order they were first set.
// The zero value is ready to use.
type Map[K comparable, V any] struct {
	keys   []K
	values map[K]V
}

func New[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{values: make(map[K]V)}
}

func (m *Map[K, V]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Set overwrites the value of key, keeping its original position.
func (m *Map[K, V]) Set(key K, value V) {
	if m.values == nil {
		m.values = make(map[K]V)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

func (m *Map[K, V]) Lookup(key K) (V, bool) {
	if m == nil {
		var zero V
		return zero, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Get returns the value of key, or def when key is absent.
func (m *Map[K, V]) Get(key K, def V) V {
	if v, ok := m.Lookup(key); ok {
		return v
	}
	return def
}

func (m *Map[K, V]) Has(key K) bool {
	_, ok := m.Lookup(key)
	return ok
}

func (m *Map[K, V]) Delete(key K) {
	if m == nil {
		return
	}
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for idx, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:idx:idx], m.keys[idx+1:]...)
			break
		}
	}
}

// Keys returns a copy of the keys in insertion order.
func (m *Map[K, V]) Keys() []K {
	if m == nil {
		return nil
	}
	out := make([]K, len(m.keys))
	copy(out, m.keys)
	return out
}

// Each calls fn for every entry in insertion order until fn returns false.
func (m *Map[K, V]) Each(fn func(key K, value V) bool) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		if !fn(k, m.values[k]) {
			return
		}
	}
}

// Clone returns a shallow copy. Values are not deep-copied.
func (m *Map[K, V]) Clone() *Map[K, V] {
	out := &Map[K, V]{
		keys:   m.Keys(),
		values: make(map[K]V, m.Len()),
	}
	m.Each(func(k K, v V) bool {
		out.values[k] = v
		return true
	})
	return out
}
