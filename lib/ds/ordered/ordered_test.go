package ordered

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapKeepsInsertionOrder(t *testing.T) {
	m := New[string, int]()
	m.Set("b", 1)
	m.Set("a", 2)
	m.Set("c", 3)
	m.Set("b", 4) // overwrite keeps position

	assert.Equal(t, []string{"b", "a", "c"}, m.Keys())
	assert.Equal(t, 4, m.Get("b", 0))
}

func TestMapGetDefault(t *testing.T) {
	var m Map[string, string]

	assert.Equal(t, "fallback", m.Get("missing", "fallback"))

	m.Set("key", "value")
	assert.Equal(t, "value", m.Get("key", "fallback"))
	assert.True(t, m.Has("key"))
}

func TestMapNilReceiver(t *testing.T) {
	var m *Map[string, int]

	assert.Equal(t, 0, m.Len())
	assert.Equal(t, 9, m.Get("x", 9))
	assert.Nil(t, m.Keys())
	m.Delete("x")
}

func TestMapDelete(t *testing.T) {
	m := New[string, int]()
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("c", 3)

	m.Delete("b")
	m.Delete("missing")

	assert.Equal(t, []string{"a", "c"}, m.Keys())
	assert.False(t, m.Has("b"))
}

func TestMapClone(t *testing.T) {
	m := New[string, int]()
	m.Set("a", 1)

	clone := m.Clone()
	clone.Set("b", 2)

	assert.Equal(t, 1, m.Len())
	assert.Equal(t, []string{"a", "b"}, clone.Keys())
}

func TestMapEachStops(t *testing.T) {
	m := New[int, int]()
	for i := 0; i < 5; i++ {
		m.Set(i, i*i)
	}

	visited := 0
	m.Each(func(k, v int) bool {
		visited++
		return k < 2
	})

	assert.Equal(t, 3, visited)
}
