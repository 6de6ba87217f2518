package stack

import (
	"github.com/pkg/errors"
)

var ErrStackEmpty = errors.New("stack is empty")

// Stack is a LIFO container. The zero value is ready to use.
type Stack[T any] struct{ items []T }

func New[T any](cap uint) *Stack[T] {
	return &Stack[T]{items: make([]T, 0, cap)}
}

func (s *Stack[T]) Len() uint { return uint(len(s.items)) }

// Data returns a copy of the items, bottom first.
func (s *Stack[T]) Data() []T {
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Stack[T]) Push(items ...T) {
	s.items = append(s.items, items...)
}

func (s *Stack[T]) Pop() (T, error) {
	var zero T
	if len(s.items) == 0 {
		return zero, ErrStackEmpty
	}

	last := len(s.items) - 1
	item := s.items[last]
	s.items[last] = zero
	s.items = s.items[:last]

	return item, nil
}

func (s *Stack[T]) Peek() (T, error) {
	if len(s.items) == 0 {
		var zero T
		return zero, ErrStackEmpty
	}

	return s.items[len(s.items)-1], nil
}
