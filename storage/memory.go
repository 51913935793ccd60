package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
)

type InMemory[T any] struct {
	mu     sync.RWMutex
	values map[string]T
}

func NewInMemory[T any]() *InMemory[T] {
	return &InMemory[T]{values: map[string]T{}}
}

func (s *InMemory[T]) Get(_ context.Context, key string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return v, ErrNotFound
	}
	return v, nil
}

func (s *InMemory[T]) Set(_ context.Context, key string, value T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *InMemory[T]) Remove(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.values[key]
	delete(s.values, key)
	return ok, nil
}

func (s *InMemory[T]) KeySet(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *InMemory[T]) Update(_ context.Context, key string, fn func(T, bool) (T, error)) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.values[key]
	next, err := fn(current, ok)
	if err != nil {
		return current, err
	}
	s.values[key] = next
	return next, nil
}
