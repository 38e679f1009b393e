package storage

import (
	"iter"
)

// Memory is the transient tier: a plain Go map.
type Memory[K comparable, V any] struct {
	name       string
	entries    map[K]V
	counter    uint64
	hasCounter bool
}

func NewMemory[K comparable, V any](name string) *Memory[K, V] {
	return &Memory[K, V]{
		name:    name,
		entries: make(map[K]V),
	}
}

func (m *Memory[K, V]) Name() string { return m.name }

func (m *Memory[K, V]) Get(key K) (V, bool, error) {
	v, ok := m.entries[key]
	return v, ok, nil
}

func (m *Memory[K, V]) Put(key K, value V) error {
	m.entries[key] = value
	return nil
}

func (m *Memory[K, V]) Contains(key K) (bool, error) {
	_, ok := m.entries[key]
	return ok, nil
}

func (m *Memory[K, V]) All() iter.Seq2[Entry[K, V], error] {
	return func(yield func(Entry[K, V], error) bool) {
		for k, v := range m.entries {
			if !yield(Entry[K, V]{Key: k, Value: v}, nil) {
				return
			}
		}
	}
}

func (m *Memory[K, V]) Len() int { return len(m.entries) }

func (m *Memory[K, V]) Counter() (uint64, bool, error) {
	return m.counter, m.hasCounter, nil
}

func (m *Memory[K, V]) SetCounter(v uint64) error {
	m.counter, m.hasCounter = v, true
	return nil
}

func (m *Memory[K, V]) ClearCounter() error {
	m.counter, m.hasCounter = 0, false
	return nil
}

func (m *Memory[K, V]) Sync() error { return nil }

func (m *Memory[K, V]) Close() error { return nil }

func (m *Memory[K, V]) Purge() error {
	m.entries = make(map[K]V)
	m.counter, m.hasCounter = 0, false
	return nil
}
