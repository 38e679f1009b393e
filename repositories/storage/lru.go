package storage

import (
	"math"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// lru holds encoded values up to a byte capacity. It never evicts by
// itself: the owner pops victims with evict until it is within capacity.
type lru[K comparable] struct {
	capacity int64
	size     int64
	entries  *simplelru.LRU[K, []byte]
}

func newLRU[K comparable](capacity int64) *lru[K] {
	// bounded by bytes, not entry count
	entries, _ := simplelru.NewLRU[K, []byte](math.MaxInt, nil)
	return &lru[K]{capacity: capacity, entries: entries}
}

func (c *lru[K]) get(key K) ([]byte, bool) {
	return c.entries.Get(key)
}

func (c *lru[K]) contains(key K) bool {
	return c.entries.Contains(key)
}

func (c *lru[K]) set(key K, b []byte) {
	if old, ok := c.entries.Peek(key); ok {
		c.size -= int64(len(old))
	}
	c.entries.Add(key, b)
	c.size += int64(len(b))
}

func (c *lru[K]) overCapacity() bool {
	return c.size > c.capacity && c.entries.Len() > 0
}

// evict removes and returns the least recently used entry.
func (c *lru[K]) evict() (K, []byte, bool) {
	key, value, ok := c.entries.RemoveOldest()
	if ok {
		c.size -= int64(len(value))
	}
	return key, value, ok
}

func (c *lru[K]) len() int { return c.entries.Len() }

func (c *lru[K]) reset() {
	c.entries.Purge()
	c.size = 0
}

// each visits entries from most to least recently used.
func (c *lru[K]) each(fn func(key K, value []byte) bool) {
	keys := c.entries.Keys()
	for i := len(keys) - 1; i >= 0; i-- {
		value, _ := c.entries.Peek(keys[i])
		if !fn(keys[i], value) {
			return
		}
	}
}
