package storage

import (
	"errors"
	"iter"

	"ga4gh/loader/codec"

	"github.com/sirupsen/logrus"
)

// DefaultHybridCapacityBytes is used when Options.HybridCapacityBytes is unset.
const DefaultHybridCapacityBytes int64 = 256 << 20

// Hybrid keeps recently used entries encoded in a bounded in-memory primary
// and spills the least recently used ones into an owned Persistent tier.
// Every key lives in exactly one tier: entries already spilled are updated
// in place in the backing store.
type Hybrid[K comparable, V any] struct {
	name    string
	values  codec.Codec[V]
	primary *lru[K]
	backing *Persistent[K, V]

	spilled int64
}

func NewHybrid[K comparable, V any](opts Options, keys codec.Codec[K], values codec.Codec[V]) (*Hybrid[K, V], error) {
	capacity := opts.HybridCapacityBytes
	if capacity <= 0 {
		capacity = DefaultHybridCapacityBytes
	}
	backing, err := NewPersistent(opts, keys, values)
	if err != nil {
		return nil, err
	}
	return &Hybrid[K, V]{
		name:    opts.Name,
		values:  values,
		primary: newLRU[K](capacity),
		backing: backing,
	}, nil
}

func (h *Hybrid[K, V]) Name() string { return h.name }

func (h *Hybrid[K, V]) wrap(op string, err error) error {
	return &Error{Store: h.name, Op: op, Err: err}
}

func (h *Hybrid[K, V]) Get(key K) (V, bool, error) {
	if raw, ok := h.primary.get(key); ok {
		v, err := h.values.Decode(raw)
		if err != nil {
			var zero V
			return zero, false, h.wrap("get", err)
		}
		return v, true, nil
	}
	return h.backing.Get(key)
}

func (h *Hybrid[K, V]) Put(key K, value V) error {
	if !h.primary.contains(key) {
		spilled, err := h.backing.Contains(key)
		if err != nil {
			return err
		}
		if spilled {
			return h.backing.Put(key, value)
		}
	}

	raw, err := h.values.Encode(value)
	if err != nil {
		return h.wrap("put", err)
	}
	h.primary.set(key, raw)
	return h.spill()
}

// spill moves least recently used entries to the backing store until the
// primary is back within capacity.
func (h *Hybrid[K, V]) spill() error {
	for h.primary.overCapacity() {
		if err := h.moveOldest("spill"); err != nil {
			return err
		}
		h.spilled++
	}
	return nil
}

// moveOldest writes the least recently used primary entry to the backing
// store. On failure the entry stays in the primary.
func (h *Hybrid[K, V]) moveOldest(op string) error {
	key, raw, _ := h.primary.evict()
	value, err := h.values.Decode(raw)
	if err != nil {
		h.primary.set(key, raw)
		return h.wrap(op, err)
	}
	if err := h.backing.Put(key, value); err != nil {
		h.primary.set(key, raw)
		return err
	}
	return nil
}

// flush moves the whole primary into the backing store.
func (h *Hybrid[K, V]) flush() error {
	for h.primary.len() > 0 {
		if err := h.moveOldest("flush"); err != nil {
			return err
		}
	}
	return nil
}

func (h *Hybrid[K, V]) Contains(key K) (bool, error) {
	if h.primary.contains(key) {
		return true, nil
	}
	return h.backing.Contains(key)
}

func (h *Hybrid[K, V]) All() iter.Seq2[Entry[K, V], error] {
	return func(yield func(Entry[K, V], error) bool) {
		stopped := false
		h.primary.each(func(key K, raw []byte) bool {
			value, err := h.values.Decode(raw)
			if err != nil {
				yield(Entry[K, V]{}, h.wrap("iterate", err))
				stopped = true
				return false
			}
			if !yield(Entry[K, V]{Key: key, Value: value}, nil) {
				stopped = true
				return false
			}
			return true
		})
		if stopped {
			return
		}
		for entry, err := range h.backing.All() {
			if !yield(entry, err) || err != nil {
				return
			}
		}
	}
}

func (h *Hybrid[K, V]) Len() int {
	return h.primary.len() + h.backing.Len()
}

// Spilled reports how many entries have overflowed into the backing store.
func (h *Hybrid[K, V]) Spilled() int64 { return h.spilled }

func (h *Hybrid[K, V]) Counter() (uint64, bool, error) { return h.backing.Counter() }

func (h *Hybrid[K, V]) SetCounter(v uint64) error { return h.backing.SetCounter(v) }

func (h *Hybrid[K, V]) ClearCounter() error { return h.backing.ClearCounter() }

// Sync flushes the primary into the backing store, leaving the primary
// empty.
func (h *Hybrid[K, V]) Sync() error {
	if h.backing.db == nil {
		return h.wrap("sync", errClosed)
	}
	return h.flush()
}

// Close flushes the primary into the backing store and closes it. The
// backing store is closed even when the flush fails.
func (h *Hybrid[K, V]) Close() error {
	var flushErr error
	if h.backing.db != nil {
		flushErr = h.flush()
	}
	if flushErr != nil {
		logrus.WithField("store", h.name).WithError(flushErr).Warn("hybrid primary flush failed, closing backing store anyway")
	}
	h.primary.reset()
	return errors.Join(flushErr, h.backing.Close())
}

func (h *Hybrid[K, V]) Purge() error {
	h.primary.reset()
	h.spilled = 0
	return h.backing.Purge()
}
