// Package identity assigns stable, dense numeric identities to deduplicated
// keys. Identities are allocated in insertion order from a configurable
// initial value and are never reused within a run.
package identity

import (
	"errors"
	"fmt"

	"ga4gh/loader/repositories/storage"

	"github.com/sirupsen/logrus"
)

var (
	ErrIdentityExhausted = errors.New("identity range exhausted")
	ErrUnknownKey        = errors.New("unknown key")
	ErrCounterOutOfRange = errors.New("persisted identity counter out of range")
)

// ID is the numeric width of an identity.
type ID interface {
	~uint32 | ~uint64
}

// Options bound the identity range to [Initial, Limit). A zero Limit sets
// the bound to the maximum value of the identity type, so that value itself
// is never allocated.
type Options[I ID] struct {
	Initial I
	Limit   uint64
}

func (o Options[I]) limit() uint64 {
	if o.Limit == 0 {
		return uint64(^I(0))
	}
	return o.Limit
}

// Store is a deduplicating identity allocator over one MapStorage. It is
// not safe for concurrent use.
type Store[K comparable, I ID] struct {
	storage storage.MapStorage[K, I]
	initial uint64
	limit   uint64
	next    uint64
}

// New wraps s, resuming the allocation counter from whatever s holds.
func New[K comparable, I ID](s storage.MapStorage[K, I], opts Options[I]) (*Store[K, I], error) {
	store := &Store[K, I]{
		storage: s,
		initial: uint64(opts.Initial),
		limit:   opts.limit(),
	}
	if store.initial > store.limit {
		return nil, fmt.Errorf("%s: initial identity %d above limit %d: %w", s.Name(), store.initial, store.limit, ErrCounterOutOfRange)
	}

	next, err := RestoreCounter(s, store.initial, store.limit, func(v I) uint64 { return uint64(v) })
	if err != nil {
		return nil, err
	}
	store.next = next
	return store, nil
}

// RestoreCounter recovers the next identity to allocate for s.
//
// A counter recorded by a checkpoint or a clean shutdown is validated and
// then cleared, so a crash before the next checkpoint is detected on the
// following open. Identities are dense, so a counter covering fewer
// entries than s holds was recorded before a crash; it is re-derived as the
// largest stored identity plus one, as is a missing counter on a non-empty
// storage.
func RestoreCounter[K comparable, V any](s storage.MapStorage[K, V], initial, limit uint64, identityOf func(V) uint64) (uint64, error) {
	log := logrus.WithField("store", s.Name())

	counter, ok, err := s.Counter()
	if err != nil {
		return 0, err
	}
	if ok {
		if counter < initial || counter > limit {
			return 0, fmt.Errorf("%s: counter %d outside [%d, %d]: %w",
				s.Name(), counter, initial, limit, ErrCounterOutOfRange)
		}
		if err := s.ClearCounter(); err != nil {
			return 0, err
		}
		if counter-initial >= uint64(s.Len()) {
			log.WithField("next", counter).Debug("resumed identity counter")
			return counter, nil
		}
		log.WithFields(logrus.Fields{"counter": counter, "entries": s.Len()}).
			Warn("identity counter is stale (crash after checkpoint?), re-deriving")
	}

	if s.Len() == 0 {
		return initial, nil
	}

	next := max(initial, counter)
	for e, err := range s.All() {
		if err != nil {
			return 0, err
		}
		if id := identityOf(e.Value); id >= next {
			next = id + 1
		}
	}
	if next > limit {
		return 0, fmt.Errorf("%s: re-derived counter %d above limit %d: %w", s.Name(), next, limit, ErrCounterOutOfRange)
	}
	if !ok {
		log.WithFields(logrus.Fields{"next": next, "entries": s.Len()}).
			Warn("no identity counter recorded (unclean shutdown?), re-derived from stored identities")
	}
	return next, nil
}

func (s *Store[K, I]) Name() string { return s.storage.Name() }

// Add returns the identity of key, allocating the next one if key is new.
func (s *Store[K, I]) Add(key K) (I, error) {
	id, ok, err := s.storage.Get(key)
	if err != nil {
		return 0, err
	}
	if ok {
		return id, nil
	}

	if s.next >= s.limit {
		return 0, fmt.Errorf("%s: cannot allocate identity %d (limit %d): %w", s.Name(), s.next, s.limit, ErrIdentityExhausted)
	}
	id = I(s.next)
	if err := s.storage.Put(key, id); err != nil {
		return 0, err
	}
	s.next++
	return id, nil
}

func (s *Store[K, I]) Contains(key K) (bool, error) {
	return s.storage.Contains(key)
}

// GetIdentity returns the identity of a key previously passed to Add.
func (s *Store[K, I]) GetIdentity(key K) (I, error) {
	id, ok, err := s.storage.Get(key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%s: %+v: %w", s.Name(), key, ErrUnknownKey)
	}
	return id, nil
}

// ReverseIdentities maps every allocated identity back to its key.
func (s *Store[K, I]) ReverseIdentities() (map[I]K, error) {
	out := make(map[I]K, s.storage.Len())
	for e, err := range s.storage.All() {
		if err != nil {
			return nil, err
		}
		out[e.Value] = e.Key
	}
	return out, nil
}

func (s *Store[K, I]) Len() int { return s.storage.Len() }

// Next is the identity the next new key will receive.
func (s *Store[K, I]) Next() I { return I(s.next) }

// Checkpoint makes the allocated entries durable, then records the
// allocation counter in the storage.
func (s *Store[K, I]) Checkpoint() error {
	if err := s.storage.Sync(); err != nil {
		return err
	}
	return s.storage.SetCounter(s.next)
}

// Close checkpoints and closes the storage. Failures are logged, not
// returned; Close is safe to call at any point, including mid-ingestion.
func (s *Store[K, I]) Close() {
	if err := s.Checkpoint(); err != nil {
		logrus.WithField("store", s.Name()).WithError(err).Error("checkpointing identity counter failed")
	}
	storage.CloseQuietly(s.storage)
}

// Purge empties the storage and resets the counter to its initial value.
// Only valid when starting a fresh run.
func (s *Store[K, I]) Purge() {
	storage.PurgeQuietly(s.storage)
	s.next = s.initial
}
