// Package aggregation groups calls by variant across the whole ingestion
// corpus while assigning each distinct variant its identity.
package aggregation

import (
	"fmt"
	"iter"

	"ga4gh/loader/models"
	"ga4gh/loader/repositories/identity"
	"ga4gh/loader/repositories/storage"

	"github.com/sirupsen/logrus"
)

// AggregatedVariant is one entry of StreamAggregates.
type AggregatedVariant struct {
	Id      uint64
	Variant models.Variant
	Calls   []models.Call
}

// Store keeps, per distinct variant, its identity and the ordered list of
// calls observed for it. Calls are appended as-is: re-ingesting overlapping
// input appends the same calls again. Not safe for concurrent use.
type Store struct {
	storage storage.MapStorage[models.VariantKey, models.Aggregate]
	initial uint64
	limit   uint64
	next    uint64
	calls   uint64
}

func New(s storage.MapStorage[models.VariantKey, models.Aggregate], opts identity.Options[uint64]) (*Store, error) {
	limit := opts.Limit
	if limit == 0 {
		limit = ^uint64(0)
	}
	store := &Store{
		storage: s,
		initial: opts.Initial,
		limit:   limit,
	}
	if store.initial > store.limit {
		return nil, fmt.Errorf("%s: initial identity %d above limit %d: %w", s.Name(), store.initial, store.limit, identity.ErrCounterOutOfRange)
	}

	next, err := identity.RestoreCounter(s, store.initial, store.limit, func(a models.Aggregate) uint64 { return a.Id })
	if err != nil {
		return nil, err
	}
	store.next = next

	if s.Len() > 0 {
		for e, err := range s.All() {
			if err != nil {
				return nil, err
			}
			store.calls += uint64(len(e.Value.Calls))
		}
	}
	return store, nil
}

func (s *Store) Name() string { return s.storage.Name() }

// Add records calls against variant, allocating the variant's identity on
// first sight. It returns the variant's identity.
func (s *Store) Add(variant models.Variant, calls []models.Call) (uint64, error) {
	key := variant.Key()

	agg, ok, err := s.storage.Get(key)
	if err != nil {
		return 0, err
	}

	if !ok {
		if s.next >= s.limit {
			return 0, fmt.Errorf("%s: cannot allocate identity %d (limit %d): %w", s.Name(), s.next, s.limit, identity.ErrIdentityExhausted)
		}
		agg = models.Aggregate{
			Id:    s.next,
			Calls: append([]models.Call(nil), calls...),
		}
		if err := s.storage.Put(key, agg); err != nil {
			return 0, err
		}
		s.next++
		s.calls += uint64(len(calls))
		return agg.Id, nil
	}

	if len(calls) == 0 {
		return agg.Id, nil
	}
	agg.Calls = append(agg.Calls, calls...)
	if err := s.storage.Put(key, agg); err != nil {
		return 0, err
	}
	s.calls += uint64(len(calls))
	return agg.Id, nil
}

func (s *Store) Contains(variant models.Variant) (bool, error) {
	return s.storage.Contains(variant.Key())
}

func (s *Store) GetIdentity(variant models.Variant) (uint64, error) {
	agg, ok, err := s.storage.Get(variant.Key())
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%s: %+v: %w", s.Name(), variant, identity.ErrUnknownKey)
	}
	return agg.Id, nil
}

// Calls returns the calls aggregated so far for variant.
func (s *Store) Calls(variant models.Variant) ([]models.Call, error) {
	agg, ok, err := s.storage.Get(variant.Key())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s: %+v: %w", s.Name(), variant, identity.ErrUnknownKey)
	}
	return agg.Calls, nil
}

// StreamAggregates lazily yields one entry per distinct variant. Each call
// performs a fresh full scan; a stream cannot be resumed part way.
func (s *Store) StreamAggregates() iter.Seq2[AggregatedVariant, error] {
	return func(yield func(AggregatedVariant, error) bool) {
		for e, err := range s.storage.All() {
			if err != nil {
				yield(AggregatedVariant{}, err)
				return
			}
			if !yield(AggregatedVariant{Id: e.Value.Id, Variant: e.Key.Variant(), Calls: e.Value.Calls}, nil) {
				return
			}
		}
	}
}

func (s *Store) Len() int { return s.storage.Len() }

// CallCount is the total number of calls held across all variants.
func (s *Store) CallCount() uint64 { return s.calls }

func (s *Store) Next() uint64 { return s.next }

func (s *Store) Checkpoint() error {
	if err := s.storage.Sync(); err != nil {
		return err
	}
	return s.storage.SetCounter(s.next)
}

func (s *Store) Close() {
	if err := s.Checkpoint(); err != nil {
		logrus.WithField("store", s.Name()).WithError(err).Error("checkpointing variant counter failed")
	}
	storage.CloseQuietly(s.storage)
}

func (s *Store) Purge() {
	storage.PurgeQuietly(s.storage)
	s.next = s.initial
	s.calls = 0
}
