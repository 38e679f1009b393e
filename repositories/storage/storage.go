// Package storage provides the key/value tiers the identity and aggregation
// stores are built on. All tiers implement MapStorage and are picked at
// construction time by New; callers never branch on the tier.
//
// None of the tiers lock. A storage instance must be driven by a single
// writer, and a persistent file must not be opened twice at once (a second
// open fails with ErrLocked).
package storage

import (
	"errors"
	"fmt"
	"iter"
	"path/filepath"

	"ga4gh/loader/codec"
	"ga4gh/loader/models/constants"
	st "ga4gh/loader/models/constants/storage-type"

	"github.com/sirupsen/logrus"
)

// FileExtension is appended to Options.Name to form the backing file name.
const FileExtension = ".kv"

// ErrStorage is matched (via errors.Is) by every *Error.
var ErrStorage = errors.New("storage failure")

// ErrLocked is returned when opening a persistent file that is already open.
var ErrLocked = errors.New("store is locked")

// Error describes a failed operation on a live store.
type Error struct {
	Store string
	Op    string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("storage %s: %s: %v", e.Store, e.Op, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}

// Entry is one key/value pair yielded by MapStorage.All.
type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

// MapStorage is the contract shared by the memory, persistent and hybrid
// tiers.
type MapStorage[K comparable, V any] interface {
	Name() string

	Get(key K) (V, bool, error)
	Put(key K, value V) error
	Contains(key K) (bool, error)

	// All yields every entry exactly once. Mutating the storage while
	// iterating is not supported.
	All() iter.Seq2[Entry[K, V], error]
	Len() int

	// Counter reads the side record holding the next identity to allocate.
	Counter() (uint64, bool, error)
	SetCounter(v uint64) error
	ClearCounter() error

	// Sync makes every entry put so far durable, so that a counter set
	// afterwards never runs ahead of the entries a crash would keep.
	Sync() error

	Close() error
	Purge() error
}

type Options struct {
	Type constants.StorageType
	// Dir and Name locate the backing file of persistent and hybrid tiers
	Dir      string
	Name     string
	ForceNew bool
	// HybridCapacityBytes bounds the encoded size held by the hybrid primary
	HybridCapacityBytes int64
}

func (o Options) Path() string {
	return filepath.Join(o.Dir, o.Name+FileExtension)
}

// New builds the storage tier selected by opts.Type.
func New[K comparable, V any](opts Options, keyCodec codec.Codec[K], valueCodec codec.Codec[V]) (MapStorage[K, V], error) {
	switch opts.Type {
	case st.Memory:
		return NewMemory[K, V](opts.Name), nil
	case st.Persistent:
		p, err := NewPersistent(opts, keyCodec, valueCodec)
		if err != nil {
			return nil, err
		}
		return p, nil
	case st.Hybrid:
		h, err := NewHybrid(opts, keyCodec, valueCodec)
		if err != nil {
			return nil, err
		}
		return h, nil
	default:
		return nil, fmt.Errorf("unknown storage type %q for %s", opts.Type, opts.Name)
	}
}

// Closer is the subset of MapStorage used by the quiet helpers.
type Closer interface {
	Name() string
	Close() error
	Purge() error
}

// CloseQuietly closes s, logging rather than returning any failure. Used on
// shutdown paths where the caller cannot act on the error.
func CloseQuietly(s Closer) {
	if s == nil {
		return
	}
	if err := s.Close(); err != nil {
		logrus.WithField("store", s.Name()).WithError(err).Error("closing storage failed")
	}
}

// PurgeQuietly purges s, logging rather than returning any failure.
func PurgeQuietly(s Closer) {
	if s == nil {
		return
	}
	if err := s.Purge(); err != nil {
		logrus.WithField("store", s.Name()).WithError(err).Error("purging storage failed")
	}
}
