package storage

import (
	"crypto/sha1"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"

	"ga4gh/loader/codec"

	"github.com/sirupsen/logrus"
	"modernc.org/kv"
)

// key layout inside the kv file; entries sort before metadata
const (
	entryPrefix byte = 'e'
	metaPrefix  byte = 'm'
)

var (
	metaCounter = []byte{metaPrefix, 'c', 'o', 'u', 'n', 't', 'e', 'r'}
	metaLength  = []byte{metaPrefix, 'l', 'e', 'n'}
)

// lockSuffix names the flock file next to the kv file.
const lockSuffix = ".lock"

var errClosed = errors.New("store is closed")

// kvSidecar is the hidden file kv keeps next to path: the write-ahead log
// for suffix "" and its default lock file for suffix "lockfile".
func kvSidecar(path, suffix string) string {
	h := sha1.New()
	io.WriteString(h, filepath.Base(filepath.Clean(path))+suffix)
	return filepath.Join(filepath.Dir(path), fmt.Sprintf(".%x", h.Sum(nil)))
}

// removeFiles deletes the kv file together with the WAL and lock file a
// killed run leaves behind.
func removeFiles(path string) error {
	var errs []error
	for _, name := range []string{path, kvSidecar(path, ""), kvSidecar(path, "lockfile")} {
		if err := os.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Persistent is the durable tier, a modernc.org/kv file with keys and values
// encoded by the supplied codecs.
type Persistent[K comparable, V any] struct {
	name   string
	path   string
	keys   codec.Codec[K]
	values codec.Codec[V]

	db     *kv.DB
	length int
}

// NewPersistent opens the store at opts.Path(), resuming an existing file
// unless opts.ForceNew is set, in which case any existing file is removed
// along with its WAL.
func NewPersistent[K comparable, V any](opts Options, keys codec.Codec[K], values codec.Codec[V]) (*Persistent[K, V], error) {
	p := &Persistent[K, V]{
		name:   opts.Name,
		path:   opts.Path(),
		keys:   keys,
		values: values,
	}
	if err := p.open(opts.ForceNew); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Persistent[K, V]) Name() string { return p.name }

func (p *Persistent[K, V]) Path() string { return p.path }

func (p *Persistent[K, V]) wrap(op string, err error) error {
	return &Error{Store: p.name, Op: op, Err: err}
}

func (p *Persistent[K, V]) open(forceNew bool) error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return p.wrap("open", err)
	}

	if forceNew {
		if err := removeFiles(p.path); err != nil {
			return p.wrap("open", err)
		}
	}

	var (
		db  *kv.DB
		err error
	)
	if _, statErr := os.Stat(p.path); statErr == nil {
		logrus.WithFields(logrus.Fields{"store": p.name, "path": p.path}).Info("resuming persistent store")
		db, err = kv.Open(p.path, &kv.Options{Locker: locker})
	} else {
		db, err = kv.Create(p.path, &kv.Options{Locker: locker})
	}
	if err != nil {
		return p.wrap("open", err)
	}
	p.db = db

	return p.restoreLength()
}

// restoreLength reads the entry count written by the last clean Close and
// drops it, so that a crash before the next Close forces a recount.
func (p *Persistent[K, V]) restoreLength() error {
	raw, err := p.db.Get(nil, metaLength)
	if err != nil {
		return p.wrap("open", err)
	}
	if raw != nil {
		n, err := codec.Uint64{}.Decode(raw)
		if err != nil {
			return p.wrap("open", err)
		}
		p.length = int(n)
		if err := p.db.Delete(metaLength); err != nil {
			return p.wrap("open", err)
		}
		return nil
	}

	p.length = 0
	for _, err := range p.All() {
		if err != nil {
			return err
		}
		p.length++
	}
	return nil
}

func (p *Persistent[K, V]) entryKey(op string, key K) ([]byte, error) {
	if p.db == nil {
		return nil, p.wrap(op, errClosed)
	}
	raw, err := p.keys.Encode(key)
	if err != nil {
		return nil, p.wrap(op, err)
	}
	return append([]byte{entryPrefix}, raw...), nil
}

func (p *Persistent[K, V]) Get(key K) (V, bool, error) {
	var zero V
	k, err := p.entryKey("get", key)
	if err != nil {
		return zero, false, err
	}
	raw, err := p.db.Get(nil, k)
	if err != nil {
		return zero, false, p.wrap("get", err)
	}
	if raw == nil {
		return zero, false, nil
	}
	v, err := p.values.Decode(raw)
	if err != nil {
		return zero, false, p.wrap("get", err)
	}
	return v, true, nil
}

func (p *Persistent[K, V]) Put(key K, value V) error {
	k, err := p.entryKey("put", key)
	if err != nil {
		return err
	}
	raw, err := p.values.Encode(value)
	if err != nil {
		return p.wrap("put", err)
	}
	existing, err := p.db.Get(nil, k)
	if err != nil {
		return p.wrap("put", err)
	}
	if err := p.db.Set(k, raw); err != nil {
		return p.wrap("put", err)
	}
	if existing == nil {
		p.length++
	}
	return nil
}

func (p *Persistent[K, V]) Contains(key K) (bool, error) {
	k, err := p.entryKey("contains", key)
	if err != nil {
		return false, err
	}
	raw, err := p.db.Get(nil, k)
	if err != nil {
		return false, p.wrap("contains", err)
	}
	return raw != nil, nil
}

func (p *Persistent[K, V]) All() iter.Seq2[Entry[K, V], error] {
	return func(yield func(Entry[K, V], error) bool) {
		if p.db == nil {
			yield(Entry[K, V]{}, p.wrap("iterate", errClosed))
			return
		}
		en, err := p.db.SeekFirst()
		if err == io.EOF {
			return
		}
		if err != nil {
			yield(Entry[K, V]{}, p.wrap("iterate", err))
			return
		}
		for {
			k, v, err := en.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(Entry[K, V]{}, p.wrap("iterate", err))
				return
			}
			if len(k) == 0 || k[0] != entryPrefix {
				if len(k) > 0 && k[0] > entryPrefix {
					return
				}
				continue
			}

			key, err := p.keys.Decode(k[1:])
			if err != nil {
				yield(Entry[K, V]{}, p.wrap("iterate", err))
				return
			}
			value, err := p.values.Decode(v)
			if err != nil {
				yield(Entry[K, V]{}, p.wrap("iterate", err))
				return
			}
			if !yield(Entry[K, V]{Key: key, Value: value}, nil) {
				return
			}
		}
	}
}

func (p *Persistent[K, V]) Len() int { return p.length }

func (p *Persistent[K, V]) Counter() (uint64, bool, error) {
	if p.db == nil {
		return 0, false, p.wrap("counter", errClosed)
	}
	raw, err := p.db.Get(nil, metaCounter)
	if err != nil {
		return 0, false, p.wrap("counter", err)
	}
	if raw == nil {
		return 0, false, nil
	}
	v, err := codec.Uint64{}.Decode(raw)
	if err != nil {
		return 0, false, p.wrap("counter", err)
	}
	return v, true, nil
}

func (p *Persistent[K, V]) SetCounter(v uint64) error {
	if p.db == nil {
		return p.wrap("counter", errClosed)
	}
	raw, _ := codec.Uint64{}.Encode(v)
	if err := p.db.Set(metaCounter, raw); err != nil {
		return p.wrap("counter", err)
	}
	return nil
}

func (p *Persistent[K, V]) ClearCounter() error {
	if p.db == nil {
		return p.wrap("counter", errClosed)
	}
	if err := p.db.Delete(metaCounter); err != nil {
		return p.wrap("counter", err)
	}
	return nil
}

// Sync has nothing to flush: kv commits Sets in order through one WAL, so
// a later counter is never durable before the entries put ahead of it.
func (p *Persistent[K, V]) Sync() error {
	if p.db == nil {
		return p.wrap("sync", errClosed)
	}
	return nil
}

// Close records the entry count and releases the file. Closing twice is a
// no-op.
func (p *Persistent[K, V]) Close() error {
	if p.db == nil {
		return nil
	}
	raw, _ := codec.Uint64{}.Encode(uint64(p.length))
	setErr := p.db.Set(metaLength, raw)
	closeErr := p.db.Close()
	p.db = nil
	if err := errors.Join(setErr, closeErr); err != nil {
		return p.wrap("close", err)
	}
	return nil
}

// Purge closes the store, deletes the backing files and starts over empty.
func (p *Persistent[K, V]) Purge() error {
	closeErr := p.Close()
	var removeErr error
	if err := removeFiles(p.path); err != nil {
		removeErr = p.wrap("purge", err)
	}
	p.length = 0
	return errors.Join(closeErr, removeErr, p.open(true))
}
