// Package codec holds the binary encodings used by the persistent storage
// tiers.
//
// Every entity encoding starts with a format byte. Changing the field set of
// an entity is a breaking change: bump the format byte, and stores written
// by older builds will fail to open with ErrCorrupt rather than decode into
// partially populated values. There is no migration path.
package codec

import (
	"errors"
	"fmt"
)

// FormatVersion is written as the first byte of every entity encoding.
const FormatVersion byte = 2

// ErrCorrupt is returned (wrapped in *Error) for truncated or malformed input.
var ErrCorrupt = errors.New("corrupt encoded value")

// Codec encodes/decodes values of a single type.
// Implementations are stateless and safe for concurrent use.
type Codec[T any] interface {
	Encode(v T) ([]byte, error)
	Decode(data []byte) (T, error)
	Name() string
}

// Error describes a decode failure.
type Error struct {
	Codec  string
	Offset int
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("codec %s: %s at offset %d", e.Codec, e.Reason, e.Offset)
}

func (e *Error) Unwrap() error {
	return ErrCorrupt
}

// MustEncode is a helper for tests.
func MustEncode[T any](c Codec[T], v T) []byte {
	b, err := c.Encode(v)
	if err != nil {
		panic(fmt.Errorf("codec %s encode failed: %w", c.Name(), err))
	}
	return b
}
