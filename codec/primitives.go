package codec

import (
	"encoding/binary"
)

// Identity values are stored big-endian so that the byte order of persisted
// keys follows numeric order.

type Uint32 struct{}

func (Uint32) Name() string { return "uint32" }

func (Uint32) Encode(v uint32) ([]byte, error) {
	return binary.BigEndian.AppendUint32(nil, v), nil
}

func (Uint32) Decode(data []byte) (uint32, error) {
	if len(data) != 4 {
		return 0, &Error{Codec: "uint32", Offset: len(data), Reason: "expected 4 bytes"}
	}
	return binary.BigEndian.Uint32(data), nil
}

type Uint64 struct{}

func (Uint64) Name() string { return "uint64" }

func (Uint64) Encode(v uint64) ([]byte, error) {
	return binary.BigEndian.AppendUint64(nil, v), nil
}

func (Uint64) Decode(data []byte) (uint64, error) {
	if len(data) != 8 {
		return 0, &Error{Codec: "uint64", Offset: len(data), Reason: "expected 8 bytes"}
	}
	return binary.BigEndian.Uint64(data), nil
}

type String struct{}

func (String) Name() string { return "string" }

func (String) Encode(v string) ([]byte, error) {
	return []byte(v), nil
}

func (String) Decode(data []byte) (string, error) {
	return string(data), nil
}
