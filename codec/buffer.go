package codec

import (
	"encoding/binary"
	"math"
	"sort"
)

type encoder struct {
	buf []byte
}

func newEncoder(sizeHint int) *encoder {
	return &encoder{buf: make([]byte, 0, sizeHint)}
}

func (e *encoder) byte(b byte) {
	e.buf = append(e.buf, b)
}

func (e *encoder) bool(b bool) {
	if b {
		e.byte(1)
	} else {
		e.byte(0)
	}
}

func (e *encoder) uvarint(v uint64) {
	e.buf = binary.AppendUvarint(e.buf, v)
}

func (e *encoder) varint(v int64) {
	e.buf = binary.AppendVarint(e.buf, v)
}

func (e *encoder) uint32(v uint32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

func (e *encoder) uint64(v uint64) {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, v)
}

func (e *encoder) float64(v float64) {
	e.uint64(math.Float64bits(v))
}

func (e *encoder) string(s string) {
	e.uvarint(uint64(len(s)))
	e.buf = append(e.buf, s...)
}

// length writes 0 for a nil collection and n+1 otherwise, so that empty
// and nil collections decode back as they were.
func (e *encoder) length(n int, isNil bool) {
	if isNil {
		e.uvarint(0)
		return
	}
	e.uvarint(uint64(n) + 1)
}

// stringMap writes entries sorted by key so equal maps encode identically.
func (e *encoder) stringMap(m map[string]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	e.length(len(keys), m == nil)
	for _, k := range keys {
		e.string(k)
		e.string(m[k])
	}
}

func (e *encoder) int32s(vs []int32) {
	e.length(len(vs), vs == nil)
	for _, v := range vs {
		e.varint(int64(v))
	}
}

// decoder reads sequentially and records the first failure; every read
// after a failure returns a zero value.
type decoder struct {
	codec string
	data  []byte
	off   int
	err   *Error
}

func newDecoder(codec string, data []byte) *decoder {
	return &decoder{codec: codec, data: data}
}

func (d *decoder) fail(reason string) {
	if d.err == nil {
		d.err = &Error{Codec: d.codec, Offset: d.off, Reason: reason}
	}
}

func (d *decoder) remaining() int {
	return len(d.data) - d.off
}

func (d *decoder) byte() byte {
	if d.err != nil {
		return 0
	}
	if d.remaining() < 1 {
		d.fail("unexpected end of input")
		return 0
	}
	b := d.data[d.off]
	d.off++
	return b
}

func (d *decoder) bool() bool {
	switch d.byte() {
	case 0:
		return false
	case 1:
		return true
	default:
		d.fail("invalid boolean")
		return false
	}
}

func (d *decoder) version() {
	if v := d.byte(); d.err == nil && v != FormatVersion {
		d.off--
		d.fail("unsupported format version")
	}
}

func (d *decoder) uvarint() uint64 {
	if d.err != nil {
		return 0
	}
	v, n := binary.Uvarint(d.data[d.off:])
	if n <= 0 {
		d.fail("invalid uvarint")
		return 0
	}
	d.off += n
	return v
}

func (d *decoder) varint() int64 {
	if d.err != nil {
		return 0
	}
	v, n := binary.Varint(d.data[d.off:])
	if n <= 0 {
		d.fail("invalid varint")
		return 0
	}
	d.off += n
	return v
}

func (d *decoder) uint32() uint32 {
	if d.err != nil {
		return 0
	}
	if d.remaining() < 4 {
		d.fail("unexpected end of input")
		return 0
	}
	v := binary.LittleEndian.Uint32(d.data[d.off:])
	d.off += 4
	return v
}

func (d *decoder) uint64() uint64 {
	if d.err != nil {
		return 0
	}
	if d.remaining() < 8 {
		d.fail("unexpected end of input")
		return 0
	}
	v := binary.LittleEndian.Uint64(d.data[d.off:])
	d.off += 8
	return v
}

func (d *decoder) float64() float64 {
	return math.Float64frombits(d.uint64())
}

// count reads a collection length and rejects lengths that cannot possibly
// fit in the remaining input, given minSize bytes per element.
func (d *decoder) count(minSize int) int {
	n := d.uvarint()
	if d.err != nil {
		return 0
	}
	if minSize < 1 {
		minSize = 1
	}
	if n > uint64(d.remaining()/minSize) {
		d.fail("collection length exceeds input")
		return 0
	}
	return int(n)
}

// length reads a collection length written by encoder.length.
func (d *decoder) length(minSize int) (n int, isNil bool) {
	if d.err != nil {
		return 0, true
	}
	raw, w := binary.Uvarint(d.data[d.off:])
	if w <= 0 {
		d.fail("invalid uvarint")
		return 0, true
	}
	if raw == 0 {
		d.off += w
		return 0, true
	}
	if minSize < 1 {
		minSize = 1
	}
	if raw-1 > uint64((d.remaining()-w)/minSize) {
		d.fail("collection length exceeds input")
		return 0, true
	}
	d.off += w
	return int(raw - 1), false
}

func (d *decoder) string() string {
	n := d.count(1)
	if d.err != nil {
		return ""
	}
	s := string(d.data[d.off : d.off+n])
	d.off += n
	return s
}

func (d *decoder) stringMap() map[string]string {
	n, isNil := d.length(2)
	if d.err != nil || isNil {
		return nil
	}
	m := make(map[string]string, n)
	for i := 0; i < n; i++ {
		k := d.string()
		v := d.string()
		if d.err != nil {
			return nil
		}
		if _, dup := m[k]; dup {
			d.fail("duplicate map key")
			return nil
		}
		m[k] = v
	}
	return m
}

func (d *decoder) int32s() []int32 {
	n, isNil := d.length(1)
	if d.err != nil || isNil {
		return nil
	}
	vs := make([]int32, n)
	for i := range vs {
		v := d.varint()
		if v < math.MinInt32 || v > math.MaxInt32 {
			d.fail("int32 out of range")
		}
		vs[i] = int32(v)
	}
	if d.err != nil {
		return nil
	}
	return vs
}

// finish reports the first failure, or trailing garbage.
func (d *decoder) finish() error {
	if d.err != nil {
		return d.err
	}
	if d.remaining() != 0 {
		d.fail("trailing bytes")
		return d.err
	}
	return nil
}
