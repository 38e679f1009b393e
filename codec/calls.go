package codec

import (
	"ga4gh/loader/models"

	"github.com/klauspost/compress/s2"
)

// CompressionThreshold is the body size above which call lists are stored
// S2-compressed.
const CompressionThreshold = 512

const (
	flagNone       byte = 0
	flagCompressed byte = 1
)

// minimum encoded size of one call, used to bound collection lengths
const minCallSize = 4 + 4 + 1 + 8 + 1 + 1

func writeCall(e *encoder, c models.Call) {
	e.uint32(c.VariantSetId)
	e.uint32(c.CallSetId)
	e.stringMap(c.Info)
	e.float64(c.GenotypeLikelihood)
	e.bool(c.Phased)
	e.int32s(c.Alleles)
}

func readCall(d *decoder) models.Call {
	return models.Call{
		VariantSetId:       d.uint32(),
		CallSetId:          d.uint32(),
		Info:               d.stringMap(),
		GenotypeLikelihood: d.float64(),
		Phased:             d.bool(),
		Alleles:            d.int32s(),
	}
}

func writeCalls(e *encoder, calls []models.Call) {
	e.length(len(calls), calls == nil)
	for _, c := range calls {
		writeCall(e, c)
	}
}

func readCalls(d *decoder) []models.Call {
	n, isNil := d.length(minCallSize)
	if d.err != nil || isNil {
		return nil
	}
	calls := make([]models.Call, n)
	for i := range calls {
		calls[i] = readCall(d)
	}
	if d.err != nil {
		return nil
	}
	return calls
}

// frame prepends version and flag bytes, compressing large bodies.
func frame(body []byte) []byte {
	header := []byte{FormatVersion, flagNone}
	if len(body) > CompressionThreshold {
		header[1] = flagCompressed
		body = s2.Encode(nil, body)
	}
	return append(header, body...)
}

// unframe validates the header and returns the decompressed body.
func unframe(codec string, data []byte) ([]byte, error) {
	if len(data) < 2 {
		return nil, &Error{Codec: codec, Offset: len(data), Reason: "missing header"}
	}
	if data[0] != FormatVersion {
		return nil, &Error{Codec: codec, Offset: 0, Reason: "unsupported format version"}
	}
	switch data[1] {
	case flagNone:
		return data[2:], nil
	case flagCompressed:
		body, err := s2.Decode(nil, data[2:])
		if err != nil {
			return nil, &Error{Codec: codec, Offset: 2, Reason: "decompress: " + err.Error()}
		}
		return body, nil
	default:
		return nil, &Error{Codec: codec, Offset: 1, Reason: "unknown frame flag"}
	}
}

// CallListCodec encodes an ordered call list:
// version | flag | [s2] ( count | call... )
// where a count of 0 means nil and n+1 means n elements, and call = variantSetId | callSetId | info | likelihood | phased | alleles
type CallListCodec struct{}

func (CallListCodec) Name() string { return "call-list" }

func (CallListCodec) Encode(calls []models.Call) ([]byte, error) {
	e := newEncoder(8 + len(calls)*32)
	writeCalls(e, calls)
	return frame(e.buf), nil
}

func (c CallListCodec) Decode(data []byte) ([]models.Call, error) {
	body, err := unframe(c.Name(), data)
	if err != nil {
		return nil, err
	}
	d := newDecoder(c.Name(), body)
	calls := readCalls(d)
	if err := d.finish(); err != nil {
		return nil, err
	}
	return calls, nil
}

// AggregateCodec encodes the aggregation context of one variant:
// version | flag | [s2] ( id | count | call... )
type AggregateCodec struct{}

func (AggregateCodec) Name() string { return "aggregate" }

func (AggregateCodec) Encode(a models.Aggregate) ([]byte, error) {
	e := newEncoder(16 + len(a.Calls)*32)
	e.uint64(a.Id)
	writeCalls(e, a.Calls)
	return frame(e.buf), nil
}

func (c AggregateCodec) Decode(data []byte) (models.Aggregate, error) {
	body, err := unframe(c.Name(), data)
	if err != nil {
		return models.Aggregate{}, err
	}
	d := newDecoder(c.Name(), body)
	a := models.Aggregate{
		Id:    d.uint64(),
		Calls: readCalls(d),
	}
	if err := d.finish(); err != nil {
		return models.Aggregate{}, err
	}
	return a, nil
}
