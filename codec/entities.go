package codec

import (
	"ga4gh/loader/models"
)

// VariantKeyCodec encodes the identity of a variant:
// version | referenceName | start | end | referenceBases | alternateBases
type VariantKeyCodec struct{}

func (VariantKeyCodec) Name() string { return "variant" }

func (VariantKeyCodec) Encode(v models.VariantKey) ([]byte, error) {
	e := newEncoder(16 + len(v.ReferenceName) + len(v.ReferenceBases) + len(v.AlternateBases))
	e.byte(FormatVersion)
	e.string(v.ReferenceName)
	e.varint(v.Start)
	e.varint(v.End)
	e.string(v.ReferenceBases)
	e.string(v.AlternateBases)
	return e.buf, nil
}

func (c VariantKeyCodec) Decode(data []byte) (models.VariantKey, error) {
	d := newDecoder(c.Name(), data)
	d.version()
	v := models.VariantKey{
		ReferenceName:  d.string(),
		Start:          d.varint(),
		End:            d.varint(),
		ReferenceBases: d.string(),
		AlternateBases: d.string(),
	}
	if _, ok := models.UnpackAlternates(v.AlternateBases); !ok {
		d.fail("malformed alternate bases")
	}
	if err := d.finish(); err != nil {
		return models.VariantKey{}, err
	}
	return v, nil
}

// VariantSetCodec: version | name | datasetId | referenceSetId
type VariantSetCodec struct{}

func (VariantSetCodec) Name() string { return "variant-set" }

func (VariantSetCodec) Encode(v models.VariantSet) ([]byte, error) {
	e := newEncoder(4 + len(v.Name) + len(v.DatasetId) + len(v.ReferenceSetId))
	e.byte(FormatVersion)
	e.string(v.Name)
	e.string(v.DatasetId)
	e.string(v.ReferenceSetId)
	return e.buf, nil
}

func (c VariantSetCodec) Decode(data []byte) (models.VariantSet, error) {
	d := newDecoder(c.Name(), data)
	d.version()
	v := models.VariantSet{
		Name:           d.string(),
		DatasetId:      d.string(),
		ReferenceSetId: d.string(),
	}
	if err := d.finish(); err != nil {
		return models.VariantSet{}, err
	}
	return v, nil
}

// CallSetKeyCodec: version | name | bioSampleId
type CallSetKeyCodec struct{}

func (CallSetKeyCodec) Name() string { return "call-set" }

func (CallSetKeyCodec) Encode(v models.CallSetKey) ([]byte, error) {
	e := newEncoder(3 + len(v.Name) + len(v.BioSampleId))
	e.byte(FormatVersion)
	e.string(v.Name)
	e.string(v.BioSampleId)
	return e.buf, nil
}

func (c CallSetKeyCodec) Decode(data []byte) (models.CallSetKey, error) {
	d := newDecoder(c.Name(), data)
	d.version()
	v := models.CallSetKey{
		Name:        d.string(),
		BioSampleId: d.string(),
	}
	if err := d.finish(); err != nil {
		return models.CallSetKey{}, err
	}
	return v, nil
}
