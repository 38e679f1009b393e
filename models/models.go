package models

import (
	"encoding/binary"
)

// VCF column names preceding the per-sample genotype columns
var VcfHeaders = []string{"chrom", "pos", "id", "ref", "alt", "qual", "filter", "info", "format"}

const (
	// UnknownAllele marks a genotype allele that could not be called ('.')
	UnknownAllele int32 = -1

	// NonInformativeLikelihood is used when a call carries no likelihood
	NonInformativeLikelihood float64 = -1
)

// Variant is a genomic change at a reference position.
// Coordinates are 0-based, half-open.
type Variant struct {
	ReferenceName  string   `json:"referenceName"`
	Start          int64    `json:"start"`
	End            int64    `json:"end"`
	ReferenceBases string   `json:"referenceBases"`
	AlternateBases []string `json:"alternateBases"`
}

// VariantKey is the comparable form of a Variant, used as a map key.
// AlternateBases holds the alleles packed by PackAlternates.
type VariantKey struct {
	ReferenceName  string
	Start          int64
	End            int64
	ReferenceBases string
	AlternateBases string
}

func (v Variant) Key() VariantKey {
	return VariantKey{
		ReferenceName:  v.ReferenceName,
		Start:          v.Start,
		End:            v.End,
		ReferenceBases: v.ReferenceBases,
		AlternateBases: PackAlternates(v.AlternateBases),
	}
}

func (k VariantKey) Variant() Variant {
	alts, _ := UnpackAlternates(k.AlternateBases)
	return Variant{
		ReferenceName:  k.ReferenceName,
		Start:          k.Start,
		End:            k.End,
		ReferenceBases: k.ReferenceBases,
		AlternateBases: alts,
	}
}

// PackAlternates writes each allele as its uvarint length followed by its
// bytes, so that distinct allele lists never pack alike. A list without
// alleles packs to "".
func PackAlternates(alts []string) string {
	var buf []byte
	for _, a := range alts {
		buf = binary.AppendUvarint(buf, uint64(len(a)))
		buf = append(buf, a...)
	}
	return string(buf)
}

// UnpackAlternates reverses PackAlternates. ok is false for input
// PackAlternates cannot have produced.
func UnpackAlternates(packed string) (alts []string, ok bool) {
	data := []byte(packed)
	for len(data) > 0 {
		n, w := binary.Uvarint(data)
		if w <= 0 || n > uint64(len(data)-w) {
			return nil, false
		}
		end := w + int(n)
		alts = append(alts, string(data[w:end]))
		data = data[end:]
	}
	return alts, true
}

// VariantSet groups the variants produced by one calling workflow.
type VariantSet struct {
	Name           string `json:"name"`
	DatasetId      string `json:"datasetId"`
	ReferenceSetId string `json:"referenceSetId"`
}

// CallSet groups the calls of one biological sample across variant sets.
type CallSet struct {
	Name          string   `json:"name"`
	BioSampleId   string   `json:"bioSampleId"`
	VariantSetIds []uint32 `json:"variantSetIds"`
}

// CallSetKey identifies a CallSet independently of the variant sets it
// has been observed in.
type CallSetKey struct {
	Name        string
	BioSampleId string
}

func (c CallSet) Key() CallSetKey {
	return CallSetKey{Name: c.Name, BioSampleId: c.BioSampleId}
}

// Call is one sample's genotype observation at a variant.
type Call struct {
	VariantSetId       uint32            `json:"variantSetId"`
	CallSetId          uint32            `json:"callSetId"`
	Info               map[string]string `json:"info"`
	GenotypeLikelihood float64           `json:"genotypeLikelihood"`
	Phased             bool              `json:"phased"`
	Alleles            []int32           `json:"genotype"`
}

// Aggregate is the stored state of one distinct variant: its identity and
// every call observed for it so far, in arrival order.
type Aggregate struct {
	Id    uint64
	Calls []Call
}

// RawGenotype is one genotype column of an already-parsed variant record.
type RawGenotype struct {
	SampleName    string
	Alleles       []string
	Phased        bool
	Likelihood    float64
	HasLikelihood bool
	Attributes    map[string]string
}

// RawVariantRecord is an already-parsed variant record as supplied by the
// upstream producer.
type RawVariantRecord struct {
	ReferenceName  string
	Start          int64
	End            int64
	ReferenceBases string
	AlternateBases []string
	Info           map[string]string
	Genotypes      []RawGenotype
}

func (r RawVariantRecord) Variant() Variant {
	return Variant{
		ReferenceName:  r.ReferenceName,
		Start:          r.Start,
		End:            r.End,
		ReferenceBases: r.ReferenceBases,
		AlternateBases: r.AlternateBases,
	}
}

// FileMetadata describes the source file a batch of records comes from.
type FileMetadata struct {
	Filename       string `json:"filename" mapstructure:"filename"`
	Workflow       string `json:"workflow" mapstructure:"workflow"`
	DatasetId      string `json:"datasetId" mapstructure:"dataset_id"`
	ReferenceSetId string `json:"referenceSetId" mapstructure:"reference_set_id"`
	SampleId       string `json:"sampleId" mapstructure:"sample_id"`
	BioSampleId    string `json:"bioSampleId" mapstructure:"biosample_id"`
	TumorAliquotId string `json:"tumorAliquotId" mapstructure:"tumor_aliquot_id"`
}
