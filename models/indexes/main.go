package indexes

import (
	"ga4gh/loader/models"
	z "ga4gh/loader/models/constants/zygosity"
)

// index names the exported documents are written to
const (
	VariantsIndex    = "variants"
	VariantSetsIndex = "variant-sets"
	CallSetsIndex    = "call-sets"
)

type Variant struct {
	Id             uint64   `json:"id"`
	ReferenceName  string   `json:"referenceName"`
	Start          int64    `json:"start"`
	End            int64    `json:"end"`
	ReferenceBases string   `json:"referenceBases"`
	AlternateBases []string `json:"alternateBases"`
	Calls          []Call   `json:"calls"`
}

type Call struct {
	VariantSetId       uint32            `json:"variantSetId"`
	CallSetId          uint32            `json:"callSetId"`
	Info               map[string]string `json:"info,omitempty"`
	GenotypeLikelihood float64           `json:"genotypeLikelihood"`
	Phased             bool              `json:"phased"`
	Genotype           []int32           `json:"genotype"`
	Zygosity           string            `json:"zygosity"`
}

type VariantSet struct {
	Id             uint32 `json:"id"`
	Name           string `json:"name"`
	DatasetId      string `json:"datasetId"`
	ReferenceSetId string `json:"referenceSetId"`
}

type CallSet struct {
	Id            uint32   `json:"id"`
	Name          string   `json:"name"`
	BioSampleId   string   `json:"bioSampleId"`
	VariantSetIds []uint32 `json:"variantSetIds"`
}

func NewVariant(id uint64, v models.Variant, calls []models.Call) Variant {
	doc := Variant{
		Id:             id,
		ReferenceName:  v.ReferenceName,
		Start:          v.Start,
		End:            v.End,
		ReferenceBases: v.ReferenceBases,
		AlternateBases: v.AlternateBases,
		Calls:          make([]Call, len(calls)),
	}
	for i, c := range calls {
		doc.Calls[i] = Call{
			VariantSetId:       c.VariantSetId,
			CallSetId:          c.CallSetId,
			Info:               c.Info,
			GenotypeLikelihood: c.GenotypeLikelihood,
			Phased:             c.Phased,
			Genotype:           c.Alleles,
			Zygosity:           z.ZygosityToString(z.FromAlleles(c.Alleles)),
		}
	}
	return doc
}

func NewVariantSet(id uint32, vs models.VariantSet) VariantSet {
	return VariantSet{
		Id:             id,
		Name:           vs.Name,
		DatasetId:      vs.DatasetId,
		ReferenceSetId: vs.ReferenceSetId,
	}
}

func NewCallSet(id uint32, cs models.CallSet) CallSet {
	return CallSet{
		Id:            id,
		Name:          cs.Name,
		BioSampleId:   cs.BioSampleId,
		VariantSetIds: cs.VariantSetIds,
	}
}

var MAPPING_FIELDS_KEYWORD_IG256 = map[string]interface{}{
	"keyword": map[string]interface{}{
		"type":         "keyword",
		"ignore_above": 256,
	},
}
var MAPPING_TEXT = map[string]interface{}{"type": "text", "fields": MAPPING_FIELDS_KEYWORD_IG256}
var MAPPING_KEYWORD = map[string]interface{}{"type": "keyword"}
var MAPPING_LONG = map[string]interface{}{"type": "long"}
var MAPPING_FLOAT64 = map[string]interface{}{"type": "double"}
var MAPPING_BOOL = map[string]interface{}{"type": "boolean"}

var VARIANT_INDEX_MAPPING = map[string]interface{}{
	"properties": map[string]interface{}{
		"id":             MAPPING_LONG,
		"referenceName":  MAPPING_KEYWORD,
		"start":          MAPPING_LONG,
		"end":            MAPPING_LONG,
		"referenceBases": MAPPING_TEXT,
		"alternateBases": MAPPING_TEXT,
		"calls": map[string]interface{}{
			"type": "nested",
			"properties": map[string]interface{}{
				"variantSetId":       MAPPING_LONG,
				"callSetId":          MAPPING_LONG,
				"info":               map[string]interface{}{"type": "object", "dynamic": true},
				"genotypeLikelihood": MAPPING_FLOAT64,
				"phased":             MAPPING_BOOL,
				"genotype":           MAPPING_LONG,
				"zygosity":           MAPPING_KEYWORD,
			},
		},
	},
}

var VARIANT_SET_INDEX_MAPPING = map[string]interface{}{
	"properties": map[string]interface{}{
		"id":             MAPPING_LONG,
		"name":           MAPPING_TEXT,
		"datasetId":      MAPPING_KEYWORD,
		"referenceSetId": MAPPING_KEYWORD,
	},
}

var CALL_SET_INDEX_MAPPING = map[string]interface{}{
	"properties": map[string]interface{}{
		"id":            MAPPING_LONG,
		"name":          MAPPING_TEXT,
		"bioSampleId":   MAPPING_KEYWORD,
		"variantSetIds": MAPPING_LONG,
	},
}

// Mappings lists the mapping of every exported index
var Mappings = map[string]map[string]interface{}{
	VariantsIndex:    VARIANT_INDEX_MAPPING,
	VariantSetsIndex: VARIANT_SET_INDEX_MAPPING,
	CallSetsIndex:    CALL_SET_INDEX_MAPPING,
}
